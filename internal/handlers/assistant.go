package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type AssistantHandler struct{}

func NewAssistantHandler() *AssistantHandler {
	return &AssistantHandler{}
}

type askRequest struct {
	Question string `json:"question" validate:"required,max=4000"`
}

func (h *AssistantHandler) History(c *gin.Context) {
	ac, err := current(c).Assistant(c.Request.Context())
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": ac.Status(), "messages": ac.Messages(), "toasts": ac.Toasts().Active()})
}

// Ask 提问；失败时历史不变，错误以通知和状态码返回
func (h *AssistantHandler) Ask(c *gin.Context) {
	var in askRequest
	if !bind(c, &in) {
		return
	}
	ac, err := current(c).Assistant(c.Request.Context())
	if err != nil {
		RenderError(c, err)
		return
	}
	status := http.StatusOK
	answer, err := ac.Ask(c.Request.Context(), in.Question)
	if err != nil {
		status = StatusFor(err)
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{
		"answer":   answer,
		"status":   ac.Status(),
		"messages": ac.Messages(),
		"toasts":   ac.Toasts().Active(),
		"error":    errorBody(err),
	})
}

func (h *AssistantHandler) Reset(c *gin.Context) {
	ac, err := current(c).Assistant(c.Request.Context())
	if err != nil {
		RenderError(c, err)
		return
	}
	ac.Reset()
	c.Status(http.StatusNoContent)
}
