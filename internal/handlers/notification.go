package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct{}

func NewNotificationHandler() *NotificationHandler {
	return &NotificationHandler{}
}

// List returns the active toasts of the current page.
func (h *NotificationHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, currentPage(c).Toasts().Active())
}

// Dismiss 提前关闭一条通知
func (h *NotificationHandler) Dismiss(c *gin.Context) {
	id, ok := paramID(c, "tid")
	if !ok {
		return
	}
	toasts := currentPage(c).Toasts()
	toasts.Dismiss(id)
	c.JSON(http.StatusOK, toasts.Active())
}
