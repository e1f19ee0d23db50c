package handlers

import (
	"net/http"

	"carelink/internal/middleware"
	"carelink/internal/models"
	"carelink/internal/observability"
	"carelink/internal/session"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	registry *session.Registry
	secure   bool
}

func NewAuthHandler(registry *session.Registry, secure bool) *AuthHandler {
	return &AuthHandler{registry: registry, secure: secure}
}

type loginRequest struct {
	models.Credentials
	Remember bool `json:"remember"`
}

type sessionJSON struct {
	Authenticated bool   `json:"authenticated"`
	Remember      bool   `json:"remember"`
	UserID        int64  `json:"userId,omitempty"`
	Name          string `json:"name,omitempty"`
}

// Show 当前会话状态
func (h *AuthHandler) Show(c *gin.Context) {
	ws := current(c)
	out := sessionJSON{Authenticated: ws.Auth.Authenticated(), Remember: ws.Auth.Remembered()}
	if out.Authenticated {
		v, err := ws.Viewer(c.Request.Context())
		if err != nil {
			RenderError(c, err)
			return
		}
		out.UserID, out.Name = v.ID, v.Name
	}
	c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var in loginRequest
	if !bind(c, &in) {
		return
	}
	ws := current(c)
	pair, err := ws.API.Login(c.Request.Context(), in.Credentials)
	if err != nil {
		RenderError(c, err)
		return
	}
	h.signIn(c, ws, pair, in.Remember)
}

// Register 注册后直接登录（不记住）
func (h *AuthHandler) Register(c *gin.Context) {
	var in models.Registration
	if !bind(c, &in) {
		return
	}
	ws := current(c)
	pair, err := ws.API.Register(c.Request.Context(), in)
	if err != nil {
		RenderError(c, err)
		return
	}
	h.signIn(c, ws, pair, false)
}

func (h *AuthHandler) signIn(c *gin.Context, ws *session.Workspace, pair models.TokenPair, remember bool) {
	ctx := c.Request.Context()
	if err := ws.Reset(); err != nil {
		RenderError(c, models.NewInternalError(err))
		return
	}
	if err := ws.Auth.SignIn(ctx, pair, remember); err != nil {
		RenderError(c, err)
		return
	}
	if err := middleware.Remember(c, remember, h.secure); err != nil {
		observability.FromContext(ctx).Warn("save session cookie failed", "error", err)
	}
	h.Show(c)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	ws := current(c)
	ctx := c.Request.Context()
	if err := ws.Auth.SignOut(ctx); err != nil {
		observability.FromContext(ctx).Warn("clear token stores failed", "error", err)
	}
	h.registry.Drop(ws.ID)
	if err := middleware.Forget(c); err != nil {
		observability.FromContext(ctx).Warn("clear session cookie failed", "error", err)
	}
	c.Status(http.StatusNoContent)
}
