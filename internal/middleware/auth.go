package middleware

import (
	"net/http"
	"time"

	"carelink/internal/models"
	"carelink/internal/observability"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// SessionIDKey 会话 ID 在 gin 上下文和 cookie 里的键
	SessionIDKey = "sid"
	rememberKey  = "remember"
)

// RememberMaxAge is the cookie lifetime of a "remember me" session.
const RememberMaxAge = 30 * 24 * time.Hour

// Session makes sure every browser has a session id and tags the request
// context with it.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		sid, _ := session.Get(SessionIDKey).(string)
		if sid == "" {
			sid = uuid.NewString()
			session.Set(SessionIDKey, sid)
			if err := session.Save(); err != nil {
				observability.FromContext(c.Request.Context()).Error("save session failed", "error", err)
			}
		}
		c.Set(SessionIDKey, sid)
		c.Request = c.Request.WithContext(observability.WithSessionID(c.Request.Context(), sid))
		c.Next()
	}
}

// SessionID returns the id set by Session.
func SessionID(c *gin.Context) string {
	return c.GetString(SessionIDKey)
}

// Remember 登录后调整 cookie 寿命：记住我则持久，否则随浏览器关闭失效
func Remember(c *gin.Context, remember bool, secure bool) error {
	session := sessions.Default(c)
	opts := sessions.Options{Path: "/", HttpOnly: true, Secure: secure, SameSite: http.SameSiteLaxMode}
	if remember {
		opts.MaxAge = int(RememberMaxAge / time.Second)
	}
	session.Options(opts)
	session.Set(rememberKey, remember)
	return session.Save()
}

// Forget 退出登录：换一个新的会话 ID
func Forget(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	return session.Save()
}

// RequestLogger logs one line per request with a correlation id taken
// from X-Request-ID or generated.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rid := c.GetHeader("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Header("X-Request-ID", rid)
		ctx := observability.WithCorrelationID(c.Request.Context(), rid)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		log := observability.FromContext(c.Request.Context())
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}
		switch {
		case c.Writer.Status() >= 500:
			log.Error("request", attrs...)
		default:
			log.Info("request", attrs...)
		}
	}
}

// AuthRequired rejects the request unless signedIn reports a live session.
func AuthRequired(signedIn func(*gin.Context) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !signedIn(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    models.CodeUnauthorized,
				"message": "please sign in",
			})
			return
		}
		c.Next()
	}
}
