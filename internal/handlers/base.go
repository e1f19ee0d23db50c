package handlers

import (
	"context"
	"errors"
	"net/http"

	"carelink/internal/controllers"
	"carelink/internal/ident"
	"carelink/internal/middleware"
	"carelink/internal/models"
	"carelink/internal/observability"
	"carelink/internal/session"
	"carelink/internal/tree"
	"carelink/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

const workspaceKey = "workspace"

// StatusFor 错误码到 HTTP 状态码的唯一映射
func StatusFor(err error) int {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	switch models.CodeOf(err) {
	case models.CodeValidation:
		return http.StatusBadRequest
	case models.CodeUnauthorized:
		return http.StatusUnauthorized
	case models.CodeForbidden:
		return http.StatusForbidden
	case models.CodeNotFound:
		return http.StatusNotFound
	case models.CodeMutationInFlight, models.CodeParentPending, models.CodeReactionIDMissing:
		return http.StatusConflict
	case models.CodeNetwork:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

type errorJSON struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorBody(err error) *errorJSON {
	if err == nil {
		return nil
	}
	return &errorJSON{Code: models.CodeOf(err), Message: models.UserMessage(err)}
}

// RenderError writes err as JSON with its mapped status.
func RenderError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		observability.FromContext(c.Request.Context()).Error("request failed", "path", c.Request.URL.Path, "error", err)
	}
	_ = c.Error(err)
	c.JSON(status, errorBody(err))
}

// bind decodes and validates a JSON body.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		RenderError(c, models.NewValidationError("invalid request body"))
		return false
	}
	if err := validate.Struct(dst); err != nil {
		RenderError(c, models.NewValidationError(err.Error()))
		return false
	}
	return true
}

func current(c *gin.Context) *session.Workspace {
	return c.MustGet(workspaceKey).(*session.Workspace)
}

// LoadWorkspace attaches the session's workspace to the context.
func LoadWorkspace(reg *session.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := reg.Get(c.Request.Context(), middleware.SessionID(c))
		if err != nil {
			RenderError(c, models.NewInternalError(err))
			c.Abort()
			return
		}
		c.Set(workspaceKey, ws)
		c.Next()
	}
}

// SignedIn is the check used by middleware.AuthRequired.
func SignedIn(c *gin.Context) bool {
	ws, ok := c.Get(workspaceKey)
	return ok && ws.(*session.Workspace).Auth.Authenticated()
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, ok := utils.ParseID(c.Param(name))
	if !ok {
		RenderError(c, models.NewValidationError("invalid "+name))
	}
	return id, ok
}

func paramNode(c *gin.Context) (ident.NodeID, bool) {
	id, err := ident.Parse(c.Param("nid"))
	if err != nil {
		RenderError(c, models.NewValidationError("invalid node id"))
		return ident.NodeID{}, false
	}
	return id, true
}

// ---------- 页面视图 ----------

// Page is what every tree page controller offers.
type Page interface {
	Status() controllers.Status
	Toasts() *controllers.Toasts
	Rows() []tree.Row
	CanDelete(tree.Node) bool
	VotePending(ident.NodeID) bool
	Load(ctx context.Context) error
	Retry(ctx context.Context) error
	Vote(ctx context.Context, id ident.NodeID, delta tree.Vote) (tree.Node, error)
	AddComment(ctx context.Context, parentID ident.NodeID, text string) (ident.NodeID, error)
	DeleteComment(ctx context.Context, id ident.NodeID) error
	DeletePost(ctx context.Context, id ident.NodeID) error
	Reactors(ctx context.Context, id ident.NodeID, likes bool) ([]models.User, error)
}

type rowJSON struct {
	Node        tree.Node `json:"node"`
	Depth       int       `json:"depth"`
	Collapsed   bool      `json:"collapsed,omitempty"`
	CanDelete   bool      `json:"canDelete"`
	VotePending bool      `json:"votePending"`
	ViewMore    string    `json:"viewMore,omitempty"`
}

type pageJSON struct {
	Status controllers.Status `json:"status"`
	Rows   []rowJSON          `json:"rows"`
	Toasts []controllers.Toast `json:"toasts"`
	Error  *errorJSON         `json:"error,omitempty"`
	Extra  any                `json:"extra,omitempty"`
}

func renderRows(p Page) []rowJSON {
	rows := p.Rows()
	out := make([]rowJSON, 0, len(rows))
	for _, r := range rows {
		n := r.Node
		n.Comments = nil
		row := rowJSON{
			Node:        n,
			Depth:       r.Depth,
			Collapsed:   r.Collapsed,
			CanDelete:   p.CanDelete(r.Node),
			VotePending: p.VotePending(n.ID),
		}
		if r.Collapsed || n.HasMore {
			row.ViewMore = controllers.DetailRoute(n.ID)
		}
		out = append(out, row)
	}
	return out
}

// RenderPage writes the page state; err (if any) picks the status code.
func RenderPage(c *gin.Context, p Page, err error, extra any) {
	status := http.StatusOK
	if err != nil {
		status = StatusFor(err)
		_ = c.Error(err)
	}
	c.JSON(status, pageJSON{
		Status: p.Status(),
		Rows:   renderRows(p),
		Toasts: p.Toasts().Active(),
		Error:  errorBody(err),
		Extra:  extra,
	})
}
