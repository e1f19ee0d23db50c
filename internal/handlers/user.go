package handlers

import (
	"net/http"
	"strings"

	"carelink/internal/controllers"
	"carelink/internal/models"

	"github.com/gin-gonic/gin"
)

type UserHandler struct{}

func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// ProfilePage resolves the profile controller for :uid.
func (h *UserHandler) ProfilePage(c *gin.Context) {
	uid, ok := paramID(c, "uid")
	if !ok {
		c.Abort()
		return
	}
	profile, err := current(c).Profile(c.Request.Context(), uid)
	if err != nil {
		RenderError(c, err)
		c.Abort()
		return
	}
	c.Set(pageKey, pageEntry{Page: profile, extra: func() any {
		return gin.H{"profile": profile.Profile(), "isOwner": profile.IsOwner()}
	}})
	c.Next()
}

// entityBody 按类型给出请求体的目标结构
func entityBody(kind models.EntityKind) any {
	switch kind {
	case models.KindDisease:
		return &models.Disease{}
	case models.KindSpecialization:
		return &models.Specialization{}
	case models.KindAddress:
		return &models.WorkAddress{}
	case models.KindContact:
		return &models.Contact{}
	case models.KindAnnouncement:
		return &models.Announcement{}
	}
	return nil
}

// AddEntity 档案主人新增子记录
func (h *UserHandler) AddEntity(c *gin.Context) {
	kind := models.EntityKind(c.Param("kind"))
	body := entityBody(kind)
	if body == nil {
		RenderError(c, models.NewValidationError("unknown profile section "+string(kind)))
		return
	}
	if err := c.ShouldBindJSON(body); err != nil {
		RenderError(c, models.NewValidationError("invalid request body"))
		return
	}
	p := currentPage(c)
	_, err := p.Page.(*controllers.ProfileController).AddEntity(c.Request.Context(), kind, body)
	RenderPage(c, p, err, p.extra())
}

func (h *UserHandler) DeleteEntity(c *gin.Context) {
	kind := models.EntityKind(c.Param("kind"))
	if !kind.Valid() {
		RenderError(c, models.NewValidationError("unknown profile section "+string(kind)))
		return
	}
	eid, ok := paramID(c, "eid")
	if !ok {
		return
	}
	p := currentPage(c)
	err := p.Page.(*controllers.ProfileController).DeleteEntity(c.Request.Context(), kind, eid)
	RenderPage(c, p, err, p.extra())
}

// Search 搜索用户，q 为空时只返回最近搜索
func (h *UserHandler) Search(c *gin.Context) {
	ctx := c.Request.Context()
	sc, err := current(c).Search(ctx)
	if err != nil {
		RenderError(c, err)
		return
	}
	q := strings.TrimSpace(c.Query("q"))
	var users []models.User
	if q != "" {
		users, err = sc.Search(ctx, q)
	}
	recent, rerr := sc.Recent(ctx)
	if rerr != nil && err == nil {
		err = rerr
	}
	status := http.StatusOK
	if err != nil {
		status = StatusFor(err)
		_ = c.Error(err)
	}
	if users == nil {
		users = []models.User{}
	}
	c.JSON(status, gin.H{
		"status":  sc.Status(),
		"results": users,
		"recent":  recent,
		"toasts":  sc.Toasts().Active(),
		"error":   errorBody(err),
	})
}

// Recent lists recent searches and recently viewed profiles.
func (h *UserHandler) Recent(c *gin.Context) {
	ctx := c.Request.Context()
	sc, err := current(c).Search(ctx)
	if err != nil {
		RenderError(c, err)
		return
	}
	queries, err := sc.Recent(ctx)
	if err != nil {
		RenderError(c, err)
		return
	}
	profiles, err := sc.RecentProfiles(ctx)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"searches": queries, "profiles": profiles})
}
