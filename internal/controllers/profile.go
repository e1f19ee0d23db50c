package controllers

import (
	"context"
	"strconv"
	"sync"

	"carelink/internal/models"
	"carelink/internal/observability"
)

// ProfileBackend adds the profile sub-record endpoints.
type ProfileBackend interface {
	Backend
	Section(ctx context.Context, userID int64, kind models.EntityKind, p *models.Profile) error
	CreateEntity(ctx context.Context, kind models.EntityKind, body any) (int64, error)
	DeleteEntity(ctx context.Context, kind models.EntityKind, id int64) error
}

// ProfileController 用户档案页：基本信息、按角色区分的子记录，以及该用户的帖子（评论展开一层）
type ProfileController struct {
	page
	api    ProfileBackend
	userID int64

	mu      sync.RWMutex
	profile models.Profile
}

func NewProfileController(api ProfileBackend, env Env, userID int64) *ProfileController {
	return &ProfileController{page: newPage(api, env, 1), api: api, userID: userID}
}

// IsOwner: the profile belongs to the viewer.
func (c *ProfileController) IsOwner() bool {
	return c.env.Viewer.ID != 0 && c.env.Viewer.ID == c.userID
}

func (c *ProfileController) Profile() models.Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.profile
}

func (c *ProfileController) Load(ctx context.Context) error {
	c.status.loading()
	if err := c.load(ctx); err != nil {
		c.status.fail(err)
		return err
	}
	c.status.ready()

	if c.env.Recents != nil && !c.IsOwner() {
		if err := c.env.Recents.Push(ctx, c.env.Owner(), models.RecentProfile, strconv.FormatInt(c.userID, 10)); err != nil {
			observability.FromContext(ctx).Warn("record recently viewed profile failed", "user_id", c.userID, "error", err)
		}
	}
	return nil
}

func (c *ProfileController) Retry(ctx context.Context) error {
	return c.Load(ctx)
}

func (c *ProfileController) load(ctx context.Context) error {
	if c.userID <= 0 {
		return models.NewValidationError("invalid user id")
	}
	u, err := c.api.User(ctx, c.userID)
	if err != nil {
		return err
	}
	p := models.Profile{User: u}
	for _, kind := range models.KindsFor(u.Role) {
		if err := c.api.Section(ctx, c.userID, kind, &p); err != nil {
			return err
		}
	}

	recs, err := c.api.PostsByUser(ctx, c.userID)
	if err != nil {
		return err
	}
	nodes, err := c.mapAll(ctx, recs)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.profile = p
	c.mu.Unlock()
	c.store.Set(nodes)
	return nil
}

// AddEntity 新增一条子记录（疾病、专长、地址、联系方式、公告），成功后重新拉取该列表
func (c *ProfileController) AddEntity(ctx context.Context, kind models.EntityKind, body any) (int64, error) {
	if err := c.checkEntity(kind); err != nil {
		c.toasts.Error(err)
		return 0, err
	}
	if err := validate.Struct(body); err != nil {
		err = validationError(err)
		c.toasts.Error(err)
		return 0, err
	}
	id, err := c.api.CreateEntity(ctx, kind, body)
	if err != nil {
		c.toasts.Error(err)
		return 0, err
	}
	if err := c.reloadSection(ctx, kind); err != nil {
		c.toasts.Error(err)
		return id, err
	}
	return id, nil
}

func (c *ProfileController) DeleteEntity(ctx context.Context, kind models.EntityKind, id int64) error {
	if err := c.checkEntity(kind); err != nil {
		c.toasts.Error(err)
		return err
	}
	if err := c.api.DeleteEntity(ctx, kind, id); err != nil {
		c.toasts.Error(err)
		return err
	}
	if err := c.reloadSection(ctx, kind); err != nil {
		c.toasts.Error(err)
		return err
	}
	return nil
}

func (c *ProfileController) checkEntity(kind models.EntityKind) error {
	if !c.IsOwner() {
		return models.NewForbiddenError("only the owner can edit this profile")
	}
	if !kind.Valid() {
		return models.NewValidationError("unknown profile section " + string(kind))
	}
	c.mu.RLock()
	role := c.profile.User.Role
	c.mu.RUnlock()
	for _, k := range models.KindsFor(role) {
		if k == kind {
			return nil
		}
	}
	return models.NewValidationError(string(kind) + " are not part of this profile")
}

func (c *ProfileController) reloadSection(ctx context.Context, kind models.EntityKind) error {
	c.mu.RLock()
	p := c.profile
	c.mu.RUnlock()
	if err := c.api.Section(ctx, c.userID, kind, &p); err != nil {
		return err
	}
	c.mu.Lock()
	c.profile = p
	c.mu.Unlock()
	return nil
}
