package controllers

import (
	"context"
	"strings"

	"carelink/internal/models"
	"carelink/internal/observability"
)

// UserSearch is the search endpoint.
type UserSearch interface {
	SearchUsers(ctx context.Context, query string) ([]models.User, error)
}

// SearchController 用户搜索，查询词记入"最近搜索"
type SearchController struct {
	api     UserSearch
	env     Env
	status  statusBox
	toasts  *Toasts
	results []models.User
	query   string
}

func NewSearchController(api UserSearch, env Env) *SearchController {
	return &SearchController{
		api:    api,
		env:    env,
		status: statusBox{s: Status{Phase: PhaseIdle}},
		toasts: NewToasts(env.ToastTTL),
	}
}

func (c *SearchController) Status() Status  { return c.status.get() }
func (c *SearchController) Toasts() *Toasts { return c.toasts }

func (c *SearchController) Search(ctx context.Context, query string) ([]models.User, error) {
	query = strings.TrimSpace(query)
	c.query = query
	if query == "" {
		c.results = nil
		c.status.set(Status{Phase: PhaseIdle})
		return nil, nil
	}
	c.status.loading()
	users, err := c.api.SearchUsers(ctx, query)
	if err != nil {
		c.status.fail(err)
		return nil, err
	}
	c.results = users
	c.status.ready()

	if c.env.Recents != nil {
		if err := c.env.Recents.Push(ctx, c.env.Owner(), models.RecentSearch, query); err != nil {
			observability.FromContext(ctx).Warn("record recent search failed", "error", err)
		}
	}
	return users, nil
}

// Retry repeats the last query.
func (c *SearchController) Retry(ctx context.Context) ([]models.User, error) {
	return c.Search(ctx, c.query)
}

// Recent returns recent searches, most recent first.
func (c *SearchController) Recent(ctx context.Context) ([]string, error) {
	if c.env.Recents == nil {
		return nil, nil
	}
	return c.env.Recents.List(ctx, c.env.Owner(), models.RecentSearch)
}

// RecentProfiles returns ids of recently viewed profiles, most recent first.
func (c *SearchController) RecentProfiles(ctx context.Context) ([]string, error) {
	if c.env.Recents == nil {
		return nil, nil
	}
	return c.env.Recents.List(ctx, c.env.Owner(), models.RecentProfile)
}
