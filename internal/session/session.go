// Package session keeps the per-session client state: the token manager,
// the authenticated API client and the page controllers built on them.
package session

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"carelink/internal/api"
	"carelink/internal/auth"
	"carelink/internal/controllers"
	"carelink/internal/ident"
	"carelink/internal/models"
	"carelink/internal/observability"
	"carelink/internal/optimistic"
	"carelink/internal/services"
	"carelink/internal/storage"
	"carelink/internal/utils"
)

var errAssistantOff = errors.New("assistant is not configured")

// Deps are the process-wide pieces every browser session shares.
type Deps struct {
	APIBaseURL string
	HTTPClient *http.Client
	// Durable keeps "remember me" sessions, Session the others.
	Durable   storage.KV
	Session   storage.KV
	Recents   controllers.Recents
	Assistant controllers.Assistant
	ToastTTL  time.Duration
	// IdleTTL 多久没有请求就丢弃内存里的页面状态（令牌仍在存储里）
	IdleTTL time.Duration
}

// Workspace 一个会话的全部状态：令牌、API 客户端和各页面控制器
type Workspace struct {
	ID   string
	Auth *auth.Manager
	API  *api.Client

	deps  *Deps
	names *services.NameResolver
	locks *optimistic.Locks

	mu        sync.Mutex
	viewer    controllers.Viewer
	feeds     *utils.TTLCache[*controllers.PostsController]
	details   *utils.TTLCache[*controllers.PostDetailController]
	profiles  *utils.TTLCache[*controllers.ProfileController]
	search    *controllers.SearchController
	assistant *controllers.AssistantController
}

func newWorkspace(ctx context.Context, id string, deps *Deps) (*Workspace, error) {
	base, err := api.New(deps.APIBaseURL, deps.HTTPClient)
	if err != nil {
		return nil, err
	}
	vault := auth.NewVault(
		storage.WithPrefix(deps.Durable, id+":"),
		storage.WithPrefix(deps.Session, id+":"),
	)
	mgr := auth.NewManager(vault, base)
	client := base.WithTokens(mgr)

	names, err := services.NewNameResolver(client, 256, 10*time.Minute)
	if err != nil {
		return nil, err
	}
	ws := &Workspace{
		ID:    id,
		Auth:  mgr,
		API:   client,
		deps:  deps,
		names: names,
		locks: optimistic.NewLocks(),
	}
	if err := ws.Reset(); err != nil {
		return nil, err
	}
	mgr.OnTeardown(func() {
		if err := ws.Reset(); err != nil {
			observability.GlobalLogger.Error("reset workspace failed", "session_id", id, "error", err)
		}
	})
	if _, err := mgr.Restore(ctx); err != nil {
		observability.FromContext(ctx).Warn("restore session failed", "error", err)
	}
	return ws, nil
}

// Reset drops every controller and the cached viewer.
func (w *Workspace) Reset() error {
	feeds, err := utils.NewTTLCache[*controllers.PostsController](16)
	if err != nil {
		return err
	}
	details, err := utils.NewTTLCache[*controllers.PostDetailController](32)
	if err != nil {
		return err
	}
	profiles, err := utils.NewTTLCache[*controllers.ProfileController](16)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.viewer = controllers.Viewer{}
	w.feeds, w.details, w.profiles = feeds, details, profiles
	w.search, w.assistant = nil, nil
	return nil
}

// Viewer 当前登录用户；第一次调用时从 /users/me 获取
func (w *Workspace) Viewer(ctx context.Context) (controllers.Viewer, error) {
	w.mu.Lock()
	v := w.viewer
	w.mu.Unlock()
	if v.ID != 0 {
		return v, nil
	}
	me, err := w.API.Me(ctx)
	if err != nil {
		if id, ok := w.Auth.Subject(); ok {
			v = controllers.Viewer{ID: id, Name: models.FallbackName(models.UserID(id))}
			return v, nil
		}
		return v, err
	}
	v = controllers.Viewer{ID: int64(me.ID), Name: me.DisplayName()}
	w.mu.Lock()
	w.viewer = v
	w.mu.Unlock()
	return v, nil
}

func (w *Workspace) env(ctx context.Context) (controllers.Env, error) {
	v, err := w.Viewer(ctx)
	if err != nil {
		return controllers.Env{}, err
	}
	return controllers.Env{
		Viewer:   v,
		Names:    w.names,
		Recents:  w.deps.Recents,
		Locks:    w.locks,
		ToastTTL: w.deps.ToastTTL,
	}, nil
}

// Feed returns the feed controller for a category, creating it on first use.
func (w *Workspace) Feed(ctx context.Context, category string) (*controllers.PostsController, error) {
	return getOrCreate(ctx, w, func(w *Workspace) *utils.TTLCache[*controllers.PostsController] { return w.feeds },
		"feed:"+category, func(env controllers.Env) *controllers.PostsController {
			return controllers.NewPostsController(w.API, env, category)
		})
}

// Detail returns the detail controller rooted at a post or a comment.
func (w *Workspace) Detail(ctx context.Context, id ident.NodeID) (*controllers.PostDetailController, error) {
	return getOrCreate(ctx, w, func(w *Workspace) *utils.TTLCache[*controllers.PostDetailController] { return w.details },
		id.String(), func(env controllers.Env) *controllers.PostDetailController {
			return controllers.NewPostDetailController(w.API, env, id)
		})
}

func (w *Workspace) Profile(ctx context.Context, userID int64) (*controllers.ProfileController, error) {
	return getOrCreate(ctx, w, func(w *Workspace) *utils.TTLCache[*controllers.ProfileController] { return w.profiles },
		idKey(userID), func(env controllers.Env) *controllers.ProfileController {
			return controllers.NewProfileController(w.API, env, userID)
		})
}

func (w *Workspace) Search(ctx context.Context) (*controllers.SearchController, error) {
	env, err := w.env(ctx)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.search == nil {
		w.search = controllers.NewSearchController(w.API, env)
	}
	return w.search, nil
}

func (w *Workspace) Assistant(ctx context.Context) (*controllers.AssistantController, error) {
	if w.deps.Assistant == nil {
		return nil, models.NewInternalError(errAssistantOff)
	}
	env, err := w.env(ctx)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.assistant == nil {
		w.assistant = controllers.NewAssistantController(w.deps.Assistant, env)
	}
	return w.assistant, nil
}

// getOrCreate 控制器按 key 缓存；pick 在锁内读取，避免和 reset 竞争
func getOrCreate[C any](ctx context.Context, w *Workspace, pick func(*Workspace) *utils.TTLCache[C], key string, build func(controllers.Env) C) (C, error) {
	var zero C
	env, err := w.env(ctx)
	if err != nil {
		return zero, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	cache := pick(w)
	if c, ok := cache.Get(key); ok {
		return c, nil
	}
	c := build(env)
	cache.Set(key, c, 0)
	return c, nil
}

// Registry maps session ids to workspaces, evicting idle ones.
type Registry struct {
	deps  *Deps
	mu    sync.Mutex
	items *utils.TTLCache[*Workspace]
}

func NewRegistry(deps *Deps, size int) (*Registry, error) {
	if deps.IdleTTL <= 0 {
		deps.IdleTTL = 24 * time.Hour
	}
	items, err := utils.NewTTLCache[*Workspace](size)
	if err != nil {
		return nil, err
	}
	return &Registry{deps: deps, items: items}, nil
}

// Get returns the workspace of a session, restoring its tokens on first use.
func (r *Registry) Get(ctx context.Context, sid string) (*Workspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ws, ok := r.items.Get(sid); ok {
		r.items.Set(sid, ws, r.deps.IdleTTL)
		return ws, nil
	}
	ws, err := newWorkspace(ctx, sid, r.deps)
	if err != nil {
		return nil, err
	}
	r.items.Set(sid, ws, r.deps.IdleTTL)
	return ws, nil
}

func idKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Drop forgets a session's in-memory state.
func (r *Registry) Drop(sid string) {
	r.items.Delete(sid)
}
