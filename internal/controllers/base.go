// Package controllers holds the per-page view state: a comment forest, a
// load status and transient notifications, wired to the reaction and
// comment engines.
package controllers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"carelink/internal/comments"
	"carelink/internal/ident"
	"carelink/internal/models"
	"carelink/internal/optimistic"
	"carelink/internal/reaction"
	"carelink/internal/tree"
	"carelink/internal/utils"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Backend is the part of the REST API the page controllers use.
type Backend interface {
	reaction.Service
	comments.Service

	Posts(ctx context.Context, category string) ([]models.Post, error)
	Post(ctx context.Context, id int64) (models.Post, error)
	PostsByUser(ctx context.Context, userID int64) ([]models.Post, error)
	CreatePost(ctx context.Context, p models.NewPost) (models.Post, error)
	DeletePost(ctx context.Context, id int64) error
	Reactors(ctx context.Context, postID int64, likes bool) ([]models.User, error)
	Categories(ctx context.Context) ([]models.Category, error)
	User(ctx context.Context, id int64) (models.User, error)
}

// Names resolves author display names.
type Names interface {
	Resolve(ctx context.Context, ids []int64) (map[int64]string, error)
}

// Recents stores the short preference lists.
type Recents interface {
	Push(ctx context.Context, owner string, kind models.RecentKind, value string) error
	List(ctx context.Context, owner string, kind models.RecentKind) ([]string, error)
}

// Viewer is the signed-in user as the controllers see it.
type Viewer struct {
	ID   int64
	Name string
}

// Env 一个会话内所有控制器共享的依赖
type Env struct {
	Viewer   Viewer
	Names    Names
	Recents  Recents
	Locks    *optimistic.Locks
	ToastTTL time.Duration
}

// Owner is the key preference lists are stored under.
func (e Env) Owner() string {
	return fmt.Sprintf("user:%d", e.Viewer.ID)
}

// ---------- 状态 ----------

type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseFailed  Phase = "failed"
)

// Status 页面加载状态。加载失败时 Retryable 决定是否显示重试按钮
type Status struct {
	Phase     Phase  `json:"phase"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	Retryable bool   `json:"retryable"`
}

type statusBox struct {
	mu sync.RWMutex
	s  Status
}

func (b *statusBox) get() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.s
}

func (b *statusBox) set(s Status) {
	b.mu.Lock()
	b.s = s
	b.mu.Unlock()
}

func (b *statusBox) loading() { b.set(Status{Phase: PhaseLoading}) }
func (b *statusBox) ready()   { b.set(Status{Phase: PhaseReady}) }

func (b *statusBox) fail(err error) {
	b.set(Status{
		Phase:     PhaseFailed,
		Code:      models.CodeOf(err),
		Message:   models.UserMessage(err),
		Retryable: retryable(err),
	})
}

// retryable: 网络和服务端错误可以重试；校验、权限、不存在的重试也没用
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch models.CodeOf(err) {
	case models.CodeNetwork, models.CodeInternal:
		return true
	}
	return false
}

// ---------- 通知 ----------

type ToastLevel string

const (
	ToastError   ToastLevel = "error"
	ToastSuccess ToastLevel = "success"
)

type Toast struct {
	ID        int64      `json:"id"`
	Level     ToastLevel `json:"level"`
	Message   string     `json:"message"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// Toasts is a queue of notifications that disappear after a TTL.
type Toasts struct {
	mu    sync.Mutex
	ttl   time.Duration
	next  int64
	items []Toast
	now   func() time.Time
}

func NewToasts(ttl time.Duration) *Toasts {
	if ttl <= 0 {
		ttl = 4 * time.Second
	}
	return &Toasts{ttl: ttl, now: time.Now}
}

func (t *Toasts) Push(level ToastLevel, msg string) Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	it := Toast{ID: t.next, Level: level, Message: msg, ExpiresAt: t.now().Add(t.ttl)}
	t.items = append(t.prune(), it)
	return it
}

// Error pushes the user-facing message of err.
func (t *Toasts) Error(err error) {
	if err == nil {
		return
	}
	t.Push(ToastError, models.UserMessage(err))
}

// Active returns the toasts that have not expired yet, oldest first.
func (t *Toasts) Active() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = t.prune()
	return append([]Toast(nil), t.items...)
}

// Dismiss removes a toast before its TTL.
func (t *Toasts) Dismiss(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.items[:0]
	for _, it := range t.items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	t.items = out
}

func (t *Toasts) prune() []Toast {
	now := t.now()
	out := t.items[:0]
	for _, it := range t.items {
		if now.Before(it.ExpiresAt) {
			out = append(out, it)
		}
	}
	return out
}

// ---------- 公共部分 ----------

// page 是各页面控制器共用的部分：一棵树、加载状态、通知，以及点赞和评论引擎
type page struct {
	api      Backend
	env      Env
	store    *tree.Store
	status   statusBox
	toasts   *Toasts
	votes    *reaction.Reconciler
	comments *comments.Engine
	depth    int
}

func newPage(api Backend, env Env, depth int) page {
	if env.Locks == nil {
		env.Locks = optimistic.NewLocks()
	}
	return page{
		api:      api,
		env:      env,
		store:    tree.NewStore(nil),
		status:   statusBox{s: Status{Phase: PhaseIdle}},
		toasts:   NewToasts(env.ToastTTL),
		votes:    reaction.NewReconciler(api, env.Locks, env.Viewer.ID),
		comments: comments.NewEngine(api, env.Locks, comments.Author{ID: env.Viewer.ID, Name: env.Viewer.Name}),
		depth:    depth,
	}
}

func (p *page) Status() Status  { return p.status.get() }
func (p *page) Toasts() *Toasts { return p.toasts }
func (p *page) Nodes() []tree.Node {
	return p.store.Load()
}

// Rows 展平后的可渲染行，深度不超过 MaxRenderDepth
func (p *page) Rows() []tree.Row {
	return tree.Flatten(p.store.Load(), tree.MaxRenderDepth)
}

// CanDelete: only the author of a node may delete it.
func (p *page) CanDelete(n tree.Node) bool {
	return p.env.Viewer.ID != 0 && n.AuthorID == p.env.Viewer.ID && !n.Pending
}

// VotePending reports whether a vote on id is in flight (the control is disabled).
func (p *page) VotePending(id ident.NodeID) bool {
	return p.votes.Pending(id)
}

// mapAll resolves author names for recs and maps them at the page's depth.
func (p *page) mapAll(ctx context.Context, recs []models.Post) ([]tree.Node, error) {
	opts, err := p.mapOptions(ctx, recs)
	if err != nil {
		return nil, err
	}
	return tree.MapPosts(recs, opts), nil
}

// mapRoot maps one record as the root id; a comment opened on its own keeps its c_ tag.
func (p *page) mapRoot(ctx context.Context, rec models.Post, id ident.NodeID) (tree.Node, error) {
	opts, err := p.mapOptions(ctx, []models.Post{rec})
	if err != nil {
		return tree.Node{}, err
	}
	if id.IsComment() {
		return tree.MapComment(rec, opts), nil
	}
	return tree.MapPost(rec, opts), nil
}

func (p *page) mapOptions(ctx context.Context, recs []models.Post) (tree.MapOptions, error) {
	names := map[int64]string{}
	if p.env.Names != nil {
		resolved, err := p.env.Names.Resolve(ctx, tree.AuthorIDs(recs))
		if err != nil {
			return tree.MapOptions{}, err
		}
		names = resolved
	}
	if p.env.Viewer.ID != 0 && p.env.Viewer.Name != "" {
		names[p.env.Viewer.ID] = p.env.Viewer.Name
	}
	return tree.MapOptions{Names: names, Viewer: p.env.Viewer.ID, Depth: p.depth}, nil
}

// resyncRoot reloads the top-level post holding id and swaps it in place.
func (p *page) resyncRoot(ctx context.Context, id ident.NodeID) error {
	path, ok := tree.Path(p.store.Load(), id)
	if !ok {
		return nil
	}
	root := p.store.Load()[path[0]]
	num, ok := root.ID.Numeric()
	if !ok {
		return nil
	}
	// 有未确认的回复或删除时不整体替换，否则本地的临时节点会丢失
	if p.env.Locks.Busy(comments.DeleteKey(root.ID)) {
		return nil
	}
	rec, err := p.api.Post(ctx, num)
	if err != nil {
		return err
	}
	mapped, err := p.mapRoot(ctx, rec, root.ID)
	if err != nil {
		return err
	}
	_, err = p.store.Apply(func(nodes []tree.Node) ([]tree.Node, error) {
		out, _ := tree.Update(nodes, root.ID, func(tree.Node) tree.Node { return mapped })
		return out, nil
	})
	return err
}

// Vote likes (+1) or dislikes (-1) a post or comment, then reloads its post.
func (p *page) Vote(ctx context.Context, id ident.NodeID, delta tree.Vote) (tree.Node, error) {
	n, err := p.votes.Vote(ctx, p.store, id, delta, func(ctx context.Context) error {
		return p.resyncRoot(ctx, id)
	})
	if err != nil {
		p.toasts.Error(err)
		return tree.Node{}, err
	}
	return n, nil
}

// AddComment replies to a post or comment.
func (p *page) AddComment(ctx context.Context, parentID ident.NodeID, text string) (ident.NodeID, error) {
	id, err := p.comments.Add(ctx, p.store, parentID, text)
	if err != nil {
		p.toasts.Error(err)
		return ident.NodeID{}, err
	}
	return id, nil
}

func (p *page) DeleteComment(ctx context.Context, id ident.NodeID) error {
	if !id.IsComment() {
		return models.NewValidationError("not a comment")
	}
	if n, ok := p.store.Find(id); ok && !p.CanDelete(n) {
		err := models.NewForbiddenError("only the author can delete this comment")
		p.toasts.Error(err)
		return err
	}
	if err := p.comments.Delete(ctx, p.store, id); err != nil {
		p.toasts.Error(err)
		return err
	}
	return nil
}

// DeletePost removes a top-level post optimistically.
func (p *page) DeletePost(ctx context.Context, id ident.NodeID) error {
	num, ok := id.Numeric()
	if !ok || !id.IsPost() {
		return models.NewValidationError("not a post")
	}
	if n, found := p.store.Find(id); found && !p.CanDelete(n) {
		err := models.NewForbiddenError("only the author can delete this post")
		p.toasts.Error(err)
		return err
	}
	release, err := p.env.Locks.Acquire(comments.DeleteKey(id))
	if err != nil {
		p.toasts.Error(err)
		return err
	}
	defer release()

	type slot struct {
		index int
		node  tree.Node
	}
	var removed slot
	_, err = p.store.Apply(func(nodes []tree.Node) ([]tree.Node, error) {
		_, index, found := tree.Locate(nodes, id)
		if !found {
			return nil, models.NewNotFoundError("post", id)
		}
		removed = slot{index: index, node: nodes[index]}
		out, _ := tree.Remove(nodes, id)
		return out, nil
	})
	if err != nil {
		return err
	}
	m := optimistic.Begin("post_delete", removed)
	if err := p.api.DeletePost(ctx, num); err != nil {
		back, _ := m.Rollback()
		// 放回原位，其他帖子上并发确认的改动不受影响
		_, _ = p.store.Apply(func(nodes []tree.Node) ([]tree.Node, error) {
			out, _ := tree.InsertAt(nodes, ident.NodeID{}, back.index, back.node)
			return out, nil
		})
		p.toasts.Error(err)
		return fmt.Errorf("delete post %s: %w", id, err)
	}
	m.Confirm()
	return nil
}

// Reactors lists who liked (or disliked) a post or comment.
func (p *page) Reactors(ctx context.Context, id ident.NodeID, likes bool) ([]models.User, error) {
	num, ok := id.Numeric()
	if !ok {
		return nil, models.ErrParentPending
	}
	return p.api.Reactors(ctx, num, likes)
}

// DetailRoute 详情页路由；评论与帖子共用 ID 空间，评论也能作为详情页打开，路由里带上 p_/c_ 前缀
func DetailRoute(id ident.NodeID) string {
	if _, ok := id.Numeric(); !ok {
		return ""
	}
	return "/posts/" + id.String()
}

// ParseDetailID 解析详情页参数：p_<n> / c_<n>，纯数字按帖子处理
func ParseDetailID(s string) (ident.NodeID, error) {
	if n, ok := utils.ParseID(s); ok {
		return ident.Post(n), nil
	}
	id, err := ident.Parse(s)
	if err != nil || id.IsTemp() {
		return ident.NodeID{}, models.NewValidationError("invalid post id " + s)
	}
	return id, nil
}

// validationError turns validator output into a VALIDATION AppError.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return models.NewValidationError(fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
	}
	return models.NewValidationError(err.Error())
}
