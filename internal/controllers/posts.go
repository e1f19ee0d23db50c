package controllers

import (
	"context"
	"strings"
	"sync"

	"carelink/internal/ident"
	"carelink/internal/models"
	"carelink/internal/tree"
)

// PostsController 帖子流页面：评论只展开一层，更深的通过 ViewMore 跳到详情页
type PostsController struct {
	page
	mu       sync.Mutex // 保护 category 和 vocab
	category string
	vocab    []models.Category
}

func NewPostsController(api Backend, env Env, category string) *PostsController {
	return &PostsController{
		page:     newPage(api, env, 1),
		category: strings.TrimSpace(category),
	}
}

// Category returns the canonical category filter, empty for the full feed.
func (c *PostsController) Category() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.category
}

// Load fetches the feed. A category filter is checked against the
// server's vocabulary first; an unknown category fails without retry.
func (c *PostsController) Load(ctx context.Context) error {
	c.status.loading()
	if err := c.load(ctx); err != nil {
		c.status.fail(err)
		return err
	}
	c.status.ready()
	return nil
}

// Retry is Load after a failed fetch.
func (c *PostsController) Retry(ctx context.Context) error {
	return c.Load(ctx)
}

func (c *PostsController) load(ctx context.Context) error {
	category := c.Category()
	if category != "" {
		vocab, err := c.vocabulary(ctx)
		if err != nil {
			return err
		}
		canonical, ok := models.MatchCategory(vocab, category)
		if !ok {
			return models.NewValidationError("unknown category " + category)
		}
		c.mu.Lock()
		c.category = canonical
		c.mu.Unlock()
		category = canonical
	}

	recs, err := c.api.Posts(ctx, category)
	if err != nil {
		return err
	}
	nodes, err := c.mapAll(ctx, recs)
	if err != nil {
		return err
	}
	c.store.Set(nodes)
	return nil
}

// vocabulary 词表只拉取一次；并发的首次加载可能各拉一次，结果相同
func (c *PostsController) vocabulary(ctx context.Context) ([]models.Category, error) {
	c.mu.Lock()
	vocab := c.vocab
	c.mu.Unlock()
	if vocab != nil {
		return vocab, nil
	}
	vocab, err := c.api.Categories(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.vocab == nil {
		c.vocab = vocab
	}
	vocab = c.vocab
	c.mu.Unlock()
	return vocab, nil
}

// Categories returns the controlled vocabulary for the post form.
func (c *PostsController) Categories(ctx context.Context) ([]models.Category, error) {
	return c.vocabulary(ctx)
}

// ViewMore returns the detail route of a post or comment whose replies are
// not expanded here.
func (c *PostsController) ViewMore(id ident.NodeID) string {
	return DetailRoute(id)
}

// CreatePost 发帖。分类必须在词表里；成功后插到列表最前面
func (c *PostsController) CreatePost(ctx context.Context, message, category string) (tree.Node, error) {
	in := models.NewPost{Message: strings.TrimSpace(message), Category: strings.TrimSpace(category)}
	if err := validate.Struct(in); err != nil {
		err = validationError(err)
		c.toasts.Error(err)
		return tree.Node{}, err
	}
	if in.Category != "" {
		vocab, err := c.vocabulary(ctx)
		if err != nil {
			c.toasts.Error(err)
			return tree.Node{}, err
		}
		canonical, ok := models.MatchCategory(vocab, in.Category)
		if !ok {
			err := models.NewValidationError("unknown category " + in.Category)
			c.toasts.Error(err)
			return tree.Node{}, err
		}
		in.Category = canonical
	}

	rec, err := c.api.CreatePost(ctx, in)
	if err != nil {
		c.toasts.Error(err)
		return tree.Node{}, err
	}
	if rec.ID <= 0 {
		// 服务端没有返回记录，重新拉取列表
		if err := c.load(ctx); err != nil {
			c.toasts.Error(err)
			return tree.Node{}, err
		}
		c.toasts.Push(ToastSuccess, "Post published")
		return tree.Node{}, nil
	}
	if rec.AuthorID == 0 {
		rec.AuthorID = models.UserID(c.env.Viewer.ID)
	}
	if rec.Message == "" {
		rec.Message = in.Message
	}
	if rec.Category == "" {
		rec.Category = in.Category
	}
	mapped, err := c.mapAll(ctx, []models.Post{rec})
	if err != nil {
		return tree.Node{}, err
	}
	n := mapped[0]
	// 分类过滤时，不属于该分类的新帖不进当前列表
	if filter := c.Category(); filter == "" || strings.EqualFold(n.Category, filter) {
		_, _ = c.store.Apply(func(nodes []tree.Node) ([]tree.Node, error) {
			return append([]tree.Node{n}, nodes...), nil
		})
	}
	c.toasts.Push(ToastSuccess, "Post published")
	return n, nil
}
