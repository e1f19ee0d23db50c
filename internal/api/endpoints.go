package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"carelink/internal/models"
)

// ---------- 认证 ----------

func (c *Client) Login(ctx context.Context, cred models.Credentials) (models.TokenPair, error) {
	var out models.TokenPair
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, cred, &out, false)
	if err == nil && out.AccessToken == "" {
		err = models.NewInternalError(fmt.Errorf("login response carried no access token"))
	}
	return out, err
}

func (c *Client) Register(ctx context.Context, reg models.Registration) (models.TokenPair, error) {
	var out models.TokenPair
	err := c.do(ctx, http.MethodPost, "/auth/register", nil, reg, &out, false)
	return out, err
}

// RefreshToken 用 refresh token 换新的一对 token。不走 Bearer，也不会触发再次刷新
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	var out models.TokenPair
	body := map[string]string{"refreshToken": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, body, &out, false); err != nil {
		return models.TokenPair{}, err
	}
	if out.AccessToken == "" {
		return models.TokenPair{}, models.NewUnauthorizedError("refresh returned no access token")
	}
	if out.RefreshToken == "" {
		out.RefreshToken = refreshToken
	}
	return out, nil
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (models.User, error) {
	var out models.User
	err := c.do(ctx, http.MethodGet, "/users/me", nil, nil, &out, true)
	return out, err
}

// ---------- 帖子 ----------

// Posts lists the feed, optionally filtered by category.
func (c *Client) Posts(ctx context.Context, category string) ([]models.Post, error) {
	var q url.Values
	if category = strings.TrimSpace(category); category != "" {
		q = url.Values{"category": {category}}
	}
	var out []models.Post
	err := c.do(ctx, http.MethodGet, "/posts", q, nil, &out, true)
	return out, err
}

func (c *Client) Post(ctx context.Context, id int64) (models.Post, error) {
	var out models.Post
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/posts/%d", id), nil, nil, &out, true)
	return out, err
}

func (c *Client) PostsByUser(ctx context.Context, userID int64) ([]models.Post, error) {
	var out []models.Post
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/posts/user/%d", userID), nil, nil, &out, true)
	return out, err
}

func (c *Client) CreatePost(ctx context.Context, p models.NewPost) (models.Post, error) {
	var out models.Post
	err := c.do(ctx, http.MethodPost, "/posts", nil, p, &out, true)
	return out, err
}

func (c *Client) DeletePost(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/posts/%d", id), nil, nil, nil, true)
}

// ---------- 评论 ----------

// AddComment 返回服务端分配的评论 ID
func (c *Client) AddComment(ctx context.Context, parentID int64, message string) (int64, error) {
	var out models.Created
	body := models.NewComment{ParentID: parentID, Message: message}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/posts/%d/comments", parentID), nil, body, &out, true); err != nil {
		return 0, err
	}
	return out.ID, nil
}

func (c *Client) DeleteComment(ctx context.Context, commentID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/comments/%d", commentID), nil, nil, nil, true)
}

// ---------- 点赞 / 点踩 ----------

func (c *Client) AddReaction(ctx context.Context, targetID int64, isLike bool) (models.Reaction, error) {
	var out models.Reaction
	err := c.do(ctx, http.MethodPost, "/reactions", nil, models.NewReaction{PostID: targetID, IsLike: isLike}, &out, true)
	return out, err
}

func (c *Client) CancelReaction(ctx context.Context, reactionID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/reactions/%d", reactionID), nil, nil, nil, true)
}

// Reactors lists the users who liked (or disliked) a post or comment.
func (c *Client) Reactors(ctx context.Context, postID int64, likes bool) ([]models.User, error) {
	kind := "dislikes"
	if likes {
		kind = "likes"
	}
	var out []models.User
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/reactions/%d/%s", postID, kind), nil, nil, &out, true)
	return out, err
}

// ---------- 分类 / 用户 ----------

func (c *Client) Categories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	err := c.do(ctx, http.MethodGet, "/categories", nil, nil, &out, true)
	return out, err
}

func (c *Client) User(ctx context.Context, id int64) (models.User, error) {
	var out models.User
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d", id), nil, nil, &out, true)
	return out, err
}

func (c *Client) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	var out []models.User
	err := c.do(ctx, http.MethodGet, "/users/search", url.Values{"q": {query}}, nil, &out, true)
	return out, err
}

// ---------- 档案子记录 ----------

// List fetches one kind of profile sub-record for a user.
func List[T any](ctx context.Context, c *Client, userID int64, kind models.EntityKind) ([]T, error) {
	if !kind.Valid() {
		return nil, models.NewValidationError(fmt.Sprintf("unknown profile section %q", kind))
	}
	var out []T
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d/%s", userID, kind), nil, nil, &out, true)
	return out, err
}

// CreateEntity posts a new sub-record and returns its id.
func (c *Client) CreateEntity(ctx context.Context, kind models.EntityKind, body any) (int64, error) {
	if !kind.Valid() {
		return 0, models.NewValidationError(fmt.Sprintf("unknown profile section %q", kind))
	}
	var out models.Created
	if err := c.do(ctx, http.MethodPost, "/"+string(kind), nil, body, &out, true); err != nil {
		return 0, err
	}
	return out.ID, nil
}

func (c *Client) DeleteEntity(ctx context.Context, kind models.EntityKind, id int64) error {
	if !kind.Valid() {
		return models.NewValidationError(fmt.Sprintf("unknown profile section %q", kind))
	}
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/%s/%d", kind, id), nil, nil, nil, true)
}

// Section 读取一种子记录并填入 p 对应的字段
func (c *Client) Section(ctx context.Context, userID int64, kind models.EntityKind, p *models.Profile) error {
	var err error
	switch kind {
	case models.KindDisease:
		p.Diseases, err = List[models.Disease](ctx, c, userID, kind)
	case models.KindSpecialization:
		p.Specializations, err = List[models.Specialization](ctx, c, userID, kind)
	case models.KindAddress:
		p.Addresses, err = List[models.WorkAddress](ctx, c, userID, kind)
	case models.KindContact:
		p.Contacts, err = List[models.Contact](ctx, c, userID, kind)
	case models.KindAnnouncement:
		p.Announcements, err = List[models.Announcement](ctx, c, userID, kind)
	default:
		err = models.NewValidationError(fmt.Sprintf("unknown profile section %q", kind))
	}
	return err
}
