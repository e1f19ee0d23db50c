package handlers

import (
	"net/http"
	"strings"

	"carelink/internal/controllers"
	"carelink/internal/models"
	"carelink/internal/tree"

	"github.com/gin-gonic/gin"
)

const pageKey = "page"

// pageEntry 当前路由对应的页面控制器，以及页面特有的附加数据
type pageEntry struct {
	Page
	extra func() any
}

func currentPage(c *gin.Context) pageEntry {
	return c.MustGet(pageKey).(pageEntry)
}

// StoryHandler serves the feed and post detail pages plus the node actions
// shared by every tree page.
type StoryHandler struct{}

func NewStoryHandler() *StoryHandler {
	return &StoryHandler{}
}

// FeedPage resolves the feed controller for ?category=.
func (h *StoryHandler) FeedPage(c *gin.Context) {
	feed, err := current(c).Feed(c.Request.Context(), strings.TrimSpace(c.Query("category")))
	if err != nil {
		RenderError(c, err)
		c.Abort()
		return
	}
	c.Set(pageKey, pageEntry{Page: feed, extra: func() any {
		return gin.H{"category": feed.Category()}
	}})
	c.Next()
}

// DetailPage resolves the detail controller for :pid (p_<n>, c_<n> or a bare post id).
func (h *StoryHandler) DetailPage(c *gin.Context) {
	pid, err := controllers.ParseDetailID(c.Param("pid"))
	if err != nil {
		RenderError(c, err)
		c.Abort()
		return
	}
	detail, err := current(c).Detail(c.Request.Context(), pid)
	if err != nil {
		RenderError(c, err)
		c.Abort()
		return
	}
	c.Set(pageKey, pageEntry{Page: detail, extra: func() any {
		post, found := detail.Post()
		if !found {
			return nil
		}
		return gin.H{"post": post.ID}
	}})
	c.Next()
}

// Show 第一次访问时加载，之后返回内存中的状态
func (h *StoryHandler) Show(c *gin.Context) {
	p := currentPage(c)
	var err error
	if p.Status().Phase == controllers.PhaseIdle || c.Query("reload") == "1" {
		err = p.Load(c.Request.Context())
	}
	RenderPage(c, p, err, p.extra())
}

func (h *StoryHandler) Retry(c *gin.Context) {
	p := currentPage(c)
	err := p.Retry(c.Request.Context())
	RenderPage(c, p, err, p.extra())
}

func (h *StoryHandler) Like(c *gin.Context)    { h.vote(c, tree.Like) }
func (h *StoryHandler) Dislike(c *gin.Context) { h.vote(c, tree.Dislike) }

func (h *StoryHandler) vote(c *gin.Context, delta tree.Vote) {
	id, ok := paramNode(c)
	if !ok {
		return
	}
	p := currentPage(c)
	_, err := p.Vote(c.Request.Context(), id, delta)
	RenderPage(c, p, err, p.extra())
}

type commentRequest struct {
	Message string `json:"message" validate:"required,max=5000"`
}

// CreateComment replies to :nid, which may be the post or any comment.
func (h *StoryHandler) CreateComment(c *gin.Context) {
	parent, ok := paramNode(c)
	if !ok {
		return
	}
	var in commentRequest
	if !bind(c, &in) {
		return
	}
	p := currentPage(c)
	id, err := p.AddComment(c.Request.Context(), parent, in.Message)
	if err == nil {
		c.Header("Location", id.String())
	}
	RenderPage(c, p, err, p.extra())
}

// Delete removes a post or a comment depending on the id tag.
func (h *StoryHandler) Delete(c *gin.Context) {
	id, ok := paramNode(c)
	if !ok {
		return
	}
	p := currentPage(c)
	var err error
	if id.IsPost() {
		err = p.DeletePost(c.Request.Context(), id)
	} else {
		err = p.DeleteComment(c.Request.Context(), id)
	}
	RenderPage(c, p, err, p.extra())
}

func (h *StoryHandler) Likers(c *gin.Context)    { h.reactors(c, true) }
func (h *StoryHandler) Dislikers(c *gin.Context) { h.reactors(c, false) }

func (h *StoryHandler) reactors(c *gin.Context, likes bool) {
	id, ok := paramNode(c)
	if !ok {
		return
	}
	users, err := currentPage(c).Reactors(c.Request.Context(), id, likes)
	if err != nil {
		RenderError(c, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	c.JSON(http.StatusOK, users)
}

type postRequest struct {
	Message  string `json:"message"`
	Category string `json:"category"`
}

// Create 在帖子流里发帖
func (h *StoryHandler) Create(c *gin.Context) {
	var in postRequest
	if !bind(c, &in) {
		return
	}
	feed, err := current(c).Feed(c.Request.Context(), strings.TrimSpace(c.Query("category")))
	if err != nil {
		RenderError(c, err)
		return
	}
	node, err := feed.CreatePost(c.Request.Context(), in.Message, in.Category)
	status := http.StatusCreated
	if err != nil {
		status = StatusFor(err)
		_ = c.Error(err)
	}
	c.JSON(status, pageJSON{
		Status: feed.Status(),
		Rows:   renderRows(feed),
		Toasts: feed.Toasts().Active(),
		Error:  errorBody(err),
		Extra:  gin.H{"category": feed.Category(), "created": node.ID},
	})
}
