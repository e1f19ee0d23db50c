package router

import (
	"net/http"

	"carelink/internal/handlers"
	"carelink/internal/middleware"
	"carelink/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options are the pieces RegisterRoutes needs from main.
type Options struct {
	Registry *session.Registry
	// Sessions is the gin-contrib/sessions middleware holding the cookie store.
	Sessions gin.HandlerFunc
	// Shell serves everything else: shell assets, navigations and the
	// proxied REST backend, under the offline policy.
	Shell  http.Handler
	Secure bool
}

func RegisterRoutes(r *gin.Engine, opts Options) {
	authHandler := handlers.NewAuthHandler(opts.Registry, opts.Secure)
	storyHandler := handlers.NewStoryHandler()
	userHandler := handlers.NewUserHandler()
	nodeHandler := handlers.NewNodeHandler()
	notificationHandler := handlers.NewNotificationHandler()
	assistantHandler := handlers.NewAssistantHandler()

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }) // 健康检查
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))                                         // Prometheus 指标

	app := r.Group("/app")
	app.Use(opts.Sessions, middleware.Session(), handlers.LoadWorkspace(opts.Registry))

	// 会话 (Session)
	app.GET("/session", authHandler.Show)               // 当前会话
	app.POST("/session/login", authHandler.Login)       // 登录
	app.POST("/session/register", authHandler.Register) // 注册
	app.DELETE("/session", authHandler.Logout)          // 退出登录

	// 受保护路由 (Protected Routes)
	authorized := app.Group("")
	authorized.Use(middleware.AuthRequired(handlers.SignedIn))
	{
		authorized.GET("/categories", nodeHandler.ListCategories) // 分类词表
		authorized.POST("/feed/posts", storyHandler.Create)       // 发帖

		authorized.GET("/search", userHandler.Search)        // 搜索用户
		authorized.GET("/search/recent", userHandler.Recent) // 最近搜索 / 最近浏览

		authorized.GET("/assistant", assistantHandler.History)  // 助手对话记录
		authorized.POST("/assistant", assistantHandler.Ask)     // 向助手提问
		authorized.DELETE("/assistant", assistantHandler.Reset) // 清空对话
	}

	// 树形页面：帖子流、帖子详情、用户档案共用同一组节点操作
	feed := authorized.Group("/feed")
	feed.Use(storyHandler.FeedPage)
	registerTreePage(feed, storyHandler, notificationHandler)

	detail := authorized.Group("/posts/:pid")
	detail.Use(storyHandler.DetailPage)
	registerTreePage(detail, storyHandler, notificationHandler)

	profile := authorized.Group("/users/:uid")
	profile.Use(userHandler.ProfilePage)
	registerTreePage(profile, storyHandler, notificationHandler)
	{
		profile.POST("/entities/:kind", userHandler.AddEntity)           // 新增档案子记录
		profile.DELETE("/entities/:kind/:eid", userHandler.DeleteEntity) // 删除档案子记录
	}

	// 其余请求交给离线网关（壳资源、页面导航、后端 API 代理）
	r.NoRoute(gin.WrapH(opts.Shell))
}

func registerTreePage(g *gin.RouterGroup, story *handlers.StoryHandler, notes *handlers.NotificationHandler) {
	g.GET("", story.Show)                               // 页面状态（首次访问时加载）
	g.POST("/retry", story.Retry)                       // 加载失败后重试
	g.POST("/nodes/:nid/like", story.Like)              // 点赞 / 取消点赞
	g.POST("/nodes/:nid/dislike", story.Dislike)        // 点踩 / 取消点踩
	g.POST("/nodes/:nid/comments", story.CreateComment) // 回复
	g.DELETE("/nodes/:nid", story.Delete)               // 删除帖子或评论
	g.GET("/nodes/:nid/likes", story.Likers)            // 点赞的用户
	g.GET("/nodes/:nid/dislikes", story.Dislikers)      // 点踩的用户
	g.GET("/toasts", notes.List)                        // 当前通知
	g.DELETE("/toasts/:tid", notes.Dismiss)             // 关闭通知
}
