package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carelink/internal/config"
	"carelink/internal/db"
	"carelink/internal/middleware"
	"carelink/internal/observability"
	"carelink/internal/offline"
	"carelink/internal/prefs"
	"carelink/internal/router"
	"carelink/internal/services"
	"carelink/internal/session"
	"carelink/internal/storage"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const apiPrefix = "/api"

func main() {
	// Load configuration (.env, carelink.yml, environment)
	cfg, err := config.Load()
	if err != nil {
		observability.GlobalLogger.Error("load config failed", "error", err)
		os.Exit(1)
	}
	observability.Init(cfg.LogLevel, cfg.LogFormat)
	log := observability.GlobalLogger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	gormDB, err := db.Init(cfg.DatabaseURL)
	if err != nil {
		log.Error("open database failed", "error", err)
		os.Exit(1)
	}

	// 令牌存储：记住我 → 数据库（加密），否则 → 会话存储（redis 或进程内）
	durable, err := storage.NewSealed(storage.NewGormKV(gormDB, "vault:"), []byte(cfg.SessionKey))
	if err != nil {
		log.Error("init token vault failed", "error", err)
		os.Exit(1)
	}
	var sessionKV storage.KV
	if cfg.RedisURL != "" {
		rdb, err := storage.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Error("connect redis failed", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		sessionKV = storage.NewRedisKV(rdb, "carelink:session:", cfg.SessionTTL)
	} else {
		mem, err := storage.NewMemoryKV(10000, cfg.SessionTTL)
		if err != nil {
			log.Error("init session store failed", "error", err)
			os.Exit(1)
		}
		sessionKV = mem
		log.Info("REDIS_URL not set, session tokens are kept in memory")
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	deps := &session.Deps{
		APIBaseURL: cfg.APIBaseURL,
		HTTPClient: httpClient,
		Durable:    durable,
		Session:    sessionKV,
		Recents:    prefs.New(gormDB),
		ToastTTL:   cfg.ToastTTL,
		IdleTTL:    cfg.SessionTTL,
	}
	if cfg.LLMToken != "" {
		deps.Assistant = services.NewAssistantService(cfg.LLMBaseURL, cfg.LLMToken, cfg.LLMModel, httpClient)
	} else {
		log.Info("LLM_TOKEN not set, assistant disabled")
	}
	registry, err := session.NewRegistry(deps, 4096)
	if err != nil {
		log.Error("init session registry failed", "error", err)
		os.Exit(1)
	}

	// Offline gateway in front of the shell and the REST backend
	gateway, err := newGateway(cfg)
	if err != nil {
		log.Error("init offline gateway failed", "error", err)
		os.Exit(1)
	}
	go func() {
		n, err := gateway.Precache(ctx)
		if err != nil {
			log.Warn("precache shell failed", "error", err)
			return
		}
		log.Info("shell precached", "assets", n)
	}()

	// Initialize Gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	// Setup Sessions
	store := cookie.NewStore([]byte(cfg.SessionKey))
	store.Options(sessions.Options{Path: "/", HttpOnly: true, Secure: cfg.IsProduction(), SameSite: http.SameSiteLaxMode})

	router.RegisterRoutes(r, router.Options{
		Registry: registry,
		Sessions: sessions.Sessions("carelink_session", store),
		Shell:    gateway,
		Secure:   cfg.IsProduction(),
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Info("carelink gateway starting", "port", cfg.Port, "api", cfg.APIBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

func newGateway(cfg *config.Config) (*offline.Gateway, error) {
	shell, err := offline.ShellOrigin(cfg.ShellDir)
	if err != nil {
		observability.GlobalLogger.Warn("shell origin unavailable, serving API only", "error", err)
		shell = http.NotFoundHandler()
	}
	backend, err := url.Parse(cfg.APIBaseURL)
	if err != nil {
		return nil, err
	}
	cache, err := offline.NewCache(512)
	if err != nil {
		return nil, err
	}
	policy := offline.NewPolicy(apiPrefix, cfg.Assets())
	return offline.NewGateway(policy, cache, shell, offline.NewProxy(backend, apiPrefix)), nil
}
