package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"carelink/internal/config"
	"carelink/internal/db"
	"carelink/internal/observability"
	"carelink/internal/prefs"
	"carelink/internal/services"
	"carelink/internal/session"
	"carelink/internal/storage"

	"github.com/spf13/cobra"
)

// cliSession 终端里只有一个会话，令牌按这个前缀存放
const cliSession = "cli"

var ws *session.Workspace

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if apiURL != "" {
			cfg.APIBaseURL = apiURL
		}
		level := "warn"
		if verbose {
			level = "debug"
		}
		observability.GlobalLogger = observability.New(os.Stderr, level, "text")
		slog.SetDefault(observability.GlobalLogger.Logger)

		ws, err = openWorkspace(cmd.Context(), cfg)
		return err
	}
}

// openWorkspace 记住我的令牌加密存进本地数据库；不记住的只活在这个进程里
func openWorkspace(ctx context.Context, cfg *config.Config) (*session.Workspace, error) {
	gormDB, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	durable, err := storage.NewSealed(storage.NewGormKV(gormDB, "vault:"), []byte(cfg.SessionKey))
	if err != nil {
		return nil, err
	}
	mem, err := storage.NewMemoryKV(16, 0)
	if err != nil {
		return nil, err
	}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	deps := &session.Deps{
		APIBaseURL: cfg.APIBaseURL,
		HTTPClient: httpClient,
		Durable:    durable,
		Session:    mem,
		Recents:    prefs.New(gormDB),
		ToastTTL:   cfg.ToastTTL,
	}
	if cfg.LLMToken != "" {
		deps.Assistant = services.NewAssistantService(cfg.LLMBaseURL, cfg.LLMToken, cfg.LLMModel, httpClient)
	}
	reg, err := session.NewRegistry(deps, 1)
	if err != nil {
		return nil, err
	}
	return reg.Get(ctx, cliSession)
}
