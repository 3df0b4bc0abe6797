package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/xhad/duo/internal/types"
	cfgPkg "github.com/xhad/duo/pkg/config"
	"github.com/xhad/duo/pkg/llm"
	"github.com/xhad/duo/pkg/logging"
	"github.com/xhad/duo/pkg/store"
	"github.com/xhad/duo/server"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	var configPath, port string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&port, "port", "", "Port to listen on (overrides config and PORT)")
	flag.Parse()

	cfg, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if port != "" {
		cfg.Server.Port = port
	}

	if errs := cfg.ValidateServer(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e)
		}
		os.Exit(1)
	}

	logger := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Console: true,
	})
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *cfgPkg.Config, logger *zap.Logger) error {
	gemini, err := llm.NewGemini(ctx, llm.GeminiConfig{
		APIKey:         cfg.LLM.APIKey,
		Model:          cfg.LLM.Model,
		Temperature:    cfg.LLM.Temperature,
		SystemTemplate: cfg.LLM.SystemTemplate,
		PollInterval:   cfg.LLM.PollInterval,
		PollAttempts:   cfg.LLM.PollAttempts,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Gemini: %w", err)
	}

	ledger, err := openLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer ledger.Close()

	gin.SetMode(gin.ReleaseMode)

	srv, err := server.NewWithConfig(server.ServerConfig{
		MaxUploadBytes: cfg.MaxUploadBytes(),
		TempDir:        cfg.Server.TempDir,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		ReuseWindow:    cfg.Database.ReuseWindow,
	}, gemini, ledger, logger)
	if err != nil {
		return err
	}

	return srv.Start(ctx, ":"+cfg.Server.Port)
}

func openLedger(ctx context.Context, cfg *cfgPkg.Config, logger *zap.Logger) (types.Ledger, error) {
	if cfg.Database.URL == "" {
		logger.Info("no database configured, using in-memory upload ledger")
		return store.NewMemory(), nil
	}

	pg, err := store.NewPostgres(ctx, store.PostgresConfig{
		ConnString: cfg.Database.URL,
		TableName:  cfg.Database.TableName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize upload ledger: %w", err)
	}
	return pg, nil
}
