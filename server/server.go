package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/xhad/duo/internal/types"
	"github.com/xhad/duo/pkg/processor"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type ServerConfig struct {
	MaxUploadBytes int64
	TempDir        string
	AllowedOrigins []string
	ReuseWindow    time.Duration // 0 or less disables reuse
}

// Server exposes upload and chat endpoints over HTTP and a websocket.
type Server struct {
	config    ServerConfig
	router    *gin.Engine
	indexer   types.Indexer
	ledger    types.Ledger
	processor processor.Processor
	logger    *zap.Logger
}

func NewWithConfig(config ServerConfig, indexer types.Indexer, ledger types.Ledger, logger *zap.Logger) (*Server, error) {
	if indexer == nil {
		return nil, fmt.Errorf("indexer is required")
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 50 * 1024 * 1024
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"*"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(cors.New(corsConfig(config.AllowedOrigins)))

	s := &Server{
		config:  config,
		router:  router,
		indexer: indexer,
		ledger:  ledger,
		processor: processor.NewWithConfig(processor.ProcessorConfig{
			TempDir: config.TempDir,
			MaxSize: config.MaxUploadBytes,
		}),
		logger: logger,
	}

	s.setupRoutes()
	return s, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length", "Content-Type"},
		MaxAge:        12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.home)
	s.router.GET("/health", s.health)
	s.router.POST("/upload-dual", s.uploadDual)
	s.router.POST("/chat-dual", s.chatDual)
	s.router.GET("/ws", s.handleWebSocket)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.logger.Info("Starting server", zap.String("address", addr))

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
