package main

import (
	"context"
	stderrors "errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"unhunk/internal/api"
	"unhunk/internal/config"
	"unhunk/internal/journal"
	"unhunk/internal/logging"
	"unhunk/internal/middleware"
	"unhunk/internal/workspace"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "config file (default config/config.$UNHUNK_ENV.json)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !stderrors.As(err, &pathErr) {
			log.Fatal("failed to load .env: ", err)
		}
	}

	// Load configuration
	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	// Initialize logger
	logger, err := logging.NewLogger(cfg.LogLevel, cfg.Environment == "development")
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync()

	opts := workspace.Options{
		Backend:      cfg.Git.Backend,
		GitBinary:    cfg.Git.Binary,
		ContextLines: cfg.Git.ContextLines,
	}
	if cfg.Journal.Enabled {
		registry := journal.NewRegistry(journal.Options{
			CacheSize: cfg.Journal.CacheSize,
			Logger:    logger.Logger,
		})
		defer func() {
			if err := registry.Close(); err != nil {
				logger.Error("closing journals", zap.Error(err))
			}
		}()
		opts.Journals = registry
	}

	mux := http.NewServeMux()
	api.NewHandler(opts, logger).Register(mux)

	// Recover sits innermost so panics are logged with the request id
	handler := middleware.Chain(
		mux,
		middleware.Recover(logger),
		middleware.Logger(logger),
		middleware.RequestID,
	)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server",
			zap.String("address", srv.Addr),
			zap.String("backend", string(cfg.Git.Backend)),
			zap.Bool("journal", cfg.Journal.Enabled),
		)
		if err := srv.ListenAndServe(); !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server failed", zap.Error(err))
	}
}
