package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/genes"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annotation"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/server"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "configs/example.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup("svserver", cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting svannot server", "port", cfg.Server.Port, "release", cfg.Databases.Release)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	bundles, err := annodb.LoadConfig(ctx, cfg, m)
	if err != nil {
		slog.Error("failed to load databases", "error", err)
		os.Exit(1)
	}
	defer bundles.Close()

	annot, err := annotation.Setup(ctx, cfg, bundles.ClinvarSV, m)
	if err != nil {
		slog.Error("failed to set up annotation", "error", err)
		os.Exit(1)
	}
	defer annot.Close()

	model, err := genes.ParseModel(cfg.Annotation.GeneModel)
	if err != nil {
		slog.Error("invalid gene model", "error", err)
		os.Exit(1)
	}

	checker := health.NewChecker()
	bundles.RegisterHealth(checker)
	annot.RegisterHealth(checker)

	srv := server.New(bundles, annot, server.Options{
		GeneModel:   model,
		Concurrency: cfg.Worker.Concurrency,
		Timeout:     cfg.Server.WriteTimeout,
		Metrics:     m,
	})
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Handler(checker),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("svannot server listening", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("svannot server stopped")
}
