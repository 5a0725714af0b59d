package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/genes"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annotation"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/batch"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/interpreter"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/query"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/stream"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "configs/example.yaml", "path to config file")
	queryPath := flag.String("query", "", "path to the query specification applied to every candidate")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup("svworker", cfg.Logging.Level, cfg.Logging.Format)
	if *queryPath == "" {
		slog.Error("-query is required")
		os.Exit(1)
	}
	spec, err := query.Load(*queryPath)
	if err != nil {
		slog.Error("failed to load query", "path", *queryPath, "error", err)
		os.Exit(1)
	}

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

	interp, err := interpreter.New(spec, interpreter.Options{
		Background: bundles.Background,
		Annotator:  annot,
		Metrics:    m,
	})
	if err != nil {
		slog.Error("invalid query", "error", err)
		os.Exit(1)
	}
	model, err := genes.ParseModel(cfg.Annotation.GeneModel)
	if err != nil {
		slog.Error("invalid gene model", "error", err)
		os.Exit(1)
	}
	runner := batch.New(interp, batch.Options{
		Concurrency:  1,
		Consequences: annot,
		Genes:        bundles.Genes,
		GeneModel:    model,
		Metrics:      m,
	})

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.Verdicts)
	defer producer.Close()
	handler := stream.NewHandler(runner, producer)
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.Candidates, handler.Handle)

	slog.Info("svannot worker started",
		"candidates", cfg.Kafka.Topics.Candidates,
		"verdicts", cfg.Kafka.Topics.Verdicts,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := consumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
		os.Exit(1)
	}
	slog.Info("svannot worker stopped")
}
