package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
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
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/svannot/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "configs/example.yaml", "path to config file")
	queryPath := flag.String("query", "", "path to the query specification (YAML or JSON)")
	inPath := flag.String("in", "-", "candidate variants as JSON lines, - for stdin")
	outPath := flag.String("out", "-", "destination of passing variants, - for stdout")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(2)
	}
	logger.Setup("svquery", cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *queryPath, *inPath, *outPath); err != nil {
		slog.Error("svquery failed", "error", err)
		os.Exit(apperrors.ExitCode(err))
	}
}

func run(ctx context.Context, cfg *config.Config, queryPath, inPath, outPath string) error {
	if queryPath == "" {
		return fmt.Errorf("%w: -query is required", apperrors.ErrConfig)
	}
	spec, err := query.Load(queryPath)
	if err != nil {
		return err
	}

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	bundles, err := annodb.LoadConfig(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer bundles.Close()

	annot, err := annotation.Setup(ctx, cfg, bundles.ClinvarSV, m)
	if err != nil {
		return err
	}
	defer annot.Close()

	interp, err := interpreter.New(spec, interpreter.Options{
		Background: bundles.Background,
		Annotator:  annot,
		Metrics:    m,
	})
	if err != nil {
		return err
	}
	model, err := genes.ParseModel(cfg.Annotation.GeneModel)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrConfig, err)
	}

	in, closeIn, err := openInput(inPath)
	if err != nil {
		return err
	}
	defer closeIn()
	out, closeOut, err := openOutput(outPath)
	if err != nil {
		return err
	}

	runner := batch.New(interp, batch.Options{
		Concurrency:  cfg.Worker.Concurrency,
		ChunkSize:    cfg.Worker.ChunkSize,
		Consequences: annot,
		Genes:        bundles.Genes,
		GeneModel:    model,
		Metrics:      m,
	})
	stats, runErr := runner.Run(ctx, in, out)
	if err := closeOut(); err != nil && runErr == nil {
		runErr = fmt.Errorf("closing %s: %w", outPath, err)
	}
	_ = json.NewEncoder(os.Stderr).Encode(stats)
	return runErr
}

func openInput(path string) (io.Reader, func() error, error) {
	if path == "-" {
		return os.Stdin, func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening candidates: %w", err)
	}
	return f, f.Close, nil
}

func openOutput(path string) (io.Writer, func() error, error) {
	if path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output: %w", err)
	}
	return f, f.Close, nil
}
