package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annotation"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/convert"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/svannot/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/svannot/pkg/redis"
)

func main() {
	family := flag.String("family", "", "record family: background, pathogenic, clinvar-sv, gene-region, tad, xlink")
	inPath := flag.String("in", "", "legacy text input (.bed, .tsv, optionally .gz)")
	outPath := flag.String("out", "", "binary database output path")
	contigs := flag.String("contigs", "", "comma-separated extra contigs appended to the catalog")
	table := flag.String("table", "", "load annotations into postgres instead: clinvar or consequences")
	configPath := flag.String("config", "configs/example.yaml", "config file, used with -table")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger.Setup("dbconvert", *logLevel, "text")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	if *table != "" {
		err = importTable(ctx, *configPath, *table, *inPath)
	} else {
		err = toBinary(*family, *inPath, *outPath, *contigs)
	}
	if err != nil {
		slog.Error("dbconvert failed", "error", err)
		os.Exit(apperrors.ExitCode(err))
	}
}

func toBinary(familyLabel, in, out, contigs string) error {
	if in == "" || out == "" {
		return fmt.Errorf("%w: -in and -out are required", apperrors.ErrConfig)
	}
	family, err := convert.ParseFamily(familyLabel)
	if err != nil {
		return err
	}
	var extra []string
	if contigs != "" {
		extra = strings.Split(contigs, ",")
	}
	c, err := convert.New(family, genome.NewCatalog(extra...))
	if err != nil {
		return err
	}
	stats, err := c.ToBinary(in, out)
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(stats)
}

func importTable(ctx context.Context, configPath, table, in string) error {
	if in == "" {
		return fmt.Errorf("%w: -in is required", apperrors.ErrConfig)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	release, err := genome.ParseRelease(cfg.Databases.Release)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrConfig, err)
	}

	pg, err := postgres.New(cfg.Postgres)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrUnavailable, err)
	}
	defer pg.Close()
	store := annotation.NewPGStore(pg, release)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	var skipped int
	switch table {
	case "clinvar":
		var rows []annotation.ClinVarRow
		rows, skipped, err = convert.ReadClinVar(in)
		if err == nil {
			err = store.ReplaceClinVar(ctx, rows)
		}
	case "consequences":
		var rows []annotation.ConsequenceRow
		rows, skipped, err = convert.ReadConsequences(in)
		if err == nil {
			err = store.ReplaceConsequences(ctx, rows)
		}
	default:
		return fmt.Errorf("%w: unknown table %q", apperrors.ErrConfig, table)
	}
	if err != nil {
		return err
	}
	slog.Info("annotations imported", "table", table, "release", release.String(), "skipped", skipped)

	if cfg.Annotation.CacheEnabled {
		rc, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrUnavailable, err)
		}
		defer rc.Close()
		cache := annotation.NewCache(store, rc, release, cfg.Redis.CacheTTL, nil)
		if err := cache.Invalidate(ctx); err != nil {
			return err
		}
	}
	return nil
}
