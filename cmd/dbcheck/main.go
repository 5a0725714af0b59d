package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/svannot/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/example.yaml", "path to config file")
	write := flag.Bool("write-manifest", false, "rewrite the manifest from the current files instead of checking")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(2)
	}
	logger.Setup("dbcheck", cfg.Logging.Level, cfg.Logging.Format)
	paths, err := cfg.Databases.Selected()
	if err != nil {
		slog.Error("no databases selected", "error", err)
		os.Exit(2)
	}

	if *write {
		if err := annodb.WriteManifest(paths); err != nil {
			slog.Error("writing manifest failed", "error", err)
			os.Exit(apperrors.ExitCode(err))
		}
		slog.Info("manifest written", "path", paths.Manifest, "files", len(paths.Files()))
		return
	}

	if paths.Manifest == "" {
		slog.Warn("no manifest configured, checking file structure only")
	}
	problems, err := annodb.Check(paths)
	if err != nil {
		slog.Error("database check failed", "error", err)
		os.Exit(2)
	}
	if len(problems) > 0 {
		_ = json.NewEncoder(os.Stdout).Encode(problems)
		slog.Error("databases failed verification", "release", cfg.Databases.Release, "problems", len(problems))
		os.Exit(1)
	}
	slog.Info("databases verified", "release", cfg.Databases.Release, "files", len(paths.Files()))
}
