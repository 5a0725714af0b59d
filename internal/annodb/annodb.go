// Package annodb loads every annotation database of a genome release into
// read-only bundles shared by all evaluations of a session.
package annodb

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/background"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/clinvarsv"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/genes"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/pathogenic"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/tad"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/dbfile"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/svannot/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/metrics"
)

// Bundles holds every loaded database. All fields are read-only and safe for
// concurrent use until Close.
type Bundles struct {
	Catalog    *genome.Catalog
	Background *background.Bundle
	Pathogenic *pathogenic.Bundle
	Tads       *tad.Bundle
	ClinvarSV  *clinvarsv.Bundle
	Genes      *genes.Bundle
}

type Options struct {
	Catalog         *genome.Catalog
	Overlap         tad.Options
	VerifyChecksums bool
	Metrics         *metrics.Metrics
}

// LoadConfig loads the databases of the release selected in cfg.
func LoadConfig(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*Bundles, error) {
	paths, err := cfg.Databases.Selected()
	if err != nil {
		return nil, err
	}
	return Load(ctx, paths, Options{
		Catalog: genome.NewCatalog(cfg.Databases.ExtraContigs...),
		Overlap: tad.Options{
			BreakendSlack:  cfg.Overlap.BreakendSlack,
			InsertionSlack: cfg.Overlap.InsertionSlack,
		},
		VerifyChecksums: cfg.Databases.VerifyChecksums,
		Metrics:         m,
	})
}

// Load builds all bundles concurrently. If any bundle fails the ones already
// built are closed and the first error is returned.
func Load(ctx context.Context, paths config.ReleasePaths, opts Options) (*Bundles, error) {
	logger := slog.Default().With("component", "annodb")
	if opts.Catalog == nil {
		opts.Catalog = genome.DefaultCatalog
	}
	if opts.VerifyChecksums {
		if err := verify(paths.Manifest, logger); err != nil {
			return nil, err
		}
	}

	b := &Bundles{Catalog: opts.Catalog}
	g, ctx := errgroup.WithContext(ctx)
	run := func(name string, load func() (int, error)) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			n, err := load()
			if err != nil {
				return fmt.Errorf("loading %s: %w", name, err)
			}
			elapsed := time.Since(start)
			opts.Metrics.ObserveBundleLoad(name, elapsed, n)
			logger.Info("bundle loaded", "bundle", name, "records", n, "duration", elapsed)
			return nil
		})
	}

	run("background", func() (int, error) {
		bg, err := background.Load(map[background.Source]string{
			background.GnomadSV:        paths.Background.GnomadSv,
			background.DbVar:           paths.Background.Dbvar,
			background.DGV:             paths.Background.Dgv,
			background.DGVGoldStandard: paths.Background.DgvGs,
			background.ExAC:            paths.Background.Exac,
			background.G1K:             paths.Background.G1k,
		}, opts.Catalog, opts.Metrics)
		if err != nil {
			return 0, err
		}
		b.Background = bg
		n := 0
		for _, src := range background.Sources {
			n += bg.Len(src)
		}
		return n, nil
	})
	run("pathogenic", func() (int, error) {
		p, err := pathogenic.Load(paths.Pathogenic, opts.Catalog, opts.Metrics)
		if err != nil {
			return 0, err
		}
		b.Pathogenic = p
		return p.Len(), nil
	})
	run("tads", func() (int, error) {
		t, err := tad.Load(paths.Tads.Hesc, paths.Tads.Imr90, opts.Catalog, opts.Overlap, opts.Metrics)
		if err != nil {
			return 0, err
		}
		b.Tads = t
		return t.Len(tad.HESC) + t.Len(tad.IMR90), nil
	})
	run("clinvar_sv", func() (int, error) {
		c, err := clinvarsv.Load(paths.ClinvarSv, opts.Catalog, opts.Metrics)
		if err != nil {
			return 0, err
		}
		b.ClinvarSV = c
		return c.Len(), nil
	})
	run("genes", func() (int, error) {
		gn, err := genes.Load(paths.Genes.Refseq, paths.Genes.Ensembl, paths.Genes.Xlink, opts.Catalog, opts.Metrics)
		if err != nil {
			return 0, err
		}
		b.Genes = gn
		return gn.Len(genes.RefSeq) + gn.Len(genes.Ensembl), nil
	})

	if err := g.Wait(); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func verify(manifest string, logger *slog.Logger) error {
	if manifest == "" {
		logger.Warn("checksum verification requested but no manifest configured")
		return nil
	}
	bad, err := dbfile.VerifyManifest(manifest)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrConfig, err)
	}
	if len(bad) > 0 {
		msgs := make([]string, len(bad))
		for i, m := range bad {
			msgs[i] = m.String()
		}
		return fmt.Errorf("%w: manifest %s: %s", apperrors.ErrCorruptDatabase, manifest, strings.Join(msgs, "; "))
	}
	logger.Info("database checksums verified", "manifest", manifest)
	return nil
}

// Close releases every loaded bundle. It tolerates partially loaded sets.
func (b *Bundles) Close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if b.Background != nil {
		keep(b.Background.Close())
	}
	if b.Pathogenic != nil {
		keep(b.Pathogenic.Close())
	}
	if b.Tads != nil {
		keep(b.Tads.Close())
	}
	if b.ClinvarSV != nil {
		keep(b.ClinvarSV.Close())
	}
	if b.Genes != nil {
		keep(b.Genes.Close())
	}
	return first
}

// RegisterHealth adds one readiness check per loaded bundle.
func (b *Bundles) RegisterHealth(c *health.Checker) {
	c.Register("background", health.RecordsCheck(func() int {
		n := 0
		for _, src := range background.Sources {
			n += b.Background.Len(src)
		}
		return n
	}))
	c.Register("pathogenic", health.RecordsCheck(b.Pathogenic.Len))
	c.Register("tads", health.RecordsCheck(func() int { return b.Tads.Len(tad.HESC) + b.Tads.Len(tad.IMR90) }))
	c.Register("clinvar_sv", health.RecordsCheck(b.ClinvarSV.Len))
	c.Register("genes", health.RecordsCheck(func() int { return b.Genes.Len(genes.RefSeq) + b.Genes.Len(genes.Ensembl) }))
}
