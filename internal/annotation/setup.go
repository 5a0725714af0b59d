package annotation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/svannot/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/svannot/pkg/redis"
)

// Stack is the configured annotator together with the connections it owns.
type Stack struct {
	*Composite
	pg        *postgres.Client
	redis     *pkgredis.Client
	resilient *Resilient
}

// Setup builds the annotator described by cfg. With backend "none" only
// structural variants are annotated, from sv.
func Setup(ctx context.Context, cfg *config.Config, sv SVClinVar, m *metrics.Metrics) (*Stack, error) {
	logger := slog.Default().With("component", "annotation")
	s := &Stack{}
	switch cfg.Annotation.Backend {
	case "", "none":
		s.Composite = NewComposite(sv, nil)
		logger.Info("sequence variant annotation disabled")
		return s, nil
	case "postgres":
	default:
		return nil, fmt.Errorf("%w: unknown annotation backend %q", apperrors.ErrConfig, cfg.Annotation.Backend)
	}

	release, err := genome.ParseRelease(cfg.Databases.Release)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrConfig, err)
	}
	s.pg, err = postgres.New(cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnavailable, err)
	}
	store := NewPGStore(s.pg, release)
	if err := store.EnsureSchema(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	var seq Annotator = store
	if cfg.Annotation.CacheEnabled {
		s.redis, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("%w: %v", apperrors.ErrUnavailable, err)
		}
		seq = NewCache(seq, s.redis, release, cfg.Redis.CacheTTL, m)
	}
	s.resilient = NewResilient(seq, "postgres", cfg.Annotation, m)
	s.Composite = NewComposite(sv, s.resilient)
	logger.Info("annotation backend ready", "backend", "postgres", "cache", cfg.Annotation.CacheEnabled, "release", release)
	return s, nil
}

// RegisterHealth adds checks for the connections of the stack.
func (s *Stack) RegisterHealth(c *health.Checker) {
	if s.pg != nil {
		c.Register("postgres", health.PingCheck(s.pg.Ping))
	}
	if s.redis != nil {
		c.Register("redis", health.PingCheck(s.redis.Ping))
	}
	if s.resilient != nil {
		c.Register("annotator", health.BreakerCheck(s.resilient.Breaker()))
	}
}

func (s *Stack) Close() error {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if s.pg != nil {
		errs = append(errs, s.pg.Close())
	}
	return errors.Join(errs...)
}
