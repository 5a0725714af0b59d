// Package batch evaluates a stream of candidate variants read as JSON lines
// and writes the passing ones in input order.
package batch

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/genes"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/interpreter"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/variant"
	apperrors "github.com/Adithya-Monish-Kumar-K/svannot/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/metrics"
)

const maxLineBytes = 16 << 20

// ConsequenceLookup supplies consequences of sequence variants that arrive
// without them.
type ConsequenceLookup interface {
	Consequences(ctx context.Context, v *variant.Candidate) ([]variant.Consequence, error)
}

// GeneLookup supplies HGNC identifiers of structural variants that arrive
// without genes.
type GeneLookup interface {
	HgncIDs(model genes.Model, v *variant.Candidate) []string
}

type Options struct {
	Concurrency  int
	ChunkSize    int
	Consequences ConsequenceLookup
	Genes        GeneLookup
	GeneModel    genes.Model
	Metrics      *metrics.Metrics
}

// Stats summarizes one run. Malformed lines and variants whose evaluation
// failed are counted and skipped.
type Stats struct {
	RunID     string        `json:"runId"`
	Read      int           `json:"read"`
	Malformed int           `json:"malformed"`
	Passed    int           `json:"passed"`
	Failed    int           `json:"failed"`
	Errors    int           `json:"errors"`
	Duration  time.Duration `json:"duration"`
}

type Runner struct {
	interp *interpreter.Interpreter
	opts   Options
	logger *slog.Logger
}

func New(interp *interpreter.Interpreter, opts Options) *Runner {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.ChunkSize < 1 {
		opts.ChunkSize = 1024
	}
	return &Runner{
		interp: interp,
		opts:   opts,
		logger: slog.Default().With("component", "batch"),
	}
}

type outcome struct {
	pass bool
	err  error
}

// Run reads candidates from in until EOF and writes each passing candidate
// as one JSON line to out. It returns early only on read, write or context
// errors; the stats cover the variants handled so far.
func (r *Runner) Run(ctx context.Context, in io.Reader, out io.Writer) (Stats, error) {
	start := time.Now()
	stats := Stats{RunID: uuid.NewString()}
	logger := r.logger.With("run_id", stats.RunID)
	logger.Info("batch started", "concurrency", r.opts.Concurrency, "chunk_size", r.opts.ChunkSize)

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)
	w := bufio.NewWriter(out)
	enc := json.NewEncoder(w)

	chunk := make([]*variant.Candidate, 0, r.opts.ChunkSize)
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		results, err := r.evaluate(ctx, chunk)
		if err != nil {
			return err
		}
		for i, res := range results {
			switch {
			case res.err != nil:
				stats.Errors++
				logger.Warn("variant evaluation failed", "variant", chunk[i].Key(), "error", res.err)
			case res.pass:
				stats.Passed++
				if err := enc.Encode(chunk[i]); err != nil {
					return fmt.Errorf("writing variant %s: %w", chunk[i].Key(), err)
				}
			default:
				stats.Failed++
			}
		}
		chunk = chunk[:0]
		return nil
	}

	line := 0
	for sc.Scan() {
		line++
		text := sc.Bytes()
		if len(text) == 0 {
			continue
		}
		stats.Read++
		v := new(variant.Candidate)
		if err := json.Unmarshal(text, v); err != nil {
			stats.Malformed++
			logger.Warn("skipping malformed line", "line", line, "error", err)
			continue
		}
		if err := v.Validate(); err != nil {
			stats.Malformed++
			logger.Warn("skipping invalid variant", "line", line, "error", err)
			continue
		}
		chunk = append(chunk, v)
		if len(chunk) == r.opts.ChunkSize {
			if err := flush(); err != nil {
				return r.finish(stats, start), err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return r.finish(stats, start), fmt.Errorf("reading candidates at line %d: %w", line+1, err)
	}
	if err := flush(); err != nil {
		return r.finish(stats, start), err
	}
	if err := w.Flush(); err != nil {
		return r.finish(stats, start), fmt.Errorf("flushing output: %w", err)
	}
	stats = r.finish(stats, start)
	logger.Info("batch finished",
		"read", stats.Read,
		"passed", stats.Passed,
		"failed", stats.Failed,
		"malformed", stats.Malformed,
		"errors", stats.Errors,
		"duration", stats.Duration,
	)
	return stats, nil
}

func (r *Runner) finish(stats Stats, start time.Time) Stats {
	stats.Duration = time.Since(start)
	return stats
}

// evaluate runs one chunk on at most Concurrency goroutines. Results are
// indexed like chunk.
func (r *Runner) evaluate(ctx context.Context, chunk []*variant.Candidate) ([]outcome, error) {
	results := make([]outcome, len(chunk))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for i, v := range chunk {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.one(gctx, v)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) one(ctx context.Context, v *variant.Candidate) outcome {
	if err := r.Enrich(ctx, v); err != nil {
		r.opts.Metrics.ObserveVariant("error")
		return outcome{err: err}
	}
	pass, err := r.interp.Passes(ctx, v)
	return outcome{pass: pass, err: err}
}

// Evaluate enriches v and runs the filter chain on it.
func (r *Runner) Evaluate(ctx context.Context, v *variant.Candidate) (bool, error) {
	res := r.one(ctx, v)
	return res.pass, res.err
}

// Enrich fills consequences of sequence variants and genes of structural
// variants when the input lacks them.
func (r *Runner) Enrich(ctx context.Context, v *variant.Candidate) error {
	if v.IsStructural() {
		if len(v.Genes) == 0 && r.opts.Genes != nil {
			v.Genes = r.opts.Genes.HgncIDs(r.opts.GeneModel, v)
		}
		return nil
	}
	if len(v.Consequences) == 0 && r.opts.Consequences != nil {
		cons, err := r.opts.Consequences.Consequences(ctx, v)
		if err != nil {
			return fmt.Errorf("%w: looking up consequences of %s: %v", apperrors.ErrAnnotator, v.Key(), err)
		}
		v.Consequences = cons
	}
	return nil
}
