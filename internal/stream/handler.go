// Package stream evaluates candidate variants arriving on Kafka and
// publishes one verdict event per candidate.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/variant"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/kafka"
)

// Evaluator enriches and filters one candidate.
type Evaluator interface {
	Evaluate(ctx context.Context, v *variant.Candidate) (bool, error)
}

type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Verdict is the outcome of one candidate. Error is set when the candidate
// was invalid or an annotation lookup failed; Pass is false then.
type Verdict struct {
	ID          string    `json:"id,omitempty"`
	Key         string    `json:"key"`
	Pass        bool      `json:"pass"`
	Error       string    `json:"error,omitempty"`
	EvaluatedAt time.Time `json:"evaluatedAt"`
}

type Handler struct {
	eval   Evaluator
	pub    Publisher
	now    func() time.Time
	logger *slog.Logger
}

func NewHandler(eval Evaluator, pub Publisher) *Handler {
	return &Handler{
		eval:   eval,
		pub:    pub,
		now:    time.Now,
		logger: slog.Default().With("component", "stream-handler"),
	}
}

// Handle is a kafka.MessageHandler. Undecodable messages are logged and
// dropped; only a failed verdict publish is returned, so the consumer retries
// the candidate.
func (h *Handler) Handle(ctx context.Context, key, value []byte) error {
	v, err := kafka.DecodeJSON[variant.Candidate](value)
	if err != nil {
		h.logger.Warn("dropping undecodable candidate", "key", string(key), "error", err)
		return nil
	}
	verdict := Verdict{ID: v.ID, Key: v.Key()}
	if err := v.Validate(); err != nil {
		verdict.Error = err.Error()
	} else {
		pass, err := h.eval.Evaluate(ctx, &v)
		verdict.Pass = pass
		if err != nil {
			h.logger.Warn("candidate evaluation failed", "variant", verdict.Key, "error", err)
			verdict.Error = err.Error()
		}
	}
	verdict.EvaluatedAt = h.now().UTC()
	if err := h.pub.Publish(ctx, kafka.Event{Key: verdict.Key, Value: verdict}); err != nil {
		return fmt.Errorf("publishing verdict of %s: %w", verdict.Key, err)
	}
	return nil
}
