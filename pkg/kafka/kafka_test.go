package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/resilience"
)

type candidate struct {
	Chrom string `json:"chrom"`
	Pos   int    `json:"pos"`
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[candidate]([]byte(`{"chrom":"1","pos":100}`))
	require.NoError(t, err)
	assert.Equal(t, candidate{Chrom: "1", Pos: 100}, got)

	_, err = DecodeJSON[candidate]([]byte(`{"chrom":`))
	assert.ErrorIs(t, err, ErrUndecodable)
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestProducerEncodesJSONWithHeader(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "verdicts", quiet())
	require.NoError(t, p.PublishBatch(context.Background(), []Event{
		{Key: "1:100:A:T", Value: map[string]bool{"pass": true}},
		{Key: "2:5:G:C", Value: map[string]bool{"pass": false}},
	}))
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "1:100:A:T", string(w.msgs[0].Key))
	assert.JSONEq(t, `{"pass":false}`, string(w.msgs[1].Value))
	assert.Equal(t, []kafka.Header{{Key: "content-type", Value: []byte(ContentType)}}, w.msgs[0].Headers)

	assert.NoError(t, p.PublishBatch(context.Background(), nil))
	assert.Len(t, w.msgs, 2)
}

func TestProducerErrors(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "verdicts", quiet())
	err := p.Publish(context.Background(), Event{Key: "k", Value: func() {}})
	assert.ErrorContains(t, err, `encoding event "k"`)
	assert.Empty(t, w.msgs)

	w.err = errors.New("broker down")
	err = p.Publish(context.Background(), Event{Key: "k", Value: 1})
	assert.ErrorContains(t, err, "publishing to verdicts")
}

func TestCompressionCodec(t *testing.T) {
	for name, want := range map[string]kafka.Compression{"": 0, "none": 0, "gzip": kafka.Gzip, "lz4": kafka.Lz4, "zstd": kafka.Zstd, "snappy": kafka.Snappy} {
		got, ok := compressionCodec(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	_, ok := compressionCodec("brotli")
	assert.False(t, ok)
}

// fakeReader serves msgs once, then blocks until ctx is done.
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	fetchErrs int
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if r.fetchErrs > 0 {
		r.fetchErrs--
		r.mu.Unlock()
		return kafka.Message{}, errors.New("leader not available")
	}
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func TestConsumerRetriesThenSkips(t *testing.T) {
	r := &fakeReader{
		fetchErrs: 1,
		msgs: []kafka.Message{
			{Offset: 1, Value: []byte(`{"chrom":"1","pos":1}`)},
			{Offset: 2, Value: []byte(`{"chrom":"1","pos":2}`)},
			{Offset: 3, Value: []byte(`{"chrom":"1","pos":3}`)},
		},
	}
	var mu sync.Mutex
	calls := map[int]int{}
	handler := func(_ context.Context, _, value []byte) error {
		var c candidate
		assert.NoError(t, json.Unmarshal(value, &c))
		mu.Lock()
		defer mu.Unlock()
		calls[c.Pos]++
		switch {
		case c.Pos == 2:
			return errors.New("always failing")
		case c.Pos == 3 && calls[c.Pos] == 1:
			return errors.New("transient")
		}
		return nil
	}
	c := newConsumer(r, handler, 3)
	c.retry = resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
	c.fetchPause = time.Millisecond
	c.logger = quiet()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return len(r.commits()) == 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []int64{1, 2, 3}, r.commits(), "offsets are committed in order even for skipped messages")
	mu.Lock()
	assert.Equal(t, map[int]int{1: 1, 2: 3, 3: 2}, calls)
	mu.Unlock()
	assert.True(t, r.closed)
}
