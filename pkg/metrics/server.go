package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// StartServer serves /metrics on port in the background and returns the
// function that stops it. A port that cannot be bound is logged and metrics
// stay unexposed; the batch tools keep running without them.
func StartServer(port int) (shutdown func(context.Context) error) {
	logger := slog.Default().With("component", "metrics")
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		logger.Error("metrics listener failed", "port", port, "error", err)
		return func(context.Context) error { return nil }
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	go func() {
		logger.Info("metrics server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	return srv.Shutdown
}
