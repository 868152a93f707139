// Package pubsub serves Pub/Sub push subscriptions over HTTP. The push
// service treats any non-2xx answer as a nack and redelivers.
package pubsub

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/user/secmon/pkg/finding"
)

const maxBodyBytes = 10 << 20

// EnvelopeHandler processes one push request body.
type EnvelopeHandler interface {
	HandleEnvelope(ctx context.Context, body []byte) error
}

// Handler returns the push endpoint. Malformed envelopes are answered with
// 400, other failures with 500 so the message is redelivered.
func Handler(h EnvelopeHandler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(loggerMiddleware(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handleHealth)
	r.Post("/", handlePush(h, logger))
	return r
}

func loggerMiddleware(log *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.InfoContext(r.Context(), "request completed",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func handlePush(h EnvelopeHandler, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			logger.ErrorContext(r.Context(), "failed to read push request", "error", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		switch err := h.HandleEnvelope(r.Context(), body); {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, finding.ErrMalformedEvent):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, "processing failed", http.StatusInternalServerError)
		}
	}
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, h EnvelopeHandler, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return serve(ctx, ln, h, logger)
}

func serve(ctx context.Context, ln net.Listener, h EnvelopeHandler, logger *slog.Logger) error {
	srv := &http.Server{
		Handler:           Handler(h, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening for pub/sub push requests", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
