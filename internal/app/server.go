package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/five82/dronewatch/internal/droneapi"
	"github.com/five82/dronewatch/internal/state"
	"github.com/five82/dronewatch/internal/version"
)

type readiness struct {
	Status              string `json:"status"`
	LastUpdated         string `json:"last_updated,omitempty"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	Error               string `json:"error,omitempty"`
}

// newStatusRouter serves Prometheus metrics alongside health, readiness and
// version endpoints. Readiness reflects the refresh state held in store.
func newStatusRouter(metrics http.Handler, store *state.Store, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Handle("/metrics", metrics)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	r.Get("/readiness", func(w http.ResponseWriter, _ *http.Request) {
		snap := store.Snapshot()
		resp := readiness{ConsecutiveFailures: snap.ConsecutiveFailures}
		if !snap.LastUpdated.IsZero() {
			resp.LastUpdated = snap.LastUpdated.Format(time.RFC3339)
		}
		if snap.LastError != nil {
			resp.Error = droneapi.UserMessage(snap.LastError)
		}
		switch {
		case !snap.HasData:
			resp.Status = "waiting"
			writeJSON(w, http.StatusServiceUnavailable, resp)
		case snap.IsOffline():
			resp.Status = "offline"
			writeJSON(w, http.StatusServiceUnavailable, resp)
		default:
			resp.Status = "ready"
			writeJSON(w, http.StatusOK, resp)
		}
	})
	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": version.Version,
			"commit":  version.Commit,
			"built":   version.BuildDate,
		})
	})
	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	logger = logger.Named("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)))
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func serveStatus(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving status endpoints", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("status server stopped", zap.Error(err))
	}
}
