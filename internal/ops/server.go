// Package ops serves liveness and runtime stats over HTTP.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/m3rciful/partsbot/core/logger"
)

const component = "ops"

// StatsFunc reports a JSON-encodable snapshot of the running bot.
type StatsFunc func(ctx context.Context) (any, error)

// NewHandler returns the ops routes: GET /healthz and GET /stats.
func NewHandler(stats StatsFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.Heartbeat("/healthz"))
	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		if stats == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "stats unavailable"})
			return
		}
		v, err := stats(req.Context())
		if err != nil {
			logger.Warn(req.Context(), component, "stats.failed", logger.Err(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats failed"})
			return
		}
		writeJSON(w, http.StatusOK, v)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Server is a running ops listener.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Start listens on addr and serves h in the background.
func Start(addr string, h http.Handler) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("ops: listen %s: %w", addr, err)
	}
	s := &Server{
		srv: &http.Server{
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		ln: ln,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), component, "server.failed", logger.Err(err))
		}
	}()
	logger.Info(context.Background(), component, "server.listening", slog.String("addr", ln.Addr().String()))
	return s, nil
}

// Addr is the bound address, useful when addr had port 0.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
