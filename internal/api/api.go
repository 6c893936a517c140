// Package api exposes the bot's read-only HTTP surface: metrics, health, positions and status.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"kingbot-go/internal/execution"
	"kingbot-go/internal/metrics"
	"kingbot-go/internal/position"
)

// Loop is the part of the trading loop the API reads.
type Loop interface {
	LastTick() time.Time
	Report(ctx context.Context) (string, error)
}

// Fills lists recent fills, oldest first.
type Fills interface {
	Snapshot() []execution.Fill
}

// Server holds handler dependencies.
type Server struct {
	store *position.Store
	loop  Loop
	fills Fills
	log   zerolog.Logger
}

// NewRouter builds the mux router for the bot's endpoints. fills may be nil.
func NewRouter(store *position.Store, loop Loop, fills Fills, log zerolog.Logger) *mux.Router {
	s := &Server{store: store, loop: loop, fills: fills, log: log}
	r := mux.NewRouter()
	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	r.HandleFunc("/healthz", s.health).Methods("GET")
	r.HandleFunc("/positions", s.positions).Methods("GET")
	r.HandleFunc("/positions/{base}/{quote}", s.position).Methods("GET")
	r.HandleFunc("/fills", s.recentFills).Methods("GET")
	r.HandleFunc("/status", s.status).Methods("GET")
	return r
}

type healthResponse struct {
	Status   string     `json:"status"`
	LastTick *time.Time `json:"last_tick,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if last := s.loop.LastTick(); !last.IsZero() {
		last = last.UTC()
		resp.LastTick = &last
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) positions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) position(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	symbol := strings.ToUpper(vars["base"] + "/" + vars["quote"])
	pos, ok := s.store.Get(symbol)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no open position for " + symbol})
		return
	}
	s.writeJSON(w, http.StatusOK, pos)
}

func (s *Server) recentFills(w http.ResponseWriter, r *http.Request) {
	fills := []execution.Fill{}
	if s.fills != nil {
		fills = s.fills.Snapshot()
	}
	s.writeJSON(w, http.StatusOK, fills)
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	text, err := s.loop.Report(r.Context())
	if err != nil {
		s.log.Warn().Err(err).Msg("status report incomplete")
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(text))
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		s.log.Warn().Err(err).Msg("encode response")
	}
}

// Serve runs the router on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler, log zerolog.Logger) error {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info().Str("addr", addr).Msg("http api up")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
