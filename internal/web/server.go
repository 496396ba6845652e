// Package web provides an HTTP status server for the swamp-cooler daemon.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/sweeney/swamp-cooler/internal/logic"
	"github.com/sweeney/swamp-cooler/internal/status"
	"github.com/sweeney/swamp-cooler/internal/store"
)

// Options wires the server to the daemon. Store and Metrics are optional.
type Options struct {
	Tracker *status.Tracker
	Store   store.Gateway
	Metrics http.Handler
	// MaxAge is how old the last evaluation may be before /health fails.
	MaxAge time.Duration
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	opts       Options
}

// New creates a Server that reads state from the given tracker.
func New(addr string, o Options) *Server {
	s := &Server{opts: o}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods("GET")
	r.HandleFunc("/index.html", s.handleIndex).Methods("GET")
	r.HandleFunc("/index.json", s.handleJSON).Methods("GET")
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	if o.Store != nil {
		r.HandleFunc("/readings.json", s.handleReadings).Methods("GET")
	}
	if o.Metrics != nil {
		r.Handle("/metrics", o.Metrics).Methods("GET")
	}
	s.router = r

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handlers.CombinedLoggingHandler(os.Stderr, r),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.opts.Tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.opts.Tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// HealthJSON is the /health response body.
type HealthJSON struct {
	Healthy      bool   `json:"healthy"`
	LastDecision string `json:"last_decision,omitempty"`
	MaxAgeMs     int64  `json:"max_age_ms"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.opts.Tracker.Snapshot()
	h := HealthJSON{
		Healthy:  snap.Healthy(s.opts.MaxAge),
		MaxAgeMs: s.opts.MaxAge.Milliseconds(),
	}
	if snap.Decided {
		h.LastDecision = snap.Decision.At.UTC().Format(time.RFC3339)
	}
	code := http.StatusOK
	if !h.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, h)
}

// ReadingsJSON is the /readings.json response body.
type ReadingsJSON struct {
	Sensor   string               `json:"sensor"`
	Days     int                  `json:"days"`
	Readings []status.ReadingJSON `json:"readings"`
}

type errorJSON struct {
	Error string `json:"error"`
}

func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	role := logic.Role(q.Get("sensor"))
	if !role.Valid() {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "sensor must be roof or home"})
		return
	}
	days := 1
	if v := q.Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorJSON{Error: "days must be a positive integer"})
			return
		}
		days = n
	}

	readings, err := s.opts.Store.ReadingsSince(r.Context(), role, days)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorJSON{Error: err.Error()})
		return
	}
	out := ReadingsJSON{
		Sensor:   string(role),
		Days:     days,
		Readings: make([]status.ReadingJSON, len(readings)),
	}
	for i, rd := range readings {
		out.Readings[i] = status.FormatReading(rd)
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
