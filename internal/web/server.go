// Package web provides an HTTP status server for the sound-monitor daemon.
package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sweeney/sound-monitor/internal/status"
)

// staleCycles is how many missed cycles make a running device unhealthy.
const staleCycles = 5

// Server serves the status page, the JSON snapshot, a health probe and,
// optionally, Prometheus metrics.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
}

// New creates a Server that reads state from the given tracker.
// A non-nil metrics handler is mounted at /metrics.
func New(addr string, tracker *status.Tracker, metrics http.Handler) *Server {
	s := &Server{tracker: tracker}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(metrics),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes(metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/healthz", s.handleHealth)
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	return mux
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Serve accepts connections on ln until the server is shut down.
func (s *Server) Serve(ln net.Listener) error { return s.httpServer.Serve(ln) }

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error { return s.httpServer.Shutdown(ctx) }

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, s.tracker.Snapshot())
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(s.tracker.Snapshot()))
}

// handleHealth reports 503 when a running device has stopped producing
// readings. Idle, starting and stopping devices are healthy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if snap.State == "RUNNING" && snap.Config.CycleMs > 0 {
		limit := time.Duration(staleCycles*snap.Config.CycleMs) * time.Millisecond
		var age time.Duration
		if snap.HasReading {
			age = snap.Now.Sub(snap.Reading.Time)
		} else {
			age = snap.Uptime()
		}
		if age > limit {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "stale: no reading for %s\n", age.Truncate(time.Second))
			return
		}
	}
	fmt.Fprintf(w, "ok %s\n", snap.State)
}
