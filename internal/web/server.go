// Package web provides the JSON API server for the shopdesk dashboard.
package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/evcraddock/shopdesk/internal/logging"
	"github.com/evcraddock/shopdesk/internal/visit"
)

// Server is the dashboard HTTP server.
type Server struct {
	store *visit.Store
	mux   *http.ServeMux
}

// NewServer creates a server over store. live, when non-nil, serves the
// websocket endpoint at /ws.
func NewServer(store *visit.Store, live http.Handler) *Server {
	s := &Server{
		store: store,
		mux:   http.NewServeMux(),
	}

	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/visits", s.handleAPIVisits)
	s.mux.HandleFunc("/api/visits/", s.handleAPIVisits)
	s.mux.HandleFunc("/api/alerts", s.handleAPIAlerts)
	s.mux.HandleFunc("/api/dashboard", s.handleAPIDashboard)
	s.mux.HandleFunc("/api/estimate", s.handleAPIEstimate)
	if live != nil {
		s.mux.Handle("/ws", live)
	}

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// HTTPServer returns an http.Server for the given port with request logging.
func (s *Server) HTTPServer(port int) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           logging.RequestLogger(s),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// apiError writes a JSON error response.
func apiError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	resp := map[string]string{"error": msg}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

// apiJSON writes a JSON response with the given status code.
func apiJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}
