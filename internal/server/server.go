// Package server exposes the trip planner and the document reader over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/autocompanion/autocompanion/internal/auth"
	"github.com/autocompanion/autocompanion/internal/document"
	"github.com/autocompanion/autocompanion/internal/itinerary"
	"github.com/autocompanion/autocompanion/internal/trip"
)

// TripService generates and reads back stored trips
type TripService interface {
	Generate(ctx context.Context, userID string, req itinerary.TripRequest) (*trip.Result, error)
	Get(ctx context.Context, userID string, id uint64) (*trip.Trip, error)
}

// Planner returns raw itinerary text without storing anything
type Planner interface {
	Plan(ctx context.Context, req itinerary.TripRequest) (string, error)
}

// DocumentService reads the expiry date off a document image
type DocumentService interface {
	ExtractFromURL(ctx context.Context, url string) (*document.Document, error)
}

// Options holds the server's collaborators. A nil Verifier disables
// authentication and every caller is anonymous.
type Options struct {
	Trips       TripService
	Planner     Planner
	Documents   DocumentService
	Verifier    auth.TokenVerifier
	CORSOrigins []string
}

// Server handles HTTP requests
type Server struct {
	trips       TripService
	planner     Planner
	documents   DocumentService
	verifier    auth.TokenVerifier
	corsOrigins map[string]bool
	allowAll    bool
	mux         *http.ServeMux
	handler     http.Handler
}

// NewServer creates a new Server with default mux
func NewServer(opts Options) *Server {
	return NewServerWithMux(opts, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(opts Options, mux *http.ServeMux) *Server {
	s := &Server{
		trips:       opts.Trips,
		planner:     opts.Planner,
		documents:   opts.Documents,
		verifier:    opts.Verifier,
		corsOrigins: make(map[string]bool),
		mux:         mux,
	}
	for _, origin := range opts.CORSOrigins {
		if origin == "*" {
			s.allowAll = true
		}
		s.corsOrigins[origin] = true
	}
	if len(opts.CORSOrigins) == 0 {
		s.allowAll = true
	}

	s.registerRoutes()
	s.handler = traceRequests(logRequests(recoverPanics(s.corsMiddleware(s.mux))))
	return s
}

// registerRoutes registers all routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /ping", s.handlePing)
	s.mux.HandleFunc("GET /api/ping", s.handleAPIPing)

	s.mux.HandleFunc("POST /api/ai-tour-plan", s.handleTourPlan)

	s.mux.HandleFunc("POST /api/trip/generate", s.requireAuth(s.handleGenerateTrip))
	s.mux.HandleFunc("GET /api/trip/test-auth", s.requireAuth(s.handleTestAuth))
	s.mux.HandleFunc("GET /api/trip/{id}", s.requireAuth(s.handleGetTrip))

	s.mux.HandleFunc("POST /ocr-url", s.handleOCR)

	// catch-all keeps unknown routes on the JSON envelope
	s.mux.HandleFunc("/", s.handleNotFound)
}

// NewHTTPServer returns an http.Server serving s on addr.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	slog.Info("Configuring server", "address", addr)
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
