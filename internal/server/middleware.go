package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/autocompanion/autocompanion/internal/apperr"
	"github.com/autocompanion/autocompanion/internal/auth"
)

// TraceHeader carries the request's trace id in both directions.
const TraceHeader = "X-Trace-ID"

type traceKey struct{}

// traceRequests reuses the caller's trace id or assigns a new one.
func traceRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(TraceHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(TraceHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), traceKey{}, id)))
	})
}

func traceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

// statusRecorder remembers the status code written through it
type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wrote {
		r.status = code
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wrote {
		r.status = http.StatusOK
		r.wrote = true
	}
	return r.ResponseWriter.Write(b)
}

// logRequests logs one line per request
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		slog.Info("Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"trace_id", traceID(r.Context()),
		)
	})
}

// recoverPanics turns a handler panic into a JSON 500
func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				slog.Error("Handler panicked", "panic", v, "path", r.URL.Path, "trace_id", traceID(r.Context()))
				if rec, ok := w.(*statusRecorder); ok && rec.wrote {
					return
				}
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware adds CORS headers to responses and answers preflight
// requests itself
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.setCORSHeaders(w, r)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// setCORSHeaders sets CORS headers on a response
func (s *Server) setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	switch origin := r.Header.Get("Origin"); {
	case s.allowAll:
		w.Header().Set("Access-Control-Allow-Origin", "*")
	case origin != "" && s.corsOrigins[origin]:
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+TraceHeader)
	w.Header().Set("Access-Control-Expose-Headers", TraceHeader)
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// requireAuth verifies the bearer token and stores the caller's identity in
// the request context. Without a verifier the caller is anonymous.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.verifier == nil {
			next(w, r)
			return
		}

		raw, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err == nil {
			var token *auth.Token
			token, err = s.verifier.VerifyIDToken(r.Context(), raw)
			if err == nil {
				next(w, r.WithContext(auth.WithToken(r.Context(), token)))
				return
			}
		}

		if !errors.Is(err, apperr.ErrUnauthorized) {
			slog.Warn("Token verification failed", "error", err, "trace_id", traceID(r.Context()))
		}
		w.Header().Set("WWW-Authenticate", `Bearer realm="AutoCompanion"`)
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Invalid or expired Firebase token"})
	}
}
