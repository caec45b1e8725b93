package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/shaitools891-svg/ME-Dictionary/internal/errors"
	"github.com/shaitools891-svg/ME-Dictionary/internal/logger"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

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

// instrument tags each request with an id, recovers handler panics and
// records the outcome in logs and metrics.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, requestID)
		r = r.WithContext(logger.ContextWithRequestID(r.Context(), requestID))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		if err := errors.Safely(func() { next.ServeHTTP(rec, r) }); err != nil {
			fields := []interface{}{"method", r.Method, "path", r.URL.Path, "error", err}
			if pe, ok := err.(*errors.PanicError); ok {
				fields = append(fields, "stack", pe.Stacktrace)
			}
			s.log.ErrorContext(r.Context(), "Handler panicked", fields...)
			if !rec.wrote {
				writeError(rec, http.StatusInternalServerError, "Internal server error")
			}
		}

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		s.metrics.RecordRequest(route, rec.status, elapsed)

		args := []interface{}{
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds(),
		}
		switch {
		case rec.status >= http.StatusInternalServerError:
			s.log.ErrorContext(r.Context(), "Request failed", args...)
		case rec.status >= http.StatusBadRequest:
			s.log.WarnContext(r.Context(), "Request rejected", args...)
		default:
			s.log.DebugContext(r.Context(), "Request handled", args...)
		}
	})
}
