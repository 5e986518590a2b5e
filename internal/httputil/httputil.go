// Package httputil provides HTTP handler utilities for consistent error
// responses, JSON encoding/decoding, and shared middleware.
package httputil

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"signon/backend/internal/apperr"
)

// ErrorBody is the wire shape of every error response.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("httputil: encode response: %v", err)
		}
	}
}

// WriteError maps err onto the error taxonomy and writes it. Errors outside
// the taxonomy become request.general with status 500; the original error is
// logged, never leaked to the client.
func WriteError(w http.ResponseWriter, err error) {
	entry := apperr.From(err)
	if entry.Status >= http.StatusInternalServerError {
		log.Printf("httputil: internal error: %v", err)
	}
	WriteJSON(w, entry.Status, ErrorBody{
		Code:    entry.Code,
		Message: entry.Message,
		Data:    entry.Data,
	})
}

// ParseJSON decodes the request body into dest, rejecting malformed bodies
// with request.invalid_input.
func ParseJSON(r *http.Request, dest any) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return apperr.New(apperr.RequestInvalidInput, map[string]any{"detail": err.Error()})
	}
	return nil
}

// LoggingMiddleware logs method, path, status, and latency for each request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		log.Printf("[%s] %s - %d (%v)", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// RecoveryMiddleware turns panics into request.general responses.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[PANIC] %v\n%s", rec, debug.Stack())
				WriteError(w, fmt.Errorf("panic: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
