// ABOUTME: Request logging and panic recovery middleware
// ABOUTME: A panicking handler becomes a 500 envelope and the stack goes to the log

package server

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/2389/projectcamp/internal/auth"
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		s.logger.Info("http request",
			"method", r.Method,
			"path", redactPath(r),
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rv := recover(); rv != nil {
				if rv == http.ErrAbortHandler {
					panic(rv)
				}
				s.logger.Error("handler panic", "method", r.Method, "panic", rv, "stack", string(debug.Stack()))
				s.writeError(w, r, auth.Internal(fmt.Errorf("panic: %v", rv)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// redactPath masks the {token} path value of verify and reset routes.
// The mux records path values on the request it was handed, so they are
// visible here after next.ServeHTTP returns.
func redactPath(r *http.Request) string {
	token := r.PathValue("token")
	if token == "" {
		return r.URL.Path
	}
	return strings.Replace(r.URL.Path, token, "REDACTED", 1)
}
