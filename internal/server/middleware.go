package server

import (
  "net/http"
  "strings"
  "time"
)

func (s *Server) requestLogger() func(http.Handler) http.Handler {
  return func(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
      start := time.Now()
      ww := &responseWriter{ResponseWriter: w, status: 200}

      next.ServeHTTP(ww, r)

      duration := time.Since(start)
      s.logger.Printf("method=%s path=%s status=%d duration_ms=%d", r.Method, r.URL.Path, ww.status, duration.Milliseconds())
    })
  }
}

type responseWriter struct {
  http.ResponseWriter
  status int
}

func (w *responseWriter) WriteHeader(status int) {
  w.status = status
  w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Flush() {
  if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
    flusher.Flush()
  }
}

// userEmail returns the verified email the upstream auth proxy attached to
// the request, or "" when the request is unauthenticated. The value is used
// as given: backup keys are derived from its exact spelling.
func (s *Server) userEmail(r *http.Request) string {
  return strings.TrimSpace(r.Header.Get(s.cfg.Auth.EmailHeader))
}

func (s *Server) requireUser(next http.Handler) http.Handler {
  return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
    if s.userEmail(r) == "" {
      writeError(w, http.StatusUnauthorized, "Unauthorized")
      return
    }
    next.ServeHTTP(w, r)
  })
}

func (s *Server) requireLightning(next http.Handler) http.Handler {
  return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
    if s.lightning == nil {
      writeError(w, http.StatusInternalServerError, "Lightning is not configured")
      return
    }
    next.ServeHTTP(w, r)
  })
}
