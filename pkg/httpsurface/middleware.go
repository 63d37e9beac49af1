package httpsurface

import (
	"net/http"
	"os"
	"time"

	"github.com/videologyinc/websink-go/pkg/wslog"
)

func hostnameLookup() (string, error) {
	return os.Hostname()
}

// responseWriter wraps http.ResponseWriter to capture the status code for
// the access log line, grounded on pkg/api/server.go's withLogging wrapper.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func withLogging(log *wslog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		log.Signaling("http request", "method", r.Method, "path", r.URL.Path, "status", rw.status, "duration", time.Since(start).String())
	})
}
