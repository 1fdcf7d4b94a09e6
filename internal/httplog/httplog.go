// Package httplog provides the structured request-logging middleware for
// the HTTP API, modeled on the teacher's middleware.Logger/LogEntry shape
// but trimmed to what a headless service needs: one JSON line per request,
// a request ID, and a latency observation fed to Prometheus.
package httplog

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lucebryan3000/sparkq-poc-sub002/internal/metrics"
)

// Entry is one structured access-log line.
type Entry struct {
	Timestamp  time.Time `json:"timestamp"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	StatusCode int       `json:"status_code"`
	DurationMS float64   `json:"duration_ms"`
	IP         string    `json:"ip"`
	RequestID  string    `json:"request_id"`
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (r *responseRecorder) WriteHeader(code int) {
	if !r.written {
		r.statusCode = code
		r.written = true
		r.ResponseWriter.WriteHeader(code)
	}
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.written {
		r.written = true
	}
	return r.ResponseWriter.Write(b)
}

// Middleware wraps next with request-ID assignment, access logging, and a
// Prometheus latency observation keyed by route/status. route is the
// method+pattern the mux matched (e.g. "POST /api/queues/{id}/claim"),
// used as a low-cardinality metric label instead of the raw path.
func Middleware(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Request-ID") == "" {
			r.Header.Set("X-Request-ID", uuid.NewString())
		}
		requestID := r.Header.Get("X-Request-ID")
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)
		duration := time.Since(start)

		entry := Entry{
			Timestamp:  start.UTC(),
			Method:     r.Method,
			Path:       r.URL.Path,
			StatusCode: rec.statusCode,
			DurationMS: float64(duration.Microseconds()) / 1000.0,
			IP:         clientIP(r),
			RequestID:  requestID,
		}
		writeEntry(entry)

		status := statusBucket(rec.statusCode)
		metrics.HTTPRequestDuration.WithLabelValues(route, status).Observe(duration.Seconds())
	})
}

func writeEntry(e Entry) {
	if b, err := json.Marshal(e); err == nil {
		log.Println(string(b))
		return
	}
	log.Printf("%s %s %d %.2fms", e.Method, e.Path, e.StatusCode, e.DurationMS)
}

func statusBucket(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i != -1 {
		return host[:i]
	}
	return host
}

func init() {
	log.SetOutput(os.Stdout)
	log.SetFlags(0)
}
