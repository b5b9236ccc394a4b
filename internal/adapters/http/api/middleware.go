package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/placar/pkg/metrics"
)

// MetricsMiddleware wraps a handler to record request counts, durations and
// error classes under endpoint.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := float64(time.Since(start).Microseconds()) / 1000
		code := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, elapsed)

		if rec.status >= http.StatusBadRequest {
			class, severity := classify(rec.status)
			metrics.RecordErrorByEndpoint(endpoint, r.Method, class)
			metrics.RecordErrorByType(class, severity)
			metrics.RecordErrorLatency("http", class, elapsed)
		}
	}
}

// classify maps an error status to an error class and severity.
func classify(status int) (class, severity string) {
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error", "high"
	case status == http.StatusTooManyRequests:
		return "backpressure", "medium"
	case status == http.StatusNotFound:
		return "not_found", "low"
	default:
		return "client_error", "medium"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}
