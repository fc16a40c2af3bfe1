package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/scholarsync/pkg/metrics"
)

// MetricsMiddleware records request count and latency per endpoint, and an
// error metric labelled with the envelope code of failed responses.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &recorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		status := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, float64(time.Since(start).Milliseconds()))

		if rec.status >= http.StatusBadRequest {
			metrics.RecordErrorByComponent("http", errorKind(rec))
		}
	}
}

// errorKind prefers the code written by writeError and falls back to the
// status class.
func errorKind(rec *recorder) string {
	if rec.code != "" {
		return rec.code
	}
	switch {
	case rec.status == http.StatusServiceUnavailable:
		return "unavailable"
	case rec.status >= http.StatusInternalServerError:
		return "server_error"
	case rec.status == http.StatusNotFound:
		return "not_found"
	case rec.status == http.StatusMethodNotAllowed:
		return "method_not_allowed"
	default:
		return "client_error"
	}
}

// recorder captures the status and the error envelope code.
type recorder struct {
	http.ResponseWriter
	status int
	code   string
}

func (rw *recorder) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

// noteErrorCode tags w with code when it is wrapped by MetricsMiddleware.
func noteErrorCode(w http.ResponseWriter, code string) {
	if rw, ok := w.(*recorder); ok {
		rw.code = code
	}
}
