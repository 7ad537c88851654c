package middleware

import (
	"net/http"
	"time"
)

// HTTPMetrics records request counts, latency and concurrency.
type HTTPMetrics interface {
	RecordHTTPRequest(method, path string, status int, d time.Duration)
	RequestInFlight(delta int)
}

// Metrics labels requests by route pattern so path parameters do not
// explode label cardinality.
func Metrics(m HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.RequestInFlight(1)
			defer m.RequestInFlight(-1)

			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)
			m.RecordHTTPRequest(r.Method, routePattern(r), rec.statusCode, time.Since(start))
		})
	}
}
