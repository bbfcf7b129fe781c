package restapi

import (
	"fmt"
	"net/http"
)

const noStore = "no-cache, no-store, must-revalidate"

// CacheControlMiddleware marks successful responses cacheable for maxAge seconds. Errors,
// and every response when maxAge is zero, are marked uncacheable so a transient 503 from
// the geocoder is never pinned in a client cache.
func CacheControlMiddleware(maxAge int, next http.Handler) http.Handler {
	onSuccess := noStore
	if maxAge > 0 {
		onSuccess = fmt.Sprintf("public, max-age=%d", maxAge)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(&cacheControlWriter{ResponseWriter: w, onSuccess: onSuccess}, r)
	})
}

type cacheControlWriter struct {
	http.ResponseWriter
	onSuccess string
	decided   bool
}

func (w *cacheControlWriter) WriteHeader(code int) {
	if !w.decided {
		w.decided = true
		value := noStore
		if code >= 200 && code < 300 {
			value = w.onSuccess
		}
		w.Header().Set("Cache-Control", value)
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *cacheControlWriter) Write(b []byte) (int, error) {
	if !w.decided {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *cacheControlWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
