package restapi

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bluele/gcache"
	"golang.org/x/time/rate"
	"saquabus.org/internal/app"
	"saquabus.org/internal/clock"
	"saquabus.org/internal/models"
)

const (
	maxTrackedClients = 50_000
	// A bucket is dropped this long after it was created. The replacement starts full,
	// which is harmless when the window is far shorter.
	bucketTTL = 10 * time.Minute
)

// RateLimitMiddleware gives every client address its own token bucket of `requests`
// tokens refilled over `window`. Buckets live in a bounded LRU. Callers presenting an
// admin key are never limited. A non-positive request count disables limiting.
type RateLimitMiddleware struct {
	buckets    gcache.Cache
	limit      rate.Limit
	refill     time.Duration
	burst      int
	exemptKeys map[string]bool
	clock      clock.Clock
}

func NewRateLimitMiddleware(requests int, window time.Duration, exemptKeys []string, clk clock.Clock) *RateLimitMiddleware {
	rl := &RateLimitMiddleware{
		limit:      rate.Inf,
		burst:      requests,
		exemptKeys: make(map[string]bool, len(exemptKeys)),
		clock:      clk,
	}
	if requests > 0 && window > 0 {
		rl.refill = window / time.Duration(requests)
		rl.limit = rate.Every(rl.refill)
	}
	for _, key := range exemptKeys {
		if key = strings.TrimSpace(key); key != "" {
			rl.exemptKeys[key] = true
		}
	}
	rl.buckets = gcache.New(maxTrackedClients).
		LRU().
		Expiration(bucketTTL).
		Clock(clk).
		LoaderFunc(func(any) (any, error) {
			return rate.NewLimiter(rl.limit, rl.burst), nil
		}).
		Build()
	return rl
}

// Handler returns the middleware.
func (rl *RateLimitMiddleware) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rl.limit == rate.Inf {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.exemptKeys[app.RequestAPIKey(r)] || rl.bucket(clientAddress(r)).AllowN(rl.clock.Now(), 1) {
				next.ServeHTTP(w, r)
				return
			}
			rl.tooManyRequests(w)
		})
	}
}

func (rl *RateLimitMiddleware) bucket(client string) *rate.Limiter {
	v, err := rl.buckets.Get(client)
	if lim, ok := v.(*rate.Limiter); err == nil && ok {
		return lim
	}
	return rate.NewLimiter(rl.limit, rl.burst)
}

// retryAfter is the time for one token to come back, rounded up to whole seconds.
func (rl *RateLimitMiddleware) retryAfter() int {
	return max(1, int((rl.refill+time.Second-1)/time.Second))
}

func (rl *RateLimitMiddleware) tooManyRequests(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter()))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burst))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.WriteHeader(http.StatusTooManyRequests)

	body := models.NewResponse(http.StatusTooManyRequests, nil, "Rate limit exceeded. Please try again later.", rl.clock)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode rate limit response", slog.String("error", err.Error()))
	}
}

// clientAddress identifies the caller by the first X-Forwarded-For hop, falling back to
// the connection's remote host.
func clientAddress(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Stop drops every bucket.
func (rl *RateLimitMiddleware) Stop() {
	rl.buckets.Purge()
}
