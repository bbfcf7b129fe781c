// Package restapi serves the transit API over HTTP.
package restapi

import (
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"saquabus.org/internal/app"
	"saquabus.org/internal/clock"
)

type RestAPI struct {
	*app.Application
	rateLimiter *RateLimitMiddleware
}

func NewRestAPI(a *app.Application) *RestAPI {
	var clk clock.Clock = clock.RealClock{}
	if a.Clock != nil {
		clk = a.Clock
	}
	return &RestAPI{
		Application: a,
		rateLimiter: NewRateLimitMiddleware(a.Config.RateLimit, time.Second, a.Config.ApiKeys, clk),
	}
}

// Cache lifetimes in seconds per kind of answer.
const (
	cacheNone    = 0
	cacheShort   = 30
	cacheNetwork = 300
)

// SetRoutes registers every endpoint on mux.
func (api *RestAPI) SetRoutes(mux *http.ServeMux) {
	handle := func(pattern string, seconds int, h http.HandlerFunc) {
		mux.Handle(pattern, CacheControlMiddleware(seconds, h))
	}

	mux.HandleFunc("GET /healthz", api.healthHandler)
	handle("GET /api/current-time", cacheNone, api.currentTimeHandler)
	handle("GET /api/config", cacheNetwork, api.configHandler)

	handle("GET /api/planner/trip", cacheNone, api.planTripHandler)

	handle("GET /api/lines", cacheNetwork, api.linesHandler)
	handle("GET /api/lines/common", cacheShort, api.commonLinesHandler)
	handle("GET /api/lines/{number}/route", cacheNetwork, api.lineRouteHandler)
	handle("GET /api/lines/{number}/schedule", cacheNetwork, api.lineScheduleHandler)
	handle("GET /api/lines/{number}/stops/{stopId}/arrivals", cacheShort, api.lineArrivalsHandler)

	handle("GET /api/stops", cacheNetwork, api.stopsHandler)
	handle("GET /api/stops/nearby", cacheShort, api.nearbyStopsHandler)
	handle("GET /api/stops/{id}", cacheNetwork, api.stopHandler)
	handle("GET /api/stops/{id}/predictions", cacheNone, api.stopPredictionsHandler)

	handle("POST /api/admin/lines", cacheNone, api.requireAPIKey(api.createLineHandler))
	handle("POST /api/admin/stops", cacheNone, api.requireAPIKey(api.createStopHandler))
	handle("POST /api/admin/lines/{number}/schedules", cacheNone, api.requireAPIKey(api.createScheduleHandler))
	handle("POST /api/admin/lines/{number}/stops", cacheNone, api.requireAPIKey(api.addStopToLineHandler))
	handle("POST /api/admin/reload", cacheNone, api.requireAPIKey(api.reloadHandler))

	if api.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(api.Metrics.Registry, promhttp.HandlerOpts{}))
	}
}

// Handler wraps mux with the middleware chain. Outermost first: request id, logging,
// metrics, CORS, rate limiting, compression.
func (api *RestAPI) Handler(mux http.Handler) http.Handler {
	var h http.Handler = compress(mux)
	h = api.rateLimiter.Handler()(h)
	h = CORSMiddleware(h)
	h = MetricsHandler(api.Metrics)(h)
	h = NewRequestLoggingMiddleware(api.Logger)(h)
	return RequestIDMiddleware(h)
}

func compress(next http.Handler) http.Handler {
	wrapper, err := gzhttp.NewWrapper(
		gzhttp.MinSize(1024),
		gzhttp.CompressionLevel(6),
	)
	if err != nil {
		return gzhttp.GzipHandler(next)
	}
	return wrapper(next)
}

// Shutdown stops background work owned by the API.
func (api *RestAPI) Shutdown() {
	if api.rateLimiter != nil {
		api.rateLimiter.Stop()
	}
}
