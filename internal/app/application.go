// Package app holds the dependencies shared by the HTTP handlers.
package app

import (
	"log/slog"

	"saquabus.org/internal/appconf"
	"saquabus.org/internal/cache"
	"saquabus.org/internal/clock"
	"saquabus.org/internal/metrics"
	"saquabus.org/internal/planner"
	"saquabus.org/internal/transit"
)

// Application is built once in main and embedded by the REST API.
type Application struct {
	Config         appconf.Config
	Logger         *slog.Logger
	TransitManager *transit.Manager
	Planner        *planner.Planner
	Cache          cache.Store
	Clock          clock.Clock
	Metrics        *metrics.Metrics
}
