package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"saquabus.org/internal/app"
	"saquabus.org/internal/appconf"
	"saquabus.org/internal/cache"
	"saquabus.org/internal/clock"
	"saquabus.org/internal/llm"
	"saquabus.org/internal/logging"
	"saquabus.org/internal/maps"
	"saquabus.org/internal/metrics"
	"saquabus.org/internal/planner"
	"saquabus.org/internal/restapi"
	"saquabus.org/internal/transit"
	"saquabus.org/internal/webui"
	"saquabus.org/transitdb"
)

// fakeTimeEnv pins the service clock outside production, e.g. "2024-05-06 09:00".
const fakeTimeEnv = "SAQUABUS_FAKE_TIME"

// BuildApplication wires the store, the network snapshot, the lookup providers and the
// planner. Providers without credentials are left out and the planner reports them as
// unavailable.
func BuildApplication(cfg appconf.Config) (*app.Application, error) {
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	clk := serviceClock(cfg, loc)

	m := metrics.NewWithLogger(logger)

	client, err := transitdb.NewClient(transitdb.NewConfig(cfg.DBPath, cfg.Env, cfg.Verbose))
	if err != nil {
		m.Shutdown()
		return nil, fmt.Errorf("failed to open transit database: %w", err)
	}
	m.StartDBStatsCollector(client.DB, 15*time.Second)

	mapsClient, err := maps.NewClient(cfg.Maps, m)
	switch {
	case errors.Is(err, maps.ErrNotConfigured):
		logger.Warn("maps API key missing, geocoding and travel times are disabled")
	case err != nil:
		logging.LogError(logger, "failed to create maps client", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	manager, err := transit.InitManager(ctx, client, transit.Config{
		SeedPath:   cfg.SeedPath,
		GTFSSource: cfg.GTFSPath,
		OnReload:   networkReloaded(m, mapsClient),
	}, clk)
	if err != nil {
		logging.SafeCloseWithLogging(client, logger, "transit database")
		m.Shutdown()
		return nil, fmt.Errorf("failed to initialize transit manager: %w", err)
	}

	store := newCacheStore(ctx, cfg.Cache, logger)

	deps := planner.Dependencies{
		Network: func() planner.Network { return manager.Snapshot() },
		Clock:   clk,
	}
	if mapsClient != nil {
		deps.Geocoder = maps.NewCachedGeocoder(mapsClient, store, cfg.Cache.GeocodeTTL, m)
		deps.Travel = maps.NewCachedTravelTimer(mapsClient, store, cfg.Cache.TravelTTL, m)
	}

	predictor, err := llm.NewPredictor(ctx, cfg.LLM, cfg.Planner.ExternalTimeout, m, "")
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		logger.Warn("gemini API key missing, natural language predictions are disabled")
	case err != nil:
		logging.LogError(logger, "failed to create gemini client", err)
	default:
		deps.Predictor = predictor
	}

	return &app.Application{
		Config:         cfg,
		Logger:         logger,
		TransitManager: manager,
		Planner:        planner.New(cfg.Planner, deps),
		Cache:          store,
		Clock:          clk,
		Metrics:        m,
	}, nil
}

// networkReloaded publishes the counts of every new snapshot and re-biases geocoding to
// the box around its stops. mapsClient may be nil.
func networkReloaded(m *metrics.Metrics, mapsClient *maps.Client) func(*transit.Snapshot) {
	return func(snap *transit.Snapshot) {
		m.SetNetworkCounts(snap.Counts())
		if mapsClient == nil {
			return
		}
		if b, ok := snap.Bounds(); ok {
			mapsClient.BiasTo(b)
		}
	}
}

func newLogger(cfg appconf.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	return logging.NewStructuredLogger(os.Stdout, level, cfg.Env == appconf.Production)
}

// serviceClock is the wall clock in the service zone, or outside production a replay of
// the instant pinned in fakeTimeEnv.
func serviceClock(cfg appconf.Config, loc *time.Location) clock.Clock {
	if cfg.Env != appconf.Production && os.Getenv(fakeTimeEnv) != "" {
		replay, err := clock.NewReplayClock(fakeTimeEnv, "", loc)
		if err == nil {
			return clock.InLocation(replay, loc)
		}
		logging.LogError(slog.Default(), "ignoring pinned time", err)
	}
	return clock.InLocation(clock.RealClock{}, loc)
}

// newCacheStore prefers Redis when configured and falls back to the in-process cache.
func newCacheStore(ctx context.Context, cfg appconf.CacheConfig, logger *slog.Logger) cache.Store {
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err == nil {
			logging.LogOperation(logger, "redis_cache_connected", slog.String("addr", cfg.RedisAddr))
			return rc
		}
		logging.LogError(logger, "redis unavailable, using in-memory cache", err,
			slog.String("addr", cfg.RedisAddr))
	}
	return cache.NewMemoryCache(cfg.Size)
}

// CreateServer builds the HTTP server with every route and middleware attached. The
// returned RestAPI must be shut down by the caller.
func CreateServer(coreApp *app.Application, cfg appconf.Config) (*http.Server, *restapi.RestAPI) {
	api := restapi.NewRestAPI(coreApp)
	webUI := &webui.WebUI{Application: coreApp}

	mux := http.NewServeMux()
	api.SetRoutes(mux)
	webUI.SetWebUIRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.Handler(mux),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 20 * time.Second,
	}
	return srv, api
}

// Run serves until SIGINT or SIGTERM, then drains requests and releases every resource.
func Run(srv *http.Server, coreApp *app.Application, api *restapi.RestAPI) error {
	logger := coreApp.Logger

	serverErr := make(chan error, 1)
	go func() {
		logging.LogOperation(logger, "starting_server",
			slog.String("addr", srv.Addr),
			slog.String("env", coreApp.Config.Env.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case sig := <-quit:
		logging.LogOperation(logger, "shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		runErr = err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.LogError(logger, "server shutdown failed", err)
		if runErr == nil {
			runErr = err
		}
	}

	api.Shutdown()
	Shutdown(coreApp)
	logging.LogOperation(logger, "shutdown_complete")
	return runErr
}

// Shutdown stops background work and closes the store and the cache.
func Shutdown(coreApp *app.Application) {
	logger := coreApp.Logger
	if coreApp.TransitManager != nil {
		coreApp.TransitManager.Shutdown()
		logging.SafeCloseWithLogging(coreApp.TransitManager.DB(), logger, "transit database")
	}
	if coreApp.Cache != nil {
		logging.SafeCloseWithLogging(coreApp.Cache, logger, "cache")
	}
	if coreApp.Metrics != nil {
		coreApp.Metrics.Shutdown()
	}
}
