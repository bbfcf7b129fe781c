package transit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"saquabus.org/internal/clock"
	"saquabus.org/internal/logging"
	"saquabus.org/transitdb"
)

// Config names the network sources imported into the store.
type Config struct {
	SeedPath string
	// GTFSSource is a local path or an http(s) URL. Remote feeds are re-imported daily.
	GTFSSource      string
	RefreshInterval time.Duration
	// OnReload, when set, receives every newly loaded snapshot after it is published.
	OnReload func(snap *Snapshot)
}

// Manager owns the store and the current Snapshot. Readers take the snapshot once per
// request; reloads swap it under the write lock.
type Manager struct {
	config Config
	client *transitdb.Client
	clock  clock.Clock

	staticMutex sync.RWMutex
	snapshot    *Snapshot
	loadedAt    time.Time

	updateMutex sync.Mutex
	isHealthy   atomic.Bool

	shutdownChan chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// InitManager imports the configured sources, loads the first snapshot and, for a remote
// GTFS feed, starts the periodic re-import.
func InitManager(ctx context.Context, client *transitdb.Client, config Config, clk clock.Clock) (*Manager, error) {
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = 24 * time.Hour
	}
	m := &Manager{
		config:       config,
		client:       client,
		clock:        clk,
		shutdownChan: make(chan struct{}),
	}

	if err := m.ForceUpdate(ctx); err != nil {
		return nil, err
	}

	if isRemote(config.GTFSSource) {
		m.wg.Add(1)
		go m.updatePeriodically()
	}
	return m, nil
}

// ForceUpdate re-imports every source and reloads the snapshot. Unchanged sources are
// skipped by the store.
func (m *Manager) ForceUpdate(ctx context.Context) error {
	m.updateMutex.Lock()
	defer m.updateMutex.Unlock()

	logger := slog.Default().With(slog.String("component", "transit_updater"))

	if m.config.SeedPath != "" {
		if err := m.client.ImportSeedFile(ctx, m.config.SeedPath); err != nil {
			logging.LogError(logger, "Error importing seed", err, slog.String("source", m.config.SeedPath))
			return err
		}
	}

	if m.config.GTFSSource != "" {
		data, err := fetchSource(ctx, m.config.GTFSSource)
		if err != nil {
			logging.LogError(logger, "Error fetching GTFS feed", err, slog.String("source", m.config.GTFSSource))
			return err
		}
		if err := m.client.ImportGTFS(ctx, data, m.config.GTFSSource); err != nil {
			logging.LogError(logger, "Error importing GTFS feed", err, slog.String("source", m.config.GTFSSource))
			return err
		}
	}

	return m.reloadLocked(ctx)
}

// Reload rebuilds the snapshot from the store without touching the sources.
func (m *Manager) Reload(ctx context.Context) error {
	m.updateMutex.Lock()
	defer m.updateMutex.Unlock()
	return m.reloadLocked(ctx)
}

func (m *Manager) reloadLocked(ctx context.Context) error {
	snap, err := LoadSnapshot(ctx, m.client.Queries)
	if err != nil {
		m.MarkUnhealthy()
		return err
	}

	m.staticMutex.Lock()
	m.snapshot = snap
	m.loadedAt = m.clock.Now()
	m.staticMutex.Unlock()

	m.MarkHealthy()

	if m.config.OnReload != nil {
		m.config.OnReload(snap)
	}
	counts := snap.Counts()
	logging.LogOperation(slog.Default().With(slog.String("component", "transit_manager")), "snapshot_loaded",
		slog.Int("lines", counts["lines"]),
		slog.Int("stops", counts["stops"]),
		slog.Int("departures", counts["departures"]))
	return nil
}

func (m *Manager) updatePeriodically() {
	defer m.wg.Done()

	logger := slog.Default().With(slog.String("component", "transit_updater"))

	ticker := time.NewTicker(m.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			err := m.ForceUpdate(ctx)
			cancel()
			if err != nil && !errors.Is(err, context.Canceled) {
				logging.LogError(logger, "Error updating network data", err,
					slog.String("source", m.config.GTFSSource))
			}
		case <-m.shutdownChan:
			logging.LogOperation(logger, "shutting_down_network_updates")
			return
		}
	}
}

// Snapshot returns the current network. It is never nil after InitManager succeeds.
func (m *Manager) Snapshot() *Snapshot {
	m.staticMutex.RLock()
	defer m.staticMutex.RUnlock()
	return m.snapshot
}

func (m *Manager) LoadedAt() time.Time {
	m.staticMutex.RLock()
	defer m.staticMutex.RUnlock()
	return m.loadedAt
}

func (m *Manager) DB() *transitdb.Client {
	return m.client
}

func (m *Manager) IsHealthy() bool {
	return m.isHealthy.Load()
}

func (m *Manager) MarkHealthy() {
	m.isHealthy.Store(true)
}

func (m *Manager) MarkUnhealthy() {
	m.isHealthy.Store(false)
}

// Shutdown stops the background updater. It does not close the store.
func (m *Manager) Shutdown() {
	m.shutdownOnce.Do(func() {
		close(m.shutdownChan)
	})
	m.wg.Wait()
}
