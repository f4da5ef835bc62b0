package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"groundlink/pkg/log"
	"groundlink/pkg/metrics"
	"groundlink/pkg/models"
)

const (
	defaultCheckInterval = 5 * time.Second
	defaultCheckTimeout  = 2 * time.Second
)

// Admission gate thresholds.
const (
	MinUptime        = 0.95
	MinConsensusRate = 0.95
	MaxLatencyMs     = 150.0
)

// StationLister provides the fixed set of stations to monitor.
type StationLister interface {
	All() []models.Station
}

// Monitor keeps one periodically refreshed health snapshot per station.
type Monitor struct {
	stations      []models.Station
	prober        Prober
	snapshots     map[string]*models.HealthSnapshot
	mu            sync.RWMutex
	checkInterval time.Duration
	checkTimeout  time.Duration

	lifecycle sync.Mutex
	running   bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewMonitor creates a stopped monitor for every station in lister.
func NewMonitor(lister StationLister, prober Prober, checkInterval, checkTimeout time.Duration) *Monitor {
	if checkInterval <= 0 {
		checkInterval = defaultCheckInterval
	}
	if checkTimeout <= 0 {
		checkTimeout = defaultCheckTimeout
	}

	stations := lister.All()
	return &Monitor{
		stations:      stations,
		prober:        prober,
		snapshots:     make(map[string]*models.HealthSnapshot, len(stations)),
		checkInterval: checkInterval,
		checkTimeout:  checkTimeout,
	}
}

// Start seeds missing snapshots with baseline values and begins periodic refresh.
// Calling Start on a running monitor does nothing.
func (m *Monitor) Start() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if m.running {
		return
	}

	now := time.Now()
	m.mu.Lock()
	for _, station := range m.stations {
		if _, exists := m.snapshots[station.ID]; exists {
			continue
		}
		snapshot := m.prober.Baseline(station)
		snapshot.StationID = station.ID
		snapshot.CheckedAt = now
		m.snapshots[station.ID] = &snapshot
		publish(&snapshot)
	}
	m.mu.Unlock()

	m.stopCh = make(chan struct{})
	m.running = true
	m.wg.Add(1)
	go m.refreshLoop(m.stopCh)

	log.Info().
		Int("station_count", len(m.stations)).
		Dur("interval", m.checkInterval).
		Msg("Health monitor started")
}

// Stop halts periodic refresh. It is safe to call more than once.
func (m *Monitor) Stop() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if !m.running {
		return
	}

	close(m.stopCh)
	m.wg.Wait()
	m.running = false
	log.Info().Msg("Health monitor stopped")
}

// Running reports whether periodic refresh is active.
func (m *Monitor) Running() bool {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	return m.running
}

// Snapshot returns a copy of the current snapshot for station id.
func (m *Monitor) Snapshot(id string) (models.HealthSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot, exists := m.snapshots[id]
	if !exists {
		return models.HealthSnapshot{}, false
	}
	return *snapshot, true
}

// Snapshots returns copies of all snapshots in station order.
func (m *Monitor) Snapshots() []models.HealthSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.HealthSnapshot, 0, len(m.snapshots))
	for _, station := range m.stations {
		if snapshot, exists := m.snapshots[station.ID]; exists {
			out = append(out, *snapshot)
		}
	}
	return out
}

// IsHealthy reports whether station id passes the admission gate.
// Unknown stations are never healthy.
func (m *Monitor) IsHealthy(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot, exists := m.snapshots[id]
	if !exists {
		return false
	}
	return Healthy(*snapshot)
}

// Healthy applies the admission gate thresholds to a snapshot.
func Healthy(snapshot models.HealthSnapshot) bool {
	return snapshot.Uptime >= MinUptime &&
		snapshot.ConsensusRate >= MinConsensusRate &&
		snapshot.LatencyMs < MaxLatencyMs
}

func (m *Monitor) refreshLoop(stopCh <-chan struct{}) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			m.checkAllStations()
		}
	}
}

// checkAllStations probes every station concurrently and waits for all of them.
func (m *Monitor) checkAllStations() {
	var waitGroup sync.WaitGroup
	for _, station := range m.stations {
		waitGroup.Add(1)
		go func(st models.Station) {
			defer waitGroup.Done()
			m.checkStation(st)
		}(station)
	}
	waitGroup.Wait()
}

// checkStation refreshes one snapshot. A failed probe keeps the previous metrics.
func (m *Monitor) checkStation(station models.Station) {
	m.mu.RLock()
	current, exists := m.snapshots[station.ID]
	var previous models.HealthSnapshot
	if exists {
		previous = *current
	}
	m.mu.RUnlock()

	if !exists {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.checkTimeout)
	defer cancel()

	next, err := m.safeProbe(ctx, station, previous)

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshots[station.ID]

	if err != nil {
		snapshot.LastError = err.Error()
		metrics.RecordProbeFailure(station.ID)
		log.Warn().
			Str("station", station.ID).
			Err(err).
			Msg("Health probe failed, keeping previous snapshot")
		return
	}

	wasHealthy := Healthy(*snapshot)
	*snapshot = next
	snapshot.StationID = station.ID
	snapshot.CheckedAt = time.Now()
	snapshot.LastError = ""
	publish(snapshot)

	if healthy := Healthy(*snapshot); healthy != wasHealthy {
		log.Info().
			Str("station", station.ID).
			Bool("healthy", healthy).
			Float64("uptime", snapshot.Uptime).
			Float64("consensus_rate", snapshot.ConsensusRate).
			Float64("latency_ms", snapshot.LatencyMs).
			Msg("Station health changed")
	}
}

func (m *Monitor) safeProbe(ctx context.Context, station models.Station, current models.HealthSnapshot) (next models.HealthSnapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("probe panicked: %v", r)
		}
	}()
	return m.prober.Probe(ctx, station, current)
}

func publish(snapshot *models.HealthSnapshot) {
	metrics.SetStationHealth(
		snapshot.StationID,
		snapshot.Uptime,
		snapshot.ConsensusRate,
		snapshot.LatencyMs,
		snapshot.Throughput,
		Healthy(*snapshot),
	)
}
