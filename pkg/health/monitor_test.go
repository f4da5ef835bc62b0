package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"groundlink/pkg/models"
	"groundlink/pkg/registry"

	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

// scriptedProber returns fixed readings and lets tests fail individual stations.
type scriptedProber struct {
	mu       sync.Mutex
	readings map[string]models.HealthSnapshot
	failures map[string]error
	panics   map[string]bool
	probes   int
}

func newScriptedProber() *scriptedProber {
	return &scriptedProber{
		readings: map[string]models.HealthSnapshot{},
		failures: map[string]error{},
		panics:   map[string]bool{},
	}
}

func (p *scriptedProber) Baseline(station models.Station) models.HealthSnapshot {
	return models.HealthSnapshot{StationID: station.ID, Uptime: 0.99, ConsensusRate: 0.98, LatencyMs: 60, Throughput: 700}
}

func (p *scriptedProber) Probe(_ context.Context, station models.Station, current models.HealthSnapshot) (models.HealthSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.probes++
	if p.panics[station.ID] {
		panic("probe exploded")
	}
	if err := p.failures[station.ID]; err != nil {
		return current, err
	}
	if reading, ok := p.readings[station.ID]; ok {
		return reading, nil
	}
	current.LastSeen++
	return current, nil
}

func (p *scriptedProber) set(id string, reading models.HealthSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readings[id] = reading
}

func (p *scriptedProber) probeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.probes
}

// MonitorTestSuite tests the health monitor lifecycle and admission gate.
type MonitorTestSuite struct {
	suite.Suite
	registry *registry.Registry
}

func (s *MonitorTestSuite) SetupTest() {
	s.registry = registry.Default()
}

func (s *MonitorTestSuite) TearDownTest() {
	goleak.VerifyNone(s.T())
}

func (s *MonitorTestSuite) TestStartSeedsOptimisticDefaults() {
	monitor := NewMonitor(s.registry, NewRandomWalk(1), time.Hour, 0)
	monitor.Start()
	defer monitor.Stop()

	snapshots := monitor.Snapshots()
	s.Require().Len(snapshots, s.registry.Len())

	for i, snapshot := range snapshots {
		s.Equal(s.registry.All()[i].ID, snapshot.StationID)
		s.InDelta(0.99, snapshot.Uptime, 1e-9)
		s.InDelta(0.98, snapshot.ConsensusRate, 1e-9)
		s.GreaterOrEqual(snapshot.LatencyMs, 50.0)
		s.Less(snapshot.LatencyMs, 100.0)
		s.GreaterOrEqual(snapshot.Throughput, 500.0)
		s.Less(snapshot.Throughput, 1000.0)
		s.True(monitor.IsHealthy(snapshot.StationID))
	}
}

func (s *MonitorTestSuite) TestNoSnapshotsBeforeStart() {
	monitor := NewMonitor(s.registry, NewRandomWalk(1), time.Hour, 0)

	_, ok := monitor.Snapshot("chennai")
	s.False(ok)
	s.False(monitor.IsHealthy("chennai"))
	s.False(monitor.Running())
}

func (s *MonitorTestSuite) TestUnknownStationFailsClosed() {
	monitor := NewMonitor(s.registry, NewRandomWalk(1), time.Hour, 0)
	monitor.Start()
	defer monitor.Stop()

	_, ok := monitor.Snapshot("houston")
	s.False(ok)
	s.False(monitor.IsHealthy("houston"))
}

func (s *MonitorTestSuite) TestRandomWalkStaysClamped() {
	monitor := NewMonitor(s.registry, NewRandomWalk(42), time.Hour, 0)
	monitor.Start()
	defer monitor.Stop()

	heights := map[string]uint64{}
	for _, snapshot := range monitor.Snapshots() {
		heights[snapshot.StationID] = snapshot.LastSeen
	}

	for tick := 0; tick < 2000; tick++ {
		monitor.checkAllStations()
	}

	for _, snapshot := range monitor.Snapshots() {
		s.GreaterOrEqual(snapshot.Uptime, 0.97)
		s.LessOrEqual(snapshot.Uptime, 1.0)
		s.GreaterOrEqual(snapshot.ConsensusRate, 0.97)
		s.LessOrEqual(snapshot.ConsensusRate, 1.0)
		s.GreaterOrEqual(snapshot.LatencyMs, 30.0)
		s.LessOrEqual(snapshot.LatencyMs, 150.0)
		s.GreaterOrEqual(snapshot.Throughput, 200.0)
		s.LessOrEqual(snapshot.Throughput, 2000.0)
		s.GreaterOrEqual(snapshot.LastSeen, heights[snapshot.StationID]+2000)
		s.LessOrEqual(snapshot.LastSeen, heights[snapshot.StationID]+6000)
		s.True(monitor.IsHealthy(snapshot.StationID), snapshot.StationID)
	}
}

func (s *MonitorTestSuite) TestHealthThresholds() {
	prober := newScriptedProber()
	monitor := NewMonitor(s.registry, prober, time.Hour, 0)
	monitor.Start()
	defer monitor.Stop()

	prober.set("chennai", models.HealthSnapshot{Uptime: 0.94, ConsensusRate: 0.99, LatencyMs: 40})
	prober.set("delhi", models.HealthSnapshot{Uptime: 0.99, ConsensusRate: 0.949, LatencyMs: 40})
	prober.set("mumbai", models.HealthSnapshot{Uptime: 0.99, ConsensusRate: 0.99, LatencyMs: 150})
	prober.set("sriharikota", models.HealthSnapshot{Uptime: 0.95, ConsensusRate: 0.95, LatencyMs: 149.9})
	monitor.checkAllStations()

	s.False(monitor.IsHealthy("chennai"))
	s.False(monitor.IsHealthy("delhi"))
	s.False(monitor.IsHealthy("mumbai"))
	s.True(monitor.IsHealthy("sriharikota"))
	s.True(monitor.IsHealthy("bangalore"))
}

func (s *MonitorTestSuite) TestProbeFailureKeepsPreviousSnapshot() {
	prober := newScriptedProber()
	monitor := NewMonitor(s.registry, prober, time.Hour, 0)
	monitor.Start()
	defer monitor.Stop()

	before, _ := monitor.Snapshot("chennai")
	prober.failures["chennai"] = errors.New("link down")
	prober.panics["delhi"] = true
	monitor.checkAllStations()

	after, ok := monitor.Snapshot("chennai")
	s.Require().True(ok)
	s.Equal(before.Uptime, after.Uptime)
	s.Equal(before.LastSeen, after.LastSeen)
	s.Equal(before.CheckedAt, after.CheckedAt)
	s.Equal("link down", after.LastError)

	delhi, _ := monitor.Snapshot("delhi")
	s.Contains(delhi.LastError, "probe panicked")

	// Other stations keep refreshing.
	mumbai, _ := monitor.Snapshot("mumbai")
	s.Equal(uint64(1), mumbai.LastSeen)
	s.Empty(mumbai.LastError)

	// A later successful probe clears the error.
	delete(prober.failures, "chennai")
	monitor.checkAllStations()
	recovered, _ := monitor.Snapshot("chennai")
	s.Empty(recovered.LastError)
	s.False(recovered.CheckedAt.Before(after.CheckedAt))
}

func (s *MonitorTestSuite) TestPeriodicRefresh() {
	prober := newScriptedProber()
	monitor := NewMonitor(s.registry, prober, 10*time.Millisecond, 0)
	monitor.Start()
	defer monitor.Stop()

	s.Eventually(func() bool {
		snapshot, _ := monitor.Snapshot("bangalore")
		return snapshot.LastSeen >= 3
	}, 2*time.Second, 5*time.Millisecond)
}

func (s *MonitorTestSuite) TestStopIsIdempotent() {
	prober := newScriptedProber()
	monitor := NewMonitor(s.registry, prober, 5*time.Millisecond, 0)

	monitor.Stop()
	monitor.Start()
	monitor.Start()
	s.True(monitor.Running())

	monitor.Stop()
	monitor.Stop()
	s.False(monitor.Running())

	probes := prober.probeCount()
	time.Sleep(30 * time.Millisecond)
	s.Equal(probes, prober.probeCount())

	// Snapshots survive a stop.
	_, ok := monitor.Snapshot("delhi")
	s.True(ok)
}

func (s *MonitorTestSuite) TestRestartKeepsSnapshots() {
	prober := newScriptedProber()
	monitor := NewMonitor(s.registry, prober, time.Hour, 0)
	monitor.Start()
	monitor.checkAllStations()
	monitor.Stop()

	monitor.Start()
	defer monitor.Stop()

	snapshot, _ := monitor.Snapshot("delhi")
	s.Equal(uint64(1), snapshot.LastSeen)
}

func TestMonitorSuite(t *testing.T) {
	suite.Run(t, new(MonitorTestSuite))
}
