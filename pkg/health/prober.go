package health

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"

	"groundlink/pkg/models"
)

const (
	baselineUptime           = 0.99
	baselineConsensusRate    = 0.98
	baselineLatencyMin       = 50.0
	baselineLatencySpread    = 50.0
	baselineThroughputMin    = 500.0
	baselineThroughputSpread = 500.0
	baselineBlockHeight      = 1_000_000

	uptimeStep      = 0.01
	consensusStep   = 0.02
	latencyStep     = 20.0
	throughputStep  = 200.0
	maxBlockAdvance = 3

	minWalkRatio      = 0.97
	maxWalkRatio      = 1.0
	minWalkLatency    = 30.0
	minWalkThroughput = 200.0
	maxWalkThroughput = 2000.0
)

// maxWalkLatency sits just under MaxLatencyMs so the walk alone can never
// push a station out of the admission gate.
var maxWalkLatency = math.Nextafter(MaxLatencyMs, 0)

// Prober produces station health readings.
type Prober interface {
	// Baseline returns the reading a station starts with when the monitor starts.
	Baseline(station models.Station) models.HealthSnapshot
	// Probe returns the next reading for station given its current one.
	Probe(ctx context.Context, station models.Station, current models.HealthSnapshot) (models.HealthSnapshot, error)
}

// RandomWalk is a simulated prober: every probe nudges each metric by a bounded
// random step and clamps it to a range that always passes the admission gate.
type RandomWalk struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomWalk returns a prober seeded with seed.
func NewRandomWalk(seed uint64) *RandomWalk {
	return &RandomWalk{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Baseline returns optimistic starting values.
func (w *RandomWalk) Baseline(station models.Station) models.HealthSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	return models.HealthSnapshot{
		StationID:     station.ID,
		Uptime:        baselineUptime,
		LastSeen:      baselineBlockHeight + w.rng.Uint64N(baselineBlockHeight/10),
		ConsensusRate: baselineConsensusRate,
		LatencyMs:     baselineLatencyMin + w.rng.Float64()*baselineLatencySpread,
		Throughput:    baselineThroughputMin + w.rng.Float64()*baselineThroughputSpread,
	}
}

// Probe advances current by one random step.
func (w *RandomWalk) Probe(ctx context.Context, station models.Station, current models.HealthSnapshot) (models.HealthSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return current, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	next := current
	next.StationID = station.ID
	next.Uptime = clamp(current.Uptime+w.jitter(uptimeStep), minWalkRatio, maxWalkRatio)
	next.ConsensusRate = clamp(current.ConsensusRate+w.jitter(consensusStep), minWalkRatio, maxWalkRatio)
	next.LatencyMs = clamp(current.LatencyMs+w.jitter(latencyStep), minWalkLatency, maxWalkLatency)
	next.Throughput = clamp(current.Throughput+w.jitter(throughputStep), minWalkThroughput, maxWalkThroughput)
	next.LastSeen = current.LastSeen + 1 + w.rng.Uint64N(maxBlockAdvance)

	return next, nil
}

// jitter returns a uniform value in [-width/2, width/2).
func (w *RandomWalk) jitter(width float64) float64 {
	return (w.rng.Float64() - 0.5) * width
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
