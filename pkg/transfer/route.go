package transfer

import (
	"math"

	"groundlink/pkg/models"
)

const (
	// MinTransferSize is the smallest accepted payload in bytes.
	MinTransferSize int64 = 1
	// MaxTransferSize is the largest accepted payload in bytes (100 GiB).
	MaxTransferSize int64 = 100 << 30

	// nominalRate is the planning bandwidth used for estimates, in bytes per second.
	nominalRate      = 100 << 20
	secondsPerMinute = 60
)

var priorityMultipliers = map[models.Priority]float64{
	models.PriorityLow:      1.5,
	models.PriorityMedium:   1.0,
	models.PriorityHigh:     0.7,
	models.PriorityCritical: 0.5,
}

// Route returns the station path from source to destination.
// Transfers that do not start or end at the hub are relayed through it.
func Route(source, destination, hub string) []string {
	switch {
	case source == destination:
		return []string{source}
	case source == hub || destination == hub:
		return []string{source, destination}
	default:
		return []string{source, hub, destination}
	}
}

// Estimate returns the planned transfer time in seconds for a payload of size
// bytes at the given priority. Unknown priorities are planned as medium.
func Estimate(size int64, priority models.Priority) int64 {
	multiplier, ok := priorityMultipliers[priority]
	if !ok {
		multiplier = priorityMultipliers[models.PriorityMedium]
	}
	return int64(math.Ceil(float64(size) / nominalRate * multiplier * secondsPerMinute))
}

// remaining scales an estimate by the fraction of work left.
func remaining(estimate int64, progress float64) int64 {
	left := math.Ceil(float64(estimate) * (100 - progress) / 100)
	if left < 0 {
		return 0
	}
	return int64(left)
}
