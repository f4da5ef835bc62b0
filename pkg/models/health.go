package models

import "time"

// HealthSnapshot is the point-in-time health of a single station.
type HealthSnapshot struct {
	StationID     string    `json:"station_id"`
	Uptime        float64   `json:"uptime"`
	LastSeen      uint64    `json:"last_seen"` // block height of the last observed block
	ConsensusRate float64   `json:"consensus_rate"`
	LatencyMs     float64   `json:"latency_ms"`
	Throughput    float64   `json:"throughput"` // bytes per second
	CheckedAt     time.Time `json:"checked_at"` // time of the last successful probe
	LastError     string    `json:"last_error,omitempty"`
}
