package models

import "github.com/holiman/uint256"

// Station is a named transfer endpoint. Stations are loaded once at startup
// and never change afterwards; MinStake must be treated as read-only.
type Station struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	Validators        []string     `json:"validators"`
	MinStake          *uint256.Int `json:"min_stake"`
	UptimeRequirement float64      `json:"uptime_requirement"`
}
