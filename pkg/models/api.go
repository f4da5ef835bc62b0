package models

// StationInfo is the wire form of a Station.
type StationInfo struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Validators        []string `json:"validators"`
	MinStake          string   `json:"min_stake"` // decimal
	UptimeRequirement float64  `json:"uptime_requirement"`
	Hub               bool     `json:"hub"`
}

// NewStationInfo converts station for the API.
func NewStationInfo(station Station, hub string) StationInfo {
	info := StationInfo{
		ID:                station.ID,
		Name:              station.Name,
		Validators:        append([]string(nil), station.Validators...),
		MinStake:          "0",
		UptimeRequirement: station.UptimeRequirement,
		Hub:               station.ID == hub,
	}
	if station.MinStake != nil {
		info.MinStake = station.MinStake.Dec()
	}
	return info
}

// HealthReport is a snapshot together with the admission verdict.
type HealthReport struct {
	HealthSnapshot
	Healthy bool `json:"healthy"`
}

// RouteInfo describes the path a transfer between two stations would take.
type RouteInfo struct {
	Source      string   `json:"source"`
	Destination string   `json:"destination"`
	Hub         string   `json:"hub"`
	Path        []string `json:"path"`
}

// SubmitRequest is the body of a transfer submission. Empty optional fields
// are filled in by the server.
type SubmitRequest struct {
	ID          string   `json:"id,omitempty"`
	Source      string   `json:"source"`
	Destination string   `json:"destination"`
	Size        int64    `json:"size"`
	Priority    Priority `json:"priority,omitempty"`
	Encryption  Scheme   `json:"encryption,omitempty"`
	Checksum    string   `json:"checksum,omitempty"`
}

// SubmitResponse carries the id of an accepted transfer.
type SubmitResponse struct {
	ID string `json:"id"`
}

// CancelResponse reports whether a cancel request changed the transfer.
type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// StopResponse reports whether a stop request changed the transfer.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}
