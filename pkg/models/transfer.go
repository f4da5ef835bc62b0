package models

import "time"

// Priority of a transfer request.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Scheme is the declared payload encryption scheme.
type Scheme string

const (
	SchemeAES256           Scheme = "AES-256"
	SchemeChaCha20Poly1305 Scheme = "ChaCha20-Poly1305"
)

// Valid reports whether s is a supported scheme label.
func (s Scheme) Valid() bool {
	return s == SchemeAES256 || s == SchemeChaCha20Poly1305
}

// TransferRequest describes a requested payload move between two stations.
// It is never modified after submission.
type TransferRequest struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	Size        int64     `json:"size"`
	Priority    Priority  `json:"priority"`
	Encryption  Scheme    `json:"encryption"`
	CreatedAt   time.Time `json:"created_at"`
	Checksum    string    `json:"checksum"`
}

// TransferState is the queryable progress record of a submitted request.
//
// Progress covers the whole path and never decreases while processing.
// HopProgress restarts at 0 for every leg of the path.
type TransferState struct {
	RequestID        string          `json:"request_id"`
	Request          TransferRequest `json:"request"`
	Status           Status          `json:"status"`
	Progress         float64         `json:"progress"`
	Path             []string        `json:"path,omitempty"`
	Hop              int             `json:"hop"`
	HopProgress      float64         `json:"hop_progress"`
	Current          string          `json:"current"`
	Next             string          `json:"next"`
	EstimatedSeconds int64           `json:"estimated_seconds"`
	Error            string          `json:"error,omitempty"`
	SubmittedAt      time.Time       `json:"submitted_at"`
	StartedAt        time.Time       `json:"started_at,omitzero"`
	FinishedAt       time.Time       `json:"finished_at,omitzero"`
}

// Clone returns a deep copy safe to hand to readers.
func (s *TransferState) Clone() TransferState {
	out := *s
	if s.Path != nil {
		out.Path = append([]string(nil), s.Path...)
	}
	return out
}
