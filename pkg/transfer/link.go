package transfer

import (
	"bytes"
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"groundlink/pkg/models"
	"groundlink/pkg/seal"
)

// Leg describes one step of a transfer over a single hop.
type Leg struct {
	RequestID string
	From      string
	To        string
	Hop       int
	Step      int
	Steps     int
	Bytes     int64
	Scheme    models.Scheme
}

// Link moves one step of a transfer between two stations.
type Link interface {
	Transmit(ctx context.Context, leg Leg) error
}

// SimulatedLink stands in for a real station-to-station channel. Each step
// seals a small frame with the declared scheme and verifies it opens again;
// FailureRate drops a fraction of steps on purpose.
type SimulatedLink struct {
	sealer      *seal.Sealer
	failureRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedLink returns a link that seals frames with sealer and drops
// steps with probability failureRate.
func NewSimulatedLink(sealer *seal.Sealer, failureRate float64, seed uint64) *SimulatedLink {
	return &SimulatedLink{
		sealer:      sealer,
		failureRate: failureRate,
		rng:         rand.New(rand.NewPCG(seed, ^seed)),
	}
}

// Transmit runs one simulated step.
func (l *SimulatedLink) Transmit(ctx context.Context, leg Leg) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	frame := fmt.Appendf(nil, "%s|%d|%d|%d", leg.RequestID, leg.Hop, leg.Step, leg.Bytes)
	aad := []byte(leg.RequestID + "/" + leg.From + "->" + leg.To)

	sealed, err := l.sealer.Seal(leg.Scheme, frame, aad)
	if err != nil {
		return fmt.Errorf("sealing frame %s -> %s: %w", leg.From, leg.To, err)
	}
	opened, err := l.sealer.Open(leg.Scheme, sealed, aad)
	if err != nil {
		return fmt.Errorf("opening frame %s -> %s: %w", leg.From, leg.To, err)
	}
	if !bytes.Equal(frame, opened) {
		return fmt.Errorf("%w: %s -> %s step %d", ErrFrameMismatch, leg.From, leg.To, leg.Step)
	}

	if l.failureRate > 0 && l.roll() < l.failureRate {
		return fmt.Errorf("%w: %s -> %s step %d", ErrLinkDropped, leg.From, leg.To, leg.Step)
	}
	return nil
}

func (l *SimulatedLink) roll() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Float64()
}
