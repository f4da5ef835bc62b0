package transfer

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"groundlink/pkg/log"
	"groundlink/pkg/metrics"
	"groundlink/pkg/models"

	"github.com/dustin/go-humanize"
)

const (
	defaultStepDelay   = time.Second
	defaultStepsPerHop = 10
	defaultWorkers     = 1
	minSweepInterval   = 10 * time.Millisecond
	archiveTimeout     = 5 * time.Second
	rejectInvalid      = "invalid"
	rejectUnhealthy    = "unhealthy_station"
	rejectDuplicateID  = "duplicate_id"
)

// StationDirectory resolves station ids and names the relay hub.
type StationDirectory interface {
	Has(id string) bool
	Hub() string
}

// HealthGate decides whether a station may take part in a new transfer.
type HealthGate interface {
	IsHealthy(id string) bool
}

// Archive keeps terminal transfers after they are evicted from memory.
type Archive interface {
	Save(ctx context.Context, state models.TransferState) error
	Lookup(ctx context.Context, requestID string) (models.TransferState, bool, error)
}

// Config tunes the manager. Zero values select the defaults.
type Config struct {
	// StepDelay is the pause before each of the StepsPerHop steps of a hop.
	StepDelay time.Duration
	// StepsPerHop is the number of equal progress steps per hop.
	StepsPerHop int
	// Workers is the number of transfers processed at once. Transfers that
	// share a station never overlap regardless of this value.
	Workers int
	// Retention evicts terminal transfers this long after they finish.
	// Zero keeps them for the lifetime of the manager.
	Retention time.Duration
	// SweepInterval is how often eviction runs; defaults to Retention/2.
	SweepInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.StepDelay < 0 {
		c.StepDelay = 0
	} else if c.StepDelay == 0 {
		c.StepDelay = defaultStepDelay
	}
	if c.StepsPerHop <= 0 {
		c.StepsPerHop = defaultStepsPerHop
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.Retention > 0 && c.SweepInterval <= 0 {
		c.SweepInterval = max(c.Retention/2, minSweepInterval)
	}
	return c
}

// Manager admits transfer requests and drives them to a terminal status.
type Manager struct {
	stations StationDirectory
	gate     HealthGate
	link     Link
	archive  Archive
	cfg      Config
	locks    *stationLocks

	mu      sync.RWMutex
	states  map[string]*models.TransferState
	order   []string
	queue   []string
	cancels map[string]context.CancelFunc
	wake    chan struct{}

	lifecycle sync.Mutex
	running   bool
	stop      context.CancelFunc
	wg        sync.WaitGroup
}

// NewManager creates a stopped manager. archive may be nil.
func NewManager(stations StationDirectory, gate HealthGate, link Link, archive Archive, cfg Config) *Manager {
	return &Manager{
		stations: stations,
		gate:     gate,
		link:     link,
		archive:  archive,
		cfg:      cfg.withDefaults(),
		locks:    newStationLocks(),
		states:   make(map[string]*models.TransferState),
		cancels:  make(map[string]context.CancelFunc),
		wake:     make(chan struct{}, 1),
	}
}

// Config returns the effective configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// Start launches the queue workers and, when retention is set, the evictor.
// Requests submitted before Start wait in the queue.
func (m *Manager) Start(ctx context.Context) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if m.running {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.stop = cancel
	m.running = true

	for i := 0; i < m.cfg.Workers; i++ {
		m.wg.Add(1)
		go m.worker(runCtx)
	}
	if m.cfg.Retention > 0 {
		m.wg.Add(1)
		go m.evictLoop(runCtx)
	}
	m.signal()

	log.Info().
		Int("workers", m.cfg.Workers).
		Dur("step_delay", m.cfg.StepDelay).
		Int("steps_per_hop", m.cfg.StepsPerHop).
		Dur("retention", m.cfg.Retention).
		Msg("Transfer manager started")
}

// Shutdown stops the workers and waits for them. Transfers in flight are
// failed; pending ones stay queued.
func (m *Manager) Shutdown() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if !m.running {
		return
	}

	m.stop()
	m.wg.Wait()
	m.running = false
	log.Info().Msg("Transfer manager stopped")
}

// Submit validates request, applies the health gate and queues it.
// It returns as soon as the transfer is queued.
func (m *Manager) Submit(request models.TransferRequest) (string, error) {
	if err := m.validate(request); err != nil {
		metrics.RecordRejected(rejectInvalid)
		log.Warn().Err(err).Str("request_id", request.ID).Msg("Transfer request rejected")
		return "", err
	}

	for _, id := range []string{request.Source, request.Destination} {
		if !m.gate.IsHealthy(id) {
			metrics.RecordRejected(rejectUnhealthy)
			log.Warn().
				Str("request_id", request.ID).
				Str("station", id).
				Msg("Transfer request rejected by health gate")
			return "", fmt.Errorf("%w: %s", ErrUnhealthyStation, id)
		}
	}

	now := time.Now()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}

	state := &models.TransferState{
		RequestID:        request.ID,
		Request:          request,
		Status:           models.StatusPending,
		Path:             Route(request.Source, request.Destination, m.stations.Hub()),
		Current:          request.Source,
		Next:             request.Destination,
		EstimatedSeconds: Estimate(request.Size, request.Priority),
		SubmittedAt:      now,
	}

	m.mu.Lock()
	if _, exists := m.states[request.ID]; exists {
		m.mu.Unlock()
		metrics.RecordRejected(rejectDuplicateID)
		return "", fmt.Errorf("%w: %s", ErrDuplicateID, request.ID)
	}
	m.states[request.ID] = state
	m.order = append(m.order, request.ID)
	m.queue = append(m.queue, request.ID)
	m.mu.Unlock()

	metrics.RecordSubmitted(string(request.Priority))
	m.signal()

	log.Info().
		Str("request_id", request.ID).
		Str("source", request.Source).
		Str("destination", request.Destination).
		Str("size", humanize.IBytes(uint64(request.Size))).
		Str("priority", string(request.Priority)).
		Int64("estimated_seconds", state.EstimatedSeconds).
		Msg("Transfer queued")

	return request.ID, nil
}

func (m *Manager) validate(request models.TransferRequest) error {
	switch {
	case request.ID == "":
		return fmt.Errorf("%w: empty id", ErrInvalidRequest)
	case request.Size < MinTransferSize || request.Size > MaxTransferSize:
		return fmt.Errorf("%w: %w: %d bytes", ErrInvalidRequest, ErrSizeOutOfRange, request.Size)
	case !request.Priority.Valid():
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidRequest, request.Priority)
	case !request.Encryption.Valid():
		return fmt.Errorf("%w: unknown encryption scheme %q", ErrInvalidRequest, request.Encryption)
	}

	for _, id := range []string{request.Source, request.Destination} {
		if !m.stations.Has(id) {
			return fmt.Errorf("%w: %w: %q", ErrInvalidRequest, ErrUnknownStation, id)
		}
	}
	return nil
}

// Status returns the state of a transfer, consulting the archive for
// transfers that were already evicted.
func (m *Manager) Status(id string) (models.TransferState, bool) {
	m.mu.RLock()
	state, exists := m.states[id]
	if exists {
		out := state.Clone()
		m.mu.RUnlock()
		return out, true
	}
	m.mu.RUnlock()

	if m.archive == nil {
		return models.TransferState{}, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	archived, found, err := m.archive.Lookup(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("request_id", id).Msg("Archive lookup failed")
		return models.TransferState{}, false
	}
	return archived, found
}

// List returns every tracked transfer in submission order.
func (m *Manager) List() []models.TransferState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.TransferState, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.states[id].Clone())
	}
	return out
}

// QueueLen returns the number of transfers waiting for a worker.
func (m *Manager) QueueLen() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.queue)
}

// Cancel withdraws a pending transfer. It reports false for any other status
// or an unknown id.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	state, exists := m.states[id]
	if !exists || !state.Status.CanTransition(models.StatusCancelled) {
		m.mu.Unlock()
		return false
	}

	state.Status = models.StatusCancelled
	state.EstimatedSeconds = 0
	state.FinishedAt = time.Now()
	dequeued := m.removeQueuedLocked(id)
	m.mu.Unlock()

	if dequeued {
		metrics.RecordDequeued()
	}
	metrics.RecordFinished(models.StatusCancelled.String(), time.Time{})
	log.Info().Str("request_id", id).Msg("Transfer cancelled")
	return true
}

// Stop fails a transfer that is being processed. The executor notices at its
// next step. It reports false for any other status or an unknown id.
func (m *Manager) Stop(id string) bool {
	m.mu.Lock()
	state, exists := m.states[id]
	if !exists || !state.Status.CanTransition(models.StatusFailed) {
		m.mu.Unlock()
		return false
	}

	state.Status = models.StatusFailed
	state.Error = StoppedByUserMessage
	state.EstimatedSeconds = 0
	state.FinishedAt = time.Now()
	cancel := m.cancels[id]
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	log.Info().Str("request_id", id).Msg("Transfer stopped by user")
	return true
}

func (m *Manager) removeQueuedLocked(id string) bool {
	idx := slices.Index(m.queue, id)
	if idx < 0 {
		return false
	}
	m.queue = slices.Delete(m.queue, idx, idx+1)
	return true
}

// signal wakes one idle worker without blocking.
func (m *Manager) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}
