package transfer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"groundlink/pkg/log"
	"groundlink/pkg/metrics"
	"groundlink/pkg/models"
)

// errAborted ends execution of a transfer whose status was changed from outside.
var errAborted = errors.New("transfer no longer processing")

// worker drains the queue until ctx is cancelled.
func (m *Manager) worker(ctx context.Context) {
	defer m.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		id, ok := m.dequeue()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-m.wake:
				continue
			}
		}

		m.run(ctx, id)
	}
}

// dequeue pops the oldest queued transfer and wakes another worker when more
// are waiting.
func (m *Manager) dequeue() (string, bool) {
	m.mu.Lock()
	if len(m.queue) == 0 {
		m.mu.Unlock()
		return "", false
	}
	id := m.queue[0]
	m.queue = m.queue[1:]
	more := len(m.queue) > 0
	m.mu.Unlock()

	metrics.RecordDequeued()
	if more {
		m.signal()
	}
	return id, true
}

// requeue puts a transfer back at the head of the queue.
func (m *Manager) requeue(id string) {
	m.mu.Lock()
	m.queue = slices.Insert(m.queue, 0, id)
	m.mu.Unlock()

	metrics.QueueDepth.Inc()
}

func (m *Manager) run(ctx context.Context, id string) {
	m.mu.RLock()
	state, exists := m.states[id]
	if !exists || !state.Status.CanTransition(models.StatusProcessing) {
		m.mu.RUnlock()
		return
	}
	path := slices.Clone(state.Path)
	m.mu.RUnlock()

	release, err := m.locks.acquire(ctx, path)
	if err == nil && ctx.Err() != nil {
		// Shutdown raced with a freed slot; leave the transfer queued.
		release()
		err = ctx.Err()
	}
	if err != nil {
		m.requeue(id)
		return
	}
	defer release()

	execCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.mu.Lock()
	state, exists = m.states[id]
	if !exists || !state.Status.CanTransition(models.StatusProcessing) {
		m.mu.Unlock()
		return
	}
	started := time.Now()
	state.Status = models.StatusProcessing
	state.StartedAt = started
	request := state.Request
	m.cancels[id] = cancel
	m.mu.Unlock()

	metrics.RecordStarted()
	log.Info().
		Str("request_id", id).
		Strs("path", path).
		Msg("Transfer started")

	err = m.execute(execCtx, request, path)
	if err != nil && ctx.Err() != nil {
		err = errors.New(ShutdownMessage)
	}
	m.finish(id, started, err)
}

// execute walks every leg of path, one step at a time.
func (m *Manager) execute(ctx context.Context, request models.TransferRequest, path []string) error {
	legs := len(path) - 1
	steps := m.cfg.StepsPerHop
	estimate := Estimate(request.Size, request.Priority)

	for hop := 0; hop < legs; hop++ {
		from, to := path[hop], path[hop+1]
		if !m.beginLeg(request.ID, hop, from, to) {
			return errAborted
		}

		for step := 1; step <= steps; step++ {
			if err := m.pause(ctx); err != nil {
				return err
			}

			leg := Leg{
				RequestID: request.ID,
				From:      from,
				To:        to,
				Hop:       hop,
				Step:      step,
				Steps:     steps,
				Bytes:     stepBytes(request.Size, steps, step),
				Scheme:    request.Encryption,
			}
			if err := m.transmit(ctx, leg); err != nil {
				return err
			}

			done := hop*steps + step
			if !m.advance(request.ID, step, steps, done, legs*steps, estimate) {
				return errAborted
			}
		}
	}
	return nil
}

func (m *Manager) beginLeg(id string, hop int, from, to string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, exists := m.states[id]
	if !exists || state.Status != models.StatusProcessing {
		return false
	}
	state.Hop = hop
	state.HopProgress = 0
	state.Current = from
	state.Next = to

	log.Debug().
		Str("request_id", id).
		Int("hop", hop).
		Str("from", from).
		Str("to", to).
		Msg("Leg started")
	return true
}

// advance records a finished step. Overall progress stops short of 100 until
// the transfer is marked completed.
func (m *Manager) advance(id string, step, steps, done, total int, estimate int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, exists := m.states[id]
	if !exists || state.Status != models.StatusProcessing {
		return false
	}
	state.HopProgress = float64(step) * 100 / float64(steps)
	if done < total {
		state.Progress = float64(done) * 100 / float64(total)
		state.EstimatedSeconds = remaining(estimate, state.Progress)
	}
	return true
}

func (m *Manager) pause(ctx context.Context) error {
	if m.cfg.StepDelay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(m.cfg.StepDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// transmit calls the link, turning a panic into an error.
func (m *Manager) transmit(ctx context.Context, leg Leg) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("link panicked: %v", r)
		}
	}()
	return m.link.Transmit(ctx, leg)
}

// finish moves a processing transfer to its terminal status. A transfer that
// was stopped meanwhile keeps the status Stop gave it.
func (m *Manager) finish(id string, started time.Time, err error) {
	m.mu.Lock()
	delete(m.cancels, id)

	next := models.StatusCompleted
	if err != nil {
		next = models.StatusFailed
	}

	state, exists := m.states[id]
	if !exists || !state.Status.CanTransition(next) {
		m.mu.Unlock()
		metrics.RecordFinished(models.StatusFailed.String(), started)
		log.Info().Str("request_id", id).Msg("Transfer execution abandoned")
		return
	}

	state.FinishedAt = time.Now()
	state.EstimatedSeconds = 0
	state.Status = next
	if err == nil {
		state.Progress = 100
		state.HopProgress = 100
		state.Current = state.Request.Destination
		state.Next = ""
	} else {
		state.Error = err.Error()
		if state.Error == "" {
			state.Error = "transfer failed"
		}
	}
	status := state.Status
	m.mu.Unlock()

	metrics.RecordFinished(status.String(), started)

	if err != nil {
		log.Warn().Err(err).Str("request_id", id).Msg("Transfer failed")
		return
	}
	log.Info().
		Str("request_id", id).
		Dur("elapsed", time.Since(started)).
		Msg("Transfer completed")
}

// stepBytes splits size into steps parts, giving the remainder to the last.
func stepBytes(size int64, steps, step int) int64 {
	chunk := size / int64(steps)
	if step == steps {
		return size - chunk*int64(steps-1)
	}
	return chunk
}
