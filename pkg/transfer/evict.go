package transfer

import (
	"context"
	"slices"
	"time"

	"groundlink/pkg/log"
	"groundlink/pkg/models"
)

func (m *Manager) evictLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.sweep(ctx, now)
		}
	}
}

// sweep drops terminal transfers that finished more than Retention before now.
// With an archive configured a transfer is only dropped once it is saved.
func (m *Manager) sweep(ctx context.Context, now time.Time) int {
	cutoff := now.Add(-m.cfg.Retention)

	m.mu.RLock()
	var expired []models.TransferState
	for _, id := range m.order {
		state := m.states[id]
		if state.Status.IsTerminal() && !state.FinishedAt.IsZero() && state.FinishedAt.Before(cutoff) {
			expired = append(expired, state.Clone())
		}
	}
	m.mu.RUnlock()

	if len(expired) == 0 {
		return 0
	}

	evict := make(map[string]struct{}, len(expired))
	for _, state := range expired {
		if m.archive != nil {
			saveCtx, cancel := context.WithTimeout(ctx, archiveTimeout)
			err := m.archive.Save(saveCtx, state)
			cancel()
			if err != nil {
				log.Error().Err(err).Str("request_id", state.RequestID).Msg("Failed to archive transfer")
				continue
			}
		}
		evict[state.RequestID] = struct{}{}
	}

	m.mu.Lock()
	m.order = slices.DeleteFunc(m.order, func(id string) bool {
		if _, ok := evict[id]; ok {
			delete(m.states, id)
			return true
		}
		return false
	})
	m.mu.Unlock()

	if len(evict) > 0 {
		log.Debug().Int("evicted", len(evict)).Msg("Evicted finished transfers")
	}
	return len(evict)
}
