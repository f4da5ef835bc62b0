package transfer

import (
	"context"
	"slices"
	"sync"
)

// stationLocks serialises transfers that share a station. Slots are taken in
// sorted order so two transfers can never wait on each other.
type stationLocks struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newStationLocks() *stationLocks {
	return &stationLocks{slots: make(map[string]chan struct{})}
}

func (l *stationLocks) slot(id string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.slots[id]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[id] = ch
	}
	return ch
}

// acquire blocks until every station in path is free or ctx is done.
func (l *stationLocks) acquire(ctx context.Context, path []string) (func(), error) {
	ids := slices.Clone(path)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	held := make([]chan struct{}, 0, len(ids))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}

	for _, id := range ids {
		ch := l.slot(id)
		select {
		case ch <- struct{}{}:
			held = append(held, ch)
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		}
	}
	return release, nil
}
