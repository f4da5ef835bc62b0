package transfer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStationLocksDisjointPathsDoNotBlock(t *testing.T) {
	locks := newStationLocks()

	releaseA, err := locks.acquire(context.Background(), []string{"chennai", "bangalore"})
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := locks.acquire(context.Background(), []string{"delhi", "mumbai"})
	require.NoError(t, err)
	releaseB()
}

func TestStationLocksSharedStationBlocks(t *testing.T) {
	locks := newStationLocks()

	release, err := locks.acquire(context.Background(), []string{"chennai", "bangalore", "delhi"})
	require.NoError(t, err)

	acquired := make(chan func())
	go func() {
		next, err := locks.acquire(context.Background(), []string{"mumbai", "bangalore"})
		if err == nil {
			acquired <- next
		}
	}()

	select {
	case <-acquired:
		t.Fatal("acquired a station that is still held")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	select {
	case next := <-acquired:
		next()
	case <-time.After(time.Second):
		t.Fatal("lock was never handed over")
	}
}

func TestStationLocksCancelledWaitReleasesPartialHold(t *testing.T) {
	locks := newStationLocks()

	release, err := locks.acquire(context.Background(), []string{"delhi"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// "bangalore" sorts before "delhi" and is taken first, then given back.
	_, err = locks.acquire(ctx, []string{"delhi", "bangalore"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	again, err := locks.acquire(context.Background(), []string{"bangalore", "delhi"})
	require.NoError(t, err)
	again()
}

func TestStationLocksRepeatedStation(t *testing.T) {
	locks := newStationLocks()

	release, err := locks.acquire(context.Background(), []string{"delhi", "delhi"})
	require.NoError(t, err)
	release()
}
