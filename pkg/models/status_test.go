package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	allowed := map[Status][]Status{
		StatusPending:    {StatusProcessing, StatusCancelled},
		StatusProcessing: {StatusCompleted, StatusFailed},
	}
	all := []Status{StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, contains(allowed[from], to), from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
}

func TestStatusJSON(t *testing.T) {
	state := TransferState{RequestID: "t-1", Status: StatusProcessing}

	data, err := json.Marshal(state)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"processing"`)

	var decoded TransferState
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, StatusProcessing, decoded.Status)

	var bad Status
	assert.Error(t, bad.UnmarshalText([]byte("archived")))
	assert.Equal(t, "status(42)", Status(42).String())
}

func TestTransferStateCloneDetachesPath(t *testing.T) {
	state := &TransferState{Path: []string{"chennai", "bangalore", "delhi"}}

	clone := state.Clone()
	clone.Path[1] = "mumbai"

	assert.Equal(t, "bangalore", state.Path[1])
}

func TestPriorityAndSchemeLabels(t *testing.T) {
	assert.True(t, PriorityCritical.Valid())
	assert.False(t, Priority("urgent").Valid())
	assert.True(t, SchemeChaCha20Poly1305.Valid())
	assert.False(t, Scheme("ROT13").Valid())
}

func contains(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
