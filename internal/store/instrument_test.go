package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedOp struct {
	backend string
	op      string
	err     error
}

type recordingObserver struct {
	mu  sync.Mutex
	ops []recordedOp
}

func (r *recordingObserver) ObserveStoreOp(backend, op string, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, recordedOp{backend, op, err})
}

func TestInstrument_ReportsOperations(t *testing.T) {
	inner, err := NewInMemory(nil)
	require.NoError(t, err)
	obs := &recordingObserver{}
	s := Instrument(inner, "badger", obs)
	defer s.Close()
	ctx := context.Background()

	_, err = s.Create(ctx, "users", "u1", Fields{})
	require.NoError(t, err)
	_, err = s.Get(ctx, "users", "missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.UpdateFields(ctx, "users", "u1", Fields{}, IfRevision(9))
	require.ErrorIs(t, err, ErrRevisionConflict)
	_, err = s.Create(ctx, "users", "u1", Fields{})
	require.ErrorIs(t, err, ErrAlreadyExists)
	_, err = s.Query(ctx, "users")
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "users", "u1"))

	require.Len(t, obs.ops, 6)
	assert.Equal(t, "badger", obs.ops[0].backend)
	assert.Equal(t, []string{"create", "get", "update", "create", "query", "delete"}, []string{
		obs.ops[0].op, obs.ops[1].op, obs.ops[2].op, obs.ops[3].op, obs.ops[4].op, obs.ops[5].op,
	})
	assert.NoError(t, obs.ops[1].err, "a miss is not a failure")
	assert.NoError(t, obs.ops[2].err, "a lost race is not a failure")
	assert.ErrorIs(t, obs.ops[3].err, ErrAlreadyExists)
}
