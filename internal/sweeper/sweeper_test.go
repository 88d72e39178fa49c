package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeExpirer struct {
	cutoff time.Time
	n      int64
	err    error
}

func (f *fakeExpirer) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.n, f.err
}

func TestSweep_ReportsCountAndCutoff(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeExpirer{n: 3}

	var swept int64 = -1
	s := New(zap.NewNop(), store).WithClock(func() time.Time { return fixed })
	s.OnSwept = func(n int64) { swept = n }

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, int64(3), swept)
	assert.Equal(t, fixed, store.cutoff)
}

func TestSweep_StoreFailure(t *testing.T) {
	store := &fakeExpirer{err: errors.New("db down")}

	errored := false
	s := New(zap.NewNop(), store)
	s.OnError = func() { errored = true }

	_, err := s.Sweep(context.Background())
	require.Error(t, err)
	assert.True(t, errored)
}
