package gameclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeGuess(direction string, startPrice float64) Guess {
	return Guess{
		ID:         "g-1",
		Direction:  direction,
		StartPrice: startPrice,
		CreatedAt:  1_700_000_000_000,
		DeadlineAt: 1_700_000_060_000,
	}
}

func TestProjection_ApplyGuessPlaced(t *testing.T) {
	p := NewProjection("u-1").ApplyGuessPlaced(activeGuess("up", 50000))

	require.NotNil(t, p.Active)
	assert.Equal(t, "u-1", p.Active.UserID)
	assert.Equal(t, "g-1", p.Active.ID)
	assert.False(t, p.Stale)
}

func TestProjection_OptimisticResolution(t *testing.T) {
	cases := []struct {
		name      string
		direction string
		endPrice  float64
		delta     int64
	}{
		{"up and price rose", "up", 51000, +1},
		{"up and price fell", "up", 49000, -1},
		{"down and price fell", "down", 49000, +1},
		{"down and price rose", "down", 51000, -1},
		{"up and price unchanged", "up", 50000, -1},
		{"down and price unchanged", "down", 50000, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewProjection("u-1")
			p.Score = 10
			p = p.ApplyGuessPlaced(activeGuess(tc.direction, 50000))

			p = p.ApplyOptimisticResolution(tc.endPrice)

			assert.Equal(t, 10+tc.delta, p.Score)
			assert.Nil(t, p.Active)
			assert.True(t, p.Stale, "optimistic resolution must force reconciliation")
		})
	}
}

func TestProjection_OptimisticResolutionWithoutActiveGuess(t *testing.T) {
	p := NewProjection("u-1")
	p.Score = 5

	got := p.ApplyOptimisticResolution(51000)

	assert.Equal(t, p, got)
}

func TestProjection_ServerStateClearsStale(t *testing.T) {
	p := NewProjection("u-1").
		ApplyGuessPlaced(activeGuess("up", 50000)).
		ApplyOptimisticResolution(51000)
	require.True(t, p.Stale)

	g := activeGuess("down", 52000)
	p = p.ApplyServerState(&g, 7)

	assert.False(t, p.Stale)
	assert.True(t, p.ScoreKnown)
	assert.Equal(t, int64(7), p.Score)
	require.NotNil(t, p.Active)
	assert.Equal(t, "down", p.Active.Direction)
}

func TestProjection_InvalidateKeepsNothingAuthoritative(t *testing.T) {
	p := NewProjection("u-1").ApplyGuessPlaced(activeGuess("up", 50000))

	p = p.Invalidate()

	assert.True(t, p.Stale)
}
