package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcome_Up(t *testing.T) {
	assert.True(t, Outcome(DirectionUp, 50000, 51000))
	assert.False(t, Outcome(DirectionUp, 50000, 49000))
}

func TestOutcome_Down(t *testing.T) {
	assert.True(t, Outcome(DirectionDown, 50000, 49000))
	assert.False(t, Outcome(DirectionDown, 50000, 51000))
}

func TestOutcome_EqualPriceAlwaysIncorrect(t *testing.T) {
	// desigualdade estrita: empate erra nos dois sentidos
	assert.False(t, Outcome(DirectionUp, 50000, 50000))
	assert.False(t, Outcome(DirectionDown, 50000, 50000))
}

func TestOutcome_TinyMove(t *testing.T) {
	assert.True(t, Outcome(DirectionUp, 50000, 50000.01))
	assert.True(t, Outcome(DirectionDown, 50000, 49999.99))
}

func TestDelta(t *testing.T) {
	assert.Equal(t, int64(1), Delta(true))
	assert.Equal(t, int64(-1), Delta(false))
}

func TestParseDirection(t *testing.T) {
	d, ok := ParseDirection("up")
	require.True(t, ok)
	assert.Equal(t, DirectionUp, d)

	d, ok = ParseDirection("down")
	require.True(t, ok)
	assert.Equal(t, DirectionDown, d)

	_, ok = ParseDirection("sideways")
	assert.False(t, ok)

	_, ok = ParseDirection("")
	assert.False(t, ok)
}

func TestNewGuess(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g := NewGuess("u1", DirectionUp, 50000, now, time.Minute)

	assert.Equal(t, "u1", g.UserID)
	assert.NotEmpty(t, g.ID)
	assert.Equal(t, now.UnixMilli(), g.CreatedAt)
	assert.Equal(t, now.Add(time.Minute).UnixMilli(), g.DeadlineAt)

	g2 := NewGuess("u1", DirectionUp, 50000, now, time.Minute)
	assert.NotEqual(t, g.ID, g2.ID)
}

func TestResolution_DurationMs(t *testing.T) {
	r := Resolution{
		Guess:      Guess{CreatedAt: 1_000_000},
		ResolvedAt: 1_060_000,
	}
	assert.Equal(t, int64(60000), r.DurationMs())
}
