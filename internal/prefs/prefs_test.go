package prefs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"carelink/internal/db"
	"carelink/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	s := New(conn)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func TestPush_CapAndOrder(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	for i := 1; i <= 7; i++ {
		require.NoError(t, s.Push(ctx, "u1", models.RecentSearch, fmt.Sprintf("q%d", i)))
	}
	got, err := s.List(ctx, "u1", models.RecentSearch)
	require.NoError(t, err)
	assert.Equal(t, []string{"q7", "q6", "q5", "q4", "q3"}, got)
}

func TestPush_DedupMovesToFront(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	for _, q := range []string{"asthma", "cardio", "asthma", "  "} {
		require.NoError(t, s.Push(ctx, "u1", models.RecentSearch, q))
	}
	got, err := s.List(ctx, "u1", models.RecentSearch)
	require.NoError(t, err)
	assert.Equal(t, []string{"asthma", "cardio"}, got)
}

func TestLists_AreIsolated(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Push(ctx, "u1", models.RecentSearch, "x"))
	require.NoError(t, s.Push(ctx, "u1", models.RecentProfile, "12"))
	require.NoError(t, s.Push(ctx, "u2", models.RecentSearch, "y"))

	got, _ := s.List(ctx, "u1", models.RecentProfile)
	assert.Equal(t, []string{"12"}, got)

	require.NoError(t, s.Clear(ctx, "u1", models.RecentSearch))
	got, _ = s.List(ctx, "u1", models.RecentSearch)
	assert.Empty(t, got)
	got, _ = s.List(ctx, "u2", models.RecentSearch)
	assert.Equal(t, []string{"y"}, got)
}
