package optimistic

import (
	"sync"
	"sync/atomic"
	"testing"

	"carelink/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutation_Confirm(t *testing.T) {
	m := Begin("vote", 3)
	assert.Equal(t, Pending, m.State())
	assert.True(t, m.Confirm())
	assert.Equal(t, Confirmed, m.State())

	_, ok := m.Rollback()
	assert.False(t, ok, "a confirmed mutation cannot roll back")
	assert.False(t, m.Confirm())
}

func TestMutation_Rollback(t *testing.T) {
	m := Begin("comment_delete", []string{"a", "b"})
	snap, ok := m.Rollback()
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, snap)
	assert.Equal(t, RolledBack, m.State())
	assert.False(t, m.Confirm())
}

func TestLocks(t *testing.T) {
	l := NewLocks()
	release, err := l.Acquire("p_1")
	require.NoError(t, err)
	assert.True(t, l.Busy("p_1"))

	_, err = l.Acquire("p_1")
	assert.ErrorIs(t, err, models.ErrMutationInFlight)

	other, err := l.Acquire("c_2")
	require.NoError(t, err)
	other()

	release()
	release()
	assert.False(t, l.Busy("p_1"))
	_, err = l.Acquire("p_1")
	assert.NoError(t, err)
}

func TestLocks_Concurrent(t *testing.T) {
	l := NewLocks()
	var won int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := l.Acquire("p_9"); err == nil {
				atomic.AddInt32(&won, 1)
			}
		}()
	}
	close(start)
	wg.Wait()
	assert.Equal(t, int32(1), won)
}

func TestLocks_SharedBlocksExclusive(t *testing.T) {
	l := NewLocks()
	first, err := l.Share("delete:p_1", "delete:c_2")
	require.NoError(t, err)
	second, err := l.Share("delete:p_1")
	require.NoError(t, err)
	assert.True(t, l.Busy("delete:c_2"))

	_, err = l.Acquire("delete:c_2")
	assert.ErrorIs(t, err, models.ErrMutationInFlight)

	first()
	first()
	release, err := l.Acquire("delete:c_2")
	require.NoError(t, err)

	_, err = l.Acquire("delete:p_1")
	assert.ErrorIs(t, err, models.ErrMutationInFlight, "one shared hold is still open")
	second()
	assert.False(t, l.Busy("delete:p_1"))

	// 独占期间不能共享，且不会留下半截共享
	_, err = l.Share("delete:p_1", "delete:c_2")
	assert.ErrorIs(t, err, models.ErrMutationInFlight)
	assert.False(t, l.Busy("delete:p_1"))
	release()
}
