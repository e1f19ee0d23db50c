package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"carelink/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookupStub struct {
	mu    sync.Mutex
	calls map[int64]int
	users map[int64]models.User
}

func (s *lookupStub) User(_ context.Context, id int64) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[id]++
	u, ok := s.users[id]
	if !ok {
		return models.User{}, models.NewNotFoundError("user", id)
	}
	return u, nil
}

func TestNameResolver(t *testing.T) {
	stub := &lookupStub{
		calls: map[int64]int{},
		users: map[int64]models.User{
			1: {ID: 1, Name: "Ana", Surname: "Lee"},
			2: {ID: 2},
		},
	}
	r, err := NewNameResolver(stub, 16, time.Minute)
	require.NoError(t, err)

	names, err := r.Resolve(context.Background(), []int64{1, 2, 3, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{1: "Ana Lee", 2: "User #2"}, names, "unknown users are left out")

	_, err = r.Resolve(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 1, stub.calls[1], "cached")
	assert.Equal(t, 1, stub.calls[2])

	r.Forget(1)
	_, _ = r.Resolve(context.Background(), []int64{1})
	assert.Equal(t, 2, stub.calls[1])
}

type blockingLookup struct{}

func (blockingLookup) User(ctx context.Context, _ int64) (models.User, error) {
	<-ctx.Done()
	return models.User{}, errors.New("cancelled")
}

func TestNameResolver_Cancelled(t *testing.T) {
	r, err := NewNameResolver(blockingLookup{}, 4, time.Minute)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Resolve(ctx, []int64{5})
	assert.ErrorIs(t, err, context.Canceled)
}
