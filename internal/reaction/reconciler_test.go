package reaction

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"carelink/internal/ident"
	"carelink/internal/models"
	"carelink/internal/optimistic"
	"carelink/internal/tree"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend keeps per-target reaction records the way the server would.
type fakeBackend struct {
	mu        sync.Mutex
	nextID    int64
	records   map[int64]models.Reaction
	addErr    error
	cancelErr error
	adds      int
	cancels   []int64
	block     chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{nextID: 1000, records: make(map[int64]models.Reaction)}
}

func (f *fakeBackend) AddReaction(_ context.Context, targetID int64, isLike bool) (models.Reaction, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adds++
	if f.addErr != nil {
		return models.Reaction{}, f.addErr
	}
	f.nextID++
	r := models.Reaction{ID: f.nextID, UserID: 7, PostID: targetID, IsLike: isLike}
	f.records[r.ID] = r
	return r, nil
}

func (f *fakeBackend) CancelReaction(_ context.Context, reactionID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels = append(f.cancels, reactionID)
	if f.cancelErr != nil {
		return f.cancelErr
	}
	if _, ok := f.records[reactionID]; !ok {
		return errors.New("unknown reaction")
	}
	delete(f.records, reactionID)
	return nil
}

func (f *fakeBackend) users(isLike bool) []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int64
	for _, r := range f.records {
		if r.IsLike == isLike {
			out = append(out, int64(r.UserID))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

const viewer = int64(7)

// p1 has likes=3 (users 1,2,3), dislikes=0, viewer has not voted.
func p1() tree.Node {
	return tree.Node{
		ID:      ident.Post(1),
		LikedBy: []int64{1, 2, 3},
		Vote:    tree.None,
	}
}

func TestVote_ToggleRoundTrip(t *testing.T) {
	backend := newFakeBackend()
	store := tree.NewStore([]tree.Node{p1()})
	rec := NewReconciler(backend, nil, viewer)
	ctx := context.Background()

	n, err := rec.Vote(ctx, store, ident.Post(1), tree.Like, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, n.Likes())
	assert.Equal(t, tree.Like, n.Vote)
	require.Len(t, n.Reactions, 1)

	n, err = rec.Vote(ctx, store, ident.Post(1), tree.Like, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n.Likes())
	assert.Equal(t, tree.None, n.Vote)
	assert.Equal(t, []int64{1001}, backend.cancels, "toggle-off cancels exactly the record it created")
	assert.Empty(t, n.Reactions)

	assert.Equal(t, p1().LikedBy, n.LikedBy)
	assert.Equal(t, p1().DislikedBy, n.DislikedBy)
}

func TestVote_Switch(t *testing.T) {
	backend := newFakeBackend()
	backend.records[500] = models.Reaction{ID: 500, UserID: 7, PostID: 1, IsLike: true}
	start := tree.Node{
		ID:         ident.Post(1),
		LikedBy:    []int64{1, 7},
		DislikedBy: []int64{4},
		Vote:       tree.Like,
		Reactions:  []models.Reaction{{ID: 500, UserID: 7, PostID: 1, IsLike: true}},
	}
	store := tree.NewStore([]tree.Node{start})
	rec := NewReconciler(backend, nil, viewer)

	n, err := rec.Vote(context.Background(), store, ident.Post(1), tree.Dislike, nil)
	require.NoError(t, err)
	assert.Equal(t, start.Likes()-1, n.Likes())
	assert.Equal(t, start.Dislikes()+1, n.Dislikes())
	assert.Equal(t, start.Likes()+start.Dislikes(), n.Likes()+n.Dislikes())
	assert.Equal(t, tree.Dislike, n.Vote)
	assert.Equal(t, []int64{500}, backend.cancels)
	assert.Equal(t, 1, backend.adds)
}

func TestVote_MissingReactionID(t *testing.T) {
	backend := newFakeBackend()
	start := tree.Node{ID: ident.Post(1), LikedBy: []int64{7}, Vote: tree.Like}
	store := tree.NewStore([]tree.Node{start})
	rec := NewReconciler(backend, nil, viewer)

	_, err := rec.Vote(context.Background(), store, ident.Post(1), tree.Like, nil)
	require.ErrorIs(t, err, models.ErrReactionIDMissing)
	assert.Equal(t, models.CodeReactionIDMissing, models.CodeOf(err))
	assert.Equal(t, []tree.Node{start}, store.Load(), "nothing changes locally")
	assert.Empty(t, backend.cancels)
	assert.Zero(t, backend.adds)

	_, err = rec.Vote(context.Background(), store, ident.Post(1), tree.Dislike, nil)
	assert.ErrorIs(t, err, models.ErrReactionIDMissing, "switching also needs the old record id")
}

func TestVote_FailureRestoresSnapshot(t *testing.T) {
	backend := newFakeBackend()
	backend.addErr = models.NewNetworkError(errors.New("connection reset"))
	before := []tree.Node{{
		ID:       ident.Post(1),
		LikedBy:  []int64{1, 2, 3},
		Comments: []tree.Node{{ID: ident.Comment(2), DislikedBy: []int64{9}}},
	}}
	store := tree.NewStore(before)
	rec := NewReconciler(backend, nil, viewer)

	_, err := rec.Vote(context.Background(), store, ident.Comment(2), tree.Dislike, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNetwork)
	assert.Equal(t, before, store.Load())
	assert.False(t, rec.Pending(ident.Comment(2)))
}

func TestVote_PartialFailureResyncs(t *testing.T) {
	backend := newFakeBackend()
	backend.records[500] = models.Reaction{ID: 500, UserID: 7, PostID: 1, IsLike: true}
	backend.addErr = errors.New("boom")
	start := tree.Node{
		ID:        ident.Post(1),
		LikedBy:   []int64{7},
		Vote:      tree.Like,
		Reactions: []models.Reaction{{ID: 500, UserID: 7, IsLike: true}},
	}
	store := tree.NewStore([]tree.Node{start})
	rec := NewReconciler(backend, nil, viewer)

	resynced := 0
	_, err := rec.Vote(context.Background(), store, ident.Post(1), tree.Dislike, func(context.Context) error {
		resynced++
		store.Set([]tree.Node{{ID: ident.Post(1)}})
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, 1, resynced)
	got, _ := store.Find(ident.Post(1))
	assert.Equal(t, tree.None, got.Vote, "the reloaded state wins over the stale snapshot")
}

func TestVote_ResyncOnSuccess(t *testing.T) {
	backend := newFakeBackend()
	store := tree.NewStore([]tree.Node{p1()})
	rec := NewReconciler(backend, nil, viewer)

	called := false
	_, err := rec.Vote(context.Background(), store, ident.Post(1), tree.Like, func(context.Context) error {
		called = true
		return errors.New("reload failed")
	})
	require.NoError(t, err, "a failed reload does not undo a confirmed vote")
	assert.True(t, called)
}

func TestVote_OverlappingToggleIsRejected(t *testing.T) {
	backend := newFakeBackend()
	backend.block = make(chan struct{})
	store := tree.NewStore([]tree.Node{p1()})
	locks := optimistic.NewLocks()
	rec := NewReconciler(backend, locks, viewer)

	done := make(chan error, 1)
	go func() {
		_, err := rec.Vote(context.Background(), store, ident.Post(1), tree.Like, nil)
		done <- err
	}()

	require.Eventually(t, func() bool { return rec.Pending(ident.Post(1)) }, time.Second, time.Millisecond)
	_, err := rec.Vote(context.Background(), store, ident.Post(1), tree.Like, nil)
	assert.ErrorIs(t, err, models.ErrMutationInFlight)

	close(backend.block)
	require.NoError(t, <-done)
	n, _ := store.Find(ident.Post(1))
	assert.Equal(t, 4, n.Likes())
}

func TestVote_PendingComment(t *testing.T) {
	tmp := ident.NewTemp()
	store := tree.NewStore([]tree.Node{{ID: ident.Post(1), Comments: []tree.Node{{ID: tmp, Pending: true}}}})
	rec := NewReconciler(newFakeBackend(), nil, viewer)
	_, err := rec.Vote(context.Background(), store, tmp, tree.Like, nil)
	assert.Equal(t, models.CodeValidation, models.CodeOf(err))
}

func TestVote_CountsMatchServerAfterRandomSequence(t *testing.T) {
	backend := newFakeBackend()
	store := tree.NewStore([]tree.Node{{ID: ident.Post(1)}})
	rec := NewReconciler(backend, nil, viewer)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		delta := tree.Like
		if rng.Intn(2) == 0 {
			delta = tree.Dislike
		}
		_, err := rec.Vote(context.Background(), store, ident.Post(1), delta, nil)
		require.NoError(t, err)

		n, _ := store.Find(ident.Post(1))
		assert.Equal(t, backend.users(true), nonNil(n.LikedBy))
		assert.Equal(t, backend.users(false), nonNil(n.DislikedBy))
		assert.LessOrEqual(t, n.Likes()+n.Dislikes(), 1, "one reaction per user at most")
	}
}

func nonNil(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	return ids
}

func TestNewPlan_Validation(t *testing.T) {
	_, err := NewPlan(p1(), tree.None, viewer)
	assert.Equal(t, models.CodeValidation, models.CodeOf(err))

	_, err = NewPlan(p1(), tree.Like, 0)
	assert.Equal(t, models.CodeUnauthorized, models.CodeOf(err))
}
