package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"carelink/internal/models"
	"carelink/internal/storage"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKV(t *testing.T) *storage.MemoryKV {
	t.Helper()
	kv, err := storage.NewMemoryKV(8, 0)
	require.NoError(t, err)
	return kv
}

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return s
}

type refresherStub struct {
	calls   int32
	release chan struct{}
	entered chan struct{}
	err     error
	pair    models.TokenPair
}

func (r *refresherStub) RefreshToken(_ context.Context, refreshToken string) (models.TokenPair, error) {
	if atomic.AddInt32(&r.calls, 1) == 1 && r.entered != nil {
		close(r.entered)
	}
	if r.release != nil {
		<-r.release
	}
	if r.err != nil {
		return models.TokenPair{}, r.err
	}
	return r.pair, nil
}

func TestVault_RememberPicksStore(t *testing.T) {
	ctx := context.Background()
	durable, session := newKV(t), newKV(t)
	v := NewVault(durable, session)
	pair := models.TokenPair{AccessToken: "a", RefreshToken: "r"}

	require.NoError(t, v.Save(ctx, pair, true))
	_, err := session.Get(ctx, payloadKey)
	assert.ErrorIs(t, err, storage.ErrMissing)
	_, err = durable.Get(ctx, payloadKey)
	assert.NoError(t, err)

	require.NoError(t, v.Save(ctx, pair, false))
	_, err = durable.Get(ctx, payloadKey)
	assert.ErrorIs(t, err, storage.ErrMissing, "the other store's copy is removed")

	got, remember, ok, err := v.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, remember)
	assert.Equal(t, pair, got)

	require.NoError(t, v.Clear(ctx))
	_, _, ok, err = v.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVault_DropsUnreadablePayload(t *testing.T) {
	ctx := context.Background()
	durable := newKV(t)
	require.NoError(t, durable.Set(ctx, payloadKey, []byte("{not json")))
	v := NewVault(durable, newKV(t))

	_, _, ok, err := v.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = durable.Get(ctx, payloadKey)
	assert.ErrorIs(t, err, storage.ErrMissing)
}

func TestRefresh_SingleFlight(t *testing.T) {
	ctx := context.Background()
	ref := &refresherStub{
		release: make(chan struct{}),
		entered: make(chan struct{}),
		pair:    models.TokenPair{AccessToken: "new", RefreshToken: "r2"},
	}
	m := NewManager(NewVault(newKV(t), newKV(t)), ref)
	require.NoError(t, m.SignIn(ctx, models.TokenPair{AccessToken: "old", RefreshToken: "r1"}, false))

	const callers = 32
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = m.Refresh(ctx, "old")
		}(i)
	}

	<-ref.entered
	close(ref.release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&ref.calls), "one network refresh for all callers")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "new", results[i])
	}

	// after completion the entry is gone: a new stale token refreshes again
	ref.pair = models.TokenPair{AccessToken: "newer", RefreshToken: "r3"}
	got, err := m.Refresh(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, "newer", got)
	assert.EqualValues(t, 2, atomic.LoadInt32(&ref.calls))
}

func TestRefresh_PersistsRotatedPair(t *testing.T) {
	ctx := context.Background()
	durable := newKV(t)
	vault := NewVault(durable, newKV(t))
	ref := &refresherStub{pair: models.TokenPair{AccessToken: "new", RefreshToken: "r2"}}
	m := NewManager(vault, ref)
	require.NoError(t, m.SignIn(ctx, models.TokenPair{AccessToken: "old", RefreshToken: "r1"}, true))

	_, err := m.Refresh(ctx, "old")
	require.NoError(t, err)

	got, remember, ok, err := vault.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, remember)
	assert.Equal(t, ref.pair, got)
}

func TestAccessToken_ExpiredJWTRefreshes(t *testing.T) {
	ctx := context.Background()
	expired := signed(t, jwt.MapClaims{"sub": "7", "exp": time.Now().Add(-time.Minute).Unix()})
	fresh := signed(t, jwt.MapClaims{"sub": "7", "exp": time.Now().Add(time.Hour).Unix()})
	ref := &refresherStub{pair: models.TokenPair{AccessToken: fresh, RefreshToken: "r2"}}
	m := NewManager(NewVault(newKV(t), newKV(t)), ref)
	require.NoError(t, m.SignIn(ctx, models.TokenPair{AccessToken: expired, RefreshToken: "r1"}, false))

	tok, err := m.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, fresh, tok)

	tok, err = m.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, fresh, tok)
	assert.EqualValues(t, 1, ref.calls)

	id, ok := m.Subject()
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
}

func TestAccessToken_RefreshFailureTearsDown(t *testing.T) {
	ctx := context.Background()
	durable := newKV(t)
	expired := signed(t, jwt.MapClaims{"exp": time.Now().Add(-time.Minute).Unix()})
	ref := &refresherStub{err: errors.New("invalid refresh token")}
	m := NewManager(NewVault(durable, newKV(t)), ref)
	require.NoError(t, m.SignIn(ctx, models.TokenPair{AccessToken: expired, RefreshToken: "r1"}, true))

	torn := false
	m.OnTeardown(func() { torn = true })

	_, err := m.AccessToken(ctx)
	require.ErrorIs(t, err, models.ErrUnauthorized)
	assert.True(t, torn)
	assert.False(t, m.Authenticated())
	_, err = durable.Get(ctx, payloadKey)
	assert.ErrorIs(t, err, storage.ErrMissing, "both stores are cleared")
}

func TestAccessToken_NotSignedIn(t *testing.T) {
	m := NewManager(NewVault(newKV(t), newKV(t)), nil)
	_, err := m.AccessToken(context.Background())
	assert.Equal(t, models.CodeUnauthorized, models.CodeOf(err))
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	vault := NewVault(newKV(t), newKV(t))
	require.NoError(t, vault.Save(ctx, models.TokenPair{AccessToken: "a", RefreshToken: "r"}, true))

	m := NewManager(vault, nil)
	ok, err := m.Restore(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, m.Authenticated())
	assert.True(t, m.Remembered())
}

func TestExpired(t *testing.T) {
	now := time.Now()
	assert.False(t, Expired("opaque-token", now))
	assert.False(t, Expired(signed(t, jwt.MapClaims{"sub": "1"}), now))
	assert.True(t, Expired(signed(t, jwt.MapClaims{"exp": now.Add(-time.Second).Unix()}), now))
	assert.False(t, Expired(signed(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()}), now))
}
