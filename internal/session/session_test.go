package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"carelink/internal/models"
	"carelink/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) (*Registry, storage.KV) {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)
	durable, err := storage.NewMemoryKV(64, 0)
	require.NoError(t, err)
	sess, err := storage.NewMemoryKV(64, 0)
	require.NoError(t, err)
	reg, err := NewRegistry(&Deps{
		APIBaseURL: srv.URL,
		HTTPClient: srv.Client(),
		Durable:    durable,
		Session:    sess,
		ToastTTL:   time.Second,
	}, 8)
	require.NoError(t, err)
	return reg, durable
}

func TestRegistry_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	reg, durable := newRegistry(t)

	a, err := reg.Get(ctx, "a")
	require.NoError(t, err)
	again, err := reg.Get(ctx, "a")
	require.NoError(t, err)
	assert.Same(t, a, again)

	require.NoError(t, a.Auth.SignIn(ctx, models.TokenPair{AccessToken: "tok-a", RefreshToken: "ref-a"}, true))

	b, err := reg.Get(ctx, "b")
	require.NoError(t, err)
	assert.False(t, b.Auth.Authenticated())

	// 令牌按会话前缀存放
	raw, err := durable.Get(ctx, "a:auth")
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	_, err = durable.Get(ctx, "b:auth")
	assert.ErrorIs(t, err, storage.ErrMissing)
}

func TestRegistry_DropRestoresRememberedTokens(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry(t)

	a, err := reg.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, a.Auth.SignIn(ctx, models.TokenPair{AccessToken: "tok-a"}, true))

	reg.Drop("a")
	restored, err := reg.Get(ctx, "a")
	require.NoError(t, err)
	assert.NotSame(t, a, restored)
	assert.True(t, restored.Auth.Authenticated())
	assert.True(t, restored.Auth.Remembered())
}

func TestWorkspace_TeardownResetsControllers(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry(t)
	ws, err := reg.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, ws.Auth.SignIn(ctx, models.TokenPair{AccessToken: "tok-a"}, false))

	// /users/me 404 且令牌里没有 subject，拿不到当前用户
	_, err = ws.Feed(ctx, "")
	assert.Equal(t, models.CodeNotFound, models.CodeOf(err))

	ws.mu.Lock()
	ws.viewer.ID, ws.viewer.Name = 1, "Ann"
	ws.mu.Unlock()
	feed, err := ws.Feed(ctx, "")
	require.NoError(t, err)
	same, err := ws.Feed(ctx, "")
	require.NoError(t, err)
	assert.Same(t, feed, same)

	ws.Auth.Teardown(ctx)
	assert.False(t, ws.Auth.Authenticated())
	ws.mu.Lock()
	assert.Zero(t, ws.viewer.ID)
	assert.Equal(t, 0, ws.feeds.Len())
	ws.mu.Unlock()
}

func TestWorkspace_AssistantOff(t *testing.T) {
	reg, _ := newRegistry(t)
	ws, err := reg.Get(context.Background(), "a")
	require.NoError(t, err)
	_, err = ws.Assistant(context.Background())
	assert.ErrorIs(t, err, errAssistantOff)
	assert.Equal(t, models.CodeInternal, models.CodeOf(err))
}
