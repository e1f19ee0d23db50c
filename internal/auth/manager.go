package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"carelink/internal/models"
	"carelink/internal/observability"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// Refresher exchanges a refresh token for a new pair.
type Refresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (models.TokenPair, error)
}

// Manager is the TokenSource of the API client.
type Manager struct {
	vault     *Vault
	refresher Refresher
	group     singleflight.Group

	mu       sync.RWMutex
	pair     models.TokenPair
	remember bool

	// Skew 提前多久视为过期
	Skew           time.Duration
	RefreshTimeout time.Duration
	onTeardown     []func()
	now            func() time.Time
}

func NewManager(vault *Vault, refresher Refresher) *Manager {
	return &Manager{
		vault:          vault,
		refresher:      refresher,
		Skew:           30 * time.Second,
		RefreshTimeout: 15 * time.Second,
		now:            time.Now,
	}
}

// OnTeardown registers a callback run after the session is torn down.
func (m *Manager) OnTeardown(fn func()) {
	m.mu.Lock()
	m.onTeardown = append(m.onTeardown, fn)
	m.mu.Unlock()
}

// Restore loads a previously persisted session. It reports whether one was found.
func (m *Manager) Restore(ctx context.Context) (bool, error) {
	pair, remember, ok, err := m.vault.Load(ctx)
	if err != nil || !ok {
		return false, err
	}
	m.mu.Lock()
	m.pair, m.remember = pair, remember
	m.mu.Unlock()
	return true, nil
}

// SignIn stores a fresh pair in the store picked by remember.
func (m *Manager) SignIn(ctx context.Context, pair models.TokenPair, remember bool) error {
	if pair.AccessToken == "" {
		return models.NewValidationError("empty access token")
	}
	if err := m.vault.Save(ctx, pair, remember); err != nil {
		return err
	}
	m.mu.Lock()
	m.pair, m.remember = pair, remember
	m.mu.Unlock()
	return nil
}

func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	m.pair = models.TokenPair{}
	m.mu.Unlock()
	return m.vault.Clear(ctx)
}

func (m *Manager) Authenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pair.AccessToken != ""
}

func (m *Manager) Remembered() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.remember
}

// Subject returns the numeric user id carried in the access token, if any.
func (m *Manager) Subject() (int64, bool) {
	m.mu.RLock()
	tok := m.pair.AccessToken
	m.mu.RUnlock()
	return Subject(tok)
}

// AccessToken returns the current token, refreshing first when it is
// known to be expired.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.RLock()
	tok := m.pair.AccessToken
	m.mu.RUnlock()
	if tok == "" {
		return "", models.NewUnauthorizedError("not signed in")
	}
	if !Expired(tok, m.now().Add(m.Skew)) {
		return tok, nil
	}
	fresh, err := m.Refresh(ctx, tok)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		m.Teardown(ctx)
		return "", fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}
	return fresh, nil
}

// Refresh 单飞刷新：并发调用只产生一次网络请求。stale 是调用方手里已失效的 token，
// 如果别人已经换过了就直接返回新的
func (m *Manager) Refresh(ctx context.Context, stale string) (string, error) {
	ch := m.group.DoChan("refresh", func() (interface{}, error) {
		m.mu.RLock()
		cur := m.pair
		remember := m.remember
		m.mu.RUnlock()

		if stale != "" && cur.AccessToken != "" && cur.AccessToken != stale {
			return cur.AccessToken, nil
		}
		if cur.RefreshToken == "" {
			return nil, models.NewUnauthorizedError("no refresh token")
		}
		if m.refresher == nil {
			return nil, models.NewInternalError(errors.New("no refresher configured"))
		}

		// 不受单个调用方取消的影响
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.RefreshTimeout)
		defer cancel()

		pair, err := m.refresher.RefreshToken(rctx, cur.RefreshToken)
		if err != nil {
			observability.TokenRefreshes.WithLabelValues("failed").Inc()
			return nil, err
		}
		if err := m.vault.Save(rctx, pair, remember); err != nil {
			observability.FromContext(ctx).Warn("persist refreshed token failed", "error", err)
		}
		m.mu.Lock()
		m.pair = pair
		m.mu.Unlock()
		observability.TokenRefreshes.WithLabelValues("ok").Inc()
		return pair.AccessToken, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Teardown drops the session everywhere and notifies listeners.
func (m *Manager) Teardown(ctx context.Context) {
	m.mu.Lock()
	m.pair = models.TokenPair{}
	hooks := append([]func(){}, m.onTeardown...)
	m.mu.Unlock()

	if err := m.vault.Clear(ctx); err != nil {
		observability.FromContext(ctx).Warn("clear session stores failed", "error", err)
	}
	observability.TokenRefreshes.WithLabelValues("teardown").Inc()
	for _, fn := range hooks {
		fn()
	}
}

// Expired reports whether a JWT access token expires before at. Opaque
// tokens and tokens without exp are left for the server to judge.
func Expired(token string, at time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(at)
}

// Subject 从 token 的 sub / userId 声明中取出数字用户 ID
func Subject(token string) (int64, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0, false
	}
	for _, k := range []string{"sub", "userId", "user_id", "id"} {
		switch v := claims[k].(type) {
		case string:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				return n, true
			}
		case float64:
			if v > 0 {
				return int64(v), true
			}
		}
	}
	return 0, false
}
