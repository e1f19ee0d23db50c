package services

import (
	"context"
	"strconv"
	"sync"
	"time"

	"carelink/internal/models"
	"carelink/internal/observability"
	"carelink/internal/utils"

	"golang.org/x/sync/errgroup"
)

// UserLookup fetches one user record.
type UserLookup interface {
	User(ctx context.Context, id int64) (models.User, error)
}

// NameResolver 批量解析作者显示名，带 LRU 缓存和并发上限。解析失败的 ID 不出现在结果里，
// 由树映射回退到 "User #<id>"
type NameResolver struct {
	users UserLookup
	cache *utils.TTLCache[string]
	ttl   time.Duration
	limit int
}

func NewNameResolver(users UserLookup, size int, ttl time.Duration) (*NameResolver, error) {
	c, err := utils.NewTTLCache[string](size)
	if err != nil {
		return nil, err
	}
	return &NameResolver{users: users, cache: c, ttl: ttl, limit: 8}, nil
}

// Resolve returns display names for ids. It only fails when ctx is done.
func (r *NameResolver) Resolve(ctx context.Context, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	var missing []int64
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		if name, ok := r.cache.Get(strconv.FormatInt(id, 10)); ok {
			out[id] = name
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)
	for _, id := range missing {
		g.Go(func() error {
			u, err := r.users.User(gctx, id)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				observability.FromContext(ctx).Debug("resolve author name failed", "user_id", id, "error", err)
				return nil
			}
			name := u.DisplayName()
			r.cache.Set(strconv.FormatInt(id, 10), name, r.ttl)
			mu.Lock()
			out[id] = name
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Forget drops a cached name, e.g. after the user edited their profile.
func (r *NameResolver) Forget(id int64) {
	r.cache.Delete(strconv.FormatInt(id, 10))
}
