// Package optimistic models a local change applied before the server confirms it.
package optimistic

import (
	"sync"

	"carelink/internal/models"
	"carelink/internal/observability"
)

// State pending → confirmed | rolled back
type State int32

const (
	Pending State = iota
	Confirmed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Confirmed:
		return "confirmed"
	case RolledBack:
		return "rolled_back"
	}
	return "pending"
}

// Mutation 一次乐观修改。快照在任何本地修改之前捕获，回滚只是一次赋值
type Mutation[T any] struct {
	kind     string
	mu       sync.Mutex
	state    State
	snapshot T
}

// Begin opens a mutation of the given kind ("vote", "comment_add", ...).
func Begin[T any](kind string, snapshot T) *Mutation[T] {
	return &Mutation[T]{kind: kind, snapshot: snapshot}
}

func (m *Mutation[T]) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Confirm 服务端确认。非 Pending 状态下调用无效果
func (m *Mutation[T]) Confirm() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Pending {
		return false
	}
	m.state = Confirmed
	observability.MutationOutcomes.WithLabelValues(m.kind, Confirmed.String()).Inc()
	return true
}

// Rollback marks the mutation rolled back and hands back the snapshot to restore.
func (m *Mutation[T]) Rollback() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Pending {
		var zero T
		return zero, false
	}
	m.state = RolledBack
	observability.MutationOutcomes.WithLabelValues(m.kind, RolledBack.String()).Inc()
	return m.snapshot, true
}

// Locks 按实体加锁。独占锁：同一实体同一时间只允许一个进行中的修改；
// 共享锁：回复进行中时祖先节点不能被删除，多条回复可以同时进行
type Locks struct {
	mu     sync.Mutex
	busy   map[string]struct{}
	shared map[string]int
}

func NewLocks() *Locks {
	return &Locks{busy: make(map[string]struct{}), shared: make(map[string]int)}
}

// Acquire takes the exclusive lock for key or fails with
// models.ErrMutationInFlight. The returned release func is idempotent.
func (l *Locks) Acquire(key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.busy[key]; taken || l.shared[key] > 0 {
		return nil, models.ErrMutationInFlight
	}
	l.busy[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.busy, key)
			l.mu.Unlock()
		})
	}, nil
}

// Share takes a shared hold on every key, all or nothing. It fails with
// models.ErrMutationInFlight if any key is held exclusively.
func (l *Locks) Share(keys ...string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, k := range keys {
		if _, taken := l.busy[k]; taken {
			return nil, models.ErrMutationInFlight
		}
	}
	for _, k := range keys {
		l.shared[k]++
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			for _, k := range keys {
				if l.shared[k]--; l.shared[k] <= 0 {
					delete(l.shared, k)
				}
			}
			l.mu.Unlock()
		})
	}, nil
}

// Busy reports whether key is held, exclusively or shared.
func (l *Locks) Busy(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, taken := l.busy[key]
	return taken || l.shared[key] > 0
}
