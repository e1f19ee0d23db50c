// Package storage holds the client-side key/value stores: a durable one
// (gorm), a session-scoped one (redis or in-process LRU) and a sealing
// wrapper for secrets at rest.
package storage

import (
	"context"
	"errors"
)

// ErrMissing is returned by Get when the key is absent.
var ErrMissing = errors.New("storage: key not found")

// KV is a byte-valued key/value store.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Prefixed scopes every key of inner under prefix.
type Prefixed struct {
	inner  KV
	prefix string
}

func WithPrefix(inner KV, prefix string) *Prefixed {
	return &Prefixed{inner: inner, prefix: prefix}
}

func (p *Prefixed) Get(ctx context.Context, key string) ([]byte, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *Prefixed) Set(ctx context.Context, key string, value []byte) error {
	return p.inner.Set(ctx, p.prefix+key, value)
}

func (p *Prefixed) Delete(ctx context.Context, key string) error {
	return p.inner.Delete(ctx, p.prefix+key)
}
