// Package auth keeps the signed-in session: where the token pair is
// persisted, single-flight refresh and teardown.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"carelink/internal/models"
	"carelink/internal/storage"
)

const payloadKey = "auth"

// Vault 保存认证载荷。勾选"记住我"时写持久存储，否则写会话存储，并删除另一边的副本
type Vault struct {
	durable storage.KV
	session storage.KV
}

func NewVault(durable, session storage.KV) *Vault {
	return &Vault{durable: durable, session: session}
}

func (v *Vault) Save(ctx context.Context, pair models.TokenPair, remember bool) error {
	raw, err := json.Marshal(pair)
	if err != nil {
		return err
	}
	keep, drop := v.session, v.durable
	if remember {
		keep, drop = v.durable, v.session
	}
	if err := keep.Set(ctx, payloadKey, raw); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	if err := drop.Delete(ctx, payloadKey); err != nil {
		return fmt.Errorf("drop stale session copy: %w", err)
	}
	return nil
}

// Load returns the stored pair; the session store wins over the durable one.
// ok is false when neither holds a payload.
func (v *Vault) Load(ctx context.Context) (pair models.TokenPair, remember bool, ok bool, err error) {
	for _, src := range []struct {
		kv       storage.KV
		remember bool
	}{{v.session, false}, {v.durable, true}} {
		raw, err := src.kv.Get(ctx, payloadKey)
		if errors.Is(err, storage.ErrMissing) {
			continue
		}
		if errors.Is(err, storage.ErrTampered) {
			// 密钥换了或数据被改过，当作没有登录
			_ = src.kv.Delete(ctx, payloadKey)
			continue
		}
		if err != nil {
			return models.TokenPair{}, false, false, err
		}
		var p models.TokenPair
		if err := json.Unmarshal(raw, &p); err != nil || p.Empty() {
			_ = src.kv.Delete(ctx, payloadKey)
			continue
		}
		return p, src.remember, true, nil
	}
	return models.TokenPair{}, false, false, nil
}

// Clear removes the payload from both stores.
func (v *Vault) Clear(ctx context.Context) error {
	return errors.Join(
		v.durable.Delete(ctx, payloadKey),
		v.session.Delete(ctx, payloadKey),
	)
}
