package auth

import (
	"context"
	"fmt"
	"time"
)

// Revoker remembers logged-out token ids until they expire.
type Revoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// KV is the subset of the redis client used for revocation.
type KV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Exists(ctx context.Context, keys ...string) (int64, error)
}

type RedisRevoker struct {
	kv  KV
	now func() time.Time
}

func NewRedisRevoker(kv KV) *RedisRevoker {
	return &RedisRevoker{kv: kv, now: time.Now}
}

func blacklistKey(jti string) string {
	return fmt.Sprintf("auth:blacklist:%s", jti)
}

func (r *RedisRevoker) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	return r.kv.Set(ctx, blacklistKey(jti), "revoked", ttl)
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	count, err := r.kv.Exists(ctx, blacklistKey(jti))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
