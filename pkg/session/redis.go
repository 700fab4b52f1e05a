package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/siete/assetforge/pkg/errors"
)

// RedisStore keeps states in Redis so any API replica can finish a flow.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore stores keys as prefix+token.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) Put(ctx context.Context, token string, s State, ttl time.Duration) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+token, data, ttl).Err()
}

func (r *RedisStore) Take(ctx context.Context, token string) (*State, error) {
	data, err := r.client.GetDel(ctx, r.prefix+token).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, errors.New(errors.ErrCodeNotFound, "unknown or expired authorization state")
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "read authorization state")
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "decode authorization state")
	}
	return &s, nil
}

// Close is a no-op; the client is owned by the caller.
func (r *RedisStore) Close() error { return nil }

var _ StateStore = (*RedisStore)(nil)
