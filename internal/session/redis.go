package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions as JSON strings, one key per user. Keys never expire:
// a pending flow stays open until the user finishes or cancels it.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) key(userID int64) string {
	return r.prefix + strconv.FormatInt(userID, 10)
}

func (r *RedisStore) Get(ctx context.Context, userID int64) (Session, error) {
	raw, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("session: get %d: %w", userID, err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, fmt.Errorf("session: decode %d: %w", userID, err)
	}
	return s, nil
}

func (r *RedisStore) Put(ctx context.Context, userID int64, s Session) error {
	if !s.Active() {
		return r.Clear(ctx, userID)
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: encode %d: %w", userID, err)
	}
	if err := r.client.Set(ctx, r.key(userID), raw, 0).Err(); err != nil {
		return fmt.Errorf("session: put %d: %w", userID, err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("session: clear %d: %w", userID, err)
	}
	return nil
}
