package viewstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store shared by every portal instance.
type Redis struct {
	rdb    redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewRedis wraps rdb. prefix namespaces every key (default "studentportal:").
func NewRedis(rdb redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if prefix == "" {
		prefix = "studentportal:"
	}
	return &Redis{rdb: rdb, ttl: ttl, prefix: prefix}
}

func (s *Redis) valueKey(key string) string { return s.prefix + "vs:" + key }
func (s *Redis) genKey(key string) string   { return s.prefix + "gen:" + key }

// Next uses INCR so concurrent instances never hand out the same generation.
func (s *Redis) Next(ctx context.Context, key string) (int64, error) {
	k := s.genKey(key)
	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("viewstate: incr %s: %w", key, err)
	}
	return incr.Val(), nil
}

func (s *Redis) Current(ctx context.Context, key string) (int64, error) {
	n, err := s.rdb.Get(ctx, s.genKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("viewstate: get generation %s: %w", key, err)
	}
	return n, nil
}

func (s *Redis) Save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("viewstate: encode %s: %w", key, err)
	}
	if err := s.rdb.Set(ctx, s.valueKey(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("viewstate: set %s: %w", key, err)
	}
	return nil
}

func (s *Redis) Load(ctx context.Context, key string, v any) (bool, error) {
	data, err := s.rdb.Get(ctx, s.valueKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("viewstate: get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("viewstate: decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Redis) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.valueKey(key)).Err(); err != nil {
		return fmt.Errorf("viewstate: del %s: %w", key, err)
	}
	return nil
}

func (s *Redis) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
