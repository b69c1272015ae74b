package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr        string
	Password    string
	DB          int
	AnalysisTTL time.Duration // 0 keeps analyses forever
}

// RedisStore shares analyses between engine processes through redis.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// OpenRedis connects and pings the server.
func OpenRedis(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return NewRedisStore(rdb, opts.AnalysisTTL), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Close() error { return s.rdb.Close() }

// SaveAnalysis stores a unless a deeper analysis is already cached. The
// compare and set runs under WATCH so concurrent engines cannot overwrite
// a deeper result.
func (s *RedisStore) SaveAnalysis(ctx context.Context, a *Analysis) error {
	a.prepare()
	key := analysisKey(a.FEN)
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}

	return s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		old, err := getRedisJSON[Analysis](ctx, tx, key)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if !a.supersedes(old) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, s.ttl)
			return nil
		})
		return err
	}, key)
}

func (s *RedisStore) LoadAnalysis(ctx context.Context, fen string) (*Analysis, error) {
	return getRedisJSON[Analysis](ctx, s.rdb, analysisKey(fen))
}

func (s *RedisStore) SavePreferences(ctx context.Context, p *Preferences) error {
	p.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, keyPreferences, raw, 0).Err()
}

func (s *RedisStore) LoadPreferences(ctx context.Context) (*Preferences, error) {
	return getRedisJSON[Preferences](ctx, s.rdb, keyPreferences)
}

func getRedisJSON[T any](ctx context.Context, c redis.Cmdable, key string) (*T, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	v := new(T)
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, err
	}
	return v, nil
}
