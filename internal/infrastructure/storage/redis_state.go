package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yourusername/cartech-bot/internal/domain/repository"
)

const stateKeyPrefix = "cartech:chat_state:"

type stateCmdable interface {
	Get(context.Context, string) *redis.StringCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Del(context.Context, ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// RedisStateRepository keeps chat wizard state in Redis with a TTL.
type RedisStateRepository struct {
	store stateCmdable
	raw   *redis.Client
	ttl   time.Duration
}

// NewRedisStateRepository REDIS_URL bo'yicha ulanadi va ping qiladi.
func NewRedisStateRepository(ctx context.Context, url string, ttl time.Duration) (*RedisStateRepository, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStateRepository{store: raw, raw: raw, ttl: ttl}, nil
}

func stateKey(chatID int64) string {
	return stateKeyPrefix + strconv.FormatInt(chatID, 10)
}

func (r *RedisStateRepository) Get(ctx context.Context, chatID int64) (repository.ChatState, bool, error) {
	raw, err := r.store.Get(ctx, stateKey(chatID)).Result()
	if errors.Is(err, redis.Nil) {
		return repository.ChatState{}, false, nil
	}
	if err != nil {
		return repository.ChatState{}, false, fmt.Errorf("redis get state: %w", err)
	}
	var st repository.ChatState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return repository.ChatState{}, false, fmt.Errorf("decode chat state: %w", err)
	}
	return st, true, nil
}

func (r *RedisStateRepository) Set(ctx context.Context, chatID int64, state repository.ChatState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, stateKey(chatID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set state: %w", err)
	}
	return nil
}

func (r *RedisStateRepository) Delete(ctx context.Context, chatID int64) error {
	if err := r.store.Del(ctx, stateKey(chatID)).Err(); err != nil {
		return fmt.Errorf("redis del state: %w", err)
	}
	return nil
}

// Reset startda barcha chat holatlarini o'chiradi
func (r *RedisStateRepository) Reset(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.store.Scan(ctx, cursor, stateKeyPrefix+"*", 200).Result()
		if err != nil {
			return fmt.Errorf("redis scan state: %w", err)
		}
		if len(keys) > 0 {
			if err := r.store.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis reset state: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close redis ulanishini yopish
func (r *RedisStateRepository) Close() error {
	if r.raw == nil {
		return nil
	}
	return r.raw.Close()
}
