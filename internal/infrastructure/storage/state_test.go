package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/cartech-bot/internal/domain/repository"
)

func TestMemoryStateRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStateRepository()

	_, ok, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Set(ctx, 1, repository.ChatState{Action: repository.ActionSupportChat, SessionID: 3}))
	require.NoError(t, repo.Set(ctx, 1, repository.ChatState{Action: repository.ActionAwaitCustomBrand}))
	st, ok, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, repository.ActionAwaitCustomBrand, st.Action)

	require.NoError(t, repo.Set(ctx, 2, repository.ChatState{Action: repository.ActionSelectingYear}))
	require.NoError(t, repo.Delete(ctx, 2))
	_, ok, _ = repo.Get(ctx, 2)
	assert.False(t, ok)

	require.NoError(t, repo.Reset(ctx))
	_, ok, _ = repo.Get(ctx, 1)
	assert.False(t, ok)
}

type fakeStateCmdable struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeStateCmdable() *fakeStateCmdable {
	return &fakeStateCmdable{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStateCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeStateCmdable) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeStateCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (f *fakeStateCmdable) Scan(_ context.Context, _ uint64, match string, _ int64) *redis.ScanCmd {
	prefix := strings.TrimSuffix(match, "*")
	var keys []string
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return redis.NewScanCmdResult(keys, 0, nil)
}

func TestRedisStateRepository(t *testing.T) {
	ctx := context.Background()
	fake := newFakeStateCmdable()
	repo := &RedisStateRepository{store: fake, ttl: time.Hour}

	require.NoError(t, repo.Set(ctx, 10, repository.ChatState{Action: repository.ActionSelectingCar, BrandID: "toyota", BrandName: "Toyota"}))
	assert.Equal(t, time.Hour, fake.ttls["cartech:chat_state:10"])

	st, ok, err := repo.Get(ctx, 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Toyota", st.BrandName)

	fake.data["other:key"] = "x"
	require.NoError(t, repo.Set(ctx, 11, repository.ChatState{Action: repository.ActionSupportChat}))
	require.NoError(t, repo.Reset(ctx))
	_, ok, err = repo.Get(ctx, 10)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, fake.data, "other:key")
}
