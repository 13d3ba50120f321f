package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/tronwatch/tronwatch_service/internal/domain/errors"
	"github.com/tronwatch/tronwatch_service/internal/infrastructure/cache"
)

func TestFileStateRepository(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "state")
	repo := NewFileStateRepository(dir, zap.NewNop())

	t.Run("missing files are empty state", func(t *testing.T) {
		marks, err := repo.LoadWatermarks(ctx)
		require.NoError(t, err)
		assert.Empty(t, marks)

		seen, err := repo.LoadSeen(ctx)
		require.NoError(t, err)
		assert.Empty(t, seen)
	})

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, repo.SaveWatermarks(ctx, map[string]int64{"tabc": 120}))
		require.NoError(t, repo.SaveSeen(ctx, []string{"h1", "h2"}))

		marks, err := repo.LoadWatermarks(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"tabc": 120}, marks)

		seen, err := repo.LoadSeen(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"h1", "h2"}, seen)
	})

	t.Run("file is rewritten wholesale", func(t *testing.T) {
		require.NoError(t, repo.SaveWatermarks(ctx, map[string]int64{"tdef": 5}))

		data, err := os.ReadFile(filepath.Join(dir, "wallet-timestamps.json"))
		require.NoError(t, err)
		var onDisk map[string]int64
		require.NoError(t, json.Unmarshal(data, &onDisk))
		assert.Equal(t, map[string]int64{"tdef": 5}, onDisk)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 2, "no temp files left behind")
	})

	t.Run("corrupt file is a persistence error", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "seen-hashes.json"), []byte("{nope"), 0o600))
		_, err := repo.LoadSeen(ctx)
		assert.ErrorIs(t, err, apperrors.ErrPersistence)
	})
}

// MockRedis is an in-memory cache.RedisClient
type MockRedis struct {
	data   map[string][]byte
	setErr error
}

func newMockRedis() *MockRedis {
	return &MockRedis{data: map[string][]byte{}}
}

func (m *MockRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = data
	return nil
}

func (m *MockRedis) Get(ctx context.Context, key string, dest interface{}) error {
	data, ok := m.data[key]
	if !ok {
		return fmt.Errorf("key '%s': %w", key, cache.ErrCacheMiss)
	}
	return json.Unmarshal(data, dest)
}

func (m *MockRedis) Del(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *MockRedis) Ping(ctx context.Context) error { return nil }
func (m *MockRedis) Close() error                   { return nil }

func TestRedisStateRepository(t *testing.T) {
	ctx := context.Background()
	client := newMockRedis()
	repo := NewRedisStateRepository(client, "tronwatch", nil)

	marks, err := repo.LoadWatermarks(ctx)
	require.NoError(t, err)
	assert.Empty(t, marks)

	require.NoError(t, repo.SaveWatermarks(ctx, map[string]int64{"tabc": 99}))
	require.NoError(t, repo.SaveSeen(ctx, nil))
	assert.Contains(t, client.data, "tronwatch:wallet-timestamps")
	assert.JSONEq(t, `[]`, string(client.data["tronwatch:seen-hashes"]))

	marks, err = repo.LoadWatermarks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(99), marks["tabc"])

	client.setErr = errors.New("READONLY")
	err = repo.SaveSeen(ctx, []string{"h"})
	assert.ErrorIs(t, err, apperrors.ErrPersistence)
	assert.Equal(t, apperrors.KindPersistence, apperrors.Classify(err))
}
