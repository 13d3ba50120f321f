package di

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tronwatch/tronwatch_service/internal/api/handlers"
	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
	"github.com/tronwatch/tronwatch_service/internal/infrastructure/config"
	"github.com/tronwatch/tronwatch_service/pkg/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.LoadFile(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	cfg.WatchlistPath = filepath.Join(dir, "watchlist.yaml")
	cfg.Monitoring.StateDir = filepath.Join(dir, "state")
	cfg.Telegram.BotToken = ""
	cfg.Telegram.ChatID = ""
	cfg.Wallets = []entities.Wallet{{Address: "TLa2f6VPqDgRE67v1736s7bJ8Ray5wYjU7", Name: "Ops"}}
	cfg.Tronscan.APIKeys = []string{"k1", "k2"}
	return cfg
}

func TestNewContainer_Polling(t *testing.T) {
	c, err := NewContainer(testConfig(t), logger.NewNop())
	require.NoError(t, err)
	defer c.Close()

	assert.False(t, c.SenderConfigured)
	assert.Len(t, c.Store.Wallets(), 1)
	assert.Equal(t, 2, c.Keys.Count())

	st := c.Source.Status()
	assert.Equal(t, "polling", st.Strategy)
	assert.Equal(t, 1, st.WalletCount)
	assert.Equal(t, 2, st.CredentialCount)
	assert.False(t, st.Running)

	// a key update through the source reaches the shared allocator
	c.Source.UpdateKeys([]string{"k3"})
	assert.Equal(t, 1, c.Keys.Count())
	assert.Equal(t, "k3", c.Keys.Next())

	checks := c.HealthChecks()
	require.Contains(t, checks, "monitor")
	require.Contains(t, checks, "notifier")
	assert.NotContains(t, checks, "redis")
	assert.Equal(t, handlers.StatusDegraded, checks["monitor"](context.Background()).Status)
	assert.Equal(t, handlers.StatusDegraded, checks["notifier"](context.Background()).Status)
}

func TestNewContainer_StreamingWithoutDialer(t *testing.T) {
	cfg := testConfig(t)
	cfg.Monitoring.Strategy = "streaming"
	cfg.Tronscan.StreamURL = ""

	_, err := NewContainer(cfg, logger.NewNop())
	assert.Error(t, err)
}

func TestNewContainer_TelegramConfigured(t *testing.T) {
	cfg := testConfig(t)
	cfg.Telegram.BotToken = "123456789:ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghi"
	cfg.Telegram.ChatID = "-100200300"

	c, err := NewContainer(cfg, logger.NewNop())
	require.NoError(t, err)
	defer c.Close()

	assert.True(t, c.SenderConfigured)
	assert.Equal(t, handlers.StatusHealthy, c.HealthChecks()["notifier"](context.Background()).Status)
}
