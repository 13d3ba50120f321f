// Package monitor discovers new transfers of the configured wallets,
// either by polling the ledger indexer or by following its push feed.
package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
	"github.com/tronwatch/tronwatch_service/internal/domain/services/keyalloc"
)

const (
	StrategyPolling   = "polling"
	StrategyStreaming = "streaming"
)

// Source is the capability set shared by both strategies.
type Source interface {
	// Start is a no-op when already running. The source keeps running
	// after ctx is cancelled; only Stop ends it.
	Start(ctx context.Context) error
	// Stop ends the operating loop, flushes progress state and emits
	// disconnected. An in-flight request is allowed to finish.
	Stop(ctx context.Context) error
	UpdateWallets(wallets []entities.Wallet)
	UpdateKeys(keys []string)
	Status() entities.MonitorStatus
	Subscribe(buffer int) (<-chan entities.MonitorEvent, func())
}

// TransferLister queries the most recent transfers of one address,
// newest first.
type TransferLister interface {
	ListTransfers(ctx context.Context, address string, limit int, apiKey string) ([]entities.RawTransfer, error)
}

// StreamDialer opens a push-feed connection
type StreamDialer interface {
	Dial(ctx context.Context, apiKey string) (StreamConn, error)
}

// StreamConn yields the transfer records of each inbound message
type StreamConn interface {
	ReadTransfers() ([]entities.RawTransfer, error)
	Close() error
}

// StateStore persists watermarks and the seen-hash cache
type StateStore interface {
	LoadWatermarks(ctx context.Context) (map[string]int64, error)
	SaveWatermarks(ctx context.Context, marks map[string]int64) error
	LoadSeen(ctx context.Context) ([]string, error)
	SaveSeen(ctx context.Context, hashes []string) error
}

// Config holds the timing of both strategies
type Config struct {
	Strategy          string
	PollInterval      time.Duration
	WalletDelay       time.Duration
	RequestTimeout    time.Duration
	PageSize          int
	ReconnectInterval time.Duration
	SeenCapacity      int
	SeenFlushInterval time.Duration
	EmitUnmatched     bool
	StopTimeout       time.Duration
}

// DefaultConfig returns the production timing
func DefaultConfig() Config {
	return Config{
		Strategy:          StrategyPolling,
		PollInterval:      10 * time.Second,
		WalletDelay:       300 * time.Millisecond,
		RequestTimeout:    15 * time.Second,
		PageSize:          20,
		ReconnectInterval: 5 * time.Second,
		SeenCapacity:      DefaultSeenCapacity,
		SeenFlushInterval: 30 * time.Second,
		EmitUnmatched:     true,
		StopTimeout:       30 * time.Second,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.WalletDelay < 0 {
		c.WalletDelay = 0
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.PageSize <= 0 {
		c.PageSize = d.PageSize
	}
	if c.ReconnectInterval <= 0 {
		c.ReconnectInterval = d.ReconnectInterval
	}
	if c.SeenCapacity <= 0 {
		c.SeenCapacity = d.SeenCapacity
	}
	if c.SeenFlushInterval <= 0 {
		c.SeenFlushInterval = d.SeenFlushInterval
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = d.StopTimeout
	}
}

// Deps are the collaborators of a source
type Deps struct {
	Lister  TransferLister
	Dialer  StreamDialer
	State   StateStore
	Keys    *keyalloc.Allocator
	Wallets []entities.Wallet
	Logger  *zap.Logger
}

// NewSource builds the source selected by cfg.Strategy
func NewSource(cfg Config, deps Deps) (Source, error) {
	switch cfg.Strategy {
	case StrategyPolling, "":
		if deps.Lister == nil {
			return nil, fmt.Errorf("polling source requires a transfer lister")
		}
		return NewPollingSource(cfg, deps), nil
	case StrategyStreaming:
		if deps.Dialer == nil {
			return nil, fmt.Errorf("streaming source requires a stream dialer")
		}
		return NewStreamingSource(cfg, deps), nil
	default:
		return nil, fmt.Errorf("unknown monitoring strategy %q", cfg.Strategy)
	}
}

// waitDone waits for done up to timeout
func waitDone(done <-chan struct{}, timeout time.Duration) bool {
	if done == nil {
		return true
	}
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
