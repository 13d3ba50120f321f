package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
	"github.com/tronwatch/tronwatch_service/internal/domain/services/keyalloc"
	"github.com/tronwatch/tronwatch_service/pkg/metrics"
)

// base holds what both strategies share: the bus, the owned wallet and
// credential snapshots, and the Stopped/Running state machine.
type base struct {
	strategy string
	cfg      Config
	bus      *Bus
	keys     *keyalloc.Allocator
	state    StateStore
	logger   *zap.Logger
	registry atomic.Pointer[entities.WalletRegistry]

	// lifecycle serializes Start and Stop
	lifecycle sync.Mutex

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func (b *base) setup(strategy string, cfg Config, deps Deps) {
	cfg.applyDefaults()
	if deps.Keys == nil {
		deps.Keys = keyalloc.New(nil)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	b.strategy = strategy
	b.cfg = cfg
	b.bus = NewBus()
	b.keys = deps.Keys
	b.state = deps.State
	b.logger = deps.Logger.With(zap.String("strategy", strategy))
	b.registry.Store(entities.NewWalletRegistry(deps.Wallets))
}

// UpdateWallets swaps the wallet snapshot; a cycle in flight keeps the old one
func (b *base) UpdateWallets(wallets []entities.Wallet) {
	registry := entities.NewWalletRegistry(wallets)
	b.registry.Store(registry)
	b.logger.Info("Wallets updated", zap.Int("count", registry.Len()))
}

// UpdateKeys replaces the credential set of the allocator
func (b *base) UpdateKeys(keys []string) {
	b.keys.Update(keys)
	b.logger.Info("API keys updated", zap.Int("count", b.keys.Count()))
}

// Subscribe registers a bus subscriber
func (b *base) Subscribe(buffer int) (<-chan entities.MonitorEvent, func()) {
	return b.bus.Subscribe(buffer)
}

func (b *base) isRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

// begin flips Stopped to Running and returns the loop context. ok is false
// when the source was already running.
func (b *base) begin(parent context.Context) (ctx context.Context, done chan struct{}, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return nil, nil, false
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	b.running = true
	b.cancel = cancel
	b.done = make(chan struct{})
	return ctx, b.done, true
}

// end flips Running to Stopped, cancels pending timers and waits for the
// loop to return. ok is false when the source was not running.
func (b *base) end(onCancel func()) bool {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return false
	}
	b.running = false
	cancel, done := b.cancel, b.done
	b.mu.Unlock()

	cancel()
	if onCancel != nil {
		onCancel()
	}
	if !waitDone(done, b.cfg.StopTimeout) {
		b.logger.Warn("Source loop did not exit before stop timeout",
			zap.Duration("timeout", b.cfg.StopTimeout))
	}
	return true
}

func (b *base) publish(t entities.MonitorEventType, detail string) {
	b.bus.Publish(entities.MonitorEvent{
		Type:     t,
		Strategy: b.strategy,
		Error:    detail,
		At:       time.Now(),
	})
}

func (b *base) emitTransfer(ev entities.TransferEvent) {
	metrics.TransfersEmitted.WithLabelValues(b.strategy, string(ev.Direction)).Inc()
	b.bus.Publish(entities.MonitorEvent{
		Type:     entities.EventTransaction,
		Strategy: b.strategy,
		Transfer: &ev,
		At:       time.Now(),
	})
}

func (b *base) status(connected bool) entities.MonitorStatus {
	return entities.MonitorStatus{
		Running:         b.isRunning(),
		Connected:       connected,
		WalletCount:     b.registry.Load().Len(),
		CredentialCount: b.keys.Count(),
		Strategy:        b.strategy,
	}
}

// persistCtx bounds state I/O independently of the loop context, so a
// flush during Stop is not cut short by the cancellation.
func persistCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
}

func recordFlush(store string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.StateFlushes.WithLabelValues(store, result).Inc()
}
