package monitor

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
	apperrors "github.com/tronwatch/tronwatch_service/internal/domain/errors"
	"github.com/tronwatch/tronwatch_service/internal/domain/services/enricher"
	"github.com/tronwatch/tronwatch_service/pkg/metrics"
	"github.com/tronwatch/tronwatch_service/pkg/timeutil"
	"github.com/tronwatch/tronwatch_service/pkg/tracing"
)

// PollingSource sweeps the wallet list on a fixed interval, one wallet at
// a time, and emits transfers newer than each wallet's watermark.
type PollingSource struct {
	base
	lister TransferLister
	marks  *Watermarks
	loaded bool
}

var _ Source = (*PollingSource)(nil)

// NewPollingSource creates a stopped polling source
func NewPollingSource(cfg Config, deps Deps) *PollingSource {
	p := &PollingSource{
		lister: deps.Lister,
		marks:  NewWatermarks(),
	}
	p.setup(StrategyPolling, cfg, deps)
	return p
}

// Start loads persisted watermarks on first start, emits connected and
// runs the first sweep right away.
func (p *PollingSource) Start(ctx context.Context) error {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	if p.isRunning() {
		p.logger.Debug("Polling source already running")
		return nil
	}
	p.loadState(ctx)

	loopCtx, done, ok := p.begin(ctx)
	if !ok {
		return nil
	}

	p.logger.Info("Polling source started",
		zap.Int("wallets", p.registry.Load().Len()),
		zap.Int("api_keys", p.keys.Count()),
		zap.Duration("interval", p.cfg.PollInterval))
	p.publish(entities.EventConnected, "")

	go p.run(loopCtx, done)
	return nil
}

// Stop cancels the pending tick, waits for a sweep in flight, flushes
// watermarks and emits disconnected.
func (p *PollingSource) Stop(ctx context.Context) error {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	if !p.end(nil) {
		return nil
	}
	if err := p.flush(ctx); err != nil {
		p.logger.Error("Failed to save watermarks on stop", zap.Error(err))
	}
	p.publish(entities.EventDisconnected, "")
	p.logger.Info("Polling source stopped")
	return nil
}

// Status reports connected as running; there is no live connection to track
func (p *PollingSource) Status() entities.MonitorStatus {
	return p.status(p.isRunning())
}

// Watermark returns the committed watermark of addr
func (p *PollingSource) Watermark(addr string) int64 {
	return p.marks.Get(addr)
}

func (p *PollingSource) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		p.sweep(ctx)

		// next tick is scheduled only once the sweep is over
		if !p.isRunning() || !timeutil.Sleep(ctx, p.cfg.PollInterval) {
			return
		}
	}
}

// sweep visits every wallet in list order. A wallet failure is logged and
// skipped; watermarks are written once, and only if something was new.
func (p *PollingSource) sweep(ctx context.Context) {
	ctx, span := tracing.GetTracer("monitor").Start(ctx, "monitor.sweep")
	defer span.End()

	start := time.Now()
	registry := p.registry.Load()
	wallets := registry.Wallets()
	span.SetAttributes(attribute.Int("wallets", len(wallets)))

	fresh := 0
	for i, wallet := range wallets {
		if !p.isRunning() {
			break
		}
		if i > 0 && !timeutil.Sleep(ctx, p.cfg.WalletDelay) {
			break
		}

		n, err := p.pollWallet(ctx, wallet, registry)
		if err != nil {
			kind := apperrors.Classify(err)
			metrics.FetchErrors.WithLabelValues("list_transfers", string(kind)).Inc()
			p.logger.Warn("Failed to fetch wallet transfers",
				zap.String("wallet", wallet.Address),
				zap.String("kind", string(kind)),
				zap.Error(err))
			p.publish(entities.EventError, fmt.Sprintf("wallet %s: %v", wallet.Address, err))
			continue
		}
		fresh += n
	}

	if fresh > 0 {
		if err := p.flush(ctx); err != nil {
			p.logger.Error("Failed to save watermarks", zap.Error(err))
		}
	} else {
		p.logger.Debug("No new transactions")
	}

	span.SetAttributes(attribute.Int("transfers", fresh))
	metrics.SweepsTotal.Inc()
	metrics.SweepDuration.Observe(time.Since(start).Seconds())
}

// pollWallet fetches one page and emits its unseen transfers oldest first.
// The request is detached from loop cancellation: Stop lets it finish.
func (p *PollingSource) pollWallet(ctx context.Context, wallet entities.Wallet, registry *entities.WalletRegistry) (int, error) {
	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.RequestTimeout)
	defer cancel()

	records, err := p.lister.ListTransfers(reqCtx, wallet.Address, p.cfg.PageSize, p.keys.Next())
	if err != nil {
		return 0, err
	}

	mark := p.marks.Get(wallet.Address)
	var newest int64
	fresh := make([]entities.RawTransfer, 0, len(records))
	for _, rec := range records {
		if rec.Timestamp > newest {
			newest = rec.Timestamp
		}
		if rec.Timestamp > mark {
			fresh = append(fresh, rec)
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	// wire order is newest first
	for i, j := 0, len(fresh)-1; i < j; i, j = i+1, j-1 {
		fresh[i], fresh[j] = fresh[j], fresh[i]
	}
	enricher.SortOldestFirst(fresh)

	emitted := 0
	for _, rec := range fresh {
		if rec.Hash == "" {
			continue
		}
		rec.Direction, rec.Matched = enricher.ClassifyPolled(rec, wallet, registry)
		p.emitTransfer(enricher.Enrich(rec, registry))
		emitted++
	}

	// the whole page, not just the fresh subset, bounds the new mark
	p.marks.Advance(wallet.Address, newest)

	p.logger.Debug("Wallet transfers processed",
		zap.String("wallet", wallet.Address),
		zap.Int("page", len(records)),
		zap.Int("new", emitted),
		zap.Int64("watermark", newest))
	return len(fresh), nil
}

func (p *PollingSource) loadState(ctx context.Context) {
	if p.loaded || p.state == nil {
		return
	}
	p.loaded = true

	loadCtx, cancel := persistCtx(ctx)
	defer cancel()

	marks, err := p.state.LoadWatermarks(loadCtx)
	if err != nil {
		p.logger.Error("Failed to load watermarks, starting empty", zap.Error(err))
		return
	}
	p.marks.Load(marks)
	p.logger.Info("Loaded watermarks", zap.Int("wallets", len(marks)))
}

func (p *PollingSource) flush(ctx context.Context) error {
	if p.state == nil {
		return nil
	}
	saveCtx, cancel := persistCtx(ctx)
	defer cancel()

	err := p.state.SaveWatermarks(saveCtx, p.marks.Snapshot())
	recordFlush("watermarks", err)
	if err != nil {
		return fmt.Errorf("save watermarks: %w", err)
	}
	p.logger.Debug("Saved watermarks", zap.Int("wallets", p.marks.Len()))
	return nil
}
