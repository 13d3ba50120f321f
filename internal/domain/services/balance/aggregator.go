// Package balance aggregates per-wallet USD balances into a report.
package balance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
	"github.com/tronwatch/tronwatch_service/internal/domain/services/keyalloc"
	"github.com/tronwatch/tronwatch_service/internal/domain/services/notification"
	"github.com/tronwatch/tronwatch_service/pkg/metrics"
	"github.com/tronwatch/tronwatch_service/pkg/timeutil"
	"github.com/tronwatch/tronwatch_service/pkg/tracing"
)

// Fetcher returns the aggregate USD value of an address
type Fetcher interface {
	FetchUSDBalance(ctx context.Context, address, apiKey string) (decimal.Decimal, error)
}

// Submitter accepts a formatted notification job
type Submitter interface {
	Enqueue(job entities.NotificationJob)
}

// Config holds aggregation timing
type Config struct {
	WalletDelay    time.Duration
	RequestTimeout time.Duration
}

// DefaultConfig returns the production timings
func DefaultConfig() Config {
	return Config{
		WalletDelay:    500 * time.Millisecond,
		RequestTimeout: 15 * time.Second,
	}
}

// Aggregator fetches one snapshot per wallet, sequentially, and hands a
// single digest to the submitter.
type Aggregator struct {
	fetcher   Fetcher
	keys      *keyalloc.Allocator
	formatter *notification.Formatter
	submitter Submitter
	config    Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewAggregator creates an aggregator. A nil submitter means reports are
// only returned, never sent.
func NewAggregator(
	fetcher Fetcher,
	keys *keyalloc.Allocator,
	formatter *notification.Formatter,
	submitter Submitter,
	config Config,
	logger *zap.Logger,
) *Aggregator {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultConfig().RequestTimeout
	}
	if config.WalletDelay < 0 {
		config.WalletDelay = 0
	}
	if keys == nil {
		keys = keyalloc.New(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		fetcher:   fetcher,
		keys:      keys,
		formatter: formatter,
		submitter: submitter,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// Collect fetches a snapshot for every wallet in order. Failures are
// recorded on the snapshot and do not stop the run.
func (a *Aggregator) Collect(ctx context.Context, wallets []entities.Wallet) []entities.BalanceSnapshot {
	snapshots := make([]entities.BalanceSnapshot, 0, len(wallets))
	for i, wallet := range wallets {
		if i > 0 && !timeutil.Sleep(ctx, a.config.WalletDelay) {
			for _, rest := range wallets[i:] {
				snapshots = append(snapshots, entities.BalanceSnapshot{Wallet: rest, USDValue: decimal.Zero, Error: ctx.Err().Error()})
			}
			break
		}
		snapshots = append(snapshots, a.fetch(ctx, wallet))
	}
	return snapshots
}

func (a *Aggregator) fetch(ctx context.Context, wallet entities.Wallet) entities.BalanceSnapshot {
	reqCtx, cancel := context.WithTimeout(ctx, a.config.RequestTimeout)
	defer cancel()

	value, err := a.fetcher.FetchUSDBalance(reqCtx, wallet.Address, a.keys.Next())
	if err != nil {
		a.logger.Warn("Failed to fetch wallet balance",
			zap.String("wallet", wallet.Label()),
			zap.String("address", wallet.Address),
			zap.Error(err))
		return entities.BalanceSnapshot{Wallet: wallet, USDValue: decimal.Zero, Error: err.Error()}
	}
	return entities.BalanceSnapshot{Wallet: wallet, USDValue: value}
}

// Run collects a report over wallets and submits its digest as one job
func (a *Aggregator) Run(ctx context.Context, wallets []entities.Wallet) *entities.BalanceReport {
	ctx, span := tracing.GetTracer("balance").Start(ctx, "balance.aggregate")
	defer span.End()
	span.SetAttributes(attribute.Int("wallets", len(wallets)))

	start := time.Now()
	report := entities.NewBalanceReport(a.Collect(ctx, wallets), a.now())
	span.SetAttributes(attribute.Int("succeeded", report.Succeeded))

	result := "success"
	switch {
	case report.Total() > 0 && report.Succeeded == 0:
		result = "failed"
	case report.Succeeded < report.Total():
		result = "partial"
	}
	metrics.BalanceReportRuns.WithLabelValues(result).Inc()

	a.logger.Info("Balance report collected",
		zap.Int("wallets", report.Total()),
		zap.Int("succeeded", report.Succeeded),
		zap.String("total_usd", report.TotalUSD.StringFixed(2)),
		zap.Duration("duration", time.Since(start)))

	if a.submitter != nil {
		a.submitter.Enqueue(entities.NewNotificationJob(
			entities.NotificationKindBalanceReport, "", a.formatter.BalanceReport(report)))
	}
	return report
}
