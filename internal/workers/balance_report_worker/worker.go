package balance_report_worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
	"github.com/tronwatch/tronwatch_service/pkg/metrics"
)

// Runner produces and submits one balance report
type Runner interface {
	Run(ctx context.Context, wallets []entities.Wallet) *entities.BalanceReport
}

// WalletSource supplies the current wallet list at run time
type WalletSource interface {
	Wallets() []entities.Wallet
}

// Config holds the report schedule
type Config struct {
	// Enabled turns on the daily schedule; the startup run happens regardless
	Enabled bool
	Hour    int
	Minute  int
	// Location is the timezone of Hour:Minute; nil means UTC
	Location         *time.Location
	RunOnStart       bool
	SenderConfigured bool
	RunTimeout       time.Duration
}

// Worker runs the balance report at startup and once a day. Runs never
// overlap: a trigger that arrives while a run is in progress is skipped.
type Worker struct {
	runner  Runner
	wallets WalletSource
	config  Config
	cron    *cron.Cron
	logger  *zap.Logger

	running atomic.Bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewWorker creates a report worker
func NewWorker(runner Runner, wallets WalletSource, config Config, logger *zap.Logger) *Worker {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		runner:  runner,
		wallets: wallets,
		config:  config,
		cron:    cron.New(cron.WithLocation(config.Location)),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Spec returns the cron expression of the daily run
func (w *Worker) Spec() string {
	return fmt.Sprintf("%d %d * * *", w.config.Minute, w.config.Hour)
}

// Start schedules the daily run and fires the startup run
func (w *Worker) Start() error {
	if w.config.Enabled {
		if _, err := w.cron.AddFunc(w.Spec(), func() { w.Trigger("schedule") }); err != nil {
			return fmt.Errorf("schedule balance report: %w", err)
		}
		w.cron.Start()
		w.logger.Info("Balance report worker started",
			zap.String("spec", w.Spec()),
			zap.String("timezone", w.config.Location.String()))
	} else {
		w.logger.Info("Balance report schedule disabled")
	}

	if w.config.RunOnStart {
		w.Trigger("startup")
	}
	return nil
}

// Trigger starts a run in the background. It returns false when a run is
// already in progress or the worker is stopped.
func (w *Worker) Trigger(reason string) bool {
	if w.ctx.Err() != nil {
		return false
	}
	if !w.running.CompareAndSwap(false, true) {
		w.logger.Warn("Balance report already running, skipping", zap.String("reason", reason))
		metrics.BalanceReportRuns.WithLabelValues("skipped").Inc()
		return false
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.running.Store(false)
		w.run(reason)
	}()
	return true
}

// Running reports whether a run is in progress
func (w *Worker) Running() bool {
	return w.running.Load()
}

func (w *Worker) run(reason string) {
	if !w.config.SenderConfigured {
		w.logger.Warn("Balance report skipped: notification channel not configured", zap.String("reason", reason))
		return
	}
	wallets := w.wallets.Wallets()
	if len(wallets) == 0 {
		w.logger.Info("Balance report skipped: no wallets configured", zap.String("reason", reason))
		return
	}

	ctx, cancel := context.WithTimeout(w.ctx, w.config.RunTimeout)
	defer cancel()

	w.logger.Info("Running balance report", zap.String("reason", reason), zap.Int("wallets", len(wallets)))
	report := w.runner.Run(ctx, wallets)
	if report != nil {
		w.logger.Info("Balance report submitted",
			zap.String("reason", reason),
			zap.Int("succeeded", report.Succeeded),
			zap.Int("total", report.Total()))
	}
}

// Stop removes the schedule and waits for an in-flight run
func (w *Worker) Stop() {
	<-w.cron.Stop().Done()
	w.cancel()
	w.wg.Wait()
	w.logger.Info("Balance report worker stopped")
}
