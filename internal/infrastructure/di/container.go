package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tronwatch/tronwatch_service/internal/api/handlers"
	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
	"github.com/tronwatch/tronwatch_service/internal/domain/services/balance"
	"github.com/tronwatch/tronwatch_service/internal/domain/services/keyalloc"
	"github.com/tronwatch/tronwatch_service/internal/domain/services/monitor"
	"github.com/tronwatch/tronwatch_service/internal/domain/services/notification"
	"github.com/tronwatch/tronwatch_service/internal/domain/services/relay"
	"github.com/tronwatch/tronwatch_service/internal/infrastructure/adapters/tronscan"
	"github.com/tronwatch/tronwatch_service/internal/infrastructure/adapters/tronstream"
	"github.com/tronwatch/tronwatch_service/internal/infrastructure/cache"
	"github.com/tronwatch/tronwatch_service/internal/infrastructure/config"
	"github.com/tronwatch/tronwatch_service/internal/infrastructure/messaging"
	balancereportworker "github.com/tronwatch/tronwatch_service/internal/workers/balance_report_worker"
	notificationworker "github.com/tronwatch/tronwatch_service/internal/workers/notification_worker"
	"github.com/tronwatch/tronwatch_service/pkg/logger"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Container holds all application dependencies
type Container struct {
	Config  *config.Config
	Logger  *logger.Logger
	ZapLog  *zap.Logger
	Version string

	// Watch list and credentials
	Store *config.Store
	Keys  *keyalloc.Allocator

	// External services
	TronscanClient *tronscan.Client
	StreamDialer   *tronstream.Dialer
	RedisClient    cache.RedisClient
	State          monitor.StateStore

	// Pipeline
	Source           monitor.Source
	Formatter        *notification.Formatter
	Sender           notificationworker.Sender
	SenderConfigured bool
	Dispatcher       *notificationworker.Dispatcher
	Aggregator       *balance.Aggregator
	Relay            *relay.Service
	Sinks            []messaging.Sink

	// Workers
	ReportWorker *balancereportworker.Worker
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config, log *logger.Logger) (*Container, error) {
	zapLog := log.Zap()

	store, err := config.NewStore(cfg.WatchlistPath, cfg.Wallets, cfg.Tronscan.APIKeys, zapLog.Named("watchlist"))
	if err != nil {
		return nil, fmt.Errorf("failed to open watch list: %w", err)
	}

	// One allocator serves the source and the balance aggregator, so a key
	// update through the source reaches both.
	keys := keyalloc.New(store.APIKeys())
	if !keys.HasAny() {
		zapLog.Warn("No tronscan API keys configured; requests will be anonymous")
	}

	tronscanClient := tronscan.NewClient(tronscan.Config{
		TransfersURL:      cfg.Tronscan.TransfersURL,
		BalanceURL:        cfg.Tronscan.BalanceURL,
		Timeout:           cfg.Tronscan.RequestTimeout,
		RequestsPerSecond: cfg.Tronscan.RequestsPerSecond,
	}, zapLog.Named("tronscan"))

	var streamDialer *tronstream.Dialer
	if cfg.Tronscan.StreamURL != "" {
		streamDialer = tronstream.NewDialer(tronstream.Config{URL: cfg.Tronscan.StreamURL}, zapLog.Named("tronstream"))
	}

	storage, err := NewStorageBuilder(cfg, zapLog.Named("state")).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize state backend: %w", err)
	}

	deps := monitor.Deps{
		Lister:  tronscanClient,
		State:   storage.State,
		Keys:    keys,
		Wallets: store.Wallets(),
		Logger:  zapLog.Named("monitor"),
	}
	if streamDialer != nil {
		deps.Dialer = streamDialer
	}
	source, err := monitor.NewSource(monitor.Config{
		Strategy:          cfg.Monitoring.Strategy,
		PollInterval:      cfg.Monitoring.PollInterval,
		WalletDelay:       cfg.Monitoring.WalletDelay,
		RequestTimeout:    cfg.Tronscan.RequestTimeout,
		PageSize:          cfg.Tronscan.PageSize,
		ReconnectInterval: cfg.Monitoring.ReconnectInterval,
		SeenCapacity:      cfg.Monitoring.SeenCapacity,
		SeenFlushInterval: cfg.Monitoring.SeenFlushInterval,
		EmitUnmatched:     cfg.Monitoring.EmitUnmatched,
	}, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize activity source: %w", err)
	}

	loc, err := cfg.Report.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid report timezone: %w", err)
	}
	formatter := notification.NewFormatter(loc)

	sender, senderConfigured, err := NewNotifierBuilder(cfg, zapLog).Build()
	if err != nil {
		return nil, err
	}
	dispatcher := notificationworker.NewDispatcher(sender, notificationworker.Config{
		MinInterval:     cfg.Notifier.MinInterval,
		FailureCooldown: cfg.Notifier.FailureCooldown,
	}, zapLog.Named("dispatcher"))

	// a nil interface, not a nil *Dispatcher, turns relay notifications off
	var submitter balance.Submitter
	var enqueuer relay.Enqueuer
	if senderConfigured {
		submitter = dispatcher
		enqueuer = dispatcher
	}

	aggregator := balance.NewAggregator(tronscanClient, keys, formatter, submitter, balance.Config{
		WalletDelay:    cfg.Report.WalletDelay,
		RequestTimeout: cfg.Tronscan.RequestTimeout,
	}, zapLog.Named("balance"))

	hour, minute := cfg.Report.HourMinute()
	reportWorker := balancereportworker.NewWorker(aggregator, store, balancereportworker.Config{
		Enabled:          cfg.Report.Enabled,
		Hour:             hour,
		Minute:           minute,
		Location:         loc,
		RunOnStart:       true,
		SenderConfigured: senderConfigured,
	}, zapLog.Named("balance_report"))

	relaySinks, closers, err := BuildSinks(cfg, zapLog)
	if err != nil {
		if storage.Redis != nil {
			_ = storage.Redis.Close()
		}
		return nil, err
	}
	relayService := relay.NewService(formatter, enqueuer, zapLog.Named("relay"), relaySinks...)

	return &Container{
		Config:           cfg,
		Logger:           log,
		ZapLog:           zapLog,
		Version:          Version,
		Store:            store,
		Keys:             keys,
		TronscanClient:   tronscanClient,
		StreamDialer:     streamDialer,
		RedisClient:      storage.Redis,
		State:            storage.State,
		Source:           source,
		Formatter:        formatter,
		Sender:           sender,
		SenderConfigured: senderConfigured,
		Dispatcher:       dispatcher,
		Aggregator:       aggregator,
		Relay:            relayService,
		Sinks:            closers,
		ReportWorker:     reportWorker,
	}, nil
}

// HealthChecks returns the component checks served by GET /health
func (c *Container) HealthChecks() map[string]handlers.HealthCheck {
	checks := map[string]handlers.HealthCheck{
		"monitor": func(context.Context) entities.HealthStatus {
			st := c.Source.Status()
			switch {
			case !st.Running:
				return entities.HealthStatus{Status: handlers.StatusDegraded, Message: "monitor stopped"}
			case !st.Connected:
				return entities.HealthStatus{Status: handlers.StatusDegraded, Message: "feed disconnected"}
			default:
				return entities.HealthStatus{Status: handlers.StatusHealthy,
					Message: fmt.Sprintf("%s, %d wallets", st.Strategy, st.WalletCount)}
			}
		},
		"notifier": func(context.Context) entities.HealthStatus {
			if !c.SenderConfigured {
				return entities.HealthStatus{Status: handlers.StatusDegraded, Message: "channel not configured"}
			}
			return entities.HealthStatus{Status: handlers.StatusHealthy,
				Message: fmt.Sprintf("%d queued", c.Dispatcher.Pending())}
		},
	}
	if c.RedisClient != nil {
		checks["redis"] = func(ctx context.Context) entities.HealthStatus {
			if err := c.RedisClient.Ping(ctx); err != nil {
				return entities.HealthStatus{Status: handlers.StatusUnhealthy, Message: err.Error()}
			}
			return entities.HealthStatus{Status: handlers.StatusHealthy}
		}
	}
	return checks
}

// StopSource stops the activity source, flushing its progress state
func (c *Container) StopSource(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return c.Source.Stop(ctx)
}

// Close releases external connections
func (c *Container) Close() error {
	var errs []error
	for _, sink := range c.Sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
