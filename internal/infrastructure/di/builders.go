package di

import (
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/tronwatch/tronwatch_service/internal/domain/services/monitor"
	"github.com/tronwatch/tronwatch_service/internal/domain/services/relay"
	"github.com/tronwatch/tronwatch_service/internal/infrastructure/adapters/email"
	"github.com/tronwatch/tronwatch_service/internal/infrastructure/adapters/telegram"
	"github.com/tronwatch/tronwatch_service/internal/infrastructure/cache"
	"github.com/tronwatch/tronwatch_service/internal/infrastructure/config"
	"github.com/tronwatch/tronwatch_service/internal/infrastructure/messaging"
	"github.com/tronwatch/tronwatch_service/internal/infrastructure/repositories"
	notificationworker "github.com/tronwatch/tronwatch_service/internal/workers/notification_worker"
)

// StorageBuilder builds the progress state backend
type StorageBuilder struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStorageBuilder creates a new storage builder
func NewStorageBuilder(cfg *config.Config, logger *zap.Logger) *StorageBuilder {
	return &StorageBuilder{cfg: cfg, logger: logger}
}

// Storage holds the state store and the connection backing it, if any
type Storage struct {
	State monitor.StateStore
	Redis cache.RedisClient
}

// Build selects the file or Redis backend
func (b *StorageBuilder) Build() (*Storage, error) {
	switch b.cfg.Monitoring.StateBackend {
	case "redis":
		client, err := cache.NewRedisClient(&b.cfg.Redis, b.logger)
		if err != nil {
			return nil, err
		}
		return &Storage{
			State: repositories.NewRedisStateRepository(client, b.cfg.Redis.KeyPrefix, b.logger),
			Redis: client,
		}, nil
	default:
		return &Storage{
			State: repositories.NewFileStateRepository(b.cfg.Monitoring.StateDir, b.logger),
		}, nil
	}
}

// NotifierBuilder builds the messaging channel sender
type NotifierBuilder struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewNotifierBuilder creates a new notifier builder
func NewNotifierBuilder(cfg *config.Config, logger *zap.Logger) *NotifierBuilder {
	return &NotifierBuilder{cfg: cfg, logger: logger}
}

// Build returns the sender of the configured channel and whether it has
// everything it needs to deliver.
func (b *NotifierBuilder) Build() (notificationworker.Sender, bool, error) {
	switch b.cfg.Notifier.Channel {
	case "email":
		sender, err := email.NewSender(email.Config{
			APIKey:    b.cfg.Email.APIKey,
			FromEmail: b.cfg.Email.FromEmail,
			FromName:  b.cfg.Email.FromName,
			ToEmail:   b.cfg.Email.ToEmail,
		}, b.logger.Named("email"))
		if err != nil {
			return nil, false, fmt.Errorf("failed to initialize email sender: %w", err)
		}
		return sender, b.cfg.Email.ToEmail != "", nil
	default:
		client := telegram.NewClient(telegram.Config{
			APIURL:   b.cfg.Telegram.APIURL,
			BotToken: b.cfg.Telegram.BotToken,
			ChatID:   b.cfg.Telegram.ChatID,
		}, b.logger.Named("telegram"))
		if !client.Configured() {
			b.logger.Warn("Telegram bot token or chat id missing; notifications disabled")
		}
		return client, client.Configured(), nil
	}
}

// BuildSinks returns the presentation sinks: the log sink always, Kafka
// when enabled. The returned closers must be called on shutdown.
func BuildSinks(cfg *config.Config, logger *zap.Logger) ([]relay.Sink, []messaging.Sink, error) {
	logSink := messaging.NewLogSink(logger.Named("events"))
	sinks := []relay.Sink{logSink}
	closers := []messaging.Sink{logSink}

	if cfg.Kafka.Enabled {
		saramaCfg := sarama.NewConfig()
		saramaCfg.ClientID = "tronwatch"
		saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
		saramaCfg.Producer.Retry.Max = 5
		saramaCfg.Producer.Timeout = 10 * time.Second
		kafkaSink, err := messaging.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, saramaCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize kafka sink: %w", err)
		}
		logger.Info("Kafka event sink enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic))
		sinks = append(sinks, kafkaSink)
		closers = append(closers, kafkaSink)
	}
	return sinks, closers, nil
}
