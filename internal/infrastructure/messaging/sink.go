// Package messaging forwards monitor events to presentation sinks.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
	apperrors "github.com/tronwatch/tronwatch_service/internal/domain/errors"
)

// Sink receives every monitor event
type Sink interface {
	Emit(ctx context.Context, ev entities.MonitorEvent) error
	Close() error
}

// Envelope is the wire shape of an event on the topic
type Envelope struct {
	Type     string          `json:"type"`
	Strategy string          `json:"strategy,omitempty"`
	TS       int64           `json:"ts"`
	Data     json.RawMessage `json:"data,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// KafkaSink publishes events to a topic, keyed by transaction hash
type KafkaSink struct {
	topic    string
	producer sarama.SyncProducer
}

// NewKafkaSink connects a synchronous producer to brokers
func NewKafkaSink(brokers []string, topic string, cfg *sarama.Config) (*KafkaSink, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, fmt.Errorf("%w: kafka brokers and topic", apperrors.ErrNotConfigured)
	}
	if cfg == nil {
		cfg = sarama.NewConfig()
		cfg.Producer.RequiredAcks = sarama.WaitForAll
		cfg.Producer.Retry.Max = 5
		cfg.Producer.Retry.Backoff = 200 * time.Millisecond
	}
	// SyncProducer requires both
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: kafka producer: %v", apperrors.ErrConnection, err)
	}
	return NewKafkaSinkWithProducer(producer, topic), nil
}

// NewKafkaSinkWithProducer wraps an existing producer
func NewKafkaSinkWithProducer(producer sarama.SyncProducer, topic string) *KafkaSink {
	return &KafkaSink{topic: topic, producer: producer}
}

// Emit sends ev and waits for the broker ack
func (s *KafkaSink) Emit(ctx context.Context, ev entities.MonitorEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env, err := NewEnvelope(ev)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Value: sarama.ByteEncoder(payload),
	}
	if ev.Transfer != nil {
		msg.Key = sarama.StringEncoder(ev.Transfer.Hash)
	}
	if _, _, err := s.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("%w: kafka emit: %v", apperrors.ErrConnection, err)
	}
	return nil
}

// Close closes the producer
func (s *KafkaSink) Close() error {
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}

// NewEnvelope converts an event to its wire shape
func NewEnvelope(ev entities.MonitorEvent) (Envelope, error) {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	env := Envelope{
		Type:     string(ev.Type),
		Strategy: ev.Strategy,
		TS:       at.UnixMilli(),
		Error:    ev.Error,
	}
	if ev.Transfer != nil {
		data, err := json.Marshal(ev.Transfer)
		if err != nil {
			return Envelope{}, fmt.Errorf("marshal transfer: %w", err)
		}
		env.Data = data
	}
	return env, nil
}

// LogSink writes events to the structured log
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a log sink
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Emit logs ev at a level matching its type
func (s *LogSink) Emit(_ context.Context, ev entities.MonitorEvent) error {
	fields := []zap.Field{zap.String("strategy", ev.Strategy)}
	switch ev.Type {
	case entities.EventTransaction:
		if t := ev.Transfer; t != nil {
			fields = append(fields,
				zap.String("hash", t.Hash),
				zap.String("direction", string(t.Direction)),
				zap.String("from", t.From.Address),
				zap.String("to", t.To.Address),
				zap.String("amount", t.Amount),
				zap.String("token", t.Token.Abbreviation))
		}
		s.logger.Info("Transfer detected", fields...)
	case entities.EventError:
		s.logger.Warn("Monitor error", append(fields, zap.String("detail", ev.Error))...)
	default:
		s.logger.Info("Monitor "+string(ev.Type), fields...)
	}
	return nil
}

// Close is a no-op
func (s *LogSink) Close() error { return nil }
