package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
	apperrors "github.com/tronwatch/tronwatch_service/internal/domain/errors"
)

func transactionEvent() entities.MonitorEvent {
	return entities.MonitorEvent{
		Type:     entities.EventTransaction,
		Strategy: "polling",
		At:       time.UnixMilli(1700000000000),
		Transfer: &entities.TransferEvent{
			Hash:      "abc",
			Amount:    "1.500000",
			Direction: entities.DirectionIn,
			Token:     entities.TokenInfo{Abbreviation: "USDT"},
		},
	}
}

func TestKafkaSink_Emit(t *testing.T) {
	producer := mocks.NewSyncProducer(t, sarama.NewConfig())
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var env Envelope
		if err := json.Unmarshal(val, &env); err != nil {
			return err
		}
		if env.Type != "transaction" || env.TS != 1700000000000 {
			return errors.New("unexpected envelope")
		}
		var transfer entities.TransferEvent
		if err := json.Unmarshal(env.Data, &transfer); err != nil {
			return err
		}
		if transfer.Hash != "abc" {
			return errors.New("unexpected transfer")
		}
		return nil
	})
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	sink := NewKafkaSinkWithProducer(producer, "tron-transfers")

	require.NoError(t, sink.Emit(context.Background(), transactionEvent()))

	err := sink.Emit(context.Background(), entities.MonitorEvent{Type: entities.EventDisconnected})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConnection)

	require.NoError(t, sink.Close())
}

func TestKafkaSink_EmitCancelled(t *testing.T) {
	producer := mocks.NewSyncProducer(t, sarama.NewConfig())
	sink := NewKafkaSinkWithProducer(producer, "tron-transfers")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, sink.Emit(ctx, transactionEvent()), context.Canceled)
	require.NoError(t, sink.Close())
}

func TestNewKafkaSink_NotConfigured(t *testing.T) {
	_, err := NewKafkaSink(nil, "topic", nil)
	assert.ErrorIs(t, err, apperrors.ErrNotConfigured)
}

func TestLogSink_Emit(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	sink := NewLogSink(zap.New(core))

	require.NoError(t, sink.Emit(context.Background(), transactionEvent()))
	require.NoError(t, sink.Emit(context.Background(), entities.MonitorEvent{Type: entities.EventError, Error: "boom"}))
	require.NoError(t, sink.Emit(context.Background(), entities.MonitorEvent{Type: entities.EventConnected}))

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)
	assert.Equal(t, "Transfer detected", entries[0].Message)
	assert.Equal(t, "abc", entries[0].ContextMap()["hash"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["detail"])
	assert.Equal(t, "Monitor connected", entries[2].Message)
}
