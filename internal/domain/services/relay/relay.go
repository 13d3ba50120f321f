// Package relay connects the activity source to the presentation sinks and
// the notification dispatcher.
package relay

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
	"github.com/tronwatch/tronwatch_service/internal/domain/services/notification"
)

const (
	subscriberBuffer = 64
	sinkTimeout      = 10 * time.Second
)

// Subscriber is the event side of an activity source
type Subscriber interface {
	Subscribe(buffer int) (<-chan entities.MonitorEvent, func())
}

// Sink receives every event
type Sink interface {
	Emit(ctx context.Context, ev entities.MonitorEvent) error
}

// Enqueuer accepts notification jobs
type Enqueuer interface {
	Enqueue(job entities.NotificationJob)
}

// Service forwards events to sinks and turns transfers into notifications
type Service struct {
	formatter  *notification.Formatter
	dispatcher Enqueuer
	sinks      []Sink
	logger     *zap.Logger

	mu     sync.Mutex
	cancel func()
	done   chan struct{}
}

// NewService creates a relay. A nil dispatcher disables notifications.
func NewService(formatter *notification.Formatter, dispatcher Enqueuer, logger *zap.Logger, sinks ...Sink) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		formatter:  formatter,
		dispatcher: dispatcher,
		sinks:      sinks,
		logger:     logger,
	}
}

// Start subscribes to source; calling it twice is a no-op
func (s *Service) Start(source Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	events, cancel := source.Subscribe(subscriberBuffer)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(events, s.done)
}

// Stop releases the subscription and waits for the forwarding loop
func (s *Service) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Service) run(events <-chan entities.MonitorEvent, done chan struct{}) {
	defer close(done)
	for ev := range events {
		s.Handle(ev)
	}
}

// Handle routes one event
func (s *Service) Handle(ev entities.MonitorEvent) {
	for _, sink := range s.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		if err := sink.Emit(ctx, ev); err != nil {
			s.logger.Warn("Failed to emit monitor event",
				zap.String("type", string(ev.Type)),
				zap.Error(err))
		}
		cancel()
	}

	if ev.Type != entities.EventTransaction || ev.Transfer == nil || s.dispatcher == nil {
		return
	}
	s.dispatcher.Enqueue(entities.NewNotificationJob(
		entities.NotificationKindTransaction, "", s.formatter.Transaction(*ev.Transfer)))
}
