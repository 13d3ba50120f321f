package notification_worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
	apperrors "github.com/tronwatch/tronwatch_service/internal/domain/errors"
	"github.com/tronwatch/tronwatch_service/pkg/metrics"
	"github.com/tronwatch/tronwatch_service/pkg/timeutil"
	"github.com/tronwatch/tronwatch_service/pkg/tracing"
)

// Sender delivers one formatted message. An empty destination means the
// sender's configured default. Throttling is reported as a
// *errors.ThrottleError.
type Sender interface {
	Send(ctx context.Context, destination, text string) error
}

// Config holds dispatcher timing
type Config struct {
	MinInterval     time.Duration
	FailureCooldown time.Duration
	SendTimeout     time.Duration
	StopTimeout     time.Duration
}

// DefaultConfig returns the production timings
func DefaultConfig() Config {
	return Config{
		MinInterval:     3 * time.Second,
		FailureCooldown: 5 * time.Second,
		SendTimeout:     30 * time.Second,
		StopTimeout:     10 * time.Second,
	}
}

// Dispatcher drains a FIFO job queue through a single sender. At most one
// send is in flight, and two sends are never initiated less than
// MinInterval apart.
type Dispatcher struct {
	sender Sender
	config Config
	logger *zap.Logger

	mu      sync.Mutex
	queue   []entities.NotificationJob
	wake    chan struct{}
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	sending  atomic.Bool
	lastSend time.Time
}

// NewDispatcher creates a dispatcher. Zero durations fall back to the defaults.
func NewDispatcher(sender Sender, config Config, logger *zap.Logger) *Dispatcher {
	defaults := DefaultConfig()
	if config.MinInterval <= 0 {
		config.MinInterval = defaults.MinInterval
	}
	if config.FailureCooldown <= 0 {
		config.FailureCooldown = defaults.FailureCooldown
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = defaults.SendTimeout
	}
	if config.StopTimeout <= 0 {
		config.StopTimeout = defaults.StopTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		sender: sender,
		config: config,
		logger: logger,
		wake:   make(chan struct{}, 1),
	}
}

// Enqueue appends a job. It never blocks; jobs submitted before Start are
// kept until the dispatcher runs.
func (d *Dispatcher) Enqueue(job entities.NotificationJob) {
	d.mu.Lock()
	d.queue = append(d.queue, job)
	depth := len(d.queue)
	d.mu.Unlock()

	metrics.NotificationQueueDepth.Set(float64(depth))
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued jobs
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Sending reports whether a send is in flight
func (d *Dispatcher) Sending() bool {
	return d.sending.Load()
}

// Start launches the drain loop; calling it twice is a no-op
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	d.running = true
	d.cancel = cancel
	d.done = make(chan struct{})

	d.logger.Info("Starting notification dispatcher",
		zap.Duration("min_interval", d.config.MinInterval),
		zap.Duration("failure_cooldown", d.config.FailureCooldown))

	go d.run(loopCtx, d.done)
}

// Stop cancels pending waits and waits for the in-flight send to return.
// Queued jobs that were not sent are discarded.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	d.cancel()
	done := d.done
	d.mu.Unlock()

	select {
	case <-done:
	case <-time.After(d.config.StopTimeout):
		d.logger.Warn("Notification dispatcher stop timed out")
		return apperrors.ErrTimeout
	}

	if pending := d.Pending(); pending > 0 {
		d.logger.Warn("Notification dispatcher stopped with queued jobs", zap.Int("pending", pending))
	} else {
		d.logger.Info("Notification dispatcher stopped")
	}
	return nil
}

func (d *Dispatcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		job, ok := d.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-d.wake:
				continue
			}
		}
		if !d.process(ctx, job) {
			return
		}
	}
}

func (d *Dispatcher) pop() (entities.NotificationJob, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return entities.NotificationJob{}, false
	}
	job := d.queue[0]
	d.queue[0] = entities.NotificationJob{}
	d.queue = d.queue[1:]
	metrics.NotificationQueueDepth.Set(float64(len(d.queue)))
	return job, true
}

// process handles one job and reports whether the loop should continue
func (d *Dispatcher) process(ctx context.Context, job entities.NotificationJob) bool {
	d.sending.Store(true)
	defer d.sending.Store(false)

	ctx, span := tracing.GetTracer("notification").Start(ctx, "notification.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("job.id", job.ID.String()),
		attribute.String("job.kind", string(job.Kind)))

	log := d.logger.With(zap.String("job_id", job.ID.String()), zap.String("kind", string(job.Kind)))
	kind := string(job.Kind)

	if !timeutil.Sleep(ctx, d.remainingInterval()) {
		return false
	}
	err := d.send(ctx, job)
	if err == nil {
		metrics.NotificationsSent.WithLabelValues(kind).Inc()
		return true
	}

	if retryAfter, throttled := apperrors.RetryAfter(err); throttled {
		metrics.NotificationsThrottled.Inc()
		log.Warn("Notification throttled, retrying once", zap.Duration("retry_after", retryAfter))

		if !timeutil.Sleep(ctx, retryAfter) || !timeutil.Sleep(ctx, d.remainingInterval()) {
			return false
		}
		if err = d.send(ctx, job); err == nil {
			metrics.NotificationsSent.WithLabelValues(kind).Inc()
			return true
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "retry failed")
		metrics.NotificationsDropped.WithLabelValues(kind, "retry_failed").Inc()
		log.Error("Notification retry failed, dropping job", zap.Error(err))
		return true
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "send failed")
	metrics.NotificationsDropped.WithLabelValues(kind, string(apperrors.Classify(err))).Inc()
	log.Error("Failed to send notification", zap.Error(err), zap.Duration("cooldown", d.config.FailureCooldown))
	return timeutil.Sleep(ctx, d.config.FailureCooldown)
}

// send stamps the initiation time and calls the sender. A send that has
// started is allowed to finish when the dispatcher stops.
func (d *Dispatcher) send(ctx context.Context, job entities.NotificationJob) error {
	d.lastSend = time.Now()
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.config.SendTimeout)
	defer cancel()
	return d.sender.Send(sendCtx, job.Destination, job.Text)
}

func (d *Dispatcher) remainingInterval() time.Duration {
	if d.lastSend.IsZero() {
		return 0
	}
	return d.config.MinInterval - time.Since(d.lastSend)
}
