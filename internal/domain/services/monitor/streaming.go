package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
	"github.com/tronwatch/tronwatch_service/internal/domain/services/enricher"
	"github.com/tronwatch/tronwatch_service/pkg/metrics"
	"github.com/tronwatch/tronwatch_service/pkg/timeutil"
)

// StreamingSource follows the indexer's push feed. On any connection
// failure while running it reconnects after a fixed delay, forever.
type StreamingSource struct {
	base
	dialer StreamDialer
	seen   *SeenCache
	loaded bool

	flushMu sync.Mutex

	connected atomic.Bool
	dirty     atomic.Bool
	conn      atomic.Pointer[connHolder]
}

type connHolder struct{ StreamConn }

var _ Source = (*StreamingSource)(nil)

// NewStreamingSource creates a stopped streaming source
func NewStreamingSource(cfg Config, deps Deps) *StreamingSource {
	s := &StreamingSource{dialer: deps.Dialer}
	s.setup(StrategyStreaming, cfg, deps)
	s.seen = NewSeenCache(s.cfg.SeenCapacity)
	return s
}

// Start restores the seen-hash cache on first start and begins the
// connect loop. connected is emitted once the feed is actually open.
func (s *StreamingSource) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.isRunning() {
		s.logger.Debug("Streaming source already running")
		return nil
	}
	s.loadState(ctx)

	loopCtx, done, ok := s.begin(ctx)
	if !ok {
		return nil
	}
	s.logger.Info("Streaming source started",
		zap.Int("wallets", s.registry.Load().Len()),
		zap.Bool("emit_unmatched", s.cfg.EmitUnmatched))

	go s.run(loopCtx, done)
	return nil
}

// Stop closes the feed, cancels a pending reconnect, flushes the seen
// cache and emits disconnected.
func (s *StreamingSource) Stop(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if !s.end(s.closeConn) {
		return nil
	}
	s.connected.Store(false)
	if err := s.flush(ctx); err != nil {
		s.logger.Error("Failed to save seen hashes on stop", zap.Error(err))
	}
	s.publish(entities.EventDisconnected, "")
	s.logger.Info("Streaming source stopped")
	return nil
}

// Status reflects the live connection
func (s *StreamingSource) Status() entities.MonitorStatus {
	return s.status(s.connected.Load())
}

func (s *StreamingSource) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.flushLoop(ctx)
	}()
	defer wg.Wait()

	for {
		err := s.session(ctx)
		if !s.isRunning() {
			return
		}

		if s.connected.Swap(false) {
			s.publish(entities.EventDisconnected, "")
		}
		s.publish(entities.EventError, err.Error())
		metrics.StreamReconnects.Inc()
		s.logger.Warn("Push feed lost, reconnecting",
			zap.Error(err),
			zap.Duration("delay", s.cfg.ReconnectInterval))

		if err := s.flush(ctx); err != nil {
			s.logger.Error("Failed to save seen hashes", zap.Error(err))
		}
		if !timeutil.Sleep(ctx, s.cfg.ReconnectInterval) {
			return
		}
	}
}

// flushLoop writes the seen cache on a coarse timer while a long session
// keeps the feed open, so a crash loses at most one interval of hashes.
func (s *StreamingSource) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SeenFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.flush(ctx); err != nil {
				s.logger.Error("Failed to save seen hashes", zap.Error(err))
			}
		}
	}
}

// session dials once and reads until the connection fails
func (s *StreamingSource) session(ctx context.Context) error {
	conn, err := s.dialer.Dial(ctx, s.keys.Next())
	if err != nil {
		return fmt.Errorf("dial push feed: %w", err)
	}
	s.conn.Store(&connHolder{conn})
	defer s.closeConn()

	// Stop may have run between the dial and the store above
	if !s.isRunning() {
		return fmt.Errorf("source stopped")
	}

	s.connected.Store(true)
	s.logger.Info("Push feed connected")
	s.publish(entities.EventConnected, "")

	for {
		records, err := conn.ReadTransfers()
		if err != nil {
			return fmt.Errorf("read push feed: %w", err)
		}
		s.handle(records)
	}
}

func (s *StreamingSource) handle(records []entities.RawTransfer) {
	registry := s.registry.Load()

	for _, rec := range records {
		if rec.Hash == "" {
			continue
		}
		if s.seen.SeenOrAdd(rec.Hash) {
			metrics.DuplicatesDropped.Inc()
			continue
		}
		s.dirty.Store(true)

		rec.Direction, rec.Matched = enricher.ClassifyStreamed(rec, registry)
		if rec.Direction == entities.DirectionUnmatched {
			if !s.cfg.EmitUnmatched {
				continue
			}
			s.logger.Warn("Emitting transfer that matches no configured wallet",
				zap.String("hash", rec.Hash),
				zap.String("from", rec.From),
				zap.String("to", rec.To))
		}
		s.emitTransfer(enricher.Enrich(rec, registry))
	}
}

func (s *StreamingSource) closeConn() {
	if h := s.conn.Swap(nil); h != nil {
		if err := h.Close(); err != nil {
			s.logger.Debug("Closing push feed", zap.Error(err))
		}
	}
}

func (s *StreamingSource) loadState(ctx context.Context) {
	if s.loaded || s.state == nil {
		return
	}
	s.loaded = true

	loadCtx, cancel := persistCtx(ctx)
	defer cancel()

	hashes, err := s.state.LoadSeen(loadCtx)
	if err != nil {
		s.logger.Error("Failed to load seen hashes, starting empty", zap.Error(err))
		return
	}
	s.seen.Restore(hashes)
	s.logger.Info("Loaded seen hashes", zap.Int("count", s.seen.Len()))
}

// flush writes the seen cache only when a new hash arrived since the last write
func (s *StreamingSource) flush(ctx context.Context) error {
	if s.state == nil {
		return nil
	}
	s.flushMu.Lock()
	defer s.flushMu.Unlock()
	if !s.dirty.Swap(false) {
		return nil
	}
	saveCtx, cancel := persistCtx(ctx)
	defer cancel()

	err := s.state.SaveSeen(saveCtx, s.seen.Snapshot())
	recordFlush("seen_hashes", err)
	if err != nil {
		// retried on the next qualifying flush
		s.dirty.Store(true)
		return fmt.Errorf("save seen hashes: %w", err)
	}
	return nil
}
