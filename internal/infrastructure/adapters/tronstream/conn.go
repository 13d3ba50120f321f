// Package tronstream is the websocket transport of the indexer push feed.
package tronstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
	apperrors "github.com/tronwatch/tronwatch_service/internal/domain/errors"
	"github.com/tronwatch/tronwatch_service/internal/domain/services/monitor"
	"github.com/tronwatch/tronwatch_service/internal/infrastructure/adapters/tronscan"
	"github.com/tronwatch/tronwatch_service/pkg/security"
)

const (
	defaultHandshakeTimeout = 15 * time.Second
	defaultPingInterval     = 30 * time.Second
	defaultReadTimeout      = 90 * time.Second
	writeWait               = 10 * time.Second
)

// Config represents push feed configuration
type Config struct {
	URL              string
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
	ReadTimeout      time.Duration
}

// Dialer opens push feed connections
type Dialer struct {
	config Config
	dialer *websocket.Dialer
	logger *zap.Logger
}

var _ monitor.StreamDialer = (*Dialer)(nil)

// NewDialer creates a push feed dialer
func NewDialer(config Config, logger *zap.Logger) *Dialer {
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = defaultHandshakeTimeout
	}
	if config.PingInterval <= 0 {
		config.PingInterval = defaultPingInterval
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = defaultReadTimeout
	}
	return &Dialer{
		config: config,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: config.HandshakeTimeout,
			TLSClientConfig:  security.ClientTLSConfig(),
		},
		logger: logger,
	}
}

// Dial connects to the feed, passing apiKey as the credential header
func (d *Dialer) Dial(ctx context.Context, apiKey string) (monitor.StreamConn, error) {
	if d.config.URL == "" {
		return nil, fmt.Errorf("%w: push feed url", apperrors.ErrNotConfigured)
	}

	header := http.Header{}
	if apiKey != "" {
		header.Set(tronscan.APIKeyHeader, apiKey)
	}

	ws, resp, err := d.dialer.DialContext(ctx, d.config.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: handshake status %d: %v", apperrors.ErrConnection, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrConnection, err)
	}

	c := &Conn{
		ws:           ws,
		readTimeout:  d.config.ReadTimeout,
		pingInterval: d.config.PingInterval,
		stop:         make(chan struct{}),
		logger:       d.logger,
	}
	_ = ws.SetReadDeadline(time.Now().Add(c.readTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(c.readTimeout))
	})
	go c.pingLoop()
	return c, nil
}

// Conn is one live push feed connection
type Conn struct {
	ws           *websocket.Conn
	readTimeout  time.Duration
	pingInterval time.Duration
	writeMu      sync.Mutex
	stop         chan struct{}
	once         sync.Once
	logger       *zap.Logger
}

// ReadTransfers blocks for the next message and returns its records. A
// malformed message is logged and yields no records; only transport
// failures are returned as errors.
func (c *Conn) ReadTransfers() ([]entities.RawTransfer, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrConnection, err)
	}
	_ = c.ws.SetReadDeadline(time.Now().Add(c.readTimeout))

	records, err := ParseTransfers(data)
	if err != nil {
		c.logger.Warn("Dropping malformed push message", zap.Error(err), zap.Int("bytes", len(data)))
		return nil, nil
	}
	return records, nil
}

// Close sends a close frame and tears the connection down
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.stop)
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}

func (c *Conn) pingLoop() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Debug("Push feed ping failed", zap.Error(err))
				return
			}
		}
	}
}
