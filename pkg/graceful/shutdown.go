package graceful

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tronwatch/tronwatch_service/pkg/logger"
)

// Shutdowner is a component that can be stopped within a deadline.
type Shutdowner interface {
	Shutdown(timeout time.Duration) error
}

// ShutdownFunc adapts a plain function to Shutdowner.
type ShutdownFunc func(timeout time.Duration) error

func (f ShutdownFunc) Shutdown(timeout time.Duration) error { return f(timeout) }

type named struct {
	name string
	s    Shutdowner
}

type ShutdownManager struct {
	server      *http.Server
	shutdowners []named
	timeout     time.Duration
	logger      *logger.Logger
}

func NewShutdownManager(server *http.Server, logger *logger.Logger) *ShutdownManager {
	return &ShutdownManager{
		server:  server,
		timeout: 30 * time.Second,
		logger:  logger,
	}
}

// Register adds a component. Components are stopped in reverse registration order.
func (sm *ShutdownManager) Register(name string, s Shutdowner) {
	sm.shutdowners = append(sm.shutdowners, named{name: name, s: s})
}

// WaitForShutdown blocks until SIGINT/SIGTERM and then stops everything.
func (sm *ShutdownManager) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sm.Shutdown()
}

// Shutdown stops the HTTP server first, then registered components.
func (sm *ShutdownManager) Shutdown() {
	sm.logger.Info("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()

	if sm.server != nil {
		if err := sm.server.Shutdown(ctx); err != nil {
			sm.logger.Error("Server forced shutdown", "error", err)
		}
	}

	for i := len(sm.shutdowners) - 1; i >= 0; i-- {
		c := sm.shutdowners[i]
		sm.logger.Info("Stopping component", "component", c.name)
		if err := c.s.Shutdown(sm.timeout); err != nil {
			sm.logger.Warn("Component shutdown error", "component", c.name, "error", err)
		}
	}

	sm.logger.Info("Shutdown complete")
}
