package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
)

// MonitorController is the lifecycle surface of the activity source
type MonitorController interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Status() entities.MonitorStatus
}

// MonitorHandlers exposes start/stop/status of the activity source
type MonitorHandlers struct {
	source      MonitorController
	stopTimeout time.Duration
	logger      *zap.Logger
}

// NewMonitorHandlers creates a new MonitorHandlers instance
func NewMonitorHandlers(source MonitorController, logger *zap.Logger) *MonitorHandlers {
	return &MonitorHandlers{
		source:      source,
		stopTimeout: 30 * time.Second,
		logger:      logger,
	}
}

// GetStatus handles GET /api/v1/monitor/status
func (h *MonitorHandlers) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.source.Status())
}

// Start handles POST /api/v1/monitor/start
func (h *MonitorHandlers) Start(c *gin.Context) {
	if err := h.source.Start(c.Request.Context()); err != nil {
		h.logger.Error("Failed to start monitor",
			zap.Error(err),
			zap.String("request_id", getRequestID(c)))
		SendInternalError(c, ErrCodeOperationFailed, "Failed to start monitor")
		return
	}
	h.logger.Info("Monitor started via API", zap.String("request_id", getRequestID(c)))
	c.JSON(http.StatusOK, h.source.Status())
}

// Stop handles POST /api/v1/monitor/stop
func (h *MonitorHandlers) Stop(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.stopTimeout)
	defer cancel()

	if err := h.source.Stop(ctx); err != nil {
		h.logger.Error("Failed to stop monitor",
			zap.Error(err),
			zap.String("request_id", getRequestID(c)))
		SendInternalError(c, ErrCodeOperationFailed, "Failed to stop monitor")
		return
	}
	h.logger.Info("Monitor stopped via API", zap.String("request_id", getRequestID(c)))
	c.JSON(http.StatusOK, h.source.Status())
}
