package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
)

// ReportTrigger starts a balance aggregation run in the background.
// Trigger returns false when a run is already in progress.
type ReportTrigger interface {
	Trigger(reason string) bool
}

// JobEnqueuer accepts formatted notification jobs
type JobEnqueuer interface {
	Enqueue(job entities.NotificationJob)
}

// TestFormatter renders the channel verification message
type TestFormatter interface {
	Test(status entities.MonitorStatus, at time.Time) string
}

// StatusProvider reports the activity source status
type StatusProvider interface {
	Status() entities.MonitorStatus
}

// ReportHandlers runs balance reports and test notifications on demand
type ReportHandlers struct {
	reports    ReportTrigger
	formatter  TestFormatter
	dispatcher JobEnqueuer
	status     StatusProvider
	logger     *zap.Logger
}

// NewReportHandlers creates a new ReportHandlers instance
func NewReportHandlers(
	reports ReportTrigger,
	formatter TestFormatter,
	dispatcher JobEnqueuer,
	status StatusProvider,
	logger *zap.Logger,
) *ReportHandlers {
	return &ReportHandlers{
		reports:    reports,
		formatter:  formatter,
		dispatcher: dispatcher,
		status:     status,
		logger:     logger,
	}
}

// RunBalanceReport handles POST /api/v1/reports/balance
func (h *ReportHandlers) RunBalanceReport(c *gin.Context) {
	if !h.reports.Trigger("api") {
		SendConflict(c, ErrCodeReportInProgress, "A balance report is already running")
		return
	}
	h.logger.Info("Balance report triggered via API", zap.String("request_id", getRequestID(c)))
	c.JSON(http.StatusAccepted, entities.AcceptedResponse{Status: "accepted", Reason: "api"})
}

// SendTestNotification handles POST /api/v1/notifications/test
func (h *ReportHandlers) SendTestNotification(c *gin.Context) {
	var status entities.MonitorStatus
	if h.status != nil {
		status = h.status.Status()
	}

	job := entities.NewNotificationJob(entities.NotificationKindTest, "", h.formatter.Test(status, time.Now()))
	h.dispatcher.Enqueue(job)

	h.logger.Info("Test notification queued",
		zap.String("job_id", job.ID.String()),
		zap.String("request_id", getRequestID(c)))
	c.JSON(http.StatusAccepted, entities.AcceptedResponse{Status: "queued", JobID: job.ID.String()})
}
