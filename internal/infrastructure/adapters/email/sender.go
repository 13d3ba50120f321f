// Package email delivers notification messages as HTML mail through SendGrid.
package email

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	apperrors "github.com/tronwatch/tronwatch_service/internal/domain/errors"
)

const (
	mailSendEndpoint = "/v3/mail/send"
	defaultHost      = "https://api.sendgrid.com"
	defaultSubject   = "TRON wallet activity"
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// Config holds SendGrid configuration
type Config struct {
	APIKey    string
	FromEmail string
	FromName  string
	ToEmail   string
	Host      string
	Timeout   time.Duration
}

// Sender sends notifications by mail
type Sender struct {
	config Config
	client *sendgrid.Client
	logger *zap.Logger
}

// NewSender creates a SendGrid sender
func NewSender(config Config, logger *zap.Logger) (*Sender, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("%w: sendgrid api key is required", apperrors.ErrNotConfigured)
	}
	if strings.TrimSpace(config.FromEmail) == "" {
		return nil, fmt.Errorf("%w: email from address is required", apperrors.ErrNotConfigured)
	}
	if config.Host == "" {
		config.Host = defaultHost
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	request := sendgrid.GetRequest(config.APIKey, mailSendEndpoint, config.Host)
	request.Method = "POST"

	return &Sender{
		config: config,
		client: &sendgrid.Client{Request: request},
		logger: logger,
	}, nil
}

// DefaultDestination returns the configured recipient
func (s *Sender) DefaultDestination() string {
	return s.config.ToEmail
}

// Send mails the HTML text to the recipient, or to the configured one when
// to is empty. The subject is the first line of the text, stripped of tags.
func (s *Sender) Send(ctx context.Context, to, text string) error {
	if to == "" {
		to = s.config.ToEmail
	}
	if to == "" {
		return fmt.Errorf("%w: email recipient", apperrors.ErrNotConfigured)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	subject := subjectOf(text)
	htmlContent := strings.ReplaceAll(text, "\n", "<br>\n")
	plain := tagPattern.ReplaceAllString(text, "")

	from := mail.NewEmail(s.config.FromName, s.config.FromEmail)
	message := mail.NewSingleEmail(from, subject, mail.NewEmail("", to), plain, htmlContent)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		s.logger.Error("Failed to send email",
			zap.String("provider", "sendgrid"),
			zap.String("to", to),
			zap.Error(err))
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", apperrors.ErrConnection, err)
	}

	if response.StatusCode == http.StatusTooManyRequests {
		return apperrors.NewThrottleError(retryAfter(response.Headers, time.Now()), "sendgrid rate limit")
	}
	if response.StatusCode >= 400 {
		s.logger.Error("Email service returned error",
			zap.String("provider", "sendgrid"),
			zap.Int("status_code", response.StatusCode),
			zap.String("response_body", response.Body))
		return fmt.Errorf("%w: email service status %d", apperrors.ErrUpstream, response.StatusCode)
	}

	s.logger.Debug("Email sent",
		zap.String("provider", "sendgrid"),
		zap.String("to", to),
		zap.String("subject", subject))
	return nil
}

// retryAfter reads Retry-After seconds, then the X-RateLimit-Reset epoch,
// defaulting to one second.
func retryAfter(headers map[string][]string, now time.Time) time.Duration {
	if v := header(headers, "Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	if v := header(headers, "X-RateLimit-Reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			if d := time.Unix(epoch, 0).Sub(now); d > 0 {
				return d
			}
		}
	}
	return time.Second
}

func header(headers map[string][]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func subjectOf(text string) string {
	line := text
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(tagPattern.ReplaceAllString(line, ""))
	if line == "" {
		return defaultSubject
	}
	return line
}
