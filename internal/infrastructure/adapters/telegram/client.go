// Package telegram sends notification messages through the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	apperrors "github.com/tronwatch/tronwatch_service/internal/domain/errors"
	"github.com/tronwatch/tronwatch_service/pkg/security"
)

const (
	DefaultAPIURL  = "https://api.telegram.org"
	defaultTimeout = 30 * time.Second
)

// Config represents bot configuration
type Config struct {
	APIURL   string
	BotToken string
	ChatID   string
	Timeout  time.Duration
}

// Client wraps a Bot API handle. The handle is built without the getMe
// round trip, so constructing a client never touches the network.
type Client struct {
	config Config
	bot    *tgbotapi.BotAPI
	logger *zap.Logger
}

// NewClient creates a new Bot API client
func NewClient(config Config, logger *zap.Logger) *Client {
	if config.APIURL == "" {
		config.APIURL = DefaultAPIURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	bot := &tgbotapi.BotAPI{
		Token:  config.BotToken,
		Client: security.NewHTTPClient(config.Timeout),
		Buffer: 100,
	}
	bot.SetAPIEndpoint(strings.TrimRight(config.APIURL, "/") + "/bot%s/%s")

	return &Client{
		config: config,
		bot:    bot,
		logger: logger,
	}
}

// Configured reports whether a token and a default chat are set
func (c *Client) Configured() bool {
	return c.config.BotToken != "" && c.config.ChatID != ""
}

// DefaultDestination returns the configured chat id
func (c *Client) DefaultDestination() string {
	return c.config.ChatID
}

// Send posts an HTML message to chatID, or to the configured chat when
// chatID is empty. A 429 is returned as a throttle error carrying the
// server's retry_after.
func (c *Client) Send(ctx context.Context, chatID, text string) error {
	if chatID == "" {
		chatID = c.config.ChatID
	}
	if c.config.BotToken == "" || chatID == "" {
		return fmt.Errorf("%w: telegram bot token or chat id", apperrors.ErrNotConfigured)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
	}

	msg := newMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := c.bot.Request(msg); err != nil {
		return c.classify(err)
	}

	c.logger.Debug("Telegram message sent", zap.String("chat_id", chatID), zap.Int("length", len(text)))
	return nil
}

// newMessage addresses numeric chat ids directly and anything else as a
// channel username.
func newMessage(chatID, text string) tgbotapi.MessageConfig {
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		return tgbotapi.NewMessage(id, text)
	}
	return tgbotapi.NewMessageToChannel(chatID, text)
}

func asAPIError(err error) (*tgbotapi.Error, bool) {
	var ptr *tgbotapi.Error
	if errors.As(err, &ptr) {
		return ptr, true
	}
	var val tgbotapi.Error
	if errors.As(err, &val) {
		return &val, true
	}
	return nil, false
}

func (c *Client) classify(err error) error {
	if apiErr, ok := asAPIError(err); ok {
		if apiErr.Code == 429 {
			retryAfter := time.Second
			if apiErr.RetryAfter > 0 {
				retryAfter = time.Duration(apiErr.RetryAfter) * time.Second
			}
			c.logger.Warn("Telegram rate limit hit", zap.Duration("retry_after", retryAfter))
			return apperrors.NewThrottleError(retryAfter, apiErr.Message)
		}
		return fmt.Errorf("%w: telegram API error [%d]: %s", apperrors.ErrUpstream, apiErr.Code, apiErr.Message)
	}

	// transport errors echo the request URL, which embeds the bot token
	masked := security.MaskString(err.Error())
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(masked, "Client.Timeout") {
		return fmt.Errorf("%w: %s", apperrors.ErrTimeout, masked)
	}
	return fmt.Errorf("%w: %s", apperrors.ErrConnection, masked)
}
