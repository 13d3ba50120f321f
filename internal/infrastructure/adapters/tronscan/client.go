package tronscan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
	apperrors "github.com/tronwatch/tronwatch_service/internal/domain/errors"
	"github.com/tronwatch/tronwatch_service/pkg/security"
)

// Config represents tronscan client configuration
type Config struct {
	TransfersURL      string
	BalanceURL        string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Client is a tronscan indexer API client. Requests are made once: the
// callers own the retry cadence.
type Client struct {
	config         Config
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker
	rateLimiter    *rate.Limiter
	logger         *zap.Logger
}

// NewClient creates a new tronscan API client
func NewClient(config Config, logger *zap.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.TransfersURL == "" {
		config.TransfersURL = DefaultTransfersURL
	}
	if config.BalanceURL == "" {
		config.BalanceURL = DefaultBalanceURL
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = MaxRequestsPerSecond
	}

	cbSettings := gobreaker.Settings{
		Name:        "TronscanAPI",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 10
		},
		// throttling and bad input are the caller's problem, not an outage
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var errResp *ErrorResponse
			if errors.As(err, &errResp) && errResp.StatusCode < 500 {
				return true
			}
			return apperrors.IsThrottled(err) || errors.Is(err, apperrors.ErrParse)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Tronscan circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Client{
		config:         config,
		httpClient:     security.NewHTTPClient(config.Timeout),
		circuitBreaker: gobreaker.NewCircuitBreaker(cbSettings),
		rateLimiter:    rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1),
		logger:         logger,
	}
}

// ListTransfers returns the most recent TRC20 transfers related to address,
// newest first, as the indexer orders them.
func (c *Client) ListTransfers(ctx context.Context, address string, limit int, apiKey string) ([]entities.RawTransfer, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("start", "0")
	params.Set("sort", "-timestamp")
	params.Set("count", "true")
	params.Set("filterTokenValue", "0")
	params.Set("relatedAddress", address)

	var resp TransfersResponse
	if err := c.doRequest(ctx, c.config.TransfersURL, params, apiKey, &resp); err != nil {
		return nil, fmt.Errorf("list transfers failed: %w", err)
	}
	if resp.TokenTransfers == nil {
		return nil, ErrMissingTransfers
	}

	out := make([]entities.RawTransfer, 0, len(resp.TokenTransfers))
	for i, item := range resp.TokenTransfers {
		var tt TokenTransfer
		if err := json.Unmarshal(item, &tt); err != nil {
			return nil, fmt.Errorf("%w: transfer %d: %v", apperrors.ErrParse, i, err)
		}
		out = append(out, tt.ToRaw(item))
	}
	return out, nil
}

// GetAssetOverview returns the token asset overview of address
func (c *Client) GetAssetOverview(ctx context.Context, address, apiKey string) (*AssetOverview, error) {
	params := url.Values{}
	params.Set("address", address)

	var resp AssetOverview
	if err := c.doRequest(ctx, c.config.BalanceURL, params, apiKey, &resp); err != nil {
		return nil, fmt.Errorf("get asset overview failed: %w", err)
	}
	return &resp, nil
}

// FetchUSDBalance returns the aggregate USD value of address
func (c *Client) FetchUSDBalance(ctx context.Context, address, apiKey string) (decimal.Decimal, error) {
	overview, err := c.GetAssetOverview(ctx, address, apiKey)
	if err != nil {
		return decimal.Zero, err
	}
	return overview.USD(), nil
}

func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, apiKey string, response interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", classifyTransport(ctx, err))
	}

	_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return nil, c.doRequestInternal(ctx, endpoint, params, apiKey, response)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", apperrors.ErrUpstream, err)
	}
	return err
}

func (c *Client) doRequestInternal(ctx context.Context, endpoint string, params url.Values, apiKey string, response interface{}) error {
	fullURL := endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if apiKey != "" {
		req.Header.Set(APIKeyHeader, apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", classifyTransport(ctx, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read body: %w", classifyTransport(ctx, err))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := time.Second
		if secs, perr := strconv.Atoi(resp.Header.Get("Retry-After")); perr == nil && secs > 0 {
			retryAfter = time.Duration(secs) * time.Second
		}
		return apperrors.NewThrottleError(retryAfter, "tronscan rate limit")
	}

	if resp.StatusCode >= 400 {
		c.logger.Debug("Tronscan returned error status",
			zap.Int("status_code", resp.StatusCode),
			zap.String("api_key", security.MaskSecret(apiKey)))
		var errResp ErrorResponse
		if json.Unmarshal(body, &errResp) != nil || errResp.Message == "" {
			errResp.Message = http.StatusText(resp.StatusCode)
		}
		errResp.StatusCode = resp.StatusCode
		return &errResp
	}

	if err := json.Unmarshal(body, response); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrParse, err)
	}
	return nil
}

// classifyTransport tags transport failures with the pipeline taxonomy
func classifyTransport(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", apperrors.ErrConnection, err)
}
