package tronscan

import "time"

const (
	// DefaultTransfersURL lists TRC20 transfers related to an address
	DefaultTransfersURL = "https://apilist.tronscan.org/api/filter/trc20/transfers"
	// DefaultBalanceURL returns the token asset overview of an address
	DefaultBalanceURL = "https://apilist.tronscanapi.com/api/account/token_asset_overview"

	// APIKeyHeader carries the credential on every request
	APIKeyHeader = "TRON-PRO-API-KEY"

	// DefaultPageSize is the number of most recent transfers requested per wallet
	DefaultPageSize = 20

	// MaxRequestsPerSecond is the client-side ceiling across both endpoints
	MaxRequestsPerSecond = 5

	defaultTimeout = 15 * time.Second
	maxBodySize    = 4 << 20
)
