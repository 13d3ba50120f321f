package tronscan

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
)

// TronscanClient defines the indexer queries used by the pipeline
type TronscanClient interface {
	// ListTransfers returns the most recent transfers related to address, newest first
	ListTransfers(ctx context.Context, address string, limit int, apiKey string) ([]entities.RawTransfer, error)

	// GetAssetOverview returns the aggregate asset value of address
	GetAssetOverview(ctx context.Context, address, apiKey string) (*AssetOverview, error)

	// FetchUSDBalance returns the aggregate USD value of address
	FetchUSDBalance(ctx context.Context, address, apiKey string) (decimal.Decimal, error)
}

// Ensure Client implements TronscanClient interface
var _ TronscanClient = (*Client)(nil)
