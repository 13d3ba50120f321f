package tronscan

import (
	"fmt"

	apperrors "github.com/tronwatch/tronwatch_service/internal/domain/errors"
)

// ErrorResponse represents a non-success response of the indexer
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("tronscan API error [%d]: %s", e.StatusCode, e.Message)
}

func (e *ErrorResponse) Unwrap() error {
	return apperrors.ErrUpstream
}

func (e *ErrorResponse) IsUnauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// ErrMissingTransfers indicates a body without a token_transfers array
var ErrMissingTransfers = fmt.Errorf("%w: token_transfers array missing", apperrors.ErrParse)
