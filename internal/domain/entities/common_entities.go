package entities

import "time"

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus represents the health of one component
type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status     string                  `json:"status"`
	Timestamp  time.Time               `json:"timestamp"`
	Version    string                  `json:"version"`
	Uptime     string                  `json:"uptime"`
	Components map[string]HealthStatus `json:"components"`
}

// AcceptedResponse acknowledges work queued for background processing
type AcceptedResponse struct {
	Status string `json:"status"`
	JobID  string `json:"job_id,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// APIKeysRequest replaces the indexer credential set
type APIKeysRequest struct {
	Keys []string `json:"keys" binding:"required,min=1,dive,required"`
}

// APIKeysResponse reports the credential set with each key masked
type APIKeysResponse struct {
	Count int      `json:"count"`
	Keys  []string `json:"keys"`
}

// WalletRequest adds a wallet to the watch list
type WalletRequest struct {
	Address string `json:"address" binding:"required,tronaddr"`
	Name    string `json:"name" binding:"max=64"`
}

// WalletRenameRequest changes the display name of a wallet
type WalletRenameRequest struct {
	Name string `json:"name" binding:"max=64"`
}

// WalletListResponse lists the watched wallets
type WalletListResponse struct {
	Wallets []Wallet `json:"wallets"`
	Count   int      `json:"count"`
}
