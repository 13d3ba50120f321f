package entities

import "encoding/json"

// Direction classifies a transfer relative to the configured wallets
type Direction string

const (
	DirectionIn       Direction = "in"
	DirectionOut      Direction = "out"
	DirectionInternal Direction = "internal"
	// DirectionUnmatched marks a streaming record that matched no configured wallet
	DirectionUnmatched Direction = "unmatched"
)

// MatchRole tells which side of a transfer a configured wallet was found on
type MatchRole string

const (
	MatchRoleFrom MatchRole = "from"
	MatchRoleTo   MatchRole = "to"
)

// MatchedWallet is a configured wallet that participates in a transfer
type MatchedWallet struct {
	Wallet
	Role MatchRole `json:"role"`
}

// RawToken is token metadata as delivered by the indexer. Decimals is nil
// when the record carries no decimals metadata.
type RawToken struct {
	Name     string `json:"name"`
	Abbr     string `json:"abbr"`
	Decimals *int   `json:"decimals,omitempty"`
	Logo     string `json:"logo"`
	Type     string `json:"type"`
}

// RawTransfer is a transfer record normalized from either the transfer-list
// query or the push feed, plus the source's direction classification.
type RawTransfer struct {
	Hash         string          `json:"hash"`
	From         string          `json:"from"`
	To           string          `json:"to"`
	ToList       []string        `json:"to_list,omitempty"`
	Quantity     string          `json:"quantity"`
	Timestamp    int64           `json:"timestamp"`
	Block        int64           `json:"block"`
	ContractType string          `json:"contract_type,omitempty"`
	Token        RawToken        `json:"token"`
	Direction    Direction       `json:"direction"`
	Matched      []MatchedWallet `json:"matched,omitempty"`
	Raw          json.RawMessage `json:"raw,omitempty"`
}

// TokenInfo is resolved token metadata
type TokenInfo struct {
	Name         string `json:"name"`
	Abbreviation string `json:"abbr"`
	Decimals     int    `json:"decimals"`
	Logo         string `json:"logo,omitempty"`
	Kind         string `json:"type,omitempty"`
}

// Party is one side of a transfer. Name is empty for addresses that are
// not configured wallets.
type Party struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// TransferEvent is an enriched, display-ready transfer
type TransferEvent struct {
	Hash           string          `json:"hash"`
	From           Party           `json:"from"`
	To             Party           `json:"to"`
	Amount         string          `json:"amount"`
	Token          TokenInfo       `json:"token"`
	Direction      Direction       `json:"direction"`
	ContractType   string          `json:"contract_type,omitempty"`
	Timestamp      int64           `json:"timestamp"`
	Block          int64           `json:"block"`
	MatchedWallets []MatchedWallet `json:"matched_wallets,omitempty"`
	Raw            json.RawMessage `json:"raw,omitempty"`
}
