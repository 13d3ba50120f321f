package tronscan

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
)

// FlexString decodes a JSON string or number into its textual form.
// The indexer is not consistent about quoting integer amounts.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// FlexInt decodes a JSON number or numeric string
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	var s FlexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseInt(string(s), 10, 64)
	if err != nil {
		fv, ferr := strconv.ParseFloat(string(s), 64)
		if ferr != nil {
			return err
		}
		v = int64(fv)
	}
	*f = FlexInt(v)
	return nil
}

// TokenInfo is the nested token metadata of a transfer record
type TokenInfo struct {
	TokenID      string   `json:"tokenId"`
	TokenName    string   `json:"tokenName"`
	TokenAbbr    string   `json:"tokenAbbr"`
	TokenDecimal *FlexInt `json:"tokenDecimal"`
	TokenLogo    string   `json:"tokenLogo"`
	TokenType    string   `json:"tokenType"`
}

// ToRaw converts the wire metadata; absent decimals stay nil
func (t TokenInfo) ToRaw() entities.RawToken {
	raw := entities.RawToken{
		Name: t.TokenName,
		Abbr: t.TokenAbbr,
		Logo: t.TokenLogo,
		Type: t.TokenType,
	}
	if t.TokenDecimal != nil {
		d := int(*t.TokenDecimal)
		raw.Decimals = &d
	}
	return raw
}

// TokenTransfer is one entry of the token_transfers array
type TokenTransfer struct {
	TransactionID string     `json:"transaction_id"`
	FromAddress   string     `json:"from_address"`
	ToAddress     string     `json:"to_address"`
	Quant         FlexString `json:"quant"`
	BlockTS       FlexInt    `json:"block_ts"`
	Block         FlexInt    `json:"block"`
	Confirmed     bool       `json:"confirmed"`
	ContractRet   string     `json:"contractRet"`
	TokenInfo     TokenInfo  `json:"tokenInfo"`
}

// ToRaw converts the record, keeping the original bytes
func (t TokenTransfer) ToRaw(original json.RawMessage) entities.RawTransfer {
	return entities.RawTransfer{
		Hash:      t.TransactionID,
		From:      t.FromAddress,
		To:        t.ToAddress,
		Quantity:  string(t.Quant),
		Timestamp: int64(t.BlockTS),
		Block:     int64(t.Block),
		Token:     t.TokenInfo.ToRaw(),
		Raw:       original,
	}
}

// TransfersResponse is the transfer-list envelope. TokenTransfers is nil
// when the array is absent from the body.
type TransfersResponse struct {
	Total          int               `json:"total"`
	RangeTotal     int               `json:"rangeTotal"`
	TokenTransfers []json.RawMessage `json:"token_transfers"`
}

// AssetOverview is the balance-overview response
type AssetOverview struct {
	TotalAssetInTRX *decimal.Decimal `json:"totalAssetInTrx"`
	TotalAssetInUSD *decimal.Decimal `json:"totalAssetInUsd"`
	TotalTokenCount int              `json:"totalTokenCount"`
}

// USD returns the aggregate USD value, zero when the field was absent
func (a *AssetOverview) USD() decimal.Decimal {
	if a == nil || a.TotalAssetInUSD == nil {
		return decimal.Zero
	}
	return *a.TotalAssetInUSD
}
