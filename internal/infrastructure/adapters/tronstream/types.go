package tronstream

import (
	"encoding/json"
	"fmt"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
	apperrors "github.com/tronwatch/tronwatch_service/internal/domain/errors"
	"github.com/tronwatch/tronwatch_service/internal/infrastructure/adapters/tronscan"
)

// PushMessage is the envelope of a push-feed message. Only messages with
// latest_transaction_info carry transfers.
type PushMessage struct {
	LatestTransactionInfo *struct {
		Data []json.RawMessage `json:"data"`
	} `json:"latest_transaction_info"`
}

// PushRecord is one transfer entry of a push message
type PushRecord struct {
	Hash          string              `json:"hash"`
	OwnerAddress  string              `json:"ownerAddress"`
	ToAddress     string              `json:"toAddress"`
	ToAddressList []string            `json:"toAddressList"`
	Amount        tronscan.FlexString `json:"amount"`
	Timestamp     tronscan.FlexInt    `json:"timestamp"`
	Block         tronscan.FlexInt    `json:"block"`
	ContractType  tronscan.FlexString `json:"contractType"`
	TokenInfo     tronscan.TokenInfo  `json:"tokenInfo"`
}

// ToRaw converts the record, keeping the original bytes
func (r PushRecord) ToRaw(original json.RawMessage) entities.RawTransfer {
	return entities.RawTransfer{
		Hash:         r.Hash,
		From:         r.OwnerAddress,
		To:           r.ToAddress,
		ToList:       r.ToAddressList,
		Quantity:     string(r.Amount),
		Timestamp:    int64(r.Timestamp),
		Block:        int64(r.Block),
		ContractType: string(r.ContractType),
		Token:        r.TokenInfo.ToRaw(),
		Raw:          original,
	}
}

// ParseTransfers extracts the transfer records of one message. A message
// without the transfer path yields no records and no error.
func ParseTransfers(data []byte) ([]entities.RawTransfer, error) {
	var msg PushMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: push message: %v", apperrors.ErrParse, err)
	}
	if msg.LatestTransactionInfo == nil {
		return nil, nil
	}

	out := make([]entities.RawTransfer, 0, len(msg.LatestTransactionInfo.Data))
	for i, item := range msg.LatestTransactionInfo.Data {
		var rec PushRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			return nil, fmt.Errorf("%w: push record %d: %v", apperrors.ErrParse, i, err)
		}
		out = append(out, rec.ToRaw(item))
	}
	return out, nil
}
