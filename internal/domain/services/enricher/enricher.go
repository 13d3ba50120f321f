// Package enricher turns raw ledger transfer records into display-ready
// transfer events. Everything here is pure.
package enricher

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
)

// Enrich resolves names, amount and token metadata of raw against the
// wallet registry. The direction set by the source is carried through;
// an unset direction is classified against the registry.
func Enrich(raw entities.RawTransfer, registry *entities.WalletRegistry) entities.TransferEvent {
	direction := raw.Direction
	matched := raw.Matched
	if direction == "" {
		direction, matched = ClassifyStreamed(raw, registry)
	}

	to := counterpartyTo(raw, registry)

	return entities.TransferEvent{
		Hash:           raw.Hash,
		From:           entities.Party{Address: raw.From, Name: registry.NameOf(raw.From)},
		To:             entities.Party{Address: to, Name: registry.NameOf(to)},
		Amount:         FormatAmount(raw.Quantity, raw.Token.Decimals),
		Token:          ResolveToken(raw.Token),
		Direction:      direction,
		ContractType:   raw.ContractType,
		Timestamp:      raw.Timestamp,
		Block:          raw.Block,
		MatchedWallets: matched,
		Raw:            raw.Raw,
	}
}

// MaxDecimals is the widest scale a uint256 quantity can carry. Token
// metadata beyond it is treated as missing.
const MaxDecimals = 77

// FormatAmount scales an integer quantity by 10^decimals and renders it
// with exactly decimals fractional digits. Missing or out of range decimals
// and an unparsable quantity yield "0". The result is never negative.
func FormatAmount(quantity string, decimals *int) string {
	if decimals == nil || *decimals > MaxDecimals {
		return "0"
	}
	q, err := decimal.NewFromString(strings.TrimSpace(quantity))
	if err != nil {
		return "0"
	}
	places := *decimals
	if places < 0 {
		places = 0
	}
	return q.Abs().Shift(int32(-places)).StringFixed(int32(places))
}

// ResolveToken converts raw token metadata; missing or out of range
// decimals become 0.
func ResolveToken(raw entities.RawToken) entities.TokenInfo {
	info := entities.TokenInfo{
		Name:         raw.Name,
		Abbreviation: raw.Abbr,
		Logo:         raw.Logo,
		Kind:         raw.Type,
	}
	if raw.Decimals != nil && *raw.Decimals > 0 && *raw.Decimals <= MaxDecimals {
		info.Decimals = *raw.Decimals
	}
	return info
}

// ClassifyPolled classifies a record fetched for one specific wallet:
// internal when both ends are configured, in when it was received by the
// polled wallet, out otherwise.
func ClassifyPolled(raw entities.RawTransfer, polled entities.Wallet, registry *entities.WalletRegistry) (entities.Direction, []entities.MatchedWallet) {
	incoming := entities.NormalizeAddress(raw.To) == polled.Key()

	role := entities.MatchRoleFrom
	if incoming {
		role = entities.MatchRoleTo
	}
	matched := []entities.MatchedWallet{{Wallet: polled, Role: role}}

	switch {
	case registry.Contains(raw.From) && registry.Contains(raw.To):
		return entities.DirectionInternal, matched
	case incoming:
		return entities.DirectionIn, matched
	default:
		return entities.DirectionOut, matched
	}
}

// ClassifyStreamed matches the owner, destination and destination list of
// a pushed record against the registry.
func ClassifyStreamed(raw entities.RawTransfer, registry *entities.WalletRegistry) (entities.Direction, []entities.MatchedWallet) {
	var matched []entities.MatchedWallet
	seen := make(map[string]struct{})

	fromOurs := false
	if w, ok := registry.Lookup(raw.From); ok {
		fromOurs = true
		seen[w.Key()+"|from"] = struct{}{}
		matched = append(matched, entities.MatchedWallet{Wallet: w, Role: entities.MatchRoleFrom})
	}

	toOurs := false
	for _, addr := range destinations(raw) {
		w, ok := registry.Lookup(addr)
		if !ok {
			continue
		}
		toOurs = true
		if _, dup := seen[w.Key()+"|to"]; dup {
			continue
		}
		seen[w.Key()+"|to"] = struct{}{}
		matched = append(matched, entities.MatchedWallet{Wallet: w, Role: entities.MatchRoleTo})
	}

	switch {
	case fromOurs && toOurs:
		return entities.DirectionInternal, matched
	case fromOurs:
		return entities.DirectionOut, matched
	case toOurs:
		return entities.DirectionIn, matched
	default:
		return entities.DirectionUnmatched, nil
	}
}

// SortOldestFirst orders records by ascending timestamp. Records sharing a
// timestamp keep their relative order.
func SortOldestFirst(records []entities.RawTransfer) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp < records[j].Timestamp
	})
}

func destinations(raw entities.RawTransfer) []string {
	out := make([]string, 0, 1+len(raw.ToList))
	if raw.To != "" {
		out = append(out, raw.To)
	}
	return append(out, raw.ToList...)
}

// counterpartyTo picks the displayed destination: the explicit one, else
// the first configured entry of the destination list, else its head.
func counterpartyTo(raw entities.RawTransfer, registry *entities.WalletRegistry) string {
	if raw.To != "" || len(raw.ToList) == 0 {
		return raw.To
	}
	for _, addr := range raw.ToList {
		if registry.Contains(addr) {
			return addr
		}
	}
	return raw.ToList[0]
}
