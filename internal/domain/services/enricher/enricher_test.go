package enricher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
)

const (
	walletA = "TJRabPrwbZy45sbavfcjinPJC18kjpRTv8"
	walletB = "TXLAQ63Xg1NAzckPwKHvzw7CSEmLMEqcdj"
	outside = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
)

func intPtr(v int) *int { return &v }

func testRegistry() *entities.WalletRegistry {
	return entities.NewWalletRegistry([]entities.Wallet{
		{Address: walletA, Name: "Treasury"},
		{Address: walletB, Name: "Hot"},
	})
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		name     string
		quantity string
		decimals *int
		want     string
	}{
		{"six decimals", "1500000", intPtr(6), "1.500000"},
		{"zero decimals", "42", intPtr(0), "42"},
		{"missing decimals", "1500000", nil, "0"},
		{"unparsable quantity", "abc", intPtr(6), "0"},
		{"sub unit amount", "1", intPtr(6), "0.000001"},
		{"large quantity", "123456789012345678901234", intPtr(18), "123456.789012345678901234"},
		{"negative quantity is made absolute", "-2500", intPtr(3), "2.500"},
		{"widest valid scale", "42", intPtr(MaxDecimals), "0." + strings.Repeat("0", MaxDecimals-2) + "42"},
		{"decimals beyond uint256 scale", "42", intPtr(MaxDecimals + 1), "0"},
		{"decimals overflowing int32", "42", intPtr(1 << 31), "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAmount(tt.quantity, tt.decimals))
		})
	}
}

func TestResolveToken_Decimals(t *testing.T) {
	tests := []struct {
		name     string
		decimals *int
		want     int
	}{
		{"present", intPtr(6), 6},
		{"missing", nil, 0},
		{"negative", intPtr(-3), 0},
		{"beyond uint256 scale", intPtr(MaxDecimals + 1), 0},
		{"overflowing int32", intPtr(1 << 31), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ResolveToken(entities.RawToken{Abbr: "USDT", Decimals: tt.decimals})
			assert.Equal(t, tt.want, info.Decimals)
		})
	}
}

func TestEnrich(t *testing.T) {
	registry := testRegistry()

	raw := entities.RawTransfer{
		Hash:      "abc123",
		From:      outside,
		To:        walletA,
		Quantity:  "1500000",
		Timestamp: 1700000000000,
		Block:     55,
		Token:     entities.RawToken{Name: "Tether USD", Abbr: "USDT", Decimals: intPtr(6), Type: "trc20"},
		Direction: entities.DirectionIn,
	}

	ev := Enrich(raw, registry)

	assert.Equal(t, "abc123", ev.Hash)
	assert.Equal(t, "1.500000", ev.Amount)
	assert.Equal(t, entities.DirectionIn, ev.Direction)
	assert.Equal(t, "", ev.From.Name)
	assert.Equal(t, outside, ev.From.Address)
	assert.Equal(t, "Treasury", ev.To.Name)
	assert.Equal(t, 6, ev.Token.Decimals)
	assert.Equal(t, "USDT", ev.Token.Abbreviation)
	assert.Equal(t, int64(55), ev.Block)
}

func TestEnrich_NameLookupIgnoresCase(t *testing.T) {
	raw := entities.RawTransfer{
		Hash:      "h",
		From:      "tjrabprwbzy45sbavfcjinpjc18kjprtv8",
		To:        outside,
		Quantity:  "1",
		Direction: entities.DirectionOut,
	}

	ev := Enrich(raw, testRegistry())
	assert.Equal(t, "Treasury", ev.From.Name)
	assert.Equal(t, "0", ev.Amount)
}

func TestClassifyPolled(t *testing.T) {
	registry := testRegistry()
	polled := entities.Wallet{Address: walletA, Name: "Treasury"}

	t.Run("incoming", func(t *testing.T) {
		dir, matched := ClassifyPolled(entities.RawTransfer{From: outside, To: walletA}, polled, registry)
		assert.Equal(t, entities.DirectionIn, dir)
		require.Len(t, matched, 1)
		assert.Equal(t, entities.MatchRoleTo, matched[0].Role)
	})

	t.Run("outgoing", func(t *testing.T) {
		dir, matched := ClassifyPolled(entities.RawTransfer{From: walletA, To: outside}, polled, registry)
		assert.Equal(t, entities.DirectionOut, dir)
		assert.Equal(t, entities.MatchRoleFrom, matched[0].Role)
	})

	t.Run("internal", func(t *testing.T) {
		dir, _ := ClassifyPolled(entities.RawTransfer{From: walletB, To: walletA}, polled, registry)
		assert.Equal(t, entities.DirectionInternal, dir)
	})
}

func TestClassifyStreamed(t *testing.T) {
	registry := testRegistry()

	t.Run("destination list entry matches", func(t *testing.T) {
		raw := entities.RawTransfer{From: outside, ToList: []string{outside, walletB}}
		dir, matched := ClassifyStreamed(raw, registry)
		assert.Equal(t, entities.DirectionIn, dir)
		require.Len(t, matched, 1)
		assert.Equal(t, "Hot", matched[0].Name)

		ev := Enrich(raw, registry)
		assert.Equal(t, walletB, ev.To.Address)
	})

	t.Run("from ours", func(t *testing.T) {
		dir, _ := ClassifyStreamed(entities.RawTransfer{From: walletA, To: outside}, registry)
		assert.Equal(t, entities.DirectionOut, dir)
	})

	t.Run("both ours", func(t *testing.T) {
		dir, matched := ClassifyStreamed(entities.RawTransfer{From: walletA, To: walletB}, registry)
		assert.Equal(t, entities.DirectionInternal, dir)
		assert.Len(t, matched, 2)
	})

	t.Run("no match", func(t *testing.T) {
		dir, matched := ClassifyStreamed(entities.RawTransfer{From: outside, To: outside}, registry)
		assert.Equal(t, entities.DirectionUnmatched, dir)
		assert.Empty(t, matched)
	})
}

func TestSortOldestFirst(t *testing.T) {
	records := []entities.RawTransfer{
		{Hash: "c", Timestamp: 120},
		{Hash: "b", Timestamp: 110},
		{Hash: "a", Timestamp: 90},
	}
	SortOldestFirst(records)
	assert.Equal(t, "a", records[0].Hash)
	assert.Equal(t, "c", records[2].Hash)
}
