package notification

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
)

func TestFormatter_DisplayAmount(t *testing.T) {
	f := NewFormatter(time.UTC)

	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"0.000000", "0"},
		{"0.0000001234", "1.23e-7"},
		{"0.5", "0.500000"},
		{"0.000001", "0.000001"},
		{"1.500000", "1.50"},
		{"999.999", "1000.00"},
		{"1234567.891", "1,234,567.89"},
		{"1000", "1,000"},
		{"not-a-number", "not-a-number"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, f.DisplayAmount(tt.in))
		})
	}
}

func TestFormatter_Transaction(t *testing.T) {
	f := NewFormatter(time.UTC)
	ev := entities.TransferEvent{
		Hash:      "abc123",
		From:      entities.Party{Address: "TFromAddr", Name: "Ops <main>"},
		To:        entities.Party{Address: "TToAddr"},
		Amount:    "1500.000000",
		Token:     entities.TokenInfo{Name: "Tether USD", Abbreviation: "usdt", Decimals: 6, Kind: "trc20"},
		Direction: entities.DirectionIn,
		Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).UnixMilli(),
	}

	msg := f.Transaction(ev)

	assert.True(t, strings.HasPrefix(msg, "📝 <b>📥 Incoming</b>"))
	assert.Contains(t, msg, "<b>From:</b> Ops &lt;main&gt; (<code>TFromAddr</code>)")
	assert.Contains(t, msg, "<b>To:</b> <code>TToAddr</code>")
	assert.Contains(t, msg, "<b>Amount:</b> 1,500 USDT")
	assert.Contains(t, msg, "<b>Token:</b> Tether USD (usdt)")
	assert.Contains(t, msg, "<b>Type:</b> TRC20 Transfer")
	assert.Contains(t, msg, "2024-01-02 03:04:05 UTC")
	assert.Contains(t, msg, `<a href="https://tronscan.org/#/transaction/abc123">`)
}

func TestFormatter_TransactionContractType(t *testing.T) {
	f := NewFormatter(nil)
	msg := f.Transaction(entities.TransferEvent{
		Hash:         "h",
		Amount:       "0",
		Token:        entities.TokenInfo{Name: "TRX", Abbreviation: "trx"},
		Direction:    entities.DirectionUnmatched,
		ContractType: "31",
	})

	assert.True(t, strings.HasPrefix(msg, "⚡ <b>🔄 Transaction</b>"))
	assert.Contains(t, msg, "<b>From:</b> <code>Unknown</code>")
	assert.Contains(t, msg, "<b>Type:</b> Trigger Smart Contract")
	assert.NotContains(t, msg, "<b>Token:</b>")
}

func TestFormatter_BalanceReport(t *testing.T) {
	f := NewFormatter(time.UTC)
	report := entities.NewBalanceReport([]entities.BalanceSnapshot{
		{Wallet: entities.Wallet{Address: "TJRabPrwbZy45sbavfcjinPJC18kjpRTv8", Name: "Treasury"}, USDValue: decimal.RequireFromString("1200.5")},
		{Wallet: entities.Wallet{Address: "TXLAQ63Xg1NAzckPwKHvzw7CSEmLMEqcdj"}, Error: "timeout"},
		{Wallet: entities.Wallet{Address: "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", Name: "Cold"}, USDValue: decimal.RequireFromString("30")},
	}, time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC))

	msg := f.BalanceReport(report)

	assert.Contains(t, msg, "Balance report 2024-05-06 08:00")
	assert.Contains(t, msg, "<pre>")
	assert.Contains(t, msg, "Treasury")
	assert.Contains(t, msg, "TXLAQ6...qcdj")
	assert.Contains(t, msg, "error: timeout")
	assert.True(t, strings.HasSuffix(msg, "2/3 succeeded"))
	assert.Equal(t, "1230.5", report.TotalUSD.String())
}
