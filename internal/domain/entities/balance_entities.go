package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceSnapshot is the USD value of one wallet at aggregation time.
// Error is set when the fetch failed; USDValue is zero in that case.
type BalanceSnapshot struct {
	Wallet   Wallet          `json:"wallet"`
	USDValue decimal.Decimal `json:"usd_value"`
	Error    string          `json:"error,omitempty"`
}

// OK reports whether the snapshot was fetched successfully
func (s BalanceSnapshot) OK() bool {
	return s.Error == ""
}

// BalanceReport is the summary of one aggregation run
type BalanceReport struct {
	Snapshots   []BalanceSnapshot `json:"snapshots"`
	TotalUSD    decimal.Decimal   `json:"total_usd"`
	Succeeded   int               `json:"succeeded"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// NewBalanceReport totals successful snapshots
func NewBalanceReport(snapshots []BalanceSnapshot, at time.Time) *BalanceReport {
	report := &BalanceReport{
		Snapshots:   snapshots,
		TotalUSD:    decimal.Zero,
		GeneratedAt: at,
	}
	for _, s := range snapshots {
		if !s.OK() {
			continue
		}
		report.Succeeded++
		report.TotalUSD = report.TotalUSD.Add(s.USDValue)
	}
	return report
}

// Total returns the number of wallets in the report
func (r *BalanceReport) Total() int {
	return len(r.Snapshots)
}
