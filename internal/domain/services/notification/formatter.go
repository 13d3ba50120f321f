// Package notification renders pipeline events into Telegram-flavoured HTML.
package notification

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
	"github.com/tronwatch/tronwatch_service/pkg/security"
)

const (
	// ExplorerTxURL is the block explorer page of a transaction
	ExplorerTxURL = "https://tronscan.org/#/transaction/"

	timeLayout = "2006-01-02 15:04:05 MST"
)

var (
	contractEmoji = map[string]string{
		"1":  "💸",
		"2":  "🔐",
		"4":  "🗳️",
		"11": "🆕",
		"31": "⚡",
		"57": "🔄",
	}
	contractNames = map[string]string{
		"1":  "Transfer",
		"2":  "Transfer Asset",
		"4":  "Vote Witness",
		"11": "Create Token",
		"31": "Trigger Smart Contract",
		"44": "Exchange Transaction",
		"57": "Account Permission Update",
	}
	directionTitles = map[entities.Direction]string{
		entities.DirectionIn:       "📥 Incoming",
		entities.DirectionOut:      "📤 Outgoing",
		entities.DirectionInternal: "🔄 Internal transfer",
	}
)

// Formatter builds notification texts. Times are rendered in loc.
type Formatter struct {
	loc     *time.Location
	printer *message.Printer
}

// NewFormatter creates a formatter; a nil location means UTC
func NewFormatter(loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.UTC
	}
	return &Formatter{
		loc:     loc,
		printer: message.NewPrinter(language.English),
	}
}

// Transaction renders one transfer event
func (f *Formatter) Transaction(ev entities.TransferEvent) string {
	title, ok := directionTitles[ev.Direction]
	if !ok {
		title = "🔄 Transaction"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b>\n\n", emojiFor(ev.ContractType), title)
	fmt.Fprintf(&b, "<b>From:</b> %s\n", formatParty(ev.From))
	fmt.Fprintf(&b, "<b>To:</b> %s\n\n", formatParty(ev.To))
	fmt.Fprintf(&b, "<b>Amount:</b> %s %s\n",
		f.DisplayAmount(ev.Amount), html.EscapeString(strings.ToUpper(ev.Token.Abbreviation)))
	if ev.Token.Name != "" && !strings.EqualFold(ev.Token.Name, "trx") {
		fmt.Fprintf(&b, "<b>Token:</b> %s (%s)\n", html.EscapeString(ev.Token.Name), html.EscapeString(ev.Token.Abbreviation))
	}
	fmt.Fprintf(&b, "<b>Type:</b> %s\n\n", html.EscapeString(typeName(ev)))
	fmt.Fprintf(&b, "<b>Time:</b> %s\n\n", time.UnixMilli(ev.Timestamp).In(f.loc).Format(timeLayout))
	fmt.Fprintf(&b, `<a href="%s%s">View on Tronscan</a>`, ExplorerTxURL, html.EscapeString(ev.Hash))
	return b.String()
}

// BalanceReport renders the digest of one aggregation run
func (f *Formatter) BalanceReport(report *entities.BalanceReport) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Wallet", "USD"})
	for _, s := range report.Snapshots {
		value := "error: " + s.Error
		if s.OK() {
			value = f.USD(s.USDValue)
		}
		t.AppendRow(table.Row{walletLabel(s.Wallet), value})
	}
	t.AppendFooter(table.Row{"Total", f.USD(report.TotalUSD)})

	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Balance report %s</b>\n\n", report.GeneratedAt.In(f.loc).Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "<b>Total:</b> $%s\n\n", f.USD(report.TotalUSD))
	fmt.Fprintf(&b, "<pre>%s</pre>\n\n", html.EscapeString(t.Render()))
	fmt.Fprintf(&b, "%d/%d succeeded", report.Succeeded, report.Total())
	return b.String()
}

// Test renders the channel verification message
func (f *Formatter) Test(status entities.MonitorStatus, at time.Time) string {
	state := "stopped"
	if status.Running {
		state = "running"
	}
	return fmt.Sprintf("✅ <b>Test notification</b>\n\nMonitor: %s (%s)\nWallets: %d\nAPI keys: %d\nTime: %s",
		state, html.EscapeString(status.Strategy), status.WalletCount, status.CredentialCount,
		at.In(f.loc).Format(timeLayout))
}

// DisplayAmount applies display rounding to a decimal amount string: 0
// stays "0", dust uses an exponent, small values keep 6 then 2 decimals,
// and large ones get thousands separators with at most 2 decimals.
func (f *Formatter) DisplayAmount(amount string) string {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return html.EscapeString(amount)
	}
	abs := d.Abs()
	switch {
	case d.IsZero():
		return "0"
	case abs.LessThan(decimal.New(1, -6)):
		return exponent(d)
	case abs.LessThan(decimal.NewFromInt(1)):
		return d.StringFixed(6)
	case abs.LessThan(decimal.NewFromInt(1000)):
		return d.StringFixed(2)
	default:
		v, _ := d.Round(2).Float64()
		return f.printer.Sprintf("%v", number.Decimal(v, number.MaxFractionDigits(2)))
	}
}

// USD renders a dollar value with separators and exactly 2 decimals
func (f *Formatter) USD(d decimal.Decimal) string {
	v, _ := d.Round(2).Float64()
	return f.printer.Sprintf("%v", number.Decimal(v, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// exponent formats like 1.23e-7
func exponent(d decimal.Decimal) string {
	v, _ := d.Float64()
	s := strconv.FormatFloat(v, 'e', 2, 64)
	mant, exp, ok := strings.Cut(s, "e")
	if !ok {
		return s
	}
	sign := ""
	if strings.HasPrefix(exp, "-") || strings.HasPrefix(exp, "+") {
		if exp[0] == '-' {
			sign = "-"
		} else {
			sign = "+"
		}
		exp = exp[1:]
	}
	exp = strings.TrimLeft(exp, "0")
	if exp == "" {
		exp = "0"
	}
	return mant + "e" + sign + exp
}

func formatParty(p entities.Party) string {
	addr := p.Address
	if addr == "" {
		addr = "Unknown"
	}
	code := "<code>" + html.EscapeString(addr) + "</code>"
	if p.Name != "" {
		return html.EscapeString(p.Name) + " (" + code + ")"
	}
	return code
}

func walletLabel(w entities.Wallet) string {
	if w.Name != "" {
		return w.Name
	}
	return security.ShortAddress(w.Address)
}

func emojiFor(contractType string) string {
	if e, ok := contractEmoji[contractType]; ok {
		return e
	}
	return "📝"
}

func typeName(ev entities.TransferEvent) string {
	if name, ok := contractNames[ev.ContractType]; ok {
		return name
	}
	if ev.ContractType != "" {
		return "Contract Type " + ev.ContractType
	}
	if ev.Token.Kind != "" {
		return strings.ToUpper(ev.Token.Kind) + " Transfer"
	}
	return "Transfer"
}
