package security

import (
	"regexp"
	"strings"
)

var (
	// Telegram bot tokens: <bot id>:<35 char secret>, also inside /bot<token>/ URL paths
	botTokenPattern = regexp.MustCompile(`[0-9]{6,12}:[A-Za-z0-9_-]{30,}`)
	// UUID-shaped API keys as issued by the ledger indexer
	apiKeyPattern = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`)
	// key=value style secrets
	secretPairPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|secret|token|password)(["\s:=]+)["']?([A-Za-z0-9_-]{16,})["']?`)
)

// MaskString redacts credentials found anywhere in s. It is meant for error
// strings produced by HTTP clients, which may echo request URLs.
func MaskString(s string) string {
	s = botTokenPattern.ReplaceAllStringFunc(s, MaskSecret)
	s = apiKeyPattern.ReplaceAllStringFunc(s, MaskSecret)
	s = secretPairPattern.ReplaceAllString(s, "$1$2***REDACTED***")
	return s
}

// MaskSecret keeps the first and last four characters of a credential.
func MaskSecret(secret string) string {
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}

// MaskSecrets masks every credential in the list.
func MaskSecrets(secrets []string) []string {
	out := make([]string, len(secrets))
	for i, s := range secrets {
		out[i] = MaskSecret(s)
	}
	return out
}

// ShortAddress renders a wallet address as head...tail for compact display.
func ShortAddress(addr string) string {
	if len(addr) < 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
