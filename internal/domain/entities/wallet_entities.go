package entities

import "strings"

// Wallet is a watched address with an optional display name.
// Address comparison is case-insensitive.
type Wallet struct {
	Address string `json:"address" mapstructure:"address" yaml:"address" binding:"required"`
	Name    string `json:"name,omitempty" mapstructure:"name" yaml:"name,omitempty"`
}

// Key returns the identity key of the wallet (lowercased address)
func (w Wallet) Key() string {
	return NormalizeAddress(w.Address)
}

// Label returns the name when set, otherwise the address
func (w Wallet) Label() string {
	if w.Name != "" {
		return w.Name
	}
	return w.Address
}

// NormalizeAddress lowercases and trims an address for map lookups
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// WalletRegistry is an immutable snapshot of the configured wallets.
// It is replaced wholesale on update, never mutated in place.
type WalletRegistry struct {
	wallets []Wallet
	index   map[string]int
}

// NewWalletRegistry copies wallets into a new registry. On duplicate
// addresses the first entry wins; empty addresses are skipped.
func NewWalletRegistry(wallets []Wallet) *WalletRegistry {
	r := &WalletRegistry{
		wallets: make([]Wallet, 0, len(wallets)),
		index:   make(map[string]int, len(wallets)),
	}
	for _, w := range wallets {
		key := w.Key()
		if key == "" {
			continue
		}
		if _, dup := r.index[key]; dup {
			continue
		}
		r.index[key] = len(r.wallets)
		r.wallets = append(r.wallets, w)
	}
	return r
}

// Lookup finds a wallet by address, ignoring case
func (r *WalletRegistry) Lookup(addr string) (Wallet, bool) {
	if r == nil || addr == "" {
		return Wallet{}, false
	}
	i, ok := r.index[NormalizeAddress(addr)]
	if !ok {
		return Wallet{}, false
	}
	return r.wallets[i], true
}

// Contains reports whether addr is a configured wallet
func (r *WalletRegistry) Contains(addr string) bool {
	_, ok := r.Lookup(addr)
	return ok
}

// NameOf returns the configured name for addr, or "" when unknown
func (r *WalletRegistry) NameOf(addr string) string {
	w, ok := r.Lookup(addr)
	if !ok {
		return ""
	}
	return w.Name
}

// Wallets returns the wallets in configured order
func (r *WalletRegistry) Wallets() []Wallet {
	if r == nil {
		return nil
	}
	out := make([]Wallet, len(r.wallets))
	copy(out, r.wallets)
	return out
}

// Len returns the number of wallets
func (r *WalletRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.wallets)
}
