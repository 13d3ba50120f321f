package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
	apperrors "github.com/tronwatch/tronwatch_service/internal/domain/errors"
)

// Store holds the mutable watch list (wallets and API keys) in its own
// YAML file. Every write rewrites the file; reads return the last value
// that was written successfully.
type Store struct {
	path   string
	logger *zap.Logger

	mu      sync.RWMutex
	wallets []entities.Wallet
	keys    []string
}

// NewStore opens the watch list at path. When the file does not exist it
// is created from the seed values.
func NewStore(path string, seedWallets []entities.Wallet, seedKeys []string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{path: path, logger: logger}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		var wallets []entities.Wallet
		if err := v.UnmarshalKey("wallets", &wallets); err != nil {
			return nil, fmt.Errorf("%w: decode watch list: %v", apperrors.ErrPersistence, err)
		}
		s.wallets = wallets
		s.keys = cleanList(v.GetStringSlice("api_keys"))
		logger.Info("Watch list loaded",
			zap.String("path", path),
			zap.Int("wallets", len(s.wallets)),
			zap.Int("api_keys", len(s.keys)))
	case errors.Is(err, os.ErrNotExist), errors.As(err, &notFound):
		wallets := make([]entities.Wallet, 0, len(seedWallets))
		for _, w := range seedWallets {
			wallets = append(wallets, entities.Wallet{Address: strings.TrimSpace(w.Address), Name: strings.TrimSpace(w.Name)})
		}
		keys := cleanList(seedKeys)
		if err := s.persist(wallets, keys); err != nil {
			return nil, err
		}
		s.wallets, s.keys = wallets, keys
		logger.Info("Watch list seeded from config", zap.String("path", path), zap.Int("wallets", len(wallets)))
	default:
		return nil, fmt.Errorf("%w: read watch list: %v", apperrors.ErrPersistence, err)
	}
	return s, nil
}

// Wallets returns a copy of the wallet list
func (s *Store) Wallets() []entities.Wallet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.Wallet(nil), s.wallets...)
}

// APIKeys returns a copy of the credential list
func (s *Store) APIKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.keys...)
}

// AddWallet appends a wallet. The address must be a valid TRON address
// not already on the list (case-insensitive).
func (s *Store) AddWallet(wallet entities.Wallet) (entities.Wallet, error) {
	wallet.Address = strings.TrimSpace(wallet.Address)
	wallet.Name = strings.TrimSpace(wallet.Name)
	if err := ValidateTronAddress(wallet.Address); err != nil {
		return entities.Wallet{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(wallet.Address) >= 0 {
		return entities.Wallet{}, apperrors.AlreadyExistsError("WALLET")
	}
	next := append(append([]entities.Wallet(nil), s.wallets...), wallet)
	if err := s.persist(next, s.keys); err != nil {
		return entities.Wallet{}, err
	}
	s.wallets = next
	return wallet, nil
}

// RemoveWallet drops the wallet with address
func (s *Store) RemoveWallet(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(address)
	if i < 0 {
		return apperrors.NotFoundError("WALLET")
	}
	next := make([]entities.Wallet, 0, len(s.wallets)-1)
	next = append(next, s.wallets[:i]...)
	next = append(next, s.wallets[i+1:]...)
	if err := s.persist(next, s.keys); err != nil {
		return err
	}
	s.wallets = next
	return nil
}

// UpdateWallet renames the wallet with address
func (s *Store) UpdateWallet(address, name string) (entities.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(address)
	if i < 0 {
		return entities.Wallet{}, apperrors.NotFoundError("WALLET")
	}
	next := append([]entities.Wallet(nil), s.wallets...)
	next[i].Name = strings.TrimSpace(name)
	if err := s.persist(next, s.keys); err != nil {
		return entities.Wallet{}, err
	}
	s.wallets = next
	return next[i], nil
}

// SetAPIKeys replaces the credential list
func (s *Store) SetAPIKeys(keys []string) ([]string, error) {
	next := cleanList(keys)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persist(s.wallets, next); err != nil {
		return nil, err
	}
	s.keys = next
	return append([]string(nil), next...), nil
}

func (s *Store) indexOf(address string) int {
	key := entities.NormalizeAddress(address)
	for i, w := range s.wallets {
		if w.Key() == key {
			return i
		}
	}
	return -1
}

// persist writes the list to a temporary file then renames it over path
func (s *Store) persist(wallets []entities.Wallet, keys []string) error {
	items := make([]map[string]string, 0, len(wallets))
	for _, w := range wallets {
		item := map[string]string{"address": w.Address}
		if w.Name != "" {
			item["name"] = w.Name
		}
		items = append(items, item)
	}

	v := viper.New()
	v.Set("wallets", items)
	v.Set("api_keys", keys)

	dir, base := filepath.Split(s.path)
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create watch list dir: %v", apperrors.ErrPersistence, err)
		}
	}
	tmp := filepath.Join(dir, ".tmp-"+base)
	if !strings.HasSuffix(tmp, ".yaml") && !strings.HasSuffix(tmp, ".yml") {
		tmp += ".yaml"
	}
	if err := v.WriteConfigAs(tmp); err != nil {
		return fmt.Errorf("%w: write watch list: %v", apperrors.ErrPersistence, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: replace watch list: %v", apperrors.ErrPersistence, err)
	}
	s.logger.Debug("Watch list written", zap.String("path", s.path), zap.Int("wallets", len(wallets)))
	return nil
}
