package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
	"github.com/tronwatch/tronwatch_service/internal/infrastructure/config"
	"github.com/tronwatch/tronwatch_service/pkg/security"
)

// WatchlistStore persists the mutable wallet list and credentials
type WatchlistStore interface {
	Wallets() []entities.Wallet
	APIKeys() []string
	AddWallet(wallet entities.Wallet) (entities.Wallet, error)
	RemoveWallet(address string) error
	UpdateWallet(address, name string) (entities.Wallet, error)
	SetAPIKeys(keys []string) ([]string, error)
}

// WatchlistReceiver is told about every accepted change
type WatchlistReceiver interface {
	UpdateWallets(wallets []entities.Wallet)
	UpdateKeys(keys []string)
}

// WalletHandlers manages the watch list
type WalletHandlers struct {
	store    WatchlistStore
	receiver WatchlistReceiver
	logger   *zap.Logger
}

// NewWalletHandlers creates a new WalletHandlers instance. receiver may be
// nil when no source is running in this process.
func NewWalletHandlers(store WatchlistStore, receiver WatchlistReceiver, logger *zap.Logger) *WalletHandlers {
	return &WalletHandlers{
		store:    store,
		receiver: receiver,
		logger:   logger,
	}
}

// ListWallets handles GET /api/v1/wallets
func (h *WalletHandlers) ListWallets(c *gin.Context) {
	wallets := h.store.Wallets()
	c.JSON(http.StatusOK, entities.WalletListResponse{Wallets: wallets, Count: len(wallets)})
}

// AddWallet handles POST /api/v1/wallets
func (h *WalletHandlers) AddWallet(c *gin.Context) {
	var req entities.WalletRequest
	if !bindJSON(c, &req) {
		return
	}

	wallet, err := h.store.AddWallet(entities.Wallet{Address: req.Address, Name: req.Name})
	if err != nil {
		h.logger.Warn("Failed to add wallet",
			zap.String("address", req.Address),
			zap.Error(err),
			zap.String("request_id", getRequestID(c)))
		SendDomainError(c, err, ErrCodeUpdateFailed)
		return
	}

	h.pushWallets()
	h.logger.Info("Wallet added", zap.String("address", wallet.Address), zap.String("name", wallet.Name))
	c.JSON(http.StatusCreated, wallet)
}

// UpdateWallet handles PUT /api/v1/wallets/:address
func (h *WalletHandlers) UpdateWallet(c *gin.Context) {
	address := c.Param("address")
	if err := config.ValidateTronAddress(address); err != nil {
		SendBadRequest(c, ErrCodeInvalidAddress, err.Error())
		return
	}

	var req entities.WalletRenameRequest
	if !bindJSON(c, &req) {
		return
	}

	wallet, err := h.store.UpdateWallet(address, req.Name)
	if err != nil {
		SendDomainError(c, err, ErrCodeWalletNotFound)
		return
	}

	h.pushWallets()
	h.logger.Info("Wallet renamed", zap.String("address", wallet.Address), zap.String("name", wallet.Name))
	c.JSON(http.StatusOK, wallet)
}

// RemoveWallet handles DELETE /api/v1/wallets/:address
func (h *WalletHandlers) RemoveWallet(c *gin.Context) {
	address := c.Param("address")
	if err := config.ValidateTronAddress(address); err != nil {
		SendBadRequest(c, ErrCodeInvalidAddress, err.Error())
		return
	}

	if err := h.store.RemoveWallet(address); err != nil {
		SendDomainError(c, err, ErrCodeWalletNotFound)
		return
	}

	h.pushWallets()
	h.logger.Info("Wallet removed", zap.String("address", address))
	c.Status(http.StatusNoContent)
}

// SetAPIKeys handles PUT /api/v1/keys
func (h *WalletHandlers) SetAPIKeys(c *gin.Context) {
	var req entities.APIKeysRequest
	if !bindJSON(c, &req) {
		return
	}

	blank := true
	for _, k := range req.Keys {
		if strings.TrimSpace(k) != "" {
			blank = false
			break
		}
	}
	if blank {
		SendBadRequest(c, ErrCodeValidationError, "at least one non-blank key is required")
		return
	}

	keys, err := h.store.SetAPIKeys(req.Keys)
	if err != nil {
		h.logger.Error("Failed to save API keys", zap.Error(err))
		SendDomainError(c, err, ErrCodeUpdateFailed)
		return
	}

	if h.receiver != nil {
		h.receiver.UpdateKeys(keys)
	}
	h.logger.Info("API keys replaced", zap.Int("count", len(keys)))
	c.JSON(http.StatusOK, entities.APIKeysResponse{Count: len(keys), Keys: security.MaskSecrets(keys)})
}

// GetAPIKeys handles GET /api/v1/keys
func (h *WalletHandlers) GetAPIKeys(c *gin.Context) {
	keys := h.store.APIKeys()
	c.JSON(http.StatusOK, entities.APIKeysResponse{Count: len(keys), Keys: security.MaskSecrets(keys)})
}

func (h *WalletHandlers) pushWallets() {
	if h.receiver != nil {
		h.receiver.UpdateWallets(h.store.Wallets())
	}
}
