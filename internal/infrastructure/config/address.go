package config

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"

	apperrors "github.com/tronwatch/tronwatch_service/internal/domain/errors"
)

const (
	tronAddressLen     = 25
	tronAddressVersion = 0x41
)

// ValidateTronAddress checks a base58check mainnet address: 25 bytes,
// version byte 0x41 and a double SHA-256 checksum.
func ValidateTronAddress(address string) error {
	if address == "" {
		return apperrors.ValidationError("address", "address is required")
	}
	decoded, err := base58.Decode(address)
	if err != nil {
		return apperrors.ValidationError("address", fmt.Sprintf("address %q is not base58", address))
	}
	if len(decoded) != tronAddressLen || decoded[0] != tronAddressVersion {
		return apperrors.ValidationError("address", fmt.Sprintf("address %q is not a TRON address", address))
	}

	payload, checksum := decoded[:21], decoded[21:]
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	if !bytes.Equal(second[:4], checksum) {
		return apperrors.ValidationError("address", fmt.Sprintf("address %q has a bad checksum", address))
	}
	return nil
}
