package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/tronwatch/tronwatch_service/internal/domain/errors"
)

func TestValidateTronAddress(t *testing.T) {
	valid := []string{
		"TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t",
		"TLa2f6VPqDgRE67v1736s7bJ8Ray5wYjU7",
	}
	for _, addr := range valid {
		t.Run(addr, func(t *testing.T) {
			assert.NoError(t, ValidateTronAddress(addr))
		})
	}

	invalid := map[string]string{
		"empty":        "",
		"not base58":   "T0OIl000000000000000000000000000",
		"too short":    "TR7NHqjeKQxGTCi8q8",
		"bad checksum": "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6u",
		"bitcoin":      "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2",
	}
	for name, addr := range invalid {
		t.Run(name, func(t *testing.T) {
			err := ValidateTronAddress(addr)
			assert.Error(t, err)
			assert.True(t, apperrors.IsInvalidInput(err))
		})
	}
}
