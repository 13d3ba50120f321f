package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains string
		hidden   string
	}{
		{
			name:     "bot token in url",
			input:    `Post "https://api.telegram.org/bot123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsawq/sendMessage": dial tcp: timeout`,
			contains: "/bot1234",
			hidden:   "AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsawq",
		},
		{
			name:     "uuid api key",
			input:    "request with key 0f8fad5b-d9cb-469f-a165-70867728950e failed",
			contains: "0f8f",
			hidden:   "d9cb-469f-a165",
		},
		{
			name:     "key value secret",
			input:    `api_key="abcdefghijklmnopqrstuvwxyz"`,
			contains: "***REDACTED***",
			hidden:   "abcdefghijklmnopqrstuvwxyz",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			masked := MaskString(tt.input)
			assert.Contains(t, masked, tt.contains)
			assert.NotContains(t, masked, tt.hidden)
		})
	}

	assert.Equal(t, "nothing secret here", MaskString("nothing secret here"))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "****", MaskSecret("abcd"))
	assert.Equal(t, "abcd****mnop", MaskSecret("abcdefghmnop"))
	assert.Equal(t, []string{"****", "abcd**ghij"}, MaskSecrets([]string{"wxyz", "abcdefghij"}))
}

func TestShortAddress(t *testing.T) {
	assert.Equal(t, "TR7NHq...Lj6t", ShortAddress("TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"))
	assert.Equal(t, "short", ShortAddress("short"))
}
