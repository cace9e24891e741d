package testutil

import (
	"consent-go/internal/consent"
	"consent-go/internal/encryption"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() consent.Encryptor {
	return encryption.NewTestEncryptor()
}
