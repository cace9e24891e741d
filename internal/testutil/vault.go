package testutil

import (
	"consent-go/internal/consent"
	"consent-go/internal/vault"
)

// NewTestVault creates a new in-memory archive vault for testing.
func NewTestVault() consent.Vault {
	return vault.NewMemoryVault("test-vault")
}
