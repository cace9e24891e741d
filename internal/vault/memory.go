package vault

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"consent-go/internal/consent"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// It keeps snapshots in memory, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryVault struct {
	name     string
	snapshot map[string][]byte // "siteID/name" -> snapshot
	version  map[string]int64  // "siteID/name" -> version
	mu       sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:     name,
		snapshot: make(map[string][]byte),
		version:  make(map[string]int64),
	}
}

// snapshotKey returns the map key for a site/name pair.
func snapshotKey(siteID, name string) string {
	return siteID + "/" + name
}

// PutSnapshot stores a named snapshot for a site.
func (m *MemoryVault) PutSnapshot(siteID string, name string, r io.Reader, size int64, version int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := snapshotKey(siteID, name)
	m.snapshot[key] = data
	m.version[key] = version
	return nil
}

// GetSnapshotVersion returns the snapshot version for a named item on a site.
// Returns 0 if nothing has been stored for this site/name.
func (m *MemoryVault) GetSnapshotVersion(siteID string, name string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.version[snapshotKey(siteID, name)], nil
}

// GetSnapshot retrieves a named snapshot for a site.
func (m *MemoryVault) GetSnapshot(siteID string, name string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.snapshot[snapshotKey(siteID, name)]
	if !ok {
		return fmt.Errorf("snapshot %q not found for site: %s", name, siteID)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	return nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

// Compile-time check that MemoryVault implements consent.Vault interface
var _ consent.Vault = (*MemoryVault)(nil)
