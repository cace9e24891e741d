package consent

import "io"

// Vault stores decision-log archive snapshots.
// All operations stream through io.Reader/io.Writer.
type Vault interface {
	// PutSnapshot stores a named snapshot for a site, replacing any previous one.
	// size is the number of bytes that will be read from r.
	// version is stored alongside the snapshot for consistency checks.
	PutSnapshot(siteID string, name string, r io.Reader, size int64, version int64) error

	// GetSnapshot retrieves a named snapshot for a site and writes it to w.
	GetSnapshot(siteID string, name string, w io.Writer) error

	// GetSnapshotVersion returns the version stored with a snapshot.
	// Returns 0 if nothing has been stored for this site/name.
	GetSnapshotVersion(siteID string, name string) (int64, error)

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup() error
}
