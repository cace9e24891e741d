package vault

import (
	"bytes"
	"strings"
	"testing"
)

func TestMemoryVault_PutAndGetSnapshot(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	tests := []struct {
		name    string
		site    string
		item    string
		content string
	}{
		{name: "store and retrieve snapshot", site: "site-a", item: "decisions.db.age", content: "hello world"},
		{name: "store empty snapshot", site: "site-a", item: "empty", content: ""},
		{name: "store large snapshot", site: "site-b", item: "decisions.db.age", content: strings.Repeat("x", 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := strings.NewReader(tt.content)
			if err := vault.PutSnapshot(tt.site, tt.item, r, int64(len(tt.content)), 7); err != nil {
				t.Fatalf("PutSnapshot() error = %v", err)
			}

			var buf bytes.Buffer
			if err := vault.GetSnapshot(tt.site, tt.item, &buf); err != nil {
				t.Fatalf("GetSnapshot() unexpected error: %v", err)
			}
			if got := buf.String(); got != tt.content {
				t.Errorf("GetSnapshot() = %q, want %q", got, tt.content)
			}
		})
	}
}

func TestMemoryVault_SnapshotIsolatedBySite(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	if err := vault.PutSnapshot("site-a", "db", strings.NewReader("aaa"), 3, 1); err != nil {
		t.Fatalf("PutSnapshot() error = %v", err)
	}

	var buf bytes.Buffer
	if err := vault.GetSnapshot("site-b", "db", &buf); err == nil {
		t.Error("GetSnapshot() for other site should fail")
	}
}

func TestMemoryVault_SnapshotVersion(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	v, err := vault.GetSnapshotVersion("site-a", "db")
	if err != nil {
		t.Fatalf("GetSnapshotVersion() error = %v", err)
	}
	if v != 0 {
		t.Errorf("GetSnapshotVersion() on empty vault = %d, want 0", v)
	}

	for _, version := range []int64{100, 200} {
		if err := vault.PutSnapshot("site-a", "db", strings.NewReader("x"), 1, version); err != nil {
			t.Fatalf("PutSnapshot() error = %v", err)
		}
		got, err := vault.GetSnapshotVersion("site-a", "db")
		if err != nil {
			t.Fatalf("GetSnapshotVersion() error = %v", err)
		}
		if got != version {
			t.Errorf("GetSnapshotVersion() = %d, want %d", got, version)
		}
	}
}

func TestMemoryVault_SizeMismatch(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	err := vault.PutSnapshot("site-a", "db", strings.NewReader("short"), 100, 1)
	if err == nil {
		t.Error("PutSnapshot() expected size mismatch error, got nil")
	}
}

func TestMemoryVault_GetNonExistent(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	var buf bytes.Buffer
	if err := vault.GetSnapshot("site-a", "missing", &buf); err == nil {
		t.Error("GetSnapshot() expected error for missing snapshot, got nil")
	}
}

func TestMemoryVault_ValidateSetup(t *testing.T) {
	vault := NewMemoryVault("test-vault")
	if err := vault.ValidateSetup(); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}
}
