package config

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"consent-go/internal/consent"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		SiteID:  "site-abc",
		BaseDir: "/var/lib/consent",
		LogDir:  "/var/lib/consent/log",
		Consent: ConsentConfig{
			Version:     "3",
			ConsentMode: true,
			LogEndpoint: "https://example.com/api/log",
			Categories: []CategoryConfig{
				{Slug: "necessary", Name: "Necessary", Required: true, Default: true},
				{Slug: "analytics", Name: "Analytics"},
			},
		},
		Server: ServerConfig{Listen: ":9090", RateRPS: 2.5, RateBurst: 4, RetentionDays: 30},
		Vaults: []VaultConfig{
			{Type: "s3", Name: "offsite", S3Bucket: "archive", S3Endpoint: "http://minio:9000"},
		},
		Encryption: EncryptionConfig{
			PublicKeyPath:  "/var/lib/consent/keys/consent.pub",
			PrivateKeyPath: "/var/lib/consent/keys/consent.key",
		},
		Database: DatabaseConfig{Type: "sqlite", DataDir: "/var/lib/consent/db"},
		Archive:  ArchiveConfig{Schedule: "0 3 * * *"},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.SiteID != original.SiteID {
		t.Errorf("SiteID = %q, want %q", got.SiteID, original.SiteID)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.Consent.Version != "3" || !got.Consent.ConsentMode {
		t.Errorf("Consent = %+v, want version 3 with consent mode", got.Consent)
	}
	if len(got.Consent.Categories) != 2 || !got.Consent.Categories[0].Required {
		t.Errorf("Consent.Categories = %+v", got.Consent.Categories)
	}
	if !reflect.DeepEqual(got.Server, original.Server) {
		t.Errorf("Server = %+v, want %+v", got.Server, original.Server)
	}
	if len(got.Vaults) != 1 {
		t.Fatalf("len(Vaults) = %d, want 1", len(got.Vaults))
	}
	if got.Vaults[0].S3Endpoint != "http://minio:9000" {
		t.Errorf("Vault.S3Endpoint = %q, want %q", got.Vaults[0].S3Endpoint, "http://minio:9000")
	}
	if got.Encryption.PrivateKeyPath != original.Encryption.PrivateKeyPath {
		t.Errorf("Encryption.PrivateKeyPath = %q, want %q", got.Encryption.PrivateKeyPath, original.Encryption.PrivateKeyPath)
	}
	if got.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %q, want %q", got.Database.Type, "sqlite")
	}
	if got.Archive.Schedule != "0 3 * * *" {
		t.Errorf("Archive.Schedule = %q, want %q", got.Archive.Schedule, "0 3 * * *")
	}
}

func TestManager_Read_HandWritten(t *testing.T) {
	input := `
site_id = "shop"

[consent]
version = "2"

[[consent.categories]]
slug = "necessary"
name = "Necessary"
required = true

[[consent.categories]]
slug = "ads"
name = "Advertising"
default = true
`
	cfg, err := (&Manager{}).Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if cfg.SiteID != "shop" {
		t.Errorf("SiteID = %q, want shop", cfg.SiteID)
	}
	if len(cfg.Consent.Categories) != 2 || !cfg.Consent.Categories[1].Default {
		t.Errorf("Categories = %+v", cfg.Consent.Categories)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("site-1", "/data/consent")

	if cfg.SiteID != "site-1" {
		t.Errorf("SiteID = %q, want %q", cfg.SiteID, "site-1")
	}
	if cfg.LogDir != "/data/consent/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/consent/log")
	}
	if cfg.Database.DataDir != "/data/consent/db" {
		t.Errorf("Database.DataDir = %q, want %q", cfg.Database.DataDir, "/data/consent/db")
	}
	if cfg.Encryption.PublicKeyPath != "/data/consent/keys/consent.pub" {
		t.Errorf("Encryption.PublicKeyPath = %q", cfg.Encryption.PublicKeyPath)
	}
	if len(cfg.Consent.Categories) != len(consent.DefaultCategories()) {
		t.Errorf("len(Consent.Categories) = %d, want %d", len(cfg.Consent.Categories), len(consent.DefaultCategories()))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on new config error = %v", err)
	}
}

func TestConsentConfig_Settings(t *testing.T) {
	t.Run("empty table falls back to defaults", func(t *testing.T) {
		s := ConsentConfig{}.Settings()

		if s.Version != consent.DefaultVersion {
			t.Errorf("Version = %q, want %q", s.Version, consent.DefaultVersion)
		}
		if s.CookieName != consent.DefaultCookieName {
			t.Errorf("CookieName = %q, want %q", s.CookieName, consent.DefaultCookieName)
		}
		if s.DurationDays != consent.DefaultDurationDays {
			t.Errorf("DurationDays = %d, want %d", s.DurationDays, consent.DefaultDurationDays)
		}
		if len(s.Categories) != len(consent.DefaultCategories()) {
			t.Errorf("len(Categories) = %d, want defaults", len(s.Categories))
		}
	})

	t.Run("explicit values are kept", func(t *testing.T) {
		s := ConsentConfig{
			Version:     "9",
			CookieName:  "c",
			ConsentMode: true,
			Categories:  []CategoryConfig{{Slug: "stats", Name: "Stats", Default: true}},
		}.Settings()

		if s.Version != "9" || s.CookieName != "c" || !s.ConsentMode {
			t.Errorf("Settings() = %+v", s)
		}
		c, ok := s.Category("stats")
		if !ok || !c.Default {
			t.Errorf("Category(stats) = %+v, %v", c, ok)
		}
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing site id", mutate: func(c *Config) { c.SiteID = "" }, wantErr: true},
		{name: "empty slug", mutate: func(c *Config) {
			c.Consent.Categories = append(c.Consent.Categories, CategoryConfig{Name: "No slug"})
		}, wantErr: true},
		{name: "duplicate slug", mutate: func(c *Config) {
			c.Consent.Categories = append(c.Consent.Categories, CategoryConfig{Slug: "ads"})
		}, wantErr: true},
		{name: "negative rate", mutate: func(c *Config) { c.Server.RateRPS = -1 }, wantErr: true},
		{name: "negative retention", mutate: func(c *Config) { c.Server.RetentionDays = -1 }, wantErr: true},
		{name: "trusted proxies", mutate: func(c *Config) { c.Server.TrustedProxies = []string{"10.0.0.1", "172.16.0.0/12", "::1"} }},
		{name: "invalid trusted proxy", mutate: func(c *Config) { c.Server.TrustedProxies = []string{"proxy.local"} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("site", "/tmp/consent")
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "nested", "consent.toml")
		cfg := NewConfig("s1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "consent.toml")
		cfg := NewConfig("s1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		if err := Init(path, cfg); err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "consent.toml")
		cfg := NewConfig("read-test", dir)
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.SiteID != "read-test" {
			t.Errorf("SiteID = %q, want %q", got.SiteID, "read-test")
		}
		if got.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want memory", got.Database.Type)
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		if _, err := ReadFromFile("/nonexistent/path/consent.toml"); err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
