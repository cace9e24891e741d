package config

import (
	"fmt"
	"io"
	"net/netip"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"consent-go/internal/consent"
)

// Config represents the main configuration for a consent site.
type Config struct {
	SiteID     string           `toml:"site_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Consent    ConsentConfig    `toml:"consent"`
	Server     ServerConfig     `toml:"server"`
	Database   DatabaseConfig   `toml:"database"`
	Vaults     []VaultConfig    `toml:"vaults"`
	Encryption EncryptionConfig `toml:"encryption"`
	Archive    ArchiveConfig    `toml:"archive"`
}

// ConsentConfig holds the banner settings served to pages.
// Empty fields fall back to the consent package defaults.
type ConsentConfig struct {
	Version             string           `toml:"version"`
	CookieName          string           `toml:"cookie_name,omitempty"`
	AnalyticsCookieName string           `toml:"analytics_cookie_name,omitempty"`
	DurationDays        int              `toml:"duration_days,omitempty"`
	ConsentMode         bool             `toml:"consent_mode"`
	LogEndpoint         string           `toml:"log_endpoint,omitempty"`
	LogAction           string           `toml:"log_action,omitempty"`
	Categories          []CategoryConfig `toml:"categories"`
}

// CategoryConfig is one configurable consent category.
type CategoryConfig struct {
	Slug        string `toml:"slug"`
	Name        string `toml:"name"`
	Description string `toml:"description,omitempty"`
	Required    bool   `toml:"required,omitempty"`
	Default     bool   `toml:"default,omitempty"`
}

// ServerConfig holds settings for `consent serve`.
type ServerConfig struct {
	Listen        string  `toml:"listen"`
	RateRPS       float64 `toml:"rate_rps"`       // decision reports per second per client; 0 disables limiting
	RateBurst     int     `toml:"rate_burst"`     // burst allowance per client
	RetentionDays int     `toml:"retention_days"` // decisions older than this are purged; 0 keeps everything

	// TrustedProxies are IPs or CIDR ranges allowed to set X-Forwarded-*
	// headers. Empty means the server faces clients directly.
	TrustedProxies []string `toml:"trusted_proxies,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used for archives.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default) or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// VaultConfig represents configuration for an archive vault backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// DatabaseConfig represents configuration for the decision log.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ArchiveConfig controls scheduled archiving while serving.
type ArchiveConfig struct {
	Schedule string `toml:"schedule,omitempty"` // cron expression; empty disables
}

// NewConfig creates a new Config with the provided values, default paths and
// the stock category set.
func NewConfig(siteID, baseDir string) *Config {
	cats := consent.DefaultCategories()
	categories := make([]CategoryConfig, len(cats))
	for i, c := range cats {
		categories[i] = CategoryConfig{
			Slug:        c.Slug,
			Name:        c.Name,
			Description: c.Description,
			Required:    c.Required,
			Default:     c.Default,
		}
	}

	return &Config{
		SiteID:  siteID,
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Consent: ConsentConfig{
			Version:     consent.DefaultVersion,
			ConsentMode: true,
			Categories:  categories,
		},
		Server: ServerConfig{
			Listen:        "127.0.0.1:8080",
			RateRPS:       5,
			RateBurst:     10,
			RetentionDays: 395,
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Encryption: EncryptionConfig{
			PublicKeyPath:  filepath.Join(baseDir, "keys", "consent.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "consent.key"),
		},
	}
}

// Settings converts the [consent] table into consent.Settings.
func (c ConsentConfig) Settings() consent.Settings {
	var cats []consent.Category
	for _, cc := range c.Categories {
		cats = append(cats, consent.Category{
			Slug:        cc.Slug,
			Name:        cc.Name,
			Description: cc.Description,
			Required:    cc.Required,
			Default:     cc.Default,
		})
	}
	return consent.Settings{
		Version:             c.Version,
		Categories:          cats,
		CookieName:          c.CookieName,
		AnalyticsCookieName: c.AnalyticsCookieName,
		DurationDays:        c.DurationDays,
		ConsentMode:         c.ConsentMode,
		LogEndpoint:         c.LogEndpoint,
		LogAction:           c.LogAction,
	}.WithDefaults()
}

// Validate checks the fields that cannot be defaulted.
func (c *Config) Validate() error {
	if c.SiteID == "" {
		return fmt.Errorf("site_id must be set")
	}
	seen := make(map[string]bool)
	for i, cat := range c.Consent.Categories {
		if cat.Slug == "" {
			return fmt.Errorf("consent.categories[%d]: slug must be set", i)
		}
		if seen[cat.Slug] {
			return fmt.Errorf("consent.categories[%d]: duplicate slug %q", i, cat.Slug)
		}
		seen[cat.Slug] = true
	}
	if c.Server.RateRPS < 0 || c.Server.RateBurst < 0 {
		return fmt.Errorf("server rate limits must not be negative")
	}
	if c.Server.RetentionDays < 0 {
		return fmt.Errorf("server.retention_days must not be negative")
	}
	for i, p := range c.Server.TrustedProxies {
		if _, err := netip.ParsePrefix(p); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(p); err != nil {
			return fmt.Errorf("server.trusted_proxies[%d]: %q is not an IP or CIDR range", i, p)
		}
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
