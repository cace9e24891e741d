package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"consent-go/internal/config"
	"consent-go/internal/consent"
	"consent-go/internal/database"
	"consent-go/internal/encryption"
	"consent-go/internal/vault"
	"consent-go/internal/web"
)

// archiveName is the snapshot name of the encrypted decision log in the vault.
const archiveName = "decisions.db.age"

// ErrNoVault is returned by archive operations when no vault is configured.
var ErrNoVault = errors.New("no vault configured")

// ConsentApp is the application layer between the CLI and the consent core.
// It constructs all dependencies from config, exposes the high-level
// operations behind each command, and manages the DB lifecycle on Close.
type ConsentApp struct {
	cfg       *config.Config
	settings  consent.Settings
	db        *database.SQLiteDecisionLog
	vault     consent.Vault // nil when no vault is configured
	encryptor consent.Encryptor
	service   *consent.LogService
	logger    consent.Logger
	clock     consent.Clock
	operation string
	logFile   *os.File
}

// NewConsentApp creates a fully wired ConsentApp from the given config.
// operation identifies the CLI command being run (e.g. "Serve", "Archive")
// and is written to every log line as the run ID prefix.
// The caller must call Close when done.
func NewConsentApp(cfg *config.Config, operation string) (*ConsentApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var v consent.Vault
	if len(cfg.Vaults) > 0 {
		var err error
		v, err = vault.NewVaultFromConfig(cfg.Vaults[0])
		if err != nil {
			return nil, fmt.Errorf("creating vault: %w", err)
		}
	}

	db, err := database.NewDecisionLogFromConfig(cfg.Database, cfg.SiteID)
	if err != nil {
		return nil, fmt.Errorf("creating decision log: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating decision log: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	runID := operation + "-" + time.Now().UTC().Format("20060102T150405Z")
	sl, logFile, err := newLogger(cfg.LogDir, runID, slog.LevelInfo)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: sl}

	clock := consent.RealClock{}
	return &ConsentApp{
		cfg:       cfg,
		settings:  cfg.Consent.Settings(),
		db:        db,
		vault:     v,
		encryptor: enc,
		service:   consent.NewLogService(db, logger, clock, consent.UUIDGenerator{}),
		logger:    logger,
		clock:     clock,
		operation: operation,
		logFile:   logFile,
	}, nil
}

// Settings returns the completed consent settings served to pages.
func (a *ConsentApp) Settings() consent.Settings { return a.settings }

// Service returns the decision-log service.
func (a *ConsentApp) Service() *consent.LogService { return a.service }

// Logger returns the run's logger.
func (a *ConsentApp) Logger() consent.Logger { return a.logger }

// History returns the most recent decisions, newest first.
func (a *ConsentApp) History(limit int) ([]*consent.Decision, error) {
	return a.service.History(limit)
}

// Stats summarizes decisions over the last days days.
func (a *ConsentApp) Stats(days int) (*consent.Stats, error) {
	return a.service.Stats(days)
}

// Operations returns the most recent maintenance runs.
func (a *ConsentApp) Operations(limit int) ([]*consent.Operation, error) {
	return a.db.ListOperations(limit)
}

// Purge deletes decisions older than the configured retention. A retention
// of zero keeps everything and records nothing.
func (a *ConsentApp) Purge() (int64, error) {
	days := a.cfg.Server.RetentionDays
	if days == 0 {
		a.logger.Info("retention disabled, nothing purged")
		return 0, nil
	}

	var n int64
	err := tracked(a.db, a.logger, "Purge", fmt.Sprintf("retention_days=%d", days), func() error {
		var err error
		n, err = a.service.Purge(days)
		return err
	})
	return n, err
}

// CheckVault verifies the configured vault is reachable.
func (a *ConsentApp) CheckVault() error {
	if a.vault == nil {
		return ErrNoVault
	}
	if err := a.vault.ValidateSetup(); err != nil {
		return fmt.Errorf("validating vault: %w", err)
	}
	return nil
}

// SetupKeys generates the archive key pair protected by passphrase.
func (a *ConsentApp) SetupKeys(passphrase string) error {
	if err := a.encryptor.Setup(passphrase); err != nil {
		return fmt.Errorf("setting up keys: %w", err)
	}
	a.logger.Info("archive keys created")
	return nil
}

// Archive snapshots the decision log, encrypts it with the archive public
// key and uploads it to the vault. It returns the version stored with the
// snapshot, which always increases.
func (a *ConsentApp) Archive() (int64, error) {
	if a.vault == nil {
		return 0, ErrNoVault
	}
	if !a.encryptor.IsConfigured() {
		return 0, fmt.Errorf("archive keys not found: run `consent keys init` first")
	}

	var version int64
	err := tracked(a.db, a.logger, "Archive", archiveName, func() error {
		var err error
		version, err = a.archive()
		return err
	})
	return version, err
}

func (a *ConsentApp) archive() (int64, error) {
	tmpDir, err := os.MkdirTemp("", "consent-archive-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	snapshot := filepath.Join(tmpDir, "decisions.db")
	if err := a.db.BackupTo(snapshot); err != nil {
		return 0, fmt.Errorf("snapshotting decision log: %w", err)
	}

	encrypted := snapshot + ".age"
	if err := encryptFile(a.encryptor, snapshot, encrypted); err != nil {
		return 0, err
	}

	remote, err := a.vault.GetSnapshotVersion(a.cfg.SiteID, archiveName)
	if err != nil {
		return 0, fmt.Errorf("checking archive version: %w", err)
	}
	version := a.clock.Now().Unix()
	if version <= remote {
		version = remote + 1
	}

	f, err := os.Open(encrypted)
	if err != nil {
		return 0, fmt.Errorf("opening encrypted archive: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat encrypted archive: %w", err)
	}

	if err := a.vault.PutSnapshot(a.cfg.SiteID, archiveName, f, info.Size(), version); err != nil {
		return 0, fmt.Errorf("uploading archive to vault: %w", err)
	}

	a.logger.Info("archive uploaded", "site", a.cfg.SiteID, "version", version, "size", info.Size())
	return version, nil
}

func encryptFile(enc consent.Encryptor, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating encrypted archive: %w", err)
	}
	if err := enc.Encrypt(in, out); err != nil {
		out.Close()
		return fmt.Errorf("encrypting snapshot: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing encrypted archive: %w", err)
	}
	return nil
}

// FetchArchive downloads the latest archive, decrypts it with the private
// key unlocked by passphrase and writes the SQLite snapshot to w. It returns
// the archive's version.
func (a *ConsentApp) FetchArchive(passphrase string, w io.Writer) (int64, error) {
	if a.vault == nil {
		return 0, ErrNoVault
	}

	version, err := a.vault.GetSnapshotVersion(a.cfg.SiteID, archiveName)
	if err != nil {
		return 0, fmt.Errorf("checking archive version: %w", err)
	}
	if version == 0 {
		return 0, fmt.Errorf("no archive stored for site %q", a.cfg.SiteID)
	}

	dc, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return 0, err
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(a.vault.GetSnapshot(a.cfg.SiteID, archiveName, pw))
	}()

	if err := dc.Decrypt(pr, w); err != nil {
		pr.CloseWithError(err)
		return 0, fmt.Errorf("decrypting archive: %w", err)
	}
	return version, nil
}

// Maintain runs one maintenance pass: purge, then archive when a vault and
// keys are available.
func (a *ConsentApp) Maintain(_ context.Context) error {
	if _, err := a.Purge(); err != nil {
		return err
	}
	if a.vault == nil || !a.encryptor.IsConfigured() {
		a.logger.Debug("archive skipped", "vault", a.vault != nil, "keys", a.encryptor.IsConfigured())
		return nil
	}
	_, err := a.Archive()
	return err
}

// Serve runs the HTTP server until ctx is cancelled. When an archive
// schedule is configured, maintenance runs on it in the background.
func (a *ConsentApp) Serve(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)

	srv := web.NewServer(web.Options{
		Settings:       a.settings,
		Service:        a.service,
		Logger:         a.logger,
		Clock:          a.clock,
		RateRPS:        a.cfg.Server.RateRPS,
		RateBurst:      a.cfg.Server.RateBurst,
		TrustedProxies: a.cfg.Server.TrustedProxies,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if expr := a.cfg.Archive.Schedule; expr != "" {
		sched, err := NewScheduler(expr, a.Maintain, a.logger, a.clock)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			sched.Run(ctx)
		}()
	}

	err := srv.ListenAndServe(ctx, a.cfg.Server.Listen)
	cancel()
	wg.Wait()
	return err
}

// Close closes the decision log and the log file.
func (a *ConsentApp) Close() error {
	var firstErr error
	if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing decision log: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
