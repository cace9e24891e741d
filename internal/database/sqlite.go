package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"consent-go/internal/consent"
	"consent-go/internal/database/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDecisionLog implements consent.DecisionLog and consent.OperationLog
// using SQLite.
type SQLiteDecisionLog struct {
	db   *sql.DB
	path string
}

// NewSQLiteDecisionLog opens the decision log at path.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteDecisionLog(path string) (*SQLiteDecisionLog, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteDecisionLog{db: db, path: path}, nil
}

// NewSQLiteDecisionLogFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDecisionLogFromDB(db *sql.DB) *SQLiteDecisionLog {
	return &SQLiteDecisionLog{db: db}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// This is exported for use in tests that need a properly configured SQLite connection.
// path can be a file path or ":memory:" for an in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == ":memory:" {
		// Every connection to ":memory:" is its own database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Decision operations

func (s *SQLiteDecisionLog) InsertDecision(d *consent.Decision) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO decisions (id, type, config_version, created_at) VALUES (?, ?, ?, ?)`,
		d.ID, string(d.Type), d.ConfigVersion, d.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("inserting decision: %w", err)
	}

	for _, slug := range d.Categories {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO decision_categories (decision_id, slug) VALUES (?, ?)`,
			d.ID, slug)
		if err != nil {
			return fmt.Errorf("inserting category %s: %w", slug, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteDecisionLog) ListDecisions(limit int) ([]*consent.Decision, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.Query(`
		SELECT d.id, d.type, d.config_version, d.created_at, c.slug
		FROM (
			SELECT id, type, config_version, created_at
			FROM decisions
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		) d
		LEFT JOIN decision_categories c ON c.decision_id = d.id
		ORDER BY d.created_at DESC, d.id DESC, c.slug`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing decisions: %w", err)
	}
	defer rows.Close()

	var result []*consent.Decision
	var last *consent.Decision
	for rows.Next() {
		var (
			id, typ, version string
			createdAt        int64
			slug             sql.NullString
		)
		if err := rows.Scan(&id, &typ, &version, &createdAt, &slug); err != nil {
			return nil, fmt.Errorf("scanning decision: %w", err)
		}
		if last == nil || last.ID != id {
			last = &consent.Decision{
				ID:            id,
				Type:          consent.Type(typ),
				ConfigVersion: version,
				CreatedAt:     time.UnixMilli(createdAt).UTC(),
			}
			result = append(result, last)
		}
		if slug.Valid {
			last.Categories = append(last.Categories, slug.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing decisions: %w", err)
	}
	return result, nil
}

func (s *SQLiteDecisionLog) CountByType(since time.Time) (map[consent.Type]int64, error) {
	rows, err := s.db.Query(
		`SELECT type, COUNT(*) FROM decisions WHERE created_at >= ? GROUP BY type`,
		since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("counting decisions by type: %w", err)
	}
	defer rows.Close()

	counts := make(map[consent.Type]int64)
	for rows.Next() {
		var typ string
		var n int64
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("scanning type count: %w", err)
		}
		counts[consent.Type(typ)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("counting decisions by type: %w", err)
	}
	return counts, nil
}

func (s *SQLiteDecisionLog) CountCategories(since time.Time) (map[string]int64, error) {
	rows, err := s.db.Query(`
		SELECT c.slug, COUNT(*)
		FROM decision_categories c
		JOIN decisions d ON d.id = c.decision_id
		WHERE d.created_at >= ?
		GROUP BY c.slug`, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("counting categories: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var slug string
		var n int64
		if err := rows.Scan(&slug, &n); err != nil {
			return nil, fmt.Errorf("scanning category count: %w", err)
		}
		counts[slug] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("counting categories: %w", err)
	}
	return counts, nil
}

// DeleteDecisionsBefore removes old decisions and their categories in one
// transaction. Categories are deleted explicitly so the result does not
// depend on the connection's foreign key setting.
func (s *SQLiteDecisionLog) DeleteDecisionsBefore(t time.Time) (int64, error) {
	ctx := context.Background()
	cutoff := t.UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM decision_categories
		WHERE decision_id IN (SELECT id FROM decisions WHERE created_at < ?)`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting decision categories: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM decisions WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting decisions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted decisions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return n, nil
}

// Operation tracking

func (s *SQLiteDecisionLog) CreateOperation(operation string, parameters string) (*consent.Operation, error) {
	started := time.Now().UTC()
	res, err := s.db.Exec(
		`INSERT INTO operations (operation, parameters, started_at) VALUES (?, ?, ?)`,
		operation, parameters, started.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading operation id: %w", err)
	}
	return &consent.Operation{
		ID:         id,
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  time.UnixMilli(started.UnixMilli()).UTC(),
	}, nil
}

func (s *SQLiteDecisionLog) FinishOperation(id int64, status string) error {
	_, err := s.db.Exec(
		`UPDATE operations SET finished_at = ?, status = ? WHERE id = ?`,
		time.Now().UTC().UnixMilli(), status, id)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

func (s *SQLiteDecisionLog) ListOperations(limit int) ([]*consent.Operation, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT id, operation, parameters, status, started_at, finished_at
		FROM operations
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var result []*consent.Operation
	for rows.Next() {
		var (
			op       consent.Operation
			started  int64
			finished sql.NullInt64
		)
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &op.Status, &started, &finished); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		op.StartedAt = time.UnixMilli(started).UTC()
		if finished.Valid {
			t := time.UnixMilli(finished.Int64).UTC()
			op.FinishedAt = &t
		}
		result = append(result, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return result, nil
}

func (s *SQLiteDecisionLog) MaxOperationID() (int64, error) {
	var id int64
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(id), 0) FROM operations`).Scan(&id); err != nil {
		return 0, fmt.Errorf("getting max operation ID: %w", err)
	}
	return id, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDecisionLog) Path() string {
	return s.path
}

// Migrate applies any pending schema migrations.
func (s *SQLiteDecisionLog) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDecisionLog) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteDecisionLog) BackupTo(destPath string) error {
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDecisionLog) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var (
	_ consent.DecisionLog  = (*SQLiteDecisionLog)(nil)
	_ consent.OperationLog = (*SQLiteDecisionLog)(nil)
)
