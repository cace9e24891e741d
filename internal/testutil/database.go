package testutil

import (
	"testing"

	"consent-go/internal/database"
	"consent-go/internal/database/migrations"
)

// NewTestDecisionLog creates a new in-memory SQLite decision log with all
// migrations applied. The database is automatically closed when the test completes.
func NewTestDecisionLog(t *testing.T) *database.SQLiteDecisionLog {
	t.Helper()

	sqlDB, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if err := migrations.MigrateUp(sqlDB); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to apply migrations: %v", err)
	}

	db := database.NewSQLiteDecisionLogFromDB(sqlDB)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
