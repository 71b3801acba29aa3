package testutil

import (
	"testing"

	"autolearner-go/internal/database"
	"autolearner-go/internal/learner"
)

// NewTestDatabase creates a new in-memory SQLite submission log with migrations applied.
// The database is automatically closed when the test completes.
func NewTestDatabase(t *testing.T) learner.SubmissionLog {
	t.Helper()

	db, err := database.NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if err := db.MigrateUp(); err != nil {
		db.Close()
		t.Fatalf("failed to apply migrations: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
