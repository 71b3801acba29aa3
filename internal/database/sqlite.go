package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"autolearner-go/internal/database/migrations"
	"autolearner-go/internal/learner"
	"autolearner-go/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements the SubmissionLog interface using SQLite.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteDatabase creates a new SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	return &SQLiteDatabase{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// RecordSubmission inserts a submission row.
func (s *SQLiteDatabase) RecordSubmission(sub *model.Submission) error {
	if sub == nil || sub.ID == "" {
		return fmt.Errorf("submission requires an id")
	}

	_, err := s.db.ExecContext(context.Background(), `
		INSERT INTO submissions (id, owner, source_reference, tx_hash, record_id, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.Owner, sub.SourceReference, sub.TxHash, sub.RecordID, sub.SubmittedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording submission: %w", err)
	}
	return nil
}

// ListSubmissions returns up to limit submissions by owner, newest first.
// A non-positive limit returns every submission. Owner matching ignores case.
func (s *SQLiteDatabase) ListSubmissions(owner string, limit int) ([]*model.Submission, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.QueryContext(context.Background(), `
		SELECT id, owner, source_reference, tx_hash, record_id, submitted_at
		FROM submissions
		WHERE owner = ?
		ORDER BY submitted_at DESC, rowid DESC
		LIMIT ?`,
		strings.TrimSpace(owner), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	defer rows.Close()

	var result []*model.Submission
	for rows.Next() {
		sub := &model.Submission{}
		if err := rows.Scan(&sub.ID, &sub.Owner, &sub.SourceReference, &sub.TxHash, &sub.RecordID, &sub.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scanning submission: %w", err)
		}
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	return result, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// MigrateUp applies any pending schema migrations.
func (s *SQLiteDatabase) MigrateUp() error {
	return migrations.MigrateUp(s.db)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements learner.SubmissionLog interface
var _ learner.SubmissionLog = (*SQLiteDatabase)(nil)
