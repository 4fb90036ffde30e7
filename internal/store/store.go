package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/tcslink/internal/progress"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - received_facts and confirmed_checks
const currentSchemaVersion = 1

// Store is a session.FactStore persisted in SQLite.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and the schema automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GrantFact records one delivery of f.
func (s *Store) GrantFact(ctx context.Context, f progress.Fact) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO received_facts (fact) VALUES (?)`, int64(f)); err != nil {
		return fmt.Errorf("grant fact %d: %w", f, err)
	}
	return nil
}

// ReceivedFacts returns every delivery in grant order.
func (s *Store) ReceivedFacts(ctx context.Context) ([]progress.Fact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT fact FROM received_facts ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query received facts: %w", err)
	}
	defer rows.Close()

	var facts []progress.Fact
	for rows.Next() {
		var f int64
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("scan received fact: %w", err)
		}
		facts = append(facts, progress.Fact(f))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate received facts: %w", err)
	}
	return facts, nil
}

// ConfirmedChecks returns the accepted checks.
func (s *Store) ConfirmedChecks(ctx context.Context) (progress.CheckSet, error) {
	ids, err := s.confirmedInOrder(ctx)
	if err != nil {
		return nil, err
	}
	return progress.NewCheckSet(ids...), nil
}

// ConfirmedInOrder returns the accepted checks in the order they were
// first reported.
func (s *Store) ConfirmedInOrder(ctx context.Context) ([]progress.CheckID, error) {
	return s.confirmedInOrder(ctx)
}

func (s *Store) confirmedInOrder(ctx context.Context) ([]progress.CheckID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT check_id FROM confirmed_checks ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query confirmed checks: %w", err)
	}
	defer rows.Close()

	var ids []progress.CheckID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan confirmed check: %w", err)
		}
		ids = append(ids, progress.CheckID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate confirmed checks: %w", err)
	}
	return ids, nil
}

// ReportChecks marks ids as accepted.
// Uses ON CONFLICT DO NOTHING - re-reporting a confirmed check is a no-op.
// The batch is applied atomically.
func (s *Store) ReportChecks(ctx context.Context, ids []progress.CheckID) (err error) {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("report checks: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO confirmed_checks (check_id) VALUES (?) ON CONFLICT(check_id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("report checks: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err = stmt.ExecContext(ctx, int64(id)); err != nil {
			return fmt.Errorf("report check %d: %w", id, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("report checks: %w", err)
	}
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and stamps user_version.
// A database written by a newer build is refused rather than downgraded.
func applySchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d",
			version, currentSchemaVersion)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
