package tristore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

const schemaVersion = 1

// SQLiteStore saves and restores TripleIndex snapshots in a caller-provided
// SQLite database. It creates tristore_* tables and uses its own version
// tracking table so it doesn't conflict with any other schema in the same
// database.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteStore creates a snapshot store using the given database
// connection, creating tristore_* tables if needed and running any pending
// migrations. The caller is responsible for opening and configuring the
// database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("tristore: migration: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS tristore_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("creating version table: %w", err)
	}

	var version int
	err := s.db.QueryRow("SELECT version FROM tristore_version").Scan(&version)
	if err == sql.ErrNoRows {
		version = 0
	} else if err != nil {
		return fmt.Errorf("reading version: %w", err)
	}

	if version >= schemaVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	if version == 0 {
		_, err = s.db.Exec("INSERT INTO tristore_version (version) VALUES (?)", schemaVersion)
	} else {
		_, err = s.db.Exec("UPDATE tristore_version SET version = ?", schemaVersion)
	}
	return err
}

func (s *SQLiteStore) migrateV1() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tristore_facts (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			subject   TEXT NOT NULL,
			predicate TEXT NOT NULL,
			object    TEXT NOT NULL,
			UNIQUE (subject, predicate, object)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tristore_subject ON tristore_facts(subject, predicate)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("tristore schema: %w", err)
		}
	}
	return nil
}

// Save replaces the stored snapshot with the current contents of idx in a
// single transaction. Row order follows the index's insertion order.
func (s *SQLiteStore) Save(ctx context.Context, idx *TripleIndex) (int, error) {
	facts := idx.Facts()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("tristore: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tristore_facts`); err != nil {
		return 0, fmt.Errorf("tristore: clearing snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tristore_facts (subject, predicate, object) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("tristore: preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range facts {
		if _, err := stmt.ExecContext(ctx, f.Subject, f.Predicate, f.Object); err != nil {
			return 0, fmt.Errorf("tristore: inserting %s: %w", f, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("tristore: committing snapshot: %w", err)
	}
	return len(facts), nil
}

// Restore adds every stored fact to idx in saved order and returns the number
// of facts that were new to the index.
func (s *SQLiteStore) Restore(ctx context.Context, idx *TripleIndex) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT subject, predicate, object FROM tristore_facts ORDER BY id`)
	if err != nil {
		return 0, fmt.Errorf("tristore: querying snapshot: %w", err)
	}
	defer rows.Close()

	var facts []Fact
	for rows.Next() {
		var f Fact
		if err := rows.Scan(&f.Subject, &f.Predicate, &f.Object); err != nil {
			return 0, fmt.Errorf("tristore: scanning fact: %w", err)
		}
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("tristore: iterating facts: %w", err)
	}

	added := 0
	for _, f := range facts {
		ok, err := idx.Add(f.Subject, f.Predicate, f.Object)
		if err != nil {
			return added, fmt.Errorf("tristore: restoring %s: %w", f, err)
		}
		if ok {
			added++
		}
	}
	return added, nil
}

// Count returns the number of facts in the stored snapshot.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tristore_facts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("tristore: counting facts: %w", err)
	}
	return count, nil
}

// Close is a no-op; the caller owns the database connection.
func (s *SQLiteStore) Close() error {
	return nil
}
