// Package storage implements the SQLite-backed store for jqfeed
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/tkasuya/jqfeed/internal/common"
	"github.com/tkasuya/jqfeed/internal/interfaces"
	"github.com/tkasuya/jqfeed/internal/models"
)

// datasets lists every dataset whose tables are created on open.
var datasets = []*models.Dataset{models.DailyQuotes, models.Financials}

// Store persists raw archives, normalized tables, and retry ledgers in a
// single SQLite database. The connection is owned by one process for the
// run's duration; WAL mode allows concurrent readers.
type Store struct {
	db     *sql.DB
	logger *common.Logger
}

// Open opens (or creates) the database at path, applies pragmas, and ensures
// the schema for all datasets exists.
func Open(path string, logger *common.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps page transactions strictly sequential.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=10000;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA auto_vacuum=FULL;",
		"VACUUM;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", strings.TrimSuffix(pragma, ";"), err)
		}
	}

	s := &Store{db: db, logger: logger}

	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for read-only consumers.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ensureSchema creates the archive, normalized, and ledger tables for every
// dataset.
func (s *Store) ensureSchema() error {
	for _, d := range datasets {
		for _, ddl := range []string{rawTableSQL(d), normTableSQL(d), ledgerTableSQL(d)} {
			if _, err := s.db.Exec(ddl); err != nil {
				return fmt.Errorf("failed to create %s schema: %w", d.Name, err)
			}
		}
	}
	return nil
}

// rawTableSQL returns the DDL for a dataset's append-only archive table.
func rawTableSQL(d *models.Dataset) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    %s TEXT,
    %s TEXT,
    payload BLOB,
    PRIMARY KEY (%s, %s)
)`, d.RawTable, d.DateColumn, d.CodeColumn, d.DateColumn, d.CodeColumn)
}

// normTableSQL returns the DDL for a dataset's normalized table, typing each
// manifest column REAL unless the dataset marks it TEXT (an empty TextColumns
// set means every column is TEXT).
func normTableSQL(d *models.Dataset) string {
	cols := make([]string, 0, len(d.Columns))
	for _, col := range d.Columns {
		typ := "TEXT"
		if len(d.TextColumns) > 0 && !d.TextColumns[col] {
			typ = "REAL"
		}
		cols = append(cols, fmt.Sprintf("    %s %s", col, typ))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s,\n    PRIMARY KEY (%s, %s)\n)",
		d.NormTable, strings.Join(cols, ",\n"), d.DateColumn, d.CodeColumn)
}

// ledgerTableSQL returns the DDL for a dataset's retry ledger.
func ledgerTableSQL(d *models.Dataset) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    %s TEXT PRIMARY KEY,
    last_error TEXT,
    retry_count INTEGER DEFAULT 0
)`, d.LedgerTable, d.DateColumn)
}

// Ensure Store implements the storage contracts
var (
	_ interfaces.Store       = (*Store)(nil)
	_ interfaces.ScreenStore = (*Store)(nil)
)
