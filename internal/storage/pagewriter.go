package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"strings"

	"github.com/tkasuya/jqfeed/internal/interfaces"
	"github.com/tkasuya/jqfeed/internal/models"
)

// pageWriter dual-writes one page of records for a dataset. Archive rows keep
// the verbatim payload gzip-compressed under the original field names; the
// normalized row carries only manifest fields, with sanitized column names.
// Both writes use insert-if-absent, so re-ingesting a date is a no-op.
type pageWriter struct {
	store *Store
	d     *models.Dataset
}

// PageWriter returns the dual-write sink for a dataset.
func (s *Store) PageWriter(d *models.Dataset) interfaces.RecordSink {
	return &pageWriter{store: s, d: d}
}

// WritePage persists every record of one page within a single transaction.
// The commit boundary is the page, bounding crash loss to one in-flight page.
func (w *pageWriter) WritePage(ctx context.Context, records []*models.Record) error {
	tx, err := w.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rawStmt := fmt.Sprintf("INSERT OR IGNORE INTO %s (%s, %s, payload) VALUES (?, ?, ?)",
		w.d.RawTable, w.d.DateColumn, w.d.CodeColumn)

	for _, record := range records {
		compressed, err := gzipBytes(record.Payload)
		if err != nil {
			return fmt.Errorf("failed to compress %s payload: %w", w.d.Name, err)
		}

		if _, err := tx.ExecContext(ctx, rawStmt, record.Date, record.Code, compressed); err != nil {
			return fmt.Errorf("failed to archive %s (%s, %s): %w", w.d.Name, record.Date, record.Code, err)
		}

		normSQL, args := w.normInsert(record)
		if _, err := tx.ExecContext(ctx, normSQL, args...); err != nil {
			return fmt.Errorf("failed to normalize %s (%s, %s): %w", w.d.Name, record.Date, record.Code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s page: %w", w.d.Name, err)
	}

	return nil
}

// normInsert builds the normalized insert for one record. Payload keys are
// routed through the dataset manifest: sanitized via the static rename table,
// and dropped (archive-only) when not a known column.
func (w *pageWriter) normInsert(record *models.Record) (string, []any) {
	cols := make([]string, 0, len(record.Fields))
	args := make([]any, 0, len(record.Fields))

	for _, col := range w.d.Columns {
		field, ok := sourceField(w.d, col, record.Fields)
		if !ok {
			continue
		}
		cols = append(cols, col)
		args = append(args, record.Fields[field])
	}

	stmt := fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)",
		w.d.NormTable, strings.Join(cols, ","), placeholders(len(cols)))
	return stmt, args
}

// sourceField finds the payload key feeding a normalized column, if present.
func sourceField(d *models.Dataset, col string, fields map[string]any) (string, bool) {
	if _, ok := fields[col]; ok {
		return col, true
	}
	for field, renamed := range d.Renames {
		if renamed != col {
			continue
		}
		if _, ok := fields[field]; ok {
			return field, true
		}
	}
	return "", false
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
