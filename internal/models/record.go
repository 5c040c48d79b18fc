package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is one fetched payload: the verbatim bytes destined for the archive
// and the decoded fields destined for the normalized table.
type Record struct {
	Date    string
	Code    string
	Payload []byte
	Fields  map[string]any
}

// ParseRecord decodes a raw API record for the given dataset, extracting the
// composite natural key from the dataset's key columns.
func ParseRecord(d *Dataset, payload []byte) (*Record, error) {
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode %s record: %w", d.Name, err)
	}

	date, ok := fields[d.DateColumn].(string)
	if !ok || date == "" {
		return nil, fmt.Errorf("%s record missing %s", d.Name, d.DateColumn)
	}
	code, ok := fields[d.CodeColumn].(string)
	if !ok || code == "" {
		return nil, fmt.Errorf("%s record missing %s", d.Name, d.CodeColumn)
	}

	return &Record{
		Date:    date,
		Code:    code,
		Payload: payload,
		Fields:  fields,
	}, nil
}

// RetryEntry is one row of a dataset's retry ledger.
type RetryEntry struct {
	Date       time.Time
	LastError  string
	RetryCount int
}

// UnitOutcome reports the result of ingesting one date.
type UnitOutcome struct {
	Date    time.Time
	Records int
	Err     error
}
