// Package auditlog keeps an append-only CSV trail of ledger mutations under
// <root>/logs/audit-log.csv.
package auditlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Actions recorded by the ledger.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionImport = "import"
)

// Record is one row in the audit log.
type Record struct {
	Timestamp  time.Time
	Actor      string
	Action     string
	Resource   string // "entry", "account", "owner"
	ResourceID string
	OwnerID    string
	Details    string
}

// Header is the CSV header for audit-log.csv.
var Header = []string{"timestamp", "actor", "action", "resource", "resource_id", "owner_id", "details"}

const (
	numFields     = 7
	logDir        = "logs"
	logFile       = "audit-log.csv"
	colTimestamp  = 0
	colActor      = 1
	colAction     = 2
	colResource   = 3
	colResourceID = 4
	colOwnerID    = 5
	colDetails    = 6
)

// Recorder receives audit records.
type Recorder interface {
	Record(ctx context.Context, records ...Record) error
}

// Discard drops every record.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(context.Context, ...Record) error { return nil }

// FileRecorder appends records to a repo root's audit log. It is safe for
// concurrent use within one process.
type FileRecorder struct {
	root string
	mu   sync.Mutex
	now  func() time.Time
}

// NewFileRecorder returns a recorder writing under root.
func NewFileRecorder(root string) *FileRecorder {
	return &FileRecorder{root: root, now: time.Now}
}

// Record stamps records without a timestamp and appends them.
func (r *FileRecorder) Record(ctx context.Context, records ...Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	for i := range records {
		if records[i].Timestamp.IsZero() {
			records[i].Timestamp = now
		}
	}
	return Append(r.root, records)
}

// MarshalRecord converts a Record to a CSV row.
func MarshalRecord(rec Record) []string {
	row := make([]string, numFields)
	row[colTimestamp] = rec.Timestamp.Format(time.RFC3339)
	row[colActor] = rec.Actor
	row[colAction] = rec.Action
	row[colResource] = rec.Resource
	row[colResourceID] = rec.ResourceID
	row[colOwnerID] = rec.OwnerID
	row[colDetails] = rec.Details
	return row
}

// UnmarshalRecord converts a CSV row to a Record.
func UnmarshalRecord(row []string) (Record, error) {
	if len(row) != numFields {
		return Record{}, fmt.Errorf("expected %d fields, got %d", numFields, len(row))
	}

	ts, err := time.Parse(time.RFC3339, row[colTimestamp])
	if err != nil {
		return Record{}, fmt.Errorf("parsing timestamp %q: %w", row[colTimestamp], err)
	}

	return Record{
		Timestamp:  ts,
		Actor:      row[colActor],
		Action:     row[colAction],
		Resource:   row[colResource],
		ResourceID: row[colResourceID],
		OwnerID:    row[colOwnerID],
		Details:    row[colDetails],
	}, nil
}

// Append writes records to <root>/logs/audit-log.csv, creating the file and
// header if needed.
func Append(root string, records []Record) error {
	dir := filepath.Join(root, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(dir, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(Header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, rec := range records {
		if err := cw.Write(MarshalRecord(rec)); err != nil {
			return fmt.Errorf("writing record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all records from <root>/logs/audit-log.csv, or nil if the
// file does not exist.
func Read(root string) ([]Record, error) {
	f, err := os.Open(filepath.Join(root, logDir, logFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	return readRecords(f)
}

func readRecords(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading audit log CSV: %w", err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	var records []Record
	for i, row := range rows[1:] {
		rec, err := UnmarshalRecord(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
