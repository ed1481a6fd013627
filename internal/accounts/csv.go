package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/clinicbooks/clinicbooks/internal/model"
)

// Header is the column layout of chart-of-accounts.csv.
var Header = []string{"account_id", "clinic_id", "name", "deductible", "active", "created_by", "created_at"}

const (
	numFields    = 7
	colID        = 0
	colClinic    = 1
	colName      = 2
	colDeduct    = 3
	colActive    = 4
	colCreatedBy = 5
	colCreatedAt = 6
)

// ReadAccounts reads chart-of-accounts.csv.
func ReadAccounts(r io.Reader) ([]model.ChartAccount, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var accounts []model.ChartAccount
	for i, rec := range records[1:] {
		acct, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// WriteAccounts writes chart-of-accounts.csv.
func WriteAccounts(w io.Writer, accounts []model.ChartAccount) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range accounts {
		if err := cw.Write(MarshalAccount(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalAccount converts a ChartAccount to a CSV row.
func MarshalAccount(acct model.ChartAccount) []string {
	row := make([]string, numFields)
	row[colID] = acct.ID
	row[colClinic] = acct.ClinicID
	row[colName] = acct.Name
	row[colDeduct] = strconv.FormatBool(acct.Deductible)
	row[colActive] = strconv.FormatBool(acct.Active)
	row[colCreatedBy] = acct.CreatedBy
	if !acct.CreatedAt.IsZero() {
		row[colCreatedAt] = acct.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	return row
}

// UnmarshalAccount converts a CSV row to a ChartAccount.
func UnmarshalAccount(record []string) (model.ChartAccount, error) {
	if len(record) != numFields {
		return model.ChartAccount{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	deductible, err := strconv.ParseBool(record[colDeduct])
	if err != nil {
		return model.ChartAccount{}, fmt.Errorf("parsing deductible %q: %w", record[colDeduct], err)
	}
	active, err := strconv.ParseBool(record[colActive])
	if err != nil {
		return model.ChartAccount{}, fmt.Errorf("parsing active %q: %w", record[colActive], err)
	}

	var createdAt time.Time
	if record[colCreatedAt] != "" {
		createdAt, err = time.Parse(time.RFC3339Nano, record[colCreatedAt])
		if err != nil {
			return model.ChartAccount{}, fmt.Errorf("parsing created_at %q: %w", record[colCreatedAt], err)
		}
	}

	return model.ChartAccount{
		ID:         record[colID],
		ClinicID:   record[colClinic],
		Name:       record[colName],
		Deductible: deductible,
		Active:     active,
		CreatedBy:  record[colCreatedBy],
		CreatedAt:  createdAt,
	}, nil
}
