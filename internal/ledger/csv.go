package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/clinicbooks/clinicbooks/internal/model"
)

// Header is the column layout of entries.csv and of ledger exports.
var Header = []string{
	"entry_id", "owner_id", "clinic_id", "kind", "date", "amount", "description",
	"regime", "payment_method", "notes", "account_id", "cost_behavior",
	"patient_name", "patient_tax_id", "payer_name", "payer_tax_id", "payer_person_type",
	"document_issued", "created_at", "updated_at",
}

const (
	numFields          = 20
	colID              = 0
	colOwner           = 1
	colClinic          = 2
	colKind            = 3
	colDate            = 4
	colAmount          = 5
	colDesc            = 6
	colRegime          = 7
	colPayment         = 8
	colNotes           = 9
	colAccount         = 10
	colCost            = 11
	colPatientName     = 12
	colPatientTaxID    = 13
	colPayerName       = 14
	colPayerTaxID      = 15
	colPayerPersonType = 16
	colDocIssued       = 17
	colCreatedAt       = 18
	colUpdatedAt       = 19
)

// ReadEntries reads a ledger CSV with a header row.
func ReadEntries(r io.Reader) ([]model.Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading ledger CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var entries []model.Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// WriteEntries writes entries as CSV, header included.
func WriteEntries(w io.Writer, entries []model.Entry) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e model.Entry) []string {
	row := make([]string, numFields)
	row[colID] = e.ID
	row[colOwner] = e.OwnerID
	row[colClinic] = e.ClinicID
	row[colKind] = string(e.Kind)
	if !e.Date.IsZero() {
		row[colDate] = e.Date.Format(model.DateFormat)
	}
	row[colAmount] = model.FormatMoney(e.Amount)
	row[colDesc] = e.Description
	row[colRegime] = string(e.Regime)
	row[colPayment] = e.PaymentMethod
	row[colNotes] = e.Notes
	row[colAccount] = e.AccountID
	row[colCost] = string(e.CostBehavior)
	row[colPatientName] = e.Patient.Name
	row[colPatientTaxID] = e.Patient.TaxID
	if e.Payer != nil {
		row[colPayerName] = e.Payer.Name
		row[colPayerTaxID] = e.Payer.TaxID
		row[colPayerPersonType] = string(e.Payer.PersonType)
	}
	row[colDocIssued] = strconv.FormatBool(e.DocumentIssued)
	row[colCreatedAt] = formatTimestamp(e.CreatedAt)
	row[colUpdatedAt] = formatTimestamp(e.UpdatedAt)
	return row
}

// UnmarshalEntry converts a CSV row to an Entry. It checks formats only;
// business rules are applied when the entry is created.
func UnmarshalEntry(rec []string) (model.Entry, error) {
	if len(rec) != numFields {
		return model.Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(rec))
	}

	e := model.Entry{
		ID:            rec[colID],
		OwnerID:       rec[colOwner],
		ClinicID:      rec[colClinic],
		Kind:          model.Kind(rec[colKind]),
		Description:   rec[colDesc],
		PaymentMethod: rec[colPayment],
		Notes:         rec[colNotes],
		AccountID:     rec[colAccount],
		CostBehavior:  model.CostBehavior(rec[colCost]),
		Patient:       model.Patient{Name: rec[colPatientName], TaxID: rec[colPatientTaxID]},
	}

	var err error
	if rec[colDate] != "" {
		if e.Date, err = model.ParseDate(rec[colDate]); err != nil {
			return model.Entry{}, err
		}
	}
	if e.Amount, err = model.ParseMoney(rec[colAmount]); err != nil {
		return model.Entry{}, err
	}
	if e.Regime, err = model.ParseRegime(rec[colRegime]); err != nil {
		return model.Entry{}, err
	}
	if rec[colPayerName] != "" {
		e.Payer = &model.Payer{
			Name:       rec[colPayerName],
			TaxID:      rec[colPayerTaxID],
			PersonType: model.PersonType(rec[colPayerPersonType]),
		}
	}
	if rec[colDocIssued] != "" {
		if e.DocumentIssued, err = strconv.ParseBool(rec[colDocIssued]); err != nil {
			return model.Entry{}, fmt.Errorf("parsing document_issued %q: %w", rec[colDocIssued], err)
		}
	}
	if e.CreatedAt, err = parseTimestamp(rec[colCreatedAt]); err != nil {
		return model.Entry{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if e.UpdatedAt, err = parseTimestamp(rec[colUpdatedAt]); err != nil {
		return model.Entry{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return e, nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
