package filestore

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/clinicbooks/clinicbooks/internal/model"
)

// OwnerHeader is the column layout of owners.csv.
var OwnerHeader = []string{
	"owner_id", "name", "email", "clinic_id", "clinic_name",
	"person_type", "active", "created_at", "activity_start",
}

const (
	ownerFields      = 9
	colOwnerID       = 0
	colOwnerName     = 1
	colOwnerEmail    = 2
	colOwnerClinic   = 3
	colOwnerClinicNm = 4
	colOwnerType     = 5
	colOwnerActive   = 6
	colOwnerCreated  = 7
	colOwnerSince    = 8
)

// ReadOwners reads owners.csv.
func ReadOwners(r io.Reader) ([]model.Owner, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = ownerFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading owners CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var owners []model.Owner
	for i, rec := range records[1:] {
		o, err := unmarshalOwner(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		owners = append(owners, o)
	}
	return owners, nil
}

// WriteOwners writes owners.csv.
func WriteOwners(w io.Writer, owners []model.Owner) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(OwnerHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, o := range owners {
		if err := cw.Write(marshalOwner(o)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func marshalOwner(o model.Owner) []string {
	row := make([]string, ownerFields)
	row[colOwnerID] = o.ID
	row[colOwnerName] = o.Name
	row[colOwnerEmail] = o.Email
	row[colOwnerClinic] = o.ClinicID
	row[colOwnerClinicNm] = o.ClinicName
	row[colOwnerType] = string(o.PersonType)
	row[colOwnerActive] = strconv.FormatBool(o.Active)
	row[colOwnerCreated] = formatTime(o.CreatedAt)
	if !o.ActivityStart.IsZero() {
		row[colOwnerSince] = o.ActivityStart.Format(model.DateFormat)
	}
	return row
}

func unmarshalOwner(rec []string) (model.Owner, error) {
	pt, err := model.ParsePersonType(rec[colOwnerType])
	if err != nil {
		return model.Owner{}, err
	}
	active, err := strconv.ParseBool(rec[colOwnerActive])
	if err != nil {
		return model.Owner{}, fmt.Errorf("parsing active %q: %w", rec[colOwnerActive], err)
	}
	o := model.Owner{
		ID:         rec[colOwnerID],
		Name:       rec[colOwnerName],
		Email:      rec[colOwnerEmail],
		ClinicID:   rec[colOwnerClinic],
		ClinicName: rec[colOwnerClinicNm],
		PersonType: pt,
		Active:     active,
	}
	if o.CreatedAt, err = parseTime(rec[colOwnerCreated]); err != nil {
		return model.Owner{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if rec[colOwnerSince] != "" {
		if o.ActivityStart, err = model.ParseDate(rec[colOwnerSince]); err != nil {
			return model.Owner{}, err
		}
	}
	return o, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
