package sqlstore

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/clinicbooks/clinicbooks/internal/model"
)

type entryRow struct {
	ID              string          `gorm:"primaryKey;size:36"`
	OwnerID         string          `gorm:"size:36;not null;index:idx_entries_owner_date,priority:1"`
	ClinicID        string          `gorm:"size:64;not null;index"`
	Kind            string          `gorm:"size:16;not null"`
	Date            time.Time       `gorm:"type:date;not null;index:idx_entries_owner_date,priority:2"`
	Amount          decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Description     string
	Regime          string `gorm:"size:2"`
	PaymentMethod   string `gorm:"size:32"`
	Notes           string
	AccountID       string `gorm:"size:36;index"`
	CostBehavior    string `gorm:"size:16"`
	PatientName     string `gorm:"size:255"`
	PatientTaxID    string `gorm:"size:32"`
	PayerName       string `gorm:"size:255"`
	PayerTaxID      string `gorm:"size:32"`
	PayerPersonType string `gorm:"size:8"`
	DocumentIssued  bool   `gorm:"not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (entryRow) TableName() string { return "entries" }

func toEntryRow(e model.Entry) entryRow {
	r := entryRow{
		ID:             e.ID,
		OwnerID:        e.OwnerID,
		ClinicID:       e.ClinicID,
		Kind:           string(e.Kind),
		Date:           e.Date,
		Amount:         e.Amount,
		Description:    e.Description,
		Regime:         string(e.Regime),
		PaymentMethod:  e.PaymentMethod,
		Notes:          e.Notes,
		AccountID:      e.AccountID,
		CostBehavior:   string(e.CostBehavior),
		PatientName:    e.Patient.Name,
		PatientTaxID:   e.Patient.TaxID,
		DocumentIssued: e.DocumentIssued,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
	if e.Payer != nil {
		r.PayerName = e.Payer.Name
		r.PayerTaxID = e.Payer.TaxID
		r.PayerPersonType = string(e.Payer.PersonType)
	}
	return r
}

func (r entryRow) toModel() model.Entry {
	e := model.Entry{
		ID:             r.ID,
		OwnerID:        r.OwnerID,
		ClinicID:       r.ClinicID,
		Kind:           model.Kind(r.Kind),
		Date:           model.TruncateDate(r.Date),
		Amount:         r.Amount,
		Description:    r.Description,
		Regime:         model.Regime(r.Regime),
		PaymentMethod:  r.PaymentMethod,
		Notes:          r.Notes,
		AccountID:      r.AccountID,
		CostBehavior:   model.CostBehavior(r.CostBehavior),
		Patient:        model.Patient{Name: r.PatientName, TaxID: r.PatientTaxID},
		DocumentIssued: r.DocumentIssued,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.PayerName != "" {
		e.Payer = &model.Payer{Name: r.PayerName, TaxID: r.PayerTaxID, PersonType: model.PersonType(r.PayerPersonType)}
	}
	return e
}

type accountRow struct {
	ID         string `gorm:"primaryKey;size:36"`
	ClinicID   string `gorm:"size:64;not null;index"`
	Name       string `gorm:"size:255;not null"`
	Deductible bool   `gorm:"not null"`
	Active     bool   `gorm:"not null"`
	CreatedBy  string `gorm:"size:64"`
	CreatedAt  time.Time
}

func (accountRow) TableName() string { return "chart_accounts" }

func toAccountRow(a model.ChartAccount) accountRow {
	return accountRow{
		ID:         a.ID,
		ClinicID:   a.ClinicID,
		Name:       a.Name,
		Deductible: a.Deductible,
		Active:     a.Active,
		CreatedBy:  a.CreatedBy,
		CreatedAt:  a.CreatedAt,
	}
}

func (r accountRow) toModel() model.ChartAccount {
	return model.ChartAccount{
		ID:         r.ID,
		ClinicID:   r.ClinicID,
		Name:       r.Name,
		Deductible: r.Deductible,
		Active:     r.Active,
		CreatedBy:  r.CreatedBy,
		CreatedAt:  r.CreatedAt,
	}
}

type ownerRow struct {
	ID            string `gorm:"primaryKey;size:36"`
	Name          string `gorm:"size:255;not null"`
	Email         string `gorm:"size:255;index"`
	ClinicID      string `gorm:"size:64;index"`
	ClinicName    string `gorm:"size:255"`
	PersonType    string `gorm:"size:8;not null"`
	Active        bool   `gorm:"not null"`
	CreatedAt     time.Time
	ActivityStart *time.Time `gorm:"type:date"`
}

func (ownerRow) TableName() string { return "owners" }

func toOwnerRow(o model.Owner) ownerRow {
	r := ownerRow{
		ID:         o.ID,
		Name:       o.Name,
		Email:      o.Email,
		ClinicID:   o.ClinicID,
		ClinicName: o.ClinicName,
		PersonType: string(o.PersonType),
		Active:     o.Active,
		CreatedAt:  o.CreatedAt,
	}
	if !o.ActivityStart.IsZero() {
		since := o.ActivityStart
		r.ActivityStart = &since
	}
	return r
}

func (r ownerRow) toModel() model.Owner {
	o := model.Owner{
		ID:         r.ID,
		Name:       r.Name,
		Email:      r.Email,
		ClinicID:   r.ClinicID,
		ClinicName: r.ClinicName,
		PersonType: model.PersonType(r.PersonType),
		Active:     r.Active,
		CreatedAt:  r.CreatedAt,
	}
	if r.ActivityStart != nil {
		o.ActivityStart = model.TruncateDate(*r.ActivityStart)
	}
	return o
}
