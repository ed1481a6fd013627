package model

import "time"

// ChartAccount is an expense category in a clinic's chart of accounts.
type ChartAccount struct {
	ID         string
	ClinicID   string
	Name       string // not unique within a clinic
	Deductible bool
	Active     bool
	CreatedBy  string
	CreatedAt  time.Time
}

// Owner is a practitioner (user) whose entries are aggregated together.
type Owner struct {
	ID         string
	Name       string
	Email      string
	ClinicID   string
	ClinicName string
	PersonType PersonType
	Active     bool
	CreatedAt  time.Time
	// ActivityStart is when the owner started invoicing. Zero falls back
	// to CreatedAt.
	ActivityStart time.Time
}

// Since returns the date history for this owner begins.
func (o Owner) Since() time.Time {
	if !o.ActivityStart.IsZero() {
		return o.ActivityStart
	}
	return o.CreatedAt
}
