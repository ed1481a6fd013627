package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clinicbooks/clinicbooks/internal/model"
)

const brDate = "02/01/2006"

// NubankParser reads Nubank checking exports: Data,Valor,Identificador,Descrição
// with dd/mm/yyyy dates and dot decimals.
type NubankParser struct{}

const (
	nubankNumFields = 4
	nubankColDate   = 0
	nubankColAmount = 1
	nubankColID     = 2
	nubankColDesc   = 3
)

// Format returns the parser name.
func (p *NubankParser) Format() string { return "nubank" }

// Parse reads a Nubank CSV.
func (p *NubankParser) Parse(r io.Reader) ([]Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = nubankNumFields
	return readRows(cr, "nubank", func(rec []string) (Transaction, error) {
		date, err := time.Parse(brDate, rec[nubankColDate])
		if err != nil {
			return Transaction{}, fmt.Errorf("parsing date %q: %w", rec[nubankColDate], err)
		}
		amount, err := decimal.NewFromString(rec[nubankColAmount])
		if err != nil {
			return Transaction{}, fmt.Errorf("parsing amount %q: %w", rec[nubankColAmount], err)
		}
		return Transaction{
			Date:        date,
			Amount:      amount,
			Reference:   rec[nubankColID],
			Description: strings.TrimSpace(rec[nubankColDesc]),
		}, nil
	})
}

// SemicolonParser reads the "Data;Histórico;Valor" layout most Brazilian
// internet banks export, with comma decimals and dot thousands.
type SemicolonParser struct{}

// Format returns the parser name.
func (p *SemicolonParser) Format() string { return "semicolon" }

// Parse reads a semicolon separated statement.
func (p *SemicolonParser) Parse(r io.Reader) ([]Transaction, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = 3
	return readRows(cr, "semicolon", func(rec []string) (Transaction, error) {
		date, err := time.Parse(brDate, strings.TrimSpace(rec[0]))
		if err != nil {
			return Transaction{}, fmt.Errorf("parsing date %q: %w", rec[0], err)
		}
		raw := strings.ReplaceAll(strings.TrimSpace(rec[2]), ".", "")
		amount, err := decimal.NewFromString(strings.Replace(raw, ",", ".", 1))
		if err != nil {
			return Transaction{}, fmt.Errorf("parsing amount %q: %w", rec[2], err)
		}
		return Transaction{Date: date, Description: strings.TrimSpace(rec[1]), Amount: amount}, nil
	})
}

func readRows(cr *csv.Reader, format string, row func([]string) (Transaction, error)) ([]Transaction, error) {
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s CSV: %w", format, err)
	}
	if len(records) <= 1 {
		return nil, nil
	}
	var txns []Transaction
	for i, rec := range records[1:] {
		t, err := row(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if !model.HasCents(t.Amount) {
			return nil, fmt.Errorf("row %d: amount %s has more than 2 decimal places", i+2, t.Amount)
		}
		txns = append(txns, t)
	}
	return txns, nil
}
