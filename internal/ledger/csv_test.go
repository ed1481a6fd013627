package ledger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicbooks/clinicbooks/internal/model"
)

func TestWriteReadEntries(t *testing.T) {
	entries := []model.Entry{
		{
			ID: "e1", OwnerID: "o1", ClinicID: "c1", Kind: model.KindRevenue,
			Date: model.Date(2025, 11, 5), Amount: dec("15000"), Description: "Prótese, arcada superior",
			Regime: model.RegimePJ, Patient: model.Patient{Name: "Maria"},
			Payer:          &model.Payer{Name: "OdontoPrev", TaxID: "58.119.199/0001-51", PersonType: model.PersonPJ},
			DocumentIssued: true,
		},
		{
			ID: "e2", OwnerID: "o1", ClinicID: "c1", Kind: model.KindExpense,
			Date: model.Date(2025, 11, 10), Amount: dec("6000.50"), Regime: model.RegimePF,
			AccountID: "rent", CostBehavior: model.CostFixed,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteEntries(&buf, entries))
	assert.Contains(t, buf.String(), "15000.00")

	got, err := ReadEntries(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Prótese, arcada superior", got[0].Description)
	require.NotNil(t, got[0].Payer)
	assert.Equal(t, model.PersonPJ, got[0].Payer.PersonType)
	assert.True(t, got[0].DocumentIssued)
	assert.True(t, got[0].Date.Equal(model.Date(2025, 11, 5)))

	assert.Nil(t, got[1].Payer)
	assert.Equal(t, "6000.50", got[1].Amount.StringFixed(2))
	assert.Equal(t, model.CostFixed, got[1].CostBehavior)
}

func TestReadEntriesRejectsBadRows(t *testing.T) {
	header := strings.Join(Header, ",")
	tests := []struct {
		name string
		row  string
	}{
		{"bad date", "e1,o1,c1,revenue,05/11/2025,10.00,,PF,,,,,,,,,,false,,"},
		{"bad amount", "e1,o1,c1,revenue,2025-11-05,ten,,PF,,,,,,,,,,false,,"},
		{"hybrid regime", "e1,o1,c1,revenue,2025-11-05,10.00,,HIBRIDO,,,,,,,,,,false,,"},
		{"bad bool", "e1,o1,c1,revenue,2025-11-05,10.00,,PF,,,,,,,,,,yes please,,"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadEntries(strings.NewReader(header + "\n" + tt.row + "\n"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "row 2")
		})
	}
}
