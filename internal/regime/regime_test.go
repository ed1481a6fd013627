package regime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicbooks/clinicbooks/internal/model"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		owner   model.PersonType
		kind    model.Kind
		tag     model.Regime
		want    model.Regime
		wantErr bool
	}{
		{"pf owner", model.PersonPF, model.KindRevenue, "", model.RegimePF, false},
		{"pf owner ignores tag", model.PersonPF, model.KindRevenue, model.RegimePJ, model.RegimePF, false},
		{"pj owner", model.PersonPJ, model.KindRevenue, "", model.RegimePJ, false},
		{"pj owner expense", model.PersonPJ, model.KindExpense, "", model.RegimePJ, false},
		{"hybrid tagged pf", model.PersonHibrido, model.KindRevenue, model.RegimePF, model.RegimePF, false},
		{"hybrid tagged pj", model.PersonHibrido, model.KindRevenue, model.RegimePJ, model.RegimePJ, false},
		{"hybrid revenue untagged", model.PersonHibrido, model.KindRevenue, "", "", true},
		{"hybrid revenue bad tag", model.PersonHibrido, model.KindRevenue, "HIBRIDO", "", true},
		{"hybrid expense untagged", model.PersonHibrido, model.KindExpense, "", model.RegimePF, false},
		{"hybrid expense pj", model.PersonHibrido, model.KindExpense, model.RegimePJ, model.RegimePJ, false},
		{"unknown owner type", "XX", model.KindRevenue, model.RegimePF, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(model.Owner{PersonType: tt.owner}, model.Entry{Kind: tt.kind, Regime: tt.tag})
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, model.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveHybridMessage(t *testing.T) {
	_, err := Resolve(model.Owner{PersonType: model.PersonHibrido}, model.Entry{Kind: model.KindRevenue})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "regime required for hybrid owner")
}

func TestAttributeStoredTagWins(t *testing.T) {
	// Owner switched from PJ to PF after the entry was stamped.
	owner := model.Owner{PersonType: model.PersonPF}
	got, err := Attribute(owner, model.Entry{Kind: model.KindRevenue, Regime: model.RegimePJ})
	require.NoError(t, err)
	assert.Equal(t, model.RegimePJ, got)

	got, err = Attribute(owner, model.Entry{Kind: model.KindRevenue})
	require.NoError(t, err)
	assert.Equal(t, model.RegimePF, got)
}
