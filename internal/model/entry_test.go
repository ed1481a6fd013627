package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntryPayerName(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  string
	}{
		{"patient pays", Entry{Patient: Patient{Name: "Ana"}}, "Ana"},
		{"third party", Entry{Patient: Patient{Name: "Ana"}, Payer: &Payer{Name: "Carlos"}}, "Carlos"},
		{"empty payer falls back", Entry{Patient: Patient{Name: "Ana"}, Payer: &Payer{}}, "Ana"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.entry.PayerName(), tt.name)
	}
}

func TestEntryFilterMatchesDate(t *testing.T) {
	f := EntryFilter{}.InPeriod(Period{Month: 11, Year: 2025})

	assert.True(t, f.MatchesDate(Date(2025, 11, 1)))
	assert.True(t, f.MatchesDate(Date(2025, 11, 30)))
	assert.False(t, f.MatchesDate(Date(2025, 10, 31)))
	assert.False(t, f.MatchesDate(Date(2025, 12, 1)))

	assert.True(t, EntryFilter{}.MatchesDate(Date(1999, 1, 1)), "unbounded filter matches everything")
}
