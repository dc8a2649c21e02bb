package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMonthNumber(t *testing.T) {
	cases := map[string]int{
		"Janvier":   1,
		"février":   2,
		"Fevrier":   2,
		"Mars":      3,
		"Août":      8,
		"aout":      8,
		"Décembre":  12,
		"decembre":  12,
		" Mai ":     5,
		"":          0,
		"January":   0,
		"Septembre": 9,
	}
	for name, want := range cases {
		assert.Equal(t, want, MonthNumber(name), "month %q", name)
	}
}

func TestMonthsCoverTheYear(t *testing.T) {
	assert.Len(t, Months, 12)
	for i, m := range Months {
		assert.Equal(t, i+1, MonthNumber(m))
	}
}

func TestSamePeriodCaseInsensitiveMonth(t *testing.T) {
	s := Situation{Month: "Janvier", Year: "2025"}
	assert.True(t, s.SamePeriod("janvier", "2025"))
	assert.True(t, s.SamePeriod("JANVIER", "2025"))
	assert.False(t, s.SamePeriod("Janvier", "2024"))
	assert.False(t, s.SamePeriod("Mars", "2025"))
}

func TestStatusEditable(t *testing.T) {
	assert.True(t, StatusDraft.Editable())
	assert.True(t, StatusRejected.Editable())
	assert.False(t, StatusSubmitted.Editable())
	assert.False(t, StatusValidated.Editable())
}

func TestFamilyTables(t *testing.T) {
	assert.Equal(t, "declarations", FamilyOperational.LiveTable())
	assert.Equal(t, "declaration_drafts", FamilyOperational.DraftTable())
	assert.Equal(t, "strategic_declarations", FamilyStrategic.LiveTable())
	assert.Equal(t, "strategic_declaration_drafts", FamilyStrategic.DraftTable())
	assert.Equal(t, "dri_declarations", FamilyDRISelf.LiveTable())
	assert.Equal(t, "dri_declaration_drafts", FamilyDRISelf.DraftTable())
}

func TestParseStructureKindRoundTrip(t *testing.T) {
	for _, k := range []StructureKind{KindDIW, KindDRI, KindDC, KindGlobal} {
		assert.Equal(t, k, ParseStructureKind(k.String()))
	}
	assert.Equal(t, KindUnknown, ParseStructureKind("bogus"))
}

func TestNextIndicatorID(t *testing.T) {
	assert.Equal(t, "A.1", NextIndicatorID("A", nil))
	assert.Equal(t, "A.4", NextIndicatorID("A", []string{"A.1", "A.3", "B.9"}))
	assert.Equal(t, "A.11", NextIndicatorID("A", []string{"A.10", "A.2"}))
}
