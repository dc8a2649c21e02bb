package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/performance-reporting/internal/model"
)

func TestRate(t *testing.T) {
	assert.Equal(t, 50.0, Rate(1, 2))
	assert.Equal(t, 33.33, Rate(1, 3))
	assert.Equal(t, 0.0, Rate(5, 0), "zero denominator must yield 0, not a panic or Inf")
	assert.Equal(t, 0.0, Rate(0, 0))
	assert.Equal(t, 120.0, Rate(6, 5), "rates above 100 are legal")
}

func TestGap(t *testing.T) {
	assert.Equal(t, 10.0, Gap(90, 80))
	assert.Equal(t, -80.0, Gap(0, 80), "zero-denominator rate degenerates the gap to -target")
}

func TestByIndicatorWeighted(t *testing.T) {
	// Two structures: 10/10 and 0/100.  The weighted rollup is
	// 10/110 = 9.09, not the 50.0 a mean of the two rates would give.
	decls := []model.Declaration{
		{IndicatorID: "A.1", Numerator: 10, Denominator: 10, Target: 80},
		{IndicatorID: "A.1", Numerator: 0, Denominator: 100, Target: 80},
	}
	s := ByIndicator(decls)
	assert.Equal(t, 10.0, s.SumNumerator)
	assert.Equal(t, 110.0, s.SumDenominator)
	assert.Equal(t, 9.09, s.Rate)
	assert.Equal(t, 80.0, s.Target)
	assert.Equal(t, Gap(9.09, 80), s.Gap)
	assert.Equal(t, 2, s.Count)
}

func TestByIndicatorEmpty(t *testing.T) {
	assert.Zero(t, ByIndicator(nil))
}

func TestGroupByIndicatorOrdering(t *testing.T) {
	decls := []model.Declaration{
		{IndicatorID: "B.2", Numerator: 1, Denominator: 2},
		{IndicatorID: "A.1", Numerator: 3, Denominator: 4},
		{IndicatorID: "B.2", Numerator: 1, Denominator: 2},
	}
	out := GroupByIndicator(decls)
	require.Len(t, out, 2)
	assert.Equal(t, "A.1", out[0].IndicatorID)
	assert.Equal(t, "B.2", out[1].IndicatorID)
	assert.Equal(t, 2, out[1].Count)
}

func TestGroupByCategoryUnknownIndicatorKept(t *testing.T) {
	decls := []model.Declaration{
		{IndicatorID: "A.1", Numerator: 1, Denominator: 2},
		{IndicatorID: "Z.9", Numerator: 3, Denominator: 4},
	}
	out := GroupByCategory(decls, map[string]string{"A.1": "A"})
	require.Len(t, out, 2)
	// Unknown indicators land in the empty category, first in order.
	assert.Equal(t, "", out[0].CategoryID)
	assert.Equal(t, "Z.9", out[0].Indicators[0].IndicatorID)
	assert.Equal(t, "A", out[1].CategoryID)
}

func TestSnapshotLatestValidatedOnly(t *testing.T) {
	sits := []model.Situation{
		{ID: "s1", StructureCode: "W1", Year: "2025", Month: "Janvier", Status: model.StatusValidated},
		{ID: "s2", StructureCode: "W1", Year: "2025", Month: "Mars", Status: model.StatusValidated},
		{ID: "s3", StructureCode: "W1", Year: "2025", Month: "Décembre", Status: model.StatusSubmitted},
		{ID: "s4", StructureCode: "W2", Year: "2025", Month: "Février", Status: model.StatusValidated},
		{ID: "s5", StructureCode: "W2", Year: "2024", Month: "Novembre", Status: model.StatusValidated},
	}
	snap := Snapshot(sits, ByStructureYear)
	require.Len(t, snap, 3)
	ids := make(map[string]bool)
	for _, s := range snap {
		ids[s.ID] = true
	}
	assert.True(t, ids["s2"], "Mars beats Janvier for W1/2025")
	assert.False(t, ids["s3"], "submitted situations never enter the snapshot")
	assert.True(t, ids["s4"])
	assert.True(t, ids["s5"], "years snapshot independently")
}

func TestSnapshotTieBreaksOnGreaterID(t *testing.T) {
	sits := []model.Situation{
		{ID: "aaa", StructureCode: "W1", Year: "2025", Month: "Mai", Status: model.StatusValidated},
		{ID: "bbb", StructureCode: "W1", Year: "2025", Month: "Mai", Status: model.StatusValidated},
	}
	snap := Snapshot(sits, ByStructureYear)
	require.Len(t, snap, 1)
	assert.Equal(t, "bbb", snap[0].ID)
}

func TestSnapshotByOwner(t *testing.T) {
	sits := []model.Situation{
		{ID: "s1", StructureCode: "DC1", OwnerID: 7, Year: "2025", Month: "Avril", Status: model.StatusValidated},
		{ID: "s2", StructureCode: "DC1", OwnerID: 8, Year: "2025", Month: "Mars", Status: model.StatusValidated},
	}
	snap := Snapshot(sits, ByOwnerYear)
	assert.Len(t, snap, 2, "owners sharing a structure code snapshot separately")
}

func TestCountByStatus(t *testing.T) {
	sits := []model.Situation{
		{Status: model.StatusDraft},
		{Status: model.StatusSubmitted},
		{Status: model.StatusRejected},
		{Status: model.StatusValidated},
		{Status: model.StatusValidated},
	}
	c := CountByStatus(sits)
	assert.Equal(t, 5, c.Total)
	assert.Equal(t, 2, c.InProgress)
	assert.Equal(t, 1, c.Pending)
	assert.Equal(t, 2, c.Validated)
	assert.Equal(t, 1, c.Rejected)
}
