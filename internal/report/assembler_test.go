package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/performance-reporting/internal/aggregate"
)

func testNames() NameIndex {
	return NameIndex{
		Indicators: map[string]string{"A.1": "Taux de raccordement"},
		Categories: map[string]string{"A": "Qualité de service"},
		Structures: map[string]string{"W1": "DIW Alger"},
	}
}

func TestAssemble(t *testing.T) {
	cats := []aggregate.CategorySummary{
		{CategoryID: "A", Indicators: []aggregate.IndicatorSummary{
			{IndicatorID: "A.1", SumNumerator: 45, SumDenominator: 50, Rate: 90, Target: 80, Gap: 10},
			{IndicatorID: "A.2", SumNumerator: 1, SumDenominator: 4, Rate: 25, Target: 50, Gap: -25},
		}},
	}
	rows := Assemble(cats, testNames(), "W1")
	require.Len(t, rows, 2)

	assert.Equal(t, "Taux de raccordement", rows[0].Indicator)
	assert.Equal(t, "Qualité de service", rows[0].Category)
	assert.Equal(t, "DIW Alger", rows[0].Structure)
	assert.Equal(t, 90.0, rows[0].Rate)
	assert.Empty(t, rows[0].Objective, "operational indicators carry no objective")

	// Codes with no index entry fall back to the raw code.
	assert.Equal(t, "A.2", rows[1].Indicator)
}

func TestAssembleStrategicObjectives(t *testing.T) {
	names := NameIndex{
		Indicators:          map[string]string{"S.1": "Taux de couverture FTTH", "S.2": "Churn"},
		Categories:          map[string]string{"A": "Déploiement"},
		Objectives:          map[string]string{"3": "Accélérer la fibre"},
		IndicatorObjectives: map[string]string{"S.1": "3", "S.2": "9"},
	}
	cats := []aggregate.CategorySummary{
		{CategoryID: "A", Indicators: []aggregate.IndicatorSummary{
			{IndicatorID: "S.1", Rate: 75},
			{IndicatorID: "S.2", Rate: 5},
		}},
	}
	rows := Assemble(cats, names, "")
	require.Len(t, rows, 2)
	assert.Equal(t, "Accélérer la fibre", rows[0].Objective)
	// An objective id with no label falls back to the raw id.
	assert.Equal(t, "9", rows[1].Objective)
}

func TestAssembleCrossStructure(t *testing.T) {
	cats := []aggregate.CategorySummary{
		{CategoryID: "A", Indicators: []aggregate.IndicatorSummary{{IndicatorID: "A.1"}}},
	}
	rows := Assemble(cats, testNames(), "")
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].Structure)
}

func TestFilterSummary(t *testing.T) {
	got := FilterSummary(Context{StructureCode: "W1", CategoryID: "A", Month: "Mars", Year: "2025"}, testNames())
	assert.Equal(t, "Structure: DIW Alger | Axe: Qualité de service | Mois: Mars | Année: 2025", got)

	got = FilterSummary(Context{}, testNames())
	assert.Equal(t, "Structure: Toutes | Axe: Tous | Mois: Tous | Année: Toutes", got)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "analyse_W1_Mars_2025.csv",
		FileName("analyse", Context{StructureCode: "W1", Month: "Mars", Year: "2025"}, "csv"))
	assert.Equal(t, "analyse_2025.csv", FileName("analyse", Context{Year: "2025"}, "csv"))
	assert.Equal(t, "analyse.csv", FileName("analyse", Context{}, "csv"))
}

func TestCSVGenerator(t *testing.T) {
	rows := []Row{{
		Indicator: "Taux de raccordement", Category: "Qualité de service", Structure: "DIW Alger",
		SumNumerator: 45, SumDenominator: 50, Rate: 90, Target: 80, Gap: 10,
	}}
	out, err := CSVGenerator{}.Generate(rows, "Structure: DIW Alger | Axe: Tous | Mois: Tous | Année: 2025")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "# Structure: DIW Alger | Axe: Tous | Mois: Tous | Année: 2025", lines[0])
	assert.Equal(t, "Indicateur,Axe,Objectif,Structure,Numérateur,Dénominateur,Taux,Cible,Écart", lines[1])
	assert.Equal(t, "Taux de raccordement,Qualité de service,,DIW Alger,45.00,50.00,90.00,80.00,10.00", lines[2])
}

func TestCSVGeneratorEmpty(t *testing.T) {
	out, err := CSVGenerator{}.Generate(nil, "Structure: Toutes | Axe: Tous | Mois: Tous | Année: Toutes")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	assert.Len(t, lines, 2, "header still present with no data rows")
}
