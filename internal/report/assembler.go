// Package report turns aggregated results into flat export rows and
// hands them to a ReportGenerator collaborator.  The assembler is a
// pure function: it resolves codes into display names and builds a
// human-readable filter summary, but produces no file bytes itself.
package report

import (
	"fmt"
	"strings"

	"github.com/iliyamo/performance-reporting/internal/aggregate"
)

// NameIndex resolves the codes appearing in aggregated rows to their
// display names.  Missing entries fall back to the raw code so an
// export never fails on incomplete reference data.
type NameIndex struct {
	Indicators          map[string]string // indicator id → label
	Categories          map[string]string // category id → axis label
	Objectives          map[string]string // objective id (as string) → label
	IndicatorObjectives map[string]string // indicator id → objective id; strategic families only
	Structures          map[string]string // structure code → label
}

func (n NameIndex) indicator(id string) string { return orCode(n.Indicators, id) }
func (n NameIndex) category(id string) string  { return orCode(n.Categories, id) }
func (n NameIndex) structure(id string) string { return orCode(n.Structures, id) }

// objective resolves the objective label for an indicator.  Families
// whose indicators carry no objective produce an empty column.
func (n NameIndex) objective(indicatorID string) string {
	objID, ok := n.IndicatorObjectives[indicatorID]
	if !ok {
		return ""
	}
	return orCode(n.Objectives, objID)
}

func orCode(m map[string]string, code string) string {
	if label, ok := m[code]; ok && label != "" {
		return label
	}
	return code
}

// Context describes the filters an export was produced under; it is
// rendered into the filter-summary line of the output.
type Context struct {
	StructureCode string // empty means all structures in scope
	CategoryID    string // empty means all axes
	Month         string // empty means all months
	Year          string // empty means all years
}

// Row is one flat line of an export: codes replaced by display names,
// metrics carried through unchanged.
type Row struct {
	Indicator      string  `json:"indicator"`
	Category       string  `json:"category"`
	Objective      string  `json:"objective,omitempty"`
	Structure      string  `json:"structure"`
	SumNumerator   float64 `json:"sum_numerator"`
	SumDenominator float64 `json:"sum_denominator"`
	Rate           float64 `json:"rate"`
	Target         float64 `json:"target"`
	Gap            float64 `json:"gap"`
}

// Assemble flattens per-category summaries into export rows annotated
// with display names.  structureCode tags every row with the structure
// the aggregation was scoped to (empty for cross-structure exports).
func Assemble(cats []aggregate.CategorySummary, names NameIndex, structureCode string) []Row {
	var out []Row
	structure := ""
	if structureCode != "" {
		structure = names.structure(structureCode)
	}
	for _, cat := range cats {
		for _, ind := range cat.Indicators {
			out = append(out, Row{
				Indicator:      names.indicator(ind.IndicatorID),
				Category:       names.category(cat.CategoryID),
				Objective:      names.objective(ind.IndicatorID),
				Structure:      structure,
				SumNumerator:   ind.SumNumerator,
				SumDenominator: ind.SumDenominator,
				Rate:           ind.Rate,
				Target:         ind.Target,
				Gap:            ind.Gap,
			})
		}
	}
	return out
}

// FilterSummary renders the export's filter context as one readable
// line, e.g. "Structure: DIW Alger | Axe: Qualité | Année: 2025".
// Unset filters render as "Tous"/"Toutes".
func FilterSummary(ctx Context, names NameIndex) string {
	parts := make([]string, 0, 4)
	if ctx.StructureCode != "" {
		parts = append(parts, "Structure: "+names.structure(ctx.StructureCode))
	} else {
		parts = append(parts, "Structure: Toutes")
	}
	if ctx.CategoryID != "" {
		parts = append(parts, "Axe: "+names.category(ctx.CategoryID))
	} else {
		parts = append(parts, "Axe: Tous")
	}
	if ctx.Month != "" {
		parts = append(parts, "Mois: "+ctx.Month)
	} else {
		parts = append(parts, "Mois: Tous")
	}
	if ctx.Year != "" {
		parts = append(parts, "Année: "+ctx.Year)
	} else {
		parts = append(parts, "Année: Toutes")
	}
	return strings.Join(parts, " | ")
}

// FileName builds a deterministic export file name from the filter
// context, e.g. "analyse_D1_Mars_2025.csv".
func FileName(prefix string, ctx Context, ext string) string {
	parts := []string{prefix}
	for _, p := range []string{ctx.StructureCode, ctx.Month, ctx.Year} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return fmt.Sprintf("%s.%s", strings.Join(parts, "_"), ext)
}
