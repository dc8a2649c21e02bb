// Package aggregate computes performance metrics from declarations.
// It is the single place where rates, gaps and rollups are derived;
// every dashboard and export goes through these functions so that the
// weighted-aggregation and snapshot-selection rules cannot drift apart
// between roles.
package aggregate

import (
	"math"
	"sort"
	"strconv"

	"github.com/iliyamo/performance-reporting/internal/model"
)

// Rate computes numerator/denominator × 100.  A zero denominator
// yields 0 regardless of the numerator; division never panics.
func Rate(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return Round2((numerator / denominator) * 100)
}

// Gap computes rate − target.  With a zero denominator the rate is 0
// and the gap degenerates to −target.
func Gap(rate, target float64) float64 {
	return Round2(rate - target)
}

// Round2 rounds to two decimals, the precision declarations are stored
// with.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// IndicatorSummary is the rollup of many declarations of one
// indicator across structures or periods.
type IndicatorSummary struct {
	IndicatorID    string  `json:"indicator_id"`
	SumNumerator   float64 `json:"sum_numerator"`
	SumDenominator float64 `json:"sum_denominator"`
	Rate           float64 `json:"rate"`
	Target         float64 `json:"target"`
	Gap            float64 `json:"gap"`
	Count          int     `json:"count"`
}

// ByIndicator rolls a group of declarations (all for the same
// indicator) into one summary.  Numerators and denominators are summed
// first and the rate computed once from the totals: a weighted
// aggregate, never an average of individual rates.  The target is the
// arithmetic mean of the grouped targets; in practice they are equal
// within a group, but the aggregator does not assume it.
func ByIndicator(decls []model.Declaration) IndicatorSummary {
	var s IndicatorSummary
	if len(decls) == 0 {
		return s
	}
	s.IndicatorID = decls[0].IndicatorID
	var targetSum float64
	for _, d := range decls {
		s.SumNumerator += d.Numerator
		s.SumDenominator += d.Denominator
		targetSum += d.Target
	}
	s.Count = len(decls)
	s.Rate = Rate(s.SumNumerator, s.SumDenominator)
	s.Target = Round2(targetSum / float64(len(decls)))
	s.Gap = Gap(s.Rate, s.Target)
	return s
}

// GroupByIndicator groups declarations by indicator id and rolls each
// group up with ByIndicator.  Results are ordered by indicator id so
// charts and exports are deterministic.
func GroupByIndicator(decls []model.Declaration) []IndicatorSummary {
	byID := make(map[string][]model.Declaration)
	for _, d := range decls {
		byID[d.IndicatorID] = append(byID[d.IndicatorID], d)
	}
	out := make([]IndicatorSummary, 0, len(byID))
	for _, group := range byID {
		out = append(out, ByIndicator(group))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IndicatorID < out[j].IndicatorID })
	return out
}

// CategorySummary nests indicator rollups under their category.
type CategorySummary struct {
	CategoryID string             `json:"category_id"`
	Indicators []IndicatorSummary `json:"indicators"`
}

// GroupByCategory groups declarations by the category of their
// indicator, then by indicator inside each category.  categoryOf maps
// an indicator id to its category id; indicators it does not know fall
// into the empty category rather than being dropped, keeping dashboard
// totals honest when reference data is incomplete.
func GroupByCategory(decls []model.Declaration, categoryOf map[string]string) []CategorySummary {
	byCat := make(map[string][]model.Declaration)
	for _, d := range decls {
		byCat[categoryOf[d.IndicatorID]] = append(byCat[categoryOf[d.IndicatorID]], d)
	}
	out := make([]CategorySummary, 0, len(byCat))
	for cat, group := range byCat {
		out = append(out, CategorySummary{CategoryID: cat, Indicators: GroupByIndicator(group)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out
}

// Snapshot selects, among validated situations only, the latest one
// per grouping key — "latest" meaning the numerically greatest month
// (Janvier=1 … Décembre=12).  This single-latest-period snapshot is
// what feeds every dashboard and export; it is not a sum across all
// periods.  Keys usually combine structure and year, or owner and
// year.  Creation-time uniqueness makes month ties unreachable, but if
// present the greater situation id wins so selection stays
// deterministic.
func Snapshot(sits []model.Situation, key func(model.Situation) string) []model.Situation {
	latest := make(map[string]model.Situation)
	for _, s := range sits {
		if s.Status != model.StatusValidated {
			continue
		}
		k := key(s)
		cur, ok := latest[k]
		if !ok {
			latest[k] = s
			continue
		}
		cm, sm := model.MonthNumber(cur.Month), model.MonthNumber(s.Month)
		if sm > cm || (sm == cm && s.ID > cur.ID) {
			latest[k] = s
		}
	}
	out := make([]model.Situation, 0, len(latest))
	for _, s := range latest {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ByStructureYear is the usual snapshot key: one latest validated
// situation per structure per year.
func ByStructureYear(s model.Situation) string { return s.StructureCode + "|" + s.Year }

// ByOwnerYear keys the snapshot by owning user instead of structure.
// DC dashboards use it because several DC accounts can share one
// structure code.
func ByOwnerYear(s model.Situation) string {
	return strconv.FormatUint(s.OwnerID, 10) + "|" + s.Year
}

// StatusCounts tallies situations per lifecycle state for KPI cards.
type StatusCounts struct {
	Total      int `json:"total"`
	InProgress int `json:"in_progress"` // draft + rejected
	Pending    int `json:"pending"`     // submitted
	Validated  int `json:"validated"`
	Rejected   int `json:"rejected"`
}

// CountByStatus computes the KPI card figures for a set of situations.
func CountByStatus(sits []model.Situation) StatusCounts {
	var c StatusCounts
	for _, s := range sits {
		c.Total++
		switch s.Status {
		case model.StatusSubmitted:
			c.Pending++
		case model.StatusValidated:
			c.Validated++
		case model.StatusRejected:
			c.Rejected++
			c.InProgress++
		default:
			c.InProgress++
		}
	}
	return c
}
