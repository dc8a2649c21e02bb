package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Category groups indicators into an axis shown as one chart block on
// dashboards.
//
// Fields:
//  ID    – primary key, short code, part of every indicator's natural key.
//  Label – display name of the axis.
type Category struct {
	ID    string // categories.id
	Label string // categories.label
}

// Objective is the strategic sub-grouping beneath a category; only
// strategic indicators reference objectives.
//
// Fields:
//  ID         – primary key identifier.
//  Label      – display name.
//  CategoryID – owning category.
type Objective struct {
	ID         int    // objectives.id
	Label      string // objectives.label
	CategoryID string // objectives.category_id
}

// Indicator is an operational performance indicator.  Its natural key
// encodes the owning category as "{categoryID}.{sequence}"; sequences
// grow monotonically inside a category and are never reused, even
// after siblings are deleted.
//
// Fields:
//  ID         – natural key, e.g. "A.3".
//  Label      – display name.
//  CategoryID – owning category.
type Indicator struct {
	ID         string // indicators.id
	Label      string // indicators.label
	CategoryID string // indicators.category_id
}

// StrategicIndicator additionally belongs to exactly one objective.
type StrategicIndicator struct {
	ID          string // strategic_indicators.id
	Label       string // strategic_indicators.label
	CategoryID  string // strategic_indicators.category_id
	ObjectiveID int    // strategic_indicators.objective_id
}

// DRISelfIndicatorIDs is the fixed subset of indicators a DRI reports
// on itself, regardless of category.
var DRISelfIndicatorIDs = []string{"5", "6", "7"}

// IndicatorWithTarget is the catalog lookup result: an indicator
// joined with its numeric target for a given structure and year.
// Missing target rows surface as Target == 0, never as an error.
type IndicatorWithTarget struct {
	IndicatorID string  `json:"indicator_id"`
	Label       string  `json:"label"`
	CategoryID  string  `json:"category_id"`
	Target      float64 `json:"target"`
}

// NextIndicatorID allocates the natural key for a new indicator in a
// category given the keys of every indicator that ever existed there.
// The sequence is max existing + 1 so deleted siblings leave holes
// instead of freeing their number.
func NextIndicatorID(categoryID string, existing []string) string {
	max := 0
	prefix := categoryID + "."
	for _, id := range existing {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(id, prefix)); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s.%d", categoryID, max+1)
}
