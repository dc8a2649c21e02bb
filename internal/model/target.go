package model

// Target is a yearly goal value for one indicator.  The three target
// tables share this shape; what differs is the scope key:
//
//  operational – (indicator, structure, year), table `targets`
//  strategic   – (indicator, year) global, table `strategic_targets`
//                (StructureCode stays empty)
//  DRI-self    – (indicator, DRI code, year), table `dri_targets`
//
// At most one row exists per scope key; an absent row means the target
// is 0 for that year, not an error.  Targets are not versioned by
// month: one value serves every month of the year.
//
// Fields:
//  ID            – primary key identifier.
//  IndicatorID   – indicator the target applies to.
//  StructureCode – structure scope (empty for strategic targets).
//  Year          – four-digit year as a string.
//  Value         – the goal rate.
type Target struct {
	ID            uint64  // <table>.id
	IndicatorID   string  // <table>.indicator_id
	StructureCode string  // <table>.structure_code
	Year          string  // <table>.year
	Value         float64 // <table>.value
}
