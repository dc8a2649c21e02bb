package model

// Family selects one of the three declaration table pairs.  The legacy
// schema keeps separate live/draft tables per family; the business
// logic is a single code path parameterized by this value, and only
// the repository maps it back to table names.
type Family int

const (
	FamilyOperational Family = iota // DIW monthly declarations
	FamilyStrategic                 // DC strategic declarations
	FamilyDRISelf                   // DRI self-reports over the fixed indicator subset
)

// String returns the family label used in event payloads.
func (f Family) String() string {
	switch f {
	case FamilyStrategic:
		return "strategic"
	case FamilyDRISelf:
		return "dri_self"
	default:
		return "operational"
	}
}

// LiveTable returns the table holding confirmed declarations.
func (f Family) LiveTable() string {
	switch f {
	case FamilyStrategic:
		return "strategic_declarations"
	case FamilyDRISelf:
		return "dri_declarations"
	default:
		return "declarations"
	}
}

// DraftTable returns the shadow table holding work-in-progress rows.
// A situation has rows in either the draft table or the live table,
// never meaningfully both: Confirm and Reject swap between them
// atomically.
func (f Family) DraftTable() string {
	switch f {
	case FamilyStrategic:
		return "strategic_declaration_drafts"
	case FamilyDRISelf:
		return "dri_declaration_drafts"
	default:
		return "declaration_drafts"
	}
}

// Declaration is one indicator's figures within a situation: the
// declared numerator and denominator, the rate computed from them, the
// target captured at declaration time and the gap to that target.
// The same shape serves live rows, draft rows and every family.
//
// Fields:
//  ID          – primary key identifier (0 before insert).
//  SituationID – owning situation.
//  IndicatorID – natural indicator key, e.g. "A.1" (DRI-self uses "5".."7").
//  Numerator   – declared numerator.
//  Denominator – declared denominator.
//  Rate        – numerator/denominator × 100, 0 when denominator is 0.
//  Target      – target value at declaration time.
//  Gap         – rate − target.
type Declaration struct {
	ID          uint64  // <table>.id
	SituationID string  // <table>.situation_id
	IndicatorID string  // <table>.indicator_id
	Numerator   float64 // <table>.numerator
	Denominator float64 // <table>.denominator
	Rate        float64 // <table>.rate
	Target      float64 // <table>.target
	Gap         float64 // <table>.gap
}

// DeclarationInput is what a data-entry form submits for one
// indicator.  Rate, target and gap are computed server-side; clients
// never supply them.
type DeclarationInput struct {
	IndicatorID string  `json:"indicator_id"`
	Numerator   float64 `json:"numerator"`
	Denominator float64 `json:"denominator"`
}
