package model

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a situation.  The numeric values
// are the legacy on-disk codes and must not be renumbered.
type Status int

const (
	StatusDraft     Status = 0 // being prepared, declarations live in the draft tables
	StatusSubmitted Status = 1 // confirmed by its owner, awaiting validation
	StatusRejected  Status = 2 // sent back with a motive, editable again
	StatusValidated Status = 3 // accepted, terminal
)

// String returns a short label for logs and event payloads.
func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusSubmitted:
		return "submitted"
	case StatusRejected:
		return "rejected"
	case StatusValidated:
		return "validated"
	default:
		return "unknown"
	}
}

// Editable reports whether the owner may still change declarations and
// confirm.  Rejected situations are re-editable: their declarations
// were moved back to the draft tables when the rejection happened.
func (s Status) Editable() bool { return s == StatusDraft || s == StatusRejected }

// Validator identifies which authority performed a validation, which
// decides whether DRIValidatedAt or AdminValidatedAt gets stamped.
type Validator int

const (
	ValidatorDRI   Validator = iota // a DRI validating a child DIW situation
	ValidatorAdmin                  // an admin validating a DRI-self or DC situation
)

// Situation is one period's reporting instance for a structure: the
// central entity of the system.  Periods are (French month name, year
// string) pairs; at most one situation may exist per (structure, month,
// year), checked before insert.  Each timestamp is set only by its
// matching transition and stays null otherwise.
//
// Fields:
//  ID               – primary key, a generated 32-hex identifier.
//  StructureCode    – structure the report belongs to.
//  Month            – French month name, e.g. "Janvier".
//  Year             – four-digit year as a string, e.g. "2025".
//  Status           – lifecycle state, see Status.
//  OwnerID          – user who created the situation; only the owner mutates it.
//  CreatedAt        – set by Create.
//  EditedAt         – set by SaveDraft and by Reject (nullable).
//  ConfirmedAt      – set by Confirm (nullable).
//  DRIValidatedAt   – set when a DRI validates a DIW situation (nullable).
//  AdminValidatedAt – set when an admin validates a DRI-self or DC situation (nullable).
//  DeletedAt        – set when the owner deletes the situation (nullable).
type Situation struct {
	ID               string     // situations.id
	StructureCode    string     // situations.structure_code
	Month            string     // situations.month
	Year             string     // situations.year
	Status           Status     // situations.statut
	OwnerID          uint64     // situations.owner_id
	CreatedAt        time.Time  // situations.created_at
	EditedAt         *time.Time // situations.edited_at (nullable)
	ConfirmedAt      *time.Time // situations.confirmed_at (nullable)
	DRIValidatedAt   *time.Time // situations.dri_validated_at (nullable)
	AdminValidatedAt *time.Time // situations.admin_validated_at (nullable)
	DeletedAt        *time.Time // situations.deleted_at (nullable)
}

// SamePeriod compares a situation's period against a (month, year)
// pair.  Month comparison is case-insensitive; this is the legacy
// period-equality contract and callers must not "normalize" months
// into calendar dates.
func (s *Situation) SamePeriod(month, year string) bool {
	return strings.EqualFold(s.Month, month) && s.Year == year
}

// MonthNumber converts a French month name to its 1-based position in
// the year.  Unknown or empty names return 0, which sorts before every
// real month; the latest-validated snapshot selection depends on this
// ordering.
func MonthNumber(name string) int {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "janvier":
		return 1
	case "février", "fevrier":
		return 2
	case "mars":
		return 3
	case "avril":
		return 4
	case "mai":
		return 5
	case "juin":
		return 6
	case "juillet":
		return 7
	case "août", "aout":
		return 8
	case "septembre":
		return 9
	case "octobre":
		return 10
	case "novembre":
		return 11
	case "décembre", "decembre":
		return 12
	default:
		return 0
	}
}

// Months lists the French month names in calendar order.  The
// data-entry form endpoint returns it as the period selector; input
// validation goes through MonthNumber instead.
var Months = []string{
	"Janvier", "Février", "Mars", "Avril", "Mai", "Juin",
	"Juillet", "Août", "Septembre", "Octobre", "Novembre", "Décembre",
}
