// Package lifecycle owns the situation state machine.  Every
// transition a situation can make — creation, draft saves,
// confirmation, validation, rejection with rollback to draft,
// deletion — goes through the Machine, which checks ownership, status
// preconditions and period uniqueness before delegating the actual
// writes to a Store.
//
//	Draft ──Confirm──▶ Submitted ──Validate──▶ Validated (terminal)
//	Draft ──Delete──▶ (removed)
//	Submitted ──Reject──▶ Rejected ──Confirm──▶ Submitted
//	Rejected ──Delete──▶ (removed)
//
// Nothing ever moves back to Draft from Submitted or Validated except
// through Reject, and Validated accepts no further mutation of its
// declarations.
package lifecycle

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/performance-reporting/internal/aggregate"
	"github.com/iliyamo/performance-reporting/internal/model"
	"github.com/iliyamo/performance-reporting/internal/scope"
)

// Store is the persistence the machine drives.  The primitives that
// move declarations (Promote, Demote) must be atomic — all deletes,
// inserts and the status flip in one transaction — and must guard the
// status flip so that a concurrent transition surfaces as
// ErrConcurrency instead of a hybrid state.  The MySQL SituationRepo
// implements this; machine tests use an in-memory fake.
type Store interface {
	// Get returns a situation by id or repository.ErrNotFound.
	Get(ctx context.Context, id string) (*model.Situation, error)
	// ExistsForPeriod reports whether the structure already has a
	// situation for the (month, year) period, month case-insensitive.
	ExistsForPeriod(ctx context.Context, structureCode, month, year string) (bool, error)
	// Insert stores a freshly created situation.
	Insert(ctx context.Context, s *model.Situation) error
	// ReplaceDrafts atomically replaces every draft row of the
	// situation (delete-then-insert) and stamps editedAt.
	ReplaceDrafts(ctx context.Context, family model.Family, situationID string, rows []model.Declaration, editedAt time.Time) error
	// Promote atomically clears both live and draft rows, inserts the
	// given rows as live, and flips status Draft/Rejected → Submitted.
	Promote(ctx context.Context, family model.Family, situationID string, rows []model.Declaration, confirmedAt time.Time) error
	// Demote atomically copies live rows to the draft table, deletes
	// the live rows, appends the rejection entry, and flips status
	// Submitted → Rejected.
	Demote(ctx context.Context, family model.Family, situationID string, rej model.Rejection) error
	// MarkValidated flips status Submitted → Validated and stamps the
	// timestamp selected by the validator kind.
	MarkValidated(ctx context.Context, situationID string, by model.Validator, at time.Time) error
	// Delete removes the situation and its draft rows.
	Delete(ctx context.Context, family model.Family, situationID string, at time.Time) error
}

// Catalog supplies the targets declarations are scored against.  The
// scope key follows the family: operational targets are per
// (structure, year), DRI-self per (DRI, year), strategic per year
// only.  Missing entries mean target 0.
type Catalog interface {
	TargetsFor(ctx context.Context, family model.Family, structureCode, year string) (map[string]float64, error)
}

// Machine applies the lifecycle rules on top of a Store and Catalog.
type Machine struct {
	store   Store
	catalog Catalog
	now     func() time.Time
}

// NewMachine builds a Machine.  The clock defaults to time.Now and is
// injectable for tests.
func NewMachine(store Store, catalog Catalog) *Machine {
	return &Machine{store: store, catalog: catalog, now: time.Now}
}

// WithClock overrides the machine's clock; test use only.
func (m *Machine) WithClock(now func() time.Time) *Machine {
	m.now = now
	return m
}

// Create opens a new Draft situation for (structure, month, year)
// owned by the principal.  At most one situation may exist per period
// and structure; a duplicate yields ErrInvalidTransition, never a
// silent second row.
func (m *Machine) Create(ctx context.Context, p model.Principal, structureCode, month, year string) (*model.Situation, error) {
	if strings.TrimSpace(month) == "" || strings.TrimSpace(year) == "" {
		return nil, fmt.Errorf("%w: month and year are required", ErrInvalidTransition)
	}
	exists, err := m.store.ExistsForPeriod(ctx, structureCode, month, year)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: a situation for %s %s already exists", ErrInvalidTransition, month, year)
	}
	s := &model.Situation{
		ID:            newSituationID(),
		StructureCode: structureCode,
		Month:         month,
		Year:          year,
		Status:        model.StatusDraft,
		OwnerID:       p.UserID,
		CreatedAt:     m.now(),
	}
	if err := m.store.Insert(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// SaveDraft replaces the situation's entire draft row set with rows
// computed from the inputs.  Owner only.  There is no status
// precondition: drafts may be re-saved in any state, since draft rows
// never touch the confirmed figures.
func (m *Machine) SaveDraft(ctx context.Context, p model.Principal, family model.Family, situationID string, inputs []model.DeclarationInput) error {
	s, err := m.store.Get(ctx, situationID)
	if err != nil {
		return err
	}
	if err := scope.RequireOwner(p, s); err != nil {
		return err
	}
	rows, err := m.score(ctx, family, s, inputs)
	if err != nil {
		return err
	}
	return m.store.ReplaceDrafts(ctx, family, situationID, rows, m.now())
}

// Confirm submits the situation for approval: live and draft rows are
// wiped, the freshly computed rows become the live declarations, and
// the status flips to Submitted.  Owner only; fires from Draft or
// Rejected.
func (m *Machine) Confirm(ctx context.Context, p model.Principal, family model.Family, situationID string, inputs []model.DeclarationInput) error {
	s, err := m.store.Get(ctx, situationID)
	if err != nil {
		return err
	}
	if err := scope.RequireOwner(p, s); err != nil {
		return err
	}
	if !s.Status.Editable() {
		return fmt.Errorf("%w: cannot confirm a %s situation", ErrInvalidTransition, s.Status)
	}
	if len(inputs) == 0 {
		return fmt.Errorf("%w: no indicator data submitted", ErrInvalidTransition)
	}
	rows, err := m.score(ctx, family, s, inputs)
	if err != nil {
		return err
	}
	return m.store.Promote(ctx, family, situationID, rows, m.now())
}

// Validate accepts a Submitted situation.  The caller must hold scope
// over the situation (checked by the handler's gate) but is never its
// owner.  Irreversible: no un-validate transition exists.
func (m *Machine) Validate(ctx context.Context, situationID string, by model.Validator) error {
	s, err := m.store.Get(ctx, situationID)
	if err != nil {
		return err
	}
	if s.Status != model.StatusSubmitted {
		return fmt.Errorf("%w: cannot validate a %s situation", ErrInvalidTransition, s.Status)
	}
	return m.store.MarkValidated(ctx, situationID, by, m.now())
}

// Reject sends a Submitted situation back to its owner.  The comment
// is mandatory and checked before any state change.  Live
// declarations round-trip into the draft tables with their figures
// intact, a rejection-history entry is appended, and the owner regains
// full edit/resubmit ability.
func (m *Machine) Reject(ctx context.Context, p model.Principal, family model.Family, situationID, comment string) error {
	if strings.TrimSpace(comment) == "" {
		return fmt.Errorf("%w: a rejection motive is required", ErrInvalidTransition)
	}
	s, err := m.store.Get(ctx, situationID)
	if err != nil {
		return err
	}
	if s.Status != model.StatusSubmitted {
		return fmt.Errorf("%w: cannot reject a %s situation", ErrInvalidTransition, s.Status)
	}
	rej := model.Rejection{
		SituationID: situationID,
		Comment:     comment,
		RejectedBy:  p.UserID,
		RejectedAt:  m.now(),
	}
	return m.store.Demote(ctx, family, situationID, rej)
}

// Delete removes a situation and its draft rows.  Owner only, and only
// while Draft or Rejected: submitted figures awaiting or past
// validation are never destroyed by their author.
func (m *Machine) Delete(ctx context.Context, p model.Principal, family model.Family, situationID string) error {
	s, err := m.store.Get(ctx, situationID)
	if err != nil {
		return err
	}
	if err := scope.RequireOwner(p, s); err != nil {
		return err
	}
	if !s.Status.Editable() {
		return fmt.Errorf("%w: cannot delete a %s situation", ErrInvalidTransition, s.Status)
	}
	return m.store.Delete(ctx, family, situationID, m.now())
}

// score turns raw inputs into full declaration rows: rate from the
// declared figures, target from the catalog for the situation's year,
// gap from both.  Absent targets default to 0 — dashboards stay
// available even when reference data is missing.
func (m *Machine) score(ctx context.Context, family model.Family, s *model.Situation, inputs []model.DeclarationInput) ([]model.Declaration, error) {
	targets, err := m.catalog.TargetsFor(ctx, family, s.StructureCode, s.Year)
	if err != nil {
		return nil, err
	}
	rows := make([]model.Declaration, 0, len(inputs))
	for _, in := range inputs {
		if strings.TrimSpace(in.IndicatorID) == "" {
			return nil, fmt.Errorf("%w: declaration without indicator id", ErrInvalidTransition)
		}
		target := targets[in.IndicatorID]
		rate := aggregate.Rate(in.Numerator, in.Denominator)
		rows = append(rows, model.Declaration{
			SituationID: s.ID,
			IndicatorID: in.IndicatorID,
			Numerator:   in.Numerator,
			Denominator: in.Denominator,
			Rate:        rate,
			Target:      target,
			Gap:         aggregate.Gap(rate, target),
		})
	}
	return rows, nil
}

// newSituationID generates a 32-hex random identifier, the same width
// the legacy data used for situation keys.
func newSituationID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// fall back to a time-derived id rather than panicking.
		return fmt.Sprintf("%032x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
