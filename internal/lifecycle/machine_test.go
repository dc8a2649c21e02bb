package lifecycle

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/performance-reporting/internal/model"
	"github.com/iliyamo/performance-reporting/internal/repository"
)

// fakeStore is an in-memory Store honoring the same contracts as the
// MySQL implementation: atomic row swaps and guarded status flips.
type fakeStore struct {
	sits       map[string]*model.Situation
	live       map[string][]model.Declaration
	drafts     map[string][]model.Declaration
	rejections []model.Rejection
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sits:   map[string]*model.Situation{},
		live:   map[string][]model.Declaration{},
		drafts: map[string][]model.Declaration{},
	}
}

func (f *fakeStore) Get(_ context.Context, id string) (*model.Situation, error) {
	s, ok := f.sits[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) ExistsForPeriod(_ context.Context, structureCode, month, year string) (bool, error) {
	for _, s := range f.sits {
		if s.StructureCode == structureCode && strings.EqualFold(s.Month, month) && s.Year == year {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) Insert(_ context.Context, s *model.Situation) error {
	cp := *s
	f.sits[s.ID] = &cp
	return nil
}

func (f *fakeStore) ReplaceDrafts(_ context.Context, _ model.Family, id string, rows []model.Declaration, editedAt time.Time) error {
	f.drafts[id] = rows
	f.sits[id].EditedAt = &editedAt
	return nil
}

func (f *fakeStore) Promote(_ context.Context, _ model.Family, id string, rows []model.Declaration, confirmedAt time.Time) error {
	s := f.sits[id]
	if !s.Status.Editable() {
		return ErrConcurrency
	}
	delete(f.drafts, id)
	f.live[id] = rows
	s.Status = model.StatusSubmitted
	s.ConfirmedAt = &confirmedAt
	return nil
}

func (f *fakeStore) Demote(_ context.Context, _ model.Family, id string, rej model.Rejection) error {
	s := f.sits[id]
	if s.Status != model.StatusSubmitted {
		return ErrConcurrency
	}
	f.drafts[id] = f.live[id]
	delete(f.live, id)
	f.rejections = append(f.rejections, rej)
	s.Status = model.StatusRejected
	at := rej.RejectedAt
	s.EditedAt = &at
	return nil
}

func (f *fakeStore) MarkValidated(_ context.Context, id string, by model.Validator, at time.Time) error {
	s := f.sits[id]
	if s.Status != model.StatusSubmitted {
		return ErrConcurrency
	}
	s.Status = model.StatusValidated
	if by == model.ValidatorAdmin {
		s.AdminValidatedAt = &at
	} else {
		s.DRIValidatedAt = &at
	}
	return nil
}

func (f *fakeStore) Delete(_ context.Context, _ model.Family, id string, _ time.Time) error {
	delete(f.sits, id)
	delete(f.drafts, id)
	return nil
}

// fakeCatalog serves the same targets for every family and structure.
type fakeCatalog struct{ targets map[string]float64 }

func (f fakeCatalog) TargetsFor(context.Context, model.Family, string, string) (map[string]float64, error) {
	return f.targets, nil
}

var (
	owner    = model.Principal{UserID: 1, Role: model.RoleDIW, Home: model.Assignment{Kind: model.KindDIW, Code: "W1"}}
	stranger = model.Principal{UserID: 2, Role: model.RoleDIW, Home: model.Assignment{Kind: model.KindDIW, Code: "W2"}}
	reviewer = model.Principal{UserID: 3, Role: model.RoleDRI, Home: model.Assignment{Kind: model.KindDRI, Code: "R1"}}
)

func newTestMachine(targets map[string]float64) (*Machine, *fakeStore) {
	store := newFakeStore()
	m := NewMachine(store, fakeCatalog{targets: targets}).
		WithClock(func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) })
	return m, store
}

func mustCreate(t *testing.T, m *Machine) *model.Situation {
	t.Helper()
	s, err := m.Create(context.Background(), owner, "W1", "Mars", "2025")
	require.NoError(t, err)
	return s
}

func TestCreate(t *testing.T) {
	m, store := newTestMachine(nil)
	s := mustCreate(t, m)

	assert.Equal(t, model.StatusDraft, s.Status)
	assert.Equal(t, owner.UserID, s.OwnerID)
	assert.Len(t, s.ID, 32)
	assert.Contains(t, store.sits, s.ID)
}

func TestCreateDuplicatePeriod(t *testing.T) {
	m, _ := newTestMachine(nil)
	mustCreate(t, m)

	_, err := m.Create(context.Background(), owner, "W1", "mars", "2025")
	assert.ErrorIs(t, err, ErrInvalidTransition, "month comparison is case-insensitive")

	_, err = m.Create(context.Background(), owner, "W1", "Avril", "2025")
	assert.NoError(t, err, "another month of the same year is free")
}

func TestCreateRequiresPeriod(t *testing.T) {
	m, _ := newTestMachine(nil)
	_, err := m.Create(context.Background(), owner, "W1", " ", "2025")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSaveDraftScoresRows(t *testing.T) {
	m, store := newTestMachine(map[string]float64{"A.1": 80})
	s := mustCreate(t, m)

	err := m.SaveDraft(context.Background(), owner, model.FamilyOperational, s.ID,
		[]model.DeclarationInput{{IndicatorID: "A.1", Numerator: 45, Denominator: 50}})
	require.NoError(t, err)

	rows := store.drafts[s.ID]
	require.Len(t, rows, 1)
	assert.Equal(t, 90.0, rows[0].Rate)
	assert.Equal(t, 80.0, rows[0].Target)
	assert.Equal(t, 10.0, rows[0].Gap)
	assert.NotNil(t, store.sits[s.ID].EditedAt)
}

func TestSaveDraftOwnerOnly(t *testing.T) {
	m, _ := newTestMachine(nil)
	s := mustCreate(t, m)

	err := m.SaveDraft(context.Background(), stranger, model.FamilyOperational, s.ID,
		[]model.DeclarationInput{{IndicatorID: "A.1"}})
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestConfirm(t *testing.T) {
	m, store := newTestMachine(map[string]float64{"A.1": 80})
	s := mustCreate(t, m)

	err := m.Confirm(context.Background(), owner, model.FamilyOperational, s.ID,
		[]model.DeclarationInput{{IndicatorID: "A.1", Numerator: 40, Denominator: 50}})
	require.NoError(t, err)

	assert.Equal(t, model.StatusSubmitted, store.sits[s.ID].Status)
	assert.NotNil(t, store.sits[s.ID].ConfirmedAt)
	require.Len(t, store.live[s.ID], 1)
	assert.Equal(t, 80.0, store.live[s.ID][0].Rate)
	assert.Empty(t, store.drafts[s.ID], "drafts are cleared on confirm")
}

func TestConfirmMissingTargetDefaultsToZero(t *testing.T) {
	m, store := newTestMachine(nil)
	s := mustCreate(t, m)

	err := m.Confirm(context.Background(), owner, model.FamilyOperational, s.ID,
		[]model.DeclarationInput{{IndicatorID: "A.9", Numerator: 1, Denominator: 2}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, store.live[s.ID][0].Target)
	assert.Equal(t, 50.0, store.live[s.ID][0].Gap)
}

func TestConfirmRejectsEmptyAndForeign(t *testing.T) {
	m, _ := newTestMachine(nil)
	s := mustCreate(t, m)

	err := m.Confirm(context.Background(), owner, model.FamilyOperational, s.ID, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	err = m.Confirm(context.Background(), stranger, model.FamilyOperational, s.ID,
		[]model.DeclarationInput{{IndicatorID: "A.1"}})
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestConfirmOnlyFromEditableStates(t *testing.T) {
	m, store := newTestMachine(nil)
	s := mustCreate(t, m)
	inputs := []model.DeclarationInput{{IndicatorID: "A.1", Numerator: 1, Denominator: 2}}

	require.NoError(t, m.Confirm(context.Background(), owner, model.FamilyOperational, s.ID, inputs))
	err := m.Confirm(context.Background(), owner, model.FamilyOperational, s.ID, inputs)
	assert.ErrorIs(t, err, ErrInvalidTransition, "submitted situations cannot be re-confirmed")

	store.sits[s.ID].Status = model.StatusValidated
	err = m.Confirm(context.Background(), owner, model.FamilyOperational, s.ID, inputs)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestValidateStampsByAuthority(t *testing.T) {
	m, store := newTestMachine(nil)
	s := mustCreate(t, m)
	inputs := []model.DeclarationInput{{IndicatorID: "A.1", Numerator: 1, Denominator: 2}}
	require.NoError(t, m.Confirm(context.Background(), owner, model.FamilyOperational, s.ID, inputs))

	require.NoError(t, m.Validate(context.Background(), s.ID, model.ValidatorDRI))
	assert.Equal(t, model.StatusValidated, store.sits[s.ID].Status)
	assert.NotNil(t, store.sits[s.ID].DRIValidatedAt)
	assert.Nil(t, store.sits[s.ID].AdminValidatedAt)

	err := m.Validate(context.Background(), s.ID, model.ValidatorDRI)
	assert.ErrorIs(t, err, ErrInvalidTransition, "validation is terminal")
}

func TestValidateAdminStamp(t *testing.T) {
	m, store := newTestMachine(nil)
	s := mustCreate(t, m)
	inputs := []model.DeclarationInput{{IndicatorID: "5", Numerator: 1, Denominator: 2}}
	require.NoError(t, m.Confirm(context.Background(), owner, model.FamilyDRISelf, s.ID, inputs))

	require.NoError(t, m.Validate(context.Background(), s.ID, model.ValidatorAdmin))
	assert.NotNil(t, store.sits[s.ID].AdminValidatedAt)
	assert.Nil(t, store.sits[s.ID].DRIValidatedAt)
}

func TestValidateRequiresSubmitted(t *testing.T) {
	m, _ := newTestMachine(nil)
	s := mustCreate(t, m)
	err := m.Validate(context.Background(), s.ID, model.ValidatorDRI)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRejectRoundTripsFigures(t *testing.T) {
	m, store := newTestMachine(map[string]float64{"A.1": 80})
	s := mustCreate(t, m)
	inputs := []model.DeclarationInput{{IndicatorID: "A.1", Numerator: 40, Denominator: 50}}
	require.NoError(t, m.Confirm(context.Background(), owner, model.FamilyOperational, s.ID, inputs))

	err := m.Reject(context.Background(), reviewer, model.FamilyOperational, s.ID, "chiffres incohérents")
	require.NoError(t, err)

	assert.Equal(t, model.StatusRejected, store.sits[s.ID].Status)
	assert.Empty(t, store.live[s.ID], "live rows move out on rejection")
	require.Len(t, store.drafts[s.ID], 1, "figures survive in the draft table")
	assert.Equal(t, 40.0, store.drafts[s.ID][0].Numerator)

	require.Len(t, store.rejections, 1)
	assert.Equal(t, "chiffres incohérents", store.rejections[0].Comment)
	assert.Equal(t, reviewer.UserID, store.rejections[0].RejectedBy)

	// The owner can rework and resubmit.
	require.NoError(t, m.Confirm(context.Background(), owner, model.FamilyOperational, s.ID, inputs))
	assert.Equal(t, model.StatusSubmitted, store.sits[s.ID].Status)
}

func TestRejectCommentMandatory(t *testing.T) {
	m, store := newTestMachine(nil)
	s := mustCreate(t, m)
	inputs := []model.DeclarationInput{{IndicatorID: "A.1", Numerator: 1, Denominator: 2}}
	require.NoError(t, m.Confirm(context.Background(), owner, model.FamilyOperational, s.ID, inputs))

	err := m.Reject(context.Background(), reviewer, model.FamilyOperational, s.ID, "   ")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, model.StatusSubmitted, store.sits[s.ID].Status, "no state change without a motive")
	assert.Empty(t, store.rejections)
}

func TestRejectRequiresSubmitted(t *testing.T) {
	m, _ := newTestMachine(nil)
	s := mustCreate(t, m)
	err := m.Reject(context.Background(), reviewer, model.FamilyOperational, s.ID, "motif")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDelete(t *testing.T) {
	m, store := newTestMachine(nil)
	s := mustCreate(t, m)

	err := m.Delete(context.Background(), stranger, model.FamilyOperational, s.ID)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	require.NoError(t, m.Delete(context.Background(), owner, model.FamilyOperational, s.ID))
	assert.NotContains(t, store.sits, s.ID)
}

func TestDeleteOnlyEditable(t *testing.T) {
	m, _ := newTestMachine(nil)
	s := mustCreate(t, m)
	inputs := []model.DeclarationInput{{IndicatorID: "A.1", Numerator: 1, Denominator: 2}}
	require.NoError(t, m.Confirm(context.Background(), owner, model.FamilyOperational, s.ID, inputs))

	err := m.Delete(context.Background(), owner, model.FamilyOperational, s.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestScoreRejectsBlankIndicator(t *testing.T) {
	m, _ := newTestMachine(nil)
	s := mustCreate(t, m)
	err := m.Confirm(context.Background(), owner, model.FamilyOperational, s.ID,
		[]model.DeclarationInput{{IndicatorID: " ", Numerator: 1, Denominator: 2}})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
