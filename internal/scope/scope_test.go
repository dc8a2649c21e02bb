package scope

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/performance-reporting/internal/hierarchy"
	"github.com/iliyamo/performance-reporting/internal/model"
	"github.com/iliyamo/performance-reporting/internal/repository"
)

// fakeStructures is the minimal directory the resolver needs: one DRI
// with two DIW children plus one DC.
type fakeStructures struct{}

func (fakeStructures) FindDC(_ context.Context, code string) (*model.Structure, error) {
	if code == "DC1" {
		return &model.Structure{Code: "DC1", Label: "DC 1"}, nil
	}
	return nil, repository.ErrNotFound
}

func (fakeStructures) FindDRI(_ context.Context, code string) (*model.Structure, error) {
	if code == "R1" {
		return &model.Structure{Code: "R1", Label: "DRI 1"}, nil
	}
	return nil, repository.ErrNotFound
}

func (fakeStructures) FindDIW(_ context.Context, code string) (*model.Structure, error) {
	if code == "W1" || code == "W2" {
		return &model.Structure{Code: code, ParentDRI: "R1"}, nil
	}
	return nil, repository.ErrNotFound
}

func (fakeStructures) ListDIWsByDRI(_ context.Context, driCode string) ([]model.Structure, error) {
	if driCode == "R1" {
		return []model.Structure{{Code: "W1", ParentDRI: "R1"}, {Code: "W2", ParentDRI: "R1"}}, nil
	}
	return nil, nil
}

// fakeUsers answers the DC owner narrowing.
type fakeUsers struct{ byStructure map[string][]uint64 }

func (f fakeUsers) ListIDsByRoleAndStructure(_ context.Context, role, code string) ([]uint64, error) {
	return f.byStructure[role+"/"+code], nil
}

func newTestGate(users fakeUsers) *Gate {
	return NewGate(hierarchy.NewResolver(fakeStructures{}), users)
}

func TestFilterAllows(t *testing.T) {
	f := Filter{Scope: hierarchy.Scope{Codes: []string{"W1"}}}
	assert.True(t, f.Allows(&model.Situation{StructureCode: "W1"}))
	assert.False(t, f.Allows(&model.Situation{StructureCode: "W2"}))

	f.OwnerIDs = []uint64{7}
	assert.True(t, f.Allows(&model.Situation{StructureCode: "W1", OwnerID: 7}))
	assert.False(t, f.Allows(&model.Situation{StructureCode: "W1", OwnerID: 8}),
		"owner narrowing applies on top of structure visibility")
}

func TestFilterForDCNarrowsToOwners(t *testing.T) {
	g := newTestGate(fakeUsers{byStructure: map[string][]uint64{"DC/DC1": {5, 6}}})
	p := model.Principal{UserID: 5, Role: model.RoleDC, Home: model.Assignment{Kind: model.KindDC, Code: "DC1"}}

	f, err := g.FilterFor(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"DC1"}, f.Scope.Codes)
	assert.Equal(t, []uint64{5, 6}, f.OwnerIDs)
}

func TestFilterForDRINoOwnerNarrowing(t *testing.T) {
	g := newTestGate(fakeUsers{})
	p := model.Principal{UserID: 3, Role: model.RoleDRI, Home: model.Assignment{Kind: model.KindDRI, Code: "R1"}}

	f, err := g.FilterFor(context.Background(), p)
	require.NoError(t, err)
	assert.Empty(t, f.OwnerIDs)
	assert.True(t, f.Scope.Contains("W2"))
}

func TestCanRead(t *testing.T) {
	g := newTestGate(fakeUsers{})
	dri := model.Principal{UserID: 3, Role: model.RoleDRI, Home: model.Assignment{Kind: model.KindDRI, Code: "R1"}}

	err := g.CanRead(context.Background(), dri, &model.Situation{StructureCode: "W1", OwnerID: 9})
	assert.NoError(t, err, "scope membership suffices for reads, ownership does not matter")

	err = g.CanRead(context.Background(), dri, &model.Situation{StructureCode: "DC1"})
	assert.ErrorIs(t, err, repository.ErrForbidden)

	err = g.CanRead(context.Background(), dri, nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRequireOwner(t *testing.T) {
	p := model.Principal{UserID: 4}
	assert.NoError(t, RequireOwner(p, &model.Situation{OwnerID: 4}))
	assert.ErrorIs(t, RequireOwner(p, &model.Situation{OwnerID: 5}), repository.ErrForbidden)
	assert.ErrorIs(t, RequireOwner(p, nil), repository.ErrNotFound)
}
