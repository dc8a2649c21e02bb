package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/performance-reporting/internal/hierarchy"
	"github.com/iliyamo/performance-reporting/internal/model"
	"github.com/iliyamo/performance-reporting/internal/repository"
)

// fakeDirectory is an in-memory hierarchy.StructureDirectory keyed by
// code.
type fakeDirectory struct {
	dcs  map[string]model.Structure
	dris map[string]model.Structure
	diws map[string]model.Structure
}

func (d fakeDirectory) find(m map[string]model.Structure, code string) (*model.Structure, error) {
	s, ok := m[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (d fakeDirectory) FindDC(_ context.Context, code string) (*model.Structure, error) {
	return d.find(d.dcs, code)
}

func (d fakeDirectory) FindDRI(_ context.Context, code string) (*model.Structure, error) {
	return d.find(d.dris, code)
}

func (d fakeDirectory) FindDIW(_ context.Context, code string) (*model.Structure, error) {
	return d.find(d.diws, code)
}

func (d fakeDirectory) ListDIWsByDRI(_ context.Context, driCode string) ([]model.Structure, error) {
	var out []model.Structure
	for _, s := range d.diws {
		if s.ParentDRI == driCode {
			out = append(out, s)
		}
	}
	return out, nil
}

func testResolver() *hierarchy.Resolver {
	return hierarchy.NewResolver(fakeDirectory{
		dcs:  map[string]model.Structure{"DC1": {Code: "DC1", Label: "Direction Centrale 1"}},
		dris: map[string]model.Structure{"R1": {Code: "R1", Label: "DRI Alger"}},
		diws: map[string]model.Structure{"W1": {Code: "W1", Label: "DIW Alger", ParentDRI: "R1"}},
	})
}

func TestFamilyFor(t *testing.T) {
	assert.Equal(t, model.FamilyOperational, familyFor(model.Principal{Role: model.RoleDIW}))
	assert.Equal(t, model.FamilyDRISelf, familyFor(model.Principal{Role: model.RoleDRI}))
	assert.Equal(t, model.FamilyStrategic, familyFor(model.Principal{Role: model.RoleDC}))
}

// The family a situation's declarations live in follows the situation's
// structure, never the reader.  A DRI consulting a child DIW's
// situation must read the operational tables, not its own self-report
// tables; an admin reviewing anything must land on the submitter's
// tables.
func TestFamilyOfFollowsStructure(t *testing.T) {
	r := testResolver()
	ctx := context.Background()

	cases := []struct {
		code string
		want model.Family
	}{
		{"W1", model.FamilyOperational},
		{"R1", model.FamilyDRISelf},
		{"DC1", model.FamilyStrategic},
	}
	for _, tc := range cases {
		family, err := familyOf(ctx, r, &model.Situation{StructureCode: tc.code})
		require.NoError(t, err)
		assert.Equal(t, tc.want, family, "structure %s", tc.code)
	}
}

func TestFamilyOfUnknownStructureIsOperational(t *testing.T) {
	family, err := familyOf(context.Background(), testResolver(), &model.Situation{StructureCode: "nope"})
	require.NoError(t, err)
	assert.Equal(t, model.FamilyOperational, family)
}
