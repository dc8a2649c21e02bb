package hierarchy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/performance-reporting/internal/model"
	"github.com/iliyamo/performance-reporting/internal/repository"
)

// fakeDirectory is an in-memory StructureDirectory keyed by code.
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

func testDirectory() fakeDirectory {
	return fakeDirectory{
		dcs: map[string]model.Structure{
			"DC1": {Code: "DC1", Label: "Direction Centrale 1"},
		},
		dris: map[string]model.Structure{
			"R1": {Code: "R1", Label: "DRI Alger"},
		},
		diws: map[string]model.Structure{
			"W1": {Code: "W1", Label: "DIW Alger", ParentDRI: "R1"},
			"W2": {Code: "W2", Label: "DIW Blida", ParentDRI: "R1"},
			"W3": {Code: "W3", Label: "DIW Oran", ParentDRI: "R2"},
		},
	}
}

func TestResolveClassification(t *testing.T) {
	r := NewResolver(testDirectory())
	ctx := context.Background()

	kind, label, err := r.Resolve(ctx, "DC1")
	require.NoError(t, err)
	assert.Equal(t, model.KindDC, kind)
	assert.Equal(t, "Direction Centrale 1", label)

	kind, _, err = r.Resolve(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, model.KindDRI, kind)

	kind, _, err = r.Resolve(ctx, "W2")
	require.NoError(t, err)
	assert.Equal(t, model.KindDIW, kind)

	kind, label, err = r.Resolve(ctx, "nope")
	require.NoError(t, err, "unknown codes are not an error")
	assert.Equal(t, model.KindUnknown, kind)
	assert.Empty(t, label)
}

func TestVisibleCodesDIW(t *testing.T) {
	r := NewResolver(testDirectory())
	p := model.Principal{Role: model.RoleDIW, Home: model.Assignment{Kind: model.KindDIW, Code: "W1"}}

	sc, err := r.VisibleCodes(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, sc.All)
	assert.Equal(t, []string{"W1"}, sc.Codes)
	assert.True(t, sc.Contains("W1"))
	assert.False(t, sc.Contains("W2"))
}

func TestVisibleCodesDRIIncludesChildren(t *testing.T) {
	r := NewResolver(testDirectory())
	p := model.Principal{Role: model.RoleDRI, Home: model.Assignment{Kind: model.KindDRI, Code: "R1"}}

	sc, err := r.VisibleCodes(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, sc.All)
	assert.True(t, sc.Contains("R1"), "a DRI sees its own self-reports")
	assert.True(t, sc.Contains("W1"))
	assert.True(t, sc.Contains("W2"))
	assert.False(t, sc.Contains("W3"), "W3 belongs to another DRI")
	assert.False(t, sc.Contains("DC1"))
}

func TestVisibleCodesDC(t *testing.T) {
	r := NewResolver(testDirectory())
	p := model.Principal{Role: model.RoleDC, Home: model.Assignment{Kind: model.KindDC, Code: "DC1"}}

	sc, err := r.VisibleCodes(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"DC1"}, sc.Codes)
}

func TestVisibleCodesAdminUnrestricted(t *testing.T) {
	r := NewResolver(testDirectory())

	for _, p := range []model.Principal{
		{Role: model.RoleAdmin, Home: model.Assignment{Kind: model.KindGlobal}},
		{Role: model.RoleDirector, IsSuperAdmin: true, Home: model.Assignment{Kind: model.KindDC, Code: "DC1"}},
	} {
		sc, err := r.VisibleCodes(context.Background(), p)
		require.NoError(t, err)
		assert.True(t, sc.All)
		assert.True(t, sc.Contains("anything"))
	}
}

func TestVisibleCodesDirectorFollowsHomeKind(t *testing.T) {
	r := NewResolver(testDirectory())

	p := model.Principal{Role: model.RoleDirector, Home: model.Assignment{Kind: model.KindDRI, Code: "R1"}}
	sc, err := r.VisibleCodes(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, sc.Contains("W1"), "a director homed at a DRI reads like that DRI")

	p = model.Principal{Role: model.RoleDirector, Home: model.Assignment{Kind: model.KindDIW, Code: "W3"}}
	sc, err = r.VisibleCodes(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"W3"}, sc.Codes)
}
