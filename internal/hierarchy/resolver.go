// Package hierarchy classifies structure codes and computes which
// structures a principal may see.  The network is two levels deep at
// most: DRIs manage DIWs, while DCs stand alone.
package hierarchy

import (
	"context"
	"errors"

	"github.com/iliyamo/performance-reporting/internal/model"
	"github.com/iliyamo/performance-reporting/internal/repository"
)

// StructureDirectory is the read access the resolver needs.  The MySQL
// StructureRepo implements it; tests use an in-memory map.
type StructureDirectory interface {
	// FindDC/FindDRI/FindDIW return the structure row for a code, or
	// repository.ErrNotFound when no such row exists.
	FindDC(ctx context.Context, code string) (*model.Structure, error)
	FindDRI(ctx context.Context, code string) (*model.Structure, error)
	FindDIW(ctx context.Context, code string) (*model.Structure, error)
	// ListDIWsByDRI returns every DIW whose parent is the given DRI.
	ListDIWsByDRI(ctx context.Context, driCode string) ([]model.Structure, error)
}

// Resolver answers "what kind of structure is this code" and "which
// codes can this principal see".
type Resolver struct {
	dir StructureDirectory
}

// NewResolver returns a Resolver backed by the given directory.
func NewResolver(dir StructureDirectory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve classifies a structure code.  Lookup order is DC, then DRI,
// then DIW; codes are kept disjoint across the three tables at
// creation time, so the order only matters for legacy rows that
// predate that check.  An unmatched code resolves to KindUnknown with
// no label rather than an error.
func (r *Resolver) Resolve(ctx context.Context, code string) (model.StructureKind, string, error) {
	if s, err := r.dir.FindDC(ctx, code); err == nil {
		return model.KindDC, s.Label, nil
	} else if !isNotFound(err) {
		return model.KindUnknown, "", err
	}
	if s, err := r.dir.FindDRI(ctx, code); err == nil {
		return model.KindDRI, s.Label, nil
	} else if !isNotFound(err) {
		return model.KindUnknown, "", err
	}
	if s, err := r.dir.FindDIW(ctx, code); err == nil {
		return model.KindDIW, s.Label, nil
	} else if !isNotFound(err) {
		return model.KindUnknown, "", err
	}
	return model.KindUnknown, "", nil
}

// Scope is the structure visibility computed for a principal.  All
// set means every structure is visible (admins); otherwise Codes
// holds the exact visible set.
type Scope struct {
	All   bool
	Codes []string
}

// Contains reports whether a structure code falls inside the scope.
func (s Scope) Contains(code string) bool {
	if s.All {
		return true
	}
	for _, c := range s.Codes {
		if c == code {
			return true
		}
	}
	return false
}

// VisibleCodes computes the structure codes a principal may see:
//
//  DIW agent      – its own structure only.
//  DRI agent      – its own structure plus every child DIW.
//  DC agent       – its own structure only (DCs have no children).
//  Director       – follows whatever its home assignment resolved to
//                   at login: DRI homes behave like a DRI agent, DC
//                   like a DC agent, anything else like a DIW agent.
//  Admin / global – unrestricted.
func (r *Resolver) VisibleCodes(ctx context.Context, p model.Principal) (Scope, error) {
	if p.Role == model.RoleAdmin || p.IsSuperAdmin || p.Home.Global() {
		return Scope{All: true}, nil
	}

	kind := p.Home.Kind
	if p.Role == model.RoleDIW {
		kind = model.KindDIW
	} else if p.Role == model.RoleDC {
		kind = model.KindDC
	} else if p.Role == model.RoleDRI {
		kind = model.KindDRI
	}

	switch kind {
	case model.KindDRI:
		children, err := r.dir.ListDIWsByDRI(ctx, p.Home.Code)
		if err != nil {
			return Scope{}, err
		}
		codes := make([]string, 0, len(children)+1)
		codes = append(codes, p.Home.Code)
		for _, c := range children {
			codes = append(codes, c.Code)
		}
		return Scope{Codes: codes}, nil
	default:
		// DIW, DC and unresolved homes all see exactly themselves.
		return Scope{Codes: []string{p.Home.Code}}, nil
	}
}

func isNotFound(err error) bool { return errors.Is(err, repository.ErrNotFound) }
