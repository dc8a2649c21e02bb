// Package scope is the authorization gate in front of every situation
// read and mutation.  Reads are restricted to the principal's visible
// structure set; mutations additionally require ownership.  The gate
// is checked before touching data, never discovered through a later
// constraint failure.
package scope

import (
	"context"

	"github.com/iliyamo/performance-reporting/internal/hierarchy"
	"github.com/iliyamo/performance-reporting/internal/model"
	"github.com/iliyamo/performance-reporting/internal/repository"
)

// UserDirectory supplies the user lookups the DC narrowing needs.
type UserDirectory interface {
	// ListIDsByRoleAndStructure returns the ids of users holding the
	// given role at the given structure code.
	ListIDsByRoleAndStructure(ctx context.Context, role, structureCode string) ([]uint64, error)
}

// Filter is the situation predicate computed for a principal: which
// structure codes are visible, and optionally which owner ids.  An
// empty OwnerIDs slice means no owner restriction.
type Filter struct {
	Scope    hierarchy.Scope
	OwnerIDs []uint64
}

// Allows reports whether one situation passes the filter.
func (f Filter) Allows(s *model.Situation) bool {
	if !f.Scope.Contains(s.StructureCode) {
		return false
	}
	if len(f.OwnerIDs) == 0 {
		return true
	}
	for _, id := range f.OwnerIDs {
		if id == s.OwnerID {
			return true
		}
	}
	return false
}

// Gate builds Filters and enforces ownership on mutations.
type Gate struct {
	resolver *hierarchy.Resolver
	users    UserDirectory
}

// NewGate wires the gate to the hierarchy resolver and user directory.
func NewGate(resolver *hierarchy.Resolver, users UserDirectory) *Gate {
	return &Gate{resolver: resolver, users: users}
}

// FilterFor computes the situation filter for a principal.  DC agents
// get an extra owner narrowing: a DC structure code can be shared by
// co-located director or admin accounts, so a DC agent only sees
// situations owned by DC-role users at the same code.
func (g *Gate) FilterFor(ctx context.Context, p model.Principal) (Filter, error) {
	sc, err := g.resolver.VisibleCodes(ctx, p)
	if err != nil {
		return Filter{}, err
	}
	f := Filter{Scope: sc}
	if p.Role == model.RoleDC {
		ids, err := g.users.ListIDsByRoleAndStructure(ctx, model.RoleDC, p.Home.Code)
		if err != nil {
			return Filter{}, err
		}
		f.OwnerIDs = ids
	}
	return f, nil
}

// CanRead returns ErrForbidden when the situation is outside the
// principal's filter, ErrNotFound when the situation is nil.  Used by
// consult/review endpoints and by validators, who need scope
// membership but never ownership.
func (g *Gate) CanRead(ctx context.Context, p model.Principal, s *model.Situation) error {
	if s == nil {
		return repository.ErrNotFound
	}
	f, err := g.FilterFor(ctx, p)
	if err != nil {
		return err
	}
	if !f.Allows(s) {
		return repository.ErrForbidden
	}
	return nil
}

// RequireOwner returns ErrForbidden unless the principal owns the
// situation.  Structure-level visibility is necessary but not
// sufficient for mutation; ownership is always required for SaveDraft,
// Confirm and Delete.
func RequireOwner(p model.Principal, s *model.Situation) error {
	if s == nil {
		return repository.ErrNotFound
	}
	if s.OwnerID != p.UserID {
		return repository.ErrForbidden
	}
	return nil
}
