package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/performance-reporting/internal/aggregate"
	"github.com/iliyamo/performance-reporting/internal/model"
	"github.com/iliyamo/performance-reporting/internal/repository"
	"github.com/iliyamo/performance-reporting/internal/scope"
)

// DashboardHandler serves the read-only analytics views.  Every view
// is built the same way: compute the caller's scope filter, select the
// latest validated situation per structure (or per owner for DCs) for
// the requested year, pull those situations' confirmed declarations
// and roll them up with the weighted aggregator.  No view ever sums
// across periods.
type DashboardHandler struct {
	Situations   *repository.SituationRepo
	Declarations *repository.DeclarationRepo
	Structures   *repository.StructureRepo
	Catalog      *repository.CatalogRepo
	Gate         *scope.Gate
}

func NewDashboardHandler(s *repository.SituationRepo, d *repository.DeclarationRepo,
	st *repository.StructureRepo, cat *repository.CatalogRepo, g *scope.Gate) *DashboardHandler {
	return &DashboardHandler{Situations: s, Declarations: d, Structures: st, Catalog: cat, Gate: g}
}

// parseFamily reads the optional family query parameter.  Agents are
// pinned to their own family; admins and directors may inspect any.
func parseFamily(c echo.Context, p model.Principal) model.Family {
	if p.Role != model.RoleAdmin && p.Role != model.RoleDirector {
		return familyFor(p)
	}
	switch strings.ToLower(strings.TrimSpace(c.QueryParam("family"))) {
	case "strategic":
		return model.FamilyStrategic
	case "dri_self":
		return model.FamilyDRISelf
	default:
		return model.FamilyOperational
	}
}

// scopedSituations lists the situations visible to the principal for a
// year, with the DC owner narrowing applied.
func (h *DashboardHandler) scopedSituations(ctx context.Context, p model.Principal, year string) ([]model.Situation, scope.Filter, error) {
	f, err := h.Gate.FilterFor(ctx, p)
	if err != nil {
		return nil, scope.Filter{}, err
	}
	var sits []model.Situation
	if f.Scope.All {
		sits, err = h.Situations.ListAll(ctx, year)
	} else {
		sits, err = h.Situations.ListByStructures(ctx, f.Scope.Codes, year)
	}
	if err != nil {
		return nil, scope.Filter{}, err
	}
	if len(f.OwnerIDs) > 0 {
		kept := sits[:0]
		for _, s := range sits {
			if f.Allows(&s) {
				kept = append(kept, s)
			}
		}
		sits = kept
	}
	return sits, f, nil
}

// snapshotDeclarations selects the snapshot situations and returns
// their confirmed declarations flattened into one slice, plus the
// snapshot itself.
func (h *DashboardHandler) snapshotDeclarations(ctx context.Context, family model.Family,
	sits []model.Situation, key func(model.Situation) string) ([]model.Situation, []model.Declaration, error) {
	snap := aggregate.Snapshot(sits, key)
	ids := make([]string, 0, len(snap))
	for _, s := range snap {
		ids = append(ids, s.ID)
	}
	byID, err := h.Declarations.ListLiveForSituations(ctx, family, ids)
	if err != nil {
		return nil, nil, err
	}
	var decls []model.Declaration
	for _, s := range snap {
		decls = append(decls, byID[s.ID]...)
	}
	return snap, decls, nil
}

// Overview is the role dashboard: KPI cards over every visible
// situation of the year, and the weighted category rollup over the
// latest-validated snapshot.
func (h *DashboardHandler) Overview(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	year := strings.TrimSpace(c.QueryParam("year"))
	if year == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "year required"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	family := parseFamily(c, p)
	sits, _, err := h.scopedSituations(ctx, p, year)
	if err != nil {
		return domainErr(c, err)
	}

	key := aggregate.ByStructureYear
	if p.Role == model.RoleDC {
		// Several DC accounts can share one structure code; each sees
		// its own latest validated report.
		key = aggregate.ByOwnerYear
	}
	snap, decls, err := h.snapshotDeclarations(ctx, family, sits, key)
	if err != nil {
		return domainErr(c, err)
	}
	categoryOf, err := h.Catalog.CategoryIndex(ctx, family)
	if err != nil {
		return domainErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"year":       year,
		"family":     family.String(),
		"counts":     aggregate.CountByStatus(sits),
		"snapshot":   toSituationParts(snap),
		"categories": aggregate.GroupByCategory(decls, categoryOf),
		"indicators": aggregate.GroupByIndicator(decls),
	})
}

// structureRow is one structure's rollup in the comparison view.
type structureRow struct {
	StructureCode string                       `json:"structure_code"`
	Label         string                       `json:"label"`
	Month         string                       `json:"month"`
	Indicators    []aggregate.IndicatorSummary `json:"indicators"`
}

// Comparison breaks the scope down per structure: one indicator rollup
// per visible structure's snapshot situation, for side-by-side charts.
// DRIs compare their DIWs; admins and directors compare whatever their
// scope contains.
func (h *DashboardHandler) Comparison(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	year := strings.TrimSpace(c.QueryParam("year"))
	if year == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "year required"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	family := parseFamily(c, p)
	sits, _, err := h.scopedSituations(ctx, p, year)
	if err != nil {
		return domainErr(c, err)
	}
	snap := aggregate.Snapshot(sits, aggregate.ByStructureYear)
	ids := make([]string, 0, len(snap))
	for _, s := range snap {
		ids = append(ids, s.ID)
	}
	byID, err := h.Declarations.ListLiveForSituations(ctx, family, ids)
	if err != nil {
		return domainErr(c, err)
	}
	labels, err := h.Structures.LabelIndex(ctx)
	if err != nil {
		return domainErr(c, err)
	}
	rows := make([]structureRow, 0, len(snap))
	for _, s := range snap {
		label := labels[s.StructureCode]
		if label == "" {
			label = s.StructureCode
		}
		rows = append(rows, structureRow{
			StructureCode: s.StructureCode,
			Label:         label,
			Month:         s.Month,
			Indicators:    aggregate.GroupByIndicator(byID[s.ID]),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"year":       year,
		"family":     family.String(),
		"structures": rows,
	})
}
