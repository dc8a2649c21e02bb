package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/performance-reporting/internal/aggregate"
	"github.com/iliyamo/performance-reporting/internal/model"
	"github.com/iliyamo/performance-reporting/internal/report"
	"github.com/iliyamo/performance-reporting/internal/repository"
	"github.com/iliyamo/performance-reporting/internal/scope"
)

// ReportHandler exports the aggregated analysis as a downloadable
// file.  The export carries exactly what the dashboard shows for the
// same filters: the latest-validated snapshot, weighted rollup,
// display names instead of codes.
type ReportHandler struct {
	Situations   *repository.SituationRepo
	Declarations *repository.DeclarationRepo
	Structures   *repository.StructureRepo
	Catalog      *repository.CatalogRepo
	Gate         *scope.Gate
	Generator    report.Generator
}

func NewReportHandler(s *repository.SituationRepo, d *repository.DeclarationRepo,
	st *repository.StructureRepo, cat *repository.CatalogRepo, g *scope.Gate, gen report.Generator) *ReportHandler {
	return &ReportHandler{Situations: s, Declarations: d, Structures: st, Catalog: cat, Gate: g, Generator: gen}
}

// Export streams a CSV of the scoped analysis.  Query parameters:
// year (required), structure, category, month and family (admins and
// directors only) narrow the export; a structure outside the caller's
// scope is a 403.
func (h *ReportHandler) Export(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	year := strings.TrimSpace(c.QueryParam("year"))
	if year == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "year required"})
	}
	rctx := report.Context{
		StructureCode: strings.TrimSpace(c.QueryParam("structure")),
		CategoryID:    strings.TrimSpace(c.QueryParam("category")),
		Month:         strings.TrimSpace(c.QueryParam("month")),
		Year:          year,
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	family := parseFamily(c, p)
	f, err := h.Gate.FilterFor(ctx, p)
	if err != nil {
		return domainErr(c, err)
	}
	if rctx.StructureCode != "" && !f.Scope.Contains(rctx.StructureCode) {
		return domainErr(c, repository.ErrForbidden)
	}

	var sits []model.Situation
	switch {
	case rctx.StructureCode != "":
		sits, err = h.Situations.ListByStructures(ctx, []string{rctx.StructureCode}, year)
	case f.Scope.All:
		sits, err = h.Situations.ListAll(ctx, year)
	default:
		sits, err = h.Situations.ListByStructures(ctx, f.Scope.Codes, year)
	}
	if err != nil {
		return domainErr(c, err)
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
	if rctx.Month != "" {
		kept := sits[:0]
		for _, s := range sits {
			if s.SamePeriod(rctx.Month, year) {
				kept = append(kept, s)
			}
		}
		sits = kept
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
	var decls []model.Declaration
	for _, s := range snap {
		decls = append(decls, byID[s.ID]...)
	}
	categoryOf, err := h.Catalog.CategoryIndex(ctx, family)
	if err != nil {
		return domainErr(c, err)
	}
	cats := aggregate.GroupByCategory(decls, categoryOf)
	if rctx.CategoryID != "" {
		kept := cats[:0]
		for _, cat := range cats {
			if cat.CategoryID == rctx.CategoryID {
				kept = append(kept, cat)
			}
		}
		cats = kept
	}

	indicatorNames, categoryNames, err := h.Catalog.LabelIndexes(ctx, family)
	if err != nil {
		return domainErr(c, err)
	}
	structureNames, err := h.Structures.LabelIndex(ctx)
	if err != nil {
		return domainErr(c, err)
	}
	names := report.NameIndex{
		Indicators: indicatorNames,
		Categories: categoryNames,
		Structures: structureNames,
	}
	if family == model.FamilyStrategic {
		byIndicator, labels, err := h.Catalog.ObjectiveIndexes(ctx)
		if err != nil {
			return domainErr(c, err)
		}
		names.IndicatorObjectives = byIndicator
		names.Objectives = labels
	}

	rows := report.Assemble(cats, names, rctx.StructureCode)
	body, err := h.Generator.Generate(rows, report.FilterSummary(rctx, names))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "generate report failed"})
	}

	fname := report.FileName("analyse", rctx, "csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+fname+`"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", body)
}
