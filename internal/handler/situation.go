package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/performance-reporting/internal/aggregate"
	"github.com/iliyamo/performance-reporting/internal/hierarchy"
	"github.com/iliyamo/performance-reporting/internal/lifecycle"
	"github.com/iliyamo/performance-reporting/internal/model"
	"github.com/iliyamo/performance-reporting/internal/queue"
	"github.com/iliyamo/performance-reporting/internal/repository"
	"github.com/iliyamo/performance-reporting/internal/scope"
)

// SituationHandler serves the data-entry side of the approval chain:
// creating a period, saving drafts, confirming, deleting and
// consulting situations.  The same handler serves DIW, DRI and DC
// agents; only the declaration family differs, derived from the
// caller's role on writes and from the situation's structure on reads.
type SituationHandler struct {
	Machine      *lifecycle.Machine
	Situations   *repository.SituationRepo
	Declarations *repository.DeclarationRepo
	Rejections   *repository.RejectionRepo
	Catalog      *repository.CatalogRepo
	Resolver     *hierarchy.Resolver
	Gate         *scope.Gate
}

func NewSituationHandler(m *lifecycle.Machine, s *repository.SituationRepo, d *repository.DeclarationRepo,
	rej *repository.RejectionRepo, cat *repository.CatalogRepo, r *hierarchy.Resolver, g *scope.Gate) *SituationHandler {
	return &SituationHandler{Machine: m, Situations: s, Declarations: d, Rejections: rej, Catalog: cat, Resolver: r, Gate: g}
}

type createSituationReq struct {
	Month string `json:"month"`
	Year  string `json:"year"`
}

type declarationsReq struct {
	Declarations []model.DeclarationInput `json:"declarations"`
}

// Create opens a new Draft for (home structure, month, year).  The
// month must be a French month name; the period must be free.
func (h *SituationHandler) Create(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createSituationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if model.MonthNumber(req.Month) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown month"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	s, err := h.Machine.Create(ctx, p, p.Home.Code, req.Month, req.Year)
	if err != nil {
		return domainErr(c, err)
	}
	return c.JSON(http.StatusCreated, toSituationPart(*s))
}

// List returns the caller's own situations, newest first.
func (h *SituationHandler) List(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	sits, err := h.Situations.ListByOwner(ctx, p.UserID)
	if err != nil {
		return domainErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"situations": toSituationParts(sits),
		"counts":     aggregate.CountByStatus(sits),
	})
}

// Get returns one situation with its live rows, draft rows and full
// rejection history.  Owners and anyone holding scope over the
// structure may read it.
func (h *SituationHandler) Get(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	s, err := h.Situations.Get(ctx, c.Param("id"))
	if err != nil {
		return domainErr(c, err)
	}
	if s.OwnerID != p.UserID {
		if err := h.Gate.CanRead(ctx, p, s); err != nil {
			return domainErr(c, err)
		}
	}
	// The declaration family follows the situation's structure, not the
	// reader: a DRI consulting a child DIW reads operational tables.
	family, err := familyOf(ctx, h.Resolver, s)
	if err != nil {
		return domainErr(c, err)
	}
	live, err := h.Declarations.ListLive(ctx, family, s.ID)
	if err != nil {
		return domainErr(c, err)
	}
	drafts, err := h.Declarations.ListDrafts(ctx, family, s.ID)
	if err != nil {
		return domainErr(c, err)
	}
	rejections, err := h.Rejections.ListBySituation(ctx, s.ID)
	if err != nil {
		return domainErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"situation":    toSituationPart(*s),
		"declarations": live,
		"drafts":       drafts,
		"rejections":   rejections,
	})
}

// Indicators returns the caller's indicator list joined with targets
// for a year, plus the month names for the period selector: the
// skeleton of the data-entry form.
func (h *SituationHandler) Indicators(c echo.Context) error {
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

	items, err := h.Catalog.IndicatorsWithTargets(ctx, familyFor(p), p.Home.Code, year)
	if err != nil {
		return domainErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"indicators": items, "months": model.Months})
}

// SaveDraft replaces the situation's draft rows without touching its
// status or confirmed figures.
func (h *SituationHandler) SaveDraft(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req declarationsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Machine.SaveDraft(ctx, p, familyFor(p), c.Param("id"), req.Declarations); err != nil {
		return domainErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Confirm submits the situation for approval with the given figures.
func (h *SituationHandler) Confirm(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req declarationsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	family := familyFor(p)
	id := c.Param("id")
	if err := h.Machine.Confirm(ctx, p, family, id, req.Declarations); err != nil {
		return domainErr(c, err)
	}
	if s, err := h.Situations.Get(ctx, id); err == nil {
		publishEvent(queue.EventSubmitted, s, family, p.UserID, "")
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete removes a Draft or Rejected situation of the caller.
func (h *SituationHandler) Delete(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Machine.Delete(ctx, p, familyFor(p), c.Param("id")); err != nil {
		return domainErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
