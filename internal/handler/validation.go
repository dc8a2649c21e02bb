package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/performance-reporting/internal/hierarchy"
	"github.com/iliyamo/performance-reporting/internal/lifecycle"
	"github.com/iliyamo/performance-reporting/internal/model"
	"github.com/iliyamo/performance-reporting/internal/queue"
	"github.com/iliyamo/performance-reporting/internal/repository"
	"github.com/iliyamo/performance-reporting/internal/scope"
)

// ValidationHandler serves the approval side of the chain.  DRI agents
// validate or reject the submissions of their child DIWs; admins
// validate or reject DRI self-reports and DC strategic submissions.
// The two levels share the code; only the queue contents and the
// stamped timestamp differ.
type ValidationHandler struct {
	Machine      *lifecycle.Machine
	Situations   *repository.SituationRepo
	Declarations *repository.DeclarationRepo
	Rejections   *repository.RejectionRepo
	Structures   *repository.StructureRepo
	Users        *repository.UserRepo
	Resolver     *hierarchy.Resolver
	Gate         *scope.Gate
}

func NewValidationHandler(m *lifecycle.Machine, s *repository.SituationRepo, d *repository.DeclarationRepo,
	rej *repository.RejectionRepo, st *repository.StructureRepo, u *repository.UserRepo,
	r *hierarchy.Resolver, g *scope.Gate) *ValidationHandler {
	return &ValidationHandler{Machine: m, Situations: s, Declarations: d, Rejections: rej,
		Structures: st, Users: u, Resolver: r, Gate: g}
}

type rejectReq struct {
	Comment string `json:"comment"`
}

// queueCodes computes which structure codes feed the caller's
// validation queue.  A DRI reviews its child DIWs only — its own
// self-reports go up to the admin, never back to itself.  An admin
// reviews every DRI and DC.
func (h *ValidationHandler) queueCodes(ctx context.Context, p model.Principal) ([]string, error) {
	if p.Role == model.RoleAdmin {
		dris, err := h.Structures.ListDRIs(ctx)
		if err != nil {
			return nil, err
		}
		dcs, err := h.Structures.ListDCs(ctx)
		if err != nil {
			return nil, err
		}
		codes := make([]string, 0, len(dris)+len(dcs))
		for _, s := range dris {
			codes = append(codes, s.Code)
		}
		for _, s := range dcs {
			codes = append(codes, s.Code)
		}
		return codes, nil
	}
	children, err := h.Structures.ListDIWsByDRI(ctx, p.Home.Code)
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(children))
	for _, s := range children {
		codes = append(codes, s.Code)
	}
	return codes, nil
}

// pendingItem is one row of the validation queue: the situation plus
// its owner's display name.
type pendingItem struct {
	situationPart
	OwnerName string `json:"owner_name"`
}

// Pending returns the caller's validation queue, oldest submission
// first, each row carrying its submitter's name.
func (h *ValidationHandler) Pending(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	codes, err := h.queueCodes(ctx, p)
	if err != nil {
		return domainErr(c, err)
	}
	sits, err := h.Situations.ListPendingForStructures(ctx, codes)
	if err != nil {
		return domainErr(c, err)
	}
	seen := make(map[uint64]bool, len(sits))
	ids := make([]uint64, 0, len(sits))
	for _, s := range sits {
		if !seen[s.OwnerID] {
			seen[s.OwnerID] = true
			ids = append(ids, s.OwnerID)
		}
	}
	names, err := h.Users.NameIndex(ctx, ids)
	if err != nil {
		return domainErr(c, err)
	}
	items := make([]pendingItem, 0, len(sits))
	for _, s := range sits {
		items = append(items, pendingItem{
			situationPart: toSituationPart(s),
			OwnerName:     names[s.OwnerID],
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"pending": items})
}

// load fetches the situation and checks it sits inside the caller's
// review authority, returning the family its declarations were filed
// under.
func (h *ValidationHandler) load(ctx context.Context, p model.Principal, id string) (*model.Situation, model.Family, error) {
	s, err := h.Situations.Get(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	codes, err := h.queueCodes(ctx, p)
	if err != nil {
		return nil, 0, err
	}
	found := false
	for _, code := range codes {
		if code == s.StructureCode {
			found = true
			break
		}
	}
	if !found {
		return nil, 0, repository.ErrForbidden
	}
	family, err := familyOf(ctx, h.Resolver, s)
	if err != nil {
		return nil, 0, err
	}
	return s, family, nil
}

// Review returns everything a reviewer needs to decide: the situation,
// its confirmed declarations, the owner's name and any earlier
// rejections.
func (h *ValidationHandler) Review(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	s, family, err := h.load(ctx, p, c.Param("id"))
	if err != nil {
		return domainErr(c, err)
	}
	live, err := h.Declarations.ListLive(ctx, family, s.ID)
	if err != nil {
		return domainErr(c, err)
	}
	rejections, err := h.Rejections.ListBySituation(ctx, s.ID)
	if err != nil {
		return domainErr(c, err)
	}
	names, err := h.Users.NameIndex(ctx, []uint64{s.OwnerID})
	if err != nil {
		return domainErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"situation":    toSituationPart(*s),
		"declarations": live,
		"rejections":   rejections,
		"owner_name":   names[s.OwnerID],
	})
}

// Validate accepts a submitted situation.  A DRI validation stamps
// dri_validated_at; an admin validation stamps admin_validated_at.
func (h *ValidationHandler) Validate(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	s, family, err := h.load(ctx, p, c.Param("id"))
	if err != nil {
		return domainErr(c, err)
	}
	by := model.ValidatorDRI
	if p.Role == model.RoleAdmin {
		by = model.ValidatorAdmin
	}
	if err := h.Machine.Validate(ctx, s.ID, by); err != nil {
		return domainErr(c, err)
	}
	publishEvent(queue.EventValidated, s, family, p.UserID, "")
	return c.NoContent(http.StatusNoContent)
}

// Reject sends a submitted situation back to its owner with a
// mandatory motive.
func (h *ValidationHandler) Reject(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req rejectReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	s, family, err := h.load(ctx, p, c.Param("id"))
	if err != nil {
		return domainErr(c, err)
	}
	if err := h.Machine.Reject(ctx, p, family, s.ID, req.Comment); err != nil {
		return domainErr(c, err)
	}
	publishEvent(queue.EventRejected, s, family, p.UserID, req.Comment)
	return c.NoContent(http.StatusNoContent)
}
