package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/performance-reporting/internal/config"
	"github.com/iliyamo/performance-reporting/internal/model"
	"github.com/iliyamo/performance-reporting/internal/repository"
)

// AdminHandler groups the administration endpoints: accounts, the
// structure network, the indicator catalog and yearly targets.
// Account management additionally sits behind the super-admin gate in
// the router.
type AdminHandler struct {
	Cfg        config.Config
	Users      *repository.UserRepo
	Structures *repository.StructureRepo
	Catalog    *repository.CatalogRepo
}

func NewAdminHandler(cfg config.Config, u *repository.UserRepo, s *repository.StructureRepo, cat *repository.CatalogRepo) *AdminHandler {
	return &AdminHandler{Cfg: cfg, Users: u, Structures: s, Catalog: cat}
}

// ----- accounts -----

type createUserReq struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Phone         string `json:"phone"`
	Role          string `json:"role"`
	StructureCode string `json:"structure_code"`
	IsSuperAdmin  bool   `json:"is_super_admin"`
}

type assignmentReq struct {
	Role          string `json:"role"`
	StructureCode string `json:"structure_code"`
}

var validRoles = map[string]bool{
	model.RoleDIW: true, model.RoleDRI: true, model.RoleDC: true,
	model.RoleAdmin: true, model.RoleDirector: true,
}

// CreateUser registers a new account.  Accounts start inactive and
// must be activated before first login.
func (h *AdminHandler) CreateUser(c echo.Context) error {
	p, _ := principal(c)
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if !validRoles[role] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
	}
	if role != model.RoleAdmin && strings.TrimSpace(req.StructureCode) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "structure_code required for this role"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	u := &model.User{
		Email:         req.Email,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Phone:         req.Phone,
		Role:          role,
		StructureCode: strings.TrimSpace(req.StructureCode),
		IsSuperAdmin:  req.IsSuperAdmin && role == model.RoleAdmin,
		CreatedBy:     p.UserID,
	}
	id, err := h.Users.Create(ctx, u, req.Password, uint(h.Cfg.BcryptCost))
	if err != nil {
		return domainErr(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// ListUsers returns every account, newest first.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return domainErr(c, err)
	}
	out := make([]echo.Map, 0, len(users))
	for _, u := range users {
		out = append(out, echo.Map{
			"id":             u.ID,
			"email":          u.Email,
			"first_name":     u.FirstName,
			"last_name":      u.LastName,
			"phone":          u.Phone,
			"role":           u.Role,
			"structure_code": u.StructureCode,
			"is_super_admin": u.IsSuperAdmin,
			"is_active":      u.IsActive,
			"created_at":     u.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out})
}

// SetUserActive activates or deactivates an account.
func (h *AdminHandler) SetUserActive(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req struct {
		Active bool `json:"active"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Users.SetActive(ctx, id, req.Active); err != nil {
		return domainErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SetUserAssignment changes an account's role and home structure.  The
// new assignment takes effect at the next login, when the token is
// re-issued with a fresh classification.
func (h *AdminHandler) SetUserAssignment(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req assignmentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if !validRoles[role] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Users.SetAssignment(ctx, id, role, strings.TrimSpace(req.StructureCode)); err != nil {
		return domainErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteUser removes an account unless it still owns situations.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		return domainErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- structure network -----

type structureReq struct {
	Code    string `json:"code"`
	Label   string `json:"label"`
	DRICode string `json:"dri_code"` // DIW creation only
}

// ListStructures returns the whole network grouped by kind.
func (h *AdminHandler) ListStructures(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()

	dris, err := h.Structures.ListDRIs(ctx)
	if err != nil {
		return domainErr(c, err)
	}
	diws, err := h.Structures.ListDIWs(ctx)
	if err != nil {
		return domainErr(c, err)
	}
	dcs, err := h.Structures.ListDCs(ctx)
	if err != nil {
		return domainErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"dris": dris, "diws": diws, "dcs": dcs})
}

// CreateStructure adds one structure.  The :kind path segment selects
// the table; codes are unique across all three.
func (h *AdminHandler) CreateStructure(c echo.Context) error {
	var req structureReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.Label) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code/label required"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	var err error
	switch strings.ToLower(c.Param("kind")) {
	case "dri":
		err = h.Structures.CreateDRI(ctx, req.Code, req.Label)
	case "diw":
		if strings.TrimSpace(req.DRICode) == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "dri_code required"})
		}
		err = h.Structures.CreateDIW(ctx, req.Code, req.Label, req.DRICode)
	case "dc":
		err = h.Structures.CreateDC(ctx, req.Code, req.Label)
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown structure kind"})
	}
	if err != nil {
		return domainErr(c, err)
	}
	return c.NoContent(http.StatusCreated)
}

// DeleteStructure removes one structure.  DRIs still managing DIWs are
// refused.
func (h *AdminHandler) DeleteStructure(c echo.Context) error {
	code := c.Param("code")
	ctx, cancel := dbCtx(c)
	defer cancel()

	var err error
	switch strings.ToLower(c.Param("kind")) {
	case "dri":
		err = h.Structures.DeleteDRI(ctx, code)
	case "diw":
		err = h.Structures.DeleteDIW(ctx, code)
	case "dc":
		err = h.Structures.DeleteDC(ctx, code)
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown structure kind"})
	}
	if err != nil {
		return domainErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- indicator catalog -----

type indicatorReq struct {
	CategoryID string `json:"category_id"`
	Label      string `json:"label"`
}

// Catalogue returns the reference data the admin screens edit:
// categories, objectives and the operational indicator list.
func (h *AdminHandler) Catalogue(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()

	categories, err := h.Catalog.ListCategories(ctx)
	if err != nil {
		return domainErr(c, err)
	}
	objectives, err := h.Catalog.ListObjectives(ctx)
	if err != nil {
		return domainErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"categories": categories, "objectives": objectives})
}

// CreateIndicator adds an operational indicator; its natural key is
// allocated from the category sequence.
func (h *AdminHandler) CreateIndicator(c echo.Context) error {
	var req indicatorReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.CategoryID) == "" || strings.TrimSpace(req.Label) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "category_id/label required"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	id, err := h.Catalog.CreateIndicator(ctx, req.CategoryID, req.Label)
	if err != nil {
		return domainErr(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// DeleteIndicator removes an operational indicator; its sequence
// number is never reused.
func (h *AdminHandler) DeleteIndicator(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Catalog.DeleteIndicator(ctx, c.Param("id")); err != nil {
		return domainErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- targets -----

type targetReq struct {
	Family        string  `json:"family"` // operational | strategic | dri_self
	IndicatorID   string  `json:"indicator_id"`
	StructureCode string  `json:"structure_code"` // per-structure families only
	Year          string  `json:"year"`
	Value         float64 `json:"value"`
}

func parseTargetFamily(s string) (model.Family, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "operational":
		return model.FamilyOperational, true
	case "strategic":
		return model.FamilyStrategic, true
	case "dri_self":
		return model.FamilyDRISelf, true
	default:
		return 0, false
	}
}

// SetTarget upserts one target value.
func (h *AdminHandler) SetTarget(c echo.Context) error {
	var req targetReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	family, ok := parseTargetFamily(req.Family)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown family"})
	}
	if strings.TrimSpace(req.IndicatorID) == "" || strings.TrimSpace(req.Year) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "indicator_id/year required"})
	}
	if family != model.FamilyStrategic && strings.TrimSpace(req.StructureCode) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "structure_code required for this family"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Catalog.SetTarget(ctx, family, req.IndicatorID, req.StructureCode, req.Year, req.Value); err != nil {
		return domainErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// MaterializeTargets creates the missing zero-valued operational
// target rows for (structure, year), so the target screen has a row
// per indicator to edit.
func (h *AdminHandler) MaterializeTargets(c echo.Context) error {
	var req struct {
		StructureCode string `json:"structure_code"`
		Year          string `json:"year"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.StructureCode) == "" || strings.TrimSpace(req.Year) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "structure_code/year required"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Catalog.MaterializeDefaultTargets(ctx, req.StructureCode, req.Year); err != nil {
		return domainErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Targets returns the indicator/target join for one structure and
// year, the content of the target-management screen.
func (h *AdminHandler) Targets(c echo.Context) error {
	family, ok := parseTargetFamily(c.QueryParam("family"))
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown family"})
	}
	year := strings.TrimSpace(c.QueryParam("year"))
	if year == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "year required"})
	}
	structureCode := strings.TrimSpace(c.QueryParam("structure"))
	if family != model.FamilyStrategic && structureCode == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "structure required for this family"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	items, err := h.Catalog.IndicatorsWithTargets(ctx, family, structureCode, year)
	if err != nil {
		return domainErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"targets": items})
}
