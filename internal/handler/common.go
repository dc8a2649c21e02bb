package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/performance-reporting/internal/hierarchy"
	"github.com/iliyamo/performance-reporting/internal/lifecycle"
	"github.com/iliyamo/performance-reporting/internal/middleware"
	"github.com/iliyamo/performance-reporting/internal/model"
	"github.com/iliyamo/performance-reporting/internal/queue"
	"github.com/iliyamo/performance-reporting/internal/repository"
	queue_publisher "github.com/iliyamo/performance-reporting/internal/service"
)

// principal returns the authenticated caller stored by the JWT
// middleware.
func principal(c echo.Context) (model.Principal, bool) {
	return middleware.PrincipalFrom(c)
}

// dbCtx bounds repository calls the way every handler does: five
// seconds from the request context.
func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// domainErr maps the sentinel errors of the lower layers onto HTTP
// responses.  Anything unrecognized is a 500 with a generic message;
// internals never leak to clients.
func domainErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrConcurrency):
		return c.JSON(http.StatusConflict, echo.Map{"error": "the situation was modified concurrently, retry"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// familyFor maps the submitting role to its declaration family.  DIW
// agents file operational declarations, DC agents strategic ones and
// DRI agents their self-reports over the fixed indicator subset.
func familyFor(p model.Principal) model.Family {
	switch p.Role {
	case model.RoleDC:
		return model.FamilyStrategic
	case model.RoleDRI:
		return model.FamilyDRISelf
	default:
		return model.FamilyOperational
	}
}

// familyForKind maps a situation's structure kind to the family it was
// filed under, used wherever the reader's role says nothing about the
// submitter's tables.
func familyForKind(k model.StructureKind) model.Family {
	switch k {
	case model.KindDC:
		return model.FamilyStrategic
	case model.KindDRI:
		return model.FamilyDRISelf
	default:
		return model.FamilyOperational
	}
}

// familyOf resolves the family a situation's declarations were filed
// under from its structure kind.  Consult and review paths must use
// this rather than the reader's role: a DRI consulting a child DIW's
// situation reads the operational tables, not its own self-report
// tables.
func familyOf(ctx context.Context, r *hierarchy.Resolver, s *model.Situation) (model.Family, error) {
	kind, _, err := r.Resolve(ctx, s.StructureCode)
	if err != nil {
		return 0, err
	}
	return familyForKind(kind), nil
}

// publishEvent fires a situation event without blocking the request.
// Publishing failures are logged inside the publisher and dropped; the
// broker is an audit convenience, not part of the transaction.
func publishEvent(kind string, s *model.Situation, family model.Family, actorID uint64, comment string) {
	ev := queue.SituationEvent{
		Kind:          kind,
		SituationID:   s.ID,
		StructureCode: s.StructureCode,
		Family:        family.String(),
		Month:         s.Month,
		Year:          s.Year,
		ActorID:       actorID,
		Comment:       comment,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queue_publisher.PublishSituationEvent(ctx, ev)
	}()
}

// parseID parses a numeric path parameter into a user id.
func parseID(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

// situationPart is the common JSON shape of a situation in lists and
// detail responses.
type situationPart struct {
	ID            string     `json:"id"`
	StructureCode string     `json:"structure_code"`
	Month         string     `json:"month"`
	Year          string     `json:"year"`
	Status        int        `json:"status"`
	StatusLabel   string     `json:"status_label"`
	OwnerID       uint64     `json:"owner_id"`
	CreatedAt     time.Time  `json:"created_at"`
	EditedAt      *time.Time `json:"edited_at,omitempty"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
	ValidatedAt   *time.Time `json:"validated_at,omitempty"`
}

func toSituationPart(s model.Situation) situationPart {
	validated := s.DRIValidatedAt
	if validated == nil {
		validated = s.AdminValidatedAt
	}
	return situationPart{
		ID:            s.ID,
		StructureCode: s.StructureCode,
		Month:         s.Month,
		Year:          s.Year,
		Status:        int(s.Status),
		StatusLabel:   s.Status.String(),
		OwnerID:       s.OwnerID,
		CreatedAt:     s.CreatedAt,
		EditedAt:      s.EditedAt,
		ConfirmedAt:   s.ConfirmedAt,
		ValidatedAt:   validated,
	}
}

func toSituationParts(sits []model.Situation) []situationPart {
	out := make([]situationPart, 0, len(sits))
	for _, s := range sits {
		out = append(out, toSituationPart(s))
	}
	return out
}
