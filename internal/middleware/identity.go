package middleware

// identity.go holds the context-extraction helpers shared across
// middleware files and handlers.  JWTAuth stores the reconstructed
// Principal under "principal"; everything downstream goes through
// these accessors instead of re-reading raw claims.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/performance-reporting/internal/model"
)

// PrincipalFrom returns the authenticated principal stored by JWTAuth.
// The boolean is false on unauthenticated routes.
func PrincipalFrom(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get("principal").(model.Principal)
	return p, ok
}

// currentUserID returns a string form of the authenticated user id for
// cache and rate-limit keys, or "anon" when no user is authenticated.
func currentUserID(c echo.Context) string {
	if p, ok := PrincipalFrom(c); ok {
		return strconv.FormatUint(p.UserID, 10)
	}
	return "anon"
}
