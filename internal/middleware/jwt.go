package middleware // reusable HTTP middleware shared by all route groups

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/performance-reporting/internal/model"
)

// UserLoader supplies the account lookup the session check needs.
// Satisfied by repository.UserRepo.
type UserLoader interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// JWTAuth returns an Echo middleware that validates a Bearer access
// token, enforces the single-session rule and injects the
// reconstructed Principal into the request context under "principal"
// (plus "user_id" and "role" for the generic middlewares).
//
// The sid claim must match users.session_token: a later login rotates
// that column, which instantly invalidates every token issued before
// it.  Inactive accounts are rejected even with a valid signature.
func JWTAuth(secret string, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			p, sid, ok := principalFromClaims(claims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			u, err := users.GetByID(c.Request().Context(), p.UserID)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown user"})
			}
			if !u.IsActive {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account disabled"})
			}
			if u.SessionToken == "" || u.SessionToken != sid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session superseded"})
			}

			c.Set("principal", p)
			c.Set("user_id", p.UserID)
			c.Set("role", p.Role)
			return next(c)
		}
	}
}

// principalFromClaims rebuilds the Principal from the custom claims
// written by utils.NewAccessToken.
func principalFromClaims(claims jwt.MapClaims) (model.Principal, string, bool) {
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return model.Principal{}, "", false
	}
	role, _ := claims["role"].(string)
	kindStr, _ := claims["kind"].(string)
	code, _ := claims["code"].(string)
	super, _ := claims["super"].(bool)
	sid, _ := claims["sid"].(string)
	if role == "" || sid == "" {
		return model.Principal{}, "", false
	}
	return model.Principal{
		UserID:       uint64(sub),
		Role:         role,
		Home:         model.Assignment{Kind: model.ParseStructureKind(kindStr), Code: code},
		IsSuperAdmin: super,
	}, sid, true
}
