package utils // helper functions for token creation and hashing

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/performance-reporting/internal/model"
)

// AccessToken is a signed JWT access token along with its expiry.
// Access tokens are short-lived and sent in the Authorization header
// on every protected call.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// RefreshToken is the long-lived token used to obtain new access
// tokens.  Raw goes to the client; the database only ever stores the
// SHA-256 hash of it.
type RefreshToken struct {
	Raw string    // raw token string returned to the client
	Exp time.Time // UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a principal.  On
// top of the standard sub/exp/iat claims it carries the role, the
// assignment classified at login (kind + code), the super-admin flag
// and the session id used for single-session enforcement.  Handlers
// never re-classify the home code: they trust the kind claim.
func NewAccessToken(secret string, p model.Principal, sessionID string, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":   p.UserID,
		"role":  p.Role,
		"kind":  p.Home.Kind.String(),
		"code":  p.Home.Code,
		"super": p.IsSuperAdmin,
		"sid":   sessionID,
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// NewRefreshToken returns a cryptographically secure random token and
// its expiration time.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
	raw, err := randomHex(48) // 48 bytes -> 96 hex chars
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: raw,
		Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
	}, nil
}

// NewSessionID returns the random value rotated into users.session_token
// at login.  Presenting an older sid fails authentication, which is how
// a second login kicks out the first session.
func NewSessionID() (string, error) {
	return randomHex(16)
}

// HashRefreshRaw returns the SHA-256 hash of the raw refresh token as
// a hex string.  A stolen database row cannot be replayed as a token.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
