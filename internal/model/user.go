package model

import "time"

// Application roles as stored in users.role and carried in the JWT
// "role" claim.  SuperAdmin is not a role of its own: it is an
// orthogonal flag on top of RoleAdmin.
const (
	RoleDIW      = "DIW"      // agent of a local unit
	RoleDRI      = "DRI"      // agent of a regional unit
	RoleDC       = "DC"       // agent of a central directorate
	RoleAdmin    = "ADMIN"    // administrator, unrestricted scope
	RoleDirector = "DIRECTOR" // read-only, scope follows the home code
)

// User represents an application user record as stored in the `users`
// table.  Accounts are created by an administrator and start inactive;
// they must be explicitly activated before login succeeds.  The
// SessionToken column enforces a single active session: it is rotated
// at login and every request must present the matching claim.
//
// Fields:
//  ID            – primary key identifier.
//  Email         – unique email address.
//  PasswordHash  – bcrypt hashed password.
//  FirstName     – given name, shown next to owned situations.
//  LastName      – family name.
//  Phone         – contact number.
//  Role          – one of the Role* constants above.
//  StructureCode – home structure code (empty for global admins).
//  IsSuperAdmin  – grants user/permission management on top of RoleAdmin.
//  IsActive      – whether the account may log in.
//  SessionToken  – rotating token for single-session enforcement.
//  CreatedAt     – timestamp of creation.
//  CreatedBy     – id of the admin who created the account (0 for seed rows).
type User struct {
	ID            uint64    // users.id
	Email         string    // users.email
	PasswordHash  string    // users.password_hash
	FirstName     string    // users.first_name
	LastName      string    // users.last_name
	Phone         string    // users.phone
	Role          string    // users.role
	StructureCode string    // users.structure_code
	IsSuperAdmin  bool      // users.is_super_admin
	IsActive      bool      // users.is_active
	SessionToken  string    // users.session_token
	CreatedAt     time.Time // users.created_at
	CreatedBy     uint64    // users.created_by
}

// Principal is the already-authenticated caller as reconstructed from
// JWT claims by the auth middleware.  The Assignment was classified at
// login, so request handling never re-sniffs the home code across the
// structure tables.
type Principal struct {
	UserID       uint64
	Role         string
	Home         Assignment
	IsSuperAdmin bool
}

// RefreshToken models an entry in the `refresh_tokens` table.  The
// plain token is never stored; only its SHA-256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
