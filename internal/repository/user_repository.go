package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/performance-reporting/internal/model"
	"github.com/iliyamo/performance-reporting/internal/utils"
)

// UserRepo provides CRUD operations for application accounts.
// Accounts are created by administrators and start inactive; they are
// never hard-deleted while they own situations (soft-block with
// ErrConflict), because situations keep their owner id forever.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo returns a new UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, email, password_hash, first_name, last_name, phone, role,
	structure_code, is_super_admin, is_active, session_token, created_at, created_by`

func scanUser(row interface{ Scan(...interface{}) error }) (*model.User, error) {
	var u model.User
	var token sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone,
		&u.Role, &u.StructureCode, &u.IsSuperAdmin, &u.IsActive, &token, &u.CreatedAt, &u.CreatedBy)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.SessionToken = token.String
	return &u, nil
}

// Create inserts a new account with a bcrypt-hashed password.  The
// account starts inactive and must be activated explicitly.  Returns
// ErrEmailExists when the email is already taken.
func (r *UserRepo) Create(ctx context.Context, u *model.User, plainPassword string, bcryptCost uint) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, email).Scan(&exists); err != nil {
		return 0, err
	}
	if exists {
		return 0, ErrEmailExists
	}
	hash, err := utils.HashPassword(plainPassword, int(bcryptCost))
	if err != nil {
		return 0, err
	}
	const q = `INSERT INTO users
		(email, password_hash, first_name, last_name, phone, role, structure_code,
		 is_super_admin, is_active, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, FALSE, ?)`
	res, err := r.db.ExecContext(ctx, q, email, hash, u.FirstName, u.LastName,
		u.Phone, u.Role, u.StructureCode, u.IsSuperAdmin, u.CreatedBy)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail returns the account for a (lowercased) email address.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return scanUser(r.db.QueryRowContext(ctx, q, strings.ToLower(strings.TrimSpace(email))))
}

// GetByID returns the account with the given id or ErrNotFound.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return scanUser(r.db.QueryRowContext(ctx, q, id))
}

// List returns every account ordered by creation time, newest first.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// ListIDsByRoleAndStructure returns the ids of users holding the given
// role at the given structure code.  The DC scope narrowing is built
// on this: a shared DC code must not leak co-located director or
// admin situations into a DC agent's view.
func (r *UserRepo) ListIDsByRoleAndStructure(ctx context.Context, role, structureCode string) ([]uint64, error) {
	const q = `SELECT id FROM users WHERE role = ? AND structure_code = ?`
	rows, err := r.db.QueryContext(ctx, q, role, structureCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetActive flips the activation flag; inactive accounts cannot log in.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	return oneRowOrNotFound(res)
}

// SetAssignment changes an account's role and home structure; admin
// operation.
func (r *UserRepo) SetAssignment(ctx context.Context, id uint64, role, structureCode string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET role = ?, structure_code = ? WHERE id = ?`, role, structureCode, id)
	if err != nil {
		return err
	}
	return oneRowOrNotFound(res)
}

// UpdateProfile lets an account change its own contact fields.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, firstName, lastName, phone string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET first_name = ?, last_name = ?, phone = ? WHERE id = ?`,
		firstName, lastName, phone, id)
	if err != nil {
		return err
	}
	return oneRowOrNotFound(res)
}

// RotateSessionToken stores a fresh session token, invalidating every
// other live session for the account (single-session enforcement).
func (r *UserRepo) RotateSessionToken(ctx context.Context, id uint64, token string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET session_token = ? WHERE id = ?`, token, id)
	if err != nil {
		return err
	}
	return oneRowOrNotFound(res)
}

// Delete removes an account unless it owns situations; ownership
// soft-blocks deletion with ErrConflict so historical reports keep a
// resolvable author.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	var owned int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM situations WHERE owner_id = ?`, id).Scan(&owned); err != nil {
		return err
	}
	if owned > 0 {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return oneRowOrNotFound(res)
}

// NameIndex returns id → "First Last" for the given user ids, used to
// annotate validation queues and review screens with owner names in
// one query instead of a lookup per row.  Unknown ids are simply
// absent from the map.
func (r *UserRepo) NameIndex(ctx context.Context, ids []uint64) (map[uint64]string, error) {
	idx := make(map[uint64]string, len(ids))
	if len(ids) == 0 {
		return idx, nil
	}
	q := `SELECT id, first_name, last_name FROM users WHERE id IN (?` +
		strings.Repeat(", ?", len(ids)-1) + `)`
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		var first, last string
		if err := rows.Scan(&id, &first, &last); err != nil {
			return nil, err
		}
		idx[id] = strings.TrimSpace(first + " " + last)
	}
	return idx, rows.Err()
}
