package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo stores refresh tokens.  Only SHA-256 hashes of tokens are
// persisted; a stolen database row cannot be replayed as a token.
type TokenRepo struct {
	db *sql.DB
}

// NewTokenRepo returns a new TokenRepo bound to the given database.
func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

// StoreRefresh saves a refresh token hash with its expiry.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, expiresAt time.Time) error {
	const q = `INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, userID, tokenHash, expiresAt.UTC())
	return err
}

// ValidateRefresh returns the owning user id for a live (unexpired,
// unrevoked) token hash, or ErrNotFound.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	const q = `SELECT user_id FROM refresh_tokens
	           WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > UTC_TIMESTAMP()`
	var userID uint64
	err := r.db.QueryRowContext(ctx, q, tokenHash).Scan(&userID)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// RevokeByHash marks one token as revoked.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	const q = `UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE token_hash = ? AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, q, tokenHash)
	return err
}

// RevokeAllForUser revokes every live token of a user, logging them
// out of all sessions.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	const q = `UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE user_id = ? AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, q, userID)
	return err
}
