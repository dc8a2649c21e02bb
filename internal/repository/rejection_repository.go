package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/performance-reporting/internal/model"
)

// RejectionRepo reads the append-only rejection history.  Entries are
// written by SituationRepo.Demote inside the rejection transaction and
// are never updated or removed, not even when the situation is later
// validated or deleted.
type RejectionRepo struct {
	db *sql.DB
}

// NewRejectionRepo returns a RejectionRepo bound to the given database.
func NewRejectionRepo(db *sql.DB) *RejectionRepo { return &RejectionRepo{db: db} }

// ListBySituation returns a situation's full rejection history, oldest
// first, so the owner sees every motive in the order it was given.
func (r *RejectionRepo) ListBySituation(ctx context.Context, situationID string) ([]model.Rejection, error) {
	const q = `SELECT id, situation_id, comment, rejected_by, rejected_at
	           FROM rejection_history WHERE situation_id = ? ORDER BY rejected_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q, situationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Rejection, 0)
	for rows.Next() {
		var rej model.Rejection
		if err := rows.Scan(&rej.ID, &rej.SituationID, &rej.Comment, &rej.RejectedBy, &rej.RejectedAt); err != nil {
			return nil, err
		}
		out = append(out, rej)
	}
	return out, rows.Err()
}

// Latest returns the most recent rejection of a situation or
// ErrNotFound when it was never rejected.
func (r *RejectionRepo) Latest(ctx context.Context, situationID string) (*model.Rejection, error) {
	const q = `SELECT id, situation_id, comment, rejected_by, rejected_at
	           FROM rejection_history WHERE situation_id = ?
	           ORDER BY rejected_at DESC, id DESC LIMIT 1`
	var rej model.Rejection
	err := r.db.QueryRowContext(ctx, q, situationID).Scan(&rej.ID, &rej.SituationID, &rej.Comment, &rej.RejectedBy, &rej.RejectedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rej, nil
}
