package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/performance-reporting/internal/model"
)

// SituationRepo persists situations and moves their declaration rows
// between the live and draft tables.  It is the lifecycle machine's
// Store: Promote and Demote run inside one transaction each, and every
// status flip is a guarded UPDATE whose WHERE clause re-checks the
// expected current status.  Zero affected rows means another request
// won the race, surfaced as ErrConcurrency so the caller never ends up
// with a hybrid state.
//
// Deletion is a soft delete: the row keeps its id (owner ids on
// historical rejections stay resolvable) but every read filters on
// deleted_at IS NULL.
type SituationRepo struct {
	db *sql.DB
}

// NewSituationRepo returns a SituationRepo bound to the given database.
func NewSituationRepo(db *sql.DB) *SituationRepo { return &SituationRepo{db: db} }

const situationColumns = `id, structure_code, month, year, statut, owner_id,
	created_at, edited_at, confirmed_at, dri_validated_at, admin_validated_at`

func scanSituation(row interface{ Scan(...interface{}) error }) (*model.Situation, error) {
	var s model.Situation
	err := row.Scan(&s.ID, &s.StructureCode, &s.Month, &s.Year, &s.Status, &s.OwnerID,
		&s.CreatedAt, &s.EditedAt, &s.ConfirmedAt, &s.DRIValidatedAt, &s.AdminValidatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Get returns a situation by id or ErrNotFound.  Deleted situations
// are invisible.
func (r *SituationRepo) Get(ctx context.Context, id string) (*model.Situation, error) {
	const q = `SELECT ` + situationColumns + ` FROM situations WHERE id = ? AND deleted_at IS NULL`
	return scanSituation(r.db.QueryRowContext(ctx, q, id))
}

// ExistsForPeriod reports whether the structure already has a live
// situation for the (month, year) period.  Month comparison is
// case-insensitive, matching the period-equality contract.
func (r *SituationRepo) ExistsForPeriod(ctx context.Context, structureCode, month, year string) (bool, error) {
	const q = `SELECT EXISTS(
	    SELECT 1 FROM situations
	    WHERE structure_code = ? AND LOWER(month) = LOWER(?) AND year = ? AND deleted_at IS NULL)`
	var exists bool
	err := r.db.QueryRowContext(ctx, q, structureCode, month, year).Scan(&exists)
	return exists, err
}

// Insert stores a freshly created situation.
func (r *SituationRepo) Insert(ctx context.Context, s *model.Situation) error {
	const q = `INSERT INTO situations (id, structure_code, month, year, statut, owner_id, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, s.ID, s.StructureCode, s.Month, s.Year, s.Status, s.OwnerID, s.CreatedAt.UTC())
	return err
}

// ReplaceDrafts swaps the situation's entire draft row set in one
// transaction and stamps edited_at.
func (r *SituationRepo) ReplaceDrafts(ctx context.Context, family model.Family, situationID string, rows []model.Declaration, editedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+family.DraftTable()+` WHERE situation_id = ?`, situationID); err != nil {
		return err
	}
	if err := insertDeclarations(ctx, tx, family.DraftTable(), rows); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE situations SET edited_at = ? WHERE id = ? AND deleted_at IS NULL`,
		editedAt.UTC(), situationID); err != nil {
		return err
	}
	return tx.Commit()
}

// Promote confirms a situation: both the live and draft rows are
// cleared, the given rows become the live declarations, and the status
// flips Draft/Rejected → Submitted.  The flip is guarded; losing the
// race yields ErrConcurrency and rolls everything back.
func (r *SituationRepo) Promote(ctx context.Context, family model.Family, situationID string, rows []model.Declaration, confirmedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+family.LiveTable()+` WHERE situation_id = ?`, situationID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+family.DraftTable()+` WHERE situation_id = ?`, situationID); err != nil {
		return err
	}
	if err := insertDeclarations(ctx, tx, family.LiveTable(), rows); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE situations SET statut = ?, confirmed_at = ?
		 WHERE id = ? AND statut IN (?, ?) AND deleted_at IS NULL`,
		model.StatusSubmitted, confirmedAt.UTC(), situationID, model.StatusDraft, model.StatusRejected)
	if err != nil {
		return err
	}
	if err := oneRowOrConcurrency(res); err != nil {
		return err
	}
	return tx.Commit()
}

// Demote rejects a submitted situation: live rows round-trip into the
// draft table with their figures intact, the live rows disappear, the
// rejection entry is appended to the history, and the status flips
// Submitted → Rejected.  All in one transaction with a guarded flip.
func (r *SituationRepo) Demote(ctx context.Context, family model.Family, situationID string, rej model.Rejection) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	copyQ := `INSERT INTO ` + family.DraftTable() + ` (situation_id, indicator_id, numerator, denominator, rate, target, gap)
	          SELECT situation_id, indicator_id, numerator, denominator, rate, target, gap
	          FROM ` + family.LiveTable() + ` WHERE situation_id = ?`
	if _, err := tx.ExecContext(ctx, copyQ, situationID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+family.LiveTable()+` WHERE situation_id = ?`, situationID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO rejection_history (situation_id, comment, rejected_by, rejected_at) VALUES (?, ?, ?, ?)`,
		rej.SituationID, rej.Comment, rej.RejectedBy, rej.RejectedAt.UTC()); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE situations SET statut = ?, edited_at = ?
		 WHERE id = ? AND statut = ? AND deleted_at IS NULL`,
		model.StatusRejected, rej.RejectedAt.UTC(), situationID, model.StatusSubmitted)
	if err != nil {
		return err
	}
	if err := oneRowOrConcurrency(res); err != nil {
		return err
	}
	return tx.Commit()
}

// MarkValidated flips status Submitted → Validated, stamping the
// timestamp matching the validating authority.  Guarded like every
// other flip.
func (r *SituationRepo) MarkValidated(ctx context.Context, situationID string, by model.Validator, at time.Time) error {
	column := "dri_validated_at"
	if by == model.ValidatorAdmin {
		column = "admin_validated_at"
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE situations SET statut = ?, `+column+` = ?
		 WHERE id = ? AND statut = ? AND deleted_at IS NULL`,
		model.StatusValidated, at.UTC(), situationID, model.StatusSubmitted)
	if err != nil {
		return err
	}
	return oneRowOrConcurrency(res)
}

// Delete soft-deletes the situation and removes its draft rows.  Live
// rows cannot exist here: the machine only deletes Draft or Rejected
// situations, whose declarations live in the draft table.
func (r *SituationRepo) Delete(ctx context.Context, family model.Family, situationID string, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+family.DraftTable()+` WHERE situation_id = ?`, situationID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE situations SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		at.UTC(), situationID)
	if err != nil {
		return err
	}
	if err := oneRowOrNotFound(res); err != nil {
		return err
	}
	return tx.Commit()
}

// insertDeclarations bulk-inserts rows into the named declaration
// table.  Declarations always travel as a whole set, so a multi-values
// insert is both simpler and one round trip.
func insertDeclarations(ctx context.Context, tx *sql.Tx, table string, rows []model.Declaration) error {
	if len(rows) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(`INSERT INTO ` + table + ` (situation_id, indicator_id, numerator, denominator, rate, target, gap) VALUES `)
	args := make([]interface{}, 0, len(rows)*7)
	for i, d := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?, ?, ?, ?, ?)")
		args = append(args, d.SituationID, d.IndicatorID, d.Numerator, d.Denominator, d.Rate, d.Target, d.Gap)
	}
	_, err := tx.ExecContext(ctx, b.String(), args...)
	return err
}

func oneRowOrConcurrency(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConcurrency
	}
	return nil
}

// ListByStructures returns every live situation whose structure code is
// in the given set, newest period first.  Feeds the scoped dashboards;
// pass the principal's visible codes from the scope filter.
func (r *SituationRepo) ListByStructures(ctx context.Context, codes []string, year string) ([]model.Situation, error) {
	if len(codes) == 0 {
		return []model.Situation{}, nil
	}
	var b strings.Builder
	b.WriteString(`SELECT ` + situationColumns + ` FROM situations WHERE deleted_at IS NULL AND structure_code IN (`)
	args := make([]interface{}, 0, len(codes)+1)
	for i, c := range codes {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("?")
		args = append(args, c)
	}
	b.WriteString(")")
	if year != "" {
		b.WriteString(` AND year = ?`)
		args = append(args, year)
	}
	b.WriteString(` ORDER BY year DESC, created_at DESC`)
	return r.listSituations(ctx, b.String(), args...)
}

// ListAll returns every live situation, optionally restricted to a
// year.  Admin and director dashboards only.
func (r *SituationRepo) ListAll(ctx context.Context, year string) ([]model.Situation, error) {
	q := `SELECT ` + situationColumns + ` FROM situations WHERE deleted_at IS NULL`
	var args []interface{}
	if year != "" {
		q += ` AND year = ?`
		args = append(args, year)
	}
	q += ` ORDER BY year DESC, created_at DESC`
	return r.listSituations(ctx, q, args...)
}

// ListByOwner returns the situations created by one user, newest first.
func (r *SituationRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Situation, error) {
	const q = `SELECT ` + situationColumns + ` FROM situations
	           WHERE owner_id = ? AND deleted_at IS NULL
	           ORDER BY year DESC, created_at DESC`
	return r.listSituations(ctx, q, ownerID)
}

// ListPendingForStructures returns Submitted situations inside the
// given structure set: the validation queue of a DRI or of the admin.
func (r *SituationRepo) ListPendingForStructures(ctx context.Context, codes []string) ([]model.Situation, error) {
	if len(codes) == 0 {
		return []model.Situation{}, nil
	}
	var b strings.Builder
	b.WriteString(`SELECT ` + situationColumns + ` FROM situations
	    WHERE statut = ? AND deleted_at IS NULL AND structure_code IN (`)
	args := []interface{}{model.StatusSubmitted}
	for i, c := range codes {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("?")
		args = append(args, c)
	}
	b.WriteString(`) ORDER BY confirmed_at ASC`)
	return r.listSituations(ctx, b.String(), args...)
}

// ListRejectedByOwner returns the owner's rejected situations, the
// notification feed shown after login.
func (r *SituationRepo) ListRejectedByOwner(ctx context.Context, ownerID uint64) ([]model.Situation, error) {
	const q = `SELECT ` + situationColumns + ` FROM situations
	           WHERE owner_id = ? AND statut = ? AND deleted_at IS NULL
	           ORDER BY edited_at DESC`
	return r.listSituations(ctx, q, ownerID, model.StatusRejected)
}

func (r *SituationRepo) listSituations(ctx context.Context, q string, args ...interface{}) ([]model.Situation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Situation, 0)
	for rows.Next() {
		s, err := scanSituation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}
