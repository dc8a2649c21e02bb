package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/performance-reporting/internal/model"
)

// DeclarationRepo reads declaration rows out of the per-family
// live/draft table pairs.  All writes go through SituationRepo's
// transactional primitives; this repo is the read side used by data
// entry screens, dashboards and the report aggregator.
type DeclarationRepo struct {
	db *sql.DB
}

// NewDeclarationRepo returns a DeclarationRepo bound to the given database.
func NewDeclarationRepo(db *sql.DB) *DeclarationRepo { return &DeclarationRepo{db: db} }

const declarationColumns = `id, situation_id, indicator_id, numerator, denominator, rate, target, gap`

// ListLive returns the confirmed rows of one situation, ordered by
// indicator for stable display.
func (r *DeclarationRepo) ListLive(ctx context.Context, family model.Family, situationID string) ([]model.Declaration, error) {
	q := `SELECT ` + declarationColumns + ` FROM ` + family.LiveTable() +
		` WHERE situation_id = ? ORDER BY indicator_id`
	return r.list(ctx, q, situationID)
}

// ListDrafts returns the work-in-progress rows of one situation.
func (r *DeclarationRepo) ListDrafts(ctx context.Context, family model.Family, situationID string) ([]model.Declaration, error) {
	q := `SELECT ` + declarationColumns + ` FROM ` + family.DraftTable() +
		` WHERE situation_id = ? ORDER BY indicator_id`
	return r.list(ctx, q, situationID)
}

// ListLiveForSituations returns the confirmed rows of many situations
// in one query, keyed by situation id.  Dashboards aggregate across a
// snapshot of situations and would otherwise issue one query per
// structure.
func (r *DeclarationRepo) ListLiveForSituations(ctx context.Context, family model.Family, situationIDs []string) (map[string][]model.Declaration, error) {
	out := make(map[string][]model.Declaration)
	if len(situationIDs) == 0 {
		return out, nil
	}
	var b strings.Builder
	b.WriteString(`SELECT ` + declarationColumns + ` FROM ` + family.LiveTable() + ` WHERE situation_id IN (`)
	args := make([]interface{}, 0, len(situationIDs))
	for i, id := range situationIDs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("?")
		args = append(args, id)
	}
	b.WriteString(`) ORDER BY situation_id, indicator_id`)
	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var d model.Declaration
		if err := scanDeclaration(rows, &d); err != nil {
			return nil, err
		}
		out[d.SituationID] = append(out[d.SituationID], d)
	}
	return out, rows.Err()
}

func (r *DeclarationRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Declaration, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Declaration, 0)
	for rows.Next() {
		var d model.Declaration
		if err := scanDeclaration(rows, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDeclaration(rows *sql.Rows, d *model.Declaration) error {
	return rows.Scan(&d.ID, &d.SituationID, &d.IndicatorID,
		&d.Numerator, &d.Denominator, &d.Rate, &d.Target, &d.Gap)
}
