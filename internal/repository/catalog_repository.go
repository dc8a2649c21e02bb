package repository

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/iliyamo/performance-reporting/internal/model"
)

// CatalogRepo is the read/administration side of the indicator and
// target reference data.  Reads never write: missing targets surface
// as 0 and the zero rows are only materialized by the explicit
// MaterializeDefaultTargets admin operation, never inside a lookup.
type CatalogRepo struct {
	db *sql.DB
}

// NewCatalogRepo returns a new CatalogRepo bound to the given database.
func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

// targetTable maps a declaration family to its target table and scope.
// Operational and DRI-self targets are keyed by (indicator, structure,
// year); strategic targets are global per (indicator, year).
func targetTable(family model.Family) (table string, perStructure bool) {
	switch family {
	case model.FamilyStrategic:
		return "strategic_targets", false
	case model.FamilyDRISelf:
		return "dri_targets", true
	default:
		return "targets", true
	}
}

// TargetsFor returns indicator id → target value for a structure and
// year.  Implements lifecycle.Catalog.  Absent rows are simply absent
// from the map; callers treat that as target 0.
func (r *CatalogRepo) TargetsFor(ctx context.Context, family model.Family, structureCode, year string) (map[string]float64, error) {
	table, perStructure := targetTable(family)
	q := `SELECT indicator_id, value FROM ` + table + ` WHERE year = ?`
	args := []interface{}{year}
	if perStructure {
		q += ` AND structure_code = ?`
		args = append(args, structureCode)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]float64)
	for rows.Next() {
		var id string
		var v float64
		if err := rows.Scan(&id, &v); err != nil {
			return nil, err
		}
		out[id] = v
	}
	return out, rows.Err()
}

// IndicatorsWithTargets returns the ordered indicator list for a
// family joined with each indicator's target for (structure, year).
// Operational and strategic lists cover their whole catalog; the
// DRI-self list is the fixed subset {5,6,7}.  Missing targets default
// to 0, never an error.
func (r *CatalogRepo) IndicatorsWithTargets(ctx context.Context, family model.Family, structureCode, year string) ([]model.IndicatorWithTarget, error) {
	var q string
	var args []interface{}
	switch family {
	case model.FamilyStrategic:
		q = `SELECT i.id, i.label, i.category_id, COALESCE(t.value, 0)
		     FROM strategic_indicators i
		     LEFT JOIN strategic_targets t ON t.indicator_id = i.id AND t.year = ?
		     ORDER BY i.id`
		args = []interface{}{year}
	case model.FamilyDRISelf:
		q = `SELECT i.id, i.label, '', COALESCE(t.value, 0)
		     FROM dri_indicators i
		     LEFT JOIN dri_targets t ON t.indicator_id = i.id AND t.structure_code = ? AND t.year = ?
		     WHERE i.id IN (?, ?, ?)
		     ORDER BY i.id`
		args = []interface{}{structureCode, year,
			model.DRISelfIndicatorIDs[0], model.DRISelfIndicatorIDs[1], model.DRISelfIndicatorIDs[2]}
	default:
		q = `SELECT i.id, i.label, i.category_id, COALESCE(t.value, 0)
		     FROM indicators i
		     LEFT JOIN targets t ON t.indicator_id = i.id AND t.structure_code = ? AND t.year = ?
		     ORDER BY i.category_id, i.id`
		args = []interface{}{structureCode, year}
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.IndicatorWithTarget, 0)
	for rows.Next() {
		var it model.IndicatorWithTarget
		if err := rows.Scan(&it.IndicatorID, &it.Label, &it.CategoryID, &it.Target); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// MaterializeDefaultTargets inserts a zero-valued operational target
// row for every indicator missing one for (structure, year), so the
// target-management screens always have a row to update.  This is the
// only place default rows are written; read paths never do it.
func (r *CatalogRepo) MaterializeDefaultTargets(ctx context.Context, structureCode, year string) error {
	const q = `INSERT INTO targets (indicator_id, structure_code, year, value)
	           SELECT i.id, ?, ?, 0 FROM indicators i
	           WHERE NOT EXISTS (
	               SELECT 1 FROM targets t
	               WHERE t.indicator_id = i.id AND t.structure_code = ? AND t.year = ?
	           )`
	_, err := r.db.ExecContext(ctx, q, structureCode, year, structureCode, year)
	return err
}

// SetTarget upserts one target value.  At most one row exists per
// scope key, enforced by the unique index on the target tables.
func (r *CatalogRepo) SetTarget(ctx context.Context, family model.Family, indicatorID, structureCode, year string, value float64) error {
	table, perStructure := targetTable(family)
	if perStructure {
		q := `INSERT INTO ` + table + ` (indicator_id, structure_code, year, value) VALUES (?, ?, ?, ?)
		      ON DUPLICATE KEY UPDATE value = VALUES(value)`
		_, err := r.db.ExecContext(ctx, q, indicatorID, structureCode, year, value)
		return err
	}
	q := `INSERT INTO ` + table + ` (indicator_id, year, value) VALUES (?, ?, ?)
	      ON DUPLICATE KEY UPDATE value = VALUES(value)`
	_, err := r.db.ExecContext(ctx, q, indicatorID, year, value)
	return err
}

// ListCategories returns every axis ordered by id.
func (r *CatalogRepo) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, label FROM categories ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Category, 0)
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Label); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListObjectives returns the strategic objectives ordered by id.
func (r *CatalogRepo) ListObjectives(ctx context.Context) ([]model.Objective, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, label, category_id FROM objectives ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Objective, 0)
	for rows.Next() {
		var o model.Objective
		if err := rows.Scan(&o.ID, &o.Label, &o.CategoryID); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CreateIndicator allocates the next natural key in the category and
// inserts an operational indicator.  Sequences come from the
// category's counter, not from the surviving siblings, so a number is
// never reused after a deletion.
func (r *CatalogRepo) CreateIndicator(ctx context.Context, categoryID, label string) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	var lastSeq int
	err = tx.QueryRowContext(ctx, `SELECT last_seq FROM categories WHERE id = ? FOR UPDATE`, categoryID).Scan(&lastSeq)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	// Guard against counters that predate existing data.
	existing, err := indicatorIDsTx(ctx, tx, categoryID)
	if err != nil {
		return "", err
	}
	id := model.NextIndicatorID(categoryID, existing)
	if seqOf(id, categoryID) <= lastSeq {
		id = model.NextIndicatorID(categoryID, append(existing, categoryID+"."+strconv.Itoa(lastSeq)))
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO indicators (id, label, category_id) VALUES (?, ?, ?)`, id, label, categoryID); err != nil {
		return "", err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE categories SET last_seq = ? WHERE id = ?`, seqOf(id, categoryID), categoryID); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

func indicatorIDsTx(ctx context.Context, tx *sql.Tx, categoryID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM indicators WHERE category_id = ?`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteIndicator removes an operational indicator.  Its sequence
// number stays burned in the category counter.
func (r *CatalogRepo) DeleteIndicator(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM indicators WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return oneRowOrNotFound(res)
}

// CategoryIndex returns indicator id → category id for a family, used
// to group aggregated declarations by axis.
func (r *CatalogRepo) CategoryIndex(ctx context.Context, family model.Family) (map[string]string, error) {
	var q string
	switch family {
	case model.FamilyStrategic:
		q = `SELECT id, category_id FROM strategic_indicators`
	case model.FamilyDRISelf:
		q = `SELECT id, '' FROM dri_indicators`
	default:
		q = `SELECT id, category_id FROM indicators`
	}
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	idx := make(map[string]string)
	for rows.Next() {
		var id, cat string
		if err := rows.Scan(&id, &cat); err != nil {
			return nil, err
		}
		idx[id] = cat
	}
	return idx, rows.Err()
}

// LabelIndexes returns the indicator and category label maps the
// report assembler needs for a family.
func (r *CatalogRepo) LabelIndexes(ctx context.Context, family model.Family) (indicators, categories map[string]string, err error) {
	var q string
	switch family {
	case model.FamilyStrategic:
		q = `SELECT id, label FROM strategic_indicators`
	case model.FamilyDRISelf:
		q = `SELECT id, label FROM dri_indicators`
	default:
		q = `SELECT id, label FROM indicators`
	}
	indicators, err = r.labelMap(ctx, q)
	if err != nil {
		return nil, nil, err
	}
	categories, err = r.labelMap(ctx, `SELECT id, label FROM categories`)
	if err != nil {
		return nil, nil, err
	}
	return indicators, categories, nil
}

// ObjectiveIndexes returns the strategic objective maps the report
// assembler needs: indicator id → objective id, and objective id →
// label.  Only strategic indicators carry objectives.
func (r *CatalogRepo) ObjectiveIndexes(ctx context.Context) (byIndicator, labels map[string]string, err error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, objective_id FROM strategic_indicators`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	byIndicator = make(map[string]string)
	for rows.Next() {
		var id string
		var objID int
		if err := rows.Scan(&id, &objID); err != nil {
			return nil, nil, err
		}
		byIndicator[id] = strconv.Itoa(objID)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	labels, err = r.labelMap(ctx, `SELECT id, label FROM objectives`)
	if err != nil {
		return nil, nil, err
	}
	return byIndicator, labels, nil
}

func (r *CatalogRepo) labelMap(ctx context.Context, q string) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	m := make(map[string]string)
	for rows.Next() {
		var id, label string
		if err := rows.Scan(&id, &label); err != nil {
			return nil, err
		}
		m[id] = label
	}
	return m, rows.Err()
}

func seqOf(id, categoryID string) int {
	n := 0
	for _, ch := range strings.TrimPrefix(id, categoryID+".") {
		if ch < '0' || ch > '9' {
			return 0
		}
		n = n*10 + int(ch-'0')
	}
	return n
}
