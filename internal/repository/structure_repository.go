package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/performance-reporting/internal/model"
)

// StructureRepo provides access to the three structure tables: dris,
// diws and dcs.  It implements hierarchy.StructureDirectory for scope
// resolution and exposes the admin CRUD used to manage the network.
// Structure codes are unique across all three tables; CodeExists is
// checked before every insert so the disjointness invariant the
// resolver relies on cannot be violated by new data.
type StructureRepo struct {
	db *sql.DB
}

// NewStructureRepo returns a StructureRepo bound to the given database.
func NewStructureRepo(db *sql.DB) *StructureRepo { return &StructureRepo{db: db} }

// FindDC returns the DC with the given code or ErrNotFound.
func (r *StructureRepo) FindDC(ctx context.Context, code string) (*model.Structure, error) {
	const q = `SELECT code_dc, label FROM dcs WHERE code_dc = ?`
	var s model.Structure
	err := r.db.QueryRowContext(ctx, q, code).Scan(&s.Code, &s.Label)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FindDRI returns the DRI with the given code or ErrNotFound.
func (r *StructureRepo) FindDRI(ctx context.Context, code string) (*model.Structure, error) {
	const q = `SELECT code_dri, label FROM dris WHERE code_dri = ?`
	var s model.Structure
	err := r.db.QueryRowContext(ctx, q, code).Scan(&s.Code, &s.Label)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FindDIW returns the DIW with the given code or ErrNotFound.  The
// parent DRI code is always populated: every DIW belongs to exactly
// one DRI.
func (r *StructureRepo) FindDIW(ctx context.Context, code string) (*model.Structure, error) {
	const q = `SELECT code_diw, label, code_dri FROM diws WHERE code_diw = ?`
	var s model.Structure
	err := r.db.QueryRowContext(ctx, q, code).Scan(&s.Code, &s.Label, &s.ParentDRI)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListDIWsByDRI returns every DIW managed by the given DRI, ordered by
// code for stable dashboards.
func (r *StructureRepo) ListDIWsByDRI(ctx context.Context, driCode string) ([]model.Structure, error) {
	const q = `SELECT code_diw, label, code_dri FROM diws WHERE code_dri = ? ORDER BY code_diw`
	return r.list(ctx, q, driCode)
}

// ListDRIs returns all regional units ordered by code.
func (r *StructureRepo) ListDRIs(ctx context.Context) ([]model.Structure, error) {
	const q = `SELECT code_dri, label, '' FROM dris ORDER BY code_dri`
	return r.list(ctx, q)
}

// ListDIWs returns all local units ordered by code.
func (r *StructureRepo) ListDIWs(ctx context.Context) ([]model.Structure, error) {
	const q = `SELECT code_diw, label, code_dri FROM diws ORDER BY code_diw`
	return r.list(ctx, q)
}

// ListDCs returns all central directorates ordered by code.
func (r *StructureRepo) ListDCs(ctx context.Context) ([]model.Structure, error) {
	const q = `SELECT code_dc, label, '' FROM dcs ORDER BY code_dc`
	return r.list(ctx, q)
}

func (r *StructureRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Structure, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Structure, 0)
	for rows.Next() {
		var s model.Structure
		if err := rows.Scan(&s.Code, &s.Label, &s.ParentDRI); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CodeExists reports whether a code is present in any of the three
// structure tables.
func (r *StructureRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM dcs WHERE code_dc = ?)
	             OR EXISTS(SELECT 1 FROM dris WHERE code_dri = ?)
	             OR EXISTS(SELECT 1 FROM diws WHERE code_diw = ?)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, code, code, code).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// CreateDRI inserts a new regional unit.  Returns ErrConflict when the
// code already exists anywhere in the network.
func (r *StructureRepo) CreateDRI(ctx context.Context, code, label string) error {
	if err := r.checkNewCode(ctx, code); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO dris (code_dri, label) VALUES (?, ?)`, code, label)
	return err
}

// CreateDIW inserts a new local unit attached to a DRI.  The parent
// must exist (ErrNotFound otherwise) and the code must be free
// network-wide (ErrConflict).
func (r *StructureRepo) CreateDIW(ctx context.Context, code, label, driCode string) error {
	if _, err := r.FindDRI(ctx, driCode); err != nil {
		return err
	}
	if err := r.checkNewCode(ctx, code); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO diws (code_diw, label, code_dri) VALUES (?, ?, ?)`, code, label, driCode)
	return err
}

// CreateDC inserts a new central directorate.
func (r *StructureRepo) CreateDC(ctx context.Context, code, label string) error {
	if err := r.checkNewCode(ctx, code); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO dcs (code_dc, label) VALUES (?, ?)`, code, label)
	return err
}

func (r *StructureRepo) checkNewCode(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" || len(code) > 7 {
		return ErrConflict
	}
	exists, err := r.CodeExists(ctx, code)
	if err != nil {
		return err
	}
	if exists {
		return ErrConflict
	}
	return nil
}

// DeleteDRI removes a regional unit.  Refused with ErrConflict while
// it still manages DIWs, so the tree never holds orphans.
func (r *StructureRepo) DeleteDRI(ctx context.Context, code string) error {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM diws WHERE code_dri = ?`, code).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM dris WHERE code_dri = ?`, code)
	if err != nil {
		return err
	}
	return oneRowOrNotFound(res)
}

// DeleteDIW removes a local unit.
func (r *StructureRepo) DeleteDIW(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM diws WHERE code_diw = ?`, code)
	if err != nil {
		return err
	}
	return oneRowOrNotFound(res)
}

// DeleteDC removes a central directorate.
func (r *StructureRepo) DeleteDC(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM dcs WHERE code_dc = ?`, code)
	if err != nil {
		return err
	}
	return oneRowOrNotFound(res)
}

// LabelIndex returns a code → label map over all three tables, used by
// the report assembler to substitute display names for codes.
func (r *StructureRepo) LabelIndex(ctx context.Context) (map[string]string, error) {
	const q = `SELECT code_dri, label FROM dris
	           UNION ALL SELECT code_diw, label FROM diws
	           UNION ALL SELECT code_dc, label FROM dcs`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	idx := make(map[string]string)
	for rows.Next() {
		var code, label string
		if err := rows.Scan(&code, &label); err != nil {
			return nil, err
		}
		idx[code] = label
	}
	return idx, rows.Err()
}

func oneRowOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
