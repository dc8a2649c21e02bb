package model

// StructureKind classifies an organizational structure.  The reporting
// network has three disjoint kinds: DIWs (local units, each attached to
// exactly one DRI), DRIs (regional units, each managing zero or more
// DIWs) and DCs (central directorates, independent leaves).  KindGlobal
// marks an administrative account that is not bound to any structure.
type StructureKind int

const (
	KindUnknown StructureKind = iota // code matched no structure table
	KindDIW                          // local unit, child of a DRI
	KindDRI                          // regional unit, parent of DIWs
	KindDC                           // central directorate, no children
	KindGlobal                       // admin sentinel, no home structure
)

// String returns the short label used in JWT claims and log lines.
func (k StructureKind) String() string {
	switch k {
	case KindDIW:
		return "DIW"
	case KindDRI:
		return "DRI"
	case KindDC:
		return "DC"
	case KindGlobal:
		return "GLOBAL"
	default:
		return "UNKNOWN"
	}
}

// ParseStructureKind maps a claim label back to its kind.  Unknown
// labels yield KindUnknown rather than an error so that stale tokens
// degrade to no visibility instead of failing hard.
func ParseStructureKind(s string) StructureKind {
	switch s {
	case "DIW":
		return KindDIW
	case "DRI":
		return KindDRI
	case "DC":
		return KindDC
	case "GLOBAL":
		return KindGlobal
	default:
		return KindUnknown
	}
}

// Structure is a row of one of the three structure tables (dris, diws,
// dcs).  Codes are at most 7 characters and unique across all three
// tables; uniqueness is enforced at creation time by the repository.
//
// Fields:
//  Code      – primary key, e.g. "R1" or "D1".
//  Label     – display name shown on dashboards and exports.
//  ParentDRI – for DIWs only, the code of the managing DRI.
type Structure struct {
	Code      string // diws.code_diw / dris.code_dri / dcs.code_dc
	Label     string // display label
	ParentDRI string // diws.code_dri (empty for DRI and DC rows)
}

// Assignment is the tagged home assignment resolved once at login and
// embedded in the access token.  It replaces re-classifying the raw
// structure code on every request: a principal is either pinned to one
// structure of a known kind, or is a global administrator.
type Assignment struct {
	Kind StructureKind // what the home code denotes
	Code string        // home structure code (empty for KindGlobal)
}

// Global reports whether the assignment is the unrestricted admin one.
func (a Assignment) Global() bool { return a.Kind == KindGlobal }
