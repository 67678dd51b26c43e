package analytics

import (
	"time"

	"github.com/google/uuid"
)

// Role is the caller's dashboard role as asserted by the auth layer.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleVendor  Role = "vendor"
	RoleTailor  Role = "tailor"
)

// Identity is the trusted caller identity supplied by authentication.
// Vendor and tailor roles must carry their bound id.
type Identity struct {
	Role     Role
	TenantID *uuid.UUID
	VendorID *uuid.UUID
	TailorID *uuid.UUID
}

// Scope is the mandatory server-side data scope for a query or an
// aggregation pass. Caller-supplied filters can narrow a scope but never
// widen it.
type Scope struct {
	TenantID *uuid.UUID
	StyleID  *uuid.UUID
	VendorID *uuid.UUID
	TailorID *uuid.UUID
}

// BuildScope derives the base scope for an identity. Admin and manager
// roles see everything inside their tenant; vendor and tailor roles are
// hard-bound to their own id and rejected when the id is missing, since no
// safe scope can be established.
func BuildScope(ident Identity) (Scope, error) {
	scope := Scope{TenantID: ident.TenantID}
	switch ident.Role {
	case RoleAdmin, RoleManager:
		return scope, nil
	case RoleVendor:
		if ident.VendorID == nil {
			return Scope{}, ErrScopeRequired
		}
		scope.VendorID = ident.VendorID
		return scope, nil
	case RoleTailor:
		if ident.TailorID == nil {
			return Scope{}, ErrScopeRequired
		}
		scope.TailorID = ident.TailorID
		return scope, nil
	default:
		return Scope{}, ErrUnknownRole
	}
}

// WithStyle returns a copy of the scope narrowed to one style.
func (s Scope) WithStyle(styleID uuid.UUID) Scope {
	s.StyleID = &styleID
	return s
}

// QueryFilter bounds a query-side read over rollup rows.
type QueryFilter struct {
	Scope
	Start       time.Time
	End         time.Time
	Granularity Granularity
}

// PreviousWindow returns the same filter shifted to the window of equal
// length immediately preceding [Start, End], used for period-over-period
// trend comparison. The shifted window ends just before the bucket
// containing Start, so when Start falls mid-bucket the partial bucket is
// never counted in both windows.
func (f QueryFilter) PreviousWindow() QueryFilter {
	span := f.End.Sub(f.Start)
	f.End = bucketStart(f.Start, f.Granularity).Add(-time.Nanosecond)
	f.Start = f.End.Add(-span)
	return f
}
