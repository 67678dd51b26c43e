package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sasa-apparel/backend/internal/domain/analytics"
	"gorm.io/gorm"
)

// GormStyleDirectory implements analytics.StyleDirectory over the styles,
// vendors and tailors reference tables.
type GormStyleDirectory struct {
	db *gorm.DB
}

// NewGormStyleDirectory creates a new GormStyleDirectory
func NewGormStyleDirectory(db *gorm.DB) *GormStyleDirectory {
	return &GormStyleDirectory{db: db}
}

// ListStyles returns every style of a tenant, or all styles when tenantID
// is nil. The builder fans out per-style rollup rows from this list.
func (r *GormStyleDirectory) ListStyles(ctx context.Context, tenantID *uuid.UUID) ([]analytics.StyleRef, error) {
	q := r.db.WithContext(ctx).Table("styles")
	if tenantID != nil {
		q = q.Where("tenant_id = ?", *tenantID)
	}

	var refs []analytics.StyleRef
	if err := q.Select("id, tenant_id, vendor_id, name").Order("name ASC").Scan(&refs).Error; err != nil {
		return nil, fmt.Errorf("failed to list styles: %w", err)
	}
	return refs, nil
}

// DisplayNames resolves group keys to human-readable names for the styled
// and vendor dimensions. Other dimensions carry their own text keys.
func (r *GormStyleDirectory) DisplayNames(ctx context.Context, dim analytics.Dimension, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]string{}, nil
	}

	var table string
	switch dim {
	case analytics.DimensionStyle:
		table = "styles"
	case analytics.DimensionVendor:
		table = "vendors"
	case analytics.DimensionTailor:
		table = "tailors"
	default:
		return map[uuid.UUID]string{}, nil
	}

	type row struct {
		ID   uuid.UUID
		Name string
	}
	var rows []row
	err := r.db.WithContext(ctx).Table(table).
		Where("id IN ?", ids).
		Select("id, name").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s names: %w", dim, err)
	}

	names := make(map[uuid.UUID]string, len(rows))
	for _, rw := range rows {
		names[rw.ID] = rw.Name
	}
	return names, nil
}

// ListTenants returns the distinct tenant ids present in the styles table.
// The scheduled refresh iterates these.
func (r *GormStyleDirectory) ListTenants(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Table("styles").
		Where("tenant_id IS NOT NULL").
		Distinct("tenant_id").
		Pluck("tenant_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	return ids, nil
}

func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}
