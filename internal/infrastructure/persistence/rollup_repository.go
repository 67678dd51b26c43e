package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sasa-apparel/backend/internal/domain/analytics"
	"github.com/sasa-apparel/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormRollupStore implements analytics.RollupStore over the three
// per-granularity aggregate tables.
type GormRollupStore struct {
	db *gorm.DB
}

// NewGormRollupStore creates a new GormRollupStore
func NewGormRollupStore(db *gorm.DB) *GormRollupStore {
	return &GormRollupStore{db: db}
}

// keyCondition narrows a query to one composite natural key. Nil key parts
// match stored NULLs, never "any value".
func keyCondition(q *gorm.DB, agg analytics.Aggregate) *gorm.DB {
	q = q.Where("period = ? AND date = ?", agg.Period, agg.Date)
	if agg.TenantID != nil {
		q = q.Where("tenant_id = ?", *agg.TenantID)
	} else {
		q = q.Where("tenant_id IS NULL")
	}
	if agg.StyleID != nil {
		q = q.Where("style_id = ?", *agg.StyleID)
	} else {
		q = q.Where("style_id IS NULL")
	}
	if agg.VendorID != nil {
		q = q.Where("vendor_id = ?", *agg.VendorID)
	} else {
		q = q.Where("vendor_id IS NULL")
	}
	return q
}

// Save replaces each aggregate's row by composite key inside one
// transaction, so a re-run over the same window is idempotent.
func (r *GormRollupStore) Save(ctx context.Context, granularity analytics.Granularity, aggregates []analytics.Aggregate) error {
	if len(aggregates) == 0 {
		return nil
	}
	table := models.RollupTableName(granularity)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows := make([]models.AnalyticsAggregateModel, 0, len(aggregates))
		for _, agg := range aggregates {
			if err := keyCondition(tx.Table(table), agg).
				Delete(&models.AnalyticsAggregateModel{}).Error; err != nil {
				return fmt.Errorf("failed to clear aggregate row: %w", err)
			}
			var row models.AnalyticsAggregateModel
			row.FromDomainAggregate(agg)
			row.ID = uuid.New()
			rows = append(rows, row)
		}
		if err := tx.Table(table).CreateInBatches(rows, 200).Error; err != nil {
			return fmt.Errorf("failed to insert aggregate rows: %w", err)
		}
		return nil
	})
}

// scopedRows narrows a rollup query to the filter's scope and window. With a
// vendor scope the per-style rows are summed (every style row carries its
// vendor); otherwise the tenant-wide rows (style_id IS NULL) are used so
// styles are not double counted. Rollup rows carry no tailor identity, so a
// tailor scope matches nothing here; tailor reads are answered from the
// source records instead.
func (r *GormRollupStore) scopedRows(ctx context.Context, filter analytics.QueryFilter) *gorm.DB {
	table := models.RollupTableName(filter.Granularity)
	q := r.db.WithContext(ctx).Table(table).
		Where("period = ?", string(filter.Granularity))

	if filter.Scope.TailorID != nil {
		return q.Where("1 = 0")
	}
	if filter.Scope.TenantID != nil {
		q = q.Where("tenant_id = ?", *filter.Scope.TenantID)
	}
	switch {
	case filter.Scope.StyleID != nil:
		q = q.Where("style_id = ?", *filter.Scope.StyleID)
	case filter.Scope.VendorID != nil:
		q = q.Where("vendor_id = ?", *filter.Scope.VendorID).Where("style_id IS NOT NULL")
	default:
		q = q.Where("style_id IS NULL")
	}

	labels := bucketLabels(filter)
	return q.Where("date IN ?", labels)
}

// bucketLabels lists the bucket labels the filter window covers, matching
// how the builder labels rows on write.
func bucketLabels(filter analytics.QueryFilter) []string {
	ranges := analytics.GenerateRanges(filter.Start, filter.End, filter.Granularity)
	labels := make([]string, 0, len(ranges))
	for _, rg := range ranges {
		labels = append(labels, rg.Label)
	}
	return labels
}

// additiveSums is the SELECT list summing every additive column.
const additiveSums = `
	COALESCE(SUM(cutting_orders), 0) as cutting_orders,
	COALESCE(SUM(cutting_pcs), 0) as cutting_pcs,
	COALESCE(SUM(pcs_shipped), 0) as pcs_shipped,
	COALESCE(SUM(pcs_completed), 0) as pcs_completed,
	COALESCE(SUM(revenue_amount), 0) as revenue_amount,
	COALESCE(MAX(revenue_currency), '') as revenue_currency,
	COALESCE(SUM(receivable_amount), 0) as receivable_amount,
	COALESCE(SUM(receivable_invoices), 0) as receivable_invoices,
	COALESCE(SUM(tailor_expense_amount), 0) as tailor_expense_amount,
	COALESCE(SUM(tailor_expense_payments), 0) as tailor_expense_payments,
	COALESCE(SUM(samples_requested), 0) as samples_requested,
	COALESCE(SUM(samples_submitted), 0) as samples_submitted,
	COALESCE(SUM(samples_approved), 0) as samples_approved,
	COALESCE(SUM(samples_rejected), 0) as samples_rejected,
	COALESCE(SUM(sample_tat_samples), 0) as sample_tat_samples,
	COALESCE(SUM(sample_avg_tat_days * sample_tat_samples) / NULLIF(SUM(sample_tat_samples), 0), 0) as sample_avg_tat_days,
	COALESCE(SUM(qc_inspections), 0) as qc_inspections,
	COALESCE(SUM(qc_passed), 0) as qc_passed,
	COALESCE(SUM(qc_failed), 0) as qc_failed,
	COALESCE(SUM(shipment_count), 0) as shipment_count,
	COALESCE(SUM(shipments_on_time), 0) as shipments_on_time,
	COALESCE(SUM(shipments_late), 0) as shipments_late,
	COALESCE(SUM(avg_delay_days * shipments_late) / NULLIF(SUM(shipments_late), 0), 0) as avg_delay_days,
	COALESCE(SUM(fabric_meters), 0) as fabric_meters,
	COALESCE(SUM(fabric_wastage), 0) as fabric_wastage,
	COALESCE(SUM(yield_rate * NULLIF(cutting_pcs, 0)) / NULLIF(SUM(cutting_pcs), 0), 0) as yield_rate,
	COALESCE(SUM(rework_rate * NULLIF(pcs_completed, 0)) / NULLIF(SUM(pcs_completed), 0), 0) as rework_rate,
	COALESCE(SUM(defect_rate * NULLIF(pcs_completed, 0)) / NULLIF(SUM(pcs_completed), 0), 0) as defect_rate
`

// Totals sums the additive columns across the filter window, takes snapshot
// columns from the latest bucket present, and recomputes rate metrics from
// the summed counts so averaged percentages never leak through.
func (r *GormRollupStore) Totals(ctx context.Context, filter analytics.QueryFilter) (analytics.MetricSet, error) {
	var totals models.AnalyticsAggregateModel
	err := r.scopedRows(ctx, filter).
		Select(additiveSums).
		Scan(&totals).Error
	if err != nil {
		return analytics.MetricSet{}, fmt.Errorf("failed to sum aggregates: %w", err)
	}

	// Snapshot metrics come from the latest bucket only.
	var latest models.AnalyticsAggregateModel
	err = r.scopedRows(ctx, filter).
		Select(`
			COALESCE(SUM(in_production_orders), 0) as in_production_orders,
			COALESCE(SUM(in_production_pcs), 0) as in_production_pcs,
			COALESCE(SUM(pending_assignments), 0) as pending_assignments,
			COALESCE(SUM(pending_pcs), 0) as pending_pcs
		`).
		Where("date = (?)", r.scopedRows(ctx, filter).Select("MAX(date)")).
		Scan(&latest).Error
	if err != nil {
		return analytics.MetricSet{}, fmt.Errorf("failed to read snapshot bucket: %w", err)
	}
	totals.InProductionOrders = latest.InProductionOrders
	totals.InProductionPcs = latest.InProductionPcs
	totals.PendingAssignments = latest.PendingAssignments
	totals.PendingPcs = latest.PendingPcs

	set := totals.ToMetricSet()
	set.RecomputeRates()
	return set, nil
}

// SumByBucket returns one value per bucket label for a single metric,
// ordered by label. Missing buckets are filled as zero so a chart over the
// window has no holes.
func (r *GormRollupStore) SumByBucket(ctx context.Context, filter analytics.QueryFilter, metric analytics.Metric) ([]analytics.BucketValue, error) {
	column := models.MetricColumn(metric.Name)
	if column == "" {
		return nil, nil
	}

	type row struct {
		Date  string
		Value float64
	}
	var rows []row
	err := r.scopedRows(ctx, filter).
		Select(fmt.Sprintf("date, COALESCE(SUM(%s), 0) as value", column)).
		Group("date").
		Order("date ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum metric by bucket: %w", err)
	}

	byLabel := make(map[string]float64, len(rows))
	for _, rw := range rows {
		byLabel[rw.Date] = rw.Value
	}
	labels := bucketLabels(filter)
	out := make([]analytics.BucketValue, 0, len(labels))
	for _, label := range labels {
		out = append(out, analytics.BucketValue{Label: label, Value: byLabel[label]})
	}
	return out, nil
}

// SumByDimension returns per-group totals for style or vendor breakdowns,
// largest first, limited to the top N groups.
func (r *GormRollupStore) SumByDimension(ctx context.Context, filter analytics.QueryFilter, metric analytics.Metric, dim analytics.Dimension, limit int) ([]analytics.GroupTotal, error) {
	column := models.MetricColumn(metric.Name)
	if column == "" || filter.Scope.TailorID != nil {
		return nil, nil
	}
	var keyColumn string
	switch dim {
	case analytics.DimensionStyle:
		keyColumn = "style_id"
	case analytics.DimensionVendor:
		keyColumn = "vendor_id"
	default:
		return nil, nil
	}

	q := r.scopedRows(ctx, filter)
	// Vendor breakdowns sum the per-style rows; a style scope already
	// pins them, but the tenant default would otherwise exclude them.
	if filter.Scope.StyleID == nil && filter.Scope.VendorID == nil {
		q = r.db.WithContext(ctx).Table(models.RollupTableName(filter.Granularity)).
			Where("period = ?", string(filter.Granularity)).
			Where("style_id IS NOT NULL").
			Where("date IN ?", bucketLabels(filter))
		if filter.Scope.TenantID != nil {
			q = q.Where("tenant_id = ?", *filter.Scope.TenantID)
		}
	}

	type row struct {
		Key   *uuid.UUID
		Value float64
	}
	var rows []row
	err := q.Where(keyColumn + " IS NOT NULL").
		Select(fmt.Sprintf("%s as key, COALESCE(SUM(%s), 0) as value", keyColumn, column)).
		Group(keyColumn).
		Order("value DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum metric by %s: %w", dim, err)
	}

	totals := make([]analytics.GroupTotal, 0, len(rows))
	for _, rw := range rows {
		totals = append(totals, analytics.GroupTotal{Key: rw.Key, Value: rw.Value})
	}
	return totals, nil
}

// Drilldown pages through per-style bucket rows, newest first, with display
// names joined in.
func (r *GormRollupStore) Drilldown(ctx context.Context, filter analytics.QueryFilter, limit, skip int) ([]analytics.DrilldownRow, int64, error) {
	if filter.Scope.TailorID != nil {
		return nil, 0, nil
	}
	table := models.RollupTableName(filter.Granularity)

	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Table(table).
			Where(table+".period = ?", string(filter.Granularity)).
			Where(table+".style_id IS NOT NULL").
			Where(table+".date IN ?", bucketLabels(filter))
		if filter.Scope.TenantID != nil {
			q = q.Where(table+".tenant_id = ?", *filter.Scope.TenantID)
		}
		if filter.Scope.StyleID != nil {
			q = q.Where(table+".style_id = ?", *filter.Scope.StyleID)
		}
		if filter.Scope.VendorID != nil {
			q = q.Where(table+".vendor_id = ?", *filter.Scope.VendorID)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count drilldown rows: %w", err)
	}

	type row struct {
		models.AnalyticsAggregateModel
		StyleName  string
		VendorName string
	}
	var rows []row
	err := base().
		Select(table+".*, COALESCE(s.name, '') as style_name, COALESCE(v.name, '') as vendor_name").
		Joins(fmt.Sprintf("LEFT JOIN styles s ON s.id = %s.style_id", table)).
		Joins(fmt.Sprintf("LEFT JOIN vendors v ON v.id = %s.vendor_id", table)).
		Order(table + ".date DESC").
		Limit(limit).
		Offset(skip).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query drilldown rows: %w", err)
	}

	out := make([]analytics.DrilldownRow, 0, len(rows))
	for _, rw := range rows {
		out = append(out, analytics.DrilldownRow{
			Date:       rw.Date,
			StyleID:    rw.StyleID,
			StyleName:  rw.StyleName,
			VendorID:   rw.VendorID,
			VendorName: rw.VendorName,
			Metrics:    rw.ToMetricSet(),
		})
	}
	return out, total, nil
}
