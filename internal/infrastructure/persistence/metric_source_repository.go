package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/sasa-apparel/backend/internal/domain/analytics"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// sourceTimeColumns maps each source table to the timestamp column that
// bounds its period metrics. Kept in one place so no calculator hard-codes
// a per-collection field name.
var sourceTimeColumns = map[string]string{
	"cutting_records": "issued_at",
	// Completion bucketing uses completed_date only; updated_at moves for
	// unrelated edits and would mis-bucket jobs.
	"production_jobs":    "completed_date",
	"shipments":          "shipped_at",
	"tailor_payments":    "paid_at",
	"sample_versions":    "requested_at",
	"qc_inspections":     "inspected_at",
	"tailor_assignments": "issued_at",
}

// GormMetricSource implements analytics.MetricSource with scoped GORM
// aggregation queries over the raw transactional tables.
type GormMetricSource struct {
	db *gorm.DB
}

// NewGormMetricSource creates a new GormMetricSource
func NewGormMetricSource(db *gorm.DB) *GormMetricSource {
	return &GormMetricSource{db: db}
}

// scoped applies the scope filter to a query over a style-bearing table.
// Tenant and vendor scoping join through styles since the source tables do
// not carry a tenant id; scoping happens before execution, never after.
func (r *GormMetricSource) scoped(q *gorm.DB, table string, scope analytics.Scope) *gorm.DB {
	if scope.StyleID != nil {
		q = q.Where(table+".style_id = ?", *scope.StyleID)
	}
	if scope.TenantID != nil || scope.VendorID != nil {
		q = q.Joins(fmt.Sprintf("JOIN styles st ON st.id = %s.style_id", table))
		if scope.TenantID != nil {
			q = q.Where("st.tenant_id = ?", *scope.TenantID)
		}
		if scope.VendorID != nil {
			q = q.Where("st.vendor_id = ?", *scope.VendorID)
		}
	}
	return q
}

// tailorScopable reports whether a table carries a tailor id. A tailor
// scope over any other table has no rows by definition.
func tailorScopable(table string) bool {
	switch table {
	case "production_jobs", "tailor_payments", "tailor_assignments":
		return true
	}
	return false
}

func (r *GormMetricSource) base(ctx context.Context, table string, scope analytics.Scope) (*gorm.DB, bool) {
	if scope.TailorID != nil && !tailorScopable(table) {
		return nil, false
	}
	q := r.db.WithContext(ctx).Table(table)
	q = r.scoped(q, table, scope)
	if scope.TailorID != nil {
		q = q.Where(table+".tailor_id = ?", *scope.TailorID)
	}
	return q, true
}

func (r *GormMetricSource) window(q *gorm.DB, table string, start, end time.Time) *gorm.DB {
	col := sourceTimeColumns[table]
	return q.Where(fmt.Sprintf("%s.%s BETWEEN ? AND ?", table, col), start, end)
}

// CuttingReceived counts cutting orders and pieces issued in the window.
func (r *GormMetricSource) CuttingReceived(ctx context.Context, scope analytics.Scope, start, end time.Time) (analytics.OrdersPcs, error) {
	q, ok := r.base(ctx, "cutting_records", scope)
	if !ok {
		return analytics.OrdersPcs{}, nil
	}

	var result struct {
		Orders int64
		Pcs    int64
	}
	err := r.window(q, "cutting_records", start, end).
		Select("COUNT(*) as orders, COALESCE(SUM(cutting_records.pcs), 0) as pcs").
		Scan(&result).Error
	if err != nil {
		return analytics.OrdersPcs{}, err
	}
	return analytics.OrdersPcs{Orders: result.Orders, Pcs: result.Pcs}, nil
}

// InProduction snapshots jobs still open as of asOf. Not bounded by a
// bucket start: a job opened months ago and still open counts.
func (r *GormMetricSource) InProduction(ctx context.Context, scope analytics.Scope, asOf time.Time) (analytics.OrdersPcs, error) {
	q, ok := r.base(ctx, "production_jobs", scope)
	if !ok {
		return analytics.OrdersPcs{}, nil
	}

	var result struct {
		Orders int64
		Pcs    int64
	}
	err := q.Where("production_jobs.status = ?", "OPEN").
		Where("production_jobs.assigned_at <= ?", asOf).
		Select("COUNT(*) as orders, COALESCE(SUM(production_jobs.pcs), 0) as pcs").
		Scan(&result).Error
	if err != nil {
		return analytics.OrdersPcs{}, err
	}
	return analytics.OrdersPcs{Orders: result.Orders, Pcs: result.Pcs}, nil
}

// PcsShipped sums shipped pieces in the window.
func (r *GormMetricSource) PcsShipped(ctx context.Context, scope analytics.Scope, start, end time.Time) (int64, error) {
	q, ok := r.base(ctx, "shipments", scope)
	if !ok {
		return 0, nil
	}

	var pcs int64
	err := r.window(q, "shipments", start, end).
		Select("COALESCE(SUM(shipments.pcs), 0)").
		Scan(&pcs).Error
	return pcs, err
}

// PcsCompleted sums pieces of jobs whose completed_date falls in the window.
func (r *GormMetricSource) PcsCompleted(ctx context.Context, scope analytics.Scope, start, end time.Time) (int64, error) {
	q, ok := r.base(ctx, "production_jobs", scope)
	if !ok {
		return 0, nil
	}

	var pcs int64
	err := r.window(q, "production_jobs", start, end).
		Select("COALESCE(SUM(production_jobs.pcs), 0)").
		Scan(&pcs).Error
	return pcs, err
}

// Revenue sums shipment amounts in the window.
func (r *GormMetricSource) Revenue(ctx context.Context, scope analytics.Scope, start, end time.Time) (analytics.Money, error) {
	q, ok := r.base(ctx, "shipments", scope)
	if !ok {
		return analytics.Money{Currency: "INR"}, nil
	}

	var result struct {
		Amount   decimal.Decimal
		Currency string
	}
	err := r.window(q, "shipments", start, end).
		Select("COALESCE(SUM(shipments.amount), 0) as amount, COALESCE(MAX(shipments.currency), 'INR') as currency").
		Scan(&result).Error
	if err != nil {
		return analytics.Money{}, err
	}
	return analytics.Money{Amount: result.Amount, Currency: result.Currency}, nil
}

// ExpectedReceivable multiplies shipped quantity by the matching
// (style, vendor) rate. Shipments without a rate card contribute zero.
func (r *GormMetricSource) ExpectedReceivable(ctx context.Context, scope analytics.Scope, start, end time.Time) (analytics.Receivable, error) {
	q, ok := r.base(ctx, "shipments", scope)
	if !ok {
		return analytics.Receivable{}, nil
	}

	var result struct {
		Amount   decimal.Decimal
		Invoices int64
	}
	err := r.window(q, "shipments", start, end).
		Joins("LEFT JOIN rate_cards rc ON rc.style_id = shipments.style_id AND rc.vendor_id = shipments.vendor_id").
		Select("COALESCE(SUM(shipments.pcs * COALESCE(rc.rate, 0)), 0) as amount, COUNT(DISTINCT shipments.invoice_no) as invoices").
		Scan(&result).Error
	if err != nil {
		return analytics.Receivable{}, err
	}
	return analytics.Receivable{Amount: result.Amount, Invoices: result.Invoices}, nil
}

// TailorExpense sums tailor payments made in the window.
func (r *GormMetricSource) TailorExpense(ctx context.Context, scope analytics.Scope, start, end time.Time) (analytics.Expense, error) {
	q, ok := r.base(ctx, "tailor_payments", scope)
	if !ok {
		return analytics.Expense{}, nil
	}

	var result struct {
		Amount   decimal.Decimal
		Payments int64
	}
	err := r.window(q, "tailor_payments", start, end).
		Select("COALESCE(SUM(tailor_payments.amount), 0) as amount, COUNT(*) as payments").
		Scan(&result).Error
	if err != nil {
		return analytics.Expense{}, err
	}
	return analytics.Expense{Amount: result.Amount, Payments: result.Payments}, nil
}

// PendingFromTailors snapshots assignments still open as of asOf; pending
// pieces are issued minus received.
func (r *GormMetricSource) PendingFromTailors(ctx context.Context, scope analytics.Scope, asOf time.Time) (analytics.PendingWork, error) {
	q, ok := r.base(ctx, "tailor_assignments", scope)
	if !ok {
		return analytics.PendingWork{}, nil
	}

	var result struct {
		Assignments int64
		Pcs         int64
	}
	err := q.Where("tailor_assignments.closed_at IS NULL").
		Where("tailor_assignments.issued_at <= ?", asOf).
		Select("COUNT(*) as assignments, COALESCE(SUM(tailor_assignments.pcs_issued - tailor_assignments.pcs_received), 0) as pcs").
		Scan(&result).Error
	if err != nil {
		return analytics.PendingWork{}, err
	}
	return analytics.PendingWork{Assignments: result.Assignments, Pcs: result.Pcs}, nil
}

// Samples aggregates sample versions requested in the window. Turnaround is
// averaged only over versions carrying both submitted and decided
// timestamps; approval rate is approved over decided.
func (r *GormMetricSource) Samples(ctx context.Context, scope analytics.Scope, start, end time.Time) (analytics.SampleStats, error) {
	q, ok := r.base(ctx, "sample_versions", scope)
	if !ok {
		return analytics.SampleStats{}, nil
	}

	var result struct {
		Requested  int64
		Submitted  int64
		Approved   int64
		Rejected   int64
		TatSumDays float64
		TatCount   int64
	}
	err := r.window(q, "sample_versions", start, end).
		Select(`
			COUNT(*) as requested,
			COALESCE(SUM(CASE WHEN sample_versions.submitted_at IS NOT NULL THEN 1 ELSE 0 END), 0) as submitted,
			COALESCE(SUM(CASE WHEN sample_versions.status = 'APPROVED' THEN 1 ELSE 0 END), 0) as approved,
			COALESCE(SUM(CASE WHEN sample_versions.status = 'REJECTED' THEN 1 ELSE 0 END), 0) as rejected,
			COALESCE(SUM(CASE WHEN sample_versions.submitted_at IS NOT NULL AND sample_versions.decided_at IS NOT NULL
				THEN EXTRACT(EPOCH FROM (sample_versions.decided_at - sample_versions.submitted_at)) / 86400.0 ELSE 0 END), 0) as tat_sum_days,
			COALESCE(SUM(CASE WHEN sample_versions.submitted_at IS NOT NULL AND sample_versions.decided_at IS NOT NULL THEN 1 ELSE 0 END), 0) as tat_count
		`).
		Scan(&result).Error
	if err != nil {
		return analytics.SampleStats{}, err
	}

	stats := analytics.SampleStats{
		Requested:  result.Requested,
		Submitted:  result.Submitted,
		Approved:   result.Approved,
		Rejected:   result.Rejected,
		TatSamples: result.TatCount,
	}
	if result.TatCount > 0 {
		stats.AvgTatDays = result.TatSumDays / float64(result.TatCount)
	}
	stats.ApprovalRate = analytics.Ratio(stats.Approved, stats.Approved+stats.Rejected)
	return stats, nil
}

// QC aggregates inspections performed in the window.
func (r *GormMetricSource) QC(ctx context.Context, scope analytics.Scope, start, end time.Time) (analytics.QCStats, error) {
	q, ok := r.base(ctx, "qc_inspections", scope)
	if !ok {
		return analytics.QCStats{}, nil
	}

	var result struct {
		Inspections int64
		Passed      int64
		Failed      int64
	}
	err := r.window(q, "qc_inspections", start, end).
		Select(`
			COUNT(*) as inspections,
			COALESCE(SUM(CASE WHEN qc_inspections.result = 'PASS' THEN 1 ELSE 0 END), 0) as passed,
			COALESCE(SUM(CASE WHEN qc_inspections.result = 'FAIL' THEN 1 ELSE 0 END), 0) as failed
		`).
		Scan(&result).Error
	if err != nil {
		return analytics.QCStats{}, err
	}

	return analytics.QCStats{
		Inspections: result.Inspections,
		Passed:      result.Passed,
		Failed:      result.Failed,
		PassRate:    analytics.Ratio(result.Passed, result.Inspections),
	}, nil
}

// Shipments aggregates punctuality for shipments in the window. A shipment
// with no promised date counts toward the total but never toward late, and
// is excluded from the late-rate denominator.
func (r *GormMetricSource) Shipments(ctx context.Context, scope analytics.Scope, start, end time.Time) (analytics.ShipmentStats, error) {
	q, ok := r.base(ctx, "shipments", scope)
	if !ok {
		return analytics.ShipmentStats{}, nil
	}

	var result struct {
		Count        int64
		OnTime       int64
		Late         int64
		DelaySumDays float64
	}
	err := r.window(q, "shipments", start, end).
		Select(`
			COUNT(*) as count,
			COALESCE(SUM(CASE WHEN shipments.promised_date IS NOT NULL AND shipments.shipped_at <= shipments.promised_date THEN 1 ELSE 0 END), 0) as on_time,
			COALESCE(SUM(CASE WHEN shipments.promised_date IS NOT NULL AND shipments.shipped_at > shipments.promised_date THEN 1 ELSE 0 END), 0) as late,
			COALESCE(SUM(CASE WHEN shipments.promised_date IS NOT NULL AND shipments.shipped_at > shipments.promised_date
				THEN EXTRACT(EPOCH FROM (shipments.shipped_at - shipments.promised_date)) / 86400.0 ELSE 0 END), 0) as delay_sum_days
		`).
		Scan(&result).Error
	if err != nil {
		return analytics.ShipmentStats{}, err
	}

	stats := analytics.ShipmentStats{
		Count:    result.Count,
		OnTime:   result.OnTime,
		Late:     result.Late,
		LateRate: analytics.Ratio(result.Late, result.OnTime+result.Late),
	}
	if result.Late > 0 {
		stats.AvgDelayDays = result.DelaySumDays / float64(result.Late)
	}
	return stats, nil
}

// Efficiency derives yield, rework and defect ratios for the window. All
// ratios resolve to zero when their denominator is zero.
func (r *GormMetricSource) Efficiency(ctx context.Context, scope analytics.Scope, start, end time.Time) (analytics.EfficiencyStats, error) {
	cut, err := r.CuttingReceived(ctx, scope, start, end)
	if err != nil {
		return analytics.EfficiencyStats{}, err
	}

	q, ok := r.base(ctx, "production_jobs", scope)
	if !ok {
		return analytics.EfficiencyStats{}, nil
	}

	var jobs struct {
		Completed    int64
		CompletedPcs int64
		Reworked     int64
		DefectPcs    int64
	}
	err = r.window(q, "production_jobs", start, end).
		Select(`
			COUNT(*) as completed,
			COALESCE(SUM(production_jobs.pcs), 0) as completed_pcs,
			COALESCE(SUM(CASE WHEN production_jobs.rework THEN 1 ELSE 0 END), 0) as reworked,
			COALESCE(SUM(production_jobs.defect_pcs), 0) as defect_pcs
		`).
		Scan(&jobs).Error
	if err != nil {
		return analytics.EfficiencyStats{}, err
	}

	return analytics.EfficiencyStats{
		YieldRate:  analytics.Ratio(jobs.CompletedPcs, cut.Pcs),
		ReworkRate: analytics.Ratio(jobs.Reworked, jobs.Completed),
		DefectRate: analytics.Ratio(jobs.DefectPcs, jobs.CompletedPcs),
	}, nil
}

// FabricConsumption sums fabric issued and wasted during cutting.
func (r *GormMetricSource) FabricConsumption(ctx context.Context, scope analytics.Scope, start, end time.Time) (analytics.FabricStats, error) {
	q, ok := r.base(ctx, "cutting_records", scope)
	if !ok {
		return analytics.FabricStats{}, nil
	}

	var result struct {
		Meters  decimal.Decimal
		Wastage decimal.Decimal
	}
	err := r.window(q, "cutting_records", start, end).
		Select("COALESCE(SUM(cutting_records.meters), 0) as meters, COALESCE(SUM(cutting_records.wastage), 0) as wastage").
		Scan(&result).Error
	if err != nil {
		return analytics.FabricStats{}, err
	}
	return analytics.FabricStats{Meters: result.Meters, Wastage: result.Wastage}, nil
}

// groupedQuery describes one supported (metric, dimension) combination.
type groupedQuery struct {
	table    string
	keyExpr  string
	valExpr  string
	snapshot bool
}

// groupedQueries is the supported breakdown matrix for dimensions the
// rollup grain does not carry. Combinations outside this table resolve to
// an empty result.
var groupedQueries = map[analytics.Dimension]map[string]groupedQuery{
	analytics.DimensionTailor: {
		"tailorExpense":      {table: "tailor_payments", keyExpr: "tailor_payments.tailor_id", valExpr: "COALESCE(SUM(tailor_payments.amount), 0)"},
		"pcsCompleted":       {table: "production_jobs", keyExpr: "production_jobs.tailor_id", valExpr: "COALESCE(SUM(production_jobs.pcs), 0)"},
		"pendingFromTailors": {table: "tailor_assignments", keyExpr: "tailor_assignments.tailor_id", valExpr: "COALESCE(SUM(tailor_assignments.pcs_issued - tailor_assignments.pcs_received), 0)", snapshot: true},
	},
	analytics.DimensionSize: {
		"cuttingReceived": {table: "cutting_records", keyExpr: "cutting_records.size", valExpr: "COALESCE(SUM(cutting_records.pcs), 0)"},
		"cuttingOrders":   {table: "cutting_records", keyExpr: "cutting_records.size", valExpr: "COUNT(*)"},
	},
	analytics.DimensionFabric: {
		"fabricConsumed":  {table: "cutting_records", keyExpr: "st.fabric", valExpr: "COALESCE(SUM(cutting_records.meters), 0)"},
		"fabricWastage":   {table: "cutting_records", keyExpr: "st.fabric", valExpr: "COALESCE(SUM(cutting_records.wastage), 0)"},
		"cuttingReceived": {table: "cutting_records", keyExpr: "st.fabric", valExpr: "COALESCE(SUM(cutting_records.pcs), 0)"},
	},
}

// GroupedTotals serves breakdowns for tailor/size/fabric dimensions straight
// from the source records, scoped before execution like every calculator.
func (r *GormMetricSource) GroupedTotals(ctx context.Context, scope analytics.Scope, metric analytics.Metric, dim analytics.Dimension, start, end time.Time) ([]analytics.GroupTotal, error) {
	byMetric, ok := groupedQueries[dim]
	if !ok {
		return nil, nil
	}
	gq, ok := byMetric[metric.Name]
	if !ok {
		return nil, nil
	}

	q, ok := r.base(ctx, gq.table, scope)
	if !ok {
		return nil, nil
	}
	// Fabric lives on the style, so the dimension always needs the join;
	// scoped() only adds it when a tenant or vendor filter is present.
	if dim == analytics.DimensionFabric && scope.TenantID == nil && scope.VendorID == nil {
		q = q.Joins(fmt.Sprintf("JOIN styles st ON st.id = %s.style_id", gq.table))
	}

	if gq.snapshot {
		q = q.Where(gq.table + ".closed_at IS NULL").Where(gq.table+".issued_at <= ?", end)
	} else {
		q = r.window(q, gq.table, start, end)
	}

	type row struct {
		Key   *string
		Value float64
	}
	var rows []row
	err := q.Select(fmt.Sprintf("%s as key, %s as value", gq.keyExpr, gq.valExpr)).
		Group(gq.keyExpr).
		Order("value DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make([]analytics.GroupTotal, 0, len(rows))
	for _, row := range rows {
		if row.Key == nil {
			continue
		}
		total := analytics.GroupTotal{Text: *row.Key, Value: row.Value}
		if id, parseErr := parseUUID(*row.Key); parseErr == nil {
			total.Key = &id
		}
		totals = append(totals, total)
	}
	return totals, nil
}
