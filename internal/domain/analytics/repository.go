package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Dimension is a grouping key for dimensional breakdowns.
type Dimension string

const (
	DimensionStyle  Dimension = "style"
	DimensionVendor Dimension = "vendor"
	DimensionTailor Dimension = "tailor"
	DimensionSize   Dimension = "size"
	DimensionFabric Dimension = "fabric"
)

// IsValid reports whether d is a known grouping dimension.
func (d Dimension) IsValid() bool {
	switch d {
	case DimensionStyle, DimensionVendor, DimensionTailor, DimensionSize, DimensionFabric:
		return true
	}
	return false
}

// StyleRef is a lightweight style reference used to enumerate aggregation
// targets and to denormalize the vendor id onto rollup rows.
type StyleRef struct {
	ID       uuid.UUID
	TenantID *uuid.UUID
	VendorID *uuid.UUID
	Name     string
}

// BucketValue is one point of a trend series.
type BucketValue struct {
	Label string
	Value float64
}

// GroupTotal is one entry of a dimensional breakdown before label
// resolution. Key is empty for dimensions keyed by free-text values
// (size, fabric), in which case Text carries the group value.
type GroupTotal struct {
	Key   *uuid.UUID
	Text  string
	Value float64
}

// DrilldownRow is a denormalized rollup row for tabular drilldowns.
type DrilldownRow struct {
	Date       string
	StyleID    *uuid.UUID
	StyleName  string
	VendorID   *uuid.UUID
	VendorName string
	Metrics    MetricSet
}

// MetricSource exposes the metric calculators: scoped, window-bounded reads
// over the raw transactional records. Every calculator treats missing
// source data as zero and never fails on data absence; only infrastructure
// errors propagate.
type MetricSource interface {
	CuttingReceived(ctx context.Context, scope Scope, start, end time.Time) (OrdersPcs, error)
	// InProduction is a snapshot of jobs still open as of asOf, not a
	// period delta.
	InProduction(ctx context.Context, scope Scope, asOf time.Time) (OrdersPcs, error)
	PcsShipped(ctx context.Context, scope Scope, start, end time.Time) (int64, error)
	PcsCompleted(ctx context.Context, scope Scope, start, end time.Time) (int64, error)
	Revenue(ctx context.Context, scope Scope, start, end time.Time) (Money, error)
	ExpectedReceivable(ctx context.Context, scope Scope, start, end time.Time) (Receivable, error)
	TailorExpense(ctx context.Context, scope Scope, start, end time.Time) (Expense, error)
	// PendingFromTailors is a snapshot of open assignments as of asOf.
	PendingFromTailors(ctx context.Context, scope Scope, asOf time.Time) (PendingWork, error)
	Samples(ctx context.Context, scope Scope, start, end time.Time) (SampleStats, error)
	QC(ctx context.Context, scope Scope, start, end time.Time) (QCStats, error)
	Shipments(ctx context.Context, scope Scope, start, end time.Time) (ShipmentStats, error)
	Efficiency(ctx context.Context, scope Scope, start, end time.Time) (EfficiencyStats, error)
	FabricConsumption(ctx context.Context, scope Scope, start, end time.Time) (FabricStats, error)

	// GroupedTotals serves breakdown dimensions the rollup grain does not
	// carry (tailor, size, fabric) straight from the source records.
	// Unsupported metric/dimension combinations yield an empty slice.
	GroupedTotals(ctx context.Context, scope Scope, metric Metric, dim Dimension, start, end time.Time) ([]GroupTotal, error)
}

// RollupStore is the idempotent persistence and read side for aggregates;
// one logical store per granularity.
type RollupStore interface {
	// Save bulk-upserts a bucket's aggregate rows in one transaction,
	// matching on the composite natural key with nil components compared
	// as explicit NULL. The whole metric payload is replaced on conflict.
	Save(ctx context.Context, granularity Granularity, aggregates []Aggregate) error

	// Totals sums additive metrics over the filter window and takes
	// snapshot metrics from the latest bucket in range, recomputing
	// derived rates from the summed counts.
	Totals(ctx context.Context, filter QueryFilter) (MetricSet, error)

	// SumByBucket returns the metric grouped by bucket label, ascending.
	SumByBucket(ctx context.Context, filter QueryFilter, metric Metric) ([]BucketValue, error)

	// SumByDimension returns the metric grouped by style or vendor id,
	// descending by value, limited to the top N groups.
	SumByDimension(ctx context.Context, filter QueryFilter, metric Metric, dim Dimension, limit int) ([]GroupTotal, error)

	// Drilldown returns denormalized rows sorted by bucket label
	// descending, plus the unpaginated total for pagination metadata.
	Drilldown(ctx context.Context, filter QueryFilter, limit, skip int) ([]DrilldownRow, int64, error)
}

// StyleDirectory provides the reference lookups the engine needs: style
// enumeration for the aggregation pass and display-name resolution for
// breakdowns.
type StyleDirectory interface {
	ListStyles(ctx context.Context, tenantID *uuid.UUID) ([]StyleRef, error)
	// DisplayNames resolves ids to display labels for a uuid-keyed
	// dimension. Missing ids simply stay unresolved.
	DisplayNames(ctx context.Context, dim Dimension, ids []uuid.UUID) (map[uuid.UUID]string, error)
	// ListTenants enumerates distinct tenant ids known to the style
	// directory, used by the scheduled refresh.
	ListTenants(ctx context.Context) ([]uuid.UUID, error)
}
