package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sasa-apparel/backend/internal/domain/analytics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRollupStore serves canned window totals keyed by the window start
// date and records how it was called.
type fakeRollupStore struct {
	totalsByStart map[string]analytics.MetricSet
	totalsCalls   int
	totalsErr     error

	buckets     []analytics.BucketValue
	bucketCalls int
	groups      []analytics.GroupTotal

	drilldownRows  []analytics.DrilldownRow
	drilldownTotal int64
	drilldownCalls int

	saved     []analytics.Aggregate
	saveCalls int
	saveErr   error
}

func (f *fakeRollupStore) Save(_ context.Context, _ analytics.Granularity, aggregates []analytics.Aggregate) error {
	f.saveCalls++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, aggregates...)
	return nil
}

func (f *fakeRollupStore) Totals(_ context.Context, filter analytics.QueryFilter) (analytics.MetricSet, error) {
	f.totalsCalls++
	if f.totalsErr != nil {
		return analytics.MetricSet{}, f.totalsErr
	}
	return f.totalsByStart[filter.Start.Format("2006-01-02")], nil
}

func (f *fakeRollupStore) SumByBucket(_ context.Context, _ analytics.QueryFilter, _ analytics.Metric) ([]analytics.BucketValue, error) {
	f.bucketCalls++
	return f.buckets, nil
}

func (f *fakeRollupStore) SumByDimension(_ context.Context, _ analytics.QueryFilter, _ analytics.Metric, _ analytics.Dimension, limit int) ([]analytics.GroupTotal, error) {
	if len(f.groups) > limit {
		return f.groups[:limit], nil
	}
	return f.groups, nil
}

func (f *fakeRollupStore) Drilldown(_ context.Context, _ analytics.QueryFilter, limit, skip int) ([]analytics.DrilldownRow, int64, error) {
	f.drilldownCalls++
	rows := f.drilldownRows
	if skip < len(rows) {
		rows = rows[skip:]
	} else {
		rows = nil
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, f.drilldownTotal, nil
}

// fakeMetricSource returns fixed values and counts calls so tests can prove
// which read path served a query.
type fakeMetricSource struct {
	pcsCompleted int64
	inProduction analytics.OrdersPcs
	expense      analytics.Expense
	pending      analytics.PendingWork
	efficiency   analytics.EfficiencyStats
	groups       []analytics.GroupTotal
	cutting      analytics.OrdersPcs
	cuttingErr   error

	calls int
}

func (f *fakeMetricSource) CuttingReceived(context.Context, analytics.Scope, time.Time, time.Time) (analytics.OrdersPcs, error) {
	f.calls++
	return f.cutting, f.cuttingErr
}

func (f *fakeMetricSource) InProduction(context.Context, analytics.Scope, time.Time) (analytics.OrdersPcs, error) {
	f.calls++
	return f.inProduction, nil
}

func (f *fakeMetricSource) PcsShipped(context.Context, analytics.Scope, time.Time, time.Time) (int64, error) {
	f.calls++
	return 0, nil
}

func (f *fakeMetricSource) PcsCompleted(context.Context, analytics.Scope, time.Time, time.Time) (int64, error) {
	f.calls++
	return f.pcsCompleted, nil
}

func (f *fakeMetricSource) Revenue(context.Context, analytics.Scope, time.Time, time.Time) (analytics.Money, error) {
	f.calls++
	return analytics.Money{}, nil
}

func (f *fakeMetricSource) ExpectedReceivable(context.Context, analytics.Scope, time.Time, time.Time) (analytics.Receivable, error) {
	f.calls++
	return analytics.Receivable{}, nil
}

func (f *fakeMetricSource) TailorExpense(context.Context, analytics.Scope, time.Time, time.Time) (analytics.Expense, error) {
	f.calls++
	return f.expense, nil
}

func (f *fakeMetricSource) PendingFromTailors(context.Context, analytics.Scope, time.Time) (analytics.PendingWork, error) {
	f.calls++
	return f.pending, nil
}

func (f *fakeMetricSource) Samples(context.Context, analytics.Scope, time.Time, time.Time) (analytics.SampleStats, error) {
	f.calls++
	return analytics.SampleStats{}, nil
}

func (f *fakeMetricSource) QC(context.Context, analytics.Scope, time.Time, time.Time) (analytics.QCStats, error) {
	f.calls++
	return analytics.QCStats{}, nil
}

func (f *fakeMetricSource) Shipments(context.Context, analytics.Scope, time.Time, time.Time) (analytics.ShipmentStats, error) {
	f.calls++
	return analytics.ShipmentStats{}, nil
}

func (f *fakeMetricSource) Efficiency(context.Context, analytics.Scope, time.Time, time.Time) (analytics.EfficiencyStats, error) {
	f.calls++
	return f.efficiency, nil
}

func (f *fakeMetricSource) FabricConsumption(context.Context, analytics.Scope, time.Time, time.Time) (analytics.FabricStats, error) {
	f.calls++
	return analytics.FabricStats{}, nil
}

func (f *fakeMetricSource) GroupedTotals(context.Context, analytics.Scope, analytics.Metric, analytics.Dimension, time.Time, time.Time) ([]analytics.GroupTotal, error) {
	f.calls++
	return f.groups, nil
}

// fakeDirectory resolves display names from a static map.
type fakeDirectory struct {
	styles  []analytics.StyleRef
	names   map[uuid.UUID]string
	tenants []uuid.UUID
}

func (f *fakeDirectory) ListStyles(context.Context, *uuid.UUID) ([]analytics.StyleRef, error) {
	return f.styles, nil
}

func (f *fakeDirectory) DisplayNames(_ context.Context, _ analytics.Dimension, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		if name, ok := f.names[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

func (f *fakeDirectory) ListTenants(context.Context) ([]uuid.UUID, error) {
	return f.tenants, nil
}

func newTestQueryService(store *fakeRollupStore, source *fakeMetricSource, dir *fakeDirectory) *QueryService {
	if dir == nil {
		dir = &fakeDirectory{}
	}
	return NewQueryService(store, source, dir, zap.NewNop())
}

func managerIdentity() analytics.Identity {
	tenantID := uuid.New()
	return analytics.Identity{Role: analytics.RoleManager, TenantID: &tenantID}
}

var (
	windowStart = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC)
)

func TestKPICards(t *testing.T) {
	current := analytics.MetricSet{PcsShipped: 150}
	current.Shipments.LateRate = 10
	previous := analytics.MetricSet{PcsShipped: 100}
	previous.Shipments.LateRate = 5

	prevFilter := analytics.QueryFilter{Start: windowStart, End: windowEnd}.PreviousWindow()
	store := &fakeRollupStore{totalsByStart: map[string]analytics.MetricSet{
		windowStart.Format("2006-01-02"):      current,
		prevFilter.Start.Format("2006-01-02"): previous,
	}}

	svc := newTestQueryService(store, &fakeMetricSource{}, nil)

	cards, err := svc.KPICards(context.Background(), managerIdentity(), nil, windowStart, windowEnd, analytics.GranularityDaily)
	require.NoError(t, err)
	assert.Len(t, cards, len(analytics.AllMetrics()))
	assert.Equal(t, 2, store.totalsCalls, "one read per window")

	byID := make(map[string]KPICard, len(cards))
	for _, c := range cards {
		byID[c.ID] = c
	}

	shipped := byID["pcsShipped"]
	assert.Equal(t, 150.0, shipped.Value)
	assert.InDelta(t, 50.0, shipped.TrendPercent, 0.0001)
	assert.Equal(t, "up", shipped.TrendDirection)
	assert.Empty(t, shipped.Tooltip)

	// A rising late rate is unfavorable.
	late := byID["lateShipmentRate"]
	assert.InDelta(t, 100.0, late.TrendPercent, 0.0001)
	assert.Equal(t, "down", late.TrendDirection)

	// Snapshot cards carry the as-of tooltip.
	assert.NotEmpty(t, byID["inProduction"].Tooltip)
	assert.NotEmpty(t, byID["pendingFromTailors"].Tooltip)
}

func TestKPICardsWeeklyComparisonWindow(t *testing.T) {
	// Wednesday start: the first ISO week of the window also covers the two
	// days before it. The comparison window must end before that week so its
	// rows are not counted in both totals.
	start := time.Date(2026, 2, 4, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 17, 23, 59, 59, 0, time.UTC)

	filter := analytics.QueryFilter{Start: start, End: end, Granularity: analytics.GranularityWeekly}
	prev := filter.PreviousWindow()
	weekStart := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	require.True(t, prev.End.Before(weekStart),
		"comparison window must end before the Monday of the first week")

	current := analytics.MetricSet{PcsShipped: 200}
	previous := analytics.MetricSet{PcsShipped: 100}
	store := &fakeRollupStore{totalsByStart: map[string]analytics.MetricSet{
		start.Format("2006-01-02"):      current,
		prev.Start.Format("2006-01-02"): previous,
	}}
	svc := newTestQueryService(store, &fakeMetricSource{}, nil)

	cards, err := svc.KPICards(context.Background(), managerIdentity(), nil, start, end, analytics.GranularityWeekly)
	require.NoError(t, err)

	for _, c := range cards {
		if c.ID == "pcsShipped" {
			assert.Equal(t, 200.0, c.Value)
			assert.InDelta(t, 100.0, c.TrendPercent, 0.0001)
		}
	}
}

func TestKPICardsValidation(t *testing.T) {
	store := &fakeRollupStore{}
	svc := newTestQueryService(store, &fakeMetricSource{}, nil)
	ctx := context.Background()

	t.Run("vendor without bound id", func(t *testing.T) {
		tenantID := uuid.New()
		ident := analytics.Identity{Role: analytics.RoleVendor, TenantID: &tenantID}
		_, err := svc.KPICards(ctx, ident, nil, windowStart, windowEnd, analytics.GranularityDaily)
		assert.ErrorIs(t, err, analytics.ErrScopeRequired)
	})

	t.Run("invalid granularity", func(t *testing.T) {
		_, err := svc.KPICards(ctx, managerIdentity(), nil, windowStart, windowEnd, analytics.Granularity("hourly"))
		assert.ErrorIs(t, err, analytics.ErrInvalidGranularity)
	})

	t.Run("reversed window", func(t *testing.T) {
		_, err := svc.KPICards(ctx, managerIdentity(), nil, windowEnd, windowStart, analytics.GranularityDaily)
		assert.ErrorIs(t, err, analytics.ErrInvalidDateRange)
	})

	assert.Zero(t, store.totalsCalls, "invalid queries never reach the store")
}

func TestKPICardsTailorScope(t *testing.T) {
	// Tailor questions cannot be answered from the rollup grain; the
	// service must read the source calculators instead.
	store := &fakeRollupStore{totalsErr: errors.New("rollup store must not be read for tailor scopes")}
	source := &fakeMetricSource{
		pcsCompleted: 42,
		expense:      analytics.Expense{Payments: 3},
		pending:      analytics.PendingWork{Assignments: 2, Pcs: 120},
	}
	svc := newTestQueryService(store, source, nil)

	tenantID := uuid.New()
	tailorID := uuid.New()
	ident := analytics.Identity{Role: analytics.RoleTailor, TenantID: &tenantID, TailorID: &tailorID}

	cards, err := svc.KPICards(context.Background(), ident, nil, windowStart, windowEnd, analytics.GranularityDaily)
	require.NoError(t, err)
	assert.Zero(t, store.totalsCalls)
	assert.Positive(t, source.calls)

	for _, c := range cards {
		if c.ID == "pcsCompleted" {
			assert.Equal(t, 42.0, c.Value)
		}
		if c.ID == "pendingFromTailors" {
			assert.Equal(t, 120.0, c.Value)
		}
	}
}

func TestTrend(t *testing.T) {
	store := &fakeRollupStore{buckets: []analytics.BucketValue{
		{Label: "2026-02-01", Value: 10},
		{Label: "2026-02-02", Value: 25},
	}}
	svc := newTestQueryService(store, &fakeMetricSource{}, nil)
	ctx := context.Background()

	t.Run("known metric yields the bucket series", func(t *testing.T) {
		points, err := svc.Trend(ctx, managerIdentity(), nil, "pcsShipped", windowStart, windowEnd, analytics.GranularityDaily)
		require.NoError(t, err)
		require.Len(t, points, 2)
		assert.Equal(t, "2026-02-01", points[0].Date)
		assert.Equal(t, 10.0, points[0].Value)
		assert.Equal(t, "Pcs Shipped", points[0].Label)
	})

	t.Run("unknown metric yields an empty series", func(t *testing.T) {
		points, err := svc.Trend(ctx, managerIdentity(), nil, "warpDriveOutput", windowStart, windowEnd, analytics.GranularityDaily)
		require.NoError(t, err)
		assert.Empty(t, points)
	})
}

func TestTrendTailorScope(t *testing.T) {
	// Rollup rows carry no tailor identity, so a tailor's series must come
	// from the source records bucket by bucket.
	store := &fakeRollupStore{buckets: []analytics.BucketValue{
		{Label: "2026-02-01", Value: 500},
	}}
	source := &fakeMetricSource{pcsCompleted: 42}
	svc := newTestQueryService(store, source, nil)

	tenantID := uuid.New()
	tailorID := uuid.New()
	ident := analytics.Identity{Role: analytics.RoleTailor, TenantID: &tenantID, TailorID: &tailorID}
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 3, 23, 59, 59, 0, time.UTC)
	ctx := context.Background()

	t.Run("supported metric is served per bucket", func(t *testing.T) {
		points, err := svc.Trend(ctx, ident, nil, "pcsCompleted", start, end, analytics.GranularityDaily)
		require.NoError(t, err)
		require.Len(t, points, 3)
		for _, p := range points {
			assert.Equal(t, 42.0, p.Value)
		}
		assert.Zero(t, store.bucketCalls, "rollup rows must not serve tailor series")
	})

	t.Run("metric outside the tailor grain yields an empty series", func(t *testing.T) {
		points, err := svc.Trend(ctx, ident, nil, "pcsShipped", start, end, analytics.GranularityDaily)
		require.NoError(t, err)
		assert.Empty(t, points)
		assert.Zero(t, store.bucketCalls)
	})
}

func TestBreakdown(t *testing.T) {
	styleA := uuid.New()
	styleB := uuid.New()
	ctx := context.Background()

	t.Run("style dimension reads the rollup store and resolves names", func(t *testing.T) {
		store := &fakeRollupStore{groups: []analytics.GroupTotal{
			{Key: &styleA, Value: 300},
			{Key: &styleB, Value: 100},
		}}
		dir := &fakeDirectory{names: map[uuid.UUID]string{styleA: "Summer Kurta"}}
		svc := newTestQueryService(store, &fakeMetricSource{}, dir)

		rows, err := svc.Breakdown(ctx, managerIdentity(), nil, "pcsShipped", analytics.DimensionStyle, windowStart, windowEnd, analytics.GranularityDaily, 10)
		require.NoError(t, err)
		require.Len(t, rows, 2)

		assert.Equal(t, styleA.String(), rows[0].Key)
		assert.Equal(t, "Summer Kurta", rows[0].Label)
		assert.InDelta(t, 75.0, rows[0].Percentage, 0.0001)
		// Unresolved ids fall back to the raw key.
		assert.Equal(t, styleB.String(), rows[1].Label)
		assert.InDelta(t, 25.0, rows[1].Percentage, 0.0001)
	})

	t.Run("size dimension reads the source records", func(t *testing.T) {
		source := &fakeMetricSource{groups: []analytics.GroupTotal{
			{Text: "M", Value: 60},
			{Text: "L", Value: 30},
			{Text: "S", Value: 10},
		}}
		svc := newTestQueryService(&fakeRollupStore{}, source, nil)

		rows, err := svc.Breakdown(ctx, managerIdentity(), nil, "cuttingReceived", analytics.DimensionSize, windowStart, windowEnd, analytics.GranularityDaily, 2)
		require.NoError(t, err)
		require.Len(t, rows, 2, "limit applies to source-served dimensions too")
		assert.Equal(t, "M", rows[0].Key)
	})

	t.Run("unknown metric yields an empty result", func(t *testing.T) {
		svc := newTestQueryService(&fakeRollupStore{}, &fakeMetricSource{}, nil)
		rows, err := svc.Breakdown(ctx, managerIdentity(), nil, "nope", analytics.DimensionStyle, windowStart, windowEnd, analytics.GranularityDaily, 10)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("unknown dimension yields an empty result", func(t *testing.T) {
		svc := newTestQueryService(&fakeRollupStore{}, &fakeMetricSource{}, nil)
		rows, err := svc.Breakdown(ctx, managerIdentity(), nil, "pcsShipped", analytics.Dimension("color"), windowStart, windowEnd, analytics.GranularityDaily, 10)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("style dimension is empty for a tailor scope", func(t *testing.T) {
		tenantID := uuid.New()
		tailorID := uuid.New()
		ident := analytics.Identity{Role: analytics.RoleTailor, TenantID: &tenantID, TailorID: &tailorID}

		store := &fakeRollupStore{groups: []analytics.GroupTotal{{Key: &styleA, Value: 300}}}
		svc := newTestQueryService(store, &fakeMetricSource{}, nil)

		rows, err := svc.Breakdown(ctx, ident, nil, "pcsCompleted", analytics.DimensionStyle, windowStart, windowEnd, analytics.GranularityDaily, 10)
		require.NoError(t, err)
		assert.Empty(t, rows, "per-style rollup rows are not scoped to one tailor")
	})
}

func TestDrilldown(t *testing.T) {
	styleID := uuid.New()
	rows := make([]analytics.DrilldownRow, 30)
	for i := range rows {
		rows[i] = analytics.DrilldownRow{Date: "2026-02-01", StyleID: &styleID}
	}
	store := &fakeRollupStore{drilldownRows: rows, drilldownTotal: 30}
	svc := newTestQueryService(store, &fakeMetricSource{}, nil)
	ctx := context.Background()

	t.Run("defaults apply when limit is out of range", func(t *testing.T) {
		page, err := svc.Drilldown(ctx, managerIdentity(), nil, windowStart, windowEnd, analytics.GranularityDaily, 0, -5)
		require.NoError(t, err)
		assert.Equal(t, 20, page.Pagination.Limit)
		assert.Equal(t, 0, page.Pagination.Skip)
		assert.Len(t, page.Rows, 20)
		assert.True(t, page.Pagination.HasMore)

		page, err = svc.Drilldown(ctx, managerIdentity(), nil, windowStart, windowEnd, analytics.GranularityDaily, 500, 0)
		require.NoError(t, err)
		assert.Equal(t, 20, page.Pagination.Limit)
	})

	t.Run("last page reports no more rows", func(t *testing.T) {
		page, err := svc.Drilldown(ctx, managerIdentity(), nil, windowStart, windowEnd, analytics.GranularityDaily, 20, 20)
		require.NoError(t, err)
		assert.Len(t, page.Rows, 10)
		assert.False(t, page.Pagination.HasMore)
		assert.Equal(t, int64(30), page.Pagination.Total)
	})

	t.Run("tailor scope gets an empty page", func(t *testing.T) {
		tenantID := uuid.New()
		tailorID := uuid.New()
		ident := analytics.Identity{Role: analytics.RoleTailor, TenantID: &tenantID, TailorID: &tailorID}

		tailorStore := &fakeRollupStore{drilldownRows: rows, drilldownTotal: 30}
		tailorSvc := newTestQueryService(tailorStore, &fakeMetricSource{}, nil)

		page, err := tailorSvc.Drilldown(ctx, ident, nil, windowStart, windowEnd, analytics.GranularityDaily, 20, 0)
		require.NoError(t, err)
		assert.Empty(t, page.Rows)
		assert.Zero(t, page.Pagination.Total)
		assert.False(t, page.Pagination.HasMore)
		assert.Zero(t, tailorStore.drilldownCalls, "rollup rows must not serve tailor drilldowns")
	})
}

func TestTrendPercent(t *testing.T) {
	assert.InDelta(t, 50.0, TrendPercent(150, 100), 0.0001)
	assert.InDelta(t, -25.0, TrendPercent(75, 100), 0.0001)
	assert.Equal(t, 100.0, TrendPercent(10, 0))
	assert.Equal(t, 0.0, TrendPercent(0, 0))
	assert.Equal(t, 0.0, TrendPercent(-5, 0))
}

func TestTrendDirection(t *testing.T) {
	assert.Equal(t, "up", TrendDirection(5, false))
	assert.Equal(t, "down", TrendDirection(-5, false))
	assert.Equal(t, "down", TrendDirection(5, true))
	assert.Equal(t, "up", TrendDirection(-5, true))
	assert.Equal(t, "neutral", TrendDirection(0.005, false))
	assert.Equal(t, "neutral", TrendDirection(-0.005, true))
}
