package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sasa-apparel/backend/internal/domain/analytics"
	"github.com/sasa-apparel/backend/internal/infrastructure/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAggregationService(store *fakeRollupStore, source *fakeMetricSource, dir *fakeDirectory) *AggregationService {
	if dir == nil {
		dir = &fakeDirectory{}
	}
	return NewAggregationService(source, store, dir, zap.NewNop())
}

func TestRebuild(t *testing.T) {
	tenantID := uuid.New()
	vendorID := uuid.New()
	styleA := analytics.StyleRef{ID: uuid.New(), TenantID: &tenantID, VendorID: &vendorID, Name: "Summer Kurta"}
	styleB := analytics.StyleRef{ID: uuid.New(), TenantID: &tenantID, Name: "Winter Shawl"}

	store := &fakeRollupStore{}
	source := &fakeMetricSource{cutting: analytics.OrdersPcs{Orders: 2, Pcs: 100}, pcsCompleted: 80}
	dir := &fakeDirectory{styles: []analytics.StyleRef{styleA, styleB}}
	svc := newTestAggregationService(store, source, dir)

	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 3, 23, 59, 59, 0, time.UTC)

	written, err := svc.Rebuild(context.Background(), &tenantID, analytics.GranularityDaily, start, end)
	require.NoError(t, err)

	// One tenant-wide row plus one per style, for each of the three days.
	assert.Equal(t, 9, written)
	assert.Equal(t, 1, store.saveCalls, "whole window saved in one call")
	require.Len(t, store.saved, 9)

	tenantRows, styleRows := 0, 0
	for _, agg := range store.saved {
		assert.Equal(t, analytics.GranularityDaily, agg.Period)
		assert.Equal(t, &tenantID, agg.TenantID)
		if agg.StyleID == nil {
			tenantRows++
			assert.Nil(t, agg.VendorID)
		} else {
			styleRows++
			if *agg.StyleID == styleA.ID {
				assert.Equal(t, &vendorID, agg.VendorID, "vendor id denormalized from the style")
			}
		}
		assert.Equal(t, int64(100), agg.Metrics.CuttingReceived.Pcs)
		assert.Equal(t, int64(80), agg.Metrics.PcsCompleted)
	}
	assert.Equal(t, 3, tenantRows)
	assert.Equal(t, 6, styleRows)
}

func TestRebuildEmptyWindow(t *testing.T) {
	store := &fakeRollupStore{}
	svc := newTestAggregationService(store, &fakeMetricSource{}, nil)

	start := time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)
	end := start.Add(-48 * time.Hour)

	written, err := svc.Rebuild(context.Background(), nil, analytics.GranularityDaily, start, end)
	require.NoError(t, err)
	assert.Zero(t, written)
	assert.Zero(t, store.saveCalls)
}

func TestRebuildSourceFailure(t *testing.T) {
	store := &fakeRollupStore{}
	source := &fakeMetricSource{cuttingErr: errors.New("connection reset")}
	svc := newTestAggregationService(store, source, nil)

	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 2, 23, 59, 59, 0, time.UTC)

	_, err := svc.Rebuild(context.Background(), nil, analytics.GranularityDaily, start, end)
	require.Error(t, err)
	assert.Zero(t, store.saveCalls, "a failed bucket must not overwrite complete rows")
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 7, 23, 59, 59, 0, time.UTC)

	t.Run("empty granularity list refreshes all", func(t *testing.T) {
		store := &fakeRollupStore{}
		svc := newTestAggregationService(store, &fakeMetricSource{}, nil)

		written, err := svc.Refresh(ctx, nil, nil, start, end)
		require.NoError(t, err)
		assert.Equal(t, len(analytics.AllGranularities()), store.saveCalls)
		assert.Positive(t, written)
	})

	t.Run("single granularity", func(t *testing.T) {
		store := &fakeRollupStore{}
		svc := newTestAggregationService(store, &fakeMetricSource{}, nil)

		written, err := svc.Refresh(ctx, nil, []analytics.Granularity{analytics.GranularityDaily}, start, end)
		require.NoError(t, err)
		assert.Equal(t, 1, store.saveCalls)
		assert.Equal(t, 7, written)
	})

	t.Run("invalid granularity", func(t *testing.T) {
		svc := newTestAggregationService(&fakeRollupStore{}, &fakeMetricSource{}, nil)
		_, err := svc.Refresh(ctx, nil, []analytics.Granularity{analytics.Granularity("hourly")}, start, end)
		assert.ErrorIs(t, err, analytics.ErrInvalidGranularity)
	})

	t.Run("reversed window", func(t *testing.T) {
		svc := newTestAggregationService(&fakeRollupStore{}, &fakeMetricSource{}, nil)
		_, err := svc.Refresh(ctx, nil, nil, end, start)
		assert.ErrorIs(t, err, analytics.ErrInvalidDateRange)
	})
}

func TestExecute(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 2, 23, 59, 59, 0, time.UTC)

	t.Run("valid job rebuilds its window", func(t *testing.T) {
		store := &fakeRollupStore{}
		svc := newTestAggregationService(store, &fakeMetricSource{}, nil)

		job := scheduler.NewJob(nil, analytics.GranularityDaily, start, end, 3)
		err := svc.Execute(ctx, job)
		require.NoError(t, err)
		assert.Equal(t, 1, store.saveCalls)
	})

	t.Run("invalid granularity is rejected", func(t *testing.T) {
		svc := newTestAggregationService(&fakeRollupStore{}, &fakeMetricSource{}, nil)
		job := scheduler.NewJob(nil, analytics.Granularity("hourly"), start, end, 3)
		err := svc.Execute(ctx, job)
		assert.ErrorIs(t, err, scheduler.ErrInvalidGranularity)
	})
}
