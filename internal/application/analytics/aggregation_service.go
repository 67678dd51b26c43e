package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sasa-apparel/backend/internal/domain/analytics"
	"github.com/sasa-apparel/backend/internal/infrastructure/scheduler"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// bucketConcurrency bounds how many buckets are computed in parallel per run.
const bucketConcurrency = 4

// AggregationService computes rollup rows from the source records and
// persists them. It doubles as the scheduler's job executor.
type AggregationService struct {
	source    analytics.MetricSource
	store     analytics.RollupStore
	directory analytics.StyleDirectory
	logger    *zap.Logger
}

// NewAggregationService creates a new aggregation service
func NewAggregationService(
	source analytics.MetricSource,
	store analytics.RollupStore,
	directory analytics.StyleDirectory,
	logger *zap.Logger,
) *AggregationService {
	return &AggregationService{
		source:    source,
		store:     store,
		directory: directory,
		logger:    logger,
	}
}

// Execute implements scheduler.JobExecutor
func (s *AggregationService) Execute(ctx context.Context, job *scheduler.Job) error {
	if !job.Granularity.IsValid() {
		return scheduler.ErrInvalidGranularity
	}
	_, err := s.Rebuild(ctx, job.TenantID, job.Granularity, job.PeriodStart, job.PeriodEnd)
	return err
}

// Refresh recomputes the requested granularities over a window and returns
// the number of rollup rows written. An empty granularity list means all.
func (s *AggregationService) Refresh(ctx context.Context, tenantID *uuid.UUID, granularities []analytics.Granularity, start, end time.Time) (int, error) {
	if end.Before(start) {
		return 0, analytics.ErrInvalidDateRange
	}
	if len(granularities) == 0 {
		granularities = analytics.AllGranularities()
	}

	total := 0
	for _, granularity := range granularities {
		if !granularity.IsValid() {
			return 0, analytics.ErrInvalidGranularity
		}
		written, err := s.Rebuild(ctx, tenantID, granularity, start, end)
		if err != nil {
			return total, err
		}
		total += written
	}
	return total, nil
}

// Rebuild recomputes one granularity over a window: one tenant-wide row per
// bucket plus one row per style, replacing whatever the buckets held before.
// Any failed bucket fails the whole run; stale complete rows beat fresh
// partial ones.
func (s *AggregationService) Rebuild(ctx context.Context, tenantID *uuid.UUID, granularity analytics.Granularity, start, end time.Time) (int, error) {
	ranges := analytics.GenerateRanges(start, end, granularity)
	if len(ranges) == 0 {
		return 0, nil
	}

	styles, err := s.directory.ListStyles(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("failed to list styles: %w", err)
	}

	began := time.Now()
	perBucket := make([][]analytics.Aggregate, len(ranges))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bucketConcurrency)
	for i, rg := range ranges {
		i, rg := i, rg
		g.Go(func() error {
			rows, err := s.computeBucket(gctx, tenantID, granularity, rg, styles)
			if err != nil {
				return fmt.Errorf("bucket %s: %w", rg.Label, err)
			}
			perBucket[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var aggregates []analytics.Aggregate
	for _, rows := range perBucket {
		aggregates = append(aggregates, rows...)
	}

	if err := s.store.Save(ctx, granularity, aggregates); err != nil {
		return 0, fmt.Errorf("failed to save %s aggregates: %w", granularity, err)
	}

	s.logger.Info("Rollup rebuilt",
		zap.String("granularity", string(granularity)),
		zap.Int("buckets", len(ranges)),
		zap.Int("rows", len(aggregates)),
		zap.Duration("took", time.Since(began)),
	)
	return len(aggregates), nil
}

// computeBucket produces the tenant-wide row and the per-style rows for one
// bucket.
func (s *AggregationService) computeBucket(ctx context.Context, tenantID *uuid.UUID, granularity analytics.Granularity, rg analytics.Range, styles []analytics.StyleRef) ([]analytics.Aggregate, error) {
	rows := make([]analytics.Aggregate, 0, len(styles)+1)

	tenantScope := analytics.Scope{TenantID: tenantID}
	set, err := s.computeMetricSet(ctx, tenantScope, rg)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	rows = append(rows, analytics.Aggregate{
		TenantID:   tenantID,
		Period:     granularity,
		Date:       rg.Label,
		Metrics:    set,
		ComputedAt: now,
	})

	for _, style := range styles {
		styleID := style.ID
		scope := analytics.Scope{TenantID: tenantID, StyleID: &styleID}
		set, err := s.computeMetricSet(ctx, scope, rg)
		if err != nil {
			return nil, fmt.Errorf("style %s: %w", styleID, err)
		}
		rows = append(rows, analytics.Aggregate{
			TenantID:   tenantID,
			Period:     granularity,
			Date:       rg.Label,
			StyleID:    &styleID,
			VendorID:   style.VendorID,
			Metrics:    set,
			ComputedAt: time.Now(),
		})
	}
	return rows, nil
}

// computeMetricSet runs every calculator for one scope and bucket. Snapshot
// metrics are evaluated as of the bucket end.
func (s *AggregationService) computeMetricSet(ctx context.Context, scope analytics.Scope, rg analytics.Range) (analytics.MetricSet, error) {
	var set analytics.MetricSet
	var err error

	if set.CuttingReceived, err = s.source.CuttingReceived(ctx, scope, rg.Start, rg.End); err != nil {
		return set, fmt.Errorf("cutting: %w", err)
	}
	if set.InProduction, err = s.source.InProduction(ctx, scope, rg.End); err != nil {
		return set, fmt.Errorf("in production: %w", err)
	}
	if set.PcsShipped, err = s.source.PcsShipped(ctx, scope, rg.Start, rg.End); err != nil {
		return set, fmt.Errorf("pcs shipped: %w", err)
	}
	if set.PcsCompleted, err = s.source.PcsCompleted(ctx, scope, rg.Start, rg.End); err != nil {
		return set, fmt.Errorf("pcs completed: %w", err)
	}
	if set.Revenue, err = s.source.Revenue(ctx, scope, rg.Start, rg.End); err != nil {
		return set, fmt.Errorf("revenue: %w", err)
	}
	if set.ExpectedReceivable, err = s.source.ExpectedReceivable(ctx, scope, rg.Start, rg.End); err != nil {
		return set, fmt.Errorf("receivable: %w", err)
	}
	if set.TailorExpense, err = s.source.TailorExpense(ctx, scope, rg.Start, rg.End); err != nil {
		return set, fmt.Errorf("tailor expense: %w", err)
	}
	if set.PendingFromTailors, err = s.source.PendingFromTailors(ctx, scope, rg.End); err != nil {
		return set, fmt.Errorf("pending from tailors: %w", err)
	}
	if set.Samples, err = s.source.Samples(ctx, scope, rg.Start, rg.End); err != nil {
		return set, fmt.Errorf("samples: %w", err)
	}
	if set.QC, err = s.source.QC(ctx, scope, rg.Start, rg.End); err != nil {
		return set, fmt.Errorf("qc: %w", err)
	}
	if set.Shipments, err = s.source.Shipments(ctx, scope, rg.Start, rg.End); err != nil {
		return set, fmt.Errorf("shipments: %w", err)
	}
	if set.Efficiency, err = s.source.Efficiency(ctx, scope, rg.Start, rg.End); err != nil {
		return set, fmt.Errorf("efficiency: %w", err)
	}
	if set.FabricConsumption, err = s.source.FabricConsumption(ctx, scope, rg.Start, rg.End); err != nil {
		return set, fmt.Errorf("fabric: %w", err)
	}
	return set, nil
}
