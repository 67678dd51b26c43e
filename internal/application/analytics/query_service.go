package analytics

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sasa-apparel/backend/internal/domain/analytics"
	"go.uber.org/zap"
)

// trendEpsilon is the band inside which a period-over-period change counts
// as neutral.
const trendEpsilon = 0.01

// defaultBreakdownLimit caps breakdown rows when the caller does not ask
// for a specific top-N.
const defaultBreakdownLimit = 10

// KPICard is one dashboard card with its period-over-period trend.
type KPICard struct {
	ID             string  `json:"id"`
	Label          string  `json:"label"`
	Value          float64 `json:"value"`
	Unit           string  `json:"unit"`
	TrendPercent   float64 `json:"trendPercent"`
	TrendDirection string  `json:"trendDirection"`
	Tooltip        string  `json:"tooltip,omitempty"`
}

// TrendPoint is one bucket of a metric series.
type TrendPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

// BreakdownRow is one group of a dimensional breakdown.
type BreakdownRow struct {
	Key        string  `json:"key"`
	Label      string  `json:"label"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// Pagination describes a drilldown page.
type Pagination struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Skip    int   `json:"skip"`
	HasMore bool  `json:"hasMore"`
}

// DrilldownPage is one page of per-style bucket rows.
type DrilldownPage struct {
	Rows       []analytics.DrilldownRow
	Pagination Pagination
}

// QueryService serves role-scoped analytics reads. Style and vendor
// questions come from the rollup tables; tailor, size and fabric questions
// go straight to the source records because the rollup grain does not carry
// them.
type QueryService struct {
	store     analytics.RollupStore
	source    analytics.MetricSource
	directory analytics.StyleDirectory
	logger    *zap.Logger
}

// NewQueryService creates a new query service
func NewQueryService(
	store analytics.RollupStore,
	source analytics.MetricSource,
	directory analytics.StyleDirectory,
	logger *zap.Logger,
) *QueryService {
	return &QueryService{
		store:     store,
		source:    source,
		directory: directory,
		logger:    logger,
	}
}

// buildFilter validates the window and applies role scoping.
func buildFilter(ident analytics.Identity, styleID *uuid.UUID, start, end time.Time, granularity analytics.Granularity) (analytics.QueryFilter, error) {
	if !granularity.IsValid() {
		return analytics.QueryFilter{}, analytics.ErrInvalidGranularity
	}
	if end.Before(start) {
		return analytics.QueryFilter{}, analytics.ErrInvalidDateRange
	}
	scope, err := analytics.BuildScope(ident)
	if err != nil {
		return analytics.QueryFilter{}, err
	}
	if styleID != nil {
		scope = scope.WithStyle(*styleID)
	}
	return analytics.QueryFilter{
		Scope:       scope,
		Start:       start,
		End:         end,
		Granularity: granularity,
	}, nil
}

// KPICards returns every registered metric as a card, with the trend
// against the immediately preceding window of equal length.
func (s *QueryService) KPICards(ctx context.Context, ident analytics.Identity, styleID *uuid.UUID, start, end time.Time, granularity analytics.Granularity) ([]KPICard, error) {
	filter, err := buildFilter(ident, styleID, start, end, granularity)
	if err != nil {
		return nil, err
	}

	current, err := s.totals(ctx, filter)
	if err != nil {
		return nil, err
	}
	previous, err := s.totals(ctx, filter.PreviousWindow())
	if err != nil {
		return nil, err
	}

	cards := make([]KPICard, 0, len(analytics.AllMetrics()))
	for _, metric := range analytics.AllMetrics() {
		cur := metric.Value(current)
		prev := metric.Value(previous)
		percent := TrendPercent(cur, prev)
		tooltip := ""
		if metric.IsSnapshot() {
			tooltip = "Outstanding as of the latest bucket in the window"
		}
		cards = append(cards, KPICard{
			ID:             metric.Name,
			Label:          metric.Label,
			Value:          cur,
			Unit:           metric.Unit,
			TrendPercent:   percent,
			TrendDirection: TrendDirection(percent, metric.LowerIsBetter),
			Tooltip:        tooltip,
		})
	}
	return cards, nil
}

// totals reads window totals from the rollup tables, except for tailor
// scopes which the rollup grain cannot answer; those are computed from the
// source records with the same calculators the builder uses.
func (s *QueryService) totals(ctx context.Context, filter analytics.QueryFilter) (analytics.MetricSet, error) {
	if filter.Scope.TailorID == nil {
		return s.store.Totals(ctx, filter)
	}

	var set analytics.MetricSet
	var err error
	scope := filter.Scope
	if set.PcsCompleted, err = s.source.PcsCompleted(ctx, scope, filter.Start, filter.End); err != nil {
		return set, err
	}
	if set.InProduction, err = s.source.InProduction(ctx, scope, filter.End); err != nil {
		return set, err
	}
	if set.TailorExpense, err = s.source.TailorExpense(ctx, scope, filter.Start, filter.End); err != nil {
		return set, err
	}
	if set.PendingFromTailors, err = s.source.PendingFromTailors(ctx, scope, filter.End); err != nil {
		return set, err
	}
	if set.Efficiency, err = s.source.Efficiency(ctx, scope, filter.Start, filter.End); err != nil {
		return set, err
	}
	return set, nil
}

// Trend returns the per-bucket series for one metric. Unknown metrics
// resolve to an empty series, not an error.
func (s *QueryService) Trend(ctx context.Context, ident analytics.Identity, styleID *uuid.UUID, metricName string, start, end time.Time, granularity analytics.Granularity) ([]TrendPoint, error) {
	filter, err := buildFilter(ident, styleID, start, end, granularity)
	if err != nil {
		return nil, err
	}

	metric, ok := analytics.MetricByName(metricName)
	if !ok {
		s.logger.Debug("Unknown trend metric requested", zap.String("metric", metricName))
		return []TrendPoint{}, nil
	}

	if filter.Scope.TailorID != nil {
		return s.tailorTrend(ctx, filter, metric)
	}

	buckets, err := s.store.SumByBucket(ctx, filter, metric)
	if err != nil {
		return nil, err
	}

	points := make([]TrendPoint, 0, len(buckets))
	for _, b := range buckets {
		points = append(points, TrendPoint{Date: b.Label, Value: b.Value, Label: metric.Label})
	}
	return points, nil
}

// tailorTrend serves a tailor's series bucket by bucket from the source
// records, since rollup rows carry no tailor identity. Metrics the source
// cannot answer for a tailor resolve to an empty series.
func (s *QueryService) tailorTrend(ctx context.Context, filter analytics.QueryFilter, metric analytics.Metric) ([]TrendPoint, error) {
	ranges := analytics.GenerateRanges(filter.Start, filter.End, filter.Granularity)
	points := make([]TrendPoint, 0, len(ranges))
	for _, rg := range ranges {
		var value float64
		switch metric.Name {
		case "pcsCompleted":
			n, err := s.source.PcsCompleted(ctx, filter.Scope, rg.Start, rg.End)
			if err != nil {
				return nil, err
			}
			value = float64(n)
		case "inProduction":
			op, err := s.source.InProduction(ctx, filter.Scope, rg.End)
			if err != nil {
				return nil, err
			}
			value = float64(op.Pcs)
		case "tailorExpense":
			exp, err := s.source.TailorExpense(ctx, filter.Scope, rg.Start, rg.End)
			if err != nil {
				return nil, err
			}
			value, _ = exp.Amount.Float64()
		case "pendingFromTailors":
			pending, err := s.source.PendingFromTailors(ctx, filter.Scope, rg.End)
			if err != nil {
				return nil, err
			}
			value = float64(pending.Pcs)
		default:
			return []TrendPoint{}, nil
		}
		points = append(points, TrendPoint{Date: rg.Label, Value: value, Label: metric.Label})
	}
	return points, nil
}

// Breakdown returns the top-N groups of one metric along a dimension, with
// each group's share of the total. Unknown metric or dimension resolves to
// an empty result.
func (s *QueryService) Breakdown(ctx context.Context, ident analytics.Identity, styleID *uuid.UUID, metricName string, dim analytics.Dimension, start, end time.Time, granularity analytics.Granularity, limit int) ([]BreakdownRow, error) {
	filter, err := buildFilter(ident, styleID, start, end, granularity)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultBreakdownLimit
	}

	metric, ok := analytics.MetricByName(metricName)
	if !ok || !dim.IsValid() {
		return []BreakdownRow{}, nil
	}

	var totals []analytics.GroupTotal
	switch dim {
	case analytics.DimensionStyle, analytics.DimensionVendor:
		// Rollup rows carry no tailor identity, so these dimensions
		// cannot be answered for a tailor scope.
		if filter.Scope.TailorID != nil {
			return []BreakdownRow{}, nil
		}
		totals, err = s.store.SumByDimension(ctx, filter, metric, dim, limit)
	default:
		totals, err = s.source.GroupedTotals(ctx, filter.Scope, metric, dim, start, end)
		if err == nil && len(totals) > limit {
			totals = totals[:limit]
		}
	}
	if err != nil {
		return nil, err
	}

	var sum float64
	ids := make([]uuid.UUID, 0, len(totals))
	for _, t := range totals {
		sum += t.Value
		if t.Key != nil {
			ids = append(ids, *t.Key)
		}
	}

	names, err := s.directory.DisplayNames(ctx, dim, ids)
	if err != nil {
		return nil, err
	}

	rows := make([]BreakdownRow, 0, len(totals))
	for _, t := range totals {
		row := BreakdownRow{Value: t.Value, Label: t.Text}
		if t.Key != nil {
			row.Key = t.Key.String()
			if name, ok := names[*t.Key]; ok && name != "" {
				row.Label = name
			} else if row.Label == "" {
				row.Label = row.Key
			}
		} else if t.Text != "" {
			row.Key = t.Text
		}
		if sum != 0 {
			row.Percentage = t.Value / sum * 100
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Drilldown pages through per-style bucket rows, newest first.
func (s *QueryService) Drilldown(ctx context.Context, ident analytics.Identity, styleID *uuid.UUID, start, end time.Time, granularity analytics.Granularity, limit, skip int) (*DrilldownPage, error) {
	filter, err := buildFilter(ident, styleID, start, end, granularity)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if skip < 0 {
		skip = 0
	}

	// Drilldown rows are per-style rollup rows, which carry no tailor
	// identity; a tailor caller gets an empty page.
	if filter.Scope.TailorID != nil {
		return &DrilldownPage{
			Rows:       []analytics.DrilldownRow{},
			Pagination: Pagination{Limit: limit, Skip: skip},
		}, nil
	}

	rows, total, err := s.store.Drilldown(ctx, filter, limit, skip)
	if err != nil {
		return nil, err
	}

	return &DrilldownPage{
		Rows: rows,
		Pagination: Pagination{
			Total:   total,
			Limit:   limit,
			Skip:    skip,
			HasMore: int64(skip+len(rows)) < total,
		},
	}, nil
}

// TrendPercent computes the period-over-period change. A zero previous
// value yields 100 when the current value is positive, otherwise 0.
func TrendPercent(cur, prev float64) float64 {
	if prev == 0 {
		if cur > 0 {
			return 100
		}
		return 0
	}
	return (cur - prev) / prev * 100
}

// TrendDirection maps a change to up, down or neutral. Up always means
// favorable: for lower-is-better metrics a falling value reports up.
func TrendDirection(percent float64, lowerIsBetter bool) string {
	if math.Abs(percent) < trendEpsilon {
		return "neutral"
	}
	rising := percent > 0
	if rising != lowerIsBetter {
		return "up"
	}
	return "down"
}
