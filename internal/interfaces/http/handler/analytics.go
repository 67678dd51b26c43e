package handler

import (
	"context"
	"maps"
	"time"

	appanalytics "github.com/sasa-apparel/backend/internal/application/analytics"
	"github.com/sasa-apparel/backend/internal/domain/analytics"
	"github.com/sasa-apparel/backend/internal/infrastructure/cache"
	"github.com/sasa-apparel/backend/internal/infrastructure/scheduler"
	"github.com/sasa-apparel/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// defaultQueryWindowDays is used when the caller omits start_date/end_date
const defaultQueryWindowDays = 30

// AnalyticsHandler serves the rollup query and refresh endpoints
type AnalyticsHandler struct {
	BaseHandler
	queries       *appanalytics.QueryService
	aggregates    *appanalytics.AggregationService
	cronScheduler *scheduler.RollupCronScheduler
	queryCache    cache.QueryCache
	cacheTTL      time.Duration
	logger        *zap.Logger
}

// NewAnalyticsHandler creates a new analytics handler.
// queryCache may be nil, in which case every request hits the store.
func NewAnalyticsHandler(
	queries *appanalytics.QueryService,
	aggregates *appanalytics.AggregationService,
	cronScheduler *scheduler.RollupCronScheduler,
	queryCache cache.QueryCache,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *AnalyticsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsHandler{
		queries:       queries,
		aggregates:    aggregates,
		cronScheduler: cronScheduler,
		queryCache:    queryCache,
		cacheTTL:      cacheTTL,
		logger:        logger,
	}
}

// queryParams holds the parsed common query string parameters
type queryParams struct {
	ident       analytics.Identity
	styleID     *uuid.UUID
	start       time.Time
	end         time.Time
	granularity analytics.Granularity
}

// parseQueryParams extracts identity and the shared window parameters.
// On failure it writes the error response and returns false.
func (h *AnalyticsHandler) parseQueryParams(c *gin.Context) (queryParams, bool) {
	var p queryParams

	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return p, false
	}
	p.ident = claims.Identity()

	now := time.Now()
	p.end = now
	p.start = now.AddDate(0, 0, -defaultQueryWindowDays)

	if raw := c.Query("start_date"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			h.BadRequest(c, "start_date must be formatted as YYYY-MM-DD")
			return p, false
		}
		p.start = t
	}
	if raw := c.Query("end_date"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			h.BadRequest(c, "end_date must be formatted as YYYY-MM-DD")
			return p, false
		}
		// Make the end date inclusive
		p.end = t.Add(24*time.Hour - time.Second)
	}

	p.granularity = analytics.Granularity(c.DefaultQuery("granularity", string(analytics.GranularityDaily)))

	if raw := c.Query("style_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "style_id must be a valid UUID")
			return p, false
		}
		p.styleID = &id
	}

	return p, true
}

// cacheKey builds a cache key scoped by tenant, identity and the query shape.
// Identity fields are part of the key so a vendor never reads a manager's rows.
func (h *AnalyticsHandler) cacheKey(p queryParams, parts ...string) string {
	tenant := "global"
	if p.ident.TenantID != nil {
		tenant = p.ident.TenantID.String()
	}
	scope := string(p.ident.Role)
	if p.ident.VendorID != nil {
		scope += ":" + p.ident.VendorID.String()
	}
	if p.ident.TailorID != nil {
		scope += ":" + p.ident.TailorID.String()
	}
	style := ""
	if p.styleID != nil {
		style = p.styleID.String()
	}

	all := append([]string{tenant}, parts...)
	all = append(all, scope, style, string(p.granularity),
		p.start.Format(dateLayout), p.end.Format(dateLayout))
	return cache.Key(all...)
}

// GetKPIs returns the KPI cards for the requested window
// @Summary Get KPI cards
// @Tags analytics
// @Produce json
// @Success 200 {object} dto.Response
// @Router /api/v1/analytics/kpis [get]
func (h *AnalyticsHandler) GetKPIs(c *gin.Context) {
	p, ok := h.parseQueryParams(c)
	if !ok {
		return
	}

	cards, err := cache.FetchJSON(c.Request.Context(), h.queryCache, h.cacheKey(p, "kpis"), h.cacheTTL,
		func(ctx context.Context) ([]appanalytics.KPICard, error) {
			return h.queries.KPICards(ctx, p.ident, p.styleID, p.start, p.end, p.granularity)
		})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, cards)
}

// GetTrend returns the per-bucket series for one metric
// @Summary Get metric trend
// @Tags analytics
// @Produce json
// @Success 200 {object} dto.Response
// @Router /api/v1/analytics/trend [get]
func (h *AnalyticsHandler) GetTrend(c *gin.Context) {
	p, ok := h.parseQueryParams(c)
	if !ok {
		return
	}
	metric := c.Query("metric")

	points, err := cache.FetchJSON(c.Request.Context(), h.queryCache, h.cacheKey(p, "trend", metric), h.cacheTTL,
		func(ctx context.Context) ([]appanalytics.TrendPoint, error) {
			return h.queries.Trend(ctx, p.ident, p.styleID, metric, p.start, p.end, p.granularity)
		})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, points)
}

// GetBreakdown returns one metric split across a dimension
// @Summary Get metric breakdown
// @Tags analytics
// @Produce json
// @Success 200 {object} dto.Response
// @Router /api/v1/analytics/breakdown [get]
func (h *AnalyticsHandler) GetBreakdown(c *gin.Context) {
	p, ok := h.parseQueryParams(c)
	if !ok {
		return
	}
	metric := c.Query("metric")
	dimension := analytics.Dimension(c.DefaultQuery("dimension", string(analytics.DimensionStyle)))
	limit := parseIntQuery(c, "limit", 0)

	rows, err := cache.FetchJSON(c.Request.Context(), h.queryCache,
		h.cacheKey(p, "breakdown", metric, string(dimension)), h.cacheTTL,
		func(ctx context.Context) ([]appanalytics.BreakdownRow, error) {
			return h.queries.Breakdown(ctx, p.ident, p.styleID, metric, dimension, p.start, p.end, p.granularity, limit)
		})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, rows)
}

// GetDrilldown returns the paginated per-bucket rows behind the aggregates
// @Summary Get drilldown rows
// @Tags analytics
// @Produce json
// @Success 200 {object} dto.Response
// @Router /api/v1/analytics/drilldown [get]
func (h *AnalyticsHandler) GetDrilldown(c *gin.Context) {
	p, ok := h.parseQueryParams(c)
	if !ok {
		return
	}
	limit := parseIntQuery(c, "limit", 20)
	skip := parseIntQuery(c, "skip", 0)

	// Drilldown pages are not cached: pagination makes the hit rate poor
	page, err := h.queries.Drilldown(c.Request.Context(), p.ident, p.styleID, p.start, p.end, p.granularity, limit, skip)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Rows, page.Pagination.Total, page.Pagination.Limit, page.Pagination.Skip, page.Pagination.HasMore)
}

// RefreshRequest is the body for a manual rollup refresh
type RefreshRequest struct {
	StartDate     string   `json:"start_date" binding:"required"`
	EndDate       string   `json:"end_date" binding:"required"`
	Granularities []string `json:"granularities"`
}

// Refresh rebuilds the rollup tables for the caller's tenant over a window
// @Summary Refresh rollups
// @Tags analytics
// @Accept json
// @Produce json
// @Success 200 {object} dto.Response
// @Router /api/v1/analytics/refresh [post]
func (h *AnalyticsHandler) Refresh(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	ident := claims.Identity()
	if ident.Role != analytics.RoleAdmin && ident.Role != analytics.RoleManager {
		h.Forbidden(c, "Only admins and managers can refresh rollups")
		return
	}
	if ident.TenantID == nil {
		h.BadRequest(c, "Token is missing a tenant id")
		return
	}

	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "start_date and end_date are required")
		return
	}

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		h.BadRequest(c, "start_date must be formatted as YYYY-MM-DD")
		return
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		h.BadRequest(c, "end_date must be formatted as YYYY-MM-DD")
		return
	}
	// Make the end date inclusive
	end = end.Add(24*time.Hour - time.Second)

	granularities := make([]analytics.Granularity, 0, len(req.Granularities))
	for _, g := range req.Granularities {
		granularities = append(granularities, analytics.Granularity(g))
	}

	count, err := h.aggregates.Refresh(c.Request.Context(), ident.TenantID, granularities, start, end)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	// Drop cached reads so the next query sees the rebuilt rows
	if h.queryCache != nil {
		if err := h.queryCache.InvalidateTenant(c.Request.Context(), ident.TenantID.String()); err != nil {
			h.logger.Warn("Failed to invalidate query cache after refresh",
				zap.String("tenant_id", ident.TenantID.String()),
				zap.Error(err))
		}
	}

	h.logger.Info("Manual rollup refresh completed",
		zap.String("tenant_id", ident.TenantID.String()),
		zap.Int("rows", count))

	h.Success(c, gin.H{"count": count})
}

// GetSchedulerStatus reports the nightly rollup scheduler state
// @Summary Get scheduler status
// @Tags analytics
// @Produce json
// @Success 200 {object} dto.Response
// @Router /api/v1/analytics/scheduler/status [get]
func (h *AnalyticsHandler) GetSchedulerStatus(c *gin.Context) {
	status := map[string]any{
		"enabled": h.cronScheduler != nil,
	}
	if h.cronScheduler != nil {
		maps.Copy(status, h.cronScheduler.GetStatus())
	}
	h.Success(c, status)
}
