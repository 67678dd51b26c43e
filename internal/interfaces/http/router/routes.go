package router

import (
	"github.com/gin-gonic/gin"

	"github.com/sasa-apparel/backend/internal/interfaces/http/handler"
)

// APIHandlers bundles the handlers behind the versioned API surface.
type APIHandlers struct {
	System    *handler.SystemHandler
	Auth      *handler.AuthHandler
	Analytics *handler.AnalyticsHandler
}

// BuildRoutes assembles the route tree. The auth middleware is applied at
// the API group level by the caller; login and refresh stay reachable via
// the middleware's skip list.
func BuildRoutes(h APIHandlers, authMiddleware gin.HandlerFunc) []RouteRegistrar {
	system := NewDomainGroup("system", "")
	system.GET("/health", h.System.HealthCheck)
	system.GET("/info", h.System.GetSystemInfo)
	system.GET("/ping", h.System.Ping)

	auth := NewDomainGroup("auth", "/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.RefreshToken)
	auth.POST("/logout", h.Auth.Logout)
	auth.GET("/me", h.Auth.GetCurrentUser)
	auth.PUT("/password", h.Auth.ChangePassword)

	analytics := NewDomainGroup("analytics", "/analytics")
	analytics.GET("/kpis", h.Analytics.GetKPIs)
	analytics.GET("/trend", h.Analytics.GetTrend)
	analytics.GET("/breakdown", h.Analytics.GetBreakdown)
	analytics.GET("/drilldown", h.Analytics.GetDrilldown)
	analytics.POST("/refresh", h.Analytics.Refresh)
	analytics.GET("/scheduler/status", h.Analytics.GetSchedulerStatus)

	if authMiddleware != nil {
		auth.Use(authMiddleware)
		analytics.Use(authMiddleware)
	}

	return []RouteRegistrar{system, auth, analytics}
}
