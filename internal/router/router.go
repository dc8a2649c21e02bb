// Package router wires the HTTP routes to their handlers and
// middleware groups.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/performance-reporting/internal/config"
	"github.com/iliyamo/performance-reporting/internal/handler"
	"github.com/iliyamo/performance-reporting/internal/middleware"
	"github.com/iliyamo/performance-reporting/internal/model"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	Auth       *handler.AuthHandler
	Situations *handler.SituationHandler
	Validation *handler.ValidationHandler
	Dashboard  *handler.DashboardHandler
	Reports    *handler.ReportHandler
	Admin      *handler.AdminHandler
}

// Register mounts all routes.  Unauthenticated endpoints are the
// health check and the auth exchange; everything else sits behind
// JWTAuth.  Role middleware narrows each group to the roles allowed to
// use it; the handlers then apply the finer scope and ownership checks.
func Register(e *echo.Echo, h Handlers, cfg config.Config, users middleware.UserLoader, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	// Rate limiting covers everything, including login attempts.
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	pub := e.Group("/v1/auth")
	pub.POST("/login", h.Auth.Login)
	pub.POST("/refresh", h.Auth.Refresh)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(cfg.JWTSecret, users))

	auth.POST("/auth/logout", h.Auth.Logout)
	auth.GET("/me", h.Auth.Me)
	auth.PUT("/me/profile", h.Auth.UpdateProfile)

	// Data entry: the three reporting roles share one surface, the
	// declaration family follows the role.
	entry := auth.Group("/situations",
		middleware.RequireRole(model.RoleDIW, model.RoleDRI, model.RoleDC))
	entry.POST("", h.Situations.Create)
	entry.GET("", h.Situations.List)
	entry.GET("/indicators", h.Situations.Indicators)
	entry.GET("/:id", h.Situations.Get)
	entry.PUT("/:id/draft", h.Situations.SaveDraft)
	entry.POST("/:id/confirm", h.Situations.Confirm)
	entry.DELETE("/:id", h.Situations.Delete)

	// Approval chain: DRIs review their DIWs, admins review DRI
	// self-reports and DCs.
	review := auth.Group("/validation",
		middleware.RequireRole(model.RoleDRI, model.RoleAdmin))
	review.GET("/pending", h.Validation.Pending)
	review.GET("/:id", h.Validation.Review)
	review.POST("/:id/validate", h.Validation.Validate)
	review.POST("/:id/reject", h.Validation.Reject)

	// Dashboards and exports: every authenticated role, scope applied
	// inside.  Responses are cached per user.
	read := auth.Group("/analytics")
	read.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	read.GET("/overview", h.Dashboard.Overview)
	read.GET("/comparison", h.Dashboard.Comparison)
	read.GET("/export", h.Reports.Export)

	// Administration.
	admin := auth.Group("/admin", middleware.RequireRole(model.RoleAdmin))
	admin.GET("/structures", h.Admin.ListStructures)
	admin.POST("/structures/:kind", h.Admin.CreateStructure)
	admin.DELETE("/structures/:kind/:code", h.Admin.DeleteStructure)
	admin.GET("/catalogue", h.Admin.Catalogue)
	admin.POST("/indicators", h.Admin.CreateIndicator)
	admin.DELETE("/indicators/:id", h.Admin.DeleteIndicator)
	admin.GET("/targets", h.Admin.Targets)
	admin.PUT("/targets", h.Admin.SetTarget)
	admin.POST("/targets/materialize", h.Admin.MaterializeTargets)

	// Account management requires the super-admin flag on top of the
	// admin role.
	accounts := admin.Group("/users", middleware.RequireSuperAdmin())
	accounts.POST("", h.Admin.CreateUser)
	accounts.GET("", h.Admin.ListUsers)
	accounts.PUT("/:id/active", h.Admin.SetUserActive)
	accounts.PUT("/:id/assignment", h.Admin.SetUserAssignment)
	accounts.DELETE("/:id", h.Admin.DeleteUser)
}
