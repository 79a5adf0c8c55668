// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"familydir/config"
	"familydir/internal/delivery/api/middleware"
	"familydir/internal/delivery/api/router/handler"
	"familydir/internal/infra/metrics"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

const defaultMetricsPath = "/metrics"

type RouterParams struct {
	fx.In

	MemberHandler    *handler.MemberHandler
	DirectoryHandler *handler.DirectoryHandler
	SessionHandler   *handler.SessionHandler
	ImageHandler     *handler.ImageHandler
	AuthMiddleware   *middleware.AuthMiddleware
	Config           *config.Config
}

// router holds all the handlers that need to be registered.
type router struct {
	memberHandler    *handler.MemberHandler
	directoryHandler *handler.DirectoryHandler
	sessionHandler   *handler.SessionHandler
	imageHandler     *handler.ImageHandler
	authMiddleware   *middleware.AuthMiddleware
	config           *config.Config
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		memberHandler:    params.MemberHandler,
		directoryHandler: params.DirectoryHandler,
		sessionHandler:   params.SessionHandler,
		imageHandler:     params.ImageHandler,
		authMiddleware:   params.AuthMiddleware,
		config:           params.Config,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthcheck", handler.HealthCheck)
	e.GET("/images/*", r.imageHandler.Serve)

	api := e.Group("/api")
	api.POST("/login", r.sessionHandler.Login)
	api.GET("/search", r.directoryHandler.Search)
	api.GET("/nearby", r.directoryHandler.Nearby)

	members := api.Group("/members")
	{
		members.GET("", r.directoryHandler.ListMembers)
		members.GET("/birthdays/today", r.directoryHandler.BirthdaysToday)
		members.GET("/tree", r.memberHandler.Tree)
		members.GET("/:id", r.memberHandler.GetMember)
		members.GET("/:id/qr", r.directoryHandler.ProfileQR)

		members.POST("", r.memberHandler.CreateMember, r.authMiddleware.RequireAdmin)
		members.PUT("/:id", r.memberHandler.UpdateMember, r.authMiddleware.RequireAdmin)
		members.DELETE("/:id", r.memberHandler.DeleteMember, r.authMiddleware.RequireAdmin)
	}
}

// RegisterMetricsRoute exposes the prometheus registry when metrics are enabled.
func (r *router) RegisterMetricsRoute(e *echo.Echo) {
	if r.config.Metrics == nil || !r.config.Metrics.Enabled {
		return
	}

	path := r.config.Metrics.Path
	if path == "" {
		path = defaultMetricsPath
	}
	e.GET(path, echo.WrapHandler(metrics.Handler()))
}
