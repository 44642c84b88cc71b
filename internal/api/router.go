package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	iauth "github.com/campuskit/rollcall/internal/auth"
	"github.com/campuskit/rollcall/internal/handlers"
	"github.com/campuskit/rollcall/internal/middleware"
	"github.com/campuskit/rollcall/internal/models"
	"github.com/campuskit/rollcall/internal/services"
)

// Services bundles the wired application services the router exposes.
type Services struct {
	JWT        *iauth.JWTService
	Auth       *iauth.AuthService
	Sessions   *services.SessionService
	QR         *services.QRTokenService
	Attendance *services.AttendanceService
	Audit      *services.AuditService
}

// RouterOptions toggles optional surfaces.
type RouterOptions struct {
	EnableMetrics bool
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(svcs Services, opts RouterOptions) (*gin.Engine, error) {
	if svcs.JWT == nil || svcs.Auth == nil {
		return nil, fmt.Errorf("auth services must be provided")
	}
	if svcs.Sessions == nil || svcs.QR == nil || svcs.Attendance == nil || svcs.Audit == nil {
		return nil, fmt.Errorf("attendance services must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	r.NoRoute(middleware.NotFoundHandler)

	// Health endpoint (public)
	r.GET("/health", handlers.Health())
	if opts.EnableMetrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	authHandler := handlers.NewAuthHandler(svcs.Auth)
	sessionHandler := handlers.NewSessionHandler(svcs.Sessions, svcs.QR)
	attendanceHandler := handlers.NewAttendanceHandler(svcs.Attendance)
	auditHandler := handlers.NewAuditHandler(svcs.Audit)

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	requireAuth := middleware.Auth(svcs.JWT)
	staffOnly := middleware.RequireRole(models.RoleTeacher, models.RoleAdmin)

	api := r.Group("/api")
	api.Use(requireAuth)

	api.GET("/auth/me", authHandler.Me)

	sessions := api.Group("/sessions")
	{
		sessions.GET("", sessionHandler.List)
		sessions.GET("/:id", sessionHandler.Get)
		sessions.POST("", staffOnly, sessionHandler.Create)
		sessions.POST("/:id/end", staffOnly, sessionHandler.End)
		sessions.POST("/:id/qr", staffOnly, sessionHandler.RotateQR)
		sessions.GET("/:id/qr.png", staffOnly, sessionHandler.QRImage)
		sessions.GET("/:id/attendance", staffOnly, attendanceHandler.ListBySession)
	}

	api.POST("/attendance/mark", middleware.RequireRole(models.RoleStudent), attendanceHandler.Mark)

	api.GET("/audit", middleware.RequireRole(models.RoleAdmin), auditHandler.List)

	return r, nil
}
