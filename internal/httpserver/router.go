package httpserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"formexport/internal/handler"
	"formexport/pkg/rbac"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	authHandler *handler.AuthHandler,
	adminHandler *handler.AdminHandler,
	jwtSecret string,
	db Pinger,
) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), MetricsMiddleware())

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/admin/login", authHandler.Login)

	// Protected
	admin := r.Group("/admin")
	admin.Use(AuthMiddleware(jwtSecret))
	{
		admin.GET("/options", RequirePermission(rbac.PermissionReadOptions), adminHandler.GetOptions)
		admin.PUT("/options", RequirePermission(rbac.PermissionManageOptions), adminHandler.SaveOptions)
		admin.DELETE("/options", RequirePermission(rbac.PermissionManageOptions), adminHandler.ClearOptions)
		admin.GET("/schedule", RequirePermission(rbac.PermissionReadOptions), adminHandler.GetSchedule)
		admin.POST("/schedule/toggle", RequirePermission(rbac.PermissionManageSchedule), adminHandler.ToggleSchedule)
		admin.POST("/test-email", RequirePermission(rbac.PermissionSendTest), adminHandler.SendTestEmail)
	}

	return &Router{Engine: r}
}
