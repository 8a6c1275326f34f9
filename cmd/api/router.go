package main

import (
	"context"
	"net/http"
	"time"

	"flashsale-backend/internal/shared/middleware"
	"flashsale-backend/pkg/container"

	"github.com/gin-gonic/gin"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.CORS(),
		middleware.ClientIPMiddleware(),
	)

	rl := c.Config.RateLimit
	router.Use(middleware.RateLimit(c.Cache, middleware.GeneralPolicy(rl.General.Window, rl.General.Max)))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))
		v1.GET("/health/sweeper", c.ReservationHandler.SweeperHealth)

		setupItemRoutes(v1, c)
		setupAuthRoutes(v1, c)
		setupReservationRoutes(v1, c)
		setupAdminRoutes(v1, c)
	}

	return router
}

func setupItemRoutes(v1 *gin.RouterGroup, c *container.Container) {
	items := v1.Group("/items")
	{
		items.GET("", c.ItemHandler.ListItems)
		items.GET("/:id", c.ItemHandler.GetItem)
	}
}

func setupAuthRoutes(v1 *gin.RouterGroup, c *container.Container) {
	rl := c.Config.RateLimit

	auth := v1.Group("/auth")
	auth.Use(
		middleware.RateLimit(c.Cache, middleware.AuthPolicy(rl.Auth.Window, rl.Auth.Max)),
		middleware.AuthMiddleware(c.JWTManager, c.Cache),
	)
	{
		auth.POST("/logout", logoutHandler(c))
	}
}

func setupReservationRoutes(v1 *gin.RouterGroup, c *container.Container) {
	rl := c.Config.RateLimit
	auth := middleware.AuthMiddleware(c.JWTManager, c.Cache)

	reservations := v1.Group("/reservations")
	reservations.Use(auth)
	{
		reservations.POST("",
			middleware.RateLimit(c.Cache, middleware.ReservationCreatePolicy(rl.ReservationCreate.Window, rl.ReservationCreate.Max)),
			c.ReservationHandler.CreateReservation)
		reservations.GET("", c.ReservationHandler.ListReservations)
		reservations.GET("/stats", c.ReservationHandler.MyStats)
		reservations.GET("/:id", c.ReservationHandler.GetReservation)
		reservations.POST("/:id/confirm", c.ReservationHandler.ConfirmReservation)
		reservations.POST("/:id/cancel", c.ReservationHandler.CancelReservation)
	}
}

func setupAdminRoutes(v1 *gin.RouterGroup, c *container.Container) {
	admin := v1.Group("/admin")
	admin.Use(middleware.AuthMiddleware(c.JWTManager, c.Cache), middleware.AdminMiddleware())
	{
		admin.POST("/items", c.ItemHandler.CreateItem)
		admin.PUT("/items/:id", c.ItemHandler.UpdateItem)
		admin.DELETE("/items/:id", c.ItemHandler.DeleteItem)
		admin.POST("/items/:id/stock", c.ItemHandler.AdjustStock)
		admin.POST("/items/:id/image", c.ItemHandler.UploadImage)
		admin.GET("/items/stats", c.ItemHandler.ItemStats)

		admin.GET("/stock/audit", c.ItemHandler.StockAudit)
		admin.POST("/stock/repair", c.ItemHandler.StockRepair)

		admin.GET("/reservations", c.ReservationHandler.AdminListReservations)
		admin.GET("/reservations/stats", c.ReservationHandler.AdminStats)
		admin.POST("/reservations/:id/cancel", c.ReservationHandler.AdminCancelReservation)

		admin.POST("/sweeper/trigger", c.ReservationHandler.TriggerSweep)
		admin.GET("/sweeper/stats", c.ReservationHandler.SweeperStats)
		admin.POST("/sweeper/stats/reset", c.ReservationHandler.ResetSweeperStats)
	}
}

// logoutHandler revokes the presented token. The revocation entry lives
// exactly as long as the token would have, so the set stays bounded.
func logoutHandler(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenID := ctx.GetString("tokenID")
		if tokenID == "" {
			ctx.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   gin.H{"code": "UNAUTHORIZED", "message": "token has no id"},
			})
			return
		}

		ttl := time.Hour
		if v, ok := ctx.Get("tokenExpiresAt"); ok {
			if exp, ok := v.(time.Time); ok {
				if remaining := time.Until(exp); remaining > 0 {
					ttl = remaining
				}
			}
		}

		reqCtx := ctx.Request.Context()
		if err := c.Cache.Set(reqCtx, "revoked:"+tokenID, true, ttl); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error":   gin.H{"code": "SERVICE_UNAVAILABLE", "message": "could not revoke token"},
			})
			return
		}
		_ = c.Cache.Delete(reqCtx, "user:"+tokenID)

		ctx.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"revoked": true}})
	}
}

func healthCheckHandler(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := gin.H{"database": "ok", "cache": "ok"}

		if err := c.DB.HealthCheck(checkCtx); err != nil {
			checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if err := c.Cache.Ping(checkCtx); err != nil {
			checks["cache"] = err.Error()
			status = http.StatusServiceUnavailable
		}

		ctx.JSON(status, gin.H{
			"success": status == http.StatusOK,
			"data": gin.H{
				"name":    c.Config.App.Name,
				"version": c.Config.App.Version,
				"checks":  checks,
			},
		})
	}
}
