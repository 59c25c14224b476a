package server

import (
	"time"

	"fortnite-lobbybot-svc/src/clients"
	"fortnite-lobbybot-svc/src/internal/dependency"
	"fortnite-lobbybot-svc/src/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func SetupRoutes(deps *dependency.Manager) {
	router := deps.Router
	router.Use(enableCORS)

	setupHealthEndpoint(deps)
	setupPublicRoutes(router, deps)
	setupBotRoutes(router, deps)
	setupAccountRoutes(router, deps)
}

func setupHealthEndpoint(deps *dependency.Manager) {
	router := deps.Router
	mongodb := deps.Mongodb
	redisClient := deps.Redis
	cfg := deps.Config

	router.GET("/health", func(c *gin.Context) {
		log.Info("Health check endpoint requested")

		mongoStatus := "ok"
		if err := mongodb.Client.Ping(c.Request.Context(), nil); err != nil {
			mongoStatus = "error: " + err.Error()
		}

		redisStatus := "ok"
		if err := redisClient.Client.Ping(c.Request.Context()).Err(); err != nil {
			redisStatus = "error: " + err.Error()
		}

		c.JSON(200, gin.H{
			"status":    "ok",
			"service":   cfg.App.Name,
			"version":   cfg.App.Version,
			"mongodb":   mongoStatus,
			"redis":     redisStatus,
			"timestamp": time.Now().UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	})

	router.GET("/health/detailed", func(c *gin.Context) {
		log.Info("Detailed health check endpoint requested")

		_, globalActive := deps.Supervisor.ActiveCounts("")

		c.JSON(200, gin.H{
			"status":  "operational",
			"service": cfg.App.Name,
			"version": cfg.App.Version,
			"components": gin.H{
				"database": gin.H{
					"mongodb": getStatus(isMongoConnected(mongodb, c)),
					"redis":   getStatus(isRedisConnected(redisClient.Client, c)),
				},
				"services": gin.H{
					"supervisor": "operational",
					"sweeper":    "operational",
				},
			},
			"sessions": gin.H{
				"active":   globalActive,
				"capacity": cfg.Session.MaxConcurrentGlobal,
			},
		})
	})
}

func setupPublicRoutes(router *gin.Engine, deps *dependency.Manager) {
	// API status endpoint
	router.GET("/api/v1/status", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"api_version": "v1",
			"status":      "operational",
			"service":     deps.Config.App.Name,
		})
	})
}

func setupBotRoutes(router *gin.Engine, deps *dependency.Manager) {
	authMiddleware := middleware.NewAuthMiddleware(deps.Config.Security.JwtKey)
	handler := deps.BotHandler

	botGroup := router.Group("/api/v1/bots")
	botGroup.Use(authMiddleware.RequireAuth())
	{
		botGroup.GET("", setRouteName("listBots"), handler.ListBots)
		botGroup.POST("/stop-all", setRouteName("stopAllBots"), handler.StopAllBots)

		botGroup.GET("/:username", setRouteName("getBotStatus"), handler.GetBotStatus)
		botGroup.POST("/:username/start", setRouteName("startBot"), handler.StartBot)
		botGroup.POST("/:username/stop", setRouteName("stopBot"), handler.StopBot)
		botGroup.POST("/:username/extend", setRouteName("extendSession"), handler.ExtendSession)
		botGroup.POST("/:username/activity", setRouteName("recordActivity"), handler.RecordActivity)
		botGroup.PUT("/:username/cosmetics", setRouteName("applyCosmetics"), handler.ApplyCosmetics)
	}
}

func setupAccountRoutes(router *gin.Engine, deps *dependency.Manager) {
	authMiddleware := middleware.NewAuthMiddleware(deps.Config.Security.JwtKey)
	handler := deps.AccountHandler

	accountGroup := router.Group("/api/v1/accounts")
	accountGroup.Use(authMiddleware.RequireAuth())
	{
		accountGroup.GET("", setRouteName("listAccounts"), handler.ListAccounts)
		accountGroup.POST("", setRouteName("registerAccount"), handler.RegisterAccount)
		accountGroup.DELETE("/:username", setRouteName("removeAccount"), handler.RemoveAccount)
	}

	admin := router.Group("/api/v1/admin")
	{
		admin.GET("/overview",
			setRouteName("getOverview"),
			authMiddleware.RequireAuth(),
			authMiddleware.RequireAdminRights(),
			handler.GetOverview)
	}
}

func setRouteName(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("route_name", name)
		c.Next()
	}
}

func isMongoConnected(mongodb *clients.MongoDB, c *gin.Context) bool {
	if err := mongodb.Client.Ping(c.Request.Context(), nil); err != nil {
		return false
	}
	return true
}

func isRedisConnected(redisClient *redis.Client, c *gin.Context) bool {
	if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
		return false
	}
	return true
}

func enableCORS(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if c.Request.Method == "OPTIONS" {
		c.AbortWithStatus(204)
		return
	}

	c.Next()
}

func getStatus(b bool) string {
	if b {
		return "connected"
	}
	return "disconnected"
}
