package app

import (
	"time"

	"github.com/EgorMarkor/BotOpros/internal/config"
	"github.com/EgorMarkor/BotOpros/internal/middleware"
	"github.com/EgorMarkor/BotOpros/pkg/monitoring"
	"github.com/EgorMarkor/BotOpros/pkg/security"
	"github.com/EgorMarkor/BotOpros/pkg/tracing"

	"github.com/gin-gonic/gin"
)

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))
	router.Use(middleware.RequestID())
	router.Use(monitoring.MetricsMiddleware())
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}
}

func (a *App) registerRoutes(router *gin.Engine, ctrls *controllers) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")
	{
		api.GET("/health", ctrls.health.HealthCheck)

		admin := api.Group("/admin")
		{
			users := admin.Group("/users")
			{
				users.GET("", ctrls.user.List)
				users.GET("/:id", ctrls.user.Get)
				users.PATCH("/:id", ctrls.user.Update)
			}

			questions := admin.Group("/questions")
			{
				questions.POST("", ctrls.question.Create)
				questions.GET("", ctrls.question.List)
				questions.GET("/:id", ctrls.question.Get)
				questions.PUT("/:id", ctrls.question.Update)
				questions.DELETE("/:id", ctrls.question.Delete)
			}

			answers := admin.Group("/answers")
			{
				answers.GET("", ctrls.answer.List)
			}

			reports := admin.Group("/reports")
			{
				reports.POST("/parents", ctrls.report.SendParentReport)
			}
		}
	}
}
