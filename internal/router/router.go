package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/cardkiosk/cardkiosk/docs"
	"github.com/cardkiosk/cardkiosk/internal/config"
	"github.com/cardkiosk/cardkiosk/internal/middleware"
	"github.com/cardkiosk/cardkiosk/internal/modules/handler"
	"github.com/cardkiosk/cardkiosk/internal/modules/serializer"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterDeps struct {
	Config         *config.Config
	Redis          *redis.Client
	Log            *zap.Logger
	ClaimHandler   *handler.ClaimHandler
	ProjectHandler *handler.ProjectHandler
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if d.Config.Telemetry.Enabled && d.Config.Telemetry.OtlpEndpoint != "" {
		r.Use(middleware.OtelTracing(d.Config.App.Name))
		r.Use(middleware.TraceID())
	}

	r.Use(middleware.ZapLogger(d.Log))

	// health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, serializer.Response{Msg: "ok"}) })

	// swagger
	r.GET("/swagger", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	{
		v1.Use(middleware.ClaimantIdentity(d.Config.Claim.IdentityPepper))

		claim := v1.Group("/claim")
		{
			claim.POST("", middleware.ClaimRateLimit(d.Redis, d.Config.Claim.RatePerMinute, d.Log), d.ClaimHandler.Claim)
			claim.GET("/status", d.ClaimHandler.Status)
		}

		project := v1.Group("/project")
		{
			project.POST("", d.ProjectHandler.CreateProject)
			project.GET("/:project_id", d.ProjectHandler.GetProject)
			project.PATCH("/:project_id", d.ProjectHandler.UpdateProject)
			project.DELETE("/:project_id", d.ProjectHandler.DeleteProject)

			project.POST("/:project_id/cards", d.ProjectHandler.AddCards)
			project.GET("/:project_id/cards", d.ProjectHandler.ListCards)
			project.DELETE("/:project_id/cards/:card_id", d.ProjectHandler.RemoveCard)

			project.GET("/:project_id/claims", d.ProjectHandler.RecentClaims)
			project.POST("/:project_id/export", d.ProjectHandler.ExportLedger)
		}
	}
	return r
}
