package server

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/littlebom/anlp-gmap-sub001/internal/handlers"
	"github.com/littlebom/anlp-gmap-sub001/internal/logger"
	"github.com/littlebom/anlp-gmap-sub001/internal/services"
	"github.com/littlebom/anlp-gmap-sub001/internal/utils"
)

func NewRouter(db *gorm.DB, generationService services.GenerationService, log *logger.Logger) *gin.Engine {
	if utils.GetEnv("GIN_MODE", "debug", log) == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	origins := strings.Split(utils.GetEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000", log), ",")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(otelgin.Middleware("gmap-backend"))

	healthcheckHandler := handlers.NewHealthcheckHandler(db)
	generationHandler := handlers.NewGenerationHandler(generationService, log)

	router.GET("/healthcheck", healthcheckHandler.Healthcheck)

	api := router.Group("/api")
	{
		maps := api.Group("/maps")
		{
			maps.POST("/generate", generationHandler.Generate)
			maps.GET("/jobs", generationHandler.ListJobs)
			maps.GET("/jobs/:id", generationHandler.GetJob)
			maps.PATCH("/jobs/:id/courses", generationHandler.UpdateCourses)
			maps.POST("/jobs/:id/publish", generationHandler.Publish)
		}
	}

	return router
}
