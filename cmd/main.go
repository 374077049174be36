package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/littlebom/anlp-gmap-sub001/internal/clients/ai"
	"github.com/littlebom/anlp-gmap-sub001/internal/clients/esco"
	"github.com/littlebom/anlp-gmap-sub001/internal/crawler"
	"github.com/littlebom/anlp-gmap-sub001/internal/db"
	"github.com/littlebom/anlp-gmap-sub001/internal/logger"
	"github.com/littlebom/anlp-gmap-sub001/internal/observability"
	"github.com/littlebom/anlp-gmap-sub001/internal/repos"
	"github.com/littlebom/anlp-gmap-sub001/internal/server"
	"github.com/littlebom/anlp-gmap-sub001/internal/services"
	"github.com/littlebom/anlp-gmap-sub001/internal/utils"
)

func main() {
	_ = godotenv.Load()

	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Tracing
	shutdownOTel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "gmap-backend",
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})
	if shutdownOTel != nil {
		defer func() { _ = shutdownOTel(context.Background()) }()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Redis (optional, crawl dedupe only)
	redisClient, err := db.NewRedisClient(log)
	if err != nil {
		log.Warn("Redis init failed, continuing without crawl dedupe", "error", err)
		redisClient = nil
	}

	// Repos
	log.Info("Setting up Repos from main...")
	jobRepo := repos.NewGenerationJobRepo(thePG, log)
	courseRepo := repos.NewCourseRepo(thePG, log)
	depRepo := repos.NewCourseDependencyRepo(thePG, log)
	taxonomyRepo := repos.NewTaxonomyRepo(thePG, log)

	// Clients
	log.Info("Setting up Clients from main...")
	aiClient, err := ai.NewClient(log)
	if err != nil {
		log.Warn("AI client unavailable, pipeline will use deterministic fallbacks", "error", err)
		aiClient = nil
	}
	escoClient, err := esco.NewClient(log)
	if err != nil {
		log.Error("Could not init taxonomy client", "error", err)
		os.Exit(1)
	}

	// Services
	log.Info("Setting up Services from main...")
	generationService := services.NewGenerationService(thePG, log, jobRepo, courseRepo, depRepo, taxonomyRepo, aiClient)

	// Crawl scheduler
	taxonomyCrawler := crawler.NewCrawler(escoClient, taxonomyRepo, redisClient, log)
	crawlScheduler := crawler.NewScheduler(taxonomyCrawler, log)
	if err := crawlScheduler.Start(context.Background()); err != nil {
		log.Warn("Crawl scheduler failed to start", "error", err)
	}
	defer crawlScheduler.Stop()

	// Router
	router := server.NewRouter(thePG, generationService, log)
	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
