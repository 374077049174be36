package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/littlebom/anlp-gmap-sub001/internal/clients/esco"
	"github.com/littlebom/anlp-gmap-sub001/internal/crawler"
	"github.com/littlebom/anlp-gmap-sub001/internal/db"
	"github.com/littlebom/anlp-gmap-sub001/internal/logger"
	"github.com/littlebom/anlp-gmap-sub001/internal/repos"
	"github.com/littlebom/anlp-gmap-sub001/internal/utils"
)

// One-shot taxonomy ingestion. Roots come from -roots or CRAWL_ROOT_URIS.
func main() {
	_ = godotenv.Load()

	rootsFlag := flag.String("roots", "", "comma-separated root group uris")
	flag.Parse()

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

	raw := *rootsFlag
	if strings.TrimSpace(raw) == "" {
		raw = utils.GetEnv("CRAWL_ROOT_URIS", "", log)
	}
	roots := make([]string, 0)
	for _, r := range strings.Split(raw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roots = append(roots, r)
		}
	}
	if len(roots) == 0 {
		log.Fatal("No root uris given, set -roots or CRAWL_ROOT_URIS")
	}

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}

	redisClient, err := db.NewRedisClient(log)
	if err != nil {
		log.Warn("Redis init failed, continuing without crawl dedupe", "error", err)
		redisClient = nil
	}

	escoClient, err := esco.NewClient(log)
	if err != nil {
		log.Fatal("Could not init taxonomy client", "error", err)
	}
	taxonomyRepo := repos.NewTaxonomyRepo(postgresService.DB(), log)

	c := crawler.NewCrawler(escoClient, taxonomyRepo, redisClient, log)
	if err := c.CrawlAll(context.Background(), roots); err != nil {
		log.Fatal("Crawl failed", "error", err)
	}
}
