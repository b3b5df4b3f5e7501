package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tonnomolt/housing-prices-fi/internal/api"
	"github.com/tonnomolt/housing-prices-fi/internal/config"
	"github.com/tonnomolt/housing-prices-fi/internal/ingest"
	"github.com/tonnomolt/housing-prices-fi/internal/scheduler"
	"github.com/tonnomolt/housing-prices-fi/internal/statapi"
	"github.com/tonnomolt/housing-prices-fi/internal/store"
)

func main() {
	cfg := config.Load()

	sources, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		log.Fatalf("Failed to load sources configuration: %v", err)
	}
	log.Printf("Loaded %d sources and %d canonical categories from %s", len(sources.Sources), len(sources.Categories), cfg.SourcesFile)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Warn,
		},
	)
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{Logger: gormLogger})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Database connection established")

	recordStore := store.New(db)
	if err := recordStore.AutoMigrate(); err != nil {
		log.Fatalf("Failed to migrate database schema: %v", err)
	}

	categories := make([]store.CanonicalCategory, 0, len(sources.Categories))
	for _, cat := range sources.Categories {
		categories = append(categories, store.CanonicalCategory{Code: cat.Code, Name: cat.Name})
	}
	if err := recordStore.SeedCategories(context.Background(), categories); err != nil {
		log.Fatalf("Failed to seed canonical categories: %v", err)
	}

	client := statapi.NewClient()
	ingestService := ingest.NewService(client, client, recordStore)

	sched := scheduler.New(ingestService)
	if err := sched.Schedule(cfg.IngestSchedule, sources.Sources); err != nil {
		log.Fatalf("Failed to schedule ingestion: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	router := gin.Default()
	api.NewHandler(recordStore, ingestService, sources.Sources).RegisterRoutes(router)

	log.Printf("Starting HTTP server on %s", cfg.HTTPAddr)
	if err := router.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("Failed to run HTTP server: %v", err)
	}
}
