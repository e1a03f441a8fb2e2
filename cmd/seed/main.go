package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"lecturehub/database"
	"lecturehub/database/seed"
	"lecturehub/internal/config"
	"lecturehub/internal/microservices/http-api/repository"
)

func main() {
	file := flag.String("file", "database/seed/catalog.json", "course catalog export to import")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	logger := config.NewLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	catalog, err := seed.Load(*file)
	if err != nil {
		logger.Error("catalog_load_failed", "file", *file, "error", err)
		os.Exit(1)
	}

	db, err := database.ConnectDB(cfg, logger)
	if err != nil {
		logger.Error("database_connect_failed", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	n, err := seed.Import(ctx, repository.NewCourseRepository(db), catalog, logger)
	if err != nil {
		logger.Error("seed_failed", "imported", n, "error", err)
		os.Exit(1)
	}
	logger.Info("seed_finished", "imported", n, "total", len(catalog.Courses))
}
