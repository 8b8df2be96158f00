package main

import (
	"fmt"
	"log"
	"os"

	"github.com/macchain/backend/internal/config"
	"github.com/macchain/backend/internal/database"
	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/seed"
)

func main() {
	command := "dev"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	var run func(*seed.Seeder) error
	switch command {
	case "dev":
		run = (*seed.Seeder).SeedDev
	case "test":
		run = (*seed.Seeder).SeedTest
	case "clean":
		run = (*seed.Seeder).Clean
	default:
		fmt.Println("Usage: seed [dev|test|clean]")
		fmt.Println("  dev   - Seed development database with realistic data")
		fmt.Println("  test  - Seed test database with minimal data")
		fmt.Println("  clean - Remove seed accounts and everything they wrote")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() && os.Getenv("SEED_FORCE") != "true" {
		log.Fatal("Refusing to seed a production database (set SEED_FORCE=true to override)")
	}
	if err := logger.Initialize(cfg.LogLevel, ""); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	if err := database.Initialize(cfg.Database, database.Options{Environment: cfg.Environment}); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Printf("Running seed %q...", command)
	if err := run(seed.NewSeeder(database.DB)); err != nil {
		log.Fatalf("Seed %s failed: %v", command, err)
	}
	log.Printf("Seed %s complete", command)
}
