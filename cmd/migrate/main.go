package main

import (
	"fmt"
	"log"
	"os"

	"github.com/macchain/backend/internal/config"
	"github.com/macchain/backend/internal/database"
	"github.com/macchain/backend/internal/logger"
)

func main() {
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	if command != "up" && command != "down" {
		fmt.Println("Usage: migrate [up|down]")
		fmt.Println("  up   - Create or update every table, index and default category")
		fmt.Println("  down - Drop every table (requires MIGRATE_CONFIRM=yes)")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := logger.Initialize(cfg.LogLevel, ""); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	log.Println("Connecting to database...")
	if err := database.Initialize(cfg.Database, database.Options{Environment: cfg.Environment}); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	switch command {
	case "up":
		if err := database.Migrate(); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("All migrations completed")
	case "down":
		if os.Getenv("MIGRATE_CONFIRM") != "yes" {
			log.Fatal("Rollback drops all data; set MIGRATE_CONFIRM=yes to continue")
		}
		if err := database.Rollback(); err != nil {
			log.Fatalf("Rollback failed: %v", err)
		}
		log.Println("All tables dropped")
	}
}
