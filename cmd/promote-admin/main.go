package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/macchain/backend/internal/config"
	"github.com/macchain/backend/internal/database"
	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/models"
	"gorm.io/gorm"
)

func main() {
	email := flag.String("email", "", "Email address of user to promote to admin")
	revoke := flag.Bool("revoke", false, "Revoke admin privileges instead of granting")
	flag.Parse()

	if *email == "" {
		fmt.Println("Usage: promote-admin -email=user@example.com [-revoke]")
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

	if err := database.Initialize(cfg.Database, database.Options{Environment: cfg.Environment}); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()
	db := database.DB

	var user models.User
	if err := db.Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(*email))).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Fatalf("User not found: %s", *email)
		}
		log.Fatalf("Failed to look up user: %v", err)
	}

	grant := !*revoke
	if user.IsAdmin == grant {
		if grant {
			fmt.Printf("User %s is already an admin\n", user.Username)
		} else {
			fmt.Printf("User %s is not an admin\n", user.Username)
		}
		return
	}

	if err := db.Model(&user).Update("is_admin", grant).Error; err != nil {
		log.Fatalf("Failed to update admin flag: %v", err)
	}

	if grant {
		fmt.Printf("Admin privileges granted to %s (%s)\n", user.Username, user.Email)
		fmt.Printf("  User ID: %s\n", user.ID)
	} else {
		fmt.Printf("Admin privileges revoked for %s (%s)\n", user.Username, user.Email)
	}
}
