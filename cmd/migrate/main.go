package main

import (
	"budget_tracker/internal/config" // Custom import path (Config)
	"budget_tracker/internal/db"     // Custom import path (Database)

	"github.com/sirupsen/logrus" // Structured logging
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	if err := db.Migrate(cfg); err != nil {
		logrus.Fatalf("migration failed: %v", err) // Log fatal error if migration fails
	}
}
