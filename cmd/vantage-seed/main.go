// Seeds a vantage database with synthetic demo traffic so the analytics
// endpoints return meaningful data during development.
package main

import (
	"flag"
	"fmt"
	"os"

	"vantage/internal/config"
	"vantage/internal/database"
	"vantage/internal/logging"
	"vantage/internal/seeder"
)

func main() {
	websiteID := flag.Uint("website", 1, "website id to seed events for")
	days := flag.Int("days", 30, "how many days of history to generate")
	perDay := flag.Int("visitors-per-day", 50, "new visitors per day")
	flag.Parse()

	cfg := config.GetConfig()
	logger := logging.NewLogger(cfg)

	dbManager := database.NewManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer dbManager.Close()

	if err := dbManager.Migrate(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to migrate database: %v\n", err)
		os.Exit(1)
	}

	s := seeder.NewSeeder(dbManager.GetConnection(), logger, *websiteID, *days, *perDay)
	if err := s.Seed(); err != nil {
		fmt.Fprintf(os.Stderr, "seeding failed: %v\n", err)
		os.Exit(1)
	}
}
