package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/dfs-showdown/internal/models"
	"github.com/stitts-dev/dfs-showdown/internal/services"
	"github.com/stitts-dev/dfs-showdown/pkg/config"
	"github.com/stitts-dev/dfs-showdown/pkg/database"
	"github.com/stitts-dev/dfs-showdown/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		logrus.Fatal("Usage: migrate [up|down|seed [date]|import <csv>]")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	log := logger.WithService("migrate")

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	switch command := os.Args[1]; command {
	case "up":
		if err := runMigrations(db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		log.Info("Migrations completed successfully")

	case "down":
		if err := dropTables(db); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Info("Tables dropped successfully")

	case "seed":
		date := time.Now().Format("2006-01-02")
		if len(os.Args) > 2 {
			date = os.Args[2]
		}
		roster := services.NewRosterService(db, log)
		if err := roster.BulkUpsert(ctx, models.SampleSlate(date)); err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
		log.WithField("date", date).Info("Data seeded successfully")

	case "import":
		if len(os.Args) < 3 {
			log.Fatal("Usage: migrate import <csv>")
		}
		f, err := os.Open(os.Args[2])
		if err != nil {
			log.Fatalf("Failed to open csv: %v", err)
		}
		defer f.Close()

		n, err := services.NewRosterService(db, log).ImportCSV(ctx, f)
		if err != nil {
			log.Fatalf("Failed to import roster: %v", err)
		}
		log.WithField("rows", n).Info("Roster imported successfully")

	default:
		log.Fatalf("Unknown command: %s", command)
	}
}

func runMigrations(db *database.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_roster_entries_salary ON roster_entries(date, salary)",
		"CREATE INDEX IF NOT EXISTS idx_runs_mode_created ON optimization_runs(mode, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_predictions_actual ON game_predictions(date) WHERE actual_total IS NOT NULL",
	}
	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

func dropTables(db *database.DB) error {
	all := models.All()
	// Reverse migration order.
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(all[i]); err != nil {
			return fmt.Errorf("failed to drop table for %T: %w", all[i], err)
		}
	}
	return nil
}
