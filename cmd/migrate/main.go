package main

import (
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/speakup-platform/speakup-backend/internal/infrastructure/config"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to configuration file")
		action     = flag.String("action", "up", "migration action: up, down, version")
		steps      = flag.Int("steps", 0, "number of migrations to run (0 = all)")
		source     = flag.String("source", "file://migrations", "migration source")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		slog.Error("failed to init migration driver", "error", err)
		os.Exit(1)
	}

	m, err := migrate.NewWithDatabaseInstance(*source, "postgres", driver)
	if err != nil {
		slog.Error("failed to init migrator", "error", err)
		os.Exit(1)
	}

	switch *action {
	case "up":
		if *steps > 0 {
			err = m.Steps(*steps)
		} else {
			err = m.Up()
		}
	case "down":
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Down()
		}
	case "version":
		version, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			slog.Error("failed to read version", "error", verr)
			os.Exit(1)
		}
		slog.Info("migration status", "version", version, "dirty", dirty)
		return
	default:
		slog.Error("unknown action", "action", *action)
		os.Exit(1)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("migrations complete", "action", *action)
}
