package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/boddenberg/shop-advisor-go/internal/config"
	"github.com/boddenberg/shop-advisor-go/internal/infra/observability"
	"github.com/boddenberg/shop-advisor-go/internal/infra/postgres/migrations"
)

// Usage:
//
//	migrate            apply every pending migration
//	migrate down       roll back one migration
//	migrate force <v>  mark version v as clean
func main() {
	_ = config.LoadDotEnv(".env")
	cfg := config.Load()

	logger := observability.NewLogger(cfg.LogLevel, "shop-advisor-migrate")
	defer logger.Sync()

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("open db", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Fatal("ping db", zap.Error(err))
	}

	dbDriver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		logger.Fatal("db driver", zap.Error(err))
	}
	srcDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		logger.Fatal("source driver", zap.Error(err))
	}

	m, err := migrate.NewWithInstance("iofs", srcDriver, "pgx5", dbDriver)
	if err != nil {
		logger.Fatal("create migrator", zap.Error(err))
	}
	defer func() { _, _ = m.Close() }()

	if err := run(m, os.Args[1:]); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		logger.Fatal("read version", zap.Error(err))
	}
	logger.Info("migrations complete", zap.Uint("version", version), zap.Bool("dirty", dirty))
}

func run(m *migrate.Migrate, args []string) error {
	if len(args) == 0 {
		return ignoreNoChange(m.Up())
	}

	switch args[0] {
	case "up":
		return ignoreNoChange(m.Up())
	case "down":
		return ignoreNoChange(m.Steps(-1))
	case "force":
		if len(args) < 2 {
			return errors.New("force requires a version")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version: %w", err)
		}
		return m.Force(version)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}
