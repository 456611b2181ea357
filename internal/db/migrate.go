package db

import (
	"budget_tracker/internal/config" // Backend selection
	"budget_tracker/internal/domain" // Importing domain models
	"embed"                          // Embedded SQL migrations
	"errors"                         // Error inspection
	"fmt"                            // Error wrapping

	"github.com/golang-migrate/migrate/v4"                            // Versioned migrations
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5" // pgx v5 migration driver
	"github.com/golang-migrate/migrate/v4/source/iofs"                // Embedded FS source
	"github.com/jackc/pgx/v5"                                         // Postgres URL parsing
	"github.com/jackc/pgx/v5/stdlib"                                  // database/sql adapter
	"github.com/sirupsen/logrus"                                      // Structured logging
	"gorm.io/driver/mysql"                                            // MySQL driver for GORM
	"gorm.io/gorm"                                                    // GORM ORM library
)

//go:embed migrations/*.sql
var postgresMigrations embed.FS

// Migrate brings the schema of the configured backend up to date
func Migrate(cfg *config.Config) error {
	switch cfg.StoreBackend {
	case config.BackendMySQL:
		db, err := gorm.Open(mysql.Open(cfg.MySQLDSN()), &gorm.Config{}) // Open a connection to the database
		if err != nil {
			return fmt.Errorf("connect mysql: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		defer sqlDB.Close()
		return MigrateMySQL(db)
	case config.BackendPostgres:
		return MigratePostgres(cfg.PostgresURL())
	case config.BackendMemory:
		logrus.Info("Memory store needs no migration")
		return nil
	default:
		return fmt.Errorf("unsupported store backend: %s", cfg.StoreBackend)
	}
}

// MigrateMySQL performs automatic migration of the MySQL schema
func MigrateMySQL(db *gorm.DB) error {
	// AutoMigrate will create tables, missing columns and indexes
	err := db.AutoMigrate(&domain.User{}, &domain.Category{}, &domain.Expense{}, &domain.Income{})
	if err != nil {
		return fmt.Errorf("mysql migration failed: %w", err)
	}
	logrus.WithField("backend", config.BackendMySQL).Info("Migration completed.")
	return nil
}

// MigratePostgres applies the embedded SQL migrations
func MigratePostgres(databaseURL string) error {
	pgConfig, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("parse database url: %w", err)
	}
	// Separate connection for migrations, closed when done
	sqlDB := stdlib.OpenDB(*pgConfig)
	defer sqlDB.Close()

	driver, err := migratepgx.WithInstance(sqlDB, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("create pgx driver: %w", err)
	}
	source, err := iofs.New(postgresMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	version, dirty, _ := m.Version()
	logrus.WithFields(logrus.Fields{
		"backend": config.BackendPostgres,
		"version": version,
		"dirty":   dirty,
	}).Info("Migration completed.")
	return nil
}
