package database

import (
	"context"
	"fmt"
	"log"
	"time"

	migrate "github.com/rubenv/sql-migrate"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/johnquangdev/focus-group-analyzer/pkg/config"
)

// MigrationsDir is where the report table migrations live
const MigrationsDir = "migrations"

const dialect = "postgres"

// NewPostgresDB opens the report database and checks it answers
func NewPostgresDB(cfg *config.Config) (*gorm.DB, error) {
	if !cfg.Database.Enabled {
		return nil, fmt.Errorf("report database is disabled (DB_ENABLED=false)")
	}

	level := logger.Warn
	switch cfg.Server.Environment {
	case "development":
		level = logger.Info
	case "production":
		level = logger.Error
	}

	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseDSN()), &gorm.Config{
		Logger:  logger.Default.LogMode(level),
		NowFunc: func() time.Time { return time.Now().UTC() },
		// reports are single-row inserts
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database object: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MinConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("✅ Report database connected (%s:%s/%s)", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
	return db, nil
}

// Migrate runs up to max migrations from dir in the given direction; max 0 means all
func Migrate(db *gorm.DB, dir string, direction migrate.MigrationDirection, max int) (int, error) {
	if dir == "" {
		dir = MigrationsDir
	}
	sqlDB, err := db.DB()
	if err != nil {
		return 0, fmt.Errorf("failed to get database object: %w", err)
	}
	n, err := migrate.ExecMax(sqlDB, dialect, &migrate.FileMigrationSource{Dir: dir}, direction, max)
	if err != nil {
		return n, fmt.Errorf("failed to apply migrations from %s: %w", dir, err)
	}
	return n, nil
}

// AutoMigrate applies every pending migration in dir
func AutoMigrate(db *gorm.DB, dir string) error {
	n, err := Migrate(db, dir, migrate.Up, 0)
	if err != nil {
		return err
	}
	log.Printf("✅ Applied %d migrations", n)
	return nil
}

// MigrationRecords lists the migrations already applied
func MigrationRecords(db *gorm.DB) ([]*migrate.MigrationRecord, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database object: %w", err)
	}
	return migrate.GetMigrationRecords(sqlDB, dialect)
}

// CloseDB closes the database connection
func CloseDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database object: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	log.Println("✅ Database connection closed")
	return nil
}

// Pinger probes the report database for the health check
type Pinger struct {
	db *gorm.DB
}

// NewPinger wraps db for health checks
func NewPinger(db *gorm.DB) *Pinger {
	return &Pinger{db: db}
}

func (p *Pinger) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
