package db

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options configures the database connection.
type Options struct {
	// Type selects the driver: "postgres" or "sqlite".
	Type string
	// DSN is the driver-specific connection string. For sqlite this is a
	// file path or ":memory:".
	DSN string
	// MaxOpenConns bounds the connection pool; zero means driver default.
	MaxOpenConns int
	// LogSQL enables GORM's SQL statement logging.
	LogSQL bool
}

// Open connects to the configured database and returns a GORM handle.
func Open(opts Options) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	if opts.LogSQL {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var dialector gorm.Dialector
	switch opts.Type {
	case "postgres":
		dialector = postgres.Open(opts.DSN)
	case "sqlite", "":
		dsn := opts.DSN
		if dsn == "" {
			dsn = ":memory:"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type %q", opts.Type)
	}

	gdb, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, fmt.Errorf("access connection pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	}

	slog.Info("database connected", "type", opts.Type)
	return gdb, nil
}
