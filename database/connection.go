package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ridoystarlord/redatlas/config"
	"github.com/ridoystarlord/redatlas/schema"
	"github.com/ridoystarlord/redatlas/utils"
)

// DB is an open handle on the relational store.
type DB struct {
	*gorm.DB
	pool *pgxpool.Pool
	log  *zap.Logger
}

// Open connects to the store described by cfg. SQLite is the embedded
// default; postgres goes through a pgx pool.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	log = utils.OrNop(log)

	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if cfg.LogSQL {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}

	db := &DB{log: log}
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverSQLite:
		dialector = sqlite.Open(sqliteDSN(cfg.DSN))
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("unable to create connection pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("unable to ping database: %w", err)
		}
		db.pool = pool
		dialector = postgres.New(postgres.Config{Conn: stdlib.OpenDBFromPool(pool)})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gdb, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		if db.pool != nil {
			db.pool.Close()
		}
		return nil, fmt.Errorf("opening %s database: %w", cfg.Driver, err)
	}
	db.DB = gdb

	if cfg.MaxOpenConns > 0 {
		sqlDB, err := gdb.DB()
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("getting sql handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	log.Debug("Database opened", zap.String("driver", cfg.Driver))
	return db, nil
}

// sqliteDSN turns on WAL and a busy timeout unless the caller already set
// connection parameters.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "?") || strings.Contains(dsn, ":memory:") {
		return dsn
	}
	return dsn + "?_journal_mode=WAL&_busy_timeout=5000"
}

// Close releases the connection and, for postgres, the pool.
func (db *DB) Close() error {
	var err error
	if db.DB != nil {
		if sqlDB, e := db.DB.DB(); e == nil {
			err = sqlDB.Close()
		}
	}
	if db.pool != nil {
		db.pool.Close()
	}
	return err
}

// Ping checks that the store answers.
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Migrate creates any missing tables and columns.
func (db *DB) Migrate(ctx context.Context) error {
	if err := db.WithContext(ctx).AutoMigrate(schema.Models()...); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// IsEmpty reports whether the locus table is missing or has no rows.
func (db *DB) IsEmpty(ctx context.Context) (bool, error) {
	if !db.Migrator().HasTable(&schema.Repid{}) {
		return true, nil
	}
	var n int64
	if err := db.WithContext(ctx).Model(&schema.Repid{}).Count(&n).Error; err != nil {
		return false, fmt.Errorf("counting loci: %w", err)
	}
	return n == 0, nil
}

// TableCount is the row count of one data table.
type TableCount struct {
	Table string
	Rows  int64
}

// Counts returns row counts for the data tables that exist.
func (db *DB) Counts(ctx context.Context) ([]TableCount, error) {
	var out []TableCount
	for i, m := range schema.DataModels() {
		name := schema.TableNames()[i]
		if !db.Migrator().HasTable(m) {
			continue
		}
		var n int64
		if err := db.WithContext(ctx).Model(m).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("counting %s: %w", name, err)
		}
		out = append(out, TableCount{Table: name, Rows: n})
	}
	return out, nil
}

// Reset drops all tables, including the ingest history.
func (db *DB) Reset(ctx context.Context) error {
	if err := db.WithContext(ctx).Migrator().DropTable(schema.Models()...); err != nil {
		return fmt.Errorf("dropping tables: %w", err)
	}
	return nil
}
