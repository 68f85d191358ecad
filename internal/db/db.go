package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/balkashynov/wroklog/internal/config"
)

// ErrMissingDSN is returned when the postgres driver is selected without a DSN.
var ErrMissingDSN = errors.New("database.dsn is empty; set it in config, WROKLOG_DATABASE_DSN or the keyring")

// Store bundles the gorm handle with the per-table stores built on it.
type Store struct {
	DB     *gorm.DB
	Driver string

	Sessions  *SessionStore
	Schedules *ScheduleStore
	Documents *DocumentStore
	Usage     *UsageStore
}

func newStore(gdb *gorm.DB, driver string) *Store {
	return &Store{
		DB:        gdb,
		Driver:    driver,
		Sessions:  &SessionStore{db: gdb},
		Schedules: &ScheduleStore{db: gdb},
		Documents: &DocumentStore{db: gdb},
		Usage:     &UsageStore{db: gdb},
	}
}

// Open connects to the configured database and runs migrations.
func Open(cfg config.Database) (*Store, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Quiet by default
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
	if cfg.Debug {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var (
		gdb *gorm.DB
		err error
	)
	switch cfg.Driver {
	case config.DriverPostgres:
		gdb, err = openPostgres(cfg.DSN, gormCfg)
	default:
		gdb, err = openSQLite(cfg.Path, gormCfg)
	}
	if err != nil {
		return nil, err
	}

	store := newStore(gdb, cfg.Driver)
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

func openSQLite(path string, gormCfg *gorm.Config) (*gorm.DB, error) {
	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	gdb, err := gorm.Open(sqlite.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection serializes transactions
	// instead of surfacing SQLITE_BUSY to callers.
	sqlDB.SetMaxOpenConns(1)
	return gdb, nil
}

func openPostgres(dsn string, gormCfg *gorm.Config) (*gorm.DB, error) {
	if dsn == "" {
		return nil, ErrMissingDSN
	}
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormCfg)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return gdb, nil
}

// Transaction runs fn against a Store bound to a single database transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newStore(tx, s.Driver))
	})
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return Classify(sqlDB.PingContext(ctx))
}

// Close closes the database connection
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
