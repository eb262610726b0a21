package store

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options selects and tunes the backing database.
type Options struct {
	Driver string // "postgres" | "sqlite"
	DSN    string

	// Log receives GORM warnings and slow queries. nil discards them.
	Log *log.Logger
}

func gormConfig(opts Options) *gorm.Config {
	gLogger := logger.Discard
	if opts.Log != nil {
		// Quieter GORM logger
		gLogger = logger.New(opts.Log, logger.Config{
			SlowThreshold:             1500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}
	return &gorm.Config{
		Logger:         gLogger,
		TranslateError: true,
	}
}

// openPostgres forces IPv4 dialing so hosts with IPv6-only DNS answers but no
// IPv6 route still connect.
func openPostgres(dsn string, cfg *gorm.Config) (*gorm.DB, error) {
	pcfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}
	pcfg.DialFunc = func(ctx context.Context, network, addr string) (net.Conn, error) {
		d := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
		return d.DialContext(ctx, "tcp4", addr)
	}

	sqlDB := stdlib.OpenDB(*pcfg)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), cfg)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func openSQLite(dsn string, cfg *gorm.Config) (*gorm.DB, error) {
	dsn = strings.TrimPrefix(dsn, "sqlite://")
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_foreign_keys=on&_busy_timeout=5000"

	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite only supports one writer at a time.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	return db, nil
}
