// Package store is the persistence client for users and tasks. A Store is
// opened once at process start, shared by all requests and closed at
// shutdown.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrNotFound means no row matched the id within the caller's scope.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate means a unique constraint rejected the write.
	ErrDuplicate = errors.New("duplicate")
)

type Store struct {
	db *gorm.DB
}

// Open connects to the database described by opts and checks the
// connection. It does not migrate.
func Open(opts Options) (*Store, error) {
	cfg := gormConfig(opts)

	var (
		db  *gorm.DB
		err error
	)
	switch opts.Driver {
	case "postgres":
		db, err = openPostgres(opts.DSN, cfg)
	case "sqlite":
		db, err = openSQLite(opts.DSN, cfg)
	default:
		return nil, fmt.Errorf("unknown driver %q", opts.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}

	// Fast fail if unreachable
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	if err := s.Ping(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return s, nil
}

// Migrate creates or updates the users and tasks tables.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&User{}, &Task{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	// older sqlite dialects do not translate constraint errors
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
