package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/inventory-metrics/backend-go/internal/config"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// maxConcurrentQueries bounds how many reads run against the pool at once.
const maxConcurrentQueries = 10

type DB struct {
	*sqlx.DB
	sem *semaphore.Weighted
}

var (
	dbInstance *DB
	dbErr      error
	once       sync.Once
)

// ConnString builds a libpq key/value DSN; both the lib/pq and pgx drivers accept it.
func ConnString(cfg *config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// driverName maps the configured driver onto its database/sql registration name.
func driverName(driver string) (string, error) {
	switch driver {
	case "", "postgres":
		return "postgres", nil
	case "pgx":
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// NewDB creates the process-wide connection pool. Later calls return the
// first call's pool, or its error.
func NewDB(cfg *config.DatabaseConfig) (*DB, error) {
	once.Do(func() {
		dbInstance, dbErr = openDB(cfg)
	})

	return dbInstance, dbErr
}

func openDB(cfg *config.DatabaseConfig) (*DB, error) {
	name, err := driverName(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect(name, ConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", name, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	log.Info().Str("driver", name).Str("host", cfg.Host).Str("db", cfg.DBName).Msg("database connected")

	return &DB{
		DB:  db,
		sem: semaphore.NewWeighted(maxConcurrentQueries),
	}, nil
}

// WithReadLimit runs fn while holding one of the pool's query slots.
func (db *DB) WithReadLimit(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := db.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("could not acquire semaphore: %w", err)
	}
	defer db.sem.Release(1)

	return fn(ctx)
}
