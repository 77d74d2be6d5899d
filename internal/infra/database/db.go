package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Supported values for DATABASE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 25
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnMaxIdleTime = 1 * time.Minute
)

// ErrUnsupportedDriver is returned by Open for unknown driver names.
var ErrUnsupportedDriver = fmt.Errorf("unsupported database driver")

// Open connects to the option store using the named driver.
func Open(driver, dataSourceName string) (*sql.DB, error) {
	switch driver {
	case DriverPostgres:
		return NewPostgresConnection(dataSourceName)
	case DriverSQLite:
		return NewSQLiteConnection(dataSourceName)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

// NewPostgresConnection creates and returns a new PostgreSQL database connection.
// It also pings the database to ensure connectivity.
func NewPostgresConnection(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open(DriverPostgres, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// NewSQLiteConnection opens an embedded SQLite store. A single connection is
// used so in-memory databases are shared and writes are serialized.
func NewSQLiteConnection(dataSourceName string) (*sql.DB, error) {
	if dataSourceName == "" {
		return nil, fmt.Errorf("failed to open database connection: empty sqlite dsn")
	}
	db, err := sql.Open(DriverSQLite, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
