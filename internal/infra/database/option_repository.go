// internal/infra/database/option_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"customizer_telemetry/internal/domain/consent"
)

// ErrInvalidOptionValue is returned when a stored value cannot be decoded.
var ErrInvalidOptionValue = fmt.Errorf("invalid option value")

var positionalParam = regexp.MustCompile(`\$\d+`)

// OptionRepository is the host key-value option store backed by an
// "options" table. Queries are written with Postgres placeholders and
// rebound for SQLite.
type OptionRepository struct {
	db     *sql.DB
	driver string
}

var _ consent.Repository = (*OptionRepository)(nil)

func NewOptionRepository(db *sql.DB, driver string) *OptionRepository {
	return &OptionRepository{db: db, driver: driver}
}

func (r *OptionRepository) rebind(query string) string {
	if r.driver != DriverSQLite {
		return query
	}
	return positionalParam.ReplaceAllString(query, "?")
}

func (r *OptionRepository) get(ctx context.Context, key string) (string, bool, error) {
	query := r.rebind(`SELECT option_value FROM options WHERE option_name = $1`)
	var value string
	err := r.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("error getting option %s: %w", key, err)
	}
	return value, true, nil
}

func (r *OptionRepository) set(ctx context.Context, key, value string) error {
	query := r.rebind(`INSERT INTO options (option_name, option_value, updated_at)
               VALUES ($1, $2, CURRENT_TIMESTAMP)
               ON CONFLICT (option_name)
               DO UPDATE SET option_value = EXCLUDED.option_value, updated_at = CURRENT_TIMESTAMP`)
	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("error setting option %s: %w", key, err)
	}
	return nil
}

// GetFlag returns false for a missing key.
func (r *OptionRepository) GetFlag(ctx context.Context, key string) (bool, error) {
	value, ok, err := r.get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	flag, err := parseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", ErrInvalidOptionValue, key, value)
	}
	return flag, nil
}

func (r *OptionRepository) SetFlag(ctx context.Context, key string, value bool) error {
	encoded := "0"
	if value {
		encoded = "1"
	}
	return r.set(ctx, key, encoded)
}

// GetTime returns an invalid NullTime for a missing key.
func (r *OptionRepository) GetTime(ctx context.Context, key string) (sql.NullTime, error) {
	value, ok, err := r.get(ctx, key)
	if err != nil || !ok {
		return sql.NullTime{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(value))
	if err != nil {
		return sql.NullTime{}, fmt.Errorf("%w: %s=%q", ErrInvalidOptionValue, key, value)
	}
	return sql.NullTime{Time: t, Valid: true}, nil
}

func (r *OptionRepository) SetTime(ctx context.Context, key string, value time.Time) error {
	return r.set(ctx, key, value.UTC().Format(time.RFC3339Nano))
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1":
		return true, nil
	case "false", "0", "":
		return false, nil
	default:
		return false, strconv.ErrSyntax
	}
}
