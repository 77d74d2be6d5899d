// internal/domain/consent/repository.go
package consent

import (
	"context"
	"database/sql"
	"time"
)

// Repository is the host key-value option store holding consent flags and the
// send record. Missing keys read as false / invalid time.
type Repository interface {
	GetFlag(ctx context.Context, key string) (bool, error)
	SetFlag(ctx context.Context, key string, value bool) error
	GetTime(ctx context.Context, key string) (sql.NullTime, error)
	SetTime(ctx context.Context, key string, value time.Time) error
}

// LoadFlags reads both consent flags from the store.
func LoadFlags(ctx context.Context, repo Repository) (Flags, error) {
	optIn, err := repo.GetFlag(ctx, OptionOptIn)
	if err != nil {
		return Flags{}, err
	}
	declined, err := repo.GetFlag(ctx, OptionDeclined)
	if err != nil {
		return Flags{}, err
	}
	return Flags{OptIn: optIn, Declined: declined}, nil
}

// LoadSendRecord reads the last dispatch timestamp from the store.
func LoadSendRecord(ctx context.Context, repo Repository) (SendRecord, error) {
	lastSent, err := repo.GetTime(ctx, OptionLastSent)
	if err != nil {
		return SendRecord{}, err
	}
	return SendRecord{LastSentAt: lastSent}, nil
}
