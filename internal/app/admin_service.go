package app

import (
	"context"
	"fmt"

	"customizer_telemetry/internal/domain/consent"
)

// Custom application-level errors for admin service
var ErrAdminNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")

// Decision is the administrator's answer to the consent notice.
type Decision int

const (
	DecisionConsent Decision = iota
	DecisionDecline
)

func (d Decision) String() string {
	switch d {
	case DecisionConsent:
		return "consent"
	case DecisionDecline:
		return "decline"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// ConsentRecorder is the part of the reporter the admin surfaces act on.
type ConsentRecorder interface {
	Consent(ctx context.Context) error
	Decline(ctx context.Context) error
	State(ctx context.Context) (consent.State, error)
	Status(ctx context.Context) (Status, error)
}

// AdminService authorizes chat users against the configured administrator
// before touching the consent state. Page links carry a nonce instead.
type AdminService struct {
	recorder        ConsentRecorder
	adminTelegramID int64
}

func NewAdminService(recorder ConsentRecorder, adminID int64) *AdminService {
	return &AdminService{
		recorder:        recorder,
		adminTelegramID: adminID,
	}
}

// IsAdmin reports whether the Telegram user is the configured administrator.
func (s *AdminService) IsAdmin(telegramID int64) bool {
	return s.adminTelegramID != 0 && telegramID == s.adminTelegramID
}

// Answer records the administrator's decision and returns the consent state
// that is in effect afterwards. A decline after an opt-in leaves the state
// opted in.
func (s *AdminService) Answer(ctx context.Context, performingAdminID int64, d Decision) (consent.State, error) {
	if !s.IsAdmin(performingAdminID) {
		return consent.StateUndecided, ErrAdminNotAuthorized
	}
	var err error
	switch d {
	case DecisionConsent:
		err = s.recorder.Consent(ctx)
	case DecisionDecline:
		err = s.recorder.Decline(ctx)
	default:
		err = fmt.Errorf("unknown decision %d", d)
	}
	if err != nil {
		return consent.StateUndecided, err
	}

	state, err := s.recorder.State(ctx)
	if err != nil {
		return consent.StateUndecided, fmt.Errorf("failed to reload consent state: %w", err)
	}
	return state, nil
}

// Status returns the reporter status for the administrator.
func (s *AdminService) Status(ctx context.Context, performingAdminID int64) (Status, error) {
	if !s.IsAdmin(performingAdminID) {
		return Status{}, ErrAdminNotAuthorized
	}
	st, err := s.recorder.Status(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("failed to load telemetry status: %w", err)
	}
	return st, nil
}
