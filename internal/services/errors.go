package services

import (
	"database/sql"
	"errors"
	"fmt"

	"agency-portal-backend/internal/lifecycle"
	"agency-portal-backend/internal/supabase"
)

var (
	ErrOrderNotFound  = errors.New("design order not found")
	ErrNoDelivery     = errors.New("design order has no deliveries")
	ErrConflict       = errors.New("design order changed concurrently")
	ErrOrderComplete  = errors.New("design order already complete")
	ErrRevisionLimit  = errors.New("revision limit reached")
	ErrEmptyComment   = errors.New("revision comment is required")
	ErrFullyFinalized = errors.New("design order reached the maximum number of deliveries")
	ErrFileNotFound   = errors.New("delivery file not found")
	ErrNoFiles        = errors.New("delivery requires at least one file")
	ErrInvalidStatus  = errors.New("status cannot be set directly")
	ErrStorage        = errors.New("storage unavailable")
)

// mapStoreErr translates persistence errors into service errors, leaving
// anything unrecognised untouched.
func mapStoreErr(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return notFound
	case errors.Is(err, supabase.ErrStaleRow), errors.Is(err, supabase.ErrDuplicate):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, supabase.ErrCheckViolation):
		return fmt.Errorf("%w: %w", ErrRevisionLimit, err)
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}
