package supabase

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"syscall"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
	"github.com/sethvargo/go-retry"
)

var (
	// ErrDuplicate wraps unique-constraint violations.
	ErrDuplicate = errors.New("duplicate row")
	// ErrCheckViolation wraps CHECK constraint violations.
	ErrCheckViolation = errors.New("check constraint violated")
)

const (
	readRetries     = 3
	readBaseBackoff = 1 * time.Second
	readMaxBackoff  = 30 * time.Second
)

// readBackoff mirrors the portal's query policy: three retries, exponential,
// capped at 30s.
func readBackoff() retry.Backoff {
	b := retry.NewExponential(readBaseBackoff)
	b = retry.WithCappedDuration(readMaxBackoff, b)
	return retry.WithMaxRetries(readRetries, b)
}

// writeBackoff allows a single retry of a rolled-back transaction.
func writeBackoff() retry.Backoff {
	return retry.WithMaxRetries(1, retry.NewConstant(200*time.Millisecond))
}

func withRetry(ctx context.Context, b retry.Backoff, retryable func(error) bool, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func isTransient(err error) bool {
	if isSerializationFailure(err) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	code := string(pqErr.Code)
	return code == pgerrcode.SerializationFailure || code == pgerrcode.DeadlockDetected
}

// classify maps constraint violations onto package sentinels, keeping the
// original error in the chain.
func classify(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch string(pqErr.Code) {
	case pgerrcode.UniqueViolation:
		return errors.Join(ErrDuplicate, err)
	case pgerrcode.CheckViolation:
		return errors.Join(ErrCheckViolation, err)
	}
	return err
}
