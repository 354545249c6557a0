package supabase

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	unique := &pq.Error{Code: pq.ErrorCode(pgerrcode.UniqueViolation)}
	check := &pq.Error{Code: pq.ErrorCode(pgerrcode.CheckViolation)}
	other := &pq.Error{Code: pq.ErrorCode(pgerrcode.UndefinedTable)}

	assert.ErrorIs(t, classify(unique), ErrDuplicate)
	assert.ErrorIs(t, classify(check), ErrCheckViolation)

	var pqErr *pq.Error
	assert.ErrorAs(t, classify(check), &pqErr)

	assert.Equal(t, other, classify(other))
	plain := errors.New("boom")
	assert.Equal(t, plain, classify(plain))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(&pq.Error{Code: pq.ErrorCode(pgerrcode.SerializationFailure)}))
	assert.True(t, isTransient(&pq.Error{Code: pq.ErrorCode(pgerrcode.DeadlockDetected)}))
	assert.True(t, isTransient(&net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}))
	assert.True(t, isTransient(fmt.Errorf("query: %w", driver.ErrBadConn)))
	assert.True(t, isTransient(fmt.Errorf("write: %w", syscall.EPIPE)))
	assert.False(t, isTransient(errors.New("sql: no rows in result set")))
	assert.False(t, isTransient(errors.New("order note: connection refused by client")))
	assert.False(t, isSerializationFailure(errors.New("connection refused")))
}

func TestWithRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), retry.WithMaxRetries(3, retry.NewConstant(time.Millisecond)), isTransient, func(ctx context.Context) error {
		calls++
		return errors.New("permanent")
	})

	assert.EqualError(t, err, "permanent")
	assert.Equal(t, 1, calls)
}

func TestWithRetry_RetriesTransientError(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), retry.WithMaxRetries(3, retry.NewConstant(time.Millisecond)), isTransient, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET}
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_Exhausted(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), retry.WithMaxRetries(1, retry.NewConstant(time.Millisecond)), isTransient, func(ctx context.Context) error {
		calls++
		return fmt.Errorf("write: %w", syscall.EPIPE)
	})

	assert.ErrorIs(t, err, syscall.EPIPE)
	assert.Equal(t, 2, calls)
}
