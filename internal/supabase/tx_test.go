package supabase

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agency-portal-backend/internal/models"
)

func newMockClient(t *testing.T) (*DatabaseClient, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &DatabaseClient{db: db}, mock
}

const updateDeliveryStatusSQL = `UPDATE design_deliveries SET status = $1 WHERE id = $2 AND status = $3`

func TestUpdateDeliveryStatus_NoRowIsStale(t *testing.T) {
	client, mock := newMockClient(t)
	deliveryID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(updateDeliveryStatusSQL)).
		WithArgs("approved", deliveryID, "pending_review").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := client.InTx(context.Background(), func(tx Tx) error {
		return tx.UpdateDeliveryStatus(context.Background(), deliveryID, models.DeliveryStatusPendingReview, models.DeliveryStatusApproved)
	})

	assert.ErrorIs(t, err, ErrStaleRow)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateDeliveryStatus_Commits(t *testing.T) {
	client, mock := newMockClient(t)
	deliveryID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(updateDeliveryStatusSQL)).
		WithArgs("revision_requested", deliveryID, "pending_review").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := client.InTx(context.Background(), func(tx Tx) error {
		return tx.UpdateDeliveryStatus(context.Background(), deliveryID, models.DeliveryStatusPendingReview, models.DeliveryStatusRevisionRequested)
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockOrder_ScopesToClient(t *testing.T) {
	client, mock := newMockClient(t)
	orderID, clientID, packageID := uuid.New(), uuid.New(), uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "client_id", "package_id", "package_name", "category_name", "status",
		"revisions_used", "max_revisions", "created_at", "updated_at",
	}).AddRow(orderID.String(), clientID.String(), packageID.String(), "Logo", nil, "delivered", 1, 2, now, now)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE o.id = $1 AND o.client_id = $2 FOR UPDATE OF o`)).
		WithArgs(orderID, clientID).
		WillReturnRows(rows)
	mock.ExpectCommit()

	var order *models.DesignOrder
	err := client.InTx(context.Background(), func(tx Tx) error {
		var err error
		order, err = tx.LockOrder(context.Background(), orderID, clientID)
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, orderID, order.ID)
	assert.Equal(t, models.OrderStatusDelivered, order.Status)
	assert.Equal(t, 1, order.RevisionsUsed)
	assert.False(t, order.CategoryName.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrder_CheckViolation(t *testing.T) {
	client, mock := newMockClient(t)
	order := &models.DesignOrder{ID: uuid.New(), Status: models.OrderStatusRevisionRequested, RevisionsUsed: 3}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE design_orders`)).
		WithArgs("revision_requested", 3, order.ID).
		WillReturnError(&pq.Error{Code: pq.ErrorCode(pgerrcode.CheckViolation)})
	mock.ExpectRollback()

	err := client.InTx(context.Background(), func(tx Tx) error {
		return tx.UpdateOrder(context.Background(), order)
	})

	assert.ErrorIs(t, err, ErrCheckViolation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_RollsBackOnError(t *testing.T) {
	client, mock := newMockClient(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	calls := 0
	err := client.InTx(context.Background(), func(tx Tx) error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_RetriesSerializationFailure(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(&pq.Error{Code: pq.ErrorCode(pgerrcode.SerializationFailure)})
	mock.ExpectBegin()
	mock.ExpectCommit()

	calls := 0
	err := client.InTx(context.Background(), func(tx Tx) error {
		calls++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDeliveries_FilesOrderedWithTiebreak(t *testing.T) {
	client, mock := newMockClient(t)
	orderID, deliveryID := uuid.New(), uuid.New()
	firstFile, secondFile := uuid.New(), uuid.New()
	uploaded := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM design_deliveries`)).
		WithArgs(orderID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "version_number", "status", "delivery_notes", "created_at"}).
			AddRow(deliveryID.String(), orderID.String(), 1, "pending_review", nil, uploaded))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at ASC, file_name, id`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "delivery_id", "file_name", "file_type", "file_path", "created_at"}).
			AddRow(firstFile.String(), deliveryID.String(), "a.png", "image/png", "design-orders/x/v1/a.png", uploaded).
			AddRow(secondFile.String(), deliveryID.String(), "b.png", "image/png", "design-orders/x/v1/b.png", uploaded))

	deliveries, err := client.ListDeliveries(context.Background(), orderID)

	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	require.Len(t, deliveries[0].Files, 2)
	assert.Equal(t, firstFile, deliveries[0].Files[0].ID)
	assert.Equal(t, secondFile, deliveries[0].Files[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
