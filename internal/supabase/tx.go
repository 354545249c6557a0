package supabase

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"agency-portal-backend/internal/models"
)

// Tx is the set of writes a lifecycle mutation performs atomically.
type Tx interface {
	// LockOrder loads the order with a row lock. clientID uuid.Nil skips
	// client scoping (admin paths).
	LockOrder(ctx context.Context, orderID, clientID uuid.UUID) (*models.DesignOrder, error)
	// LatestDelivery returns the highest version (nil if none) and the count.
	LatestDelivery(ctx context.Context, orderID uuid.UUID) (*models.Delivery, int, error)
	UpdateDeliveryStatus(ctx context.Context, deliveryID uuid.UUID, from, to models.DeliveryStatus) error
	UpdateOrder(ctx context.Context, order *models.DesignOrder) error
	InsertFeedback(ctx context.Context, event *models.FeedbackEvent) error
	InsertDelivery(ctx context.Context, delivery *models.Delivery) error
	InsertDeliveryFile(ctx context.Context, file *models.DeliveryFile) error
	InsertAudit(ctx context.Context, entry models.AuditEntry) error
}

// ErrStaleRow is returned when a conditional update matched no row.
var ErrStaleRow = errors.New("row changed concurrently")

type dbTx struct {
	tx *sql.Tx
}

func (t *dbTx) LockOrder(ctx context.Context, orderID, clientID uuid.UUID) (*models.DesignOrder, error) {
	query := `SELECT` + orderColumns + orderFrom + ` WHERE o.id = $1`
	args := []any{orderID}
	if clientID != uuid.Nil {
		query += ` AND o.client_id = $2`
		args = append(args, clientID)
	}
	query += ` FOR UPDATE OF o`

	order, err := scanOrder(t.tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to lock design order: %w", err)
	}
	return order, nil
}

func (t *dbTx) LatestDelivery(ctx context.Context, orderID uuid.UUID) (*models.Delivery, int, error) {
	var count int
	if err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM design_deliveries WHERE order_id = $1`, orderID,
	).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("failed to count deliveries: %w", err)
	}
	if count == 0 {
		return nil, 0, nil
	}

	delivery, err := scanDelivery(t.tx.QueryRowContext(ctx, `
		SELECT id, order_id, version_number, status, delivery_notes, created_at
		FROM design_deliveries
		WHERE order_id = $1
		ORDER BY version_number DESC
		LIMIT 1
	`, orderID))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get latest delivery: %w", err)
	}
	return delivery, count, nil
}

// UpdateDeliveryStatus only moves a delivery that is still in the from state.
func (t *dbTx) UpdateDeliveryStatus(ctx context.Context, deliveryID uuid.UUID, from, to models.DeliveryStatus) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE design_deliveries SET status = $1 WHERE id = $2 AND status = $3`,
		string(to), deliveryID, string(from),
	)
	if err != nil {
		return fmt.Errorf("failed to update delivery status: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update delivery status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delivery %s: %w", deliveryID, ErrStaleRow)
	}
	return nil
}

func (t *dbTx) UpdateOrder(ctx context.Context, order *models.DesignOrder) error {
	err := t.tx.QueryRowContext(ctx, `
		UPDATE design_orders
		SET status = $1, revisions_used = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at
	`, string(order.Status), order.RevisionsUsed, order.ID).Scan(&order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update design order: %w", classify(err))
	}
	return nil
}

func (t *dbTx) InsertFeedback(ctx context.Context, event *models.FeedbackEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO design_feedback (id, delivery_id, user_id, feedback_type, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, event.ID, event.DeliveryID, event.UserID, string(event.FeedbackType), event.Comment).Scan(&event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", classify(err))
	}
	return nil
}

func (t *dbTx) InsertDelivery(ctx context.Context, delivery *models.Delivery) error {
	if delivery.ID == uuid.Nil {
		delivery.ID = uuid.New()
	}
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO design_deliveries (id, order_id, version_number, status, delivery_notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, delivery.ID, delivery.OrderID, delivery.VersionNumber, string(delivery.Status), delivery.DeliveryNotes).Scan(&delivery.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert delivery: %w", classify(err))
	}
	return nil
}

func (t *dbTx) InsertDeliveryFile(ctx context.Context, file *models.DeliveryFile) error {
	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	}
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO design_delivery_files (id, delivery_id, file_name, file_type, file_path)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, file.ID, file.DeliveryID, file.FileName, file.FileType, file.FilePath).Scan(&file.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert delivery file: %w", classify(err))
	}
	return nil
}

func (t *dbTx) InsertAudit(ctx context.Context, entry models.AuditEntry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO audit_logs (user_id, action, entity_type, entity_id, details)
		VALUES ($1, $2, $3, $4, $5)
	`, entry.UserID, entry.Action, entry.EntityType, entry.EntityID, details)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}
