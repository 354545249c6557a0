package supabase

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"agency-portal-backend/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, connectionString string) (*DatabaseClient, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

// DB exposes the pool for the migrator.
func (d *DatabaseClient) DB() *sql.DB {
	return d.db
}

func (d *DatabaseClient) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

const orderColumns = `
	o.id, o.client_id, o.package_id, p.name, c.name, o.status,
	o.revisions_used, o.max_revisions, o.created_at, o.updated_at`

const orderFrom = `
	FROM design_orders o
	JOIN design_packages p ON p.id = o.package_id
	LEFT JOIN design_categories c ON c.id = p.category_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.DesignOrder, error) {
	var order models.DesignOrder
	var status string
	err := row.Scan(
		&order.ID, &order.ClientID, &order.PackageID, &order.PackageName, &order.CategoryName,
		&status, &order.RevisionsUsed, &order.MaxRevisions, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if order.Status, err = models.ParseOrderStatus(status); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetDesignOrder returns the order only when it belongs to clientID. A missing
// row surfaces as sql.ErrNoRows in the error chain.
func (d *DatabaseClient) GetDesignOrder(ctx context.Context, orderID, clientID uuid.UUID) (*models.DesignOrder, error) {
	var order *models.DesignOrder
	err := withRetry(ctx, readBackoff(), isTransient, func(ctx context.Context) error {
		var err error
		order, err = scanOrder(d.db.QueryRowContext(ctx,
			`SELECT`+orderColumns+orderFrom+` WHERE o.id = $1 AND o.client_id = $2`,
			orderID, clientID,
		))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get design order: %w", err)
	}
	return order, nil
}

// GetDesignOrderByID is the admin lookup without client scoping.
func (d *DatabaseClient) GetDesignOrderByID(ctx context.Context, orderID uuid.UUID) (*models.DesignOrder, error) {
	var order *models.DesignOrder
	err := withRetry(ctx, readBackoff(), isTransient, func(ctx context.Context) error {
		var err error
		order, err = scanOrder(d.db.QueryRowContext(ctx,
			`SELECT`+orderColumns+orderFrom+` WHERE o.id = $1`,
			orderID,
		))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get design order: %w", err)
	}
	return order, nil
}

func (d *DatabaseClient) ListDesignOrders(ctx context.Context, clientID uuid.UUID) ([]models.DesignOrder, error) {
	var orders []models.DesignOrder
	err := withRetry(ctx, readBackoff(), isTransient, func(ctx context.Context) error {
		rows, err := d.db.QueryContext(ctx,
			`SELECT`+orderColumns+orderFrom+` WHERE o.client_id = $1 ORDER BY o.created_at DESC`,
			clientID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		orders = orders[:0]
		for rows.Next() {
			order, err := scanOrder(rows)
			if err != nil {
				return fmt.Errorf("failed to scan design order: %w", err)
			}
			orders = append(orders, *order)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list design orders: %w", err)
	}
	return orders, nil
}

// ListDeliveries returns every delivery of the order, newest version first,
// each with its files.
func (d *DatabaseClient) ListDeliveries(ctx context.Context, orderID uuid.UUID) ([]models.Delivery, error) {
	var deliveries []models.Delivery
	err := withRetry(ctx, readBackoff(), isTransient, func(ctx context.Context) error {
		var err error
		deliveries, err = d.listDeliveries(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	return deliveries, nil
}

func (d *DatabaseClient) listDeliveries(ctx context.Context, orderID uuid.UUID) ([]models.Delivery, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, order_id, version_number, status, delivery_notes, created_at
		FROM design_deliveries
		WHERE order_id = $1
		ORDER BY version_number DESC
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deliveries := []models.Delivery{}
	index := map[uuid.UUID]int{}
	ids := []string{}
	for rows.Next() {
		delivery, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		delivery.Files = []models.DeliveryFile{}
		index[delivery.ID] = len(deliveries)
		ids = append(ids, delivery.ID.String())
		deliveries = append(deliveries, *delivery)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(deliveries) == 0 {
		return deliveries, nil
	}

	fileRows, err := d.db.QueryContext(ctx, `
		SELECT id, delivery_id, file_name, file_type, file_path, created_at
		FROM design_delivery_files
		WHERE delivery_id = ANY($1::uuid[])
		ORDER BY created_at ASC, file_name, id
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer fileRows.Close()

	for fileRows.Next() {
		var file models.DeliveryFile
		if err := fileRows.Scan(&file.ID, &file.DeliveryID, &file.FileName, &file.FileType, &file.FilePath, &file.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan delivery file: %w", err)
		}
		i := index[file.DeliveryID]
		deliveries[i].Files = append(deliveries[i].Files, file)
	}

	return deliveries, fileRows.Err()
}

func scanDelivery(row rowScanner) (*models.Delivery, error) {
	var delivery models.Delivery
	var status string
	err := row.Scan(&delivery.ID, &delivery.OrderID, &delivery.VersionNumber, &status, &delivery.DeliveryNotes, &delivery.CreatedAt)
	if err != nil {
		return nil, err
	}
	if delivery.Status, err = models.ParseDeliveryStatus(status); err != nil {
		return nil, err
	}
	return &delivery, nil
}

// GetDeliveryFile resolves a file only if it hangs off a delivery of orderID.
func (d *DatabaseClient) GetDeliveryFile(ctx context.Context, orderID, fileID uuid.UUID) (*models.DeliveryFile, error) {
	var file models.DeliveryFile
	err := withRetry(ctx, readBackoff(), isTransient, func(ctx context.Context) error {
		return d.db.QueryRowContext(ctx, `
			SELECT f.id, f.delivery_id, f.file_name, f.file_type, f.file_path, f.created_at
			FROM design_delivery_files f
			JOIN design_deliveries d ON d.id = f.delivery_id
			WHERE f.id = $1 AND d.order_id = $2
		`, fileID, orderID).Scan(&file.ID, &file.DeliveryID, &file.FileName, &file.FileType, &file.FilePath, &file.CreatedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery file: %w", err)
	}
	return &file, nil
}

func (d *DatabaseClient) ListFeedback(ctx context.Context, orderID uuid.UUID) ([]models.FeedbackEvent, error) {
	var events []models.FeedbackEvent
	err := withRetry(ctx, readBackoff(), isTransient, func(ctx context.Context) error {
		rows, err := d.db.QueryContext(ctx, `
			SELECT f.id, f.delivery_id, f.user_id, f.feedback_type, f.comment, f.created_at
			FROM design_feedback f
			JOIN design_deliveries d ON d.id = f.delivery_id
			WHERE d.order_id = $1
			ORDER BY f.created_at DESC
		`, orderID)
		if err != nil {
			return err
		}
		defer rows.Close()

		events = []models.FeedbackEvent{}
		for rows.Next() {
			var event models.FeedbackEvent
			var feedbackType string
			if err := rows.Scan(&event.ID, &event.DeliveryID, &event.UserID, &feedbackType, &event.Comment, &event.CreatedAt); err != nil {
				return fmt.Errorf("failed to scan feedback: %w", err)
			}
			if event.FeedbackType, err = models.ParseFeedbackType(feedbackType); err != nil {
				return err
			}
			events = append(events, event)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return events, nil
}

// InTx runs fn inside one transaction. The transaction is retried once when
// Postgres aborts it with a serialization failure or deadlock.
func (d *DatabaseClient) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return withRetry(ctx, writeBackoff(), isSerializationFailure, func(ctx context.Context) error {
		sqlTx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer sqlTx.Rollback()

		if err := fn(&dbTx{tx: sqlTx}); err != nil {
			return err
		}

		if err := sqlTx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
}

func (d *DatabaseClient) Close() error {
	return d.db.Close()
}
