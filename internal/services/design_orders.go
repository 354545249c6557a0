package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"agency-portal-backend/internal/lifecycle"
	"agency-portal-backend/internal/models"
	"agency-portal-backend/internal/supabase"
)

type Repository interface {
	GetDesignOrder(ctx context.Context, orderID, clientID uuid.UUID) (*models.DesignOrder, error)
	GetDesignOrderByID(ctx context.Context, orderID uuid.UUID) (*models.DesignOrder, error)
	ListDesignOrders(ctx context.Context, clientID uuid.UUID) ([]models.DesignOrder, error)
	ListDeliveries(ctx context.Context, orderID uuid.UUID) ([]models.Delivery, error)
	ListFeedback(ctx context.Context, orderID uuid.UUID) ([]models.FeedbackEvent, error)
	GetDeliveryFile(ctx context.Context, orderID, fileID uuid.UUID) (*models.DeliveryFile, error)
	InTx(ctx context.Context, fn func(tx supabase.Tx) error) error
}

type FileStorage interface {
	UploadDeliveryFile(orderID uuid.UUID, version int, filename, contentType string, data io.Reader) (string, error)
	SignedURL(storagePath string, expiresIn int) (string, error)
	DeleteFiles(storagePaths []string) error
}

type Notifier interface {
	DesignOrderApproved(clientID, orderID uuid.UUID, packageName string)
	DesignOrderRevisionRequested(clientID, orderID uuid.UUID, packageName, comment string)
}

type OrderView struct {
	Order      models.DesignOrder
	Projection lifecycle.Projection
}

type Upload struct {
	FileName    string
	ContentType string
	Content     io.Reader
}

const (
	AuditActionApproved          = "design_order.approved"
	AuditActionRevisionRequested = "design_order.revision_requested"
	AuditActionDeliveryCreated   = "design_order.delivery_created"
	AuditActionStatusChanged     = "design_order.status_changed"
	auditEntityDesignOrder       = "design_order"
)

// DesignOrderService owns the order -> delivery -> revision -> approval cycle.
// Every mutation is one transaction that re-checks its preconditions against
// locked rows.
type DesignOrderService struct {
	repo         Repository
	storage      FileStorage
	notifier     Notifier
	logger       *zap.Logger
	signedURLTTL int
}

func NewDesignOrderService(repo Repository, storage FileStorage, notifier Notifier, logger *zap.Logger, signedURLTTL int) *DesignOrderService {
	return &DesignOrderService{
		repo:         repo,
		storage:      storage,
		notifier:     notifier,
		logger:       logger.Named("design_orders"),
		signedURLTTL: signedURLTTL,
	}
}

func (s *DesignOrderService) SignedURLTTL() int {
	return s.signedURLTTL
}

func (s *DesignOrderService) ListOrders(ctx context.Context, clientID uuid.UUID) ([]models.DesignOrder, error) {
	return s.repo.ListDesignOrders(ctx, clientID)
}

// GetOrderView loads the client's order with its deliveries and projection.
func (s *DesignOrderService) GetOrderView(ctx context.Context, orderID, clientID uuid.UUID) (*OrderView, error) {
	order, err := s.repo.GetDesignOrder(ctx, orderID, clientID)
	if err != nil {
		return nil, mapStoreErr(err, ErrOrderNotFound)
	}
	return s.view(ctx, order)
}

func (s *DesignOrderService) GetAdminOrderView(ctx context.Context, orderID uuid.UUID) (*OrderView, error) {
	order, err := s.repo.GetDesignOrderByID(ctx, orderID)
	if err != nil {
		return nil, mapStoreErr(err, ErrOrderNotFound)
	}
	return s.view(ctx, order)
}

func (s *DesignOrderService) view(ctx context.Context, order *models.DesignOrder) (*OrderView, error) {
	deliveries, err := s.repo.ListDeliveries(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return &OrderView{
		Order:      *order,
		Projection: lifecycle.Project(*order, deliveries),
	}, nil
}

func (s *DesignOrderService) ListFeedback(ctx context.Context, orderID, clientID uuid.UUID) ([]models.FeedbackEvent, error) {
	if _, err := s.repo.GetDesignOrder(ctx, orderID, clientID); err != nil {
		return nil, mapStoreErr(err, ErrOrderNotFound)
	}
	return s.repo.ListFeedback(ctx, orderID)
}

// feedbackAllowed re-derives the client gate from locked rows.
func feedbackAllowed(order models.DesignOrder, latest *models.Delivery, count int, revision bool) error {
	if latest == nil {
		return ErrNoDelivery
	}
	gate := lifecycle.Evaluate(order, latest, count)
	switch {
	case gate.IsOrderComplete || order.Status.IsTerminal():
		return ErrOrderComplete
	case latest.Status != models.DeliveryStatusPendingReview:
		return fmt.Errorf("%w: latest delivery is %s", ErrConflict, latest.Status)
	case revision && !gate.CanRequestRevision:
		return ErrRevisionLimit
	case !gate.CanApprove:
		return ErrConflict
	}
	return nil
}

// Approve accepts the latest delivery and moves the order to approved.
func (s *DesignOrderService) Approve(ctx context.Context, orderID, clientID uuid.UUID) (*OrderView, error) {
	var packageName string

	err := s.repo.InTx(ctx, func(tx supabase.Tx) error {
		order, err := tx.LockOrder(ctx, orderID, clientID)
		if err != nil {
			return mapStoreErr(err, ErrOrderNotFound)
		}
		latest, count, err := tx.LatestDelivery(ctx, orderID)
		if err != nil {
			return err
		}
		if err := feedbackAllowed(*order, latest, count, false); err != nil {
			return err
		}

		next, err := lifecycle.Transition(order.Status, models.OrderStatusApproved)
		if err != nil {
			return mapStoreErr(err, ErrOrderNotFound)
		}

		if err := tx.UpdateDeliveryStatus(ctx, latest.ID, models.DeliveryStatusPendingReview, models.DeliveryStatusApproved); err != nil {
			return mapStoreErr(err, ErrOrderNotFound)
		}
		previous := order.Status
		order.Status = next
		if err := tx.UpdateOrder(ctx, order); err != nil {
			return mapStoreErr(err, ErrOrderNotFound)
		}
		if err := tx.InsertFeedback(ctx, &models.FeedbackEvent{
			DeliveryID:   latest.ID,
			UserID:       clientID,
			FeedbackType: models.FeedbackTypeApprove,
		}); err != nil {
			return err
		}
		if err := tx.InsertAudit(ctx, models.AuditEntry{
			UserID:     clientID,
			Action:     AuditActionApproved,
			EntityType: auditEntityDesignOrder,
			EntityID:   orderID,
			Details: map[string]interface{}{
				"delivery_id":     latest.ID.String(),
				"version_number":  latest.VersionNumber,
				"previous_status": string(previous),
			},
		}); err != nil {
			return err
		}

		packageName = order.PackageName
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("design order approved", zap.String("order_id", orderID.String()), zap.String("client_id", clientID.String()))
	s.notifier.DesignOrderApproved(clientID, orderID, packageName)

	return s.GetOrderView(ctx, orderID, clientID)
}

// RequestRevision sends the latest delivery back and spends one revision.
func (s *DesignOrderService) RequestRevision(ctx context.Context, orderID, clientID uuid.UUID, comment string) (*OrderView, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, ErrEmptyComment
	}

	var packageName string

	err := s.repo.InTx(ctx, func(tx supabase.Tx) error {
		order, err := tx.LockOrder(ctx, orderID, clientID)
		if err != nil {
			return mapStoreErr(err, ErrOrderNotFound)
		}
		latest, count, err := tx.LatestDelivery(ctx, orderID)
		if err != nil {
			return err
		}
		if err := feedbackAllowed(*order, latest, count, true); err != nil {
			return err
		}

		next, err := lifecycle.Transition(order.Status, models.OrderStatusRevisionRequested)
		if err != nil {
			return mapStoreErr(err, ErrOrderNotFound)
		}

		if err := tx.UpdateDeliveryStatus(ctx, latest.ID, models.DeliveryStatusPendingReview, models.DeliveryStatusRevisionRequested); err != nil {
			return mapStoreErr(err, ErrOrderNotFound)
		}
		order.Status = next
		order.RevisionsUsed++
		if err := tx.UpdateOrder(ctx, order); err != nil {
			return mapStoreErr(err, ErrOrderNotFound)
		}
		if err := tx.InsertFeedback(ctx, &models.FeedbackEvent{
			DeliveryID:   latest.ID,
			UserID:       clientID,
			FeedbackType: models.FeedbackTypeRevision,
			Comment:      sql.NullString{String: comment, Valid: true},
		}); err != nil {
			return err
		}
		if err := tx.InsertAudit(ctx, models.AuditEntry{
			UserID:     clientID,
			Action:     AuditActionRevisionRequested,
			EntityType: auditEntityDesignOrder,
			EntityID:   orderID,
			Details: map[string]interface{}{
				"delivery_id":    latest.ID.String(),
				"version_number": latest.VersionNumber,
				"revisions_used": order.RevisionsUsed,
			},
		}); err != nil {
			return err
		}

		packageName = order.PackageName
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("design order revision requested", zap.String("order_id", orderID.String()), zap.String("client_id", clientID.String()))
	s.notifier.DesignOrderRevisionRequested(clientID, orderID, packageName, comment)

	return s.GetOrderView(ctx, orderID, clientID)
}

// FileURL returns a short-lived download URL for a file of the client's order.
func (s *DesignOrderService) FileURL(ctx context.Context, orderID, fileID, clientID uuid.UUID) (string, error) {
	if _, err := s.repo.GetDesignOrder(ctx, orderID, clientID); err != nil {
		return "", mapStoreErr(err, ErrOrderNotFound)
	}

	file, err := s.repo.GetDeliveryFile(ctx, orderID, fileID)
	if err != nil {
		return "", mapStoreErr(err, ErrFileNotFound)
	}

	url, err := s.storage.SignedURL(file.FilePath, s.signedURLTTL)
	if err != nil {
		s.logger.Error("signed url failed", zap.String("file_id", fileID.String()), zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return url, nil
}

// CreateDelivery uploads a new version for review. Files are stored first;
// if the transaction then fails they are removed again.
func (s *DesignOrderService) CreateDelivery(ctx context.Context, orderID, adminID uuid.UUID, notes string, uploads []Upload) (*OrderView, error) {
	if len(uploads) == 0 {
		return nil, ErrNoFiles
	}

	current, err := s.GetAdminOrderView(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := deliveryAllowed(current.Order, current.Projection.Latest, len(current.Projection.Deliveries)); err != nil {
		return nil, err
	}

	version := 1
	if latest := current.Projection.Latest; latest != nil {
		version = latest.VersionNumber + 1
	}

	files := make([]models.DeliveryFile, 0, len(uploads))
	paths := make([]string, 0, len(uploads))
	for _, u := range uploads {
		path, err := s.storage.UploadDeliveryFile(orderID, version, u.FileName, u.ContentType, u.Content)
		if err != nil {
			s.cleanup(paths)
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
		paths = append(paths, path)
		files = append(files, models.DeliveryFile{FileName: u.FileName, FileType: u.ContentType, FilePath: path})
	}

	err = s.repo.InTx(ctx, func(tx supabase.Tx) error {
		order, err := tx.LockOrder(ctx, orderID, uuid.Nil)
		if err != nil {
			return mapStoreErr(err, ErrOrderNotFound)
		}
		latest, count, err := tx.LatestDelivery(ctx, orderID)
		if err != nil {
			return err
		}
		if err := deliveryAllowed(*order, latest, count); err != nil {
			return err
		}
		if latest != nil && latest.VersionNumber+1 != version {
			return fmt.Errorf("%w: version %d already taken", ErrConflict, version)
		}

		next, err := lifecycle.Transition(order.Status, models.OrderStatusDelivered)
		if err != nil {
			return mapStoreErr(err, ErrOrderNotFound)
		}

		delivery := &models.Delivery{
			OrderID:       orderID,
			VersionNumber: version,
			Status:        models.DeliveryStatusPendingReview,
			DeliveryNotes: sql.NullString{String: notes, Valid: strings.TrimSpace(notes) != ""},
		}
		if err := tx.InsertDelivery(ctx, delivery); err != nil {
			return mapStoreErr(err, ErrOrderNotFound)
		}
		for i := range files {
			files[i].DeliveryID = delivery.ID
			if err := tx.InsertDeliveryFile(ctx, &files[i]); err != nil {
				return err
			}
		}

		order.Status = next
		if err := tx.UpdateOrder(ctx, order); err != nil {
			return mapStoreErr(err, ErrOrderNotFound)
		}
		return tx.InsertAudit(ctx, models.AuditEntry{
			UserID:     adminID,
			Action:     AuditActionDeliveryCreated,
			EntityType: auditEntityDesignOrder,
			EntityID:   orderID,
			Details: map[string]interface{}{
				"delivery_id":    delivery.ID.String(),
				"version_number": version,
				"file_count":     len(files),
			},
		})
	})
	if err != nil {
		s.cleanup(paths)
		return nil, err
	}

	s.logger.Info("delivery created",
		zap.String("order_id", orderID.String()),
		zap.Int("version", version),
		zap.Int("files", len(files)),
	)

	return s.GetAdminOrderView(ctx, orderID)
}

func deliveryAllowed(order models.DesignOrder, latest *models.Delivery, count int) error {
	switch {
	case lifecycle.IsFullyFinalized(count):
		return ErrFullyFinalized
	case latest != nil && latest.Status == models.DeliveryStatusPendingReview:
		return fmt.Errorf("%w: version %d is still pending review", ErrConflict, latest.VersionNumber)
	case !lifecycle.AcceptsDelivery(order.Status):
		return fmt.Errorf("%w: %w: %s -> %s", ErrConflict, lifecycle.ErrInvalidTransition, order.Status, models.OrderStatusDelivered)
	}
	return nil
}

func (s *DesignOrderService) cleanup(paths []string) {
	if err := s.storage.DeleteFiles(paths); err != nil {
		s.logger.Warn("failed to remove orphaned delivery files", zap.Strings("paths", paths), zap.Error(err))
	}
}

// settableStatuses are the states an admin may move an order to directly;
// the others are reached through deliveries and client feedback.
var settableStatuses = map[models.OrderStatus]bool{
	models.OrderStatusInProgress: true,
	models.OrderStatusCompleted:  true,
	models.OrderStatusCancelled:  true,
}

func (s *DesignOrderService) UpdateStatus(ctx context.Context, orderID, adminID uuid.UUID, status models.OrderStatus) (*OrderView, error) {
	if !settableStatuses[status] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	err := s.repo.InTx(ctx, func(tx supabase.Tx) error {
		order, err := tx.LockOrder(ctx, orderID, uuid.Nil)
		if err != nil {
			return mapStoreErr(err, ErrOrderNotFound)
		}
		next, err := lifecycle.Transition(order.Status, status)
		if err != nil {
			return mapStoreErr(err, ErrOrderNotFound)
		}
		previous := order.Status
		order.Status = next
		if err := tx.UpdateOrder(ctx, order); err != nil {
			return mapStoreErr(err, ErrOrderNotFound)
		}
		return tx.InsertAudit(ctx, models.AuditEntry{
			UserID:     adminID,
			Action:     AuditActionStatusChanged,
			EntityType: auditEntityDesignOrder,
			EntityID:   orderID,
			Details: map[string]interface{}{
				"from": string(previous),
				"to":   string(next),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	return s.GetAdminOrderView(ctx, orderID)
}

// IsClientError reports whether err is a known lifecycle rejection rather
// than an infrastructure failure.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrOrderNotFound, ErrNoDelivery, ErrConflict, ErrOrderComplete, ErrRevisionLimit,
		ErrEmptyComment, ErrFullyFinalized, ErrFileNotFound, ErrNoFiles, ErrInvalidStatus,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
