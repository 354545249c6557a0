package models

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the authoritative lifecycle state of a design order.
type OrderStatus string

const (
	OrderStatusPending           OrderStatus = "pending"
	OrderStatusInProgress        OrderStatus = "in_progress"
	OrderStatusDelivered         OrderStatus = "delivered"
	OrderStatusRevisionRequested OrderStatus = "revision_requested"
	OrderStatusApproved          OrderStatus = "approved"
	OrderStatusCompleted         OrderStatus = "completed"
	OrderStatusCancelled         OrderStatus = "cancelled"
)

var orderStatuses = map[OrderStatus]struct{}{
	OrderStatusPending:           {},
	OrderStatusInProgress:        {},
	OrderStatusDelivered:         {},
	OrderStatusRevisionRequested: {},
	OrderStatusApproved:          {},
	OrderStatusCompleted:         {},
	OrderStatusCancelled:         {},
}

// ParseOrderStatus rejects anything outside the closed set of order states.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := orderStatuses[status]; !ok {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return status, nil
}

// IsTerminal reports whether no further transitions leave this state.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

type DeliveryStatus string

const (
	DeliveryStatusPendingReview     DeliveryStatus = "pending_review"
	DeliveryStatusApproved          DeliveryStatus = "approved"
	DeliveryStatusRevisionRequested DeliveryStatus = "revision_requested"
)

func ParseDeliveryStatus(s string) (DeliveryStatus, error) {
	switch DeliveryStatus(s) {
	case DeliveryStatusPendingReview, DeliveryStatusApproved, DeliveryStatusRevisionRequested:
		return DeliveryStatus(s), nil
	}
	return "", fmt.Errorf("unknown delivery status %q", s)
}

type FeedbackType string

const (
	FeedbackTypeApprove  FeedbackType = "approve"
	FeedbackTypeRevision FeedbackType = "revision"
)

func ParseFeedbackType(s string) (FeedbackType, error) {
	switch FeedbackType(s) {
	case FeedbackTypeApprove, FeedbackTypeRevision:
		return FeedbackType(s), nil
	}
	return "", fmt.Errorf("unknown feedback type %q", s)
}

// DesignOrder is a purchased design service joined with its package and category.
type DesignOrder struct {
	ID            uuid.UUID
	ClientID      uuid.UUID
	PackageID     uuid.UUID
	PackageName   string
	CategoryName  sql.NullString
	Status        OrderStatus
	RevisionsUsed int
	MaxRevisions  int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Delivery is one versioned submission of work against an order.
type Delivery struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	VersionNumber int
	Status        DeliveryStatus
	DeliveryNotes sql.NullString
	CreatedAt     time.Time
	Files         []DeliveryFile
}

type DeliveryFile struct {
	ID         uuid.UUID
	DeliveryID uuid.UUID
	FileName   string
	FileType   string
	FilePath   string
	CreatedAt  time.Time
}

// FeedbackEvent is an append-only record of a client decision on a delivery.
type FeedbackEvent struct {
	ID           uuid.UUID
	DeliveryID   uuid.UUID
	UserID       uuid.UUID
	FeedbackType FeedbackType
	Comment      sql.NullString
	CreatedAt    time.Time
}

type AuditEntry struct {
	UserID     uuid.UUID
	Action     string
	EntityType string
	EntityID   uuid.UUID
	Details    map[string]interface{}
}

// ClientProfile mirrors the profiles table as returned by PostgREST.
type ClientProfile struct {
	ID          string  `json:"id"`
	FullName    *string `json:"full_name"`
	CompanyName *string `json:"company_name"`
	Email       *string `json:"email"`
}
