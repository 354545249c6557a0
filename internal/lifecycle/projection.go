// Package lifecycle holds the pure rules of the design-order lifecycle: how an
// order's progress is projected for display and which state changes are legal.
package lifecycle

import (
	"fmt"

	"agency-portal-backend/internal/models"
)

const (
	// StandardDeliveries is the number of regular versions included in a package.
	StandardDeliveries = 3
	// MaxDeliveries is the delivery count at which an order is fully finalized.
	MaxDeliveries = 6
)

// Gate is the subset of the projection needed to authorize client feedback.
type Gate struct {
	IsOrderComplete    bool
	IsFullyFinalized   bool
	CanApprove         bool
	CanRequestRevision bool
	RevisionsRemaining int
}

type DeliveryView struct {
	Delivery models.Delivery
	Label    string
	Badge    string
}

type Projection struct {
	Gate
	// Latest is nil when the order has no deliveries yet.
	Latest     *models.Delivery
	Deliveries []DeliveryView
	ShowUpsell bool
}

func IsOrderComplete(deliveryCount int, status models.OrderStatus) bool {
	return deliveryCount >= StandardDeliveries || status == models.OrderStatusApproved
}

func IsFullyFinalized(deliveryCount int) bool {
	return deliveryCount >= MaxDeliveries
}

// Label is the human name of a delivery version.
func Label(version int) string {
	switch {
	case version >= 6:
		return "Finalizado"
	case version == 5:
		return "Bônus Extra"
	case version == 4:
		return "Bônus - Entrega Final"
	default:
		return fmt.Sprintf("Versão %d", version)
	}
}

// Badge returns the highlight shown next to a delivery, or "" for none.
// Bonus versions always carry one; a regular version only does when it is the
// latest delivery of a complete order.
func Badge(version int, isLatest, orderComplete bool) string {
	switch {
	case version >= 6:
		return "Entrega Final"
	case version == 5:
		return "Bônus"
	case version == 4:
		return "Bônus Final"
	case isLatest && orderComplete:
		return "Versão Final"
	default:
		return ""
	}
}

// Evaluate computes the gate from the order, its latest delivery and the
// delivery count. latest may be nil.
func Evaluate(order models.DesignOrder, latest *models.Delivery, deliveryCount int) Gate {
	g := Gate{
		IsOrderComplete:    IsOrderComplete(deliveryCount, order.Status),
		IsFullyFinalized:   IsFullyFinalized(deliveryCount),
		RevisionsRemaining: max(0, order.MaxRevisions-order.RevisionsUsed),
	}

	if latest == nil {
		return g
	}

	g.CanApprove = latest.Status == models.DeliveryStatusPendingReview &&
		!g.IsOrderComplete &&
		!order.Status.IsTerminal()
	g.CanRequestRevision = g.CanApprove && order.RevisionsUsed < order.MaxRevisions

	return g
}

// Project derives the full display state for an order. Deliveries keep their
// input order; the latest is the one with the highest version number.
func Project(order models.DesignOrder, deliveries []models.Delivery) Projection {
	var latest *models.Delivery
	for i := range deliveries {
		if latest == nil || deliveries[i].VersionNumber > latest.VersionNumber {
			latest = &deliveries[i]
		}
	}

	gate := Evaluate(order, latest, len(deliveries))

	views := make([]DeliveryView, len(deliveries))
	for i, d := range deliveries {
		isLatest := latest != nil && d.ID == latest.ID
		views[i] = DeliveryView{
			Delivery: d,
			Label:    Label(d.VersionNumber),
			Badge:    Badge(d.VersionNumber, isLatest, gate.IsOrderComplete),
		}
	}

	return Projection{
		Gate:       gate,
		Latest:     latest,
		Deliveries: views,
		ShowUpsell: gate.IsOrderComplete,
	}
}
