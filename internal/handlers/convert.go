package handlers

import (
	"agency-portal-backend/internal/models"
	"agency-portal-backend/internal/services"
)

const emptyDeliveriesMessage = "Nenhuma entrega ainda"

func toOrderResponse(o models.DesignOrder) models.DesignOrderResponse {
	return models.DesignOrderResponse{
		ID:            o.ID.String(),
		PackageID:     o.PackageID.String(),
		PackageName:   o.PackageName,
		CategoryName:  o.CategoryName.String,
		Status:        string(o.Status),
		RevisionsUsed: o.RevisionsUsed,
		MaxRevisions:  o.MaxRevisions,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func toOrderViewResponse(v *services.OrderView) models.OrderViewResponse {
	p := v.Projection
	resp := models.OrderViewResponse{
		Order:      toOrderResponse(v.Order),
		Deliveries: make([]models.DeliveryResponse, 0, len(p.Deliveries)),
		Projection: models.ProjectionResponse{
			IsOrderComplete:    p.IsOrderComplete,
			IsFullyFinalized:   p.IsFullyFinalized,
			CanApprove:         p.CanApprove,
			CanRequestRevision: p.CanRequestRevision,
			RevisionsRemaining: p.RevisionsRemaining,
			ShowUpsell:         p.ShowUpsell,
		},
	}

	for _, view := range p.Deliveries {
		d := view.Delivery
		files := make([]models.FileResponse, 0, len(d.Files))
		for _, f := range d.Files {
			files = append(files, models.FileResponse{
				ID:       f.ID.String(),
				FileName: f.FileName,
				FileType: f.FileType,
			})
		}
		resp.Deliveries = append(resp.Deliveries, models.DeliveryResponse{
			ID:            d.ID.String(),
			VersionNumber: d.VersionNumber,
			Label:         view.Label,
			Badge:         view.Badge,
			Status:        string(d.Status),
			DeliveryNotes: d.DeliveryNotes.String,
			Files:         files,
			CreatedAt:     d.CreatedAt,
		})
	}

	if len(resp.Deliveries) == 0 {
		resp.EmptyState = emptyDeliveriesMessage
	}
	return resp
}

func toFeedbackResponse(f models.FeedbackEvent) models.FeedbackResponse {
	return models.FeedbackResponse{
		ID:           f.ID.String(),
		DeliveryID:   f.DeliveryID.String(),
		FeedbackType: string(f.FeedbackType),
		Comment:      f.Comment.String,
		CreatedAt:    f.CreatedAt,
	}
}
