package models

import "time"

type DesignOrderResponse struct {
	ID            string    `json:"order_id"`
	PackageID     string    `json:"package_id"`
	PackageName   string    `json:"package_name"`
	CategoryName  string    `json:"category_name,omitempty"`
	Status        string    `json:"status"`
	RevisionsUsed int       `json:"revisions_used"`
	MaxRevisions  int       `json:"max_revisions"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type DesignOrderListResponse struct {
	Orders []DesignOrderResponse `json:"orders"`
}

type DeliveryResponse struct {
	ID            string         `json:"id"`
	VersionNumber int            `json:"version_number"`
	Label         string         `json:"label"`
	Badge         string         `json:"badge,omitempty"`
	Status        string         `json:"status"`
	DeliveryNotes string         `json:"delivery_notes,omitempty"`
	Files         []FileResponse `json:"files"`
	CreatedAt     time.Time      `json:"created_at"`
}

type FileResponse struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
}

type ProjectionResponse struct {
	IsOrderComplete    bool `json:"is_order_complete"`
	IsFullyFinalized   bool `json:"is_fully_finalized"`
	CanApprove         bool `json:"can_approve"`
	CanRequestRevision bool `json:"can_request_revision"`
	RevisionsRemaining int  `json:"revisions_remaining"`
	ShowUpsell         bool `json:"show_upsell"`
}

// OrderViewResponse is everything the order page renders in one payload.
type OrderViewResponse struct {
	Order      DesignOrderResponse `json:"order"`
	Deliveries []DeliveryResponse  `json:"deliveries"`
	Projection ProjectionResponse  `json:"projection"`
	EmptyState string              `json:"empty_state,omitempty"`
}

type FeedbackResponse struct {
	ID           string    `json:"id"`
	DeliveryID   string    `json:"delivery_id"`
	FeedbackType string    `json:"feedback_type"`
	Comment      string    `json:"comment,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type FeedbackListResponse struct {
	Feedback []FeedbackResponse `json:"feedback"`
}

type SignedURLResponse struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
