package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"agency-portal-backend/internal/models"
	"agency-portal-backend/internal/services"
)

type DesignOrderService interface {
	ListOrders(ctx context.Context, clientID uuid.UUID) ([]models.DesignOrder, error)
	GetOrderView(ctx context.Context, orderID, clientID uuid.UUID) (*services.OrderView, error)
	ListFeedback(ctx context.Context, orderID, clientID uuid.UUID) ([]models.FeedbackEvent, error)
	Approve(ctx context.Context, orderID, clientID uuid.UUID) (*services.OrderView, error)
	RequestRevision(ctx context.Context, orderID, clientID uuid.UUID, comment string) (*services.OrderView, error)
	FileURL(ctx context.Context, orderID, fileID, clientID uuid.UUID) (string, error)
	SignedURLTTL() int
}

type DesignOrdersHandler struct {
	service DesignOrderService
}

func NewDesignOrdersHandler(service DesignOrderService) *DesignOrdersHandler {
	return &DesignOrdersHandler{service: service}
}

// ListOrders godoc
// @Summary     List design orders
// @Description Returns the authenticated client's design orders, newest first
// @Tags        design-orders
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.DesignOrderListResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /design-orders [get]
func (h *DesignOrdersHandler) ListOrders(c *gin.Context) {
	clientID, ok := userID(c)
	if !ok {
		return
	}

	orders, err := h.service.ListOrders(c.Request.Context(), clientID)
	if err != nil {
		respondError(c, err, msgLoadFailed)
		return
	}

	resp := models.DesignOrderListResponse{Orders: make([]models.DesignOrderResponse, 0, len(orders))}
	for _, o := range orders {
		resp.Orders = append(resp.Orders, toOrderResponse(o))
	}
	c.JSON(http.StatusOK, resp)
}

// GetOrder godoc
// @Summary     Get a design order
// @Description Returns the order with its deliveries (newest first), labels, badges and the actions available to the client
// @Tags        design-orders
// @Produce     json
// @Security    Bearer
// @Param       order_id path string true "Order ID"
// @Success     200 {object} models.OrderViewResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /design-orders/{order_id} [get]
func (h *DesignOrdersHandler) GetOrder(c *gin.Context) {
	clientID, ok := userID(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "order_id")
	if !ok {
		return
	}

	view, err := h.service.GetOrderView(c.Request.Context(), orderID, clientID)
	if err != nil {
		respondError(c, err, msgLoadFailed)
		return
	}
	c.JSON(http.StatusOK, toOrderViewResponse(view))
}

// ListFeedback godoc
// @Summary     Feedback history
// @Description Returns approvals and revision requests made on the order, newest first
// @Tags        design-orders
// @Produce     json
// @Security    Bearer
// @Param       order_id path string true "Order ID"
// @Success     200 {object} models.FeedbackListResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /design-orders/{order_id}/feedback [get]
func (h *DesignOrdersHandler) ListFeedback(c *gin.Context) {
	clientID, ok := userID(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "order_id")
	if !ok {
		return
	}

	events, err := h.service.ListFeedback(c.Request.Context(), orderID, clientID)
	if err != nil {
		respondError(c, err, msgLoadFailed)
		return
	}

	resp := models.FeedbackListResponse{Feedback: make([]models.FeedbackResponse, 0, len(events))}
	for _, e := range events {
		resp.Feedback = append(resp.Feedback, toFeedbackResponse(e))
	}
	c.JSON(http.StatusOK, resp)
}

// Approve godoc
// @Summary     Approve the latest delivery
// @Description Approves the delivery awaiting review and marks the order approved
// @Tags        design-orders
// @Produce     json
// @Security    Bearer
// @Param       order_id path string true "Order ID"
// @Success     200 {object} models.OrderViewResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /design-orders/{order_id}/approve [post]
func (h *DesignOrdersHandler) Approve(c *gin.Context) {
	clientID, ok := userID(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "order_id")
	if !ok {
		return
	}

	view, err := h.service.Approve(c.Request.Context(), orderID, clientID)
	if err != nil {
		respondError(c, err, msgApproveFailed)
		return
	}
	c.JSON(http.StatusOK, toOrderViewResponse(view))
}

// RequestRevision godoc
// @Summary     Request a revision
// @Description Sends the latest delivery back with a comment and uses one revision
// @Tags        design-orders
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       order_id path string true "Order ID"
// @Param       request body models.RevisionRequest true "What should change"
// @Success     200 {object} models.OrderViewResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /design-orders/{order_id}/revisions [post]
func (h *DesignOrdersHandler) RequestRevision(c *gin.Context) {
	clientID, ok := userID(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "order_id")
	if !ok {
		return
	}

	var req models.RevisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	view, err := h.service.RequestRevision(c.Request.Context(), orderID, clientID, req.Comment)
	if err != nil {
		respondError(c, err, msgRevisionFail)
		return
	}
	c.JSON(http.StatusOK, toOrderViewResponse(view))
}

// FileURL godoc
// @Summary     Download a delivery file
// @Description Returns a short-lived signed URL for a file of one of the order's deliveries
// @Tags        design-orders
// @Produce     json
// @Security    Bearer
// @Param       order_id path string true "Order ID"
// @Param       file_id path string true "File ID"
// @Success     200 {object} models.SignedURLResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     502 {object} models.ErrorResponse
// @Router      /design-orders/{order_id}/files/{file_id}/url [get]
func (h *DesignOrdersHandler) FileURL(c *gin.Context) {
	clientID, ok := userID(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "order_id")
	if !ok {
		return
	}
	fileID, ok := pathID(c, "file_id")
	if !ok {
		return
	}

	url, err := h.service.FileURL(c.Request.Context(), orderID, fileID, clientID)
	if err != nil {
		respondError(c, err, msgDownloadFail)
		return
	}
	c.JSON(http.StatusOK, models.SignedURLResponse{URL: url, ExpiresIn: h.service.SignedURLTTL()})
}
