package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"agency-portal-backend/internal/models"
	"agency-portal-backend/internal/services"
)

// multipartMemory is how much of a form is buffered in memory before parts
// spill to temporary files.
const multipartMemory = 32 << 20

type AdminService interface {
	GetAdminOrderView(ctx context.Context, orderID uuid.UUID) (*services.OrderView, error)
	CreateDelivery(ctx context.Context, orderID, adminID uuid.UUID, notes string, uploads []services.Upload) (*services.OrderView, error)
	UpdateStatus(ctx context.Context, orderID, adminID uuid.UUID, status models.OrderStatus) (*services.OrderView, error)
}

type AdminHandler struct {
	service        AdminService
	maxUploadBytes int64
}

// NewAdminHandler rejects delivery uploads whose body exceeds maxUploadBytes.
func NewAdminHandler(service AdminService, maxUploadBytes int64) *AdminHandler {
	return &AdminHandler{service: service, maxUploadBytes: maxUploadBytes}
}

// GetOrder godoc
// @Summary     Get any design order
// @Description Admin view of an order with its deliveries and projection
// @Tags        admin
// @Produce     json
// @Security    Bearer
// @Param       order_id path string true "Order ID"
// @Success     200 {object} models.OrderViewResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /admin/design-orders/{order_id} [get]
func (h *AdminHandler) GetOrder(c *gin.Context) {
	orderID, ok := pathID(c, "order_id")
	if !ok {
		return
	}

	view, err := h.service.GetAdminOrderView(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err, msgLoadFailed)
		return
	}
	c.JSON(http.StatusOK, toOrderViewResponse(view))
}

// CreateDelivery godoc
// @Summary     Upload a delivery
// @Description Uploads the next version of the order for client review
// @Tags        admin
// @Accept      multipart/form-data
// @Produce     json
// @Security    Bearer
// @Param       order_id path string true "Order ID"
// @Param       files formData file true "Delivery files (repeat the field for several)"
// @Param       notes formData string false "Notes shown to the client"
// @Success     201 {object} models.OrderViewResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Failure     413 {object} models.ErrorResponse
// @Failure     502 {object} models.ErrorResponse
// @Router      /admin/design-orders/{order_id}/deliveries [post]
func (h *AdminHandler) CreateDelivery(c *gin.Context) {
	adminID, ok := userID(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "order_id")
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
				Error:   "Arquivos excedem o tamanho máximo permitido",
				Message: err.Error(),
			})
			return
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "failed to parse multipart form",
			Message: err.Error(),
		})
		return
	}
	headers := c.Request.MultipartForm.File["files"]

	uploads := make([]services.Upload, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	for _, fh := range headers {
		src, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "failed to open file",
				Message: fh.Filename,
			})
			return
		}
		opened = append(opened, src)

		contentType := fh.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		uploads = append(uploads, services.Upload{
			FileName:    fh.Filename,
			ContentType: contentType,
			Content:     src,
		})
	}

	view, err := h.service.CreateDelivery(c.Request.Context(), orderID, adminID, c.PostForm("notes"), uploads)
	if err != nil {
		respondError(c, err, msgDeliveryFail)
		return
	}
	c.JSON(http.StatusCreated, toOrderViewResponse(view))
}

// UpdateStatus godoc
// @Summary     Change order status
// @Description Moves the order to in_progress, completed or cancelled when the transition is allowed
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       order_id path string true "Order ID"
// @Param       request body models.UpdateStatusRequest true "Target status"
// @Success     200 {object} models.OrderViewResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /admin/design-orders/{order_id}/status [patch]
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	adminID, ok := userID(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "order_id")
	if !ok {
		return
	}

	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}
	status, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid status", Message: err.Error()})
		return
	}

	view, err := h.service.UpdateStatus(c.Request.Context(), orderID, adminID, status)
	if err != nil {
		respondError(c, err, msgStatusFailed)
		return
	}
	c.JSON(http.StatusOK, toOrderViewResponse(view))
}
