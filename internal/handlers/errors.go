package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"agency-portal-backend/internal/middleware"
	"agency-portal-backend/internal/models"
	"agency-portal-backend/internal/services"
)

const (
	msgOrderNotFound = "pedido não encontrado"
	msgFileNotFound  = "arquivo não encontrado"
	msgApproveFailed = "Erro ao aprovar pedido"
	msgRevisionFail  = "Erro ao solicitar revisão"
	msgDownloadFail  = "Erro ao baixar arquivo"
	msgLoadFailed    = "Erro ao carregar pedido"
	msgDeliveryFail  = "Erro ao criar entrega"
	msgStatusFailed  = "Erro ao atualizar status"
)

var errorStatus = []struct {
	err     error
	status  int
	message string
}{
	{services.ErrOrderNotFound, http.StatusNotFound, msgOrderNotFound},
	{services.ErrFileNotFound, http.StatusNotFound, msgFileNotFound},
	{services.ErrEmptyComment, http.StatusBadRequest, "Descreva o que deve ser alterado"},
	{services.ErrNoFiles, http.StatusBadRequest, "Envie pelo menos um arquivo"},
	{services.ErrInvalidStatus, http.StatusBadRequest, "Este status não pode ser definido manualmente"},
	{services.ErrRevisionLimit, http.StatusConflict, "Limite de revisões atingido"},
	{services.ErrOrderComplete, http.StatusConflict, "Pedido já concluído"},
	{services.ErrNoDelivery, http.StatusConflict, "Pedido ainda não possui entregas"},
	{services.ErrFullyFinalized, http.StatusConflict, "Pedido atingiu o limite de entregas"},
	{services.ErrConflict, http.StatusConflict, "Pedido foi alterado, recarregue a página"},
}

// respondError maps service errors to a status code. Known rejections answer
// with their own message only; fallback covers everything else.
func respondError(c *gin.Context, err error, fallback string) {
	_ = c.Error(err)

	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			c.JSON(e.status, models.ErrorResponse{Error: e.message})
			return
		}
	}

	status := http.StatusInternalServerError
	if errors.Is(err, services.ErrStorage) {
		status = http.StatusBadGateway
	}
	c.JSON(status, models.ErrorResponse{Error: fallback})
}

// userID reads the authenticated subject set by AuthMiddleware.
func userID(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw.(string))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid user id"})
		return uuid.Nil, false
	}
	return id, true
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}
