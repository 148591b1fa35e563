package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	accountmodel "promotracker-backend/internal/domains/account/model"
	"promotracker-backend/internal/domains/promotion/model"
	"promotracker-backend/internal/domains/promotion/service"
	"promotracker-backend/internal/shared/response"
)

// QualificationHandler exposes the deposit qualification engine.
type QualificationHandler struct {
	service service.QualificationService
}

func NewQualificationHandler(service service.QualificationService) *QualificationHandler {
	return &QualificationHandler{service: service}
}

// FulfillDeposit handles POST /v1/qualify-conditions/:id/deposits.
func (h *QualificationHandler) FulfillDeposit(c *gin.Context) {
	userID, ok := userIDFromHeader(c)
	if !ok {
		return
	}
	conditionID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req model.FulfillDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidationFailed, "invalid request body", err.Error())
		return
	}

	result, err := h.service.FulfillDepositCondition(c.Request.Context(), userID, conditionID, &req)
	if err != nil {
		if errors.Is(err, accountmodel.ErrAccountNotFound) {
			// Precondition failure: the deposit cannot be credited
			// without a bookmaker account.
			response.ErrorResponse(c, http.StatusUnprocessableEntity, response.CodeAccountNotFound, err.Error())
			return
		}
		handlePromotionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// userIDFromHeader reads the authenticated user id injected by the edge
// proxy. There is no auth layer in this service itself.
func userIDFromHeader(c *gin.Context) (uuid.UUID, bool) {
	userID, err := uuid.Parse(c.GetHeader("X-User-ID"))
	if err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, response.CodeValidationFailed, "missing or invalid X-User-ID header")
		return uuid.Nil, false
	}
	return userID, true
}
