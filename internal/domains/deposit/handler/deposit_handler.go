package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	accountmodel "promotracker-backend/internal/domains/account/model"
	"promotracker-backend/internal/domains/deposit/model"
	"promotracker-backend/internal/domains/deposit/service"
	promotionservice "promotracker-backend/internal/domains/promotion/service"
	"promotracker-backend/internal/shared/response"
	"promotracker-backend/pkg/logger"
)

// DepositHandler exposes deposit history and the independent-deposit path.
type DepositHandler struct {
	deposits      service.DepositService
	qualification promotionservice.QualificationService
}

func NewDepositHandler(deposits service.DepositService, qualification promotionservice.QualificationService) *DepositHandler {
	return &DepositHandler{deposits: deposits, qualification: qualification}
}

// RecordDeposit handles POST /v1/deposits: a deposit not tied to any
// promotion. Credits the account, no cascade.
func (h *DepositHandler) RecordDeposit(c *gin.Context) {
	userID, ok := userIDFromHeader(c)
	if !ok {
		return
	}

	var req model.IndependentDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidationFailed, "invalid request body", err.Error())
		return
	}

	deposit, err := h.qualification.RecordIndependentDeposit(c.Request.Context(), userID, &req)
	if err != nil {
		handleDepositError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, deposit)
}

// ListDeposits handles GET /v1/deposits.
func (h *DepositHandler) ListDeposits(c *gin.Context) {
	userID, ok := userIDFromHeader(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	deposits, err := h.deposits.ListUserDeposits(c.Request.Context(), userID, page, limit)
	if err != nil {
		handleDepositError(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, deposits, &response.Meta{Page: page, Limit: limit})
}

// GetDeposit handles GET /v1/deposits/:id.
func (h *DepositHandler) GetDeposit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, response.CodeValidationFailed, "invalid deposit id")
		return
	}

	deposit, err := h.deposits.GetDeposit(c.Request.Context(), id)
	if err != nil {
		handleDepositError(c, err)
		return
	}
	response.Success(c, http.StatusOK, deposit)
}

func userIDFromHeader(c *gin.Context) (uuid.UUID, bool) {
	userID, err := uuid.Parse(c.GetHeader("X-User-ID"))
	if err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, response.CodeValidationFailed, "missing or invalid X-User-ID header")
		return uuid.Nil, false
	}
	return userID, true
}

func handleDepositError(c *gin.Context, err error) {
	var validationErrs validation.Errors
	switch {
	case errors.As(err, &validationErrs):
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidationFailed, "validation failed", validationErrs)
	case errors.Is(err, model.ErrDepositNotFound):
		response.ErrorResponse(c, http.StatusNotFound, response.CodeDepositNotFound, err.Error())
	case errors.Is(err, accountmodel.ErrAccountNotFound):
		response.ErrorResponse(c, http.StatusUnprocessableEntity, response.CodeAccountNotFound, err.Error())
	default:
		logger.Error("deposit operation failed", err)
		response.ErrorResponse(c, http.StatusInternalServerError, response.CodeInternalError, "internal server error")
	}
}
