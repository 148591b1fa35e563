package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"promotracker-backend/internal/domains/account/model"
	"promotracker-backend/internal/domains/account/service"
	"promotracker-backend/internal/shared/response"
	"promotracker-backend/pkg/logger"
)

// AccountHandler exposes bookmaker-account management.
type AccountHandler struct {
	service service.AccountService
}

func NewAccountHandler(service service.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// CreateAccount handles POST /v1/accounts.
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	userID, ok := userIDFromHeader(c)
	if !ok {
		return
	}

	var req model.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidationFailed, "invalid request body", err.Error())
		return
	}

	account, err := h.service.CreateAccount(c.Request.Context(), userID, req)
	if err != nil {
		handleAccountError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, account)
}

// GetAccount handles GET /v1/accounts/:bookmakerId.
func (h *AccountHandler) GetAccount(c *gin.Context) {
	userID, ok := userIDFromHeader(c)
	if !ok {
		return
	}
	bookmakerID, err := uuid.Parse(c.Param("bookmakerId"))
	if err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, response.CodeValidationFailed, "invalid bookmaker id")
		return
	}

	account, err := h.service.GetAccount(c.Request.Context(), userID, bookmakerID)
	if err != nil {
		handleAccountError(c, err)
		return
	}
	response.Success(c, http.StatusOK, account)
}

// ListAccounts handles GET /v1/accounts.
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	userID, ok := userIDFromHeader(c)
	if !ok {
		return
	}

	accounts, err := h.service.ListAccounts(c.Request.Context(), userID)
	if err != nil {
		handleAccountError(c, err)
		return
	}
	response.Success(c, http.StatusOK, accounts)
}

func userIDFromHeader(c *gin.Context) (uuid.UUID, bool) {
	userID, err := uuid.Parse(c.GetHeader("X-User-ID"))
	if err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, response.CodeValidationFailed, "missing or invalid X-User-ID header")
		return uuid.Nil, false
	}
	return userID, true
}

func handleAccountError(c *gin.Context, err error) {
	var validationErrs validation.Errors
	switch {
	case errors.As(err, &validationErrs):
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidationFailed, "validation failed", validationErrs)
	case errors.Is(err, model.ErrAccountNotFound):
		response.ErrorResponse(c, http.StatusNotFound, response.CodeAccountNotFound, err.Error())
	case errors.Is(err, model.ErrAccountAlreadyExists):
		response.ErrorResponse(c, http.StatusConflict, response.CodeAccountAlreadyExists, err.Error())
	default:
		logger.Error("account operation failed", err)
		response.ErrorResponse(c, http.StatusInternalServerError, response.CodeInternalError, "internal server error")
	}
}
