package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"promotracker-backend/internal/domains/promotion/model"
	"promotracker-backend/internal/domains/promotion/service"
	"promotracker-backend/internal/shared/response"
	"promotracker-backend/pkg/logger"
)

// PromotionHandler exposes the promotion aggregate lifecycle over HTTP.
type PromotionHandler struct {
	service service.PromotionService
}

func NewPromotionHandler(service service.PromotionService) *PromotionHandler {
	return &PromotionHandler{service: service}
}

// CreatePromotion handles POST /v1/promotions.
func (h *PromotionHandler) CreatePromotion(c *gin.Context) {
	var req model.CreatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidationFailed, "invalid request body", err.Error())
		return
	}

	promotion, err := h.service.CreatePromotion(c.Request.Context(), &req)
	if err != nil {
		handlePromotionError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, promotion)
}

// GetPromotion handles GET /v1/promotions/:id.
func (h *PromotionHandler) GetPromotion(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	promotion, err := h.service.GetPromotion(c.Request.Context(), id)
	if err != nil {
		handlePromotionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, promotion)
}

// ListPromotions handles GET /v1/promotions.
func (h *PromotionHandler) ListPromotions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	items, total, err := h.service.ListPromotions(c.Request.Context(), page, limit)
	if err != nil {
		handlePromotionError(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, items, &response.Meta{
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

// DeletePromotion handles DELETE /v1/promotions/:id.
func (h *PromotionHandler) DeletePromotion(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeletePromotion(c.Request.Context(), id); err != nil {
		handlePromotionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": id})
}

// ActivatePromotion handles POST /v1/promotions/:id/activate.
func (h *PromotionHandler) ActivatePromotion(c *gin.Context) {
	h.promotionTransition(c, h.service.ActivatePromotion)
}

// CompletePromotion handles POST /v1/promotions/:id/complete.
func (h *PromotionHandler) CompletePromotion(c *gin.Context) {
	h.promotionTransition(c, h.service.CompletePromotion)
}

// ExpirePromotion handles POST /v1/promotions/:id/expire.
func (h *PromotionHandler) ExpirePromotion(c *gin.Context) {
	h.promotionTransition(c, h.service.ExpirePromotion)
}

// ActivatePhase handles POST /v1/promotions/:id/phases/:phaseId/activate.
func (h *PromotionHandler) ActivatePhase(c *gin.Context) {
	h.phaseTransition(c, h.service.ActivatePhase)
}

// CompletePhase handles POST /v1/promotions/:id/phases/:phaseId/complete.
func (h *PromotionHandler) CompletePhase(c *gin.Context) {
	h.phaseTransition(c, h.service.CompletePhase)
}

// ExpirePhase handles POST /v1/promotions/:id/phases/:phaseId/expire.
func (h *PromotionHandler) ExpirePhase(c *gin.Context) {
	h.phaseTransition(c, h.service.ExpirePhase)
}

// AdvanceReward handles POST /v1/promotions/:id/rewards/:rewardId/advance.
func (h *PromotionHandler) AdvanceReward(c *gin.Context) {
	h.rewardTransition(c, h.service.AdvanceReward)
}

// ExpireReward handles POST /v1/promotions/:id/rewards/:rewardId/expire.
func (h *PromotionHandler) ExpireReward(c *gin.Context) {
	h.rewardTransition(c, h.service.ExpireReward)
}

// RecalculateTimeframes handles POST /v1/promotions/:id/recalculate-timeframes.
func (h *PromotionHandler) RecalculateTimeframes(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.RecalculatePromotionTimeframes(c.Request.Context(), id); err != nil {
		handlePromotionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"recalculated": id})
}

func (h *PromotionHandler) promotionTransition(c *gin.Context, op func(ctx context.Context, id uuid.UUID) (*model.Promotion, error)) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	promotion, err := op(c.Request.Context(), id)
	if err != nil {
		handlePromotionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, promotion)
}

func (h *PromotionHandler) phaseTransition(c *gin.Context, op func(ctx context.Context, promotionID, phaseID uuid.UUID) (*model.Promotion, error)) {
	promotionID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	phaseID, ok := parseIDParam(c, "phaseId")
	if !ok {
		return
	}

	promotion, err := op(c.Request.Context(), promotionID, phaseID)
	if err != nil {
		handlePromotionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, promotion)
}

func (h *PromotionHandler) rewardTransition(c *gin.Context, op func(ctx context.Context, promotionID, rewardID uuid.UUID) (*model.Promotion, error)) {
	promotionID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	rewardID, ok := parseIDParam(c, "rewardId")
	if !ok {
		return
	}

	promotion, err := op(c.Request.Context(), promotionID, rewardID)
	if err != nil {
		handlePromotionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, promotion)
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidationFailed, "invalid "+name, err.Error())
		return uuid.Nil, false
	}
	return id, true
}

// handlePromotionError maps service errors onto the response envelope.
func handlePromotionError(c *gin.Context, err error) {
	var validationErrs validation.Errors
	switch {
	case errors.As(err, &validationErrs):
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidationFailed, "validation failed", validationErrs)

	case errors.Is(err, model.ErrConditionNotFound):
		response.ErrorResponse(c, http.StatusNotFound, response.CodeConditionNotFound, err.Error())

	case errors.Is(err, model.ErrPromotionNotFound),
		errors.Is(err, model.ErrPhaseNotFound),
		errors.Is(err, model.ErrRewardNotFound):
		response.ErrorResponse(c, http.StatusNotFound, response.CodePromotionNotFound, err.Error())

	case errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrNotDepositCondition):
		response.ErrorResponse(c, http.StatusConflict, response.CodeInvalidState, err.Error())

	case errors.Is(err, model.ErrUnknownVariant):
		// Data integrity problem, never silently defaulted.
		logger.Error("malformed variant in stored promotion data", err)
		response.ErrorResponse(c, http.StatusInternalServerError, response.CodeMalformedVariant, err.Error())

	case isModelInvariantError(err):
		response.ErrorResponse(c, http.StatusBadRequest, response.CodeValidationFailed, err.Error())

	default:
		logger.Error("promotion operation failed", err)
		response.ErrorResponse(c, http.StatusInternalServerError, response.CodeInternalError, "internal server error")
	}
}

func isModelInvariantError(err error) bool {
	for _, target := range []error{
		model.ErrMissingName,
		model.ErrPromotionNoPhases,
		model.ErrSinglePromotionPhaseCount,
		model.ErrPromotionTimeframeNotAbsolute,
		model.ErrMultipleContributingConditions,
		model.ErrNoContributingCondition,
		model.ErrRewardMissingUsageConditions,
		model.ErrConditionMissingSpec,
		model.ErrConditionSpecMismatch,
		model.ErrConditionInvalidAmount,
		model.ErrConditionInvalidPercentage,
		model.ErrConditionInvalidOdds,
		model.ErrTimeframeMissingStart,
		model.ErrTimeframeEndBeforeStart,
		model.ErrTimeframeMissingAnchor,
		model.ErrTimeframeUnexpectedAnchor,
		model.ErrTimeframeInvalidOffset,
		model.ErrInvalidDepositAmount,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
