package handler

import (
	"time"

	"coop-payments/internal/adapter/http/dto"
	"coop-payments/internal/adapter/http/middleware"
	"coop-payments/internal/core/ports"
	"coop-payments/pkg/apperror"
	"coop-payments/pkg/response"

	"github.com/gin-gonic/gin"
)

// UsageHandler receives usage reports from the settlement collaborator.
type UsageHandler struct {
	bindingSvc ports.BindingService
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(bindingSvc ports.BindingService) *UsageHandler {
	return &UsageHandler{bindingSvc: bindingSvc}
}

// Increment handles POST /internal/v1/cooperatives/:cooperativeId/usage.
func (h *UsageHandler) Increment(c *gin.Context) {
	var req dto.UsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	at := time.Now().UTC()
	if req.OccurredAt != nil {
		at = req.OccurredAt.UTC()
	}

	if err := h.bindingSvc.IncrementUsage(c.Request.Context(), c.Param(middleware.CooperativeParam), *req.Amount, at); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
