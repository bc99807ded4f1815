package handler

import (
	"coop-payments/internal/adapter/http/dto"
	"coop-payments/internal/adapter/http/middleware"
	"coop-payments/internal/core/domain"
	"coop-payments/internal/core/ports"
	"coop-payments/pkg/apperror"
	"coop-payments/pkg/response"

	"github.com/gin-gonic/gin"
)

// BindingHandler serves a cooperative's payment provider configuration.
// Routes are mounted behind JWTAuth and CooperativeScope.
type BindingHandler struct {
	bindingSvc ports.BindingService
	probe      ports.ConnectivityProbe
	statsSvc   ports.StatisticsService
}

// NewBindingHandler creates a new BindingHandler.
func NewBindingHandler(bindingSvc ports.BindingService, probe ports.ConnectivityProbe, statsSvc ports.StatisticsService) *BindingHandler {
	return &BindingHandler{
		bindingSvc: bindingSvc,
		probe:      probe,
		statsSvc:   statsSvc,
	}
}

// Describe handles GET /api/v1/cooperatives/:cooperativeId/payment-provider.
func (h *BindingHandler) Describe(c *gin.Context) {
	view, err := h.bindingSvc.Describe(c.Request.Context(), c.Param(middleware.CooperativeParam))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// Configure handles POST /api/v1/cooperatives/:cooperativeId/payment-provider.
func (h *BindingHandler) Configure(c *gin.Context) {
	var req dto.ConfigureBindingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	view, err := h.bindingSvc.Configure(c.Request.Context(), c.Param(middleware.CooperativeParam), req.ToSpec())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// Update handles PATCH /api/v1/cooperatives/:cooperativeId/payment-provider.
func (h *BindingHandler) Update(c *gin.Context) {
	var req dto.UpdateBindingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	view, err := h.bindingSvc.Update(c.Request.Context(), c.Param(middleware.CooperativeParam), req.ToPatch())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// Disable handles DELETE /api/v1/cooperatives/:cooperativeId/payment-provider.
func (h *BindingHandler) Disable(c *gin.Context) {
	if err := h.bindingSvc.Disable(c.Request.Context(), c.Param(middleware.CooperativeParam)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Verify handles POST /api/v1/cooperatives/:cooperativeId/payment-provider/verify.
// A failed probe is a 200 with connected=false.
func (h *BindingHandler) Verify(c *gin.Context) {
	result, err := h.probe.Verify(c.Request.Context(), c.Param(middleware.CooperativeParam))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Statistics handles GET /api/v1/cooperatives/:cooperativeId/payment-provider/statistics.
func (h *BindingHandler) Statistics(c *gin.Context) {
	filter := domain.StatisticsFilter{Period: domain.StatisticsPeriod(c.Query("period"))}

	stats, err := h.statsSvc.Summarize(c.Request.Context(), c.Param(middleware.CooperativeParam), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}
