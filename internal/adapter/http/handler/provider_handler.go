package handler

import (
	"coop-payments/internal/adapter/http/dto"
	"coop-payments/internal/core/ports"
	"coop-payments/pkg/apperror"
	"coop-payments/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProviderHandler serves the payment provider catalog.
type ProviderHandler struct {
	catalogSvc ports.ProviderCatalogService
}

// NewProviderHandler creates a new ProviderHandler.
func NewProviderHandler(catalogSvc ports.ProviderCatalogService) *ProviderHandler {
	return &ProviderHandler{catalogSvc: catalogSvc}
}

// List handles GET /api/v1/providers.
func (h *ProviderHandler) List(c *gin.Context) {
	var query dto.ListProvidersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	page, err := h.catalogSvc.List(c.Request.Context(), query.ToParams())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, page.Items, dto.PaginationMeta{
		Page:       page.Page,
		PageSize:   page.PageSize,
		Total:      page.Total,
		TotalPages: page.TotalPages,
	})
}

// Get handles GET /api/v1/providers/:id.
func (h *ProviderHandler) Get(c *gin.Context) {
	id, ok := parseProviderID(c)
	if !ok {
		return
	}

	provider, err := h.catalogSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, provider)
}

// GetByCode handles GET /api/v1/providers/code/:code.
func (h *ProviderHandler) GetByCode(c *gin.Context) {
	provider, err := h.catalogSvc.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, provider)
}

// Create handles POST /api/v1/providers.
func (h *ProviderHandler) Create(c *gin.Context) {
	var req dto.CreateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	provider, err := h.catalogSvc.Create(c.Request.Context(), req.ToDomain())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, provider)
}

// Update handles PATCH /api/v1/providers/:id.
func (h *ProviderHandler) Update(c *gin.Context) {
	id, ok := parseProviderID(c)
	if !ok {
		return
	}

	var req dto.UpdateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	provider, err := h.catalogSvc.Update(c.Request.Context(), id, req.ToPatch())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, provider)
}

// Delete handles DELETE /api/v1/providers/:id.
func (h *ProviderHandler) Delete(c *gin.Context) {
	id, ok := parseProviderID(c)
	if !ok {
		return
	}

	if err := h.catalogSvc.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func parseProviderID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid provider id"))
		return uuid.Nil, false
	}
	return id, true
}
