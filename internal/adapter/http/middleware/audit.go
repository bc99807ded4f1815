package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"coop-payments/internal/core/domain"
	"coop-payments/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog creates an audit middleware that logs successful write operations.
// It maps route patterns and methods to audit actions. Request bodies are
// never recorded, so secrets cannot reach the audit trail.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			return
		}

		action, resourceType := mapRouteToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		var cooperativeID *string
		if coop := c.Param(CooperativeParam); coop != "" {
			cooperativeID = &coop
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:            uuid.New(),
			ActorID:       c.GetString(CtxActorID),
			CooperativeID: cooperativeID,
			Action:        action,
			ResourceType:  resourceType,
			ResourceID:    c.Param("id"),
			IPAddress:     c.ClientIP(),
			Details:       string(details),
			CreatedAt:     time.Now().UTC(),
		})
	}
}

const (
	providersRoute = "/api/v1/providers"
	providerRoute  = "/api/v1/providers/:id"
	bindingRoute   = "/api/v1/cooperatives/:cooperativeId/payment-provider"
	verifyRoute    = bindingRoute + "/verify"
	usageRoute     = "/internal/v1/cooperatives/:cooperativeId/usage"
)

func mapRouteToAction(route, method string) (domain.AuditAction, string) {
	switch {
	case route == providersRoute && method == http.MethodPost:
		return domain.AuditActionProviderCreate, "provider"
	case route == providerRoute && method == http.MethodPatch:
		return domain.AuditActionProviderUpdate, "provider"
	case route == providerRoute && method == http.MethodDelete:
		return domain.AuditActionProviderDelete, "provider"
	case route == bindingRoute && method == http.MethodPost:
		return domain.AuditActionBindingConfigure, "binding"
	case route == bindingRoute && method == http.MethodPatch:
		return domain.AuditActionBindingUpdate, "binding"
	case route == bindingRoute && method == http.MethodDelete:
		return domain.AuditActionBindingDisable, "binding"
	case route == verifyRoute && method == http.MethodPost:
		return domain.AuditActionBindingVerify, "binding"
	case route == usageRoute && method == http.MethodPost:
		return domain.AuditActionUsageIncrement, "binding"
	}
	return "", ""
}
