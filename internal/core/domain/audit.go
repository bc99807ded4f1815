package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionProviderCreate   AuditAction = "PROVIDER_CREATE"
	AuditActionProviderUpdate   AuditAction = "PROVIDER_UPDATE"
	AuditActionProviderDelete   AuditAction = "PROVIDER_DELETE"
	AuditActionBindingConfigure AuditAction = "BINDING_CONFIGURE"
	AuditActionBindingUpdate    AuditAction = "BINDING_UPDATE"
	AuditActionBindingDisable   AuditAction = "BINDING_DISABLE"
	AuditActionBindingVerify    AuditAction = "BINDING_VERIFY"
	AuditActionUsageIncrement   AuditAction = "USAGE_INCREMENT"
)

// AuditLog records a single audited action. Details never carry secrets.
type AuditLog struct {
	ID            uuid.UUID   `json:"id"`
	ActorID       string      `json:"actor_id"`
	CooperativeID *string     `json:"cooperative_id,omitempty"`
	Action        AuditAction `json:"action"`
	ResourceType  string      `json:"resource_type"`
	ResourceID    string      `json:"resource_id,omitempty"`
	Details       string      `json:"details,omitempty"` // JSON string
	IPAddress     string      `json:"ip_address"`
	CreatedAt     time.Time   `json:"created_at"`
}
