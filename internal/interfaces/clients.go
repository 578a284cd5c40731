package interfaces

import (
	"context"

	"github.com/rezilient/restore-request-service/internal/models"
)

// SourceMappingRequest identifies the mapping to resolve.
type SourceMappingRequest struct {
	TenantID     string `json:"tenant_id"`
	InstanceID   string `json:"instance_id"`
	ServiceScope string `json:"service_scope"`
}

// SourceMappingResolver canonicalizes a (tenant, instance) pair through the
// auth control plane. Implementations return found, not_found, or outage;
// they never return a Go error for upstream failure — outage carries it.
type SourceMappingResolver interface {
	ResolveSourceMapping(ctx context.Context, req SourceMappingRequest) models.SourceMappingResult
}
