package registry

import (
	"context"
	"net/http"

	"github.com/rezilient/restore-request-service/internal/common"
	"github.com/rezilient/restore-request-service/internal/interfaces"
	"github.com/rezilient/restore-request-service/internal/models"
)

// Validator enforces the scope-coupling policy: the authenticated claims, the
// request body triple, and the ACP canonical mapping must all agree, the
// service scope must be allowed, and tenant/entitlement/instance must all be
// active. Never derive one triple from another; always verify.
type Validator struct {
	resolver     interfaces.SourceMappingResolver
	serviceScope string
	logger       *common.Logger
}

// NewValidator builds the shared scope validator.
func NewValidator(resolver interfaces.SourceMappingResolver, serviceScope string, logger *common.Logger) *Validator {
	return &Validator{resolver: resolver, serviceScope: serviceScope, logger: logger}
}

// ValidateScope returns nil when claims and request agree and the ACP mapping
// confirms the triple. Mismatches map to 403 blocked_unknown_source_mapping;
// resolver outages map to 503 blocked_auth_control_plane_outage.
func (v *Validator) ValidateScope(ctx context.Context, claims, requested models.SourceScope) error {
	if !claims.Equal(requested) {
		return models.NewRequestError(http.StatusForbidden, models.ErrCodeScopeBlocked,
			models.ReasonBlockedUnknownSourceMapping,
			"request scope does not match authenticated claims")
	}

	result := v.resolver.ResolveSourceMapping(ctx, interfaces.SourceMappingRequest{
		TenantID:     requested.TenantID,
		InstanceID:   requested.InstanceID,
		ServiceScope: v.serviceScope,
	})

	switch result.Kind {
	case models.MappingOutage:
		v.logger.Warn().
			Str("tenant_id", requested.TenantID).
			Str("instance_id", requested.InstanceID).
			Str("message", result.Message).
			Msg("ACP resolver outage")
		return models.NewRequestError(http.StatusServiceUnavailable, models.ErrCodeUpstreamUnavailable,
			models.ReasonBlockedAuthControlPlaneOutage, result.Message)

	case models.MappingNotFound:
		return models.NewRequestError(http.StatusForbidden, models.ErrCodeScopeBlocked,
			models.ReasonBlockedUnknownSourceMapping,
			"no canonical source mapping for the request scope")
	}

	mapping := result.Mapping
	if mapping.Source != requested.Source ||
		mapping.TenantID != requested.TenantID ||
		mapping.InstanceID != requested.InstanceID {
		return models.NewRequestError(http.StatusForbidden, models.ErrCodeScopeBlocked,
			models.ReasonBlockedUnknownSourceMapping,
			"canonical source mapping does not match the request scope")
	}

	if !mapping.AllowsService(v.serviceScope) {
		return models.NewRequestError(http.StatusForbidden, models.ErrCodeScopeBlocked,
			models.ReasonBlockedUnknownSourceMapping,
			"service scope is not allowed for this source")
	}

	if !mapping.Active() {
		return models.NewRequestError(http.StatusForbidden, models.ErrCodeScopeBlocked,
			models.ReasonBlockedUnknownSourceMapping,
			"tenant, entitlement, or instance is not active")
	}

	return nil
}
