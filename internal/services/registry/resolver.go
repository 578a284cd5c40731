// Package registry validates the (tenant, instance, source) triple against
// the auth control plane's canonical mapping: a static local resolver, a
// memoizing cache wrapper, and the scope-validation policy shared by the plan
// and job services.
package registry

import (
	"context"
	"fmt"

	"github.com/rezilient/restore-request-service/internal/common"
	"github.com/rezilient/restore-request-service/internal/interfaces"
	"github.com/rezilient/restore-request-service/internal/models"
)

// LocalResolver serves source mappings from a static map. Used in development
// and single-tenant deployments where no external ACP runs.
type LocalResolver struct {
	mappings map[string]*models.SourceMapping
}

// NewLocalResolver builds a resolver from the configured static mappings.
// Activation states default to active when unset.
func NewLocalResolver(mappings []common.StaticMapping) *LocalResolver {
	r := &LocalResolver{mappings: make(map[string]*models.SourceMapping, len(mappings))}
	for _, m := range mappings {
		mapping := &models.SourceMapping{
			TenantID:         m.TenantID,
			InstanceID:       m.InstanceID,
			Source:           m.Source,
			TenantState:      defaultActive(m.TenantState),
			EntitlementState: defaultActive(m.EntitlementState),
			InstanceState:    defaultActive(m.InstanceState),
			AllowedServices:  m.AllowedServices,
		}
		if len(mapping.AllowedServices) == 0 {
			mapping.AllowedServices = []string{"rrs"}
		}
		r.mappings[localKey(m.TenantID, m.InstanceID)] = mapping
	}
	return r
}

// ResolveSourceMapping looks up the static mapping for the pair.
func (r *LocalResolver) ResolveSourceMapping(ctx context.Context, req interfaces.SourceMappingRequest) models.SourceMappingResult {
	if err := ctx.Err(); err != nil {
		return models.SourceMappingResult{Kind: models.MappingOutage, Message: err.Error()}
	}

	mapping, ok := r.mappings[localKey(req.TenantID, req.InstanceID)]
	if !ok {
		return models.SourceMappingResult{
			Kind:    models.MappingNotFound,
			Message: fmt.Sprintf("no source mapping for tenant %s instance %s", req.TenantID, req.InstanceID),
		}
	}
	return models.SourceMappingResult{Kind: models.MappingFound, Mapping: mapping}
}

func localKey(tenantID, instanceID string) string {
	return tenantID + "\x00" + instanceID
}

func defaultActive(state string) string {
	if state == "" {
		return models.ActivationActive
	}
	return state
}
