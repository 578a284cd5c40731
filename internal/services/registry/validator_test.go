package registry

import (
	"context"
	"net/http"
	"testing"

	"github.com/rezilient/restore-request-service/internal/common"
	"github.com/rezilient/restore-request-service/internal/interfaces"
	"github.com/rezilient/restore-request-service/internal/models"
)

func validatorScope() models.SourceScope {
	return models.SourceScope{TenantID: "acme", InstanceID: "dev", Source: "sn://acme-dev"}
}

func newLocalValidator(mappings ...common.StaticMapping) *Validator {
	if len(mappings) == 0 {
		mappings = []common.StaticMapping{{
			TenantID: "acme", InstanceID: "dev", Source: "sn://acme-dev",
			AllowedServices: []string{"rrs"},
		}}
	}
	return NewValidator(NewLocalResolver(mappings), "rrs", common.NewSilentLogger())
}

func requireReason(t *testing.T, err error, status int, reason models.ReasonCode) {
	t.Helper()
	if err == nil {
		t.Fatal("expected a scope validation error")
	}
	reqErr := models.AsRequestError(err)
	if reqErr.Status != status || reqErr.ReasonCode != reason {
		t.Fatalf("expected %d/%s, got %d/%s", status, reason, reqErr.Status, reqErr.ReasonCode)
	}
}

func TestValidateScopeAccepts(t *testing.T) {
	v := newLocalValidator()
	if err := v.ValidateScope(context.Background(), validatorScope(), validatorScope()); err != nil {
		t.Fatalf("expected valid scope, got %v", err)
	}
}

func TestValidateScopeClaimsMismatch(t *testing.T) {
	v := newLocalValidator()
	claims := models.SourceScope{TenantID: "intruder", InstanceID: "dev", Source: "sn://acme-dev"}
	err := v.ValidateScope(context.Background(), claims, validatorScope())
	requireReason(t, err, http.StatusForbidden, models.ReasonBlockedUnknownSourceMapping)
}

func TestValidateScopeUnknownMapping(t *testing.T) {
	v := newLocalValidator()
	scope := models.SourceScope{TenantID: "ghost", InstanceID: "dev", Source: "sn://ghost-dev"}
	err := v.ValidateScope(context.Background(), scope, scope)
	requireReason(t, err, http.StatusForbidden, models.ReasonBlockedUnknownSourceMapping)
}

func TestValidateScopeCanonicalSourceMismatch(t *testing.T) {
	v := newLocalValidator(common.StaticMapping{
		TenantID: "acme", InstanceID: "dev", Source: "sn://acme-prod",
		AllowedServices: []string{"rrs"},
	})
	err := v.ValidateScope(context.Background(), validatorScope(), validatorScope())
	requireReason(t, err, http.StatusForbidden, models.ReasonBlockedUnknownSourceMapping)
}

func TestValidateScopeServiceNotAllowed(t *testing.T) {
	v := newLocalValidator(common.StaticMapping{
		TenantID: "acme", InstanceID: "dev", Source: "sn://acme-dev",
		AllowedServices: []string{"billing"},
	})
	err := v.ValidateScope(context.Background(), validatorScope(), validatorScope())
	requireReason(t, err, http.StatusForbidden, models.ReasonBlockedUnknownSourceMapping)
}

func TestValidateScopeInactiveStates(t *testing.T) {
	v := newLocalValidator(common.StaticMapping{
		TenantID: "acme", InstanceID: "dev", Source: "sn://acme-dev",
		EntitlementState: models.ActivationDisabled,
		AllowedServices:  []string{"rrs"},
	})
	err := v.ValidateScope(context.Background(), validatorScope(), validatorScope())
	requireReason(t, err, http.StatusForbidden, models.ReasonBlockedUnknownSourceMapping)
}

type stubOutageResolver struct{}

func (stubOutageResolver) ResolveSourceMapping(context.Context, interfaces.SourceMappingRequest) models.SourceMappingResult {
	return models.SourceMappingResult{Kind: models.MappingOutage, Message: "ACP unreachable"}
}

func TestValidateScopeOutage(t *testing.T) {
	v := NewValidator(stubOutageResolver{}, "rrs", common.NewSilentLogger())
	err := v.ValidateScope(context.Background(), validatorScope(), validatorScope())
	requireReason(t, err, http.StatusServiceUnavailable, models.ReasonBlockedAuthControlPlaneOutage)
}
