package models

// ReasonCode is the closed vocabulary attached to every admission, gate, and
// lifecycle outcome. Values round-trip through the wire and the state
// snapshots unchanged.
type ReasonCode string

const (
	ReasonNone            ReasonCode = "none"
	ReasonQueuedScopeLock ReasonCode = "queued_scope_lock"

	ReasonBlockedUnknownSourceMapping      ReasonCode = "blocked_unknown_source_mapping"
	ReasonBlockedMissingCapability         ReasonCode = "blocked_missing_capability"
	ReasonBlockedUnresolvedDeleteCands     ReasonCode = "blocked_unresolved_delete_candidates"
	ReasonBlockedUnresolvedMediaCands      ReasonCode = "blocked_unresolved_media_candidates"
	ReasonBlockedReferenceConflict         ReasonCode = "blocked_reference_conflict"
	ReasonBlockedMediaParentMissing        ReasonCode = "blocked_media_parent_missing"
	ReasonBlockedFreshnessStale            ReasonCode = "blocked_freshness_stale"
	ReasonBlockedFreshnessUnknown          ReasonCode = "blocked_freshness_unknown"
	ReasonBlockedAuthControlPlaneOutage    ReasonCode = "blocked_auth_control_plane_outage"
	ReasonBlockedPlanHashMismatch          ReasonCode = "blocked_plan_hash_mismatch"
	ReasonBlockedEvidenceNotReady          ReasonCode = "blocked_evidence_not_ready"
	ReasonBlockedResumePreconditionMism    ReasonCode = "blocked_resume_precondition_mismatch"
	ReasonBlockedResumeCheckpointMissing   ReasonCode = "blocked_resume_checkpoint_missing"
	ReasonPausedTokenRefreshGraceExhausted ReasonCode = "paused_token_refresh_grace_exhausted"
	ReasonPausedEntitlementDisabled        ReasonCode = "paused_entitlement_disabled"
	ReasonPausedInstanceDisabled           ReasonCode = "paused_instance_disabled"

	ReasonFailedMediaParentMissing        ReasonCode = "failed_media_parent_missing"
	ReasonFailedMediaHashMismatch         ReasonCode = "failed_media_hash_mismatch"
	ReasonFailedMediaRetryExhausted       ReasonCode = "failed_media_retry_exhausted"
	ReasonFailedEvidenceReportHashMism    ReasonCode = "failed_evidence_report_hash_mismatch"
	ReasonFailedEvidenceArtifactHashMism  ReasonCode = "failed_evidence_artifact_hash_mismatch"
	ReasonFailedEvidenceSignatureVerify   ReasonCode = "failed_evidence_signature_verification"
	ReasonFailedSchemaConflict            ReasonCode = "failed_schema_conflict"
	ReasonFailedPermissionConflict        ReasonCode = "failed_permission_conflict"
	ReasonFailedInternalError             ReasonCode = "failed_internal_error"

	ReasonDeniedTokenMalformed         ReasonCode = "denied_token_malformed"
	ReasonDeniedTokenInvalidSignature  ReasonCode = "denied_token_invalid_signature"
	ReasonDeniedTokenExpired           ReasonCode = "denied_token_expired"
	ReasonDeniedTokenWrongServiceScope ReasonCode = "denied_token_wrong_service_scope"
)

var reasonCodes = map[ReasonCode]struct{}{
	ReasonNone:                             {},
	ReasonQueuedScopeLock:                  {},
	ReasonBlockedUnknownSourceMapping:      {},
	ReasonBlockedMissingCapability:         {},
	ReasonBlockedUnresolvedDeleteCands:     {},
	ReasonBlockedUnresolvedMediaCands:      {},
	ReasonBlockedReferenceConflict:         {},
	ReasonBlockedMediaParentMissing:        {},
	ReasonBlockedFreshnessStale:            {},
	ReasonBlockedFreshnessUnknown:          {},
	ReasonBlockedAuthControlPlaneOutage:    {},
	ReasonBlockedPlanHashMismatch:          {},
	ReasonBlockedEvidenceNotReady:          {},
	ReasonBlockedResumePreconditionMism:    {},
	ReasonBlockedResumeCheckpointMissing:   {},
	ReasonPausedTokenRefreshGraceExhausted: {},
	ReasonPausedEntitlementDisabled:        {},
	ReasonPausedInstanceDisabled:           {},
	ReasonFailedMediaParentMissing:         {},
	ReasonFailedMediaHashMismatch:          {},
	ReasonFailedMediaRetryExhausted:        {},
	ReasonFailedEvidenceReportHashMism:     {},
	ReasonFailedEvidenceArtifactHashMism:   {},
	ReasonFailedEvidenceSignatureVerify:    {},
	ReasonFailedSchemaConflict:             {},
	ReasonFailedPermissionConflict:         {},
	ReasonFailedInternalError:              {},
	ReasonDeniedTokenMalformed:             {},
	ReasonDeniedTokenInvalidSignature:      {},
	ReasonDeniedTokenExpired:               {},
	ReasonDeniedTokenWrongServiceScope:     {},
}

// Valid reports whether rc is a member of the closed reason-code set.
func (rc ReasonCode) Valid() bool {
	_, ok := reasonCodes[rc]
	return ok
}

// IsFailureReason reports whether rc is one of the failed_* codes a caller may
// supply when completing a job with status "failed".
func (rc ReasonCode) IsFailureReason() bool {
	switch rc {
	case ReasonFailedMediaParentMissing, ReasonFailedMediaHashMismatch,
		ReasonFailedMediaRetryExhausted, ReasonFailedEvidenceReportHashMism,
		ReasonFailedEvidenceArtifactHashMism, ReasonFailedEvidenceSignatureVerify,
		ReasonFailedSchemaConflict, ReasonFailedPermissionConflict,
		ReasonFailedInternalError:
		return true
	}
	return false
}

// IsPauseReason reports whether rc is accepted as a pause reason.
func (rc ReasonCode) IsPauseReason() bool {
	switch rc {
	case ReasonPausedTokenRefreshGraceExhausted, ReasonPausedEntitlementDisabled,
		ReasonPausedInstanceDisabled:
		return true
	}
	return false
}
