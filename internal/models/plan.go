package models

import "time"

// Plan-hash canonicalization constants. These enter the hashed input, so any
// change to them changes every plan hash.
const (
	PlanContractVersion      = "rrs.plan.v1"
	PlanHashInputVersion     = 1
	PlanHashAlgorithm        = "sha-256"
	MetadataAllowlistVersion = 1
)

// Row actions a dry-run plan may propose.
const (
	ActionUpdate = "update"
	ActionInsert = "insert"
	ActionDelete = "delete"
	ActionSkip   = "skip"
)

// Media candidate decisions.
const (
	MediaInclude = "include"
	MediaExclude = "exclude"
)

// Conflict classes. Reference conflicts block execution until resolved.
const (
	ConflictClassReference = "reference_conflict"
	ConflictClassValue     = "value_conflict"
)

// Gate decisions.
const (
	GateExecutable  = "executable"
	GatePreviewOnly = "preview_only"
	GateBlocked     = "blocked"
)

// PITContract pins the point in time a restore plan was computed against.
type PITContract struct {
	PointInTime string `json:"point_in_time"`
	Basis       string `json:"basis,omitempty"`
}

// PlanScope describes what the plan intends to touch.
type PlanScope struct {
	Tables       []string `json:"tables"`
	RecordFilter string   `json:"record_filter,omitempty"`
}

// ExecutionOptions are the frozen execution knobs hashed into the plan.
type ExecutionOptions struct {
	BatchSize   int    `json:"batch_size,omitempty"`
	StopOnError bool   `json:"stop_on_error,omitempty"`
	MediaMode   string `json:"media_mode,omitempty"`
}

// PlanRow is one proposed record mutation. Topic/Partition carry the CDC
// provenance used to derive the authoritative partitions to check.
type PlanRow struct {
	RowID       string `json:"row_id"`
	Table       string `json:"table"`
	RecordSysID string `json:"record_sys_id,omitempty"`
	Action      string `json:"action"`
	Topic       string `json:"topic,omitempty"`
	Partition   *int   `json:"partition,omitempty"`
}

// PlanConflict is a detected conflict on a row. An empty Resolution means the
// conflict is unresolved.
type PlanConflict struct {
	ConflictID string `json:"conflict_id"`
	RowID      string `json:"row_id"`
	Class      string `json:"class"`
	Resolution string `json:"resolution,omitempty"`
}

// DeleteCandidate is a record the plan proposes to delete. An empty Decision
// means the candidate is unresolved and blocks execution.
type DeleteCandidate struct {
	CandidateID string `json:"candidate_id"`
	RowID       string `json:"row_id"`
	Table       string `json:"table"`
	RecordSysID string `json:"record_sys_id,omitempty"`
	Decision    string `json:"decision,omitempty"`
}

// MediaCandidate is an attachment the plan may carry. Decision is "include",
// "exclude", or empty (unresolved).
type MediaCandidate struct {
	CandidateID     string `json:"candidate_id"`
	RowID           string `json:"row_id"`
	AttachmentSysID string `json:"attachment_sys_id,omitempty"`
	Decision        string `json:"decision,omitempty"`
}

// WatermarkHint is a caller-supplied (topic, partition) hint, consulted only
// when rows carry no CDC provenance of their own.
type WatermarkHint struct {
	Topic     string `json:"topic"`
	Partition int    `json:"partition"`
}

// PITVersion is one candidate version tuple for PIT resolution.
type PITVersion struct {
	EventID      string `json:"event_id"`
	SysUpdatedOn string `json:"sys_updated_on"`
	SysModCount  *int   `json:"sys_mod_count,omitempty"`
	EventTime    string `json:"__time"`
}

// PITCandidate groups the version tuples observed for one row.
type PITCandidate struct {
	RowID       string       `json:"row_id"`
	Table       string       `json:"table"`
	RecordSysID string       `json:"record_sys_id,omitempty"`
	Versions    []PITVersion `json:"versions"`
}

// PITResolution records the winning version tuple selected for a row.
type PITResolution struct {
	RowID               string `json:"row_id"`
	Table               string `json:"table"`
	RecordSysID         string `json:"record_sys_id,omitempty"`
	WinningEventID      string `json:"winning_event_id"`
	WinningSysUpdatedOn string `json:"winning_sys_updated_on"`
	WinningSysModCount  *int   `json:"winning_sys_mod_count,omitempty"`
	WinningEventTime    string `json:"winning_event_time"`
}

// Approval is optional approval metadata frozen on the plan record.
type Approval struct {
	ApprovedBy string `json:"approved_by,omitempty"`
	ApprovedAt string `json:"approved_at,omitempty"`
	Ticket     string `json:"ticket,omitempty"`
}

// ActionCounts summarizes the plan's proposed work.
type ActionCounts struct {
	Update          int `json:"update"`
	Insert          int `json:"insert"`
	Delete          int `json:"delete"`
	Skip            int `json:"skip"`
	Conflict        int `json:"conflict"`
	AttachmentApply int `json:"attachment_apply"`
	AttachmentSkip  int `json:"attachment_skip"`
}

// GateResult is the executability decision attached to a dry-run plan.
type GateResult struct {
	Decision                     string     `json:"decision"`
	ReasonCode                   ReasonCode `json:"reason_code"`
	UnresolvedDeleteCandidates   int        `json:"unresolved_delete_candidates"`
	UnresolvedReferenceConflicts int        `json:"unresolved_reference_conflicts"`
	UnresolvedMediaCandidates    int        `json:"unresolved_media_candidates"`
	StalePartitions              int        `json:"stale_partitions"`
	UnknownPartitions            int        `json:"unknown_partitions"`
}

// PlanHashInput is the canonical structure the plan hash is computed over.
// Field tags are normative: they are the keys of the canonical JSON form.
type PlanHashInput struct {
	ContractVersion          string           `json:"contract_version"`
	PlanHashInputVersion     int              `json:"plan_hash_input_version"`
	PlanHashAlgorithm        string           `json:"plan_hash_algorithm"`
	PIT                      PITContract      `json:"pit"`
	Scope                    PlanScope        `json:"scope"`
	ExecutionOptions         ExecutionOptions `json:"execution_options"`
	ActionCounts             ActionCounts     `json:"action_counts"`
	Rows                     []PlanRow        `json:"rows"`
	MediaCandidates          []MediaCandidate `json:"media_candidates"`
	MetadataAllowlistVersion int              `json:"metadata_allowlist_version"`
}

// PlanRecord is the persisted dry-run plan: frozen inputs, computed hash, the
// gate decision, PIT resolutions, and the authoritative watermark snapshot
// observed at evaluation time. For a given plan_id the hash is immutable.
type PlanRecord struct {
	PlanID          string   `json:"plan_id"`
	TenantID        string   `json:"tenant_id"`
	InstanceID      string   `json:"instance_id"`
	Source          string   `json:"source"`
	PlanHash        string   `json:"plan_hash"`
	LockScopeTables []string `json:"lock_scope_tables"`

	PIT              PITContract       `json:"pit"`
	Scope            PlanScope         `json:"scope"`
	ExecutionOptions ExecutionOptions  `json:"execution_options"`
	Rows             []PlanRow         `json:"rows"`
	Conflicts        []PlanConflict    `json:"conflicts,omitempty"`
	DeleteCandidates []DeleteCandidate `json:"delete_candidates,omitempty"`
	MediaCandidates  []MediaCandidate  `json:"media_candidates,omitempty"`

	ActionCounts   ActionCounts    `json:"action_counts"`
	Gate           GateResult      `json:"gate"`
	PITResolutions []PITResolution `json:"pit_resolutions,omitempty"`
	Watermarks     []Watermark     `json:"watermarks,omitempty"`

	Approval    *Approval `json:"approval,omitempty"`
	RequestedBy string    `json:"requested_by,omitempty"`

	// Placeholder marks records lazily created by job admission before any
	// dry-run was submitted for the plan id.
	Placeholder bool `json:"placeholder,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
