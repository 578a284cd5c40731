package models

// JobState is the complete logical state persisted in the job snapshot row:
// every job record, each job's append-only event stream, and the lock state.
// Lock state rides in the same document so queue order is restored atomically
// with the jobs it refers to.
type JobState struct {
	Jobs   map[string]*JobRecord    `json:"jobs"`
	Events map[string][]*AuditEvent `json:"events"`
	Lock   LockState                `json:"lock"`
}

// NewJobState returns an empty job state document.
func NewJobState() *JobState {
	return &JobState{
		Jobs:   make(map[string]*JobRecord),
		Events: make(map[string][]*AuditEvent),
	}
}

// Normalize repairs nil maps after JSON rehydration.
func (s *JobState) Normalize() {
	if s.Jobs == nil {
		s.Jobs = make(map[string]*JobRecord)
	}
	if s.Events == nil {
		s.Events = make(map[string][]*AuditEvent)
	}
}

// PlanState is the complete logical state persisted in the plan snapshot row.
type PlanState struct {
	Plans map[string]*PlanRecord `json:"plans"`
}

// NewPlanState returns an empty plan state document.
func NewPlanState() *PlanState {
	return &PlanState{Plans: make(map[string]*PlanRecord)}
}

// Normalize repairs nil maps after JSON rehydration.
func (s *PlanState) Normalize() {
	if s.Plans == nil {
		s.Plans = make(map[string]*PlanRecord)
	}
}
