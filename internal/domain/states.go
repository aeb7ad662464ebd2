package domain

// WorkflowState enumerates the item workflow states used by planning, events and content.
type WorkflowState string

const (
	StateIngested   WorkflowState = "ingested"
	StateDraft      WorkflowState = "draft"
	StateActive     WorkflowState = "active"
	StatePostponed  WorkflowState = "postponed"
	StateCancelled  WorkflowState = "cancelled"
	StateSpiked     WorkflowState = "spiked"
	StatePublished  WorkflowState = "published"
	StateScheduled  WorkflowState = "scheduled"
	StateInProgress WorkflowState = "in_progress"
)

// Unpublished reports whether an item in this state can be spiked instead of unposted.
func (s WorkflowState) Unpublished() bool {
	switch s {
	case StateIngested, StateDraft, StatePostponed, StateCancelled:
		return true
	default:
		return false
	}
}

// PostStatus is the publication status of events and planning items.
type PostStatus string

const (
	PostUsable    PostStatus = "usable"
	PostCancelled PostStatus = "cancelled"
)

// AssignmentState enumerates assignment workflow milestones.
type AssignmentState string

const (
	AssignmentAssigned   AssignmentState = "assigned"
	AssignmentInProgress AssignmentState = "in_progress"
	AssignmentCompleted  AssignmentState = "completed"
)

// Item types stored by the host platform.
const (
	TypeText     = "text"
	TypePicture  = "picture"
	TypeEvent    = "event"
	TypePlanning = "planning"
)

// Content repositories searched when resolving delivered items.
const (
	RepoArchive   = "archive"
	RepoPublished = "published"
	RepoArchived  = "archived"
)
