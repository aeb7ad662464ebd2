package domain

import (
	"strings"
	"time"
)

// PlaceholderPrefix prefixes the coverage id of synthetic placeholder coverages.
const PlaceholderPrefix = "placeholder_"

// TextCoveragePrefix prefixes coverages synthesized from a content item's text id.
const TextCoveragePrefix = "ID_TEXT_"

// CoveragePlanning is the planning block of a coverage.
type CoveragePlanning struct {
	G2ContentType string     `json:"g2_content_type,omitempty"`
	Scheduled     *time.Time `json:"scheduled,omitempty"`
	Headline      string     `json:"headline,omitempty"`
	Slugline      string     `json:"slugline,omitempty"`
	Description   string     `json:"description_text,omitempty"`
	Language      string     `json:"language,omitempty"`
	Genre         []Genre    `json:"genre,omitempty"`
	Subject       []Subject  `json:"subject,omitempty"`
}

// CoverageFlags carries coverage level switches.
type CoverageFlags struct {
	Placeholder bool `json:"placeholder"`
}

// AssignedTo is the assignment block of a coverage. AssignmentID is empty until
// the host platform creates the Assignment.
type AssignedTo struct {
	AssignmentID string          `json:"assignment_id,omitempty"`
	Desk         string          `json:"desk,omitempty"`
	User         string          `json:"user,omitempty"`
	AssignorDesk string          `json:"assignor_desk,omitempty"`
	AssignorUser string          `json:"assignor_user,omitempty"`
	State        AssignmentState `json:"state,omitempty"`
	Priority     int             `json:"priority,omitempty"`
}

// Coverage is one planned deliverable of a planning record.
type Coverage struct {
	CoverageID     string           `json:"coverage_id"`
	WorkflowStatus WorkflowState    `json:"workflow_status,omitempty"`
	Planning       CoveragePlanning `json:"planning"`
	AssignedTo     *AssignedTo      `json:"assigned_to,omitempty"`
	Flags          CoverageFlags    `json:"flags"`
}

// IsPlaceholder reports whether the coverage is a synthetic placeholder.
func (c Coverage) IsPlaceholder() bool {
	return c.Flags.Placeholder
}

// AssignmentID returns the resolved assignment id, or "" when unassigned.
func (c Coverage) AssignmentID() string {
	if c.AssignedTo == nil {
		return ""
	}
	return c.AssignedTo.AssignmentID
}

// IsText reports whether the coverage plans text content.
func (c Coverage) IsText() bool {
	return strings.EqualFold(c.Planning.G2ContentType, TypeText)
}

// DeliveryRef is a delivered-item reference read from a planning payload. It is
// never persisted on the planning record itself.
type DeliveryRef struct {
	CoverageID string
	ItemIDs    []string
}

// Planning is a planned editorial topic.
type Planning struct {
	ID             string        `json:"_id"`
	GUID           string        `json:"guid"`
	Type           string        `json:"type"`
	ETag           string        `json:"_etag,omitempty"`
	IngestProvider string        `json:"ingest_provider,omitempty"`
	State          WorkflowState `json:"state,omitempty"`
	PubStatus      PostStatus    `json:"pubstatus,omitempty"`
	Headline       string        `json:"headline,omitempty"`
	Slugline       string        `json:"slugline,omitempty"`
	Description    string        `json:"description_text,omitempty"`
	PlanningDate   *time.Time    `json:"planning_date,omitempty"`
	Subject        []Subject     `json:"subject,omitempty"`
	Coverages      []Coverage    `json:"coverages"`
	EventItem      string        `json:"event_item,omitempty"`
	Extra          Extra         `json:"extra"`
	Updated        time.Time     `json:"_updated"`

	Deliveries []DeliveryRef `json:"-"`
}

// Coverage returns the coverage with the given id.
func (p *Planning) Coverage(id string) (*Coverage, bool) {
	for i := range p.Coverages {
		if p.Coverages[i].CoverageID == id {
			return &p.Coverages[i], true
		}
	}
	return nil, false
}

// OnlyPlaceholders reports whether every coverage is a placeholder (or none exist).
func (p *Planning) OnlyPlaceholders() bool {
	for _, c := range p.Coverages {
		if !c.IsPlaceholder() {
			return false
		}
	}
	return true
}

// CloneCoverages returns a deep copy of the coverage list safe for mutation.
func (p *Planning) CloneCoverages() []Coverage {
	out := make([]Coverage, len(p.Coverages))
	for i, c := range p.Coverages {
		out[i] = c.Clone()
	}
	return out
}

// Clone returns a deep copy of the coverage.
func (c Coverage) Clone() Coverage {
	out := c
	if c.AssignedTo != nil {
		at := *c.AssignedTo
		out.AssignedTo = &at
	}
	if c.Planning.Scheduled != nil {
		ts := *c.Planning.Scheduled
		out.Planning.Scheduled = &ts
	}
	out.Planning.Genre = append([]Genre(nil), c.Planning.Genre...)
	out.Planning.Subject = append([]Subject(nil), c.Planning.Subject...)
	return out
}

// Event is an ingested events-ML record.
type Event struct {
	ID             string        `json:"_id"`
	GUID           string        `json:"guid"`
	Type           string        `json:"type"`
	ETag           string        `json:"_etag,omitempty"`
	IngestProvider string        `json:"ingest_provider,omitempty"`
	State          WorkflowState `json:"state,omitempty"`
	PubStatus      PostStatus    `json:"pubstatus,omitempty"`
	Name           string        `json:"name,omitempty"`
	Definition     string        `json:"definition_short,omitempty"`
	Start          *time.Time    `json:"start,omitempty"`
	End            *time.Time    `json:"end,omitempty"`
	Subject        []Subject     `json:"subject,omitempty"`
	Extra          Extra         `json:"extra"`
	Updated        time.Time     `json:"_updated"`
}

// PostState is the subset of a stored event or planning record needed to retract it.
type PostState struct {
	ID        string
	ETag      string
	State     WorkflowState
	PubStatus PostStatus
}
