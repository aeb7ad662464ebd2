package domain

import "time"

// Task carries the desk and user currently owning a content item.
type Task struct {
	Desk string `json:"desk,omitempty"`
	User string `json:"user,omitempty"`
}

// Place is a located geo area read from a NewsML item.
type Place struct {
	Name            string `json:"name,omitempty"`
	QCode           string `json:"qcode,omitempty"`
	Scheme          string `json:"scheme,omitempty"`
	Locality        string `json:"locality,omitempty"`
	LocalityCode    string `json:"locality_code,omitempty"`
	State           string `json:"state,omitempty"`
	StateCode       string `json:"state_code,omitempty"`
	Country         string `json:"country,omitempty"`
	CountryCode     string `json:"country_code,omitempty"`
	WorldRegion     string `json:"world_region,omitempty"`
	WorldRegionCode string `json:"world_region_code,omitempty"`
}

// Content is a published or ingested article or picture.
type Content struct {
	ID              string        `json:"_id"`
	GUID            string        `json:"guid"`
	URI             string        `json:"uri"`
	Type            string        `json:"type"`
	Version         string        `json:"version,omitempty"`
	State           WorkflowState `json:"state,omitempty"`
	PubStatus       PostStatus    `json:"pubstatus,omitempty"`
	Headline        string        `json:"headline,omitempty"`
	Slugline        string        `json:"slugline,omitempty"`
	Language        string        `json:"language,omitempty"`
	Genre           []Genre       `json:"genre,omitempty"`
	Subject         []Subject     `json:"subject,omitempty"`
	Place           []Place       `json:"place,omitempty"`
	Urgency         int           `json:"urgency,omitempty"`
	Priority        *int          `json:"priority,omitempty"`
	FirstCreated    *time.Time    `json:"firstcreated,omitempty"`
	VersionCreated  *time.Time    `json:"versioncreated,omitempty"`
	BodyHTML        string        `json:"body_html,omitempty"`
	Task            *Task         `json:"task,omitempty"`
	AssignmentID    string        `json:"assignment_id,omitempty"`
	RewriteSequence int           `json:"rewrite_sequence"`
	Repo            string        `json:"-"`
	Extra           Extra         `json:"extra"`
}

// DefaultPriority is used when the content carries no priority.
const DefaultPriority = 2

// PriorityOrDefault returns the content priority or DefaultPriority.
func (c *Content) PriorityOrDefault() int {
	if c.Priority == nil {
		return DefaultPriority
	}
	return *c.Priority
}

// Desk returns the owning desk, or "" without a task.
func (c *Content) Desk() string {
	if c.Task == nil {
		return ""
	}
	return c.Task.Desk
}

// User returns the owning user, or "" without a task.
func (c *Content) User() string {
	if c.Task == nil {
		return ""
	}
	return c.Task.User
}

// Scheduled returns the best scheduling time known for the content.
func (c *Content) Scheduled() *time.Time {
	if c.FirstCreated != nil {
		return c.FirstCreated
	}
	return c.VersionCreated
}

// Online version variants are flagged with this subject.
const (
	OnlineVersionScheme = "sttversion"
	OnlineVersionQCode  = "6"
)

// IsOnlineVersion reports whether the content is an online version variant.
// Such variants never generate or attach to coverage.
func (c *Content) IsOnlineVersion() bool {
	return HasSubject(c.Subject, OnlineVersionScheme, OnlineVersionQCode)
}

// ContentUpdates is the pending update payload of a publish.
type ContentUpdates struct {
	AssignmentID string
	State        WorkflowState
	PubStatus    PostStatus
}
