package domain

// Assignment binds a coverage to a desk/user and eventually to delivered content.
type Assignment struct {
	ID           string           `json:"_id"`
	PlanningItem string           `json:"planning_item"`
	CoverageItem string           `json:"coverage_item"`
	AssignedTo   AssignedTo       `json:"assigned_to"`
	Planning     CoveragePlanning `json:"planning"`
	Priority     int              `json:"priority,omitempty"`
}

// AssignmentLink asks the host platform to bind an assignment to a content item.
type AssignmentLink struct {
	AssignmentID      string `json:"assignment_id"`
	ItemID            string `json:"item_id"`
	SkipArchiveUpdate bool   `json:"skip_archive_update"`
}

// IngestProvider is the host's record of a configured feed.
type IngestProvider struct {
	ID             string `json:"_id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	Source         string `json:"source" yaml:"source"`
	FeedingService string `json:"feeding_service" yaml:"feedingService"`
	FeedParser     string `json:"feed_parser" yaml:"feedParser"`
	Path           string `json:"path,omitempty" yaml:"path"`
}

// Feed parser names registered by this plugin.
const (
	ParserNewsML     = "sttnewsmlnewsroom"
	ParserEventsML   = "stteventsml"
	ParserPlanningML = "sttplanningml"
)
