package ports

import (
	"context"
	"time"

	"STTIngest/internal/domain"
)

// Retractable is implemented by stores of postable records (events and planning).
type Retractable interface {
	// PostState returns nil when no record is stored under id.
	PostState(ctx context.Context, id string) (*domain.PostState, error)
	Spike(ctx context.Context, id string) error
	CancelPost(ctx context.Context, id, etag string) error
}

// PlanningStore is the host's planning resource service.
type PlanningStore interface {
	Retractable
	// FindOne returns nil, nil when the record does not exist.
	FindOne(ctx context.Context, id string) (*domain.Planning, error)
	Create(ctx context.Context, item domain.Planning) (*domain.Planning, error)
	Replace(ctx context.Context, item domain.Planning) (*domain.Planning, error)
	// PatchCoverages replaces the coverage list atomically. The host creates an
	// Assignment for every coverage whose assigned_to has no assignment_id yet.
	PatchCoverages(ctx context.Context, id string, coverages []domain.Coverage) (*domain.Planning, error)
}

// EventStore is the host's events resource service.
type EventStore interface {
	Retractable
	FindOne(ctx context.Context, id string) (*domain.Event, error)
	Create(ctx context.Context, item domain.Event) (*domain.Event, error)
	Replace(ctx context.Context, item domain.Event) (*domain.Event, error)
}

// ContentStore persists ingested and published content items.
type ContentStore interface {
	FindOne(ctx context.Context, id string) (*domain.Content, error)
	Save(ctx context.Context, item domain.Content) error
}

// ContentSearch queries content across repositories.
type ContentSearch interface {
	// FindByURIs returns the first match ordered by rewrite_sequence ascending,
	// or nil when nothing matches.
	FindByURIs(ctx context.Context, uris []string, repos []string) (*domain.Content, error)
}

// DeliveryLedger is the provisional planning/coverage/content join table.
type DeliveryLedger interface {
	Find(ctx context.Context, filter domain.DeliveryFilter) ([]domain.Delivery, error)
	Post(ctx context.Context, rows []domain.Delivery) ([]string, error)
	Delete(ctx context.Context, filter domain.DeliveryFilter) (int, error)
}

// AssignmentLinker is the host's assignments_link service.
type AssignmentLinker interface {
	Link(ctx context.Context, link domain.AssignmentLink) error
}

// AssignmentStore creates assignments directly.
type AssignmentStore interface {
	Create(ctx context.Context, assignment domain.Assignment) (string, error)
}

// LinkFinalizer is optionally implemented by ledgers able to clear consumed rows
// and create the assignment link in one transaction.
type LinkFinalizer interface {
	FinalizeLink(ctx context.Context, consumed domain.DeliveryFilter, link domain.AssignmentLink) error
}

// IngestProviders looks up configured feeds.
type IngestProviders interface {
	FindOne(ctx context.Context, id string) (*domain.IngestProvider, error)
}

// Vocabularies returns controlled value lists by id.
type Vocabularies interface {
	Items(ctx context.Context, id string) ([]domain.VocabularyItem, error)
}

// OnceGuard reports whether a key is seen for the first time.
type OnceGuard interface {
	First(ctx context.Context, key string) (bool, error)
}

// PlanningIngested is the payload of the planning_ingested signal.
type PlanningIngested struct {
	Item     *domain.Planning
	Original *domain.Planning
}

// ItemPublish is the payload of the item_publish signal. Handlers may mutate
// both the item and the pending updates.
type ItemPublish struct {
	Item    *domain.Content
	Updates *domain.ContentUpdates
}

// PlanningIngestedHandler reacts to a planning record being ingested.
type PlanningIngestedHandler func(ctx context.Context, event PlanningIngested) error

// ItemPublishHandler reacts to a content item about to be published.
type ItemPublishHandler func(ctx context.Context, event ItemPublish) error

// Dispatcher registers typed lifecycle handlers owned by the host platform.
type Dispatcher interface {
	OnPlanningIngested(name string, handler PlanningIngestedHandler)
	OnItemPublish(name string, handler ItemPublishHandler)
}

// Scheduler controls when polling runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// Emitter fires lifecycle signals and reports how many handlers failed.
type Emitter interface {
	EmitPlanningIngested(ctx context.Context, event PlanningIngested) int
	EmitItemPublish(ctx context.Context, event ItemPublish) int
}

// Payload is one raw feed document.
type Payload struct {
	Name string
	Data []byte
}

// FeedSource pulls unprocessed payloads for a provider.
type FeedSource interface {
	Fetch(ctx context.Context, provider domain.IngestProvider) ([]Payload, error)
}
