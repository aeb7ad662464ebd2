package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"STTIngest/internal/domain"
	"STTIngest/internal/ident"
	"STTIngest/internal/metrics"
	"STTIngest/internal/ports"
)

// Handler names registered on the dispatcher. They double as metric labels.
const (
	TriggerPlanning = "link_coverages_to_content"
	TriggerPublish  = "link_content_to_coverage"
)

// DefaultPlanningURNPrefix builds planning ids from content topic ids.
const DefaultPlanningURNPrefix = "urn:newsml:stt.fi:"

// LinkerDeps wires the stores the linking handlers mutate.
type LinkerDeps struct {
	Planning    ports.PlanningStore
	Ledger      ports.DeliveryLedger
	Search      ports.ContentSearch
	Links       ports.AssignmentLinker
	Assignments ports.AssignmentStore
	Providers   ports.IngestProviders
	// Repos are the content repositories searched for delivered items.
	Repos             []string
	PlanningURNPrefix string
	Metrics           *metrics.Recorder
	Logger            *slog.Logger
}

// Linker reconciles coverages with delivered content. It reacts to planning
// ingest and to content publish.
type Linker struct {
	planning    ports.PlanningStore
	ledger      ports.DeliveryLedger
	finalizer   ports.LinkFinalizer
	search      ports.ContentSearch
	links       ports.AssignmentLinker
	assignments ports.AssignmentStore
	providers   ports.IngestProviders
	repos       []string
	urnPrefix   string
	metrics     *metrics.Recorder
	logger      *slog.Logger
	tracer      trace.Tracer
}

// NewLinker constructs the linking handlers.
func NewLinker(deps LinkerDeps) *Linker {
	l := &Linker{
		planning:    deps.Planning,
		ledger:      deps.Ledger,
		search:      deps.Search,
		links:       deps.Links,
		assignments: deps.Assignments,
		providers:   deps.Providers,
		repos:       deps.Repos,
		urnPrefix:   deps.PlanningURNPrefix,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		tracer:      otel.Tracer("STTIngest/usecase"),
	}
	if f, ok := deps.Ledger.(ports.LinkFinalizer); ok {
		l.finalizer = f
	}
	if len(l.repos) == 0 {
		l.repos = []string{domain.RepoArchive, domain.RepoPublished, domain.RepoArchived}
	}
	if l.urnPrefix == "" {
		l.urnPrefix = DefaultPlanningURNPrefix
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Register subscribes both handlers.
func (l *Linker) Register(d ports.Dispatcher) {
	d.OnPlanningIngested(TriggerPlanning, l.LinkCoveragesToContent)
	d.OnItemPublish(TriggerPublish, l.LinkContentToCoverage)
}

type pendingLink struct {
	coverageID string
	content    *domain.Content
}

// LinkCoveragesToContent resolves unassigned coverages of a freshly ingested
// planning record against content already delivered through the ledger.
func (l *Linker) LinkCoveragesToContent(ctx context.Context, event ports.PlanningIngested) (err error) {
	item := event.Item
	if item == nil || item.ID == "" {
		l.logger.Error("planning item has no id, coverage linking skipped")
		return nil
	}

	ctx, span := l.tracer.Start(ctx, TriggerPlanning, trace.WithAttributes(attribute.String("planning.id", item.ID)))
	defer func() { endSpan(span, err) }()

	if item.OnlyPlaceholders() {
		return nil
	}
	fromPlanning, err := l.fromPlanningFeed(ctx, item.IngestProvider)
	if err != nil {
		return err
	}
	if !fromPlanning {
		l.metrics.Skipped(TriggerPlanning, "provider")
		return nil
	}

	coverages := item.CloneCoverages()
	var pending []pendingLink
	for i := range coverages {
		cov := &coverages[i]
		if cov.IsPlaceholder() || cov.AssignedTo != nil {
			continue
		}

		rows, err := l.ledger.Find(ctx, domain.DeliveryFilter{
			PlanningID:     item.ID,
			CoverageID:     cov.CoverageID,
			UnresolvedOnly: true,
		})
		if err != nil {
			return fmt.Errorf("find deliveries for coverage %s: %w", cov.CoverageID, err)
		}
		if len(rows) == 0 {
			continue
		}

		content, err := l.search.FindByURIs(ctx, deliveredURIs(rows), l.repos)
		if err != nil {
			return fmt.Errorf("search delivered content for coverage %s: %w", cov.CoverageID, err)
		}
		if content == nil {
			l.logger.Debug("delivered content not available yet", "planning", item.ID, "coverage", cov.CoverageID)
			continue
		}

		applyContentMetadata(cov, content)
		assignToContent(cov, content)
		pending = append(pending, pendingLink{coverageID: cov.CoverageID, content: content})
	}
	if len(pending) == 0 {
		return nil
	}

	updated, err := l.planning.PatchCoverages(ctx, item.ID, coverages)
	if err != nil {
		return fmt.Errorf("patch planning %s: %w", item.ID, err)
	}
	*item = *updated

	for _, p := range pending {
		cov, ok := updated.Coverage(p.coverageID)
		if !ok || cov.AssignmentID() == "" {
			l.logger.Warn("coverage has no assignment after patch", "planning", item.ID, "coverage", p.coverageID)
			l.metrics.Skipped(TriggerPlanning, "unassigned")
			continue
		}
		if err := l.finalize(ctx, TriggerPlanning, item.ID, cov, p.content, false); err != nil {
			return err
		}
	}
	return nil
}

// LinkContentToCoverage attaches content about to be published to the
// coverage that expects it, creating the coverage when only the topic is known.
// The resolved assignment id is written to both the item and the pending updates.
func (l *Linker) LinkContentToCoverage(ctx context.Context, event ports.ItemPublish) (err error) {
	item := event.Item
	if item == nil {
		return nil
	}
	if item.AssignmentID != "" {
		l.metrics.Skipped(TriggerPublish, "assigned")
		return nil
	}
	if item.IsOnlineVersion() {
		l.metrics.Skipped(TriggerPublish, "online_version")
		return nil
	}

	candidates := ident.Candidates(item.URI, item.GUID, item.ID)
	if len(candidates) == 0 {
		l.logger.Error("published item has no id, coverage linking skipped")
		return nil
	}

	ctx, span := l.tracer.Start(ctx, TriggerPublish, trace.WithAttributes(attribute.String("item.id", candidates[0])))
	defer func() { endSpan(span, err) }()

	rows, err := l.ledger.Find(ctx, domain.DeliveryFilter{ItemIDs: candidates, UnresolvedOnly: true})
	if err != nil {
		return fmt.Errorf("find deliveries for %s: %w", candidates[0], err)
	}

	var planningID, coverageID string
	switch {
	case len(rows) > 0:
		planningID, coverageID = rows[0].PlanningID, rows[0].CoverageID
	case item.Extra.SttTopics != "":
		planningID = l.urnPrefix + item.Extra.SttTopics
	default:
		l.metrics.Skipped(TriggerPublish, "no_target")
		return nil
	}
	span.SetAttributes(attribute.String("planning.id", planningID))

	planning, err := l.planning.FindOne(ctx, planningID)
	if err != nil {
		return fmt.Errorf("find planning %s: %w", planningID, err)
	}
	if planning == nil {
		l.logger.Warn("planning not found for published item", "planning", planningID, "item", candidates[0])
		l.metrics.Skipped(TriggerPublish, "planning_missing")
		return nil
	}

	coverages := planning.CloneCoverages()
	var idx int
	if coverageID != "" {
		idx = coverageIndex(coverages, coverageID)
		if idx < 0 {
			l.logger.Warn("coverage not found on planning", "planning", planningID, "coverage", coverageID)
			l.metrics.Skipped(TriggerPublish, "coverage_missing")
			return nil
		}
	} else {
		coverageID = domain.TextCoveragePrefix + textID(item)
		idx = coverageIndex(coverages, coverageID)
		if idx < 0 {
			cov := domain.Coverage{
				CoverageID: coverageID,
				Planning:   domain.CoveragePlanning{G2ContentType: domain.TypeText},
			}
			coverages = append(withoutPlaceholders(coverages), cov)
			idx = len(coverages) - 1
		}
	}

	cov, err := l.attach(ctx, planning.ID, coverages, idx, item)
	if err != nil {
		return err
	}
	if cov == nil || cov.AssignmentID() == "" {
		l.logger.Warn("assignment not resolved for coverage", "planning", planningID, "coverage", coverageID)
		l.metrics.Skipped(TriggerPublish, "unassigned")
		return nil
	}

	if err := l.finalize(ctx, TriggerPublish, planning.ID, cov, item, true); err != nil {
		return err
	}

	item.AssignmentID = cov.AssignmentID()
	if event.Updates != nil {
		event.Updates.AssignmentID = cov.AssignmentID()
	}
	return nil
}

// attach points coverages[idx] at item. An already assigned coverage gets an
// additional assignment so earlier deliveries stay linked; otherwise the
// coverage is populated and the planning record patched.
func (l *Linker) attach(ctx context.Context, planningID string, coverages []domain.Coverage, idx int, item *domain.Content) (*domain.Coverage, error) {
	cov := coverages[idx]
	if cov.AssignmentID() != "" {
		extra := cov.Clone()
		applyContentMetadata(&extra, item)
		assignToContent(&extra, item)

		id, err := l.assignments.Create(ctx, domain.Assignment{
			PlanningItem: planningID,
			CoverageItem: cov.CoverageID,
			AssignedTo:   *extra.AssignedTo,
			Planning:     extra.Planning,
			Priority:     extra.AssignedTo.Priority,
		})
		if err != nil {
			return nil, fmt.Errorf("create assignment for coverage %s: %w", cov.CoverageID, err)
		}
		extra.AssignedTo.AssignmentID = id
		return &extra, nil
	}

	applyContentMetadata(&coverages[idx], item)
	assignToContent(&coverages[idx], item)

	updated, err := l.planning.PatchCoverages(ctx, planningID, coverages)
	if err != nil {
		return nil, fmt.Errorf("patch planning %s: %w", planningID, err)
	}
	saved, ok := updated.Coverage(cov.CoverageID)
	if !ok {
		return nil, nil
	}
	return saved, nil
}

// finalize clears the ledger rows consumed by content and requests the
// assignment link.
func (l *Linker) finalize(ctx context.Context, trigger, planningID string, cov *domain.Coverage, content *domain.Content, skipArchive bool) error {
	consumed := domain.DeliveryFilter{
		PlanningID:     planningID,
		CoverageID:     cov.CoverageID,
		ItemIDs:        ident.Candidates(content.URI, content.GUID, content.ID),
		UnresolvedOnly: true,
	}
	link := domain.AssignmentLink{
		AssignmentID:      cov.AssignmentID(),
		ItemID:            contentID(content),
		SkipArchiveUpdate: skipArchive,
	}

	if l.finalizer != nil {
		if err := l.finalizer.FinalizeLink(ctx, consumed, link); err != nil {
			return fmt.Errorf("finalize link %s: %w", link.AssignmentID, err)
		}
	} else {
		if _, err := l.ledger.Delete(ctx, consumed); err != nil {
			return fmt.Errorf("delete deliveries for coverage %s: %w", cov.CoverageID, err)
		}
		if err := l.links.Link(ctx, link); err != nil {
			return fmt.Errorf("link assignment %s: %w", link.AssignmentID, err)
		}
	}

	l.metrics.Linked(trigger)
	l.logger.Info("assignment linked",
		"trigger", trigger,
		"planning", planningID,
		"coverage", cov.CoverageID,
		"assignment", link.AssignmentID,
		"item", link.ItemID,
	)
	return nil
}

func (l *Linker) fromPlanningFeed(ctx context.Context, providerID string) (bool, error) {
	if providerID == "" || l.providers == nil {
		return false, nil
	}
	provider, err := l.providers.FindOne(ctx, providerID)
	if err != nil {
		return false, fmt.Errorf("find ingest provider %s: %w", providerID, err)
	}
	return provider != nil && provider.FeedParser == domain.ParserPlanningML, nil
}

// applyContentMetadata copies scheduling and descriptive metadata of content
// onto the coverage planning block.
func applyContentMetadata(cov *domain.Coverage, content *domain.Content) {
	p := &cov.Planning
	if s := content.Scheduled(); s != nil {
		ts := *s
		p.Scheduled = &ts
	}
	if len(content.Genre) > 0 {
		p.Genre = append([]domain.Genre(nil), content.Genre...)
	}
	if content.Language != "" {
		p.Language = content.Language
	}
	if len(content.Subject) > 0 {
		p.Subject = append([]domain.Subject(nil), content.Subject...)
	}
	if content.Slugline != "" {
		p.Slugline = content.Slugline
	}
	if p.Headline == "" {
		p.Headline = content.Headline
	}
	if p.G2ContentType == "" {
		p.G2ContentType = content.Type
	}
}

func assignToContent(cov *domain.Coverage, content *domain.Content) {
	state := domain.AssignmentInProgress
	if content.PubStatus != "" {
		state = domain.AssignmentCompleted
	}

	cov.WorkflowStatus = domain.StateActive
	cov.AssignedTo = &domain.AssignedTo{
		Desk:         content.Desk(),
		User:         content.User(),
		AssignorDesk: content.Desk(),
		AssignorUser: content.User(),
		State:        state,
		Priority:     content.PriorityOrDefault(),
	}
}

func deliveredURIs(rows []domain.Delivery) []string {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ItemID)
	}
	return ident.Candidates(ids...)
}

func textID(content *domain.Content) string {
	if content.Extra.SttIDTypeTextID != "" {
		return content.Extra.SttIDTypeTextID
	}
	return ident.LastSegment(contentID(content))
}

func contentID(content *domain.Content) string {
	if content.ID != "" {
		return content.ID
	}
	return content.GUID
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
