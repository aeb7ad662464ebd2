package usecase

import (
	"context"
	"testing"
	"time"

	"STTIngest/internal/domain"
	"STTIngest/internal/ports"
)

func TestPlanningIngestLinksAlreadyDeliveredContent(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.ingest(t, newsProvider, newsXML(contentGUID, ""))
	h.ingest(t, planningProvider, planningXML(planningGUID, deliveredCoverageXML))

	item := h.planning(t, planningID)
	if len(item.Coverages) != 1 {
		t.Fatalf("unexpected coverages %+v", item.Coverages)
	}
	cov := item.Coverages[0]
	if cov.AssignmentID() == "" {
		t.Fatalf("expected coverage assigned, got %+v", cov)
	}
	if cov.WorkflowStatus != domain.StateActive || cov.AssignedTo.State != domain.AssignmentInProgress {
		t.Fatalf("unexpected assignment state %+v / %+v", cov.WorkflowStatus, cov.AssignedTo)
	}
	if cov.AssignedTo.Priority != domain.DefaultPriority {
		t.Fatalf("expected default priority, got %d", cov.AssignedTo.Priority)
	}
	wantScheduled := time.Date(2022, 4, 2, 6, 0, 0, 0, time.UTC)
	if cov.Planning.Scheduled == nil || !cov.Planning.Scheduled.Equal(wantScheduled) {
		t.Fatalf("expected content firstcreated on coverage, got %v", cov.Planning.Scheduled)
	}
	if cov.Planning.Slugline != "VIRO-TULOS" || cov.Planning.Language != "fi" || len(cov.Planning.Genre) != 1 {
		t.Fatalf("expected content metadata copied, got %+v", cov.Planning)
	}
	if cov.Planning.Headline != "Vaalitulos selvisi" {
		t.Fatalf("expected empty headline filled from content, got %q", cov.Planning.Headline)
	}

	if rows := h.store.Ledger.Rows(); len(rows) != 0 {
		t.Fatalf("expected consumed ledger rows deleted, got %+v", rows)
	}
	links := h.store.Links.Links()
	if len(links) != 1 || links[0].AssignmentID != cov.AssignmentID() || links[0].ItemID != contentGUID || links[0].SkipArchiveUpdate {
		t.Fatalf("unexpected links %+v", links)
	}
	if content := h.content(t, contentGUID); content.AssignmentID != cov.AssignmentID() {
		t.Fatalf("expected archive item linked, got %q", content.AssignmentID)
	}
}

func TestPlanningLinkingIsIdempotent(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.ingest(t, newsProvider, newsXML(contentGUID, ""))
	h.ingest(t, planningProvider, planningXML(planningGUID, deliveredCoverageXML))
	assignment := h.planning(t, planningID).Coverages[0].AssignmentID()

	item := h.planning(t, planningID)
	if err := h.linker.LinkCoveragesToContent(context.Background(), ports.PlanningIngested{Item: item}); err != nil {
		t.Fatalf("relink: %v", err)
	}
	summary := h.ingest(t, planningProvider, planningXML(planningGUID, deliveredCoverageXML))

	if summary.Deliveries != 0 {
		t.Fatalf("expected no new deliveries once linked, got %d", summary.Deliveries)
	}
	if rows := h.store.Ledger.Rows(); len(rows) != 0 {
		t.Fatalf("expected empty ledger, got %+v", rows)
	}
	if links := h.store.Links.Links(); len(links) != 1 {
		t.Fatalf("expected a single link, got %+v", links)
	}
	if got := h.planning(t, planningID).Coverages[0].AssignmentID(); got != assignment {
		t.Fatalf("assignment changed on re-ingest: %s -> %s", assignment, got)
	}
}

func TestPlanningLinkingIgnoresOtherProviders(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.ingest(t, newsProvider, newsXML(contentGUID, ""))

	item := &domain.Planning{
		ID:             planningID,
		GUID:           planningGUID,
		IngestProvider: newsProvider.ID,
		Coverages:      []domain.Coverage{textCoverage("ID_WORKREQUEST_1")},
	}
	if _, err := h.store.Planning.Create(context.Background(), *item); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := h.store.Ledger.Post(context.Background(), []domain.Delivery{{PlanningID: planningID, CoverageID: "ID_WORKREQUEST_1", ItemID: contentCanonID}}); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	if err := h.linker.LinkCoveragesToContent(context.Background(), ports.PlanningIngested{Item: item}); err != nil {
		t.Fatalf("link: %v", err)
	}
	if links := h.store.Links.Links(); len(links) != 0 {
		t.Fatalf("expected no links for non planning provider, got %+v", links)
	}
}

func TestPlanningLinkingWithoutIDIsIgnored(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	if err := h.linker.LinkCoveragesToContent(context.Background(), ports.PlanningIngested{Item: &domain.Planning{}}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestPublishLinksContentThroughLedger(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.ingest(t, planningProvider, planningXML(planningGUID, deliveredCoverageXML))
	if rows := h.store.Ledger.Rows(); len(rows) != 1 {
		t.Fatalf("expected pending ledger row, got %+v", rows)
	}
	h.ingest(t, newsProvider, newsXML(contentGUID, ""))

	published, err := h.publisher.Publish(context.Background(), contentGUID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	cov := h.planning(t, planningID).Coverages[0]
	if cov.AssignmentID() == "" {
		t.Fatalf("expected coverage assigned, got %+v", cov)
	}
	if published.AssignmentID != cov.AssignmentID() {
		t.Fatalf("expected published assignment %s, got %s", cov.AssignmentID(), published.AssignmentID)
	}
	stored := h.content(t, contentGUID)
	if stored.AssignmentID != cov.AssignmentID() || stored.Repo != domain.RepoPublished || stored.PubStatus != domain.PostUsable {
		t.Fatalf("unexpected stored content %+v", stored)
	}
	if rows := h.store.Ledger.Rows(); len(rows) != 0 {
		t.Fatalf("expected ledger row consumed, got %+v", rows)
	}
	links := h.store.Links.Links()
	if len(links) != 1 || !links[0].SkipArchiveUpdate {
		t.Fatalf("expected one link skipping archive update, got %+v", links)
	}
}

func TestPublishCreatesTopicCoverage(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.ingest(t, planningProvider, planningXML(planningGUID, ""))
	h.ingest(t, newsProvider, newsXML(contentGUID, ""))

	published, err := h.publisher.Publish(context.Background(), contentGUID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	item := h.planning(t, planningID)
	if len(item.Coverages) != 1 {
		t.Fatalf("expected placeholder replaced by one coverage, got %+v", item.Coverages)
	}
	cov := item.Coverages[0]
	if cov.CoverageID != "ID_TEXT_101868568" || cov.IsPlaceholder() || !cov.IsText() {
		t.Fatalf("unexpected synthesized coverage %+v", cov)
	}
	if cov.AssignmentID() == "" || published.AssignmentID != cov.AssignmentID() {
		t.Fatalf("expected content linked to new coverage, got %q / %+v", published.AssignmentID, cov.AssignedTo)
	}
}

func TestPublishAddsAssignmentToAssignedTopicCoverage(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.ingest(t, planningProvider, planningXML(planningGUID, ""))
	h.ingest(t, newsProvider, newsXML(contentGUID, ""))
	first, err := h.publisher.Publish(context.Background(), contentGUID)
	if err != nil {
		t.Fatalf("publish first: %v", err)
	}

	secondGUID := "urn:newsml:stt.fi:20220403:101868999"
	h.ingest(t, newsProvider, newsXML(secondGUID, ""))
	second, err := h.publisher.Publish(context.Background(), secondGUID)
	if err != nil {
		t.Fatalf("publish second: %v", err)
	}

	if second.AssignmentID == "" || second.AssignmentID == first.AssignmentID {
		t.Fatalf("expected a distinct assignment, got %q and %q", first.AssignmentID, second.AssignmentID)
	}
	if got := h.planning(t, planningID).Coverages[0].AssignmentID(); got != first.AssignmentID {
		t.Fatalf("existing coverage assignment overwritten: %s", got)
	}

	extra, ok := h.store.Assignments.Get(second.AssignmentID)
	if !ok || extra.PlanningItem != planningID || extra.CoverageItem != "ID_TEXT_101868568" {
		t.Fatalf("unexpected additional assignment %+v", extra)
	}
	if n := len(h.store.Assignments.List()); n != 2 {
		t.Fatalf("expected two assignments, got %d", n)
	}
}

func TestPublishOnlineVersionIsNotLinked(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.ingest(t, planningProvider, planningXML(planningGUID, deliveredCoverageXML))
	h.ingest(t, newsProvider, newsXML(contentGUID, `
    <subject qcode="sttversion:6"><name>Verkkoversio</name></subject>`))

	before := h.planning(t, planningID)
	published, err := h.publisher.Publish(context.Background(), contentGUID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	if published.AssignmentID != "" {
		t.Fatalf("online version must stay unassigned, got %s", published.AssignmentID)
	}
	after := h.planning(t, planningID)
	if after.ETag != before.ETag || after.Coverages[0].AssignedTo != nil {
		t.Fatalf("online version must not mutate planning: %+v", after.Coverages)
	}
	if rows := h.store.Ledger.Rows(); len(rows) != 1 {
		t.Fatalf("expected ledger row kept, got %+v", rows)
	}
}

func TestPublishWithoutPlanningIsNonFatal(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.ingest(t, newsProvider, newsXML(contentGUID, ""))

	published, err := h.publisher.Publish(context.Background(), contentGUID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if published.AssignmentID != "" || published.Repo != domain.RepoPublished {
		t.Fatalf("unexpected published item %+v", published)
	}
}

func TestPublishAlreadyAssignedIsSkipped(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.ingest(t, planningProvider, planningXML(planningGUID, ""))

	item := &domain.Content{ID: contentGUID, GUID: contentGUID, URI: contentGUID, AssignmentID: "a-0"}
	item.Extra.SttTopics = "584717"
	updates := &domain.ContentUpdates{}
	if err := h.linker.LinkContentToCoverage(context.Background(), ports.ItemPublish{Item: item, Updates: updates}); err != nil {
		t.Fatalf("link: %v", err)
	}
	if updates.AssignmentID != "" {
		t.Fatalf("expected updates untouched, got %+v", updates)
	}
	if !h.planning(t, planningID).OnlyPlaceholders() {
		t.Fatalf("planning must not change for assigned content")
	}
}
