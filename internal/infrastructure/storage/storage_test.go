package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"STTIngest/internal/domain"
)

const (
	planningByID       = `SELECT doc FROM planning WHERE id = $1`
	planningForUpdate  = `SELECT doc FROM planning WHERE id = $1 FOR UPDATE`
	planningUpdate     = `UPDATE planning SET etag = $1, state = $2, pubstatus = $3, doc = $4, updated_at = $5 WHERE id = $6`
	eventPostState     = `SELECT id, etag, state, pubstatus FROM events WHERE id = $1`
	assignmentInsert   = `INSERT INTO assignments`
	linkInsert         = `INSERT INTO assignment_links`
	contentStamp       = `UPDATE content SET doc = jsonb_set(doc, '{assignment_id}', to_jsonb($1::text)) WHERE id = $2`
	deliveriesInsert   = `INSERT INTO deliveries`
	deliveriesDelete   = `DELETE FROM deliveries WHERE`
	vocabularyItemsSQL = `SELECT items FROM vocabularies WHERE id = $1`
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

func expectMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPlanningFindOneMissing(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(planningByID)).WithArgs("p1").WillReturnError(sql.ErrNoRows)

	item, err := NewPlanningRepository(db).FindOne(context.Background(), "p1")
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if item != nil {
		t.Fatalf("expected nil planning, got %+v", item)
	}
	expectMet(t, mock)
}

func TestPlanningFindOneDecodes(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	doc := domain.Planning{ID: "p1", GUID: "urn:newsml:stt.fi:20220402:101", Headline: "Topic", Coverages: []domain.Coverage{{CoverageID: "c1"}}}
	mock.ExpectQuery(regexp.QuoteMeta(planningByID)).WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow(mustJSON(t, doc)))

	item, err := NewPlanningRepository(db).FindOne(context.Background(), "p1")
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if item == nil || item.Headline != "Topic" || len(item.Coverages) != 1 {
		t.Fatalf("unexpected planning: %+v", item)
	}
	expectMet(t, mock)
}

func TestPlanningReplaceMissing(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(planningUpdate)).
		WithArgs(sqlmock.AnyArg(), "ingested", "", sqlmock.AnyArg(), sqlmock.AnyArg(), "p1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := NewPlanningRepository(db).Replace(context.Background(), domain.Planning{ID: "p1", State: domain.StateIngested})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestPlanningPatchCoveragesCreatesAssignments(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	stored := domain.Planning{ID: "p1", ETag: "e1"}
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(planningForUpdate)).WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow(mustJSON(t, stored)))
	mock.ExpectExec(regexp.QuoteMeta(assignmentInsert)).
		WithArgs(sqlmock.AnyArg(), "p1", "c-new", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(planningUpdate)).
		WithArgs(sqlmock.AnyArg(), "", "", sqlmock.AnyArg(), sqlmock.AnyArg(), "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	coverages := []domain.Coverage{
		{CoverageID: "c-new", AssignedTo: &domain.AssignedTo{Desk: "desk1"}},
		{CoverageID: "c-old", AssignedTo: &domain.AssignedTo{AssignmentID: "a-old"}},
		{CoverageID: "c-open"},
	}
	item, err := NewPlanningRepository(db).PatchCoverages(context.Background(), "p1", coverages)
	if err != nil {
		t.Fatalf("PatchCoverages: %v", err)
	}
	if item.Coverages[0].AssignmentID() == "" {
		t.Fatalf("expected assignment id on new coverage")
	}
	if item.Coverages[1].AssignmentID() != "a-old" {
		t.Fatalf("existing assignment replaced: %q", item.Coverages[1].AssignmentID())
	}
	if coverages[0].AssignedTo.AssignmentID != "" {
		t.Fatalf("caller coverages mutated")
	}
	if item.ETag == "e1" {
		t.Fatalf("expected a fresh etag")
	}
	expectMet(t, mock)
}

func TestPlanningCancelPostEtagMismatch(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(planningForUpdate)).WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow(mustJSON(t, domain.Planning{ID: "p1", ETag: "e1"})))
	mock.ExpectRollback()

	if err := NewPlanningRepository(db).CancelPost(context.Background(), "p1", "e2"); err == nil {
		t.Fatalf("expected etag mismatch")
	}
	expectMet(t, mock)
}

func TestPlanningSpikeMissing(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(planningForUpdate)).WithArgs("p1").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := NewPlanningRepository(db).Spike(context.Background(), "p1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestEventPostState(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(eventPostState)).WithArgs("e1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "etag", "state", "pubstatus"}).AddRow("e1", "tag", "ingested", ""))
	mock.ExpectQuery(regexp.QuoteMeta(eventPostState)).WithArgs("e2").WillReturnError(sql.ErrNoRows)

	repo := NewEventRepository(db)
	st, err := repo.PostState(context.Background(), "e1")
	if err != nil {
		t.Fatalf("PostState: %v", err)
	}
	if st.State != domain.StateIngested || st.ETag != "tag" || st.PubStatus != "" {
		t.Fatalf("unexpected state: %+v", st)
	}

	missing, err := repo.PostState(context.Background(), "e2")
	if err != nil || missing != nil {
		t.Fatalf("expected nil state for missing event, got %+v %v", missing, err)
	}
	expectMet(t, mock)
}

func TestContentFindByURIsKeepsRepo(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	doc := domain.Content{ID: "item1", URI: "urn:newsml:stt.fi:20220402:259431", RewriteSequence: 0}
	mock.ExpectQuery(`SELECT repo, doc FROM content WHERE .*uri IN .*canonical_uri IN .*repo IN .* ORDER BY rewrite_sequence ASC, id ASC LIMIT 1`).
		WithArgs("urn:a", "urn:b", "urn:a", "urn:b", domain.RepoPublished).
		WillReturnRows(sqlmock.NewRows([]string{"repo", "doc"}).AddRow(domain.RepoPublished, mustJSON(t, doc)))

	item, err := NewContentRepository(db).FindByURIs(context.Background(), []string{"urn:a", "urn:b"}, []string{domain.RepoPublished})
	if err != nil {
		t.Fatalf("FindByURIs: %v", err)
	}
	if item == nil || item.ID != "item1" || item.Repo != domain.RepoPublished {
		t.Fatalf("unexpected content: %+v", item)
	}
	expectMet(t, mock)
}

func TestContentFindByURIsEmpty(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	item, err := NewContentRepository(db).FindByURIs(context.Background(), nil, []string{domain.RepoArchive})
	if err != nil || item != nil {
		t.Fatalf("expected no hit without uris, got %+v %v", item, err)
	}
	expectMet(t, mock)
}

func TestContentSaveStoresCanonicalURI(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO content`)).
		WithArgs("item1", "urn:newsml:stt.fi:20220402:259431", "urn:newsml:stt.fi:259431", domain.RepoArchive, 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := NewContentRepository(db).Save(context.Background(), domain.Content{ID: "item1", URI: "urn:newsml:stt.fi:20220402:259431"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	expectMet(t, mock)
}

func TestDeliveryPostReturnsInsertedIDs(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(deliveriesInsert)).
		WithArgs(
			sqlmock.AnyArg(), "p1", "c1", "urn:1", "", sqlmock.AnyArg(),
			sqlmock.AnyArg(), "p1", "c1", "urn:2", "", sqlmock.AnyArg(),
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("d1"))

	ids, err := NewDeliveryRepository(db).Post(context.Background(), []domain.Delivery{
		{PlanningID: "p1", CoverageID: "c1", ItemID: "urn:1"},
		{PlanningID: "p1", CoverageID: "c1", ItemID: "urn:2"},
	})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if len(ids) != 1 || ids[0] != "d1" {
		t.Fatalf("unexpected ids: %v", ids)
	}
	expectMet(t, mock)
}

func TestDeliveryFind(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	created := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, planning_id, coverage_id, item_id, assignment_id, created_at FROM deliveries WHERE`)).
		WithArgs("urn:1", "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "planning_id", "coverage_id", "item_id", "assignment_id", "created_at"}).
			AddRow("d1", "p1", "c1", "urn:1", "", created))

	rows, err := NewDeliveryRepository(db).Find(context.Background(), domain.DeliveryFilter{ItemIDs: []string{"urn:1"}, UnresolvedOnly: true})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(rows) != 1 || rows[0].PlanningID != "p1" || !rows[0].CreatedAt.Equal(created) {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	expectMet(t, mock)
}

func TestDeliveryDeleteRejectsEmptyFilter(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	if _, err := NewDeliveryRepository(db).Delete(context.Background(), domain.DeliveryFilter{}); !errors.Is(err, errEmptyFilter) {
		t.Fatalf("expected empty filter error, got %v", err)
	}
	expectMet(t, mock)
}

func TestDeliveryFinalizeLink(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(deliveriesDelete)).
		WithArgs("p1", "c1", "urn:a", "urn:b", "").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(linkInsert)).
		WithArgs("a1", "item1", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(contentStamp)).
		WithArgs("a1", "item1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := NewDeliveryRepository(db).FinalizeLink(context.Background(),
		domain.DeliveryFilter{PlanningID: "p1", CoverageID: "c1", ItemIDs: []string{"urn:a", "urn:b"}, UnresolvedOnly: true},
		domain.AssignmentLink{AssignmentID: "a1", ItemID: "item1"},
	)
	if err != nil {
		t.Fatalf("FinalizeLink: %v", err)
	}
	expectMet(t, mock)
}

func TestAssignmentLinkSkipArchiveUpdate(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(linkInsert)).
		WithArgs("a1", "item1", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := NewAssignmentRepository(db).Link(context.Background(), domain.AssignmentLink{AssignmentID: "a1", ItemID: "item1", SkipArchiveUpdate: true})
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	expectMet(t, mock)
}

func TestVocabularyItemsMissing(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(vocabularyItemsSQL)).WithArgs("stturgency").WillReturnError(sql.ErrNoRows)

	_, err := NewVocabularyRepository(db).Items(context.Background(), "stturgency")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestProviderFindOne(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	p := domain.IngestProvider{ID: "stt", Name: "STT", FeedParser: domain.ParserNewsML}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT doc FROM ingest_providers WHERE id = $1`)).WithArgs("stt").
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow(mustJSON(t, p)))

	got, err := NewProviderRepository(db).FindOne(context.Background(), "stt")
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if got == nil || got.FeedParser != domain.ParserNewsML {
		t.Fatalf("unexpected provider: %+v", got)
	}
	expectMet(t, mock)
}
