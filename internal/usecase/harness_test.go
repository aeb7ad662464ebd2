package usecase

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"STTIngest/internal/domain"
	"STTIngest/internal/feed"
	"STTIngest/internal/infrastructure/cache"
	"STTIngest/internal/infrastructure/memory"
	"STTIngest/internal/infrastructure/parser"
	"STTIngest/internal/metrics"
	"STTIngest/internal/signals"
)

var (
	planningProvider = domain.IngestProvider{ID: "stt-planning", Name: "STT planning", FeedParser: domain.ParserPlanningML}
	newsProvider     = domain.IngestProvider{ID: "stt-news", Name: "STT news", FeedParser: domain.ParserNewsML}
	eventsProvider   = domain.IngestProvider{ID: "stt-events", Name: "STT events", FeedParser: domain.ParserEventsML}
)

type harness struct {
	store     *memory.Store
	bus       *signals.Bus
	ingester  *Ingester
	linker    *Linker
	publisher *Publisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	store.Providers.Put(planningProvider, newsProvider, eventsProvider)

	registry := feed.NewRegistry()
	registry.Register(parser.NewNewsML(nil, logger))
	registry.Register(parser.NewEventsML(nil, logger))
	registry.Register(parser.NewPlanningML(store.Vocabularies, nil, logger))

	rec := metrics.New(nil)
	bus := signals.NewBus(logger)
	linker := NewLinker(LinkerDeps{
		Planning:    store.Planning,
		Ledger:      store.Ledger,
		Search:      store.Content,
		Links:       store.Links,
		Assignments: store.Assignments,
		Providers:   store.Providers,
		Metrics:     rec,
		Logger:      logger,
	})
	linker.Register(bus)

	ingester := NewIngester(IngesterDeps{
		Parsers:  registry,
		Planning: store.Planning,
		Events:   store.Events,
		Content:  store.Content,
		Ledger:   store.Ledger,
		Guard:    cache.NewMemoryGuard(0),
		Signals:  bus,
		Metrics:  rec,
		Logger:   logger,
	})

	return &harness{
		store:     store,
		bus:       bus,
		ingester:  ingester,
		linker:    linker,
		publisher: NewPublisher(store.Content, bus, logger),
	}
}

func (h *harness) ingest(t *testing.T, provider domain.IngestProvider, raw string) Summary {
	t.Helper()
	summary, err := h.ingester.Ingest(context.Background(), provider, []byte(raw))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	return summary
}

func (h *harness) planning(t *testing.T, id string) *domain.Planning {
	t.Helper()
	item, err := h.store.Planning.FindOne(context.Background(), id)
	if err != nil {
		t.Fatalf("find planning: %v", err)
	}
	if item == nil {
		t.Fatalf("planning %s not stored", id)
	}
	return item
}

func (h *harness) content(t *testing.T, id string) *domain.Content {
	t.Helper()
	item, err := h.store.Content.FindOne(context.Background(), id)
	if err != nil || item == nil {
		t.Fatalf("content %s not stored: %v", id, err)
	}
	return item
}

const (
	planningGUID   = "urn:newsml:stt.fi:20220402:584717"
	planningID     = "urn:newsml:stt.fi:584717"
	contentGUID    = "urn:newsml:stt.fi:20220402:101868568"
	contentCanonID = "urn:newsml:stt.fi:101868568"
	eventGUID      = "urn:newsml:stt.fi:20220402:259431"
	eventID        = "urn:newsml:stt.fi:259431"
)

func planningXML(guid, body string) string {
	return `<planningItem xmlns="http://iptc.org/std/nar/2006-10-01/" guid="` + guid + `" version="1">
  <itemMeta><firstCreated>2022-04-01T08:00:00+03:00</firstCreated></itemMeta>
  <contentMeta><headline>Viron vaalit</headline></contentMeta>` + body + `
</planningItem>`
}

func removePlanningXML(guid string) string {
	return `<planningItem xmlns="http://iptc.org/std/nar/2006-10-01/" guid="` + guid + `" version="2">
  <itemMeta><signal qcode="sttinstruct:remove"/></itemMeta>
</planningItem>`
}

const textCoverageXML = `<newsCoverageSet>
  <newsCoverage id="ID_WORKREQUEST_1">
    <planning><g2contentType>text</g2contentType><headline>Vaalitulos</headline></planning>
  </newsCoverage>
</newsCoverageSet>`

const deliveredCoverageXML = `<newsCoverageSet>
  <newsCoverage id="ID_WORKREQUEST_1">
    <planning><g2contentType>text</g2contentType></planning>
    <delivery>
      <deliveredItemRef guidref="urn:newsml:stt.fi:20220402:101868568"/>
      <deliveredItemRef guidref="urn:newsml:stt.fi:101868568"/>
    </delivery>
  </newsCoverage>
</newsCoverageSet>`

const eventCoverageXML = `<newsCoverageSet>
  <newsCoverage id="ID_EVENT_259431">
    <planning><g2contentType>text</g2contentType><subject type="cpnat:event" qcode="urn:newsml:stt.fi:20220402:259431"/></planning>
  </newsCoverage>
  <newsCoverage id="ID_WORKREQUEST_1">
    <planning><g2contentType>text</g2contentType></planning>
  </newsCoverage>
</newsCoverageSet>`

func newsXML(guid, subjects string) string {
	return `<newsItem xmlns="http://iptc.org/std/nar/2006-10-01/" guid="` + guid + `" version="1">
  <itemMeta>
    <itemClass qcode="ninat:text"/>
    <firstCreated>2022-04-02T09:00:00+03:00</firstCreated>
  </itemMeta>
  <contentMeta>
    <altId>101868568</altId>
    <language tag="fi"/>
    <headline>Vaalitulos selvisi</headline>
    <slugline>VIRO-TULOS</slugline>
    <genre qcode="sttgenre:1"><name>Pääjuttu</name></genre>
    <subject qcode="stt-topics:584717"/>` + subjects + `
  </contentMeta>
  <contentSet><inlineXML contenttype="application/xhtml+xml"><html xmlns="http://www.w3.org/1999/xhtml"><body><p>Teksti</p></body></html></inlineXML></contentSet>
</newsItem>`
}

const eventXML = `<conceptItem xmlns="http://iptc.org/std/nar/2006-10-01/" guid="urn:newsml:stt.fi:20220402:259431">
  <concept><name>Viron vaalit</name></concept>
</conceptItem>`
