package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/beevik/etree"

	"STTIngest/internal/domain"
	"STTIngest/internal/feed"
	"STTIngest/internal/ident"
)

// EventsML parses STT EventsML-G2 concept items into events.
type EventsML struct {
	loc    *time.Location
	logger *slog.Logger
}

var _ feed.Parser = (*EventsML)(nil)

func NewEventsML(loc *time.Location, logger *slog.Logger) *EventsML {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventsML{loc: loc, logger: logger}
}

func (p *EventsML) Name() string {
	return domain.ParserEventsML
}

func (p *EventsML) Parse(_ context.Context, doc *etree.Document, _ domain.IngestProvider) (feed.Batch, error) {
	batch := feed.Batch{Remove: HasRemoveSignal(doc)}
	for _, el := range items(doc, "conceptItem") {
		batch.Events = append(batch.Events, p.parseItem(el))
	}
	if len(batch.Events) == 0 {
		return batch, fmt.Errorf("no conceptItem element")
	}
	return batch, nil
}

func (p *EventsML) parseItem(el *etree.Element) domain.Event {
	guid := el.SelectAttrValue("guid", "")
	event := domain.Event{
		GUID: guid,
		Type: domain.TypeEvent,
	}

	if cm := el.SelectElement("contentMeta"); cm != nil {
		event.Subject = parseSubjects(cm)
		if topics := prefixedCodes(cm, "stt-topics"); len(topics) > 0 {
			event.Extra.SttTopics = topics[len(topics)-1]
		}
	}

	if concept := el.SelectElement("concept"); concept != nil {
		event.Name = childText(concept, "name")
		event.Definition = childText(concept, "definition")
		if dates := concept.FindElement("eventDetails/dates"); dates != nil {
			event.Start = childTime(dates, "start", p.loc)
			event.End = childTime(dates, "end", p.loc)
		}
	}

	if guid != "" {
		event.Extra.SttEvents = ident.LastSegment(guid)
	}
	return event
}
