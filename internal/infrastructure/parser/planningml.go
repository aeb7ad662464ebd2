package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"STTIngest/internal/domain"
	"STTIngest/internal/feed"
	"STTIngest/internal/ident"
	"STTIngest/internal/ports"
)

// UrgencyVocabulary maps numeric urgency codes to display subjects.
const UrgencyVocabulary = "stturgency"

const eventSubjectType = "cpnat:event"

// PlanningML parses STT PlanningML planning items.
type PlanningML struct {
	vocabularies ports.Vocabularies
	loc          *time.Location
	logger       *slog.Logger
}

var _ feed.Parser = (*PlanningML)(nil)

// NewPlanningML builds the planning parser. vocabularies may be nil, in which
// case urgency is not translated.
func NewPlanningML(vocabularies ports.Vocabularies, loc *time.Location, logger *slog.Logger) *PlanningML {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlanningML{vocabularies: vocabularies, loc: loc, logger: logger}
}

func (p *PlanningML) Name() string {
	return domain.ParserPlanningML
}

func (p *PlanningML) Parse(ctx context.Context, doc *etree.Document, _ domain.IngestProvider) (feed.Batch, error) {
	batch := feed.Batch{Remove: HasRemoveSignal(doc)}
	for _, el := range items(doc, "planningItem") {
		batch.Plannings = append(batch.Plannings, p.parseItem(ctx, el))
	}
	if len(batch.Plannings) == 0 {
		return batch, fmt.Errorf("no planningItem element")
	}
	return batch, nil
}

func (p *PlanningML) parseItem(ctx context.Context, el *etree.Element) domain.Planning {
	guid := el.SelectAttrValue("guid", "")
	item := domain.Planning{
		GUID: guid,
		Type: domain.TypePlanning,
	}
	if guid != "" {
		item.Extra.SttTopics = ident.LastSegment(guid)
	}

	if cm := el.SelectElement("contentMeta"); cm != nil {
		item.Headline = childText(cm, "headline")
		item.Slugline = childText(cm, "slugline")
		item.Description = childText(cm, "description")
		item.Subject = parseSubjects(cm)
		if urgency, ok := childInt(cm, "urgency"); ok {
			if subject, found := p.urgencySubject(ctx, urgency); found {
				item.Subject = append(item.Subject, subject)
			}
		}
	}

	for _, nc := range el.FindElements("newsCoverageSet/newsCoverage") {
		if eventID := linkedEventID(nc); eventID != "" {
			if item.EventItem == "" {
				item.EventItem = eventID
				item.Extra.SttEvents = ident.LastSegment(eventID)
			}
			continue
		}

		coverage := p.parseCoverage(nc)
		item.Coverages = append(item.Coverages, coverage)

		var refs []string
		for _, ref := range nc.FindElements("delivery/deliveredItemRef") {
			if guidref := ref.SelectAttrValue("guidref", ""); guidref != "" {
				refs = append(refs, guidref)
			}
		}
		if len(refs) > 0 {
			item.Deliveries = append(item.Deliveries, domain.DeliveryRef{
				CoverageID: coverage.CoverageID,
				ItemIDs:    refs,
			})
		}
	}

	item.PlanningDate = planningDate(item.Coverages)
	if item.PlanningDate == nil {
		if meta := el.SelectElement("itemMeta"); meta != nil {
			item.PlanningDate = childTime(meta, "firstCreated", p.loc)
			if item.PlanningDate == nil {
				item.PlanningDate = childTime(meta, "versionCreated", p.loc)
			}
		}
	}
	return item
}

func (p *PlanningML) parseCoverage(nc *etree.Element) domain.Coverage {
	coverage := domain.Coverage{
		CoverageID:     nc.SelectAttrValue("id", ""),
		WorkflowStatus: domain.StateDraft,
	}

	planning := nc.SelectElement("planning")
	if planning == nil {
		return coverage
	}

	contentType := childText(planning, "g2contentType")
	if _, after, ok := strings.Cut(contentType, ":"); ok {
		contentType = after
	}
	coverage.Planning = domain.CoveragePlanning{
		G2ContentType: contentType,
		Scheduled:     childTime(planning, "scheduled", p.loc),
		Headline:      childText(planning, "headline"),
		Slugline:      childText(planning, "slugline"),
		Description:   childText(planning, "description"),
		Subject:       parseSubjects(planning),
	}
	for _, genre := range planning.SelectElements("genre") {
		if _, code, ok := strings.Cut(genre.SelectAttrValue("qcode", ""), ":"); ok && code != "" {
			coverage.Planning.Genre = append(coverage.Planning.Genre, domain.Genre{QCode: code, Name: childText(genre, "name")})
		}
	}
	return coverage
}

func (p *PlanningML) urgencySubject(ctx context.Context, urgency int) (domain.Subject, bool) {
	if p.vocabularies == nil {
		return domain.Subject{}, false
	}

	entries, err := p.vocabularies.Items(ctx, UrgencyVocabulary)
	if err != nil {
		p.logger.Warn("urgency vocabulary unavailable", "error", err)
		return domain.Subject{}, false
	}

	qcode := UrgencyVocabulary + "-" + strconv.Itoa(urgency)
	for _, v := range entries {
		if v.QCode == qcode {
			return domain.Subject{QCode: v.QCode, Name: v.Name, Scheme: UrgencyVocabulary}, true
		}
	}
	return domain.Subject{}, false
}

// linkedEventID returns the qcode of the first event typed subject of a
// coverage entry, or "" when the entry plans real work.
func linkedEventID(nc *etree.Element) string {
	planning := nc.SelectElement("planning")
	if planning == nil {
		return ""
	}
	for _, subject := range planning.SelectElements("subject") {
		qcode := subject.SelectAttrValue("qcode", "")
		if qcode != "" && subject.SelectAttrValue("type", "") == eventSubjectType {
			return qcode
		}
	}
	return ""
}

func planningDate(coverages []domain.Coverage) *time.Time {
	var earliest *time.Time
	for _, c := range coverages {
		if s := c.Planning.Scheduled; s != nil && (earliest == nil || s.Before(*earliest)) {
			ts := *s
			earliest = &ts
		}
	}
	return earliest
}
