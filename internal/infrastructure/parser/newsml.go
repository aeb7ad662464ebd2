package parser

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/beevik/etree"

	"STTIngest/internal/domain"
	"STTIngest/internal/feed"
)

const notAvailable = "N/A"

// Location qcode prefixes and the place field each one fills.
var locationPrefixes = map[string]string{
	"sttcity":     "locality",
	"sttstate":    "state",
	"sttcountry":  "country",
	"sttworldreg": "world_region",
}

const locationMetaScheme = "sttlocmeta"

// NewsML parses STT NewsML-G2 news items into content.
type NewsML struct {
	loc    *time.Location
	logger *slog.Logger
}

var _ feed.Parser = (*NewsML)(nil)

// NewNewsML builds the content parser. Datetimes without an offset are read in loc.
func NewNewsML(loc *time.Location, logger *slog.Logger) *NewsML {
	if logger == nil {
		logger = slog.Default()
	}
	return &NewsML{loc: loc, logger: logger}
}

// Name returns the registry key.
func (p *NewsML) Name() string {
	return domain.ParserNewsML
}

// Parse extracts every newsItem of the document.
func (p *NewsML) Parse(_ context.Context, doc *etree.Document, _ domain.IngestProvider) (feed.Batch, error) {
	batch := feed.Batch{Remove: HasRemoveSignal(doc)}
	for _, el := range items(doc, "newsItem") {
		item, err := p.parseItem(el)
		if err != nil {
			return batch, err
		}
		batch.Contents = append(batch.Contents, item)
	}
	if len(batch.Contents) == 0 && !batch.Remove {
		return batch, fmt.Errorf("no newsItem element")
	}
	return batch, nil
}

func (p *NewsML) parseItem(el *etree.Element) (domain.Content, error) {
	guid := el.SelectAttrValue("guid", "")
	item := domain.Content{
		GUID:    guid,
		URI:     guid,
		Version: el.SelectAttrValue("version", ""),
		Type:    domain.TypeText,
	}

	if meta := el.SelectElement("itemMeta"); meta != nil {
		if class := meta.SelectElement("itemClass"); class != nil && strings.HasSuffix(class.SelectAttrValue("qcode", ""), ":picture") {
			item.Type = domain.TypePicture
		}
		item.FirstCreated = childTime(meta, "firstCreated", p.loc)
		item.VersionCreated = childTime(meta, "versionCreated", p.loc)
		if link := meta.SelectElement("link"); link != nil {
			item.Extra.Filename = childText(link, "filename")
		}
	}

	if cm := el.SelectElement("contentMeta"); cm != nil {
		p.parseContentMeta(cm, &item)
	}

	if body := el.FindElement("contentSet/inlineXML/html/body"); body != nil {
		rendered, err := renderBody(body)
		if err != nil {
			return item, fmt.Errorf("news item %s body: %w", guid, err)
		}
		item.BodyHTML = rendered
	}

	if item.URI != "" {
		item.Extra.NewsItemGUID = item.URI
	}
	return item, nil
}

func (p *NewsML) parseContentMeta(cm *etree.Element, item *domain.Content) {
	item.Headline = childText(cm, "headline")
	item.Slugline = childText(cm, "slugline")
	if lang := cm.SelectElement("language"); lang != nil {
		item.Language = lang.SelectAttrValue("tag", "")
	}
	if urgency, ok := childInt(cm, "urgency"); ok {
		item.Urgency = urgency
	}
	if priority, ok := childInt(cm, "priority"); ok {
		item.Priority = &priority
	}

	item.Extra.SttIDTypeTextID = childText(cm, "altId")
	if creator := cm.SelectElement("creator"); creator != nil {
		item.Extra.CreatorName = childText(creator, "name")
		item.Extra.CreatorID = creator.SelectAttrValue("qcode", "")
	}
	if topics := prefixedCodes(cm, "stt-topics"); len(topics) > 0 {
		item.Extra.SttTopics = topics[len(topics)-1]
	}
	if events := prefixedCodes(cm, "stt-events"); len(events) > 0 {
		item.Extra.SttEvents = events[len(events)-1]
	}
	for _, rating := range cm.SelectElements("rating") {
		if rating.SelectAttrValue("ratingtype", "") != "sttrating:webprio" {
			continue
		}
		if value, err := strconv.Atoi(rating.SelectAttrValue("value", "")); err == nil {
			item.Extra.WebPrio = &value
		}
	}

	for _, genre := range cm.SelectElements("genre") {
		qcode := genre.SelectAttrValue("qcode", "")
		name := childText(genre, "name")
		switch qcode {
		case "sttdescription:imagetype":
			imageType(item).ID = name
		case "sttdescription:imagetypename":
			imageType(item).Name = name
		default:
			if _, code, ok := strings.Cut(qcode, ":"); ok && code != "" {
				item.Genre = append(item.Genre, domain.Genre{QCode: code, Name: name})
			}
		}
	}

	item.Subject = parseSubjects(cm)
	item.Place = parsePlaces(cm)
	item.Subject = append(item.Subject, placeSubjects(item.Place, item.Subject)...)
}

func imageType(item *domain.Content) *domain.ImageType {
	if item.Extra.ImageType == nil {
		item.Extra.ImageType = &domain.ImageType{}
	}
	return item.Extra.ImageType
}

func parsePlaces(cm *etree.Element) []domain.Place {
	var places []domain.Place
	for _, located := range cm.SelectElements("located") {
		var place domain.Place
		setLocation(&place, located)
		for _, broader := range located.SelectElements("broader") {
			setLocation(&place, broader)
		}
		places = append(places, place)
	}
	return places
}

func setLocation(place *domain.Place, el *etree.Element) {
	prefix, code, ok := strings.Cut(el.SelectAttrValue("qcode", ""), ":")
	if !ok {
		return
	}
	name := childText(el, "name")

	if prefix == locationMetaScheme {
		if place.QCode == "" {
			place.Name, place.QCode, place.Scheme = name, code, prefix
		}
		return
	}

	switch locationPrefixes[prefix] {
	case "locality":
		place.Locality, place.LocalityCode = name, code
		if place.Name == "" {
			place.Name = name
		}
	case "state":
		place.State, place.StateCode = name, code
	case "country":
		place.Country, place.CountryCode = name, code
	case "world_region":
		place.WorldRegion, place.WorldRegionCode = name, code
	}
}

// placeSubjects turns located places into subjects, skipping N/A values and
// names already present.
func placeSubjects(places []domain.Place, existing []domain.Subject) []domain.Subject {
	var out []domain.Subject
	present := func(name string) bool {
		return domain.HasSubjectName(existing, name) || domain.HasSubjectName(out, name)
	}

	for _, place := range places {
		if place.Scheme == locationMetaScheme && place.Name != "" && place.QCode != "" {
			out = append(out, domain.Subject{Name: place.Name, QCode: place.QCode, Scheme: place.Scheme})
		}
		fields := []struct{ scheme, name, code string }{
			{"locality", place.Locality, place.LocalityCode},
			{"state", place.State, place.StateCode},
			{"country", place.Country, place.CountryCode},
			{"world_region", place.WorldRegion, place.WorldRegionCode},
		}
		for _, f := range fields {
			if f.name == "" || f.name == notAvailable || present(f.name) {
				continue
			}
			out = append(out, domain.Subject{Name: f.name, QCode: f.code, Scheme: f.scheme})
		}
	}
	return out
}

const escapedEndash = "&lt;endash&gt;-&lt;/endash&gt;"

// renderBody converts the inline XHTML body to stored HTML: scripts dropped,
// pre blocks turned into paragraphs and links opened in a new tab.
func renderBody(body *etree.Element) (string, error) {
	fragment := etree.NewDocument()
	fragment.SetRoot(body.Copy())
	markup, err := fragment.WriteToString()
	if err != nil {
		return "", fmt.Errorf("serialize body: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("read body html: %w", err)
	}
	sel := doc.Find("body")
	sel.Find("script, style, iframe").Remove()
	sel.Find("pre").Each(func(_ int, pre *goquery.Selection) {
		inner, _ := pre.Html()
		pre.ReplaceWithHtml("<p>" + inner + "</p>")
	})
	sel.Find("a").SetAttr("target", "_blank")

	var parts []string
	sel.Children().Each(func(_ int, child *goquery.Selection) {
		if out, err := goquery.OuterHtml(child); err == nil {
			parts = append(parts, out)
		}
	})

	var content string
	if len(parts) > 0 {
		content = strings.Join(parts, "\n")
	} else if text := strings.TrimSpace(sel.Text()); text != "" {
		content = "<p>" + html.EscapeString(text) + "</p>"
	}
	return strings.ReplaceAll(content, escapedEndash, "-"), nil
}
