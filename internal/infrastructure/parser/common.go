package parser

import (
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"STTIngest/internal/domain"
)

// RemoveSignal is the itemMeta signal qcode asking for a retraction.
const RemoveSignal = "sttinstruct:remove"

// HasRemoveSignal reports whether the document carries the remove signal.
func HasRemoveSignal(doc *etree.Document) bool {
	if doc == nil {
		return false
	}
	for _, signal := range doc.FindElements("//itemMeta/signal") {
		if signal.SelectAttrValue("qcode", "") == RemoveSignal {
			return true
		}
	}
	return false
}

// subjectSchemes maps qcode prefixes to subject schemes. An empty scheme keeps
// the subject in the default IPTC vocabulary.
var subjectSchemes = map[string]string{
	"stt-subj":      "",
	"sttdepartment": "sttdepartment",
	"sttsubj":       "sttsubj",
	"sttversion":    "sttversion",
}

func parseSubjects(parent *etree.Element) []domain.Subject {
	if parent == nil {
		return nil
	}

	var subjects []domain.Subject
	for _, el := range parent.SelectElements("subject") {
		prefix, code, ok := strings.Cut(el.SelectAttrValue("qcode", ""), ":")
		if !ok || code == "" {
			continue
		}
		scheme, known := subjectSchemes[prefix]
		if !known {
			continue
		}
		subjects = append(subjects, domain.Subject{
			QCode:  code,
			Name:   childText(el, "name"),
			Scheme: scheme,
		})
	}
	return subjects
}

// prefixedCodes returns the codes of subjects whose qcode starts with prefix.
func prefixedCodes(parent *etree.Element, prefix string) []string {
	if parent == nil {
		return nil
	}

	var out []string
	for _, el := range parent.SelectElements("subject") {
		p, code, ok := strings.Cut(el.SelectAttrValue("qcode", ""), ":")
		if ok && p == prefix && code != "" {
			out = append(out, code)
		}
	}
	return out
}

func childText(el *etree.Element, tag string) string {
	if el == nil {
		return ""
	}
	child := el.SelectElement(tag)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.Text())
}

func childInt(el *etree.Element, tag string) (int, bool) {
	raw := childText(el, tag)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTime reads an XML datetime. Values without an offset are local to loc.
func parseTime(value string, loc *time.Location) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		utc := t.UTC()
		return &utc
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}

func childTime(el *etree.Element, tag string, loc *time.Location) *time.Time {
	return parseTime(childText(el, tag), loc)
}

// items returns the root element when it has the tag, otherwise every descendant with it.
func items(doc *etree.Document, tag string) []*etree.Element {
	root := doc.Root()
	if root == nil {
		return nil
	}
	if root.Tag == tag {
		return []*etree.Element{root}
	}
	return root.FindElements("//" + tag)
}
