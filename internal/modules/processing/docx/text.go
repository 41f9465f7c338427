package docx

import (
	"strings"
	"unicode/utf8"

	"github.com/beevik/etree"
)

// entityDecoder undoes one layer of the standard XML escapes. The XML parser
// already decodes the markup itself; text that was escaped twice by the
// authoring tool still carries literal entities.
var entityDecoder = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&quot;", `"`,
	"&apos;", "'",
)

func decodeEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return entityDecoder.Replace(s)
}

// normalizeText decodes leftover entities and collapses whitespace runs.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(decodeEntities(s)), " ")
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max])) + "..."
}

// paragraphText renders a w:p the way Word shows it: text runs, tabs and
// line breaks. Deleted text and field instructions are skipped.
func paragraphText(p *etree.Element) string {
	var b strings.Builder
	appendRunText(&b, p)
	return b.String()
}

func appendRunText(b *strings.Builder, el *etree.Element) {
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "t":
			b.WriteString(child.Text())
		case "tab":
			b.WriteByte('\t')
		case "br", "cr":
			b.WriteByte('\n')
		case "delText", "instrText", "pPr", "rPr":
		default:
			appendRunText(b, child)
		}
	}
}

// paragraphs returns the w:p elements under el in document order, without
// descending into a paragraph once found.
func paragraphs(el *etree.Element) []*etree.Element {
	var out []*etree.Element
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, child := range e.ChildElements() {
			if child.Tag == "p" {
				out = append(out, child)
				continue
			}
			walk(child)
		}
	}
	walk(el)
	return out
}

func attrValue(el *etree.Element, key string) string {
	for _, a := range el.Attr {
		if a.Key == key && a.Space != "xmlns" {
			return a.Value
		}
	}
	return ""
}
