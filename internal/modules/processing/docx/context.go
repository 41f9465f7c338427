package docx

import (
	"strings"
	"unicode/utf8"

	"github.com/beevik/etree"
)

// commentRanges holds what a walk of document.xml learned about each comment
// range: the text strictly between its markers and the paragraph holding its
// start marker.
type commentRanges struct {
	captured  map[string]string
	startPara map[string]*etree.Element
}

// collectRanges walks the body once in document order. Every open range
// receives every text run it passes, so nested and overlapping ranges are
// handled without re-scanning.
func collectRanges(raw []byte) (*commentRanges, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, err
	}

	r := &commentRanges{
		captured:  make(map[string]string),
		startPara: make(map[string]*etree.Element),
	}
	root := doc.Root()
	if root == nil {
		return r, nil
	}

	open := make(map[string]*strings.Builder)
	write := func(s string) {
		for _, b := range open {
			b.WriteString(s)
		}
	}

	var walk func(el *etree.Element, para *etree.Element)
	walk = func(el *etree.Element, para *etree.Element) {
		for _, child := range el.ChildElements() {
			switch child.Tag {
			case "p":
				walk(child, child)
			case "commentRangeStart":
				id := strings.TrimSpace(attrValue(child, "id"))
				if _, started := r.startPara[id]; id == "" || started {
					continue
				}
				r.startPara[id] = para
				open[id] = &strings.Builder{}
			case "commentRangeEnd":
				id := strings.TrimSpace(attrValue(child, "id"))
				if b, ok := open[id]; ok {
					r.captured[id] = b.String()
					delete(open, id)
				}
			case "t":
				write(child.Text())
			case "tab", "br", "cr":
				write(" ")
			case "delText", "instrText":
			default:
				walk(child, para)
			}
			if child.Tag == "p" {
				write(" ")
			}
		}
	}
	walk(root, nil)
	return r, nil
}

// context resolves the excerpt for one comment: the text between its markers,
// else the paragraph holding the start marker, else the placeholder.
func (r *commentRanges) context(id string) string {
	text := normalizeText(r.captured[id])
	if text == "" {
		if para := r.startPara[id]; para != nil {
			text = normalizeText(paragraphText(para))
		}
	}
	if utf8.RuneCountInString(text) < minContextRunes {
		return ContextUnavailable
	}
	return truncateRunes(text, maxContextRunes)
}
