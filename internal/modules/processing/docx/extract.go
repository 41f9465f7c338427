package docx

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/firstword/responder/internal/models"
)

// ErrExtractionFailed marks a document that could not be read at all.
var ErrExtractionFailed = errors.New("extraction failed")

const (
	// ContextUnavailable replaces a context excerpt that could not be recovered.
	ContextUnavailable = "Context could not be extracted for this comment."

	defaultAuthor   = "Unknown Author"
	minContextRunes = 10
	maxContextRunes = 1000
)

// Extract lists the reviewer comments of a .docx in document order. A
// document without a comments part yields an empty list and no error.
func Extract(data []byte) ([]models.Comment, error) {
	return extractAt(data, time.Now())
}

func extractAt(data []byte, now time.Time) ([]models.Comment, error) {
	a, err := openArchive(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	raw, ok := a.file(partComments)
	if !ok {
		return []models.Comment{}, nil
	}
	comments, err := parseComments(raw, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExtractionFailed, partComments, err)
	}
	if len(comments) == 0 {
		return comments, nil
	}

	body, ok := a.file(partDocument)
	if !ok {
		for i := range comments {
			comments[i].Context = ContextUnavailable
		}
		return comments, nil
	}
	ranges, err := collectRanges(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExtractionFailed, partDocument, err)
	}
	for i := range comments {
		comments[i].Context = ranges.context(comments[i].ID)
	}
	return comments, nil
}

func parseComments(raw []byte, now time.Time) ([]models.Comment, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return nil, errors.New("empty comments part")
	}

	var out []models.Comment
	for _, ce := range commentElements(root) {
		el := ce.el
		author := strings.TrimSpace(attrValue(el, "author"))
		if author == "" {
			author = defaultAuthor
		}

		out = append(out, models.Comment{
			ID:       ce.id,
			Author:   author,
			Initials: strings.TrimSpace(attrValue(el, "initials")),
			Date:     parseCommentDate(attrValue(el, "date"), now),
			Text:     commentText(el),
		})
	}
	if out == nil {
		out = []models.Comment{}
	}
	return out, nil
}

type commentElement struct {
	id string
	el *etree.Element
}

// commentElements pairs every w:comment with the id it is known by. Missing
// or repeated ids are replaced with comment-<n> so that extraction and
// injection agree on the same names.
func commentElements(root *etree.Element) []commentElement {
	var out []commentElement
	seen := make(map[string]struct{})
	for _, el := range root.ChildElements() {
		if el.Tag != "comment" {
			continue
		}
		id := strings.TrimSpace(attrValue(el, "id"))
		if _, dup := seen[id]; id == "" || dup {
			id = fmt.Sprintf("comment-%d", len(out)+1)
		}
		seen[id] = struct{}{}
		out = append(out, commentElement{id: id, el: el})
	}
	return out
}

func commentText(el *etree.Element) string {
	paras := paragraphs(el)
	lines := make([]string, 0, len(paras))
	for _, p := range paras {
		lines = append(lines, decodeEntities(paragraphText(p)))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

var commentDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseCommentDate(raw string, now time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now
	}
	for _, layout := range commentDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return now
}

// Sentinel is the single record shown for a document without comments.
func Sentinel(now time.Time) models.Comment {
	return models.Comment{
		ID:       models.SentinelCommentID,
		Author:   "System",
		Date:     now,
		Text:     "No comments were found in this document. Add comments in Word and upload it again.",
		Context:  "The uploaded document does not contain any reviewer comments.",
		Sentinel: true,
	}
}
