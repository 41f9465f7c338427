package docx

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/firstword/responder/internal/models"
	godocx "github.com/fumiama/go-docx"
)

const (
	originalExcerptRunes = 3000
	noResponseText       = "No response provided."
)

// BuildSummary writes a standalone document listing every comment with its
// context and response. It is the export of last resort when the original
// cannot be patched.
func BuildSummary(comments []models.Comment, original []byte, filename string, now time.Time) ([]byte, error) {
	doc := godocx.New().WithDefaultTheme().WithA4Page()

	doc.AddParagraph().AddText("Comment Responses").Bold().Size("36")
	meta := doc.AddParagraph()
	meta.AddText("Source document: " + filename).Italic()
	doc.AddParagraph().AddText("Generated: " + now.Format("2006-01-02 15:04:05")).Italic()

	n := 0
	for _, c := range comments {
		if c.Sentinel {
			continue
		}
		n++
		doc.AddParagraph()
		doc.AddParagraph().AddText(fmt.Sprintf("Comment %d", n)).Bold().Size("28")
		doc.AddParagraph().AddText(fmt.Sprintf("%s, %s", c.Author, c.Date.Format("2006-01-02 15:04"))).Color("595959")

		labeled(doc, "Comment: ", c.Text)
		labeled(doc, "Context: ", c.Context)
		resp := c.Response
		if !c.HasResponse() {
			resp = noResponseText
		}
		labeled(doc, "Response: ", resp)
	}
	if n == 0 {
		doc.AddParagraph().AddText("No comments were found in this document.")
	}

	if text, err := PlainText(original); err == nil && strings.TrimSpace(text) != "" {
		doc.AddParagraph()
		doc.AddParagraph().AddText("Original document text").Bold().Size("28")
		for _, line := range strings.Split(truncateRunes(text, originalExcerptRunes), "\n") {
			doc.AddParagraph().AddText(line)
		}
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}
	return buf.Bytes(), nil
}

// labeled writes body one paragraph per line, the label leading the first.
func labeled(doc *godocx.Docx, label, body string) {
	for i, line := range replyLines(body) {
		p := doc.AddParagraph()
		if i == 0 {
			p.AddText(label).Bold()
		}
		p.AddText(line)
	}
}

// PlainText returns the body text of a .docx, one line per paragraph.
func PlainText(data []byte) (string, error) {
	a, err := openArchive(data)
	if err != nil {
		return "", err
	}
	raw, ok := a.file(partDocument)
	if !ok {
		return "", fmt.Errorf("%s missing", partDocument)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return "", fmt.Errorf("parse %s: %w", partDocument, err)
	}
	root := doc.Root()
	if root == nil {
		return "", nil
	}
	var lines []string
	for _, p := range paragraphs(root) {
		lines = append(lines, decodeEntities(paragraphText(p)))
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}
