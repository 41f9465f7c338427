package docx

import (
	"errors"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/beevik/etree"
	"github.com/firstword/responder/internal/models"
)

// ErrNoCommentsToPatch is returned when the document has no comments part to
// attach replies to.
var ErrNoCommentsToPatch = errors.New("document has no comments part")

const (
	nsWordML   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsWordML14 = "http://schemas.microsoft.com/office/word/2010/wordml"

	replyLabel = "REPLY: "
	replyStyle = "CommentText"
)

// InjectReplies appends every non-empty response to its source comment as a
// reply paragraph and returns the patched document. Warnings describe
// responses that could not be placed and manifest fixes that failed; neither
// aborts the export.
func InjectReplies(comments []models.Comment, original []byte) ([]byte, []string, error) {
	a, err := openArchive(original)
	if err != nil {
		return nil, nil, err
	}
	raw, ok := a.file(partComments)
	if !ok {
		return nil, nil, ErrNoCommentsToPatch
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", partComments, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, nil, fmt.Errorf("parse %s: empty document", partComments)
	}

	prefix := root.Space
	ensureNamespace(root, prefixOrDefault(prefix, "w"), nsWordML)
	ensureNamespace(root, "w14", nsWordML14)

	byID := make(map[string]*etree.Element)
	for _, ce := range commentElements(root) {
		byID[ce.id] = ce.el
	}

	var warnings []string
	for _, c := range comments {
		if !c.HasResponse() {
			continue
		}
		el, ok := byID[c.ID]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("comment %s not found in document, reply skipped", c.ID))
			continue
		}
		el.AddChild(replyParagraph(prefix, c))
	}

	patched, err := doc.WriteToBytes()
	if err != nil {
		return nil, nil, fmt.Errorf("write %s: %w", partComments, err)
	}
	a.set(partComments, patched)

	warnings = append(warnings, patchManifests(a)...)

	out, err := a.bytes()
	if err != nil {
		return nil, nil, err
	}
	return out, warnings, nil
}

func replyParagraph(prefix string, c models.Comment) *etree.Element {
	name := func(local string) string { return qualified(prefix, local) }

	p := etree.NewElement(name("p"))
	p.CreateAttr("w14:paraId", paraID(c.ID, c.Response))

	pPr := p.CreateElement(name("pPr"))
	pPr.CreateElement(name("pStyle")).CreateAttr(name("val"), replyStyle)

	label := p.CreateElement(name("r"))
	label.CreateElement(name("rPr")).CreateElement(name("b"))
	textElement(label, name("t"), replyLabel)

	body := p.CreateElement(name("r"))
	for i, line := range replyLines(c.Response) {
		if i > 0 {
			body.CreateElement(name("br"))
		}
		textElement(body, name("t"), line)
	}
	return p
}

func textElement(run *etree.Element, tag, s string) {
	t := run.CreateElement(tag)
	t.CreateAttr("xml:space", "preserve")
	t.SetText(s)
}

// replyLines splits a response into the lines of the reply exactly as typed.
func replyLines(response string) []string {
	return strings.Split(strings.ReplaceAll(response, "\r\n", "\n"), "\n")
}

// paraID derives a stable w14:paraId. Word requires eight hex digits below
// 0x80000000.
func paraID(id, response string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(response))
	return fmt.Sprintf("%08X", h.Sum32()&0x7FFFFFFF)
}

func ensureNamespace(root *etree.Element, prefix, uri string) {
	for _, a := range root.Attr {
		if a.Space == "xmlns" && a.Key == prefix {
			return
		}
	}
	root.CreateAttr("xmlns:"+prefix, uri)
}

func prefixOrDefault(prefix, fallback string) string {
	if prefix == "" {
		return fallback
	}
	return prefix
}
