package docx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const (
	commentsPartName    = "/word/comments.xml"
	commentsContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.comments+xml"
	commentsRelType     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/comments"
	commentsRelTarget   = "comments.xml"
)

// patchManifests makes sure the package still declares the comments part. A
// failure on either manifest is reported as a warning.
func patchManifests(a *archive) []string {
	var warnings []string
	if err := patchPart(a, partContentTypes, ensureCommentsOverride); err != nil {
		warnings = append(warnings, fmt.Sprintf("content types not updated: %v", err))
	}
	if err := patchPart(a, partDocumentRels, ensureCommentsRelationship); err != nil {
		warnings = append(warnings, fmt.Sprintf("document relationships not updated: %v", err))
	}
	return warnings
}

func patchPart(a *archive, name string, patch func(root *etree.Element) bool) error {
	raw, ok := a.file(name)
	if !ok {
		return fmt.Errorf("%s missing", name)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	root := doc.Root()
	if root == nil {
		return fmt.Errorf("parse %s: empty document", name)
	}
	if !patch(root) {
		return nil
	}
	out, err := doc.WriteToBytes()
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	a.set(name, out)
	return nil
}

func ensureCommentsOverride(root *etree.Element) bool {
	for _, el := range root.ChildElements() {
		if el.Tag == "Override" && strings.EqualFold(attrValue(el, "PartName"), commentsPartName) {
			return false
		}
	}
	o := root.CreateElement(qualified(root.Space, "Override"))
	o.CreateAttr("PartName", commentsPartName)
	o.CreateAttr("ContentType", commentsContentType)
	return true
}

func ensureCommentsRelationship(root *etree.Element) bool {
	next := 1
	for _, el := range root.ChildElements() {
		if el.Tag != "Relationship" {
			continue
		}
		if attrValue(el, "Type") == commentsRelType {
			return false
		}
		if n, ok := relNumber(attrValue(el, "Id")); ok && n >= next {
			next = n + 1
		}
	}
	r := root.CreateElement(qualified(root.Space, "Relationship"))
	r.CreateAttr("Id", "rId"+strconv.Itoa(next))
	r.CreateAttr("Type", commentsRelType)
	r.CreateAttr("Target", commentsRelTarget)
	return true
}

func relNumber(id string) (int, bool) {
	rest, ok := strings.CutPrefix(id, "rId")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

func qualified(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}
