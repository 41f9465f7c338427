package markdown

import (
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// Drafted replies come back as markdown; Word comments only hold plain runs.
var markdownParser = goldmark.New(
	goldmark.WithExtensions(
		extension.Table,
		extension.Strikethrough,
		extension.Linkify,
	),
).Parser()

// PlainLines reduces markdown to the lines a reader would see: one line per
// paragraph, heading, list item, table row or code line. Emphasis markers,
// link targets and raw HTML are dropped; list items keep a "- " or "N. "
// prefix. Blank lines are removed.
func PlainLines(src string) []string {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil
	}
	source := []byte(src)
	root := markdownParser.Parse(text.NewReader(source))

	var lines []string
	emit := func(s string) {
		for _, l := range strings.Split(s, "\n") {
			if l = strings.TrimSpace(l); l != "" {
				lines = append(lines, l)
			}
		}
	}

	var walkBlock func(n ast.Node, prefix string)
	walkBlock = func(n ast.Node, prefix string) {
		switch node := n.(type) {
		case *ast.Paragraph, *ast.TextBlock, *ast.Heading:
			emit(prefix + inlineText(node, source))
			return
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			segs := node.Lines()
			for i := 0; i < segs.Len(); i++ {
				seg := segs.At(i)
				emit(string(seg.Value(source)))
			}
			return
		case *ast.HTMLBlock, *ast.ThematicBreak:
			return
		case *ast.List:
			index := node.Start
			for child := node.FirstChild(); child != nil; child = child.NextSibling() {
				marker := "- "
				if node.IsOrdered() {
					marker = strconv.Itoa(index) + ". "
					index++
				}
				walkListItem(child, marker, walkBlock)
			}
			return
		case *extast.TableRow, *extast.TableHeader:
			cells := make([]string, 0, node.ChildCount())
			for cell := node.FirstChild(); cell != nil; cell = cell.NextSibling() {
				cells = append(cells, strings.TrimSpace(inlineText(cell, source)))
			}
			emit(strings.Join(cells, " | "))
			return
		}
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			walkBlock(child, prefix)
		}
	}
	walkBlock(root, "")
	return lines
}

// PlainText is PlainLines joined with newlines.
func PlainText(src string) string {
	return strings.Join(PlainLines(src), "\n")
}

// walkListItem gives the marker to the first block of an item only.
func walkListItem(item ast.Node, marker string, walk func(ast.Node, string)) {
	first := true
	for child := item.FirstChild(); child != nil; child = child.NextSibling() {
		if first {
			walk(child, marker)
			first = false
			continue
		}
		walk(child, "  ")
	}
}

func inlineText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := node.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			switch {
			case t.HardLineBreak():
				b.WriteByte('\n')
			case t.SoftLineBreak():
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.AutoLink:
			b.Write(t.URL(source))
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
