package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`

	documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/><Relationship Id="rId7" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/settings" Target="settings.xml"/></Relationships>`
)

type fixtureComment struct {
	id, author, initials, date string
	paras                      []string
}

// commentsXML renders a w:comments part.
func commentsXML(comments ...fixtureComment) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	b.WriteString(`<w:comments xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">`)
	for _, c := range comments {
		b.WriteString(`<w:comment`)
		if c.id != "" {
			fmt.Fprintf(&b, ` w:id="%s"`, c.id)
		}
		if c.author != "" {
			fmt.Fprintf(&b, ` w:author="%s"`, c.author)
		}
		if c.initials != "" {
			fmt.Fprintf(&b, ` w:initials="%s"`, c.initials)
		}
		if c.date != "" {
			fmt.Fprintf(&b, ` w:date="%s"`, c.date)
		}
		b.WriteString(`>`)
		for _, p := range c.paras {
			fmt.Fprintf(&b, `<w:p><w:pPr><w:pStyle w:val="CommentText"/></w:pPr><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, p)
		}
		b.WriteString(`</w:comment>`)
	}
	b.WriteString(`</w:comments>`)
	return b.String()
}

// documentXML wraps body markup in a w:document.
func documentXML(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`
}

func para(inner string) string { return `<w:p>` + inner + `</w:p>` }

func run(text string) string { return `<w:r><w:t xml:space="preserve">` + text + `</w:t></w:r>` }

func start(id string) string { return `<w:commentRangeStart w:id="` + id + `"/>` }

func end(id string) string { return `<w:commentRangeEnd w:id="` + id + `"/>` }

type entry struct {
	name string
	data string
}

// buildZip writes entries in order. A nil entry list yields an empty archive.
func buildZip(t *testing.T, entries ...entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(e.data))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// buildDocx assembles a minimal package. An empty comments string omits the
// comments part.
func buildDocx(t *testing.T, document, comments string) []byte {
	t.Helper()
	entries := []entry{
		{"[Content_Types].xml", contentTypesXML},
		{"word/_rels/document.xml.rels", documentRelsXML},
		{"word/document.xml", document},
	}
	if comments != "" {
		entries = append(entries, entry{"word/comments.xml", comments})
	}
	return buildZip(t, entries...)
}

func readEntries(t *testing.T, data []byte) ([]string, map[string]string) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	contents := make(map[string]string)
	for _, f := range zr.File {
		names = append(names, f.Name)
		b, err := readZipFile(f)
		require.NoError(t, err)
		contents[f.Name] = string(b)
	}
	return names, contents
}
