package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
)

const (
	partComments     = "word/comments.xml"
	partDocument     = "word/document.xml"
	partContentTypes = "[Content_Types].xml"
	partDocumentRels = "word/_rels/document.xml.rels"
)

type part struct {
	name     string
	method   uint16
	header   zip.FileHeader
	data     []byte
	modified bool
}

// archive is an in-memory copy of a .docx zip that keeps entry order so a
// patched document is written back the way it was read.
type archive struct {
	parts []*part
	index map[string]*part
}

func openArchive(data []byte) (*archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	a := &archive{
		parts: make([]*part, 0, len(zr.File)),
		index: make(map[string]*part, len(zr.File)),
	}
	for _, f := range zr.File {
		content, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		p := &part{name: f.Name, method: f.Method, header: f.FileHeader, data: content}
		a.parts = append(a.parts, p)
		a.index[strings.ToLower(f.Name)] = p
	}
	return a, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// file looks a part up by name. OPC part names are case-insensitive.
func (a *archive) file(name string) ([]byte, bool) {
	p, ok := a.index[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return p.data, true
}

// set replaces the content of an existing part, or appends a new one.
func (a *archive) set(name string, data []byte) {
	if p, ok := a.index[strings.ToLower(name)]; ok {
		p.data = data
		p.modified = true
		return
	}
	p := &part{name: name, method: zip.Deflate, data: data, modified: true}
	a.parts = append(a.parts, p)
	a.index[strings.ToLower(name)] = p
}

// bytes serializes every part in its original order, keeping the original
// compression method and timestamps of untouched entries.
func (a *archive) bytes() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range a.parts {
		hdr := &zip.FileHeader{
			Name:     p.name,
			Method:   p.method,
			Modified: p.header.Modified,
			Comment:  p.header.Comment,
		}
		if p.modified {
			hdr.Method = zip.Deflate
		}
		if strings.HasSuffix(p.name, "/") {
			hdr.Method = zip.Store
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", p.name, err)
		}
		if strings.HasSuffix(p.name, "/") {
			continue
		}
		if _, err := w.Write(p.data); err != nil {
			return nil, fmt.Errorf("write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}
