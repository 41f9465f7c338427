package review

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/firstword/responder/internal/models"
	"github.com/firstword/responder/internal/modules/processing/ai"
	"github.com/firstword/responder/internal/modules/processing/docx"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	mu    sync.Mutex
	key   bool
	fail  map[string]string
	calls int
	block chan struct{}
}

func (f *fakeGenerator) HasCredential(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.key, nil
}

func (f *fakeGenerator) setKey(v bool) {
	f.mu.Lock()
	f.key = v
	f.mu.Unlock()
}

func (f *fakeGenerator) Generate(_ context.Context, text, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.key {
		return "", ai.ErrMissingCredential
	}
	f.calls++
	if msg, ok := f.fail[text]; ok {
		return "", &ai.GenerationError{Provider: "fake", Message: msg}
	}
	return "Reply to " + text, nil
}

func (f *fakeGenerator) GenerateAll(ctx context.Context, comments []models.Comment, pick ai.Selector) ([]models.Comment, error) {
	if ok, _ := f.HasCredential(ctx); !ok {
		return nil, ai.ErrMissingCredential
	}
	if f.block != nil {
		<-f.block
	}
	out := models.CloneComments(comments)
	for i := range out {
		if !pick(out[i]) {
			continue
		}
		text, err := f.Generate(ctx, out[i].Text, out[i].Context)
		if err != nil {
			out[i].Error = err.Error()
			continue
		}
		out[i].Response = text
		out[i].Error = ""
	}
	return out, nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

// testDocx builds a package with one comment per text, each anchored on its
// own paragraph.
func testDocx(t *testing.T, texts ...string) []byte {
	t.Helper()
	var body, comments strings.Builder
	for i, text := range texts {
		id := string(rune('0' + i))
		body.WriteString(`<w:p><w:commentRangeStart w:id="` + id + `"/><w:r><w:t>Anchored paragraph number ` + id +
			`</w:t></w:r><w:commentRangeEnd w:id="` + id + `"/></w:p>`)
		comments.WriteString(`<w:comment w:id="` + id + `" w:author="Reviewer"><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:comment>`)
	}
	parts := []struct{ name, data string }{
		{"[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`},
		{"word/_rels/document.xml.rels", `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`},
		{"word/document.xml", `<w:document ` + wordNS + `><w:body>` + body.String() + `</w:body></w:document>`},
	}
	if len(texts) > 0 {
		parts = append(parts, struct{ name, data string }{"word/comments.xml", `<w:comments ` + wordNS + `>` + comments.String() + `</w:comments>`})
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		w, err := zw.Create(p.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(p.data))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

var testNow = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestService(gen *fakeGenerator) (*Service, *clock) {
	clk := &clock{now: testNow}
	return NewService(gen, docx.NewExporter("", nil), 2*time.Hour, WithClock(clk.Now)), clk
}
