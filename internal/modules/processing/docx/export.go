package docx

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/firstword/responder/internal/models"
	"go.uber.org/zap"
)

const (
	DefaultExportSuffix   = "_with_responses"
	DefaultFallbackSuffix = "_responses"
)

// ExportResult is a finished export ready for download.
type ExportResult struct {
	Data     []byte
	Filename string
	Fallback bool
	Warnings []string
}

// Exporter patches replies into the original document and falls back to a
// summary document when patching fails.
type Exporter struct {
	Suffix         string
	FallbackSuffix string
	Logger         *zap.Logger
	Now            func() time.Time
}

func NewExporter(suffix string, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if suffix == "" {
		suffix = DefaultExportSuffix
	}
	return &Exporter{
		Suffix:         suffix,
		FallbackSuffix: DefaultFallbackSuffix,
		Logger:         logger,
		Now:            time.Now,
	}
}

func (e *Exporter) Export(comments []models.Comment, original []byte, filename string) (*ExportResult, error) {
	data, warnings, err := InjectReplies(comments, original)
	if err == nil {
		for _, w := range warnings {
			e.Logger.Warn("export warning", zap.String("file", filename), zap.String("warning", w))
		}
		e.Logger.Info("export patched original", zap.String("file", filename), zap.Int("warnings", len(warnings)))
		return &ExportResult{
			Data:     data,
			Filename: ExportFilename(filename, e.Suffix),
			Warnings: warnings,
		}, nil
	}

	e.Logger.Warn("patching failed, building summary document", zap.String("file", filename), zap.Error(err))
	summary, ferr := BuildSummary(comments, original, filename, e.Now())
	if ferr != nil {
		e.Logger.Error("summary export failed", zap.String("file", filename), zap.Error(ferr))
		return nil, ferr
	}
	return &ExportResult{
		Data:     summary,
		Filename: ExportFilename(filename, e.FallbackSuffix),
		Fallback: true,
		Warnings: []string{"original document could not be patched: " + err.Error()},
	}, nil
}

// ExportFilename derives the download name from the uploaded one.
func ExportFilename(filename, suffix string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	if ext := filepath.Ext(base); strings.EqualFold(ext, ".docx") {
		base = base[:len(base)-len(ext)]
	}
	if base == "" || base == "." || base == "/" {
		base = "document"
	}
	return base + suffix + ".docx"
}
