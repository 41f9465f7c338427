package ai

import (
	"context"

	"github.com/firstword/responder/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Selector picks the comments a batch run should draft.
type Selector func(c models.Comment) bool

// All selects every comment that is not a sentinel.
func All(c models.Comment) bool { return !c.Sentinel }

// Unanswered selects comments that still have no response.
func Unanswered(c models.Comment) bool { return !c.Sentinel && !c.HasResponse() }

// GenerateAll drafts replies for the selected comments with bounded
// concurrency and returns an updated copy. Each failure is recorded on its
// own comment; the run itself only fails when no credential is stored.
func (g *Generator) GenerateAll(ctx context.Context, comments []models.Comment, pick Selector) ([]models.Comment, error) {
	if pick == nil {
		pick = All
	}
	key, ok, err := g.apiKey(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMissingCredential
	}

	out := models.CloneComments(comments)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for i := range out {
		if !pick(out[i]) {
			continue
		}
		c := &out[i]
		eg.Go(func() error {
			text, err := g.complete(egCtx, key, c.Text, c.Context)
			if err != nil {
				c.Error = err.Error()
				return nil
			}
			c.Response = text
			c.Error = ""
			g.logger.Debug("response drafted", zap.String("comment", c.ID))
			return nil
		})
	}
	_ = eg.Wait()
	return out, nil
}
