package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	appcfg "github.com/firstword/responder/internal/config"
	"github.com/firstword/responder/internal/modules/processing/markdown"
	"go.uber.org/zap"
)

// CredentialSource yields the API key. ok is false when none is stored.
type CredentialSource interface {
	Get(ctx context.Context) (value string, ok bool, err error)
}

// Generator drafts replies to reviewer comments through the configured
// completion provider.
type Generator struct {
	creds       CredentialSource
	provider    provider
	model       string
	temperature float64
	concurrency int
	logger      *zap.Logger
}

func NewGenerator(cfg appcfg.AIConfig, creds CredentialSource, logger *zap.Logger) (*Generator, error) {
	var httpClient *http.Client
	if cfg.Timeout > 0 {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	p, err := newProvider(cfg, httpClient)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Generator{
		creds:       creds,
		provider:    p,
		model:       strings.TrimSpace(cfg.Model),
		temperature: cfg.Temperature,
		concurrency: concurrency,
		logger:      logger,
	}, nil
}

// HasCredential reports whether an API key is stored.
func (g *Generator) HasCredential(ctx context.Context) (bool, error) {
	_, ok, err := g.apiKey(ctx)
	return ok, err
}

// Generate drafts one reply. It makes a single completion call and never
// retries.
func (g *Generator) Generate(ctx context.Context, commentText, contextExcerpt string) (string, error) {
	key, ok, err := g.apiKey(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrMissingCredential
	}
	return g.complete(ctx, key, commentText, contextExcerpt)
}

func (g *Generator) complete(ctx context.Context, key, commentText, contextExcerpt string) (string, error) {
	text, err := g.provider.Complete(ctx, key, completionRequest{
		System:      systemPrompt,
		User:        buildUserPrompt(commentText, contextExcerpt),
		Model:       g.model,
		Temperature: g.temperature,
	})
	if err != nil {
		g.logger.Warn("response generation failed", zap.String("provider", g.provider.Name()), zap.Error(err))
		return "", err
	}
	return plainDraft(text), nil
}

// plainDraft flattens markdown in a drafted reply so the text the user edits
// is the text that gets exported.
func plainDraft(text string) string {
	if plain := strings.TrimSpace(markdown.PlainText(text)); plain != "" {
		return plain
	}
	return text
}

func (g *Generator) apiKey(ctx context.Context) (string, bool, error) {
	if g.creds == nil {
		return "", false, nil
	}
	key, ok, err := g.creds.Get(ctx)
	if err != nil {
		return "", false, fmt.Errorf("read credential: %w", err)
	}
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", false, nil
	}
	return key, true, nil
}
