package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firstword/responder/internal/models"
	"github.com/firstword/responder/internal/modules/processing/ai"
	"github.com/firstword/responder/internal/modules/processing/docx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrSentinelComment = errors.New("placeholder record has nothing to reply to")
)

// Generator drafts replies. *ai.Generator implements it.
type Generator interface {
	HasCredential(ctx context.Context) (bool, error)
	Generate(ctx context.Context, commentText, contextExcerpt string) (string, error)
	GenerateAll(ctx context.Context, comments []models.Comment, pick ai.Selector) ([]models.Comment, error)
}

// Exporter turns reviewed comments into a downloadable document.
// *docx.Exporter implements it.
type Exporter interface {
	Export(comments []models.Comment, original []byte, filename string) (*docx.ExportResult, error)
}

// Service drives a document through upload, analysis, drafting, editing and
// export.
type Service struct {
	store     *sessionStore
	generator Generator
	exporter  Exporter
	ttl       time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(generator Generator, exporter Exporter, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		generator: generator,
		exporter:  exporter,
		ttl:       ttl,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.store = newSessionStore(func() time.Time { return s.now() })
	return s
}

// Upload analyzes a document and, when a credential is stored, drafts replies
// for every comment. A document that cannot be read leaves no session behind.
func (s *Service) Upload(ctx context.Context, filename string, data []byte) (*models.Session, error) {
	now := s.now()
	sess := &models.Session{
		ID:        uuid.NewString(),
		Filename:  filename,
		Size:      int64(len(data)),
		Status:    models.SessionAnalyzing,
		Original:  data,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.store.put(sess)
	s.logger.Info("document accepted", zap.String("session", sess.ID), zap.String("file", filename), zap.Int("bytes", len(data)))

	comments, err := docx.Extract(data)
	if err != nil {
		s.store.delete(sess.ID)
		s.logger.Warn("extraction failed", zap.String("session", sess.ID), zap.Error(err))
		return nil, err
	}
	if len(comments) == 0 {
		comments = []models.Comment{docx.Sentinel(now)}
	}
	s.logger.Info("comments extracted", zap.String("session", sess.ID), zap.Int("count", countReal(comments)))

	updated, err := s.store.update(sess.ID, func(stored *models.Session) error {
		stored.Comments = comments
		stored.Status = models.SessionComplete
		return nil
	})
	if err != nil {
		return nil, err
	}
	if countReal(comments) == 0 {
		return updated, nil
	}

	ok, err := s.generator.HasCredential(ctx)
	if err != nil {
		s.logger.Warn("credential lookup failed", zap.Error(err))
	}
	if !ok {
		return s.store.update(sess.ID, func(stored *models.Session) error {
			stored.NeedsAPIKey = true
			return nil
		})
	}
	drafted, err := s.generate(ctx, sess.ID, ai.All)
	if drafted != nil {
		return drafted, nil
	}
	return nil, err
}

// Get returns a session and marks it as recently used.
func (s *Service) Get(id string) (*models.Session, error) {
	sess, ok := s.store.get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// GenerateMissing drafts replies for every comment that still has none.
func (s *Service) GenerateMissing(ctx context.Context, id string) (*models.Session, error) {
	return s.generate(ctx, id, ai.Unanswered)
}

func (s *Service) generate(ctx context.Context, id string, pick ai.Selector) (*models.Session, error) {
	snapshot, err := s.store.update(id, func(stored *models.Session) error {
		stored.Status = models.SessionGenerating
		return nil
	})
	if err != nil {
		return nil, err
	}

	drafted, genErr := s.generator.GenerateAll(ctx, snapshot.Comments, pick)
	updated, err := s.store.update(id, func(stored *models.Session) error {
		stored.Status = models.SessionComplete
		if genErr != nil {
			stored.NeedsAPIKey = errors.Is(genErr, ai.ErrMissingCredential)
			return nil
		}
		stored.NeedsAPIKey = false
		mergeDrafts(stored.Comments, snapshot.Comments, drafted)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		if errors.Is(genErr, ai.ErrMissingCredential) {
			s.logger.Info("generation skipped, no api key", zap.String("session", id))
		} else {
			s.logger.Warn("generation failed", zap.String("session", id), zap.Error(genErr))
		}
		return updated, genErr
	}

	failed := 0
	for _, c := range updated.Comments {
		if c.Error != "" {
			failed++
		}
	}
	s.logger.Info("responses drafted", zap.String("session", id), zap.Int("comments", countReal(updated.Comments)), zap.Int("failed", failed))
	return updated, nil
}

// mergeDrafts copies generated results into current, skipping comments the
// user edited while generation was running.
func mergeDrafts(current, snapshot, drafted []models.Comment) {
	before := make(map[string]string, len(snapshot))
	for _, c := range snapshot {
		before[c.ID] = c.Response
	}
	byID := make(map[string]models.Comment, len(drafted))
	for _, c := range drafted {
		byID[c.ID] = c
	}
	for i := range current {
		d, ok := byID[current[i].ID]
		if !ok || current[i].Response != before[current[i].ID] {
			continue
		}
		current[i].Response = d.Response
		current[i].Error = d.Error
	}
}

// GenerateOne redrafts a single comment, replacing its response.
func (s *Service) GenerateOne(ctx context.Context, id, commentID string) (*models.Comment, error) {
	sess, ok := s.store.get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	target, err := findComment(sess.Comments, commentID)
	if err != nil {
		return nil, err
	}
	if target.Sentinel {
		return nil, ErrSentinelComment
	}

	text, genErr := s.generator.Generate(ctx, target.Text, target.Context)
	var out *models.Comment
	_, err = s.store.update(id, func(stored *models.Session) error {
		for i := range stored.Comments {
			c := &stored.Comments[i]
			if c.ID != commentID {
				continue
			}
			switch {
			case genErr == nil:
				c.Response = text
				c.Error = ""
				stored.NeedsAPIKey = false
			case errors.Is(genErr, ai.ErrMissingCredential):
				stored.NeedsAPIKey = true
			default:
				c.Error = genErr.Error()
			}
			cp := *c
			out = &cp
			return nil
		}
		return ErrCommentNotFound
	})
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		return out, genErr
	}
	s.logger.Debug("response regenerated", zap.String("session", id), zap.String("comment", commentID))
	return out, nil
}

// UpdateResponse stores the user's edit. The last write wins.
func (s *Service) UpdateResponse(id, commentID, response string) (*models.Comment, error) {
	var out *models.Comment
	_, err := s.store.update(id, func(stored *models.Session) error {
		for i := range stored.Comments {
			c := &stored.Comments[i]
			if c.ID != commentID {
				continue
			}
			if c.Sentinel {
				return ErrSentinelComment
			}
			c.Response = response
			c.Error = ""
			cp := *c
			out = &cp
			return nil
		}
		return ErrCommentNotFound
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Export builds the download for the session's current responses.
func (s *Service) Export(id string) (*docx.ExportResult, error) {
	sess, ok := s.store.get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	res, err := s.exporter.Export(sess.Comments, sess.Original, sess.Filename)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", sess.Filename, err)
	}
	mode := "primary"
	if res.Fallback {
		mode = "fallback"
	}
	s.logger.Info("document exported", zap.String("session", id), zap.String("mode", mode),
		zap.String("file", res.Filename), zap.Strings("warnings", res.Warnings))
	return res, nil
}

// Reset discards the session.
func (s *Service) Reset(id string) error {
	if !s.store.delete(id) {
		return ErrSessionNotFound
	}
	s.logger.Info("session reset", zap.String("session", id))
	return nil
}

// EvictIdle removes sessions idle for longer than the configured TTL.
func (s *Service) EvictIdle(context.Context) error {
	n := s.store.evictIdle(s.now().Add(-s.ttl))
	if n > 0 {
		s.logger.Info("idle sessions evicted", zap.Int("count", n), zap.Int("remaining", s.store.len()))
	}
	return nil
}

func findComment(comments []models.Comment, id string) (models.Comment, error) {
	id = strings.TrimSpace(id)
	for _, c := range comments {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Comment{}, ErrCommentNotFound
}

func countReal(comments []models.Comment) int {
	n := 0
	for _, c := range comments {
		if !c.Sentinel {
			n++
		}
	}
	return n
}

// SessionCount reports how many sessions are held in memory.
func (s *Service) SessionCount() int { return s.store.len() }
