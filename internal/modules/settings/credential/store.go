package credential

import (
	"context"
	"fmt"
	"strings"

	appcfg "github.com/firstword/responder/internal/config"
	pkgredis "github.com/firstword/responder/internal/pkg/redis"
	"go.uber.org/zap"
)

// Store keeps the single API key slot. Get returns ok=false when the slot
// has never been set or was cleared.
type Store interface {
	Get(ctx context.Context) (value string, ok bool, err error)
	Set(ctx context.Context, value string) error
	Clear(ctx context.Context) error
}

// Open builds the store selected by credential.driver. The returned closer
// releases backend connections and is never nil.
func Open(ctx context.Context, cfg *appcfg.AppConfig, logger *zap.Logger) (Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Credential.Driver {
	case "memory":
		return NewMemoryStore(), noop, nil
	case "redis":
		client, err := pkgredis.Connect(ctx, cfg.Credential.RedisURL)
		if err != nil {
			return nil, noop, fmt.Errorf("credential store: %w", err)
		}
		logger.Info("credential store: redis", zap.String("key", cfg.Credential.Key))
		return NewRedisStore(client, cfg.Credential.Key), client.Close, nil
	case "", "file":
		path := cfg.CredentialFile()
		logger.Info("credential store: file", zap.String("path", path))
		return NewFileStore(path, cfg.Credential.Key), noop, nil
	default:
		return nil, noop, fmt.Errorf("credential store: unknown driver %q", cfg.Credential.Driver)
	}
}

// Seed writes value into the slot only when the slot is empty. It reports
// whether it wrote.
func Seed(ctx context.Context, s Store, value string) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return false, nil
	}
	_, ok, err := s.Get(ctx)
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}
	return true, s.Set(ctx, value)
}

// Mask renders a key for display: the first three and last four characters.
func Mask(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	runes := []rune(value)
	if len(runes) <= 8 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:3]) + "..." + string(runes[len(runes)-4:])
}
