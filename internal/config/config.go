package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                `yaml:"port"`
	Env            string             `yaml:"env"` // "development" | "production"
	AllowedOrigins []string           `yaml:"allowed_origins"`
	Timezone       string             `yaml:"timezone"`
	Paths          RuntimePathsConfig `yaml:"paths"`
	Upload         UploadConfig       `yaml:"upload"`
	AI             AIConfig           `yaml:"ai"`
	Credential     CredentialConfig   `yaml:"credential"`
	Session        SessionConfig      `yaml:"session"`
	Export         ExportConfig       `yaml:"export"`
}

type RuntimePathsConfig struct {
	Logs string `yaml:"logs"`
	Data string `yaml:"data"`
}

type UploadConfig struct {
	MaxSizeMB int `yaml:"max_size_mb"`
}

// AIConfig selects and tunes the completion provider used to draft replies.
type AIConfig struct {
	Provider    string        `yaml:"provider"` // openai | openai-compatible | anthropic
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
	APIKey      string        `yaml:"api_key"`
}

type CredentialConfig struct {
	Driver   string `yaml:"driver"` // file | redis | memory
	Key      string `yaml:"key"`
	File     string `yaml:"file"`
	RedisURL string `yaml:"redis_url"`
}

type SessionConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type ExportConfig struct {
	Suffix string `yaml:"suffix"`
}

// Load reads the YAML file at configPath. A missing file yields the defaults.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := defaultAppConfig()
	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		content = nil
	case err != nil:
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	if len(bytes.TrimSpace(content)) > 0 {
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
	}

	applyEnv(&cfg)
	normalize(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", path, err)
	}
	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Upload: UploadConfig{
			MaxSizeMB: defaultMaxUploadMB,
		},
		AI: AIConfig{
			Provider:    defaultAIProvider,
			Model:       defaultAIModel,
			Temperature: defaultAITemperature,
			Concurrency: defaultAIConcurrency,
		},
		Credential: CredentialConfig{
			Driver: defaultCredentialDriver,
			Key:    defaultCredentialKey,
		},
		Session: SessionConfig{TTL: defaultSessionTTL},
		Export:  ExportConfig{Suffix: defaultExportSuffix},
	}
}

func applyEnv(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		cfg.AI.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRedisURL)); v != "" {
		cfg.Credential.RedisURL = v
	}
}

// Validate reports the first out-of-range setting.
func (c *AppConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", c.Port)
	}
	if c.Upload.MaxSizeMB < 1 {
		return fmt.Errorf("invalid upload.max_size_mb %d, expected >= 1", c.Upload.MaxSizeMB)
	}
	switch c.AI.Provider {
	case "openai", "openai-compatible", "anthropic":
	default:
		return fmt.Errorf("unknown ai.provider %q", c.AI.Provider)
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return fmt.Errorf("invalid ai.temperature %v, expected 0-2", c.AI.Temperature)
	}
	if c.AI.Concurrency < 1 {
		return fmt.Errorf("invalid ai.concurrency %d, expected >= 1", c.AI.Concurrency)
	}
	switch c.Credential.Driver {
	case "file", "memory":
	case "redis":
		if c.Credential.RedisURL == "" {
			return errors.New("credential.driver is redis but credential.redis_url is empty")
		}
	default:
		return fmt.Errorf("unknown credential.driver %q", c.Credential.Driver)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("invalid session.ttl %s", c.Session.TTL)
	}
	return nil
}

func (c *AppConfig) IsDev() bool {
	return c.Env == "development"
}

// MaxUploadBytes is the upload limit in bytes.
func (c *AppConfig) MaxUploadBytes() int64 {
	return int64(c.Upload.MaxSizeMB) * 1024 * 1024
}

func (c *AppConfig) LogDir() string {
	return ResolveRuntimePath(c.Paths.Logs, "logs")
}

func (c *AppConfig) DataDir() string {
	return ResolveRuntimePath(c.Paths.Data, "data")
}

// CredentialFile is the JSON file backing the file credential driver.
func (c *AppConfig) CredentialFile() string {
	if strings.TrimSpace(c.Credential.File) != "" {
		return ResolveRuntimePath(c.Credential.File, defaultCredentialFile)
	}
	return filepath.Join(c.DataDir(), defaultCredentialFile)
}
