package config

import "strings"

func normalize(cfg *AppConfig) {
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.AllowedOrigins = normalizeOrigins(cfg.AllowedOrigins)
	cfg.Timezone = strings.TrimSpace(cfg.Timezone)
	cfg.AI = normalizeAIConfig(cfg.AI)
	cfg.Credential = normalizeCredentialConfig(cfg.Credential)
	cfg.Export.Suffix = strings.TrimSpace(cfg.Export.Suffix)
	if cfg.Export.Suffix == "" {
		cfg.Export.Suffix = defaultExportSuffix
	}
}

func normalizeAIConfig(ai AIConfig) AIConfig {
	ai.Provider = normalizeProviderType(ai.Provider)
	if ai.Provider == "" {
		ai.Provider = defaultAIProvider
	}
	ai.Endpoint = strings.TrimRight(strings.TrimSpace(ai.Endpoint), "/")
	ai.Model = strings.TrimSpace(ai.Model)
	ai.APIKey = strings.TrimSpace(ai.APIKey)
	return ai
}

// normalizeProviderType folds "OpenAI_Compatible", "openai compatible" and the
// like into one spelling.
func normalizeProviderType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.ReplaceAll(t, "_", "-")
	t = strings.ReplaceAll(t, " ", "-")
	if t == "openaicompatible" {
		t = "openai-compatible"
	}
	return t
}

func normalizeCredentialConfig(c CredentialConfig) CredentialConfig {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	if c.Driver == "" {
		c.Driver = defaultCredentialDriver
	}
	c.Key = strings.TrimSpace(c.Key)
	if c.Key == "" {
		c.Key = defaultCredentialKey
	}
	c.RedisURL = strings.TrimSpace(c.RedisURL)
	return c
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(origin)
		if o == "" {
			continue
		}
		out = append(out, o)
	}
	return out
}

func normalizeEnv(env string) string {
	e := strings.ToLower(strings.TrimSpace(env))
	switch e {
	case "dev", "development":
		return "development"
	case "":
		return defaultEnv
	default:
		return "production"
	}
}
