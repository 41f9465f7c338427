package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	appcfg "github.com/firstword/responder/internal/config"
	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
	jetai "go.jetify.com/ai"
	jetapi "go.jetify.com/ai/api"
	jetanthropic "go.jetify.com/ai/provider/anthropic"
	jetopenai "go.jetify.com/ai/provider/openai"
)

const (
	providerOpenAI           = "openai"
	providerOpenAICompatible = "openai-compatible"
	providerAnthropic        = "anthropic"

	defaultOpenAIModel    = "gpt-3.5-turbo"
	defaultAnthropicModel = "claude-haiku-4-5-20251001"
	maxOutputTokens       = 1024
)

// completionRequest is one system + user exchange.
type completionRequest struct {
	System      string
	User        string
	Model       string
	Temperature float64
}

// provider performs exactly one completion call per request.
type provider interface {
	Name() string
	Complete(ctx context.Context, apiKey string, req completionRequest) (string, error)
}

func newProvider(cfg appcfg.AIConfig, httpClient *http.Client) (provider, error) {
	switch cfg.Provider {
	case "", providerOpenAI:
		return &openAIProvider{baseURL: normalizeOpenAIBaseURL(cfg.Endpoint), httpClient: httpClient}, nil
	case providerOpenAICompatible:
		return &compatibleProvider{endpoint: normalizeOpenAICompatibleEndpoint(cfg.Endpoint), httpClient: httpClient}, nil
	case providerAnthropic:
		return &anthropicProvider{baseURL: strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"), httpClient: httpClient}, nil
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
}

type openAIProvider struct {
	baseURL    string
	httpClient *http.Client
}

func (p *openAIProvider) Name() string { return providerOpenAI }

func (p *openAIProvider) Complete(ctx context.Context, apiKey string, req completionRequest) (string, error) {
	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(apiKey),
		openaioption.WithMaxRetries(0),
	}
	if p.baseURL != "" {
		opts = append(opts, openaioption.WithBaseURL(p.baseURL))
	}
	if p.httpClient != nil {
		opts = append(opts, openaioption.WithHTTPClient(p.httpClient))
	}
	client := openaiclient.NewClient(opts...)

	model := req.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return generateText(ctx, p.Name(), jetopenai.NewLanguageModel(model, jetopenai.WithClient(client)), req)
}

// compatibleProvider talks to any server exposing /v1/chat/completions.
type compatibleProvider struct {
	endpoint   string
	httpClient *http.Client
}

func (p *compatibleProvider) Name() string { return providerOpenAICompatible }

func (p *compatibleProvider) Complete(ctx context.Context, apiKey string, req completionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	messages := make([]map[string]string, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, map[string]string{
			"role":    "system",
			"content": req.System,
		})
	}
	messages = append(messages, map[string]string{
		"role":    "user",
		"content": req.User,
	})

	body, _ := json.Marshal(map[string]interface{}{
		"model":       model,
		"messages":    messages,
		"temperature": req.Temperature,
	})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", generationFailed(p.Name(), 0, "", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+strings.TrimSpace(apiKey))
	httpReq.Header.Set("Content-Type", "application/json")

	client := p.httpClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", generationFailed(p.Name(), 0, "", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", generationFailed(p.Name(), resp.StatusCode, "", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", generationFailed(p.Name(), resp.StatusCode, remoteErrorMessage(respBody), nil)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", generationFailed(p.Name(), resp.StatusCode, "invalid response from AI", err)
	}
	if result.Error != nil && strings.TrimSpace(result.Error.Message) != "" {
		return "", generationFailed(p.Name(), resp.StatusCode, result.Error.Message, nil)
	}
	if len(result.Choices) == 0 {
		return "", generationFailed(p.Name(), resp.StatusCode, "empty response from AI", nil)
	}
	return nonEmpty(p.Name(), result.Choices[0].Message.Content)
}

type anthropicProvider struct {
	baseURL    string
	httpClient *http.Client
}

func (p *anthropicProvider) Name() string { return providerAnthropic }

func (p *anthropicProvider) Complete(ctx context.Context, apiKey string, req completionRequest) (string, error) {
	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(apiKey),
		anthropicoption.WithMaxRetries(0),
	}
	if p.baseURL != "" {
		opts = append(opts, anthropicoption.WithBaseURL(p.baseURL))
	}
	if p.httpClient != nil {
		opts = append(opts, anthropicoption.WithHTTPClient(p.httpClient))
	}
	client := anthropicclient.NewClient(opts...)

	model := req.Model
	if model == "" || strings.HasPrefix(model, "gpt-") {
		model = defaultAnthropicModel
	}
	return generateText(ctx, p.Name(), jetanthropic.NewLanguageModel(model, jetanthropic.WithClient(client)), req)
}

// generateText runs one non-streaming call through a language model and
// joins its text blocks.
func generateText(ctx context.Context, providerName string, model jetapi.LanguageModel, req completionRequest) (string, error) {
	resp, err := jetai.GenerateText(
		ctx,
		promptMessages(req.System, req.User),
		jetai.WithModel(model),
		jetai.WithMaxOutputTokens(maxOutputTokens),
		jetai.WithTemperature(req.Temperature),
	)
	if err != nil {
		return "", sdkError(providerName, err)
	}
	if resp == nil {
		return "", generationFailed(providerName, 0, "empty response from AI", nil)
	}

	var full strings.Builder
	for _, block := range resp.Content {
		if textBlock, ok := block.(*jetapi.TextBlock); ok {
			full.WriteString(textBlock.Text)
		}
	}
	return nonEmpty(providerName, full.String())
}

func promptMessages(system, user string) []jetapi.Message {
	messages := make([]jetapi.Message, 0, 2)
	if strings.TrimSpace(system) != "" {
		messages = append(messages, &jetapi.SystemMessage{Content: system})
	}
	return append(messages, &jetapi.UserMessage{Content: jetapi.ContentFromText(user)})
}

// sdkError keeps the remote status and error.message when the SDK error is
// reachable through the chain.
func sdkError(providerName string, err error) error {
	var oaErr *openaiclient.Error
	if errors.As(err, &oaErr) {
		msg := strings.TrimSpace(oaErr.Message)
		if msg == "" {
			msg = remoteErrorMessage([]byte(oaErr.RawJSON()))
		}
		return generationFailed(providerName, oaErr.StatusCode, msg, err)
	}
	var antErr *anthropicclient.Error
	if errors.As(err, &antErr) {
		return generationFailed(providerName, antErr.StatusCode, remoteErrorMessage([]byte(antErr.RawJSON())), err)
	}
	return generationFailed(providerName, 0, "", err)
}

func nonEmpty(providerName, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", generationFailed(providerName, 0, "empty response from AI", nil)
	}
	return text, nil
}

// remoteErrorMessage pulls error.message (or a top-level message) out of an
// error body. Non-JSON bodies are returned trimmed.
func remoteErrorMessage(body []byte) string {
	var payload struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		s := strings.TrimSpace(string(body))
		if len(s) > 300 {
			s = s[:300]
		}
		return s
	}
	if payload.Error != nil && strings.TrimSpace(payload.Error.Message) != "" {
		return strings.TrimSpace(payload.Error.Message)
	}
	return strings.TrimSpace(payload.Message)
}

func normalizeOpenAIBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return ""
	}
	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimRight(base, "/")
	}

	path := strings.TrimRight(parsed.Path, "/")
	if !strings.HasSuffix(path, "/v1") {
		path += "/v1"
	}
	parsed.Path = path
	return strings.TrimRight(parsed.String(), "/")
}

func normalizeOpenAICompatibleEndpoint(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return "https://api.openai.com"
	}

	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimSuffix(strings.TrimRight(base, "/"), "/v1")
	}

	parsed.Path = strings.TrimSuffix(strings.TrimRight(parsed.Path, "/"), "/v1")
	return strings.TrimRight(parsed.String(), "/")
}
