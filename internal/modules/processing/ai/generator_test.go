package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	appcfg "github.com/firstword/responder/internal/config"
	"github.com/firstword/responder/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticKey struct {
	value string
	err   error
}

func (s staticKey) Get(context.Context) (string, bool, error) {
	if s.err != nil {
		return "", false, s.err
	}
	return s.value, s.value != "", nil
}

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatCompletion(content string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-3.5-turbo",
		"choices": []map[string]interface{}{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]string{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

func newTestGenerator(t *testing.T, provider, endpoint string, creds CredentialSource) *Generator {
	t.Helper()
	g, err := NewGenerator(appcfg.AIConfig{
		Provider:    provider,
		Endpoint:    endpoint,
		Model:       "gpt-3.5-turbo",
		Temperature: 0.7,
		Concurrency: 2,
	}, creds, nil)
	require.NoError(t, err)
	return g
}

func TestGenerateCompatibleRequestShape(t *testing.T) {
	var got chatRequest
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletion("  Thanks, I will expand it.  ")))
	}))
	defer srv.Close()

	g := newTestGenerator(t, providerOpenAICompatible, srv.URL+"/v1/", staticKey{value: "sk-test"})
	text, err := g.Generate(context.Background(), "Please expand.", "The results section")
	require.NoError(t, err)

	assert.Equal(t, "Thanks, I will expand it.", text)
	assert.Equal(t, "/v1/chat/completions", path)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "gpt-3.5-turbo", got.Model)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, systemPrompt, got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t,
		"Document context: The results section\n\nComment: Please expand.\n\nPlease draft a response to this comment that is professional, helpful, and addresses the comment directly.",
		got.Messages[1].Content)
}

func TestGenerateMissingCredentialMakesNoCall(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	for _, creds := range []CredentialSource{nil, staticKey{}, staticKey{value: "   "}} {
		g := newTestGenerator(t, providerOpenAICompatible, srv.URL, creds)
		_, err := g.Generate(context.Background(), "c", "ctx")
		assert.ErrorIs(t, err, ErrMissingCredential)
	}
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestGenerateCredentialReadError(t *testing.T) {
	g := newTestGenerator(t, providerOpenAICompatible, "http://127.0.0.1:1", staticKey{err: errors.New("disk gone")})
	_, err := g.Generate(context.Background(), "c", "ctx")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMissingCredential)
	assert.Contains(t, err.Error(), "disk gone")
}

func TestGenerateCompatibleFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"remote error message", http.StatusUnauthorized, `{"error":{"message":"Incorrect API key provided"}}`, "Incorrect API key provided"},
		{"plain body", http.StatusBadGateway, `upstream down`, "upstream down"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "empty response from AI"},
		{"blank text", http.StatusOK, chatCompletion("   "), "empty response from AI"},
		{"error in ok body", http.StatusOK, `{"error":{"message":"quota exceeded"}}`, "quota exceeded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			g := newTestGenerator(t, providerOpenAICompatible, srv.URL, staticKey{value: "sk"})
			_, err := g.Generate(context.Background(), "c", "ctx")
			require.ErrorIs(t, err, ErrGenerationFailed)
			var genErr *GenerationError
			require.True(t, errors.As(err, &genErr))
			assert.Equal(t, tt.message, genErr.Message)
		})
	}
}

// responsesResult is a minimal Responses API reply.
func responsesResult(content string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"id":         "resp_1",
		"object":     "response",
		"created_at": 1,
		"status":     "completed",
		"model":      "gpt-3.5-turbo",
		"output": []map[string]interface{}{{
			"type":   "message",
			"id":     "msg_1",
			"status": "completed",
			"role":   "assistant",
			"content": []map[string]interface{}{{
				"type":        "output_text",
				"text":        content,
				"annotations": []interface{}{},
			}},
		}},
	})
	return string(b)
}

func TestGenerateOpenAI(t *testing.T) {
	var path string
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/responses") {
			_, _ = w.Write([]byte(responsesResult("Noted.")))
			return
		}
		_, _ = w.Write([]byte(chatCompletion("Noted.")))
	}))
	defer srv.Close()

	g := newTestGenerator(t, providerOpenAI, srv.URL, staticKey{value: "sk"})
	text, err := g.Generate(context.Background(), "c", "ctx")
	require.NoError(t, err)
	assert.Equal(t, "Noted.", text)
	assert.True(t, strings.HasPrefix(path, "/v1/"), path)

	var got chatRequest
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "gpt-3.5-turbo", got.Model)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
	assert.Contains(t, string(body), "draft responses to comments")
}

func TestGenerateOpenAINoRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"server exploded","type":"server_error"}}`))
	}))
	defer srv.Close()

	g := newTestGenerator(t, providerOpenAI, srv.URL, staticKey{value: "sk"})
	_, err := g.Generate(context.Background(), "c", "ctx")
	require.ErrorIs(t, err, ErrGenerationFailed)
	assert.Contains(t, err.Error(), "server exploded")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGenerateAnthropic(t *testing.T) {
	var path, key string
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.Header.Get("X-Api-Key")
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-haiku-4-5-20251001",` +
			`"content":[{"type":"text","text":"Happy to clarify."}],"stop_reason":"end_turn",` +
			`"usage":{"input_tokens":1,"output_tokens":1}}`))
	}))
	defer srv.Close()

	g := newTestGenerator(t, providerAnthropic, srv.URL, staticKey{value: "sk-ant"})
	text, err := g.Generate(context.Background(), "c", "ctx")
	require.NoError(t, err)
	assert.Equal(t, "Happy to clarify.", text)
	assert.Equal(t, "/v1/messages", path)
	assert.Equal(t, "sk-ant", key)

	var got struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, defaultAnthropicModel, got.Model)
	assert.Equal(t, maxOutputTokens, got.MaxTokens)
	assert.Contains(t, string(body), "draft responses to comments")
}

func TestGenerateAnthropicRemoteError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	g := newTestGenerator(t, providerAnthropic, srv.URL, staticKey{value: "sk-ant"})
	_, err := g.Generate(context.Background(), "c", "ctx")
	require.ErrorIs(t, err, ErrGenerationFailed)
	assert.Contains(t, err.Error(), "invalid x-api-key")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGenerateAll(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		user := req.Messages[len(req.Messages)-1].Content
		mu.Lock()
		seen[user]++
		mu.Unlock()
		if strings.Contains(user, "Comment: fail") {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached"}}`))
			return
		}
		_, _ = w.Write([]byte(chatCompletion("reply")))
	}))
	defer srv.Close()

	in := []models.Comment{
		{ID: "0", Text: "first", Context: "ctx"},
		{ID: "1", Text: "fail", Context: "ctx"},
		{ID: "2", Text: "answered", Context: "ctx", Response: "kept"},
		{ID: models.SentinelCommentID, Text: "none", Sentinel: true},
	}
	g := newTestGenerator(t, providerOpenAICompatible, srv.URL, staticKey{value: "sk"})
	out, err := g.GenerateAll(context.Background(), in, Unanswered)
	require.NoError(t, err)
	require.Len(t, out, 4)

	assert.Equal(t, "reply", out[0].Response)
	assert.Empty(t, out[0].Error)
	assert.Empty(t, out[1].Response)
	assert.Contains(t, out[1].Error, "Rate limit reached")
	assert.Equal(t, "kept", out[2].Response)
	assert.Empty(t, out[3].Response)
	assert.Len(t, seen, 2)
	assert.Empty(t, in[0].Response, "input must not be mutated")

	out, err = g.GenerateAll(context.Background(), in, nil)
	require.NoError(t, err)
	assert.Equal(t, "reply", out[2].Response)
}

func TestGenerateAllMissingCredential(t *testing.T) {
	g := newTestGenerator(t, providerOpenAICompatible, "http://127.0.0.1:1", staticKey{})
	out, err := g.GenerateAll(context.Background(), []models.Comment{{ID: "0", Text: "x"}}, All)
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Nil(t, out)
}

func TestNormalizeEndpoints(t *testing.T) {
	assert.Equal(t, "", normalizeOpenAIBaseURL(""))
	assert.Equal(t, "https://proxy.local/v1", normalizeOpenAIBaseURL("https://proxy.local"))
	assert.Equal(t, "https://proxy.local/v1", normalizeOpenAIBaseURL("https://proxy.local/v1/"))
	assert.Equal(t, "https://api.openai.com", normalizeOpenAICompatibleEndpoint(""))
	assert.Equal(t, "http://localhost:11434", normalizeOpenAICompatibleEndpoint("http://localhost:11434/v1"))
}

func TestNewGeneratorRejectsUnknownProvider(t *testing.T) {
	_, err := NewGenerator(appcfg.AIConfig{Provider: "bard"}, staticKey{}, nil)
	assert.Error(t, err)
}

func TestGenerateFlattensMarkdownDraft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chatCompletion("**Thanks.** Two fixes:\n\n- tighten wording\n- add a citation")))
	}))
	defer srv.Close()

	g := newTestGenerator(t, providerOpenAICompatible, srv.URL, staticKey{value: "sk"})
	text, err := g.Generate(context.Background(), "c", "ctx")
	require.NoError(t, err)
	assert.Equal(t, "Thanks. Two fixes:\n- tighten wording\n- add a citation", text)
}

func TestPlainDraftKeepsUnrenderableText(t *testing.T) {
	assert.Equal(t, "<!-- only a comment -->", plainDraft("<!-- only a comment -->"))
	assert.Equal(t, "plain", plainDraft("plain"))
}
