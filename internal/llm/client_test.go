package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ledgerchat/internal/config"
	"ledgerchat/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// =============================================================================
// GEMINI
// =============================================================================

func newGeminiTestClient(t *testing.T, handler http.HandlerFunc) *GeminiClient {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client, err := NewGeminiClient(context.Background(), GeminiConfig{
		APIKey:     "test-key",
		BaseURL:    ts.URL,
		HTTPClient: ts.Client(),
	})
	require.NoError(t, err)
	return client
}

func TestGeminiClient_Generate(t *testing.T) {
	var body string
	client := newGeminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-2.5-flash:generateContent")
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"candidates": [{
				"content": {"role": "model", "parts": [{"text": "VAT is "}, {"text": "19%."}]},
				"urlContextMetadata": {"urlMetadata": [
					{"retrievedUrl": "https://example.com/vat", "urlRetrievalStatus": "URL_RETRIEVAL_STATUS_SUCCESS"}
				]}
			}]
		}`))
	})

	resp, err := client.Generate(context.Background(), &Request{
		Model:             "gemini-2.5-flash",
		SystemInstruction: "You are an accountant.",
		Parts: []Part{
			BlobPart("invoice.pdf", "application/pdf", []byte("%PDF-1.4")),
			TextPart("What is the VAT rate?"),
		},
		URLContext: true,
		JSON:       true,
	})
	require.NoError(t, err)

	assert.Equal(t, "VAT is 19%.", resp.Text)
	require.Len(t, resp.URLContext, 1)
	assert.Equal(t, "https://example.com/vat", resp.URLContext[0].RetrievedURL)
	assert.Equal(t, "URL_RETRIEVAL_STATUS_SUCCESS", resp.URLContext[0].Status)

	assert.Contains(t, body, `"urlContext"`)
	assert.Contains(t, body, `"inlineData"`)
	assert.Contains(t, body, "systemInstruction")
	assert.Contains(t, body, "HARM_CATEGORY_HARASSMENT")
	assert.Contains(t, body, "HARM_CATEGORY_HATE_SPEECH")
	assert.Contains(t, body, "HARM_CATEGORY_SEXUALLY_EXPLICIT")
	assert.Contains(t, body, "HARM_CATEGORY_DANGEROUS_CONTENT")
	assert.Contains(t, body, "BLOCK_MEDIUM_AND_ABOVE")
	assert.NotContains(t, body, "responseMimeType", "JSON hint must be dropped when a tool is declared")
}

func TestGeminiClient_JSONHintWithoutTools(t *testing.T) {
	var body string
	client := newGeminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates": [{"content": {"role": "model", "parts": [{"text": "{}"}]}}]}`))
	})

	resp, err := client.Generate(context.Background(), &Request{
		Model: "gemini-2.5-flash",
		Parts: []Part{TextPart("map it")},
		JSON:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, "{}", resp.Text)
	assert.Empty(t, resp.URLContext)
	assert.Contains(t, body, "application/json")
	assert.NotContains(t, body, "urlContext")
}

func TestGeminiClient_RateLimitIsClassified(t *testing.T) {
	client := newGeminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"code": 429, "message": "You exceeded your current quota.", "status": "RESOURCE_EXHAUSTED"}}`))
	})

	_, err := client.Generate(context.Background(), &Request{Model: "gemini-2.5-flash", Parts: []Part{TextPart("q")}})
	require.Error(t, err)

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "gemini", pe.Provider)
	assert.True(t, IsRateLimit(err))
	assert.False(t, IsModelNotFound(err))
}

func TestNewGeminiClient_MissingKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), GeminiConfig{})
	assert.ErrorIs(t, err, ErrMissingCredential)
}

// =============================================================================
// OPENAI
// =============================================================================

func newOpenAITestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client, err := NewOpenAIClient(OpenAIConfig{
		APIKey:     "sk-test",
		BaseURL:    ts.URL + "/v1",
		HTTPClient: ts.Client(),
	})
	require.NoError(t, err)
	return client
}

func TestOpenAIClient_Generate(t *testing.T) {
	var payload map[string]any
	client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "c1", "object": "chat.completion", "choices": [
			{"index": 0, "message": {"role": "assistant", "content": "Deductible."}, "finish_reason": "stop"}
		]}`))
	})

	resp, err := client.Generate(context.Background(), &Request{
		Model:             "gpt-4o-mini",
		SystemInstruction: "You are an accountant.",
		Parts: []Part{
			BlobPart("receipt.png", "image/png", []byte{0x89, 'P', 'N', 'G'}),
			BlobPart("notes.txt", "text/plain", []byte("office chairs")),
			TextPart("Is this deductible?"),
		},
		JSON: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Deductible.", resp.Text)
	assert.Empty(t, resp.URLContext)

	messages := payload["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])

	raw, _ := json.Marshal(messages[1])
	user := string(raw)
	assert.Contains(t, user, "data:image/png;base64,")
	assert.Contains(t, user, "office chairs")
	assert.Contains(t, user, "Is this deductible?")
	assert.Equal(t, "json_object", payload["response_format"].(map[string]any)["type"])
}

func TestOpenAIClient_URLContextIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logging.Use(zap.New(core), config.LoggingConfig{})
	t.Cleanup(logging.Reset)

	var payload map[string]any
	client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "c1", "object": "chat.completion", "choices": [
			{"index": 0, "message": {"role": "assistant", "content": "ok"}, "finish_reason": "stop"}
		]}`))
	})

	_, err := client.Generate(context.Background(), &Request{
		Model:      "gpt-4o-mini",
		Parts:      []Part{TextPart("Q\n\nReference URLs:\nhttps://anaf.ro/a")},
		URLContext: true,
	})
	require.NoError(t, err)

	assert.NotContains(t, payload, "tools")
	assert.Equal(t, 1, logs.FilterMessageSnippet("no url retrieval tool").Len())
}

func TestOpenAIClient_ErrorClassification(t *testing.T) {
	t.Run("rate limit", func(t *testing.T) {
		client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error": {"message": "Slow down", "type": "requests", "code": "rate_limit_exceeded"}}`))
		})
		_, err := client.Generate(context.Background(), &Request{Model: "gpt-4o-mini", Parts: []Part{TextPart("q")}})
		assert.True(t, IsRateLimit(err))
	})

	t.Run("model not found", func(t *testing.T) {
		client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error": {"message": "The model does not exist", "type": "invalid_request_error", "code": "model_not_found"}}`))
		})
		_, err := client.Generate(context.Background(), &Request{Model: "gpt-9", Parts: []Part{TextPart("q")}})
		assert.True(t, IsModelNotFound(err))
		assert.False(t, IsRateLimit(err))
	})
}

// =============================================================================
// FACTORY
// =============================================================================

func TestNewClient(t *testing.T) {
	t.Run("missing gemini key", func(t *testing.T) {
		_, err := NewClient(context.Background(), config.LLMConfig{Provider: config.ProviderGemini}, 0)
		assert.ErrorIs(t, err, ErrMissingCredential)
	})

	t.Run("missing openai key", func(t *testing.T) {
		_, err := NewClient(context.Background(), config.LLMConfig{Provider: config.ProviderOpenAI, GeminiAPIKey: "unused"}, 0)
		assert.ErrorIs(t, err, ErrMissingCredential)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewClient(context.Background(), config.LLMConfig{Provider: "zai"}, 0)
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "unsupported provider"))
	})

	t.Run("openai with pacing", func(t *testing.T) {
		client, err := NewClient(context.Background(), config.LLMConfig{
			Provider:          config.ProviderOpenAI,
			OpenAIAPIKey:      "sk-test",
			RequestsPerSecond: 2,
			Burst:             2,
		}, 0)
		require.NoError(t, err)
		assert.IsType(t, &PacedClient{}, client)
		assert.Equal(t, "openai", client.Provider())
	})
}

// =============================================================================
// DOCUMENT TEXT
// =============================================================================

func TestDocumentText(t *testing.T) {
	text, err := DocumentText("text/csv", []byte("a,b\n1,2"))
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2", text)

	_, err = DocumentText("application/zip", []byte{0x50, 0x4b})
	assert.Error(t, err)

	_, err = DocumentText("application/pdf", []byte("not a pdf"))
	assert.Error(t, err)
}
