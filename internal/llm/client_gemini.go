package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ledgerchat/internal/logging"
	"ledgerchat/internal/types"

	"google.golang.org/genai"
)

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey  string
	BaseURL string // empty means the public endpoint
	Timeout time.Duration

	// HTTPClient overrides the transport, used by tests.
	HTTPClient *http.Client
}

// GeminiClient implements Client on the Gemini API.
type GeminiClient struct {
	client *genai.Client
}

// safetySettings are attached to every call.
var safetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
}

// NewGeminiClient creates a Gemini client. It performs no network I/O.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: set GEMINI_API_KEY", ErrMissingCredential)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{client: client}, nil
}

// Provider returns "gemini".
func (c *GeminiClient) Provider() string {
	return "gemini"
}

// Generate sends one generateContent call.
func (c *GeminiClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	parts := make([]*genai.Part, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.IsText() {
			parts = append(parts, genai.NewPartFromText(p.Text))
			continue
		}
		parts = append(parts, genai.NewPartFromBytes(p.Data, p.MIMEType))
	}

	genCfg := &genai.GenerateContentConfig{
		SafetySettings: safetySettings,
	}
	if req.SystemInstruction != "" {
		genCfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(req.SystemInstruction)},
		}
	}
	if req.URLContext {
		genCfg.Tools = []*genai.Tool{{URLContext: &genai.URLContext{}}}
	} else if req.JSON {
		// The API rejects a JSON MIME type alongside tools.
		genCfg.ResponseMIMEType = "application/json"
	}

	logging.APIDebug("gemini generate model=%s parts=%d url_context=%v", req.Model, len(parts), req.URLContext)

	resp, err := c.client.Models.GenerateContent(ctx, req.Model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, genCfg)
	if err != nil {
		return nil, wrapGeminiError(req.Model, err)
	}

	out := &Response{
		Model:      req.Model,
		Text:       geminiText(resp),
		URLContext: geminiURLContext(resp),
	}
	if u := resp.UsageMetadata; u != nil {
		out.InputTokens = int(u.PromptTokenCount)
		out.OutputTokens = int(u.CandidatesTokenCount)
	}
	return out, nil
}

func wrapGeminiError(model string, err error) error {
	pe := &ProviderError{Provider: "gemini", Model: model, Err: err}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		pe.StatusCode = apiErr.Code
		pe.Status = apiErr.Status
	}
	return pe
}

// geminiText concatenates the non-thought text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}

func geminiURLContext(resp *genai.GenerateContentResponse) []types.URLContextMetadata {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	meta := resp.Candidates[0].URLContextMetadata
	if meta == nil || len(meta.URLMetadata) == 0 {
		return nil
	}
	out := make([]types.URLContextMetadata, 0, len(meta.URLMetadata))
	for _, m := range meta.URLMetadata {
		if m == nil {
			continue
		}
		out = append(out, types.URLContextMetadata{
			RetrievedURL: m.RetrievedURL,
			Status:       string(m.URLRetrievalStatus),
		})
	}
	return out
}
