package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ledgerchat/internal/logging"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig holds configuration for an OpenAI-compatible client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration

	HTTPClient *http.Client
}

// OpenAIClient implements Client on the chat completions API.
// It has no URL retrieval tool, so reference URLs only reach the model as prompt text
// and responses never carry retrieval metadata.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates an OpenAI-compatible client.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: set OPENAI_API_KEY", ErrMissingCredential)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	} else {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &OpenAIClient{client: openai.NewClientWithConfig(clientCfg)}, nil
}

// Provider returns "openai".
func (c *OpenAIClient) Provider() string {
	return "openai"
}

// Generate sends one chat completion.
func (c *OpenAIClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: req.Model,
	}
	if req.SystemInstruction != "" {
		chatReq.Messages = append(chatReq.Messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemInstruction,
		})
	}
	chatReq.Messages = append(chatReq.Messages, openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: openAIParts(req.Parts),
	})
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	logging.APIDebug("openai chat completion model=%s parts=%d", req.Model, len(req.Parts))
	if req.URLContext {
		logging.APIDebug("openai has no url retrieval tool; reference urls are sent as prompt text only")
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, wrapOpenAIError(req.Model, err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: "openai", Model: req.Model, Err: errors.New("chat completion returned no choices")}
	}

	return &Response{
		Model:        req.Model,
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// openAIParts maps ordered parts to message content. Images travel as data URIs,
// PDFs and text files as extracted text, anything else as a named placeholder.
func openAIParts(parts []Part) []openai.ChatMessagePart {
	out := make([]openai.ChatMessagePart, 0, len(parts))
	for _, p := range parts {
		switch {
		case p.IsText():
			out = append(out, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: p.Text})
		case strings.HasPrefix(p.MIMEType, "image/"):
			out = append(out, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: "data:" + p.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(p.Data),
				},
			})
		default:
			text, err := DocumentText(p.MIMEType, p.Data)
			if err != nil {
				logging.APIWarn("document %q not readable as text: %v", p.Name, err)
				text = "(binary content not available)"
			}
			out = append(out, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: fmt.Sprintf("Document %q:\n%s", p.Name, text),
			})
		}
	}
	return out
}

func wrapOpenAIError(model string, err error) error {
	pe := &ProviderError{Provider: "openai", Model: model, Err: err}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		pe.StatusCode = apiErr.HTTPStatusCode
		pe.Status = apiErr.Type
	case errors.As(err, &reqErr):
		pe.StatusCode = reqErr.HTTPStatusCode
	}
	return pe
}
