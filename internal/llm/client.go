// Package llm talks to generative-AI providers.
// It owns the provider-neutral request shape, the Gemini and OpenAI-compatible
// clients, error classification and the retrying Executor that every call site uses.
package llm

import (
	"context"

	"ledgerchat/internal/types"

	"golang.org/x/time/rate"
)

// Client is a generative-AI provider handle. Implementations must be safe for concurrent use.
type Client interface {
	Generate(ctx context.Context, req *Request) (*Response, error)
	Provider() string
}

// Part is one element of the ordered request payload: either text or a binary blob.
type Part struct {
	Name     string // document name, informational
	MIMEType string
	Data     []byte
	Text     string
}

// IsText reports whether the part carries text rather than bytes.
func (p Part) IsText() bool {
	return p.Data == nil
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// BlobPart builds a binary part.
func BlobPart(name, mimeType string, data []byte) Part {
	if data == nil {
		data = []byte{}
	}
	return Part{Name: name, MIMEType: mimeType, Data: data}
}

// Request is a provider-neutral generation request.
type Request struct {
	Model             string
	SystemInstruction string
	Parts             []Part

	// URLContext declares the URL retrieval tool.
	URLContext bool

	// JSON asks for a JSON response. Gemini only honours it when no tool is declared.
	JSON bool

	// Operation labels the call site for usage accounting, e.g. "chat".
	Operation string
}

// WithModel returns a shallow copy targeting another model.
func (r *Request) WithModel(model string) *Request {
	cp := *r
	cp.Model = model
	return &cp
}

// Response is the provider-neutral result.
type Response struct {
	Model      string
	Text       string
	URLContext []types.URLContextMetadata

	// Token counts as reported by the provider, zero when unreported.
	InputTokens  int
	OutputTokens int
}

// PacedClient applies a client-side token bucket in front of another client.
type PacedClient struct {
	next    Client
	limiter *rate.Limiter
}

// NewPacedClient wraps next with a limiter of rps requests per second.
func NewPacedClient(next Client, rps float64, burst int) *PacedClient {
	if burst < 1 {
		burst = 1
	}
	return &PacedClient{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Generate waits for a token, then delegates.
func (c *PacedClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.next.Generate(ctx, req)
}

// Provider returns the wrapped provider name.
func (c *PacedClient) Provider() string {
	return c.next.Provider()
}
