package llm

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient answers each call with the next scripted step.
type scriptedClient struct {
	mu     sync.Mutex
	steps  []func(req *Request) (*Response, error)
	models []string
}

func (c *scriptedClient) Generate(_ context.Context, req *Request) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.models = append(c.models, req.Model)
	i := len(c.models) - 1
	if i >= len(c.steps) {
		i = len(c.steps) - 1
	}
	return c.steps[i](req)
}

func (c *scriptedClient) Provider() string { return "fake" }

func (c *scriptedClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.models)
}

func ok(req *Request) (*Response, error) {
	return &Response{Model: req.Model, Text: "answer"}, nil
}

func rateLimited(req *Request) (*Response, error) {
	return nil, &ProviderError{Provider: "fake", Model: req.Model, StatusCode: http.StatusTooManyRequests, Err: errors.New("slow down")}
}

func notFound(req *Request) (*Response, error) {
	return nil, &ProviderError{Provider: "fake", Model: req.Model, StatusCode: http.StatusNotFound, Status: "NOT_FOUND", Err: errors.New("models/x is not found")}
}

var errServer = errors.New("internal error")

func serverError(*Request) (*Response, error) {
	return nil, errServer
}

// recordSleeps returns a sleep that records delays instead of waiting.
func recordSleeps(delays *[]time.Duration) ExecutorOption {
	return WithSleep(func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	})
}

func TestExecutor_RetriesRateLimitWithDoublingDelay(t *testing.T) {
	client := &scriptedClient{steps: []func(*Request) (*Response, error){rateLimited, rateLimited, ok}}
	var delays []time.Duration
	exec := NewExecutor(client, "", recordSleeps(&delays))

	resp, err := exec.Execute(context.Background(), Policy{MaxAttempts: 3, BaseDelay: time.Second}, &Request{Model: "gemini-2.5-flash"})

	require.NoError(t, err)
	assert.Equal(t, "answer", resp.Text)
	assert.Equal(t, 3, client.calls())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestExecutor_ExhaustedBudgetReturnsLastError(t *testing.T) {
	client := &scriptedClient{steps: []func(*Request) (*Response, error){rateLimited}}
	var delays []time.Duration
	exec := NewExecutor(client, "", recordSleeps(&delays))

	_, err := exec.Execute(context.Background(), Policy{MaxAttempts: 2, BaseDelay: 500 * time.Millisecond}, &Request{Model: "m"})

	require.Error(t, err)
	assert.True(t, IsRateLimit(err))
	assert.Equal(t, 2, client.calls())
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, delays)
}

func TestExecutor_NonRetryableErrorPropagatesImmediately(t *testing.T) {
	client := &scriptedClient{steps: []func(*Request) (*Response, error){serverError}}
	var delays []time.Duration
	exec := NewExecutor(client, "fallback", recordSleeps(&delays))

	_, err := exec.Execute(context.Background(), Policy{MaxAttempts: 5, BaseDelay: time.Second}, &Request{Model: "m"})

	assert.ErrorIs(t, err, errServer)
	assert.Equal(t, 1, client.calls())
	assert.Empty(t, delays)
}

func TestExecutor_ZeroAttemptsStillCallsOnce(t *testing.T) {
	client := &scriptedClient{steps: []func(*Request) (*Response, error){ok}}
	exec := NewExecutor(client, "")

	_, err := exec.Execute(context.Background(), Policy{}, &Request{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, 1, client.calls())
}

func TestExecutor_ModelFallback(t *testing.T) {
	t.Run("not found switches to the fallback once", func(t *testing.T) {
		client := &scriptedClient{steps: []func(*Request) (*Response, error){notFound, ok}}
		exec := NewExecutor(client, "gemini-2.0-flash")

		resp, err := exec.Execute(context.Background(), Policy{MaxAttempts: 3, BaseDelay: time.Second}, &Request{Model: "gemini-2.5-flash"})

		require.NoError(t, err)
		assert.Equal(t, "gemini-2.0-flash", resp.Model)
		assert.Equal(t, []string{"gemini-2.5-flash", "gemini-2.0-flash"}, client.models)
	})

	t.Run("fallback failure propagates", func(t *testing.T) {
		client := &scriptedClient{steps: []func(*Request) (*Response, error){notFound, serverError}}
		exec := NewExecutor(client, "fallback")

		_, err := exec.Execute(context.Background(), Policy{MaxAttempts: 3}, &Request{Model: "preferred"})

		assert.ErrorIs(t, err, errServer)
		assert.Equal(t, 2, client.calls())
	})

	t.Run("fallback gets its own retry budget", func(t *testing.T) {
		client := &scriptedClient{steps: []func(*Request) (*Response, error){notFound, rateLimited, ok}}
		var delays []time.Duration
		exec := NewExecutor(client, "fallback", recordSleeps(&delays))

		_, err := exec.Execute(context.Background(), Policy{MaxAttempts: 2, BaseDelay: time.Second}, &Request{Model: "preferred"})

		require.NoError(t, err)
		assert.Equal(t, []string{"preferred", "fallback", "fallback"}, client.models)
		assert.Equal(t, []time.Duration{time.Second}, delays)
	})

	t.Run("skipped when preferred is the fallback", func(t *testing.T) {
		client := &scriptedClient{steps: []func(*Request) (*Response, error){notFound}}
		exec := NewExecutor(client, "same")

		_, err := exec.Execute(context.Background(), Policy{MaxAttempts: 3}, &Request{Model: "same"})

		assert.True(t, IsModelNotFound(err))
		assert.Equal(t, 1, client.calls())
	})

	t.Run("skipped without a fallback model", func(t *testing.T) {
		client := &scriptedClient{steps: []func(*Request) (*Response, error){notFound}}
		exec := NewExecutor(client, "")

		_, err := exec.Execute(context.Background(), Policy{MaxAttempts: 3}, &Request{Model: "m"})

		assert.True(t, IsModelNotFound(err))
		assert.Equal(t, 1, client.calls())
	})

	t.Run("rate limit errors never trigger fallback", func(t *testing.T) {
		client := &scriptedClient{steps: []func(*Request) (*Response, error){rateLimited}}
		var delays []time.Duration
		exec := NewExecutor(client, "fallback", recordSleeps(&delays))

		_, err := exec.Execute(context.Background(), Policy{MaxAttempts: 2}, &Request{Model: "m"})

		assert.True(t, IsRateLimit(err))
		assert.Equal(t, []string{"m", "m"}, client.models)
	})
}

func TestExecutor_ContextCancelAbortsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &scriptedClient{steps: []func(*Request) (*Response, error){
		func(req *Request) (*Response, error) {
			cancel()
			return rateLimited(req)
		},
	}}
	exec := NewExecutor(client, "")

	start := time.Now()
	_, err := exec.Execute(ctx, Policy{MaxAttempts: 5, BaseDelay: time.Hour}, &Request{Model: "m"})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, client.calls())
	assert.Less(t, time.Since(start), time.Minute)
}

func TestRequest_WithModelDoesNotMutate(t *testing.T) {
	req := &Request{Model: "a", Parts: []Part{TextPart("q")}}
	cp := req.WithModel("b")

	assert.Equal(t, "a", req.Model)
	assert.Equal(t, "b", cp.Model)
	assert.Equal(t, req.Parts, cp.Parts)
}

func TestPacedClient(t *testing.T) {
	client := &scriptedClient{steps: []func(*Request) (*Response, error){ok}}
	paced := NewPacedClient(client, 0.001, 1)

	_, err := paced.Generate(context.Background(), &Request{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "fake", paced.Provider())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = paced.Generate(ctx, &Request{Model: "m"})
	assert.Error(t, err)
	assert.Equal(t, 1, client.calls())
}
