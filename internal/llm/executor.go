package llm

import (
	"context"
	"time"

	"ledgerchat/internal/config"
	"ledgerchat/internal/logging"
)

// Policy bounds the retry loop of one call site.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// PolicyFromConfig converts a configured call policy.
func PolicyFromConfig(p config.CallPolicy) Policy {
	return Policy{MaxAttempts: p.MaxAttempts, BaseDelay: p.GetBaseDelay()}
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Executor runs requests with rate-limit retries and a single model fallback.
type Executor struct {
	client        Client
	fallbackModel string
	sleep         SleepFunc
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithSleep replaces the backoff wait, used by tests to record the schedule.
func WithSleep(fn SleepFunc) ExecutorOption {
	return func(e *Executor) {
		e.sleep = fn
	}
}

// NewExecutor creates an Executor around an injected client.
// An empty fallbackModel disables fallback.
func NewExecutor(client Client, fallbackModel string, opts ...ExecutorOption) *Executor {
	e := &Executor{
		client:        client,
		fallbackModel: fallbackModel,
		sleep:         sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute sends req. Rate-limited attempts are retried with exponential backoff
// (BaseDelay, 2×BaseDelay, ...) until MaxAttempts is used up. If the final error says the
// model does not exist, the request is run once more against the fallback model with a
// fresh retry budget. Every other error is returned unchanged.
func (e *Executor) Execute(ctx context.Context, policy Policy, req *Request) (*Response, error) {
	resp, err := e.withRetry(ctx, policy, req)
	if err == nil {
		return resp, nil
	}

	if !IsModelNotFound(err) || e.fallbackModel == "" || req.Model == e.fallbackModel {
		return nil, err
	}

	logging.APIWarn("model %s unavailable, falling back to %s: %v", req.Model, e.fallbackModel, err)
	return e.withRetry(ctx, policy, req.WithModel(e.fallbackModel))
}

func (e *Executor) withRetry(ctx context.Context, policy Policy, req *Request) (*Response, error) {
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; ; attempt++ {
		resp, err := e.client.Generate(ctx, req)
		if err == nil {
			if attempt > 1 {
				logging.API("%s succeeded on attempt %d/%d", req.Model, attempt, maxAttempts)
			}
			return resp, nil
		}

		if !IsRateLimit(err) || attempt >= maxAttempts {
			logging.APIError("%s failed on attempt %d/%d: %v", req.Model, attempt, maxAttempts, err)
			return nil, err
		}

		delay := policy.BaseDelay * time.Duration(1<<uint(attempt-1))
		logging.APIWarn("%s rate limited (attempt %d/%d), retrying in %v", req.Model, attempt, maxAttempts, delay)
		if err := e.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
