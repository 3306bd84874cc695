// Package usage accounts for provider calls and token consumption in memory.
package usage

import (
	"context"
	"sync"

	"ledgerchat/internal/llm"
	"ledgerchat/internal/logging"
)

// Tracker aggregates usage. It is safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	stats Stats
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{stats: emptyStats()}
}

func emptyStats() Stats {
	return Stats{
		ByProvider:  make(map[string]Counts),
		ByModel:     make(map[string]Counts),
		ByOperation: make(map[string]Counts),
	}
}

// Track records one provider call.
func (t *Tracker) Track(provider, model, operation string, input, output int, failed bool) {
	if operation == "" {
		operation = "unknown"
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.Total.add(input, output, failed)
	addToMap(t.stats.ByProvider, provider, input, output, failed)
	addToMap(t.stats.ByModel, model, input, output, failed)
	addToMap(t.stats.ByOperation, operation, input, output, failed)
}

// Stats returns a copy of the aggregated stats.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := t.stats
	stats.ByProvider = copyCountsMap(stats.ByProvider)
	stats.ByModel = copyCountsMap(stats.ByModel)
	stats.ByOperation = copyCountsMap(stats.ByOperation)
	return stats
}

// Reset clears all counters.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = emptyStats()
}

func copyCountsMap(src map[string]Counts) map[string]Counts {
	dst := make(map[string]Counts, len(src))
	for key, counts := range src {
		dst[key] = counts
	}
	return dst
}

func addToMap(m map[string]Counts, key string, input, output int, failed bool) {
	entry := m[key]
	entry.add(input, output, failed)
	m[key] = entry
}

// Wrap returns a client that records every call made through next.
func (t *Tracker) Wrap(next llm.Client) llm.Client {
	return &trackingClient{next: next, tracker: t}
}

type trackingClient struct {
	next    llm.Client
	tracker *Tracker
}

func (c *trackingClient) Provider() string {
	return c.next.Provider()
}

func (c *trackingClient) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	resp, err := c.next.Generate(ctx, req)

	var input, output int
	if resp != nil {
		input, output = resp.InputTokens, resp.OutputTokens
	}
	c.tracker.Track(c.next.Provider(), req.Model, req.Operation, input, output, err != nil)
	logging.APIDebug("usage %s %s op=%s in=%d out=%d failed=%v",
		c.next.Provider(), req.Model, req.Operation, input, output, err != nil)
	return resp, err
}
