package usage

// Stats holds counters broken down by provider, model and operation.
type Stats struct {
	Total       Counts            `json:"total"`
	ByProvider  map[string]Counts `json:"by_provider"`
	ByModel     map[string]Counts `json:"by_model"`
	ByOperation map[string]Counts `json:"by_operation"` // chat, suggestions, mind_map
}

// Counts sums provider calls and their tokens. Every attempt counts, including retries.
type Counts struct {
	Calls    int64 `json:"calls"`
	Failures int64 `json:"failures"`
	Input    int64 `json:"input_tokens"`
	Output   int64 `json:"output_tokens"`
	Total    int64 `json:"total_tokens"`
}

func (c *Counts) add(input, output int, failed bool) {
	c.Calls++
	if failed {
		c.Failures++
	}
	c.Input += int64(input)
	c.Output += int64(output)
	c.Total += int64(input + output)
}
