// Package generate wraps the text-generation providers used to answer
// questions over retrieved law articles.
package generate

import (
	"context"
	"fmt"
	"time"
)

// Generator produces a completion for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// Timed records the latency of every call to g in stats under op.
func Timed(g Generator, stats *LLMStats, op string) Generator {
	if stats == nil {
		return g
	}
	return &timedGenerator{Generator: g, stats: stats, op: op}
}

type timedGenerator struct {
	Generator
	stats *LLMStats
	op    string
}

func (t *timedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	out, err := t.Generator.Generate(ctx, prompt)
	t.stats.Record(t.op, time.Since(start).Milliseconds(), err)
	return out, err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
