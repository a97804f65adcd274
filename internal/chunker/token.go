package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/lexgest/internal/doctree"
)

// EstimateTokens gives a rough token count from the word count.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	// French legal text runs at roughly 1.5 tokens per word.
	tokens := int(float64(words) * 1.5)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// Stats summarizes a chunk list.
type Stats struct {
	Chunks          int `json:"chunks"`
	Partial         int `json:"partial"`
	Articles        int `json:"articles"`
	MaxChars        int `json:"max_chars"`
	Oversized       int `json:"oversized"`
	EstimatedTokens int `json:"estimated_tokens"`
}

// Summarize computes Stats for chunks produced with cfg.
func Summarize(chunks []doctree.Chunk, cfg Config) Stats {
	cfg = cfg.withDefaults()
	st := Stats{Chunks: len(chunks)}
	seen := make(map[string]struct{})
	for _, c := range chunks {
		key := c.Metadata.Chapter + "\x00" + c.Metadata.Section + "\x00" + c.Metadata.Article
		seen[key] = struct{}{}
		if c.Metadata.IsPartial {
			st.Partial++
		}
		n := utf8.RuneCountInString(c.Text)
		if n > st.MaxChars {
			st.MaxChars = n
		}
		if n > cfg.MaxChunkSize {
			st.Oversized++
		}
		st.EstimatedTokens += EstimateTokens(c.Text)
	}
	st.Articles = len(seen)
	return st
}
