package chunker

import (
	"strings"
	"sync"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

var tokenizer = sync.OnceValues(func() (*sentences.DefaultSentenceTokenizer, error) {
	return english.NewSentenceTokenizer(nil)
})

// SplitSentences splits text with the Punkt tokenizer, which knows common
// abbreviations and decimal numbers. If the tokenizer cannot load, it falls
// back to splitting on terminal punctuation followed by a space.
func SplitSentences(text string) []string {
	t, err := tokenizer()
	if err != nil {
		return splitSentences(text)
	}
	var out []string
	for _, sent := range t.Tokenize(text) {
		if s := strings.TrimSpace(sent.Text); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// splitSentences does basic sentence splitting.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}
