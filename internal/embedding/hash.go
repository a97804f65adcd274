package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const DefaultHashDim = 384

// Hash is a deterministic bag-of-words embedder. Each accent-folded,
// lowercased token is hashed to a signed bucket. It needs no network and
// gives the same vector for the same text on every run.
type Hash struct {
	dim int
}

func NewHash(dim int) *Hash {
	if dim <= 0 {
		dim = DefaultHashDim
	}
	return &Hash{dim: dim}
}

func (h *Hash) Name() string { return fmt.Sprintf("hash/%d", h.dim) }

func (h *Hash) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.embed(t)
	}
	return out, nil
}

func (h *Hash) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.embed(text), nil
}

func (h *Hash) embed(text string) []float32 {
	v := make([]float32, h.dim)
	tokens := Tokens(text)
	if len(tokens) == 0 {
		v[0] = 1
		return v
	}
	for _, tok := range tokens {
		f := fnv.New64a()
		f.Write([]byte(tok))
		sum := f.Sum64()
		idx := int(sum % uint64(h.dim))
		if sum&(1<<63) != 0 {
			v[idx]--
		} else {
			v[idx]++
		}
	}
	if isZero(v) {
		v[0] = 1
		return v
	}
	return Normalize(v)
}

// Tokens lowercases text, strips diacritics and splits it on anything that
// is not a letter or digit. Single-character tokens are dropped.
func Tokens(text string) []string {
	folded, _, err := transform.String(foldChain(), strings.ToLower(text))
	if err != nil {
		folded = strings.ToLower(text)
	}
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) > 1 {
			out = append(out, f)
		}
	}
	return out
}

func foldChain() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
