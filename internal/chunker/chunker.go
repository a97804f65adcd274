package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/lexgest/internal/doctree"
)

// SuiteMarker tags the header of every continuation chunk.
const SuiteMarker = " [SUITE]"

// Config controls chunking behavior. Sizes are in characters.
type Config struct {
	MaxChunkSize int // Upper bound for a chunk unless one sentence alone exceeds it.
	Overlap      int // Carried context; Overlap/10 trailing words are repeated.
}

// DefaultConfig returns the sizes existing indexes were built with.
func DefaultConfig() Config {
	return Config{
		MaxChunkSize: 1200,
		Overlap:      250,
	}
}

// OverlapWords is the number of trailing words carried into a continuation
// chunk. The divisor is a coarse character-to-word estimate kept for
// compatibility with stored chunk lists.
func (c Config) OverlapWords() int {
	return c.Overlap / 10
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxChunkSize <= 0 {
		c.MaxChunkSize = d.MaxChunkSize
	}
	if c.Overlap < 0 {
		c.Overlap = d.Overlap
	}
	return c
}

var articleNumberRe = regexp.MustCompile(`Article\s+([^\s.]+)`)

// Segment walks the structure in document order and emits the chunks of
// every article. The output depends only on s and cfg.
func Segment(s *doctree.Structure, cfg Config) []doctree.Chunk {
	cfg = cfg.withDefaults()
	var chunks []doctree.Chunk
	for _, c := range s.Chapters {
		for _, sec := range c.Sections {
			for _, a := range sec.Articles {
				chunks = append(chunks, segmentArticle(c.Label, sec.Label, a, cfg)...)
			}
		}
	}
	return chunks
}

// SegmentArticle chunks a single article.
func SegmentArticle(chapter, section string, a *doctree.Article, cfg Config) []doctree.Chunk {
	return segmentArticle(chapter, section, a, cfg.withDefaults())
}

func segmentArticle(chapter, section string, a *doctree.Article, cfg Config) []doctree.Chunk {
	header := chapter + " | " + section + " | " + a.Label
	meta := doctree.ChunkMetadata{
		Chapter:       chapter,
		Section:       section,
		Article:       a.Label,
		ArticleNumber: articleNumber(a.Label),
	}

	if runeLen(header)+runeLen(a.Text) <= cfg.MaxChunkSize {
		return []doctree.Chunk{{Text: header + "\n\n" + a.Text, Metadata: meta}}
	}

	meta.IsPartial = true
	var chunks []doctree.Chunk
	var buf strings.Builder
	buf.WriteString(header + "\n\n")
	size := runeLen(header) + 2
	empty := true

	for _, sent := range SplitSentences(a.Text) {
		n := runeLen(sent)
		// An over-long first sentence is kept whole rather than flushing a
		// chunk that holds only the header.
		if empty || size+n+1 <= cfg.MaxChunkSize {
			buf.WriteString(sent)
			buf.WriteByte(' ')
			size += n + 1
			empty = false
			continue
		}

		prev := buf.String()
		chunks = append(chunks, doctree.Chunk{Text: prev, Metadata: meta})

		buf.Reset()
		buf.WriteString(header + SuiteMarker + "\n\n")
		buf.WriteString(getOverlapText(prev, cfg.OverlapWords()))
		buf.WriteByte(' ')
		buf.WriteString(sent)
		buf.WriteByte(' ')
		size = utf8.RuneCountInString(buf.String())
	}

	if !empty {
		chunks = append(chunks, doctree.Chunk{Text: buf.String(), Metadata: meta})
	}
	return chunks
}

// getOverlapText returns the last n whitespace-separated words of text.
func getOverlapText(text string, n int) string {
	if n <= 0 {
		return ""
	}
	words := strings.Fields(text)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}

func articleNumber(label string) *string {
	m := articleNumberRe.FindStringSubmatch(label)
	if m == nil {
		return nil
	}
	return &m[1]
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
