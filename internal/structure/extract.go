package structure

import (
	"strings"

	"github.com/dgallion1/lexgest/internal/doctree"
)

// Extractor builds a hierarchy from cleaned statute text. It holds no
// per-document state and is safe for concurrent use.
type Extractor struct {
	classifier *Classifier
	window     int
}

// NewExtractor returns an extractor using the given classifier and lookback
// window. A nil classifier or non-positive window selects the defaults.
func NewExtractor(c *Classifier, window int) *Extractor {
	if c == nil {
		c = NewClassifier()
	}
	if window <= 0 {
		window = DefaultLookback
	}
	return &Extractor{classifier: c, window: window}
}

// parseState is the cursor context threaded through one extraction pass.
type parseState struct {
	chapter *doctree.Chapter
	section *doctree.Section
}

// Extract is shorthand for NewExtractor(nil, 0).Extract(text).
func Extract(text string) *doctree.Structure {
	return NewExtractor(nil, 0).Extract(text)
}

// Extract parses text into a new structure. It never fails: headers that
// cannot be resolved fall back to placeholder chapters and sections.
func (e *Extractor) Extract(text string) *doctree.Structure {
	lines := SplitLines(text)
	out := doctree.New()
	var st parseState

	for i := 0; i < len(lines); {
		line := strings.TrimSpace(lines[i])
		h := e.classifier.Classify(line)

		switch h.Kind {
		case ChapterHeader:
			title, next := e.title(h, lines, i)
			st.chapter = out.EnsureChapter(doctree.ChapterLabel(strings.TrimSpace(h.ID), title))
			st.section = nil
			i = next

		case SectionHeader:
			title, next := e.title(h, lines, i)
			if st.chapter == nil {
				st.chapter = out.EnsureChapter(e.recover(lines, i, ChapterReconstruction, doctree.UnspecifiedChapter))
			}
			st.section = st.chapter.EnsureSection(doctree.SectionLabel(strings.TrimSpace(h.ID), title))
			i = next

		case ArticleHeader:
			if st.chapter == nil {
				st.chapter = out.EnsureChapter(doctree.UnspecifiedChapter)
			}
			if st.section == nil {
				st.section = st.chapter.EnsureSection(e.recover(lines, i, SectionReconstruction, doctree.UnspecifiedSection))
			}
			body, next := e.collectArticle(lines, i+1)
			st.section.PutArticle(&doctree.Article{
				Label: doctree.ArticleLabel(h.ID),
				ID:    h.ID,
				Text:  strings.TrimSpace(line + " " + body),
			})
			i = next

		default:
			i++
		}
	}
	return out
}

// title resolves a header title, consuming the following line when the
// header deferred it. It returns the index of the next unread line.
func (e *Extractor) title(h Header, lines []string, i int) (string, int) {
	if h.TitleDeferred && i+1 < len(lines) {
		return strings.TrimSpace(lines[i+1]), i + 2
	}
	return strings.TrimSpace(h.Title), i + 1
}

func (e *Extractor) recover(lines []string, cursor int, r Reconstruction, placeholder string) string {
	if label, ok := Lookback(lines, cursor, e.window, r); ok {
		return label
	}
	return placeholder
}

// collectArticle gathers trimmed lines from start until the next line that
// ends an article. Blank lines are skipped. The returned index points at the
// terminating line, which is left for the caller.
func (e *Extractor) collectArticle(lines []string, start int) (string, int) {
	var body []string
	j := start
	for ; j < len(lines); j++ {
		line := strings.TrimSpace(lines[j])
		if e.classifier.EndsArticle(line) {
			break
		}
		if line != "" {
			body = append(body, line)
		}
	}
	return strings.Join(body, " "), j
}
