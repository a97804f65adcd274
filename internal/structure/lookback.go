package structure

import (
	"regexp"
	"strings"

	"github.com/dgallion1/lexgest/internal/doctree"
)

// DefaultLookback is how many lines above a header are searched when its
// parent header is missing. Existing indexes were built with this window.
const DefaultLookback = 10

// Reconstruction describes how to rebuild a parent label from the lines
// preceding an orphaned header.
type Reconstruction struct {
	Keyword *regexp.Regexp
	Pattern *regexp.Regexp
	Label   func(id, title string) string
}

var (
	ChapterReconstruction = Reconstruction{
		Keyword: regexp.MustCompile(`(?i)^chapitre`),
		Pattern: regexp.MustCompile(`(?i)chapitre\s+([^.]+)[.:\s]+(.+)`),
		Label:   doctree.ChapterLabel,
	}
	SectionReconstruction = Reconstruction{
		Keyword: regexp.MustCompile(`(?i)^section`),
		Pattern: regexp.MustCompile(`(?i)section\s+([^.]+)[.:\s]+(.+)`),
		Label:   doctree.SectionLabel,
	}
)

// Lookback walks backward from lines[cursor-1] over at most window lines.
// At each line starting with the keyword it joins that line through
// lines[cursor-1] and tries the reconstruction pattern; the first success
// wins. It has no side effects.
func Lookback(lines []string, cursor, window int, r Reconstruction) (string, bool) {
	if cursor > len(lines) {
		cursor = len(lines)
	}
	for j := cursor - 1; j >= 0 && j >= cursor-window; j-- {
		if !r.Keyword.MatchString(strings.TrimSpace(lines[j])) {
			continue
		}
		joined := strings.TrimSpace(strings.Join(lines[j:cursor], " "))
		if m := r.Pattern.FindStringSubmatch(joined); m != nil {
			return r.Label(m[1], m[2]), true
		}
	}
	return "", false
}
