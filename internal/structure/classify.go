// Package structure recovers the chapter / section / article hierarchy of a
// statute from extracted plain text.
package structure

import (
	"regexp"
	"strings"
)

// Kind tags the result of classifying one line.
type Kind int

const (
	Plain Kind = iota
	ChapterHeader
	SectionHeader
	ArticleHeader
)

func (k Kind) String() string {
	switch k {
	case ChapterHeader:
		return "chapter"
	case SectionHeader:
		return "section"
	case ArticleHeader:
		return "article"
	}
	return "plain"
}

// Header is a classified line. For article headers only ID is set; the rest
// of the line belongs to the article body.
type Header struct {
	Kind  Kind
	ID    string
	Title string
	// Canonical is set for the ". - " chapter and section forms.
	Canonical bool
	// TitleDeferred means the header carried no title and the next line
	// should be consumed as the title.
	TitleDeferred bool
}

// Rule is one header dialect. Rules are evaluated in order and the first
// match wins.
type Rule struct {
	Name      string
	Kind      Kind
	Canonical bool
	Pattern   *regexp.Regexp
	// Boundary, when set, is the prefix that ends an article body even if
	// Pattern itself does not match (e.g. a canonical header missing its title).
	Boundary *regexp.Regexp
	// DeferTitle allows an empty title to be taken from the next line.
	DeferTitle bool
}

func (r Rule) match(line string) (Header, bool) {
	m := r.Pattern.FindStringSubmatch(line)
	if m == nil {
		return Header{}, false
	}
	h := Header{Kind: r.Kind, ID: m[1], Canonical: r.Canonical}
	if r.Kind == ArticleHeader {
		return h, true
	}
	if len(m) > 2 {
		h.Title = m[2]
	}
	if r.DeferTitle {
		h.Title = strings.TrimSpace(h.Title)
		h.TitleDeferred = h.Title == ""
	}
	return h, true
}

// DefaultRules is the header vocabulary of French statutes, in priority order.
var DefaultRules = []Rule{
	{
		Name:      "chapter-canonical",
		Kind:      ChapterHeader,
		Canonical: true,
		Pattern:   regexp.MustCompile(`(?i)^chapitre\s+([^.]+)\.\s*-\s*(.+)`),
		Boundary:  regexp.MustCompile(`(?i)^chapitre\s+[^.]+\.\s*-`),
	},
	{
		Name:       "chapter-roman",
		Kind:       ChapterHeader,
		Pattern:    regexp.MustCompile(`(?i)^chapitre\s+([IVXLCDM]+)\s*[:.](.*)`),
		DeferTitle: true,
	},
	{
		Name:      "section-canonical",
		Kind:      SectionHeader,
		Canonical: true,
		Pattern:   regexp.MustCompile(`(?i)^section\s+([^.]+)\.\s*-\s*(.+)`),
		Boundary:  regexp.MustCompile(`(?i)^section\s+[^.]+\.\s*-`),
	},
	{
		Name:       "section-short",
		Kind:       SectionHeader,
		Pattern:    regexp.MustCompile(`(?i)^section\s+([IVXLCDM]+|première|[0-9]+)\s*[:.](.*)`),
		DeferTitle: true,
	},
	{
		Name:    "article",
		Kind:    ArticleHeader,
		Pattern: regexp.MustCompile(`(?i)^article\s+([^.:]+)[.:]`),
	},
}

// Classifier assigns a Header to each line using an ordered rule list.
type Classifier struct {
	rules []Rule
}

// NewClassifier returns a classifier over rules, or DefaultRules when none
// are given.
func NewClassifier(rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Classifier{rules: rules}
}

// Classify returns the first matching header for a trimmed line, or a Plain
// header when no rule matches.
func (c *Classifier) Classify(line string) Header {
	for _, r := range c.rules {
		if h, ok := r.match(line); ok {
			return h
		}
	}
	return Header{Kind: Plain}
}

// EndsArticle reports whether line terminates an article body: any article
// header, or a chapter or section header in canonical form.
func (c *Classifier) EndsArticle(line string) bool {
	for _, r := range c.rules {
		switch {
		case r.Kind == ArticleHeader:
			if r.Pattern.MatchString(line) {
				return true
			}
		case r.Canonical:
			if r.Pattern.MatchString(line) || (r.Boundary != nil && r.Boundary.MatchString(line)) {
				return true
			}
		}
	}
	return false
}
