package doctree

import "fmt"

// Placeholder labels used when a header cannot be found or reconstructed.
const (
	UnspecifiedChapter = "Chapitre non spécifié"
	UnspecifiedSection = "Section non spécifiée"
)

// Structure is the root of an extracted statute: chapters in document order.
type Structure struct {
	Chapters []*Chapter
	index    map[string]int
}

// Chapter groups sections under a normalized "Chapitre <id>: <title>" label.
type Chapter struct {
	Label    string
	ID       string
	Title    string
	Sections []*Section
	index    map[string]int
}

// Section groups articles under a normalized "Section <id>: <title>" label.
type Section struct {
	Label    string
	ID       string
	Title    string
	Articles []*Article
	index    map[string]int
}

// Article is a single "Article <id>" with its full text, header line included.
type Article struct {
	Label string
	ID    string
	Text  string
}

// Counts is a summary of a structure's size.
type Counts struct {
	Chapters int `json:"chapters"`
	Sections int `json:"sections"`
	Articles int `json:"articles"`
}

func ChapterLabel(id, title string) string { return fmt.Sprintf("Chapitre %s: %s", id, title) }
func SectionLabel(id, title string) string { return fmt.Sprintf("Section %s: %s", id, title) }
func ArticleLabel(id string) string        { return "Article " + id }

// New returns an empty structure.
func New() *Structure {
	return &Structure{index: make(map[string]int)}
}

// Chapter returns the chapter with the given label, or nil.
func (s *Structure) Chapter(label string) *Chapter {
	if i, ok := s.lookup()[label]; ok {
		return s.Chapters[i]
	}
	return nil
}

// EnsureChapter returns the chapter with the given label, appending an empty
// one if it does not exist yet.
func (s *Structure) EnsureChapter(label string) *Chapter {
	if c := s.Chapter(label); c != nil {
		return c
	}
	id, title := splitLabel(label, "Chapitre ")
	c := &Chapter{Label: label, ID: id, Title: title, index: make(map[string]int)}
	s.index[label] = len(s.Chapters)
	s.Chapters = append(s.Chapters, c)
	return c
}

func (s *Structure) lookup() map[string]int {
	if s.index == nil {
		s.index = make(map[string]int, len(s.Chapters))
		for i, c := range s.Chapters {
			s.index[c.Label] = i
		}
	}
	return s.index
}

// Counts walks the structure and totals each level.
func (s *Structure) Counts() Counts {
	var n Counts
	n.Chapters = len(s.Chapters)
	for _, c := range s.Chapters {
		n.Sections += len(c.Sections)
		for _, sec := range c.Sections {
			n.Articles += len(sec.Articles)
		}
	}
	return n
}

// Section returns the section with the given label, or nil.
func (c *Chapter) Section(label string) *Section {
	if i, ok := c.lookup()[label]; ok {
		return c.Sections[i]
	}
	return nil
}

// EnsureSection returns the section with the given label, appending an empty
// one if it does not exist yet.
func (c *Chapter) EnsureSection(label string) *Section {
	if sec := c.Section(label); sec != nil {
		return sec
	}
	id, title := splitLabel(label, "Section ")
	sec := &Section{Label: label, ID: id, Title: title, index: make(map[string]int)}
	c.index[label] = len(c.Sections)
	c.Sections = append(c.Sections, sec)
	return sec
}

func (c *Chapter) lookup() map[string]int {
	if c.index == nil {
		c.index = make(map[string]int, len(c.Sections))
		for i, sec := range c.Sections {
			c.index[sec.Label] = i
		}
	}
	return c.index
}

// Article returns the article with the given label, or nil.
func (sec *Section) Article(label string) *Article {
	if i, ok := sec.lookup()[label]; ok {
		return sec.Articles[i]
	}
	return nil
}

// PutArticle stores a under its label. An existing article with the same label
// is replaced in place and returned.
func (sec *Section) PutArticle(a *Article) (previous *Article, replaced bool) {
	if i, ok := sec.lookup()[a.Label]; ok {
		previous = sec.Articles[i]
		sec.Articles[i] = a
		return previous, true
	}
	sec.index[a.Label] = len(sec.Articles)
	sec.Articles = append(sec.Articles, a)
	return nil, false
}

func (sec *Section) lookup() map[string]int {
	if sec.index == nil {
		sec.index = make(map[string]int, len(sec.Articles))
		for i, a := range sec.Articles {
			sec.index[a.Label] = i
		}
	}
	return sec.index
}

// splitLabel recovers id and title from a normalized label. Placeholder labels
// have neither.
func splitLabel(label, keyword string) (id, title string) {
	if len(label) <= len(keyword) || label[:len(keyword)] != keyword {
		return "", ""
	}
	rest := label[len(keyword):]
	for i := 0; i+1 < len(rest); i++ {
		if rest[i] == ':' && rest[i+1] == ' ' {
			return rest[:i], rest[i+2:]
		}
	}
	if len(rest) > 0 && rest[len(rest)-1] == ':' {
		return rest[:len(rest)-1], ""
	}
	return "", ""
}
