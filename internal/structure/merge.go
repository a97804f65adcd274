package structure

import (
	"fmt"

	"github.com/dgallion1/lexgest/internal/doctree"
)

// Collision records an article label present in more than one merged input.
// The later input's article was kept.
type Collision struct {
	Chapter     string `json:"chapter"`
	Section     string `json:"section"`
	Article     string `json:"article"`
	PreviousLen int    `json:"previous_len"`
	NewLen      int    `json:"new_len"`
}

func (c Collision) String() string {
	return fmt.Sprintf("%s | %s | %s replaced (%d -> %d chars)", c.Chapter, c.Section, c.Article, c.PreviousLen, c.NewLen)
}

// Merge deep-merges structures left to right into a new structure. Chapters,
// sections and articles keep first-seen order. When an article label repeats,
// the later text replaces the earlier one in place and a Collision is
// reported, so the result depends on input order.
func Merge(structures ...*doctree.Structure) (*doctree.Structure, []Collision) {
	out := doctree.New()
	var collisions []Collision
	for _, s := range structures {
		if s == nil {
			continue
		}
		for _, c := range s.Chapters {
			dc := out.EnsureChapter(c.Label)
			for _, sec := range c.Sections {
				ds := dc.EnsureSection(sec.Label)
				for _, a := range sec.Articles {
					cp := *a
					if prev, replaced := ds.PutArticle(&cp); replaced {
						collisions = append(collisions, Collision{
							Chapter:     c.Label,
							Section:     sec.Label,
							Article:     a.Label,
							PreviousLen: len([]rune(prev.Text)),
							NewLen:      len([]rune(a.Text)),
						})
					}
				}
			}
		}
	}
	return out, collisions
}
