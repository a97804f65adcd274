package structure

import (
	"strings"
	"testing"

	"github.com/dgallion1/lexgest/internal/doctree"
)

func TestClassify(t *testing.T) {
	c := NewClassifier()
	tests := []struct {
		line      string
		kind      Kind
		id        string
		title     string
		canonical bool
		deferred  bool
	}{
		{"CHAPITRE I. - Dispositions générales", ChapterHeader, "I", "Dispositions générales", true, false},
		{"Chapitre IV: De la sécurité", ChapterHeader, "IV", "De la sécurité", false, false},
		{"chapitre ii.", ChapterHeader, "ii", "", false, true},
		{"Section première. - Déclaration", SectionHeader, "première", "Déclaration", true, false},
		{"Section 3: Champ", SectionHeader, "3", "Champ", false, false},
		{"SECTION II:", SectionHeader, "II", "", false, true},
		{"Article 12. Le responsable du traitement", ArticleHeader, "12", "", false, false},
		{"ARTICLE 4: Définitions", ArticleHeader, "4", "", false, false},
		{"Article premier", Plain, "", "", false, false},
		{"Les articles suivants s'appliquent.", Plain, "", "", false, false},
		{"Section 4 Champ", Plain, "", "", false, false},
	}
	for _, tt := range tests {
		h := c.Classify(tt.line)
		if h.Kind != tt.kind {
			t.Errorf("Classify(%q): expected %s, got %s", tt.line, tt.kind, h.Kind)
			continue
		}
		if h.ID != tt.id || strings.TrimSpace(h.Title) != tt.title {
			t.Errorf("Classify(%q): expected id=%q title=%q, got id=%q title=%q", tt.line, tt.id, tt.title, h.ID, h.Title)
		}
		if h.Canonical != tt.canonical || h.TitleDeferred != tt.deferred {
			t.Errorf("Classify(%q): expected canonical=%v deferred=%v, got %v %v", tt.line, tt.canonical, tt.deferred, h.Canonical, h.TitleDeferred)
		}
	}
}

func TestEndsArticle(t *testing.T) {
	c := NewClassifier()
	tests := []struct {
		line string
		want bool
	}{
		{"Article 2. Suite", true},
		{"CHAPITRE V. - Sanctions", true},
		{"CHAPITRE V. -", true},
		{"Section 2. - Contrôle", true},
		{"Chapitre IV: Titre", false},
		{"Section 2: Contrôle", false},
		{"le présent article", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := c.EndsArticle(tt.line); got != tt.want {
			t.Errorf("EndsArticle(%q): expected %v, got %v", tt.line, tt.want, got)
		}
	}
}

func TestClean_StripsPageArtifacts(t *testing.T) {
	got := Clean("Article 1. Début ► Page 3 ◄\nsuite Page 12 ◄ fin")
	if strings.Contains(got, "Page") || strings.Contains(got, "◄") {
		t.Errorf("expected page markers removed, got %q", got)
	}
	if got := Clean("premie\u0300re"); got != "premi\u00e8re" {
		t.Errorf("expected NFC output, got %q", got)
	}
}

func filler(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = "ligne de remplissage"
	}
	return lines
}

func TestLookback_WindowBoundary(t *testing.T) {
	lines := append([]string{"CHAPITRE 2. Des formalités"}, filler(9)...)
	lines = append(lines, "Section 1. - Champ")

	label, ok := Lookback(lines, 10, DefaultLookback, ChapterReconstruction)
	if !ok {
		t.Fatal("expected chapter keyword exactly 10 lines back to be found")
	}
	if !strings.HasPrefix(label, "Chapitre 2: Des formalités") {
		t.Errorf("unexpected label %q", label)
	}

	lines = append([]string{"CHAPITRE 2. Des formalités"}, filler(10)...)
	lines = append(lines, "Section 1. - Champ")
	if label, ok := Lookback(lines, 11, DefaultLookback, ChapterReconstruction); ok {
		t.Errorf("expected no match 11 lines back, got %q", label)
	}
}

func TestLookback_ContinuesPastFailedReconstruction(t *testing.T) {
	lines := []string{"Chapitre 3 Titre", "chapitre", "x", "Section 1. - A"}
	label, ok := Lookback(lines, 3, DefaultLookback, ChapterReconstruction)
	if !ok {
		t.Fatal("expected reconstruction from the earlier keyword line")
	}
	if !strings.HasPrefix(label, "Chapitre 3") {
		t.Errorf("unexpected label %q", label)
	}
}

func TestLookback_NoKeyword(t *testing.T) {
	if _, ok := Lookback(filler(5), 5, DefaultLookback, SectionReconstruction); ok {
		t.Error("expected no match without a keyword line")
	}
	if _, ok := Lookback(nil, 0, DefaultLookback, SectionReconstruction); ok {
		t.Error("expected no match on empty input")
	}
}

// flatten renders a structure as chapter/section/article paths for comparison.
func flatten(s *doctree.Structure) map[string]string {
	out := make(map[string]string)
	for _, c := range s.Chapters {
		for _, sec := range c.Sections {
			for _, a := range sec.Articles {
				out[c.Label+" | "+sec.Label+" | "+a.Label] = a.Text
			}
		}
	}
	return out
}

func TestExtract_CanonicalDocument(t *testing.T) {
	s := Extract("CHAPITRE I. - Dispositions\nSection 1. - Champ\nArticle 1. Tout traitement...")

	if len(s.Chapters) != 1 || s.Chapters[0].Label != "Chapitre I: Dispositions" {
		t.Fatalf("unexpected chapters: %+v", s.Chapters)
	}
	sec := s.Chapters[0].Section("Section 1: Champ")
	if sec == nil {
		t.Fatal("expected section \"Section 1: Champ\"")
	}
	a := sec.Article("Article 1")
	if a == nil {
		t.Fatal("expected article \"Article 1\"")
	}
	if a.Text != "Article 1. Tout traitement..." {
		t.Errorf("unexpected article text %q", a.Text)
	}
}

func TestExtract_DeferredTitles(t *testing.T) {
	s := Extract("CHAPITRE III:\nDe la protection\nSection première:\nDéfinitions\nArticle 5: Texte")
	got := flatten(s)
	key := "Chapitre III: De la protection | Section première: Définitions | Article 5"
	if got[key] != "Article 5: Texte" {
		t.Errorf("expected %q, got %v", key, got)
	}
}

func TestExtract_ArticleBodyTermination(t *testing.T) {
	text := strings.Join([]string{
		"CHAPITRE I. - Objet",
		"Section 1. - Champ",
		"Article 1. Début ► Page 3 ◄",
		"  suite du texte  ",
		"",
		"Chapitre IV: reste dans l'article",
		"Article 2: Autre",
		"CHAPITRE II. - Suivant",
		"Section 1. - Suite",
		"Article 3. X",
	}, "\n")
	got := flatten(Extract(text))

	want := map[string]string{
		"Chapitre I: Objet | Section 1: Champ | Article 1":    "Article 1. Début suite du texte Chapitre IV: reste dans l'article",
		"Chapitre I: Objet | Section 1: Champ | Article 2":    "Article 2: Autre",
		"Chapitre II: Suivant | Section 1: Suite | Article 3": "Article 3. X",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d articles, got %v", len(want), got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s: expected %q, got %q", k, v, got[k])
		}
	}
}

func TestExtract_Placeholders(t *testing.T) {
	s := Extract("Préambule\nArticle 1. A\nArticle 2. B")
	if len(s.Chapters) != 1 || s.Chapters[0].Label != doctree.UnspecifiedChapter {
		t.Fatalf("expected placeholder chapter, got %+v", s.Chapters)
	}
	sec := s.Chapters[0].Section(doctree.UnspecifiedSection)
	if sec == nil || len(sec.Articles) != 2 {
		t.Fatalf("expected two articles under placeholder section, got %+v", s.Chapters[0].Sections)
	}
}

func TestExtract_SectionReconstructedForOrphanArticle(t *testing.T) {
	got := flatten(Extract("Section 4 Champ\nArticle 7. Texte"))
	key := doctree.UnspecifiedChapter + " | Section 4: Champ | Article 7"
	if got[key] != "Article 7. Texte" {
		t.Errorf("expected %q under reconstructed section, got %v", key, got)
	}
}

func TestExtract_ChapterReconstructedForOrphanSection(t *testing.T) {
	lines := append([]string{"CHAPITRE 2. Des formalités"}, filler(9)...)
	lines = append(lines, "Section 1. - Champ", "Article 1. Texte")
	s := Extract(strings.Join(lines, "\n"))
	if len(s.Chapters) != 1 || !strings.HasPrefix(s.Chapters[0].Label, "Chapitre 2: Des formalités") {
		t.Fatalf("expected reconstructed chapter, got %+v", s.Chapters)
	}

	lines = append([]string{"CHAPITRE 2. Des formalités"}, filler(10)...)
	lines = append(lines, "Section 1. - Champ", "Article 1. Texte")
	s = Extract(strings.Join(lines, "\n"))
	if len(s.Chapters) != 1 || s.Chapters[0].Label != doctree.UnspecifiedChapter {
		t.Fatalf("expected placeholder chapter, got %+v", s.Chapters)
	}
}

func TestExtract_ReopenedChapterKeepsSections(t *testing.T) {
	s := Extract("CHAPITRE I. - A\nSection 1. - S\nArticle 1. x\nCHAPITRE I. - A\nSection 2. - T\nArticle 2. y")
	if len(s.Chapters) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(s.Chapters))
	}
	if n := len(s.Chapters[0].Sections); n != 2 {
		t.Errorf("expected 2 sections, got %d", n)
	}
}

func TestExtract_NeverDropsArticles(t *testing.T) {
	// Noise and unknown headers must degrade to content, not errors.
	s := Extract("Titre\nArticle 1. a\n???\nChapitre X. sans tiret\nArticle 2. b")
	if n := s.Counts().Articles; n != 2 {
		t.Errorf("expected 2 articles, got %d", n)
	}
}

func article(ch, sec, label, text string) *doctree.Structure {
	s := doctree.New()
	s.EnsureChapter(ch).EnsureSection(sec).PutArticle(&doctree.Article{Label: label, Text: text})
	return s
}

func TestMerge_RightBiased(t *testing.T) {
	a := article("Chapitre I: A", "Section 1: S", "Article 1", "old")
	b := article("Chapitre I: A", "Section 1: S", "Article 1", "newer")
	b.Chapters[0].Sections[0].PutArticle(&doctree.Article{Label: "Article 2", Text: "two"})

	ab, collisions := Merge(a, b)
	if got := ab.Chapters[0].Sections[0].Articles[0].Text; got != "newer" {
		t.Errorf("expected later input to win, got %q", got)
	}
	if len(collisions) != 1 {
		t.Fatalf("expected 1 collision, got %d", len(collisions))
	}
	if c := collisions[0]; c.Article != "Article 1" || c.PreviousLen != 3 || c.NewLen != 5 {
		t.Errorf("unexpected collision %+v", c)
	}

	ba, _ := Merge(b, a)
	if got := ba.Chapters[0].Sections[0].Article("Article 1").Text; got != "old" {
		t.Errorf("expected reversed order to keep %q, got %q", "old", got)
	}
	if ba.Chapters[0].Sections[0].Article("Article 2") == nil {
		t.Error("expected non-colliding article to survive either order")
	}
}

func TestMerge_DisjointInputsUnchanged(t *testing.T) {
	a := article("Chapitre I: A", "Section 1: S", "Article 1", "one")
	b := article("Chapitre II: B", "Section 1: S", "Article 9", "nine")

	m, collisions := Merge(a, nil, b)
	if len(collisions) != 0 {
		t.Errorf("expected no collisions, got %v", collisions)
	}
	if len(m.Chapters) != 2 || m.Chapters[0].Label != "Chapitre I: A" {
		t.Errorf("expected chapters in input order, got %+v", m.Chapters)
	}
	// Inputs are not aliased by the result.
	m.Chapters[0].Sections[0].Articles[0].Text = "changed"
	if a.Chapters[0].Sections[0].Articles[0].Text != "one" {
		t.Error("expected merge to copy articles")
	}
}
