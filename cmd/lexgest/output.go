package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgallion1/lexgest/internal/answer"
	"github.com/dgallion1/lexgest/internal/chunker"
	"github.com/dgallion1/lexgest/internal/doctree"
	"github.com/dgallion1/lexgest/internal/pipeline"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	chapterStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81"))

	answerBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("33")).
			Padding(0, 1)
)

func statusStyle(s pipeline.JobStatus) lipgloss.Style {
	switch s {
	case pipeline.StatusCompleted:
		return successStyle
	case pipeline.StatusFailed:
		return errorStyle
	default:
		return warnStyle
	}
}

// printJob renders the outcome of an import.
func printJob(w io.Writer, snap pipeline.JobSnapshot, res pipeline.Result) {
	p := snap.Progress
	fmt.Fprintf(w, "%s %s\n", dimStyle.Render("Status:"), statusStyle(snap.Status).Render(string(snap.Status)))
	fmt.Fprintf(w, "%s %d processed, %d skipped as duplicates\n", dimStyle.Render("Documents:"), p.DocumentsProcessed, p.DocumentsSkipped)
	if res.Counts.Articles > 0 {
		fmt.Fprintf(w, "%s %d chapters, %d sections, %d articles\n", dimStyle.Render("Structure:"),
			res.Counts.Chapters, res.Counts.Sections, res.Counts.Articles)
		fmt.Fprintf(w, "%s %d (%d partial)\n", dimStyle.Render("Chunks:"), res.Chunks.Chunks, res.Chunks.Partial)
	}
	if res.Indexed > 0 {
		fmt.Fprintf(w, "%s %d chunks\n", dimStyle.Render("Indexed:"), res.Indexed)
	}
	for _, c := range res.Collisions {
		fmt.Fprintf(w, "%s %s\n", warnStyle.Render("replaced"), c)
	}
	for _, e := range p.Errors {
		fmt.Fprintf(w, "%s %s\n", errorStyle.Render("error"), e)
	}
}

func printChunkStats(w io.Writer, st chunker.Stats, cfg chunker.Config) {
	fmt.Fprintf(w, "%s %d chunks for %d articles (%d partial)\n", titleStyle.Render("Segmented"), st.Chunks, st.Articles, st.Partial)
	fmt.Fprintf(w, "%s max %d chars, overlap %d words\n", dimStyle.Render("Settings:"), cfg.MaxChunkSize, cfg.OverlapWords())
	fmt.Fprintf(w, "%s longest %d chars, ~%d tokens total\n", dimStyle.Render("Sizes:"), st.MaxChars, st.EstimatedTokens)
	if st.Oversized > 0 {
		fmt.Fprintf(w, "%s %d chunks exceed the maximum (single long sentences)\n", warnStyle.Render("note"), st.Oversized)
	}
}

// printTree renders the hierarchy, optionally with article text.
func printTree(w io.Writer, st *doctree.Structure, withText bool) {
	for _, c := range st.Chapters {
		fmt.Fprintln(w, chapterStyle.Render(c.Label))
		for _, sec := range c.Sections {
			fmt.Fprintf(w, "  %s\n", sectionStyle.Render(sec.Label))
			for _, a := range sec.Articles {
				fmt.Fprintf(w, "    %s\n", a.Label)
				if withText {
					fmt.Fprintf(w, "      %s\n", dimStyle.Render(a.Text))
				}
			}
		}
	}
	n := st.Counts()
	fmt.Fprintf(w, "%s\n", dimStyle.Render(fmt.Sprintf("%d chapters, %d sections, %d articles", n.Chapters, n.Sections, n.Articles)))
}

func printAnswer(w io.Writer, resp answer.Response) {
	fmt.Fprintln(w, answerBoxStyle.Render(strings.TrimSpace(resp.Response)))
	fmt.Fprintf(w, "%s %s (best score %.3f)\n", dimStyle.Render("Route:"), resp.Route, resp.BestScore)
	if len(resp.Sources) == 0 {
		return
	}
	fmt.Fprintln(w, titleStyle.Render("Sources"))
	for i, s := range resp.Sources {
		fmt.Fprintf(w, "  %d. %s | %s | %s %s\n", i+1, s.Chapter, s.Section, s.Article,
			dimStyle.Render(fmt.Sprintf("(%.3f)", s.Score)))
	}
}
