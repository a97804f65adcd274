// Package answer routes a question to a canned reply or to generation,
// based on how well the indexed law articles match it.
package answer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/lexgest/internal/embedding"
	"github.com/dgallion1/lexgest/internal/generate"
	"github.com/dgallion1/lexgest/internal/index"
)

// Route names the branch taken for a question.
type Route string

const (
	RouteOffTopic     Route = "off_topic"
	RouteUnanswerable Route = "unanswerable"
	RouteAnswered     Route = "answered"
	RouteError        Route = "generation_error"
)

// Retriever returns the k nearest chunks for a query vector.
type Retriever interface {
	Query(ctx context.Context, vector []float32, k int) ([]index.Match, error)
}

type Config struct {
	TopK              int
	OffTopicThreshold float64
	AnswerThreshold   float64
}

func DefaultConfig() Config {
	return Config{TopK: 5, OffTopicThreshold: 0.5, AnswerThreshold: 0.6}
}

// Source is a cited chunk. JSON keys follow the chat client's contract.
type Source struct {
	Chapter       string  `json:"chapitre"`
	Section       string  `json:"section"`
	Article       string  `json:"article"`
	ArticleNumber *string `json:"article_number,omitempty"`
	Score         float64 `json:"score"`
}

type Response struct {
	Response  string   `json:"response"`
	Sources   []Source `json:"sources"`
	Route     Route    `json:"route"`
	BestScore float64  `json:"best_score"`
}

type Router struct {
	embedder  embedding.Embedder
	retriever Retriever
	gen       generate.Generator
	cfg       Config
	log       *slog.Logger
}

func NewRouter(e embedding.Embedder, r Retriever, g generate.Generator, cfg Config, log *slog.Logger) *Router {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultConfig().TopK
	}
	return &Router{embedder: e, retriever: r, gen: g, cfg: cfg, log: log}
}

// Decide picks the route for the best match score. hasMatches is false when
// retrieval returned nothing.
func Decide(best float64, hasMatches bool, cfg Config) Route {
	switch {
	case !hasMatches || best < cfg.OffTopicThreshold:
		return RouteOffTopic
	case best < cfg.AnswerThreshold:
		return RouteUnanswerable
	default:
		return RouteAnswered
	}
}

// Answer embeds the question, retrieves the top matches and either returns a
// canned reply or generates an answer grounded on the matches. Matches below
// the off-topic threshold are never cited. A generation failure yields
// ErrorReply rather than an error.
func (r *Router) Answer(ctx context.Context, question string) (Response, error) {
	q, suspicious, err := CleanQuestion(question)
	if err != nil {
		return Response{}, err
	}
	if suspicious {
		r.log.Warn("question looks like an instruction override", "question", q)
	}

	vec, err := r.embedder.EmbedQuery(ctx, q)
	if err != nil {
		return Response{}, fmt.Errorf("embed question: %w", err)
	}
	matches, err := r.retriever.Query(ctx, vec, r.cfg.TopK)
	if err != nil {
		return Response{}, fmt.Errorf("retrieve: %w", err)
	}

	relevant := matches[:0:0]
	for _, m := range matches {
		if m.Score >= r.cfg.OffTopicThreshold {
			relevant = append(relevant, m)
		}
	}
	best := 0.0
	if len(matches) > 0 {
		best = matches[0].Score
	}

	route := Decide(best, len(matches) > 0, r.cfg)
	r.log.Info("question routed", "route", route, "best_score", best, "matches", len(matches))

	switch route {
	case RouteOffTopic:
		return Response{Response: OffTopicReply, Sources: []Source{}, Route: route, BestScore: best}, nil
	case RouteUnanswerable:
		return Response{Response: UnanswerableReply, Sources: []Source{}, Route: route, BestScore: best}, nil
	}

	resp := Response{Sources: sources(relevant), Route: route, BestScore: best}
	prompt := BuildPrompt(q, relevant)
	err = generate.Retry(ctx, r.log, generate.OpGenerate, func(ctx context.Context) error {
		text, err := r.gen.Generate(ctx, prompt)
		if err == nil {
			resp.Response = text
		}
		return err
	})
	if err != nil {
		r.log.Error("generation failed", "model", r.gen.Model(), "error", err)
		resp.Response = ErrorReply
		resp.Route = RouteError
	}
	return resp, nil
}

func sources(matches []index.Match) []Source {
	out := make([]Source, 0, len(matches))
	for _, m := range matches {
		md := m.Chunk.Metadata
		out = append(out, Source{
			Chapter:       md.Chapter,
			Section:       md.Section,
			Article:       md.Article,
			ArticleNumber: md.ArticleNumber,
			Score:         m.Score,
		})
	}
	return out
}
