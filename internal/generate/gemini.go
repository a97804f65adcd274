package generate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Gemini generates answers with a Gemini generative model.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	m := client.GenerativeModel(model)
	m.SetTemperature(0.2)
	m.SetTopP(0.95)
	m.SetTopK(40)
	m.SetMaxOutputTokens(2048)
	return &Gemini{client: client, model: m, name: model}, nil
}

func (g *Gemini) Model() string { return g.name }

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", WrapGeminiError(err)
	}

	var parts []string
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				parts = append(parts, string(text))
			}
		}
	}
	text := strings.TrimSpace(strings.Join(parts, "\n"))
	if text == "" {
		return "", fmt.Errorf("empty response from gemini")
	}
	return text, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

// WrapGeminiError turns rate-limit, quota and server-side failures into a
// RetryableError. Other errors are returned unchanged.
func WrapGeminiError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500 {
			return &RetryableError{StatusCode: apiErr.Code, Message: apiErr.Error()}
		}
		return err
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "quota"),
		strings.Contains(msg, "resource exhausted"),
		strings.Contains(msg, "resourceexhausted"):
		return &RetryableError{StatusCode: http.StatusTooManyRequests, Message: err.Error()}
	case strings.Contains(msg, "unavailable"), strings.Contains(msg, "503"):
		return &RetryableError{StatusCode: http.StatusServiceUnavailable, Message: err.Error()}
	}
	return err
}
