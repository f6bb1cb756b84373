package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/finance-ledger/internal/categories"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// Generator sends a prompt to a language model and returns its text reply.
type Generator interface {
	// Generate returns the model's raw text output for prompt.
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator is the Generator backed by the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

// NewGeminiGenerator creates a Gemini client. An empty apiKey falls back to
// the GOOGLE_API_KEY / GEMINI_API_KEY environment variables.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiGenerator: create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiGenerator{
		client: client,
		model:  model,
		config: &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0.1)},
	}, nil
}

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, g.config)
	if err != nil {
		return "", fmt.Errorf("Generate: generate content: %w", err)
	}
	return resp.Text(), nil
}

// ModelClassifier categorizes transactions by prompting a Generator with
// the registry's categories.
type ModelClassifier struct {
	gen      Generator
	registry *categories.Registry
	timeout  time.Duration
	log      zerolog.Logger
}

// NewModelClassifier creates a classifier. timeout <= 0 uses DefaultTimeout.
func NewModelClassifier(gen Generator, registry *categories.Registry, timeout time.Duration, log zerolog.Logger) *ModelClassifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ModelClassifier{gen: gen, registry: registry, timeout: timeout, log: log}
}

// Categorize implements Classifier.
func (c *ModelClassifier) Categorize(ctx context.Context, req Request) (domain.AISuggestion, error) {
	if strings.TrimSpace(req.Description) == "" {
		return domain.AISuggestion{}, domain.NewValidationError("description", "must not be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	raw, err := c.gen.Generate(ctx, buildPrompt(c.registry, req))
	if err != nil {
		reason := "model request failed"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
			reason = "model request cancelled or timed out"
		}
		c.log.Warn().Err(err).Dur("duration", time.Since(start)).Msg("Categorization failed")
		return domain.AISuggestion{}, &domain.ClassificationError{Reason: reason, Err: err}
	}
	if strings.TrimSpace(raw) == "" {
		return domain.AISuggestion{}, &domain.ClassificationError{Reason: "empty response from model"}
	}

	s, err := parseSuggestion(raw, c.registry)
	if err != nil {
		c.log.Warn().Err(err).Str("raw", raw).Msg("Could not parse model response")
		return domain.AISuggestion{}, err
	}

	c.log.Debug().
		Str("suggested_category", s.SuggestedCategory).
		Float64("confidence", s.Confidence).
		Dur("duration", time.Since(start)).
		Msg("Categorization succeeded")

	return s, nil
}

var _ Classifier = (*ModelClassifier)(nil)
var _ Generator = (*GeminiGenerator)(nil)
