package classifier

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/finance-ledger/internal/categories"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type mockGenerator struct {
	GenerateFunc func(ctx context.Context, prompt string) (string, error)
	prompts      []string
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	return "", nil
}

func newTestClassifier(gen Generator, timeout time.Duration) *ModelClassifier {
	return NewModelClassifier(gen, categories.Default(), timeout, zerolog.New(io.Discard))
}

func TestModelClassifier_Categorize(t *testing.T) {
	gen := &mockGenerator{
		GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
			return `{"suggested_category":"Transportation","confidence":0.88,"transaction_type":"expense","extracted_amount":23.4}`, nil
		},
	}
	c := newTestClassifier(gen, time.Second)

	amount := decimal.RequireFromString("23.40")
	got, err := c.Categorize(context.Background(), Request{Description: "Uber to airport", Amount: &amount})
	if err != nil {
		t.Fatalf("Categorize() error = %v", err)
	}
	if got.CategoryID == nil || *got.CategoryID != "transportation" {
		t.Errorf("CategoryID = %v, want transportation", got.CategoryID)
	}
	if got.Confidence != 0.88 {
		t.Errorf("Confidence = %v, want 0.88", got.Confidence)
	}

	if len(gen.prompts) != 1 {
		t.Fatalf("Generate called %d times, want exactly 1", len(gen.prompts))
	}
	prompt := gen.prompts[0]
	for _, want := range []string{"Uber to airport", "23.4", "Food & Dining", "Salary"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt does not contain %q", want)
		}
	}
}

func TestModelClassifier_Failures(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		genErr     error
		wantReason string
	}{
		{"transport error", "", errors.New("connection refused"), "model request failed"},
		{"empty reply", "   ", nil, "empty response from model"},
		{"malformed reply", "I think this is food", nil, "malformed model response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &mockGenerator{
				GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
					return tt.reply, tt.genErr
				},
			}
			c := newTestClassifier(gen, time.Second)

			_, err := c.Categorize(context.Background(), Request{Description: "coffee"})
			var ce *domain.ClassificationError
			if !errors.As(err, &ce) {
				t.Fatalf("Categorize() error = %v, want *ClassificationError", err)
			}
			if ce.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", ce.Reason, tt.wantReason)
			}
			if len(gen.prompts) != 1 {
				t.Errorf("Generate called %d times, want exactly 1 (no retries)", len(gen.prompts))
			}
		})
	}
}

func TestModelClassifier_Timeout(t *testing.T) {
	gen := &mockGenerator{
		GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	c := newTestClassifier(gen, 20*time.Millisecond)

	_, err := c.Categorize(context.Background(), Request{Description: "slow"})
	var ce *domain.ClassificationError
	if !errors.As(err, &ce) {
		t.Fatalf("Categorize() error = %v, want *ClassificationError", err)
	}
	if ce.Reason != "model request cancelled or timed out" {
		t.Errorf("Reason = %q", ce.Reason)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error should wrap context.DeadlineExceeded, got %v", err)
	}
}

func TestModelClassifier_Cancelled(t *testing.T) {
	gen := &mockGenerator{
		GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	c := newTestClassifier(gen, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Categorize(ctx, Request{Description: "cancelled"})
	if !errors.Is(err, domain.ErrClassification) {
		t.Fatalf("Categorize() error = %v, want classification error", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error should wrap context.Canceled, got %v", err)
	}
}

func TestModelClassifier_EmptyDescription(t *testing.T) {
	gen := &mockGenerator{}
	c := newTestClassifier(gen, time.Second)

	_, err := c.Categorize(context.Background(), Request{Description: "  "})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Categorize() error = %v, want validation error", err)
	}
	if len(gen.prompts) != 0 {
		t.Error("Generate should not be called for an empty description")
	}
}
