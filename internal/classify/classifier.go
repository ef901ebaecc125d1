// Package classify asks a Gemini model to pick a category and a budget
// for a transaction, constrained to the ledger's own taxonomy and biased
// by historical manually-corrected transactions.
package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/firefly-classifier/internal/domain"
	"github.com/dvloznov/firefly-classifier/internal/firefly"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// Result carries both guesses plus the exact prompts and raw responses so
// the UI can show what was attempted even when nothing was applied.
// Category or Budget is empty when the model produced no answer from the
// eligible set.
type Result struct {
	Category       string
	Budget         string
	Prompt         string
	Response       string
	BudgetPrompt   string
	BudgetResponse string
}

// ExampleSource supplies the few-shot examples included in prompts. The
// Firefly client implements it.
type ExampleSource interface {
	GetManuallyCategorizedTransactions(ctx context.Context) ([]firefly.CategoryExample, error)
	GetManuallyBudgetedTransactions(ctx context.Context) ([]firefly.BudgetExample, error)
}

// GeminiClassifier is the production classifier backed by the Gemini API.
// The API key is read from the environment by the genai client.
type GeminiClassifier struct {
	client *genai.Client
	model  string
	source ExampleSource
	log    zerolog.Logger
}

// NewGeminiClassifier creates a classifier using the given model name.
func NewGeminiClassifier(ctx context.Context, model string, source ExampleSource, log zerolog.Logger) (*GeminiClassifier, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("classify: create genai client: %w", err)
	}

	return &GeminiClassifier{
		client: client,
		model:  model,
		source: source,
		log:    log,
	}, nil
}

// Classify runs the category and budget prompts in sequence. A guess that
// is empty or not in the eligible name list is treated as "no confident
// classification" and logged as a warning, never as an error. Collaborator
// failures propagate unmodified.
func (c *GeminiClassifier) Classify(ctx context.Context, categories, budgets []string, tx domain.Transaction) (Result, error) {
	catExamples, err := c.source.GetManuallyCategorizedTransactions(ctx)
	if err != nil {
		return Result{}, err
	}

	categoryPrompt := buildCategoryPrompt(categories, catExamples, tx)
	c.log.Debug().Str("model", c.model).Msg("Sending category classification request")

	categoryResponse, err := c.generate(ctx, categoryPrompt)
	if err != nil {
		return Result{}, err
	}

	category := strings.TrimSpace(categoryResponse)
	if category == "" || !containsName(categories, category) {
		c.log.Warn().Str("guess", category).Msg("Model could not confidently classify category")
		category = ""
	}

	budgetExamples, err := c.source.GetManuallyBudgetedTransactions(ctx)
	if err != nil {
		return Result{}, err
	}

	budgetPrompt := buildBudgetPrompt(budgets, budgetExamples, tx)
	c.log.Debug().Str("model", c.model).Msg("Sending budget classification request")

	budgetResponse, err := c.generate(ctx, budgetPrompt)
	if err != nil {
		return Result{}, err
	}

	budget := strings.TrimSpace(budgetResponse)
	if budget == "" || !containsName(budgets, budget) {
		c.log.Warn().Str("guess", budget).Msg("Model could not confidently classify budget")
		budget = ""
	}

	return Result{
		Category:       category,
		Budget:         budget,
		Prompt:         categoryPrompt,
		Response:       categoryResponse,
		BudgetPrompt:   budgetPrompt,
		BudgetResponse: budgetResponse,
	}, nil
}

func (c *GeminiClassifier) generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("classify: generate content: %w", err)
	}
	return resp.Text(), nil
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
