// Package pipeline orchestrates the classification of a single accepted
// transaction: fetch the ledger taxonomy, ask the model, decide what to
// write back, and move the job through its lifecycle.
package pipeline

import (
	"context"
	"sort"

	"github.com/dvloznov/firefly-classifier/internal/classify"
	"github.com/dvloznov/firefly-classifier/internal/domain"
	"github.com/dvloznov/firefly-classifier/internal/jobs"
	"github.com/rs/zerolog"
)

// Sentinel answers meaning "do not assign anything". They are never
// resolved to ledger ids.
const (
	sentinelNeither  = "Neither"
	sentinelNoBudget = "No Budget"
)

// Ledger is the subset of the Firefly client the processor needs.
type Ledger interface {
	GetCategories(ctx context.Context) (map[string]string, error)
	GetBudgets(ctx context.Context) (map[string]string, error)
	SetCategoryAndBudget(ctx context.Context, transactionID string, transactions []domain.Transaction, categoryID, budgetID string) error
}

// Classifier produces category and budget guesses for a transaction.
type Classifier interface {
	Classify(ctx context.Context, categories, budgets []string, tx domain.Transaction) (classify.Result, error)
}

// Request describes one queued classification task. Transactions holds
// the full split list from the webhook; Transaction is the first split,
// the one classification decisions are based on.
type Request struct {
	JobID            string
	TransactionID    string
	Transactions     []domain.Transaction
	Transaction      domain.Transaction
	ShouldCategorize bool
	ShouldBudget     bool
}

// Processor runs classification tasks. It performs no retries: any
// collaborator error propagates to the queue's generic error handler.
type Processor struct {
	store      jobs.Store
	ledger     Ledger
	classifier Classifier
	log        zerolog.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(store jobs.Store, ledger Ledger, classifier Classifier, log zerolog.Logger) *Processor {
	return &Processor{
		store:      store,
		ledger:     ledger,
		classifier: classifier,
		log:        log,
	}
}

// Process executes one job end to end. The taxonomy is fetched fresh for
// every job; staleness within the few seconds a job runs is accepted.
func (p *Processor) Process(ctx context.Context, req Request) error {
	log := p.log.With().Str("job_id", req.JobID).Logger()
	log.Info().
		Bool("should_categorize", req.ShouldCategorize).
		Bool("should_budget", req.ShouldBudget).
		Msg("Job started")

	p.store.SetInProgress(req.JobID)

	categories, err := p.ledger.GetCategories(ctx)
	if err != nil {
		return err
	}
	budgets, err := p.ledger.GetBudgets(ctx)
	if err != nil {
		return err
	}
	log.Debug().Int("categories", len(categories)).Int("budgets", len(budgets)).Msg("Taxonomy retrieved")

	result, err := p.classifier.Classify(ctx, sortedNames(categories), sortedNames(budgets), req.Transaction)
	if err != nil {
		return err
	}
	log.Debug().Str("category", result.Category).Str("budget", result.Budget).Msg("Classification result")

	categoryToSet := ""
	if req.ShouldCategorize && result.Category != "" && result.Category != sentinelNeither {
		categoryToSet = categories[result.Category]
	}
	budgetToSet := ""
	if req.ShouldBudget && result.Budget != "" && result.Budget != sentinelNoBudget {
		budgetToSet = budgets[result.Budget]
	}

	if categoryToSet != "" || budgetToSet != "" {
		log.Info().Msg("Updating ledger transaction")
		if err := p.ledger.SetCategoryAndBudget(ctx, req.TransactionID, req.Transactions, categoryToSet, budgetToSet); err != nil {
			return err
		}
	} else {
		log.Info().Msg("No ledger update needed")
	}

	// Record what was attempted even when nothing was written back.
	p.store.UpdateData(req.JobID, map[string]string{
		jobs.DataCategory:       result.Category,
		jobs.DataBudget:         result.Budget,
		jobs.DataPrompt:         result.Prompt,
		jobs.DataResponse:       result.Response,
		jobs.DataBudgetPrompt:   result.BudgetPrompt,
		jobs.DataBudgetResponse: result.BudgetResponse,
	})

	p.store.SetFinished(req.JobID)
	log.Info().Msg("Job finished")
	return nil
}

func sortedNames(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
