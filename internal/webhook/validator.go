// Package webhook decides whether an inbound Firefly III webhook delivery
// should result in a classification job. Validation is a pure function over
// the decoded payload; transport concerns live in internal/api.
package webhook

import "github.com/dvloznov/firefly-classifier/internal/domain"

// Trigger and response values Firefly sends for a stored transaction.
const (
	TriggerStoreTransaction = "STORE_TRANSACTION"
	ResponseTransactions    = "TRANSACTIONS"
	transactionTypeWithdraw = "withdrawal"
	pendingTag              = "pending"
)

// SkipError marks a payload that fails a validation check. It is a
// deliberate non-error outcome: the webhook caller gets a 200 with the
// reason, and nothing is logged at error level.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return e.Reason
}

func skip(reason string) *SkipError {
	return &SkipError{Reason: reason}
}

// Result is a validated webhook: the transaction to classify plus the
// flags deciding which of category and budget are still unset.
type Result struct {
	Transaction      domain.Transaction
	ShouldCategorize bool
	ShouldBudget     bool
}

// Validate applies the acceptance checks in strict order; the first
// failing check determines the skip reason. Only the first transaction of
// the group is considered.
func Validate(p *domain.WebhookPayload) (Result, error) {
	if p.Trigger != TriggerStoreTransaction {
		return Result{}, skip("trigger is not STORE_TRANSACTION. Request will not be processed")
	}

	if p.Response != ResponseTransactions {
		return Result{}, skip("response is not TRANSACTIONS. Request will not be processed")
	}

	if p.Content.ID.String() == "" {
		return Result{}, skip("Missing content.id")
	}

	if len(p.Content.Transactions) == 0 {
		return Result{}, skip("No transactions are available in content.transactions")
	}

	tx := p.Content.Transactions[0]

	if tx.Type != transactionTypeWithdraw {
		return Result{}, skip("content.transactions[0].type has to be 'withdrawal'. Transaction will be ignored.")
	}

	// Pending transactions are re-delivered later in finalized form.
	if tx.HasTag(pendingTag) {
		return Result{}, skip("Transaction has the 'pending' tag and will be ignored.")
	}

	shouldCategorize := tx.CategoryID == ""
	// The type clause is unreachable after the withdrawal check above; it is
	// kept so the budget rule stays intact if the type filter ever changes.
	shouldBudget := tx.BudgetID == "" || tx.Type != transactionTypeWithdraw

	if !shouldCategorize && !shouldBudget {
		return Result{}, skip("Transaction already has both category and budget set. It will be ignored.")
	}

	if tx.Description == "" {
		return Result{}, skip("Missing content.transactions[0].description")
	}

	if tx.DestinationName == "" {
		return Result{}, skip("Missing content.transactions[0].destination_name")
	}

	return Result{
		Transaction:      tx,
		ShouldCategorize: shouldCategorize,
		ShouldBudget:     shouldBudget,
	}, nil
}
