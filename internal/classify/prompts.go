package classify

import (
	"strings"

	"github.com/dvloznov/firefly-classifier/internal/domain"
	"github.com/dvloznov/firefly-classifier/internal/firefly"
)

// buildCategoryPrompt constructs the natural-language instruction asking
// the model to pick one category name, biased by historical manually
// categorized transactions.
func buildCategoryPrompt(categories []string, examples []firefly.CategoryExample, tx domain.Transaction) string {
	var b strings.Builder

	b.WriteString("I want to categorize my bank transactions based on these categories:\n")
	b.WriteString("    " + strings.Join(categories, ", ") + ".\n\n")

	b.WriteString("    Here are examples of past transactions that were manually categorized:\n")
	for _, ex := range examples {
		b.WriteString("    - A transaction from \"" + ex.Merchant + "\" with description \"" + ex.Description +
			"\" was manually categorized as \"" + ex.Category + "\".")
		if note := flattenNote(ex.Note); note != "" {
			b.WriteString(" Note: " + note)
		}
		b.WriteString("\n")
	}

	writeTransactionDetails(&b, tx)

	b.WriteString("    Please determine the most appropriate category from the list. " +
		"If the description does not contain enough information, base your decision on the merchant name and amount. " +
		"If multiple categories could apply, choose the best match. " +
		"If no suitable category exists, pick the closest relevant one rather than saying \"Neither.\"\n\n")
	b.WriteString("    Just output the **category name only**, nothing else.")

	return b.String()
}

// buildBudgetPrompt is the budget counterpart of buildCategoryPrompt.
// Unlike categories, the model is given an explicit escape hatch: when no
// budget applies it should answer "No Budget".
func buildBudgetPrompt(budgets []string, examples []firefly.BudgetExample, tx domain.Transaction) string {
	var b strings.Builder

	b.WriteString("I want to assign transactions to one of the following budgets:\n")
	b.WriteString("    " + strings.Join(budgets, ", ") + ".\n\n")

	b.WriteString("    Here are examples of past transactions that were manually assigned a budget:\n")
	for _, ex := range examples {
		b.WriteString("    - A transaction from \"" + ex.Merchant + "\" with description \"" + ex.Description +
			"\" was manually assigned to the \"" + ex.Budget + "\" budget.\n")
	}

	writeTransactionDetails(&b, tx)

	b.WriteString("    Please determine the most appropriate budget from the list. " +
		"If no budget applies, respond with \"No Budget\".\n\n")
	b.WriteString("    Just output the **budget name only**, nothing else.")

	return b.String()
}

func writeTransactionDetails(b *strings.Builder, tx domain.Transaction) {
	b.WriteString("\n    Given the following transaction details:\n")
	b.WriteString("    - **Merchant Name:** \"" + tx.DestinationName + "\"\n")
	b.WriteString("    - **Transaction Description:** \"" + tx.Description + "\"\n")
	b.WriteString("    - **Transaction Amount:** \"" + tx.Amount + " " + tx.CurrencyCode + "\"\n")
	b.WriteString("    - **Transaction Type:** \"" + tx.Type + "\"\n\n")
}

// flattenNote collapses multi-line notes into a single prompt line.
func flattenNote(note string) string {
	fields := strings.Fields(note)
	return strings.Join(fields, " ")
}
