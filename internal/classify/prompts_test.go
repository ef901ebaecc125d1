package classify

import (
	"strings"
	"testing"

	"github.com/dvloznov/firefly-classifier/internal/domain"
	"github.com/dvloznov/firefly-classifier/internal/firefly"
)

func sampleTransaction() domain.Transaction {
	return domain.Transaction{
		Type:            "withdrawal",
		Description:     "Coffee Shop",
		DestinationName: "Blue Bottle",
		Amount:          "4.50",
		CurrencyCode:    "USD",
	}
}

func TestBuildCategoryPrompt(t *testing.T) {
	categories := []string{"Dining", "Groceries", "Transport"}
	examples := []firefly.CategoryExample{
		{Merchant: "Tesco", Description: "Weekly shop", Category: "Groceries", Note: "big\n\nbasket"},
		{Merchant: "TfL", Description: "Travel charge", Category: "Transport"},
	}

	prompt := buildCategoryPrompt(categories, examples, sampleTransaction())

	for _, want := range []string{
		"Dining, Groceries, Transport",
		`A transaction from "Tesco" with description "Weekly shop" was manually categorized as "Groceries".`,
		"Note: big basket",
		`- **Merchant Name:** "Blue Bottle"`,
		`- **Transaction Description:** "Coffee Shop"`,
		`- **Transaction Amount:** "4.50 USD"`,
		`- **Transaction Type:** "withdrawal"`,
		"**category name only**",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Category prompt missing %q\n%s", want, prompt)
		}
	}
}

func TestBuildCategoryPrompt_NoNote(t *testing.T) {
	examples := []firefly.CategoryExample{
		{Merchant: "TfL", Description: "Travel charge", Category: "Transport"},
	}

	prompt := buildCategoryPrompt([]string{"Transport"}, examples, sampleTransaction())

	if strings.Contains(prompt, "Note:") {
		t.Error("Prompt should not contain a note marker for example without note")
	}
}

func TestBuildBudgetPrompt(t *testing.T) {
	budgets := []string{"Food", "Travel"}
	examples := []firefly.BudgetExample{
		{Merchant: "Tesco", Description: "Weekly shop", Budget: "Food"},
	}

	prompt := buildBudgetPrompt(budgets, examples, sampleTransaction())

	for _, want := range []string{
		"Food, Travel",
		`A transaction from "Tesco" with description "Weekly shop" was manually assigned to the "Food" budget.`,
		`respond with "No Budget"`,
		"**budget name only**",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Budget prompt missing %q\n%s", want, prompt)
		}
	}
}

func TestFlattenNote(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"single line", "single line"},
		{"first\nsecond", "first second"},
		{"  padded \n\n lines  ", "padded lines"},
	}

	for _, tt := range tests {
		if got := flattenNote(tt.input); got != tt.want {
			t.Errorf("flattenNote(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestContainsName(t *testing.T) {
	names := []string{"Dining", "Groceries"}

	if !containsName(names, "Dining") {
		t.Error("Expected exact match to be found")
	}
	if containsName(names, "dining") {
		t.Error("Matching is case-sensitive: the guess must equal a ledger name exactly")
	}
	if containsName(names, "") {
		t.Error("Empty guess must not match")
	}
}
