package domain

import "encoding/json"

// Transaction is one transaction split as delivered by a Firefly III
// webhook. It is read-only input: the service never mutates it, only
// derives a processing job and an update request from it.
type Transaction struct {
	Type                 string   `json:"type"`
	Tags                 []string `json:"tags"`
	CategoryID           string   `json:"category_id"`
	BudgetID             string   `json:"budget_id"`
	Description          string   `json:"description"`
	DestinationName      string   `json:"destination_name"`
	Amount               string   `json:"amount"`
	CurrencyCode         string   `json:"currency_code"`
	TransactionJournalID string   `json:"transaction_journal_id"`
}

// HasTag reports whether the transaction carries the given tag.
func (t Transaction) HasTag(tag string) bool {
	for _, s := range t.Tags {
		if s == tag {
			return true
		}
	}
	return false
}

// WebhookContent is the content envelope of a Firefly webhook message.
// Firefly sends the transaction group id as a JSON number; json.Number
// keeps it usable as a path segment without precision loss.
type WebhookContent struct {
	ID           json.Number   `json:"id"`
	Transactions []Transaction `json:"transactions"`
}

// WebhookPayload is the body of a Firefly III webhook delivery.
type WebhookPayload struct {
	Trigger  string         `json:"trigger"`
	Response string         `json:"response"`
	Content  WebhookContent `json:"content"`
}
