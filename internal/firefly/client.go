// Package firefly is a thin REST client for the parts of the Firefly III
// API this service consumes: the category/budget taxonomy, historical
// manually-corrected transactions used as few-shot examples, and the
// transaction update endpoint.
package firefly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dvloznov/firefly-classifier/internal/domain"
	"github.com/rs/zerolog"
)

// Tags marking transactions whose category/budget was corrected by hand.
// Transactions carrying them are harvested as few-shot examples.
const (
	manualCategoryTag = "Manually Categorised"
	manualBudgetTag   = "Manually Budgeted"
)

// fewShotLimit caps how many historical examples go into a prompt.
const fewShotLimit = 10

// APIError is returned when Firefly responds with a non-success status.
// It carries the status code and raw body for diagnosis.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("firefly: unexpected status %d: %s", e.StatusCode, e.Body)
}

// CategoryExample is one manually categorized historical transaction.
type CategoryExample struct {
	Merchant    string
	Description string
	Category    string
	Note        string
}

// BudgetExample is one manually budgeted historical transaction.
type BudgetExample struct {
	Merchant    string
	Description string
	Budget      string
}

// Client communicates with a Firefly III instance over HTTP.
type Client struct {
	baseURL     string
	token       string
	categoryTag string
	budgetTag   string
	httpClient  *http.Client
	log         zerolog.Logger
}

// NewClient creates a Client for the given Firefly base URL and personal
// access token. categoryTag and budgetTag are appended to transactions
// updated by this service so later webhook runs can tell AI-assigned
// fields from manual ones.
func NewClient(baseURL, token, categoryTag, budgetTag string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		token:       token,
		categoryTag: categoryTag,
		budgetTag:   budgetTag,
		httpClient:  &http.Client{},
		log:         log,
	}
}

// taxonomyResponse mirrors the JSON of GET /api/v1/categories and
// GET /api/v1/budgets.
type taxonomyResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			Name string `json:"name"`
		} `json:"attributes"`
	} `json:"data"`
}

// GetCategories returns the category name to id mapping.
func (c *Client) GetCategories(ctx context.Context) (map[string]string, error) {
	return c.getTaxonomy(ctx, "/api/v1/categories")
}

// GetBudgets returns the budget name to id mapping.
func (c *Client) GetBudgets(ctx context.Context) (map[string]string, error) {
	return c.getTaxonomy(ctx, "/api/v1/budgets")
}

func (c *Client) getTaxonomy(ctx context.Context, path string) (map[string]string, error) {
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var resp taxonomyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("firefly: decoding %s response: %w", path, err)
	}

	result := make(map[string]string, len(resp.Data))
	for _, entry := range resp.Data {
		result[entry.Attributes.Name] = entry.ID
	}
	return result, nil
}

// tagTransactionsResponse mirrors GET /api/v1/tags/{tag}/transactions.
type tagTransactionsResponse struct {
	Data []struct {
		Attributes struct {
			Transactions []struct {
				DestinationName string `json:"destination_name"`
				Description     string `json:"description"`
				CategoryName    string `json:"category_name"`
				BudgetName      string `json:"budget_name"`
				Notes           string `json:"notes"`
			} `json:"transactions"`
		} `json:"attributes"`
	} `json:"data"`
}

// GetManuallyCategorizedTransactions returns up to 10 unique historical
// transactions that carry the manual-categorization tag. Uniqueness is
// keyed by merchant plus description, first occurrence wins.
func (c *Client) GetManuallyCategorizedTransactions(ctx context.Context) ([]CategoryExample, error) {
	resp, err := c.getTagTransactions(ctx, manualCategoryTag)
	if err != nil {
		return nil, err
	}

	var examples []CategoryExample
	seen := make(map[string]bool)
	for _, entry := range resp.Data {
		for _, tx := range entry.Attributes.Transactions {
			merchant := orDefault(tx.DestinationName, "Unknown Merchant")
			description := orDefault(tx.Description, "No description")

			key := merchant + "-" + description
			if seen[key] {
				continue
			}
			seen[key] = true

			examples = append(examples, CategoryExample{
				Merchant:    merchant,
				Description: description,
				Category:    orDefault(tx.CategoryName, "Unknown"),
				Note:        tx.Notes,
			})
		}
	}

	if len(examples) > fewShotLimit {
		examples = examples[:fewShotLimit]
	}
	return examples, nil
}

// GetManuallyBudgetedTransactions returns up to 10 unique historical
// transactions that carry the manual-budget tag.
func (c *Client) GetManuallyBudgetedTransactions(ctx context.Context) ([]BudgetExample, error) {
	resp, err := c.getTagTransactions(ctx, manualBudgetTag)
	if err != nil {
		return nil, err
	}

	var examples []BudgetExample
	seen := make(map[string]bool)
	for _, entry := range resp.Data {
		for _, tx := range entry.Attributes.Transactions {
			merchant := orDefault(tx.DestinationName, "Unknown Merchant")
			description := orDefault(tx.Description, "No description")

			key := merchant + "-" + description
			if seen[key] {
				continue
			}
			seen[key] = true

			examples = append(examples, BudgetExample{
				Merchant:    merchant,
				Description: description,
				Budget:      orDefault(tx.BudgetName, "Unknown"),
			})
		}
	}

	if len(examples) > fewShotLimit {
		examples = examples[:fewShotLimit]
	}
	return examples, nil
}

func (c *Client) getTagTransactions(ctx context.Context, tag string) (*tagTransactionsResponse, error) {
	path := fmt.Sprintf("/api/v1/tags/%s/transactions?limit=50", url.PathEscape(tag))
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var resp tagTransactionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("firefly: decoding tag transactions: %w", err)
	}
	return &resp, nil
}

// transactionUpdate is one split in the PUT /api/v1/transactions/{id}
// body. Category and budget ids are included only when they change.
type transactionUpdate struct {
	TransactionJournalID string   `json:"transaction_journal_id"`
	Tags                 []string `json:"tags"`
	CategoryID           string   `json:"category_id,omitempty"`
	BudgetID             string   `json:"budget_id,omitempty"`
}

type updateRequest struct {
	ApplyRules   bool                `json:"apply_rules"`
	FireWebhooks bool                `json:"fire_webhooks"`
	Transactions []transactionUpdate `json:"transactions"`
}

// SetCategoryAndBudget writes the resolved category and budget ids to the
// transaction group. Existing tags are preserved; the service's marker
// tags are appended per field actually set, and ids equal to the current
// value are omitted so Firefly only sees changed fields. Empty ids mean
// "leave that field alone".
func (c *Client) SetCategoryAndBudget(ctx context.Context, transactionID string, transactions []domain.Transaction, categoryID, budgetID string) error {
	req := updateRequest{
		ApplyRules:   true,
		FireWebhooks: true,
	}

	for _, tx := range transactions {
		tags := append([]string{}, tx.Tags...)
		if categoryID != "" {
			tags = append(tags, c.categoryTag)
		}
		if budgetID != "" {
			tags = append(tags, c.budgetTag)
		}

		update := transactionUpdate{
			TransactionJournalID: tx.TransactionJournalID,
			Tags:                 tags,
		}
		if categoryID != "" && tx.CategoryID != categoryID {
			update.CategoryID = categoryID
		}
		if budgetID != "" && tx.BudgetID != budgetID {
			update.BudgetID = budgetID
		}

		req.Transactions = append(req.Transactions, update)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("firefly: encoding update request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/api/v1/transactions/"+url.PathEscape(transactionID), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("firefly: creating update request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("firefly: updating transaction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	c.log.Info().
		Str("transaction_id", transactionID).
		Bool("category_updated", categoryID != "").
		Bool("budget_updated", budgetID != "").
		Msg("Transaction updated")
	return nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("firefly: creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("firefly: requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("firefly: reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
