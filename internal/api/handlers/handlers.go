package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dvloznov/firefly-classifier/internal/api/middleware"
	"github.com/dvloznov/firefly-classifier/internal/domain"
	"github.com/dvloznov/firefly-classifier/internal/feed"
	"github.com/dvloznov/firefly-classifier/internal/jobs"
	"github.com/dvloznov/firefly-classifier/internal/jobs/inmemory"
	"github.com/dvloznov/firefly-classifier/internal/pipeline"
	"github.com/dvloznov/firefly-classifier/internal/webhook"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Enqueuer is the queue surface the webhook handler needs.
type Enqueuer interface {
	Enqueue(task inmemory.Task)
}

// Processor runs one classification task.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) error
}

// WebhookHandler accepts Firefly webhook deliveries. Handling is
// synchronous and fast: validate, create the job, enqueue, respond. It
// never waits on classification or ledger calls.
type WebhookHandler struct {
	store     jobs.Store
	queue     Enqueuer
	processor Processor
	log       zerolog.Logger
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(store jobs.Store, queue Enqueuer, processor Processor, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		store:     store,
		queue:     queue,
		processor: processor,
		log:       log,
	}
}

// Handle processes POST /webhook.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	h.log.Info().Msg("Incoming webhook received")

	var payload domain.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.log.Warn().Err(err).Msg("Malformed webhook body")
		writeText(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := webhook.Validate(&payload)
	if err != nil {
		var skipErr *webhook.SkipError
		if errors.As(err, &skipErr) {
			h.log.Info().Str("reason", skipErr.Reason).Msg("Skipping transaction")
			writeText(w, http.StatusOK, "Skipped: "+skipErr.Reason)
			return
		}
		h.log.Error().Err(err).Msg("Webhook processing error")
		writeText(w, http.StatusInternalServerError, "Internal Server Error. Check logs for details.")
		return
	}

	job := h.store.CreateJob(map[string]string{
		jobs.DataDestinationName: result.Transaction.DestinationName,
		jobs.DataDescription:     result.Transaction.Description,
	})

	req := pipeline.Request{
		JobID:            job.ID,
		TransactionID:    payload.Content.ID.String(),
		Transactions:     payload.Content.Transactions,
		Transaction:      result.Transaction,
		ShouldCategorize: result.ShouldCategorize,
		ShouldBudget:     result.ShouldBudget,
	}
	h.queue.Enqueue(inmemory.Task{
		JobID: job.ID,
		Run: func(ctx context.Context) error {
			return h.processor.Process(ctx, req)
		},
	})

	writeText(w, http.StatusAccepted, "Queued")
}

// JobsHandler exposes the job list to the UI.
type JobsHandler struct {
	store jobs.Store
	log   zerolog.Logger
}

// NewJobsHandler creates a jobs handler.
func NewJobsHandler(store jobs.Store, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// List handles GET /api/jobs, returning jobs in insertion order.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.store.ListJobs())
}

// FeedHandler upgrades connections to the live job feed.
type FeedHandler struct {
	hub      *feed.Hub
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewFeedHandler creates a feed handler.
func NewFeedHandler(hub *feed.Hub, log zerolog.Logger) *FeedHandler {
	return &FeedHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			// The feed is read-only and carries no credentials.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// Serve handles GET /ws.
func (h *FeedHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	feed.ServeConn(h.hub, conn, h.log)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
