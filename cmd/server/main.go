package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/firefly-classifier/internal/api"
	"github.com/dvloznov/firefly-classifier/internal/api/handlers"
	"github.com/dvloznov/firefly-classifier/internal/classify"
	"github.com/dvloznov/firefly-classifier/internal/config"
	"github.com/dvloznov/firefly-classifier/internal/feed"
	"github.com/dvloznov/firefly-classifier/internal/firefly"
	"github.com/dvloznov/firefly-classifier/internal/jobs/inmemory"
	"github.com/dvloznov/firefly-classifier/internal/logger"
	"github.com/dvloznov/firefly-classifier/internal/pipeline"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "firefly-classifier",
		Short:   "Automatic AI categorization for Firefly III transactions",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.NewWithLevel(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Collaborators.
	ledger := firefly.NewClient(cfg.Firefly.BaseURL, cfg.Firefly.PersonalToken, cfg.Firefly.CategoryTag, cfg.Firefly.BudgetTag, log)
	classifier, err := classify.NewGeminiClassifier(ctx, cfg.Gemini.Model, ledger, log)
	if err != nil {
		return err
	}

	// Job infrastructure: one owned store, one serialized worker queue,
	// one observer hub fed by store notifications.
	store := inmemory.NewStore()
	hub := feed.NewHub(store, log)
	store.SetNotifier(hub)

	queue := inmemory.NewQueue(store, inmemory.DefaultTaskTimeout, log)
	queue.Start(ctx)

	processor := pipeline.NewProcessor(store, ledger, classifier, log)

	router := api.NewRouter(api.RouterConfig{
		Webhook:  handlers.NewWebhookHandler(store, queue, processor, log),
		Jobs:     handlers.NewJobsHandler(store, log),
		Feed:     handlers.NewFeedHandler(hub, log),
		EnableUI: cfg.Server.EnableUI,
		Log:      log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.Server.Port).Str("model", cfg.Gemini.Model).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		if err := queue.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping job queue")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info().Msg("Server exited")
	return nil
}
