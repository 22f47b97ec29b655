package main

import (
	"context"

	"github.com/KOFI-GYIMAH/gitsync/internal/airtable"
	"github.com/KOFI-GYIMAH/gitsync/internal/config"
	"github.com/KOFI-GYIMAH/gitsync/internal/db"
	"github.com/KOFI-GYIMAH/gitsync/internal/git"
	"github.com/KOFI-GYIMAH/gitsync/internal/metrics"
	"github.com/KOFI-GYIMAH/gitsync/internal/models"
	"github.com/KOFI-GYIMAH/gitsync/internal/queue"
	"github.com/KOFI-GYIMAH/gitsync/internal/service"
	"github.com/KOFI-GYIMAH/gitsync/internal/worker"
	"github.com/KOFI-GYIMAH/gitsync/pkg/logger"
)

type app struct {
	worker  *worker.SyncWorker
	metrics *metrics.Metrics
	mq      *queue.RabbitMQ
	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{metrics: metrics.New()}

	store, err := a.openStore(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	runner := git.NewExecRunner()
	attribution := service.NewAttributionService(
		git.NewCloner(runner, cfg.CloneTimeout),
		git.NewTimeline(runner, cfg.LogTimeout),
		git.NewDiffStats(runner, cfg.NumstatTimeout),
		cfg.DiffStatWorkers,
	)

	a.worker = worker.NewSyncWorker(store, attribution, git.NewReaper(cfg.StaleProcessAge), worker.Options{
		Interval:     cfg.SyncInterval,
		ErrorBackoff: cfg.SyncErrorBackoff,
	}).WithMetrics(a.metrics)

	// * The broker is optional; without it the service runs HTTP-only
	if cfg.RabbitMQURL != "" {
		mq, err := queue.NewRabbitMQ(ctx, cfg.RabbitMQURL)
		if err != nil {
			logger.Warn("Continuing without RabbitMQ: %v", err)
		} else {
			a.mq = mq
			a.closers = append(a.closers, mq.Close)
			a.worker.WithPublisher(mq)
		}
	}

	return a, nil
}

func (a *app) openStore(cfg *config.Config) (models.RecordStore, error) {
	if cfg.RecordStore == config.StorePostgres {
		database, err := db.NewPostgresDB(cfg.DBURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, database.Close)

		// * Run migrations
		if err := database.Migrate(); err != nil {
			return nil, err
		}
		logger.Info("Successfully ran migrations")
		return database, nil
	}

	return airtable.NewClient(airtable.Config{
		APIKey:         cfg.AirtableAPIKey,
		BaseID:         cfg.AirtableBaseID,
		Table:          cfg.AirtablePostsTable,
		ProcessedField: cfg.AirtableProcessedField,
	}), nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("shutdown: %v", err)
		}
	}
}
