package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/KOFI-GYIMAH/gitsync/internal/handler"
	md "github.com/KOFI-GYIMAH/gitsync/internal/middleware"
	"github.com/KOFI-GYIMAH/gitsync/internal/queue"
	"github.com/KOFI-GYIMAH/gitsync/pkg/logger"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the continuous sync loop and the HTTP control surface",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.RequirePort(); err != nil {
		logger.Error("‼️ %v", err)
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize: %v", err)
		return err
	}
	defer a.Close()

	// * Create and start worker
	go a.worker.Run(ctx)

	if a.mq != nil {
		err := a.mq.ConsumeTriggerRequests(ctx, func(ctx context.Context, req queue.TriggerRequest) error {
			logger.Info("Sync requested over RabbitMQ by %q", req.RequestedBy)
			_, err := a.worker.Trigger(ctx)
			return err
		})
		if err != nil {
			logger.Warn("Remote triggers disabled: %v", err)
		}
	}

	// * Create API server
	router := mux.NewRouter()
	router.Use(md.Recover, md.LoggingMiddleware, md.MetricsMiddleware(a.metrics))

	handler.NewSyncHandler(a.worker).RegisterRoutes(router)
	router.Handle("/metrics", a.metrics.Handler()).Methods("GET")
	router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting API server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// * Wait for termination signal
	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("API server error: %v", err)
		return err
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
