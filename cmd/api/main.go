package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/crewdesk/api/internal/di"
	"github.com/crewdesk/api/internal/handlers"
	"github.com/crewdesk/api/internal/platform/config"
	pfirestore "github.com/crewdesk/api/internal/platform/firestore"
	"github.com/crewdesk/api/internal/platform/jobs"
	"github.com/crewdesk/api/internal/platform/observability"
	"github.com/crewdesk/api/internal/services"
)

const shutdownGrace = 10 * time.Second

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	sweepPublisher, pubsubClient, err := newSweepPublisher(ctx, cfg.PubSub)
	if err != nil {
		logger.Fatal("failed to initialise sweep publisher", zap.Error(err))
	}
	if pubsubClient != nil {
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
	}
	if sweepPublisher == nil {
		logger.Info("sweep event publishing disabled; no topic configured")
	}

	container, err := di.NewContainer(ctx, cfg, di.Deps{
		Provider:       firestoreProvider,
		SweepPublisher: sweepPublisher,
	})
	if err != nil {
		logger.Fatal("failed to build container", zap.Error(err))
	}

	bookingHandlers := handlers.NewBookingHandlers(container.Services.Bookings, container.Services.Reconcile)
	sweepHandlers := handlers.NewSweepHandlers(container.Services.Sweep)
	healthHandlers := handlers.NewHealthHandlers(container.Repositories.Health)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.TraceMiddleware(cfg.Firestore.ProjectID),
			observability.InjectLoggerMiddleware(logger),
			observability.RequestLoggerMiddleware(cfg.Firestore.ProjectID),
			observability.RecoveryMiddleware(logger),
		),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithBookingRoutes(bookingHandlers.Routes),
		handlers.WithJobRoutes(bookingHandlers.JobRoutes),
		handlers.WithInternalRoutes(sweepHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown error", zap.Error(err))
	}
	if err := container.Close(shutdownCtx); err != nil {
		logger.Warn("container close error", zap.Error(err))
	}
	logger.Info("server stopped")
}

// newSweepPublisher builds the Pub/Sub backed sweep event publisher when a
// topic is configured. The returned client, if any, must be closed by the
// caller.
func newSweepPublisher(ctx context.Context, cfg config.PubSubConfig) (services.SweepEventPublisher, *pubsub.Client, error) {
	topicName := strings.TrimSpace(cfg.SweepEventTopic)
	if topicName == "" {
		return nil, nil, nil
	}
	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		return nil, nil, errors.New("pubsub: project id is required when a sweep topic is configured")
	}

	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub: create client: %w", err)
	}

	publisher, err := jobs.NewPubSubSweepEventPublisher(client.Topic(topicName))
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return publisher, client, nil
}
