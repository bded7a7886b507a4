package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/weftwear/oms/internal/dal/postgres"
	"github.com/weftwear/oms/internal/dal/rabbitmq"
	outboxpg "github.com/weftwear/oms/internal/dal/repositories/outbox/postgres"
	"github.com/weftwear/oms/internal/otel"
	outboxmodel "github.com/weftwear/oms/internal/service/models/outbox"
	"github.com/weftwear/oms/internal/service/rates"
	"github.com/weftwear/oms/internal/service/services/checkoutsvc"
	"github.com/weftwear/oms/internal/service/services/eventsvc"
	"github.com/weftwear/oms/internal/service/services/statussvc"
	"github.com/weftwear/oms/internal/service/services/stocksvc"
	httptransport "github.com/weftwear/oms/internal/transport/http"
	"github.com/weftwear/oms/internal/worker/outbox"
)

// App represents the application.
type App struct {
	checkoutSvc    *checkoutsvc.CheckoutService
	statusSvc      *statussvc.StatusService
	stockSvc       *stocksvc.StockService
	eventSvc       *eventsvc.EventService
	transport      *httptransport.HTTPTransport
	outboxWorker   *outbox.Worker
	postgresClient *postgres.Client
	rabbitClient   *rabbitmq.Client
	otelController *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	postgresClient := postgres.MustNewClient()
	rabbitClient := rabbitmq.MustNewClient()
	for _, queue := range []string{outboxmodel.RouteOrderCreated, outboxmodel.RouteOrderStatusChanged} {
		if _, err := rabbitClient.DeclareQueue(rabbitmq.DeclareQueueConfig{
			Name:    queue,
			Durable: true,
		}); err != nil {
			panic(err)
		}
	}
	otelController := otel.MustInitOtel()

	calculator := rates.NewCalculator(rates.LoadConfig())

	checkoutSvc := checkoutsvc.MustNewCheckoutService(
		checkoutsvc.WithPostgresClient(postgresClient),
		checkoutsvc.WithCalculator(calculator),
	)
	statusSvc := statussvc.MustNewStatusService(
		statussvc.WithPostgresClient(postgresClient),
	)
	stockSvc := stocksvc.MustNewStockService(
		stocksvc.WithPostgresClient(postgresClient),
	)
	eventSvc := eventsvc.MustNewEventService(
		eventsvc.WithPostgresClient(postgresClient),
	)

	transport := httptransport.NewHTTPTransport(checkoutSvc, statusSvc, stockSvc, eventSvc, calculator)
	transport.RegisterRoutes()

	outboxWorker := outbox.NewWorker(
		outboxpg.NewPostgresOutboxRepository(postgresClient.DB()),
		rabbitClient.Channel(),
	)

	return &App{
		checkoutSvc:    checkoutSvc,
		statusSvc:      statusSvc,
		stockSvc:       stockSvc,
		eventSvc:       eventSvc,
		transport:      transport,
		outboxWorker:   outboxWorker,
		postgresClient: postgresClient,
		rabbitClient:   rabbitClient,
		otelController: otelController,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	go a.outboxWorker.Start(workerCtx)

	go func() {
		slog.Info("Starting HTTP server")
		if err := a.transport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	cancelWorker()

	if err := a.rabbitClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	} else {
		slog.Info("RabbitMQ connection closed gracefully")
	}

	a.postgresClient.Close()
	slog.Info("Database connection closed gracefully")

	if err := a.otelController.Shutdown(); err != nil {
		slog.Error("Tracer shutdown error", "error", err)
	}

	slog.Info("Application shutdown complete")
}
