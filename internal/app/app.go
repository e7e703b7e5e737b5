package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/unihub/notify-svc/internal/config"
	"github.com/unihub/notify-svc/internal/dal/fcm"
	"github.com/unihub/notify-svc/internal/dal/postgres"
	"github.com/unihub/notify-svc/internal/dal/rabbitmq"
	devicetokenrepo "github.com/unihub/notify-svc/internal/dal/repositories/devicetoken/postgres"
	notificationrepo "github.com/unihub/notify-svc/internal/dal/repositories/notification/postgres"
	orderrepo "github.com/unihub/notify-svc/internal/dal/repositories/order/postgres"
	"github.com/unihub/notify-svc/internal/dal/resend"
	"github.com/unihub/notify-svc/internal/otel"
	"github.com/unihub/notify-svc/internal/service/services/notifysvc"
	"github.com/unihub/notify-svc/internal/transport/consumer"
	httptransport "github.com/unihub/notify-svc/internal/transport/http"
)

// App represents the application.
type App struct {
	notifySvc      *notifysvc.NotifyService
	transport      *httptransport.HTTPTransport
	consumerTransp *consumer.Consumer
	postgresClient *postgres.Client
	rabbitMqClient *rabbitmq.Client
	otelController *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp(cfg *config.Config) *App {
	otelController := otel.MustInitOtel(&cfg.Jaeger)
	postgresClient := postgres.MustNewClient(&cfg.Postgres)

	orderRepository := orderrepo.NewOrderRepository(postgresClient)
	notificationRepository := notificationrepo.NewNotificationRepository(postgresClient)
	deviceTokenRepository := devicetokenrepo.NewDeviceTokenRepository(postgresClient)

	emailClient := resend.NewClient(&cfg.Email)
	pushDispatcher := fcm.NewDispatcher(&cfg.FCM, deviceTokenRepository)

	notifySvc := notifysvc.MustNewNotifyService(
		notifysvc.WithOrderRepository(orderRepository),
		notifysvc.WithNotificationRepository(notificationRepository),
		notifysvc.WithEmailSender(emailClient),
		notifysvc.WithPushDispatcher(pushDispatcher),
		notifysvc.WithSendDelay(cfg.Email.SendDelay),
	)

	transport := httptransport.NewHTTPTransport(&cfg.HTTP, notifySvc)
	transport.RegisterRoutes()

	app := &App{
		notifySvc:      notifySvc,
		transport:      transport,
		postgresClient: postgresClient,
		otelController: otelController,
	}

	if cfg.RabbitMQ.Enabled {
		app.rabbitMqClient = rabbitmq.MustNewClient(&cfg.RabbitMQ)
		app.consumerTransp = consumer.NewConsumer(&cfg.RabbitMQ, app.rabbitMqClient, notifySvc)
	}

	return app
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	// Create a channel to receive OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		slog.Info("Starting HTTP server")
		if err := a.transport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	if a.consumerTransp != nil {
		go func() {
			slog.Info("Starting change event consumer")
			if err := a.consumerTransp.Run(ctx); err != nil {
				slog.Error("Consumer error", "error", err)
			}
		}()
	}

	<-stop
	slog.Info("Shutdown signal received")
	cancel()

	a.gracefulShutdown()
}

// gracefulShutdown performs graceful shutdown of all application components.
func (a *App) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if a.consumerTransp != nil {
		if err := a.consumerTransp.Shutdown(); err != nil {
			slog.Error("Consumer shutdown error", "error", err)
		} else {
			slog.Info("Consumer stopped gracefully")
		}
	}

	if a.rabbitMqClient != nil {
		if err := a.rabbitMqClient.Close(); err != nil {
			slog.Error("RabbitMQ connection close error", "error", err)
		} else {
			slog.Info("RabbitMQ connection closed gracefully")
		}
	}

	a.postgresClient.Close()
	slog.Info("Database connection closed gracefully")

	if err := a.otelController.Shutdown(); err != nil {
		slog.Error("Otel trace provider close error", "error", err)
	} else {
		slog.Info("Otel trace provider closed gracefully")
	}

	slog.Info("Application shutdown complete")
}
