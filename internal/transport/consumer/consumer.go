package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/unihub/notify-svc/internal/config"
	"github.com/unihub/notify-svc/internal/dal/rabbitmq"
	"github.com/unihub/notify-svc/internal/service/models/event"
)

// service represents the service layer interface.
type service interface {
	HandleOrderEvent(ctx context.Context, ev event.ChangeEvent) error
}

// Consumer is the queue-backed trigger transport. It feeds the same change
// events as the webhook into the orchestrator. Failed deliveries are
// rejected without requeue: the fan-out carries no redelivery guarantee, so
// a failed invocation is dropped exactly like a failed webhook call.
type Consumer struct {
	client      *rabbitmq.Client
	service     service
	queue       amqp.Queue
	consumerTag string
	stop        chan struct{}
	done        chan struct{}
}

// NewConsumer creates a new Consumer.
func NewConsumer(cfg *config.RabbitMQConfig, client *rabbitmq.Client, service service) *Consumer {
	if cfg.Queue == "" {
		panic("rabbitmq.queue is not set in config")
	}

	queue, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:       cfg.Queue,
		Durable:    false,
		AutoDelete: false,
		Exclusive:  false,
		NoWait:     false,
	})
	if err != nil {
		panic(err)
	}

	consumerTag := cfg.ConsumerTag
	if consumerTag == "" {
		consumerTag = "notify-svc"
	}

	return &Consumer{
		client:      client,
		service:     service,
		queue:       queue,
		consumerTag: consumerTag,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Run starts consuming change events from RabbitMQ.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.client.Consume(rabbitmq.ConsumeConfig{
		Queue:    c.queue.Name,
		Consumer: c.consumerTag,
	})
	if err != nil {
		return err
	}

	slog.Info("Consumer started", "queue", c.queue.Name, "consumer_tag", c.consumerTag)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(50)

	go func() {
		for {
			select {
			case <-c.stop:
				slog.Info("Stopping consumer")
				close(c.done)

				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Info("Message channel closed")
					close(c.done)

					return
				}

				g.Go(func() error {
					return c.processMessage(gctx, msg)
				})
			}
		}
	}()

	<-c.done
	if err := g.Wait(); err != nil {
		slog.Error("Error processing messages", "error", err)
	}

	return nil
}

// processMessage processes a single change event delivery.
func (c *Consumer) processMessage(ctx context.Context, msg amqp.Delivery) error {
	ctx, span := otel.Tracer("notify-svc").Start(ctx, "Consumer.processMessage")
	defer span.End()

	slog.Info("Received change event", "delivery_tag", msg.DeliveryTag)

	var ev event.ChangeEvent
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		slog.Error("Failed to unmarshal change event", "error", err)
		if err := msg.Nack(false, false); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}

		return err
	}

	if err := c.service.HandleOrderEvent(ctx, ev); err != nil {
		slog.Error("Failed to handle change event", "order_id", ev.Record.ID, "error", err)
		// No requeue: the fan-out is not idempotent, a redelivery would
		// resend already delivered emails.
		if err := msg.Nack(false, false); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}

		return err
	}

	if err := msg.Ack(false); err != nil {
		slog.Error("Failed to ack message", "error", err)

		return err
	}

	slog.Info("Change event processed", "order_id", ev.Record.ID)

	return nil
}

// Shutdown gracefully shuts down the consumer.
func (c *Consumer) Shutdown() error {
	slog.Info("Shutting down consumer")
	close(c.stop)

	select {
	case <-c.done:
		slog.Info("Consumer stopped successfully")
	case <-time.After(10 * time.Second):
		slog.Warn("Consumer shutdown timeout")
	}

	return nil
}
