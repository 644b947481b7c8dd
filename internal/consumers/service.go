package consumers

import (
	"context"
	"fmt"
	"log/slog"

	"cocinarte/internal/models"

	"github.com/nats-io/stan.go"
)

const queueGroup = "consumers"

type Subscriber interface {
	SubscribeQueue(subject, queue string, handler stan.MsgHandler) (stan.Subscription, error)
}

type ConsumerService struct {
	bus      Subscriber
	handlers *Handlers
	subs     []stan.Subscription
}

func NewConsumerService(bus Subscriber, handlers *Handlers) *ConsumerService {
	return &ConsumerService{bus: bus, handlers: handlers}
}

// Subscriptions maps each subject to its handler
func (cs *ConsumerService) Subscriptions() map[string]func(ctx context.Context, data []byte) error {
	return map[string]func(ctx context.Context, data []byte) error{
		models.EventClassChanged:    cs.handlers.ClassChanged,
		models.EventHoldAuthorized:  cs.handlers.BookingPayment,
		models.EventHoldReleased:    cs.handlers.BookingPayment,
		models.EventPaymentRefunded: cs.handlers.BookingPayment,
		models.EventBookingDrift:    cs.handlers.BookingDrift,
	}
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	for subject, handle := range cs.Subscriptions() {
		sub, err := cs.bus.SubscribeQueue(subject, queueGroup, ack(subject, handle))
		if err != nil {
			return fmt.Errorf("failed to start consumer for %s: %w", subject, err)
		}
		cs.subs = append(cs.subs, sub)
	}

	slog.Info("All consumers started successfully", "subscriptions", len(cs.subs))
	return nil
}

// Shutdown closes subscriptions, keeping their durable positions
func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	var firstErr error
	for _, sub := range cs.subs {
		if err := sub.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	cs.subs = nil
	return firstErr
}
