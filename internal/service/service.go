package service

import (
	"context"
	"time"

	"cocinarte/internal/logger"
	"cocinarte/internal/models"
)

type Services struct {
	Classes    *ClassService
	Students   *StudentService
	Bookings   *BookingService
	Payments   *PaymentService
	Settlement *SettlementService
}

type Dependencies struct {
	Classes   ClassStore
	Students  StudentStore
	Bookings  BookingStore
	Processor PaymentProcessor
	Events    EventPublisher
	// Cache and Index are optional
	Cache ClassListCache
	Index ClassIndex

	Currency string
}

func NewServices(deps Dependencies) *Services {
	gate := NewCapacityGate(deps.Classes)
	payments := NewPaymentService(gate, deps.Classes, deps.Students, deps.Bookings, deps.Processor, deps.Events, deps.Currency)

	return &Services{
		Classes:    NewClassService(deps.Classes, deps.Bookings, deps.Cache, deps.Index, deps.Events),
		Students:   NewStudentService(deps.Students),
		Bookings:   NewBookingService(deps.Bookings, deps.Events),
		Payments:   payments,
		Settlement: NewSettlementService(deps.Classes, deps.Bookings, payments),
	}
}

// publish sends an event on the bus; failures are logged and never fail the caller
func publish(ctx context.Context, events EventPublisher, subject string, data interface{}) {
	if events == nil {
		return
	}
	if err := events.Publish(subject, data); err != nil {
		logger.WithContext(ctx).Warn("Failed to publish event",
			"error", err,
			"event_type", subject)
	}
}

func classChanged(ctx context.Context, events EventPublisher, classID int64, deleted bool) {
	publish(ctx, events, models.EventClassChanged, models.ClassChangedEvent{
		ClassID:   classID,
		Deleted:   deleted,
		Timestamp: time.Now(),
	})
}
