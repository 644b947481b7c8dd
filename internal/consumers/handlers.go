package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cocinarte/internal/logger"
	"cocinarte/internal/metrics"
	"cocinarte/internal/models"

	"github.com/nats-io/stan.go"
)

// errMalformed marks messages that can never be processed; they are acked and dropped
var errMalformed = errors.New("malformed event")

type ClassLoader interface {
	GetByID(ctx context.Context, id int64) (*models.ClassSession, error)
}

type ClassIndexer interface {
	IndexClass(ctx context.Context, class *models.ClassSession) error
	DeleteClass(ctx context.Context, id int64) error
}

type ClassListInvalidator interface {
	InvalidateClassLists(ctx context.Context) error
}

// Handlers keep derived read models (search index, cached catalog) in step with bookings.
// index and cache may be nil.
type Handlers struct {
	classes ClassLoader
	index   ClassIndexer
	cache   ClassListInvalidator
}

func NewHandlers(classes ClassLoader, index ClassIndexer, cache ClassListInvalidator) *Handlers {
	return &Handlers{classes: classes, index: index, cache: cache}
}

// ClassChanged refreshes one class after it was created, edited, deleted or its enrollment moved
func (h *Handlers) ClassChanged(ctx context.Context, data []byte) error {
	var event models.ClassChangedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("%w: class changed event: %v", errMalformed, err)
	}
	return h.refreshClass(ctx, event.ClassID, event.Deleted)
}

// BookingPayment refreshes the class of a booking whose seat may have changed hands
func (h *Handlers) BookingPayment(ctx context.Context, data []byte) error {
	var event models.BookingPaymentEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("%w: booking payment event: %v", errMalformed, err)
	}

	logger.WithContext(ctx).Info("Processing booking payment event",
		"booking_id", event.BookingID,
		"payment_id", event.PaymentID,
		"payment_status", event.PaymentStatus,
		"status", event.Status)

	return h.refreshClass(ctx, event.ClassID, false)
}

// BookingDrift surfaces processor/booking divergence to operators
func (h *Handlers) BookingDrift(ctx context.Context, data []byte) error {
	var event models.BookingDriftEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("%w: drift event: %v", errMalformed, err)
	}

	logger.WithContext(ctx).Error("Booking out of sync with payment processor",
		"drift", true,
		"booking_id", event.BookingID,
		"payment_id", event.PaymentID,
		"operation", event.Operation,
		"error", event.Error,
		"age", time.Since(event.Timestamp).String())
	return nil
}

func (h *Handlers) refreshClass(ctx context.Context, classID int64, deleted bool) error {
	if classID == 0 {
		return nil
	}

	if h.cache != nil {
		if err := h.cache.InvalidateClassLists(ctx); err != nil {
			return fmt.Errorf("failed to invalidate class lists: %w", err)
		}
	}

	if h.index == nil {
		return nil
	}

	if !deleted {
		class, err := h.classes.GetByID(ctx, classID)
		if err != nil {
			return fmt.Errorf("failed to load class %d: %w", classID, err)
		}
		if class != nil {
			if err := h.index.IndexClass(ctx, class); err != nil {
				return fmt.Errorf("failed to index class %d: %w", classID, err)
			}
			return nil
		}
	}

	if err := h.index.DeleteClass(ctx, classID); err != nil {
		return fmt.Errorf("failed to remove class %d from index: %w", classID, err)
	}
	return nil
}

// ack adapts a handler to a manual-ack subscription.
// Failed messages are left unacknowledged so the server redelivers them.
func ack(subject string, handle func(ctx context.Context, data []byte) error) stan.MsgHandler {
	return func(m *stan.Msg) {
		ctx := logger.ContextWithRequestID(context.Background(), logger.NewRequestID())
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		err := handle(ctx, m.Data)
		if errors.Is(err, errMalformed) {
			metrics.ConsumedEvents.WithLabelValues(subject, "dropped").Inc()
			logger.WithContext(ctx).Error("Dropping malformed event", "error", err, "event_type", subject)
			_ = m.Ack()
			return
		}
		if err != nil {
			metrics.ConsumedEvents.WithLabelValues(subject, "error").Inc()
			logger.WithContext(ctx).Error("Failed to handle event",
				"error", err,
				"event_type", subject,
				"sequence", m.Sequence,
				"redelivered", m.Redelivered)
			return
		}

		metrics.ConsumedEvents.WithLabelValues(subject, "ok").Inc()
		if err := m.Ack(); err != nil {
			logger.WithContext(ctx).Warn("Failed to ack event", "error", err, "event_type", subject)
		}
	}
}
