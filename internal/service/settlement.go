package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "cocinarte/internal/errors"
	"cocinarte/internal/lifecycle"
	"cocinarte/internal/logger"
)

type SettlementDecision string

const (
	DecisionCapture SettlementDecision = "capture"
	DecisionRelease SettlementDecision = "release"
)

// SettlementResult summarizes one class's capture-or-release pass
type SettlementResult struct {
	ClassID  int64              `json:"class_id"`
	Decision SettlementDecision `json:"decision"`
	Enrolled int                `json:"enrolled"`
	Minimum  int                `json:"minimum"`
	Settled  int                `json:"settled"`
	Failed   int                `json:"failed"`
}

// AbandonedResult summarizes one sweep over holds that were never verified
type AbandonedResult struct {
	Canceled   int `json:"canceled"`
	Expired    int `json:"expired"`
	Reconciled int `json:"reconciled"`
	Failed     int `json:"failed"`
}

// SettlementService decides, per class, whether confirmed holds are captured or released
type SettlementService struct {
	classes  ClassStore
	bookings BookingStore
	payments *PaymentService
}

func NewSettlementService(classes ClassStore, bookings BookingStore, payments *PaymentService) *SettlementService {
	return &SettlementService{
		classes:  classes,
		bookings: bookings,
		payments: payments,
	}
}

// SettleClass captures every hold awaiting capture when the class reached its
// minimum enrollment and releases them otherwise.
func (s *SettlementService) SettleClass(ctx context.Context, classID int64) (*SettlementResult, error) {
	class, err := s.classes.GetByID(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to get class: %w", err)
	}
	if class == nil {
		return nil, apperrors.NotFound("class", classID)
	}

	awaiting, err := s.bookings.ListAwaitingCapture(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings awaiting capture: %w", err)
	}

	result := &SettlementResult{
		ClassID:  class.ID,
		Decision: DecisionRelease,
		Enrolled: class.Enrolled,
		Minimum:  class.MinEnrollment,
	}
	if class.MeetsMinimum() {
		result.Decision = DecisionCapture
	}

	log := logger.WithContext(ctx).With("class_id", class.ID, "decision", result.Decision)

	for _, booking := range awaiting {
		ref := booking.PaymentRef()
		if ref == "" {
			continue
		}

		if result.Decision == DecisionCapture {
			_, err = s.payments.Capture(ctx, ref)
		} else {
			_, err = s.payments.Cancel(ctx, ref, "abandoned")
		}

		if err != nil {
			result.Failed++
			log.Error("Failed to settle booking", "error", err, "booking_id", booking.ID, "payment_id", ref)
			continue
		}
		result.Settled++
	}

	log.Info("Class settled",
		"enrolled", result.Enrolled,
		"minimum", result.Minimum,
		"settled", result.Settled,
		"failed", result.Failed)

	return result, nil
}

// SettleUpcoming settles every class whose date falls within window from now
func (s *SettlementService) SettleUpcoming(ctx context.Context, now time.Time, window time.Duration) ([]SettlementResult, error) {
	classes, err := s.classes.ListStartingBetween(ctx, now, now.Add(window))
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming classes: %w", err)
	}

	var results []SettlementResult
	for _, class := range classes {
		starts := class.StartsAt()
		if starts.Before(now) || starts.After(now.Add(window)) {
			continue
		}

		result, err := s.SettleClass(ctx, class.ID)
		if err != nil {
			logger.WithContext(ctx).Error("Failed to settle class", "error", err, "class_id", class.ID)
			continue
		}
		results = append(results, *result)
	}

	return results, nil
}

// ReleaseAbandoned closes bookings never verified and older than ttl. Each hold is
// reconciled from the processor first, so a card authorized without a Verify call
// keeps its seat; only holds still waiting for the customer are canceled.
func (s *SettlementService) ReleaseAbandoned(ctx context.Context, now time.Time, ttl time.Duration) (*AbandonedResult, error) {
	bookings, err := s.bookings.ListAbandonedHolds(ctx, now.Add(-ttl))
	if err != nil {
		return nil, fmt.Errorf("failed to list abandoned holds: %w", err)
	}

	result := &AbandonedResult{}
	for i := range bookings {
		booking := &bookings[i]
		log := logger.WithContext(ctx).With("booking_id", booking.ID, "payment_id", booking.PaymentRef())

		if booking.PaymentRef() == "" {
			if err := s.payments.Expire(ctx, booking); err != nil {
				result.Failed++
				log.Error("Failed to expire booking without hold", "error", err)
				continue
			}
			result.Expired++
			continue
		}

		reconciled, err := s.payments.Reconcile(ctx, booking.PaymentRef())
		var capacityErr *apperrors.CapacityExceededError
		switch {
		case errors.As(err, &capacityErr):
			// authorized after the class filled up; the hold was released
			result.Canceled++
			continue
		case err != nil:
			result.Failed++
			log.Error("Failed to reconcile abandoned hold", "error", err)
			continue
		case reconciled.State() != lifecycle.Initial:
			result.Reconciled++
			continue
		}

		if _, err := s.payments.Cancel(ctx, booking.PaymentRef(), "abandoned"); err != nil {
			result.Failed++
			log.Error("Failed to cancel abandoned hold", "error", err)
			continue
		}
		result.Canceled++
	}

	return result, nil
}
