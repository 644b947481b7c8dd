package service

import (
	"context"
	"fmt"
	"strings"

	apperrors "cocinarte/internal/errors"
	"cocinarte/internal/lifecycle"
	"cocinarte/internal/logger"
	"cocinarte/internal/models"
)

const maxBookingsPage = 200

// BookingService serves read-only booking lookups and administrator removal
type BookingService struct {
	bookings BookingStore
	events   EventPublisher
}

func NewBookingService(bookings BookingStore, events EventPublisher) *BookingService {
	return &BookingService{
		bookings: bookings,
		events:   events,
	}
}

func (s *BookingService) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	if filter.PaymentStatus != "" && !lifecycle.ValidPaymentStatus(filter.PaymentStatus) {
		return nil, apperrors.Validation("payment_status", "unknown status "+filter.PaymentStatus)
	}
	if filter.Status != "" && !lifecycle.ValidBookingStatus(filter.Status) {
		return nil, apperrors.Validation("status", "unknown status "+filter.Status)
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, apperrors.Validation("to", "must not be before from")
	}
	if filter.Limit <= 0 || filter.Limit > maxBookingsPage {
		filter.Limit = maxBookingsPage
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	bookings, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}

	return bookings, nil
}

// ListForCustomer returns bookings made with the given parent e-mail
func (s *BookingService) ListForCustomer(ctx context.Context, email string) ([]models.Booking, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperrors.ErrUnauthorized
	}
	return s.List(ctx, models.BookingFilter{Email: email})
}

func (s *BookingService) Get(ctx context.Context, id int64) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, apperrors.NotFound("booking", id)
	}
	return booking, nil
}

// Delete hard-deletes a booking. A live hold must be released first so no
// processor authorization is left without a local record.
func (s *BookingService) Delete(ctx context.Context, id int64) error {
	booking, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if booking.PaymentStatus == lifecycle.PaymentPending && booking.PaymentRef() != "" {
		return &apperrors.InvalidTransitionError{
			BookingID: id,
			Err:       fmt.Errorf("payment hold %s is still open, cancel it first", booking.PaymentRef()),
		}
	}

	deleted, err := s.bookings.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	if !deleted {
		return apperrors.NotFound("booking", id)
	}

	logger.WithContext(ctx).Info("Booking deleted",
		"booking_id", id,
		"class_id", booking.ClassID,
		"state", booking.State().String())

	if booking.Status == lifecycle.BookingConfirmed {
		classChanged(ctx, s.events, booking.ClassID, false)
	}

	return nil
}
