package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "cocinarte/internal/errors"
	"cocinarte/internal/external"
	"cocinarte/internal/lifecycle"
	"cocinarte/internal/logger"
	"cocinarte/internal/metrics"
	"cocinarte/internal/models"
	"cocinarte/internal/repository"
)

const (
	defaultPaymentsLimit = 10
	maxPaymentsLimit     = 100
)

// PaymentService orchestrates holds at the processor and keeps booking rows in step with them
type PaymentService struct {
	gate      *CapacityGate
	classes   ClassStore
	students  StudentStore
	bookings  BookingStore
	processor PaymentProcessor
	events    EventPublisher
	currency  string
}

func NewPaymentService(gate *CapacityGate, classes ClassStore, students StudentStore, bookings BookingStore,
	processor PaymentProcessor, events EventPublisher, currency string) *PaymentService {
	if currency == "" {
		currency = "usd"
	}

	return &PaymentService{
		gate:      gate,
		classes:   classes,
		students:  students,
		bookings:  bookings,
		processor: processor,
		events:    events,
		currency:  strings.ToLower(currency),
	}
}

// Open reserves funds for a class seat: capacity check, roster entry, pending booking, then the hold
func (s *PaymentService) Open(ctx context.Context, req *models.CreateHoldRequest) (resp *models.CreateHoldResponse, err error) {
	defer func() { metrics.ObserveHold("open", err) }()

	amountMinor, err := validateHoldRequest(req)
	if err != nil {
		return nil, err
	}

	if !s.processor.Configured() {
		return nil, apperrors.Configuration("payment processor secret key is not set")
	}

	class, err := s.gate.Check(ctx, req.ClassID)
	if err != nil {
		return nil, err
	}

	student := &models.Student{
		ParentName: strings.TrimSpace(req.Customer.ParentName),
		ChildName:  strings.TrimSpace(req.Customer.ChildName),
		ChildAge:   req.Customer.ChildAge,
		Email:      strings.ToLower(strings.TrimSpace(req.Customer.Email)),
		Phone:      req.Customer.Phone,
		Allergies:  req.Customer.Allergies,
	}
	if err := s.students.FindOrCreate(ctx, student); err != nil {
		return nil, fmt.Errorf("failed to save student: %w", err)
	}

	currency := s.currency
	if req.Currency != "" {
		currency = strings.ToLower(req.Currency)
	}

	booking := &models.Booking{
		ClassID:   class.ID,
		StudentID: student.ID,
		Amount:    models.FromMinorUnits(amountMinor),
		Currency:  currency,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	hold, err := s.processor.CreateHold(ctx, external.HoldRequest{
		Amount:         amountMinor,
		Currency:       currency,
		Description:    fmt.Sprintf("%s (%s) for %s", class.Title, class.Date.Format("2006-01-02"), student.ChildName),
		ReceiptEmail:   student.Email,
		IdempotencyKey: fmt.Sprintf("booking-%d-hold", booking.ID),
		Metadata: map[string]string{
			"class_id":       strconv.FormatInt(class.ID, 10),
			"booking_id":     strconv.FormatInt(booking.ID, 10),
			"student_id":     strconv.FormatInt(student.ID, 10),
			"customer_email": student.Email,
		},
	})
	if err != nil {
		s.failUnopened(ctx, booking)
		return nil, err
	}

	next, err := lifecycle.Transition(booking.State(), lifecycle.EventHoldOpened)
	if err != nil {
		return nil, &apperrors.InvalidTransitionError{BookingID: booking.ID, Err: err}
	}
	if err := s.bookings.Transition(ctx, booking, next, &hold.ID); err != nil {
		return nil, s.drift(ctx, "attach payment reference", booking, hold.ID, err)
	}

	s.publishTransition(ctx, booking, lifecycle.EventHoldOpened, "")

	logger.WithContext(ctx).Info("Payment hold opened",
		"booking_id", booking.ID,
		"class_id", class.ID,
		"payment_id", hold.ID,
		"amount_minor", amountMinor)

	return &models.CreateHoldResponse{
		ClientSecret:    hold.ClientSecret,
		PaymentIntentID: hold.ID,
		BookingID:       booking.ID,
	}, nil
}

func validateHoldRequest(req *models.CreateHoldRequest) (int64, error) {
	if req == nil {
		return 0, apperrors.Validation("", "request body is required")
	}
	if req.ClassID <= 0 {
		return 0, apperrors.Validation("classId", "is required")
	}
	if !req.Amount.IsPositive() {
		return 0, apperrors.Validation("amount", "must be greater than zero")
	}
	if models.ExceedsProcessorLimit(req.Amount) {
		return 0, apperrors.Validation("amount", "exceeds the maximum chargeable amount")
	}

	amountMinor := models.ToMinorUnits(req.Amount)
	if amountMinor <= 0 {
		return 0, apperrors.Validation("amount", "must be at least one minor currency unit")
	}

	switch {
	case strings.TrimSpace(req.Customer.Email) == "":
		return 0, apperrors.Validation("customerInfo.email", "is required")
	case strings.TrimSpace(req.Customer.ParentName) == "":
		return 0, apperrors.Validation("customerInfo.parentName", "is required")
	case strings.TrimSpace(req.Customer.ChildName) == "":
		return 0, apperrors.Validation("customerInfo.childName", "is required")
	}

	return amountMinor, nil
}

// failUnopened marks a booking whose hold was never created
func (s *PaymentService) failUnopened(ctx context.Context, booking *models.Booking) {
	next, err := lifecycle.Transition(booking.State(), lifecycle.EventAuthorizationFailed)
	if err == nil {
		err = s.bookings.Transition(ctx, booking, next, nil)
	}
	if err != nil {
		logger.WithContext(ctx).Error("Failed to mark booking without hold as failed",
			"error", err,
			"booking_id", booking.ID)
	}
}

// Verify reports whether the hold is authorized and awaiting capture, and syncs the booking
func (s *PaymentService) Verify(ctx context.Context, paymentRef string) (resp *models.VerifyHoldResponse, err error) {
	defer func() { metrics.ObserveHold("verify", err) }()

	if strings.TrimSpace(paymentRef) == "" {
		return nil, apperrors.Validation("paymentIntentId", "is required")
	}

	hold, err := s.processor.GetHold(ctx, paymentRef)
	if err != nil {
		return nil, err
	}

	resp = &models.VerifyHoldResponse{
		Success:  hold.Status == external.StatusRequiresCapture,
		Status:   hold.Status,
		Amount:   models.FromMinorUnits(hold.Amount).InexactFloat64(),
		Currency: hold.Currency,
	}

	booking, err := s.bookings.GetByPaymentRef(ctx, paymentRef)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		logger.WithContext(ctx).Warn("No booking for verified hold", "payment_id", paymentRef)
		return resp, nil
	}
	resp.BookingID = &booking.ID

	if err := s.sync(ctx, booking, hold); err != nil {
		return nil, err
	}

	return resp, nil
}

// Capture charges a verified hold
func (s *PaymentService) Capture(ctx context.Context, paymentRef string) (resp *models.CaptureHoldResponse, err error) {
	defer func() { metrics.ObserveHold("capture", err) }()

	if strings.TrimSpace(paymentRef) == "" {
		return nil, apperrors.Validation("paymentIntentId", "is required")
	}

	hold, err := s.processor.CaptureHold(ctx, paymentRef)
	if err != nil {
		return nil, err
	}

	booking, err := s.bookings.GetByPaymentRef(ctx, paymentRef)
	if err != nil {
		return nil, s.drift(ctx, "capture lookup", nil, paymentRef, err)
	}
	if booking != nil {
		if err := s.sync(ctx, booking, hold); err != nil {
			return nil, err
		}
	}

	return &models.CaptureHoldResponse{
		Status:         hold.Status,
		AmountCaptured: models.FromMinorUnits(hold.AmountReceived).InexactFloat64(),
		Currency:       hold.Currency,
	}, nil
}

// Cancel releases a hold before capture. The processor is asked first, so a hold
// it no longer considers cancelable surfaces its own error.
func (s *PaymentService) Cancel(ctx context.Context, paymentRef, reason string) (resp *models.CancelHoldResponse, err error) {
	defer func() { metrics.ObserveHold("cancel", err) }()

	if strings.TrimSpace(paymentRef) == "" {
		return nil, apperrors.Validation("paymentIntentId", "is required")
	}

	hold, err := s.processor.CancelHold(ctx, paymentRef, reason)
	if err != nil {
		return nil, err
	}

	booking, err := s.bookings.GetByPaymentRef(ctx, paymentRef)
	if err != nil {
		return nil, s.drift(ctx, "cancel lookup", nil, paymentRef, err)
	}
	if booking != nil {
		if err := s.apply(ctx, booking, lifecycle.EventHoldCanceled, reason); err != nil {
			var transitionErr *apperrors.InvalidTransitionError
			if !errors.As(err, &transitionErr) {
				return nil, err
			}
			logger.WithContext(ctx).Warn("Canceled hold for booking that cannot be canceled",
				"booking_id", booking.ID,
				"payment_id", paymentRef,
				"state", booking.State().String())
		}
	}

	return &models.CancelHoldResponse{
		Status:   hold.Status,
		Canceled: hold.Status == external.StatusCanceled,
	}, nil
}

// Refund reverses a captured payment in full or in part. Only a refund the
// processor reports as succeeded moves the booking to refunded, and a refunded
// booking takes no further refunds, so a partial refund is the last one.
func (s *PaymentService) Refund(ctx context.Context, req *models.RefundRequest) (resp *models.RefundRecord, err error) {
	defer func() { metrics.ObserveHold("refund", err) }()

	if req == nil || strings.TrimSpace(req.PaymentIntentID) == "" {
		return nil, apperrors.Validation("paymentIntentId", "is required")
	}

	refundReq := external.RefundRequest{PaymentRef: req.PaymentIntentID, Reason: req.Reason}
	if req.Amount != nil {
		if !req.Amount.IsPositive() {
			return nil, apperrors.Validation("amount", "must be greater than zero")
		}
		if models.ExceedsProcessorLimit(*req.Amount) {
			return nil, apperrors.Validation("amount", "exceeds the maximum chargeable amount")
		}
		minor := models.ToMinorUnits(*req.Amount)
		refundReq.Amount = &minor
	}

	booking, err := s.bookings.GetByPaymentRef(ctx, req.PaymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking != nil {
		if _, err := lifecycle.Transition(booking.State(), lifecycle.EventRefunded); err != nil {
			return nil, &apperrors.InvalidTransitionError{BookingID: booking.ID, Err: err}
		}
	}

	refund, err := s.processor.Refund(ctx, refundReq)
	if err != nil {
		return nil, err
	}

	if booking != nil {
		if refund.Status == external.RefundSucceeded {
			if err := s.apply(ctx, booking, lifecycle.EventRefunded, req.Reason); err != nil {
				return nil, err
			}
		} else {
			logger.WithContext(ctx).Info("Refund not yet settled at processor, booking left as is",
				"booking_id", booking.ID,
				"refund_id", refund.ID,
				"refund_status", refund.Status)
		}
	}

	return toRefundRecord(*refund), nil
}

// ListPayments returns one page of processor payments for the admin dashboard
func (s *PaymentService) ListPayments(ctx context.Context, cursor string, limit int) (*models.ListPaymentsResponse, error) {
	if limit <= 0 {
		limit = defaultPaymentsLimit
	}
	if limit > maxPaymentsLimit {
		limit = maxPaymentsLimit
	}

	page, err := s.processor.ListPayments(ctx, cursor, limit)
	if err != nil {
		return nil, err
	}

	resp := &models.ListPaymentsResponse{
		Payments: make([]models.PaymentRecord, 0, len(page.Payments)),
		HasMore:  page.HasMore,
	}
	for _, p := range page.Payments {
		resp.Payments = append(resp.Payments, toPaymentRecord(p))
	}
	if page.HasMore && len(page.Payments) > 0 {
		resp.NextCursor = page.Payments[len(page.Payments)-1].ID
	}

	return resp, nil
}

// Reconcile re-reads a hold from the processor and applies the same sync as Verify
func (s *PaymentService) Reconcile(ctx context.Context, paymentRef string) (*models.Booking, error) {
	hold, err := s.processor.GetHold(ctx, paymentRef)
	if err != nil {
		return nil, err
	}

	booking, err := s.bookings.GetByPaymentRef(ctx, paymentRef)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, apperrors.NotFound("booking for payment", paymentRef)
	}

	if err := s.sync(ctx, booking, hold); err != nil {
		return booking, err
	}

	return booking, nil
}

// Expire closes a booking that never received a processor reference
func (s *PaymentService) Expire(ctx context.Context, booking *models.Booking) error {
	if booking.PaymentRef() != "" {
		return apperrors.Validation("booking", "has a payment hold, cancel it instead")
	}
	return s.apply(ctx, booking, lifecycle.EventAuthorizationFailed, "expired")
}

// syncEvents lists the lifecycle events that bring a booking in line with the processor status
func syncEvents(state lifecycle.State, hold *external.Hold) []lifecycle.Event {
	switch hold.Status {
	case external.StatusRequiresCapture:
		return []lifecycle.Event{lifecycle.EventAuthorized}
	case external.StatusSucceeded:
		if state.Booking == lifecycle.BookingPending {
			return []lifecycle.Event{lifecycle.EventAuthorized, lifecycle.EventCaptured}
		}
		return []lifecycle.Event{lifecycle.EventCaptured}
	case external.StatusCanceled:
		return []lifecycle.Event{lifecycle.EventAuthorizationFailed}
	case external.StatusRequiresPaymentMethod:
		if hold.LastPaymentError != "" {
			return []lifecycle.Event{lifecycle.EventAuthorizationFailed}
		}
	}
	return nil
}

func (s *PaymentService) sync(ctx context.Context, booking *models.Booking, hold *external.Hold) error {
	for _, ev := range syncEvents(booking.State(), hold) {
		next, err := lifecycle.Transition(booking.State(), ev)
		if err != nil {
			logger.WithContext(ctx).Debug("Booking already settled, processor status ignored",
				"booking_id", booking.ID,
				"state", booking.State().String(),
				"processor_status", hold.Status)
			return nil
		}
		if next == booking.State() {
			continue
		}

		err = s.write(ctx, booking, next, nil)
		if errors.Is(err, repository.ErrClassFull) {
			return s.releaseOverbooked(ctx, booking, hold.ID)
		}
		if err != nil {
			return s.drift(ctx, string(ev), booking, hold.ID, err)
		}

		reason := ""
		if ev == lifecycle.EventAuthorizationFailed {
			reason = hold.LastPaymentError
		}
		s.publishTransition(ctx, booking, ev, reason)
	}

	return nil
}

// releaseOverbooked handles a hold authorized after the class filled up
func (s *PaymentService) releaseOverbooked(ctx context.Context, booking *models.Booking, paymentRef string) error {
	log := logger.WithContext(ctx).With("booking_id", booking.ID, "class_id", booking.ClassID, "payment_id", paymentRef)
	log.Warn("Class filled before hold was confirmed, releasing hold")

	if _, err := s.processor.CancelHold(ctx, paymentRef, "abandoned"); err != nil {
		log.Error("Failed to release hold for full class", "error", err)
		return err
	}

	if err := s.apply(ctx, booking, lifecycle.EventHoldCanceled, "class full"); err != nil {
		return err
	}

	capacityErr := &apperrors.CapacityExceededError{ClassID: booking.ClassID}
	if class, err := s.classes.GetByID(ctx, booking.ClassID); err == nil && class != nil {
		capacityErr.MaxCapacity = class.MaxCapacity
	}
	return capacityErr
}

// apply runs ev through the state machine and persists the result after a successful processor call
func (s *PaymentService) apply(ctx context.Context, booking *models.Booking, ev lifecycle.Event, reason string) error {
	next, err := lifecycle.Transition(booking.State(), ev)
	if err != nil {
		return &apperrors.InvalidTransitionError{BookingID: booking.ID, Err: err}
	}
	if next == booking.State() {
		return nil
	}

	if err := s.write(ctx, booking, next, nil); err != nil {
		return s.drift(ctx, string(ev), booking, booking.PaymentRef(), err)
	}

	s.publishTransition(ctx, booking, ev, reason)
	return nil
}

func (s *PaymentService) write(ctx context.Context, booking *models.Booking, next lifecycle.State, paymentRef *string) error {
	from := booking.State()
	switch {
	case lifecycle.TakesSeat(from, next):
		return s.bookings.ConfirmWithSeat(ctx, booking, next)
	case lifecycle.ReleasesSeat(from, next):
		return s.bookings.ReleaseWithSeat(ctx, booking, next)
	default:
		return s.bookings.Transition(ctx, booking, next, paymentRef)
	}
}

// drift records a booking write that failed after the processor already acted
func (s *PaymentService) drift(ctx context.Context, op string, booking *models.Booking, paymentRef string, err error) error {
	perr := &apperrors.PersistenceError{Op: op, PaymentRef: paymentRef, Err: err}
	if booking != nil {
		perr.BookingID = booking.ID
	}

	logger.WithContext(ctx).Error("Booking record diverged from payment processor",
		"drift", true,
		"operation", op,
		"booking_id", perr.BookingID,
		"payment_id", paymentRef,
		"error", err)
	metrics.PersistenceDrift.WithLabelValues(op).Inc()

	publish(ctx, s.events, models.EventBookingDrift, models.BookingDriftEvent{
		BookingID: perr.BookingID,
		PaymentID: paymentRef,
		Operation: op,
		Error:     err.Error(),
		Timestamp: time.Now(),
	})

	return perr
}

var transitionSubjects = map[lifecycle.Event]string{
	lifecycle.EventHoldOpened:          models.EventHoldOpened,
	lifecycle.EventAuthorized:          models.EventHoldAuthorized,
	lifecycle.EventAuthorizationFailed: models.EventHoldReleased,
	lifecycle.EventHoldCanceled:        models.EventHoldReleased,
	lifecycle.EventCaptured:            models.EventPaymentCaptured,
	lifecycle.EventRefunded:            models.EventPaymentRefunded,
}

func (s *PaymentService) publishTransition(ctx context.Context, booking *models.Booking, ev lifecycle.Event, reason string) {
	subject, ok := transitionSubjects[ev]
	if !ok {
		return
	}

	publish(ctx, s.events, subject, models.BookingPaymentEvent{
		BookingID:     booking.ID,
		ClassID:       booking.ClassID,
		PaymentID:     booking.PaymentRef(),
		PaymentStatus: string(booking.PaymentStatus),
		Status:        string(booking.Status),
		AmountMinor:   models.ToMinorUnits(booking.Amount),
		Reason:        reason,
		Timestamp:     time.Now(),
	})
}

func toRefundRecord(r external.Refund) *models.RefundRecord {
	return &models.RefundRecord{
		ID:              r.ID,
		PaymentIntentID: r.PaymentRef,
		Amount:          models.FromMinorUnits(r.Amount).InexactFloat64(),
		Currency:        r.Currency,
		Status:          r.Status,
		Reason:          r.Reason,
		Created:         r.Created,
	}
}

func toPaymentRecord(p external.Payment) models.PaymentRecord {
	record := models.PaymentRecord{
		ID:            p.ID,
		Amount:        models.FromMinorUnits(p.Amount).InexactFloat64(),
		Currency:      p.Currency,
		Status:        p.Status,
		Description:   p.Description,
		CustomerEmail: p.ReceiptEmail,
		Metadata:      p.Metadata,
		Created:       p.Created,
		Charges:       []models.ChargeRecord{},
		Refunds:       []models.RefundRecord{},
	}
	if record.CustomerEmail == "" {
		record.CustomerEmail = p.Metadata["customer_email"]
	}

	if ch := p.Charge; ch != nil {
		record.Charges = append(record.Charges, models.ChargeRecord{
			ID:             ch.ID,
			Amount:         models.FromMinorUnits(ch.Amount).InexactFloat64(),
			AmountRefunded: models.FromMinorUnits(ch.AmountRefunded).InexactFloat64(),
			Refunded:       ch.Refunded,
			Fee:            models.FromMinorUnits(ch.Fee).InexactFloat64(),
			Net:            models.FromMinorUnits(ch.Net).InexactFloat64(),
			ReceiptURL:     ch.ReceiptURL,
		})
		for _, r := range ch.Refunds {
			record.Refunds = append(record.Refunds, *toRefundRecord(r))
		}
	}

	return record
}
