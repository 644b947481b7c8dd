package models

import "time"

// NATS Event Types
const (
	EventHoldOpened      = "hold.opened"
	EventHoldAuthorized  = "hold.authorized"
	EventHoldReleased    = "hold.released"
	EventPaymentCaptured = "payment.captured"
	EventPaymentRefunded = "payment.refunded"
	EventBookingDrift    = "booking.drift"
	EventClassChanged    = "class.changed"
)

// BookingPaymentEvent is published on every hold/payment transition of a booking
type BookingPaymentEvent struct {
	BookingID     int64     `json:"booking_id"`
	ClassID       int64     `json:"class_id"`
	PaymentID     string    `json:"payment_id"`
	PaymentStatus string    `json:"payment_status"`
	Status        string    `json:"status"`
	AmountMinor   int64     `json:"amount_minor,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// BookingDriftEvent signals that the processor and the booking row disagree
type BookingDriftEvent struct {
	BookingID int64     `json:"booking_id"`
	PaymentID string    `json:"payment_id"`
	Operation string    `json:"operation"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// ClassChangedEvent is published when a class row or its enrollment changes
type ClassChangedEvent struct {
	ClassID   int64     `json:"class_id"`
	Deleted   bool      `json:"deleted"`
	Timestamp time.Time `json:"timestamp"`
}
