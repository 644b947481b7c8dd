// Package lifecycle holds the booking payment state machine. Every code path
// that changes a booking's payment or booking status asks Transition first.
package lifecycle

import (
	"errors"
	"fmt"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// State is the pair of statuses stored on a booking row
type State struct {
	Payment PaymentStatus `json:"payment_status"`
	Booking BookingStatus `json:"status"`
}

func (s State) String() string {
	return fmt.Sprintf("%s/%s", s.Payment, s.Booking)
}

// Terminal reports whether no event other than a refund can move the state
func (s State) Terminal() bool {
	return s.Payment == PaymentFailed || s.Payment == PaymentRefunded
}

type Event string

const (
	EventHoldOpened          Event = "hold_opened"
	EventAuthorized          Event = "authorized"
	EventAuthorizationFailed Event = "authorization_failed"
	EventHoldCanceled        Event = "hold_canceled"
	EventCaptured            Event = "captured"
	EventRefunded            Event = "refunded"
)

var ErrIllegalTransition = errors.New("illegal booking transition")

// Initial is the state of a freshly created booking
var Initial = State{Payment: PaymentPending, Booking: BookingPending}

// Transition returns the state reached by applying ev to s
func Transition(s State, ev Event) (State, error) {
	switch ev {
	case EventHoldOpened:
		if s == Initial {
			return s, nil
		}

	case EventAuthorized:
		if s.Payment == PaymentPending && (s.Booking == BookingPending || s.Booking == BookingConfirmed) {
			return State{Payment: PaymentPending, Booking: BookingConfirmed}, nil
		}

	case EventAuthorizationFailed, EventHoldCanceled:
		if s.Payment == PaymentPending {
			return State{Payment: PaymentFailed, Booking: BookingCancelled}, nil
		}

	case EventCaptured:
		if s.Payment == PaymentPending && s.Booking == BookingConfirmed {
			return State{Payment: PaymentCompleted, Booking: BookingConfirmed}, nil
		}

	case EventRefunded:
		if s.Payment == PaymentCompleted {
			return State{Payment: PaymentRefunded, Booking: BookingCancelled}, nil
		}
	}

	return s, fmt.Errorf("%w: %s on %s", ErrIllegalTransition, ev, s)
}

// TakesSeat reports whether moving from -> to occupies a class seat
func TakesSeat(from, to State) bool {
	return from.Booking != BookingConfirmed && to.Booking == BookingConfirmed
}

// ReleasesSeat reports whether moving from -> to frees a class seat
func ReleasesSeat(from, to State) bool {
	return from.Booking == BookingConfirmed && to.Booking == BookingCancelled
}

func ValidPaymentStatus(s string) bool {
	switch PaymentStatus(s) {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

func ValidBookingStatus(s string) bool {
	switch BookingStatus(s) {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}
