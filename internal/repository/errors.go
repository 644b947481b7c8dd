package repository

import "errors"

// ErrStaleBooking is returned when a booking row no longer holds the state the
// caller read, so a conditional update matched nothing.
var ErrStaleBooking = errors.New("booking state changed concurrently")

// ErrClassFull is returned when the conditional enrollment increment finds no free seat.
var ErrClassFull = errors.New("class has no free seats")

// ErrClassHasBookings is returned when a class delete is blocked by booking rows referencing it.
var ErrClassHasBookings = errors.New("class still has bookings")

// ErrCapacityBelowEnrollment is returned when an update would shrink a class below its enrollment.
var ErrCapacityBelowEnrollment = errors.New("capacity below current enrollment")
