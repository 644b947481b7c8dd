package models

import (
	"time"

	"cocinarte/internal/lifecycle"

	"github.com/shopspring/decimal"
)

// ClassSession represents a scheduled cooking class
type ClassSession struct {
	ID              int64           `json:"id" db:"id"`
	Title           string          `json:"title" db:"title"`
	Description     *string         `json:"description,omitempty" db:"description"`
	Date            time.Time       `json:"date" db:"class_date"`
	StartTime       string          `json:"time" db:"start_time"`
	DurationMinutes int             `json:"duration_minutes" db:"duration_minutes"`
	Price           decimal.Decimal `json:"price" db:"price"`
	MinEnrollment   int             `json:"min_enrollment" db:"min_enrollment"`
	MaxCapacity     int             `json:"max_capacity" db:"max_capacity"`
	Enrolled        int             `json:"enrolled" db:"enrolled"`
	ImageURL        *string         `json:"image_url,omitempty" db:"image_url"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// HasSpace reports whether another seat can be taken
func (c *ClassSession) HasSpace() bool {
	return c.Enrolled < c.MaxCapacity
}

// SpotsLeft returns the number of free seats, never negative
func (c *ClassSession) SpotsLeft() int {
	if c.Enrolled >= c.MaxCapacity {
		return 0
	}
	return c.MaxCapacity - c.Enrolled
}

// MeetsMinimum reports whether enrollment reached the threshold needed to run the class
func (c *ClassSession) MeetsMinimum() bool {
	return c.Enrolled >= c.MinEnrollment
}

// StartsAt combines the class date with its start time (HH:MM); falls back to midnight
func (c *ClassSession) StartsAt() time.Time {
	day := time.Date(c.Date.Year(), c.Date.Month(), c.Date.Day(), 0, 0, 0, 0, c.Date.Location())
	if t, err := time.Parse("15:04", c.StartTime); err == nil {
		return day.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
	}
	return day
}

// Student is the parent/child pair a booking is made for
type Student struct {
	ID         int64     `json:"id" db:"id"`
	ParentName string    `json:"parent_name" db:"parent_name"`
	ChildName  string    `json:"child_name" db:"child_name"`
	ChildAge   *int      `json:"child_age,omitempty" db:"child_age"`
	Email      string    `json:"email" db:"email"`
	Phone      *string   `json:"phone,omitempty" db:"phone"`
	Allergies  *string   `json:"allergies,omitempty" db:"allergies"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Booking links a student to a class session and to the processor-side hold
type Booking struct {
	ID              int64                   `json:"id" db:"id"`
	ClassID         int64                   `json:"class_id" db:"class_id"`
	StudentID       int64                   `json:"student_id" db:"student_id"`
	Amount          decimal.Decimal         `json:"amount" db:"amount"`
	Currency        string                  `json:"currency" db:"currency"`
	PaymentStatus   lifecycle.PaymentStatus `json:"payment_status" db:"payment_status"`
	Status          lifecycle.BookingStatus `json:"status" db:"status"`
	PaymentIntentID *string                 `json:"payment_intent_id,omitempty" db:"payment_intent_id"`
	Notes           *string                 `json:"notes,omitempty" db:"notes"`
	CreatedAt       time.Time               `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at" db:"updated_at"`

	// Filled by lookups that join classes and students
	ClassTitle    string `json:"class_title,omitempty" db:"-"`
	CustomerEmail string `json:"customer_email,omitempty" db:"-"`
	ChildName     string `json:"child_name,omitempty" db:"-"`
}

// State returns the lifecycle state stored on the row
func (b *Booking) State() lifecycle.State {
	return lifecycle.State{Payment: b.PaymentStatus, Booking: b.Status}
}

// SetState copies a lifecycle state onto the row
func (b *Booking) SetState(s lifecycle.State) {
	b.PaymentStatus = s.Payment
	b.Status = s.Booking
}

// PaymentRef returns the processor reference or an empty string
func (b *Booking) PaymentRef() string {
	if b.PaymentIntentID == nil {
		return ""
	}
	return *b.PaymentIntentID
}

// Admin is a row of the dashboard allow-list
type Admin struct {
	ID        int64     `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
