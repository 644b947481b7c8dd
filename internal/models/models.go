package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerInfo - parent/child details sent with a hold request
type CustomerInfo struct {
	ParentName string  `json:"parentName"`
	ChildName  string  `json:"childName"`
	ChildAge   *int    `json:"childAge,omitempty"`
	Email      string  `json:"email"`
	Phone      *string `json:"phone,omitempty"`
	Allergies  *string `json:"allergies,omitempty"`
}

// CreateHoldRequest - open a manually captured payment hold for a class
type CreateHoldRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	ClassID  int64           `json:"classId"`
	Currency string          `json:"currency,omitempty"`
	Customer CustomerInfo    `json:"customerInfo"`
}

// CreateHoldResponse - data the client needs to confirm the card out-of-band
type CreateHoldResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
	BookingID       int64  `json:"bookingId"`
}

// PaymentRefRequest - any request addressing an existing hold
type PaymentRefRequest struct {
	PaymentIntentID string `json:"paymentIntentId"`
	Reason          string `json:"reason,omitempty"`
}

// VerifyHoldResponse - processor status of a hold
type VerifyHoldResponse struct {
	Success   bool    `json:"success"`
	Status    string  `json:"status"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	BookingID *int64  `json:"bookingId,omitempty"`
}

// CancelHoldResponse - result of releasing a hold
type CancelHoldResponse struct {
	Status   string `json:"status"`
	Canceled bool   `json:"canceled"`
}

// CaptureHoldResponse - result of capturing a hold
type CaptureHoldResponse struct {
	Status         string  `json:"status"`
	AmountCaptured float64 `json:"amountCaptured"`
	Currency       string  `json:"currency"`
}

// RefundRequest - amount is optional, a missing amount refunds in full
type RefundRequest struct {
	PaymentIntentID string           `json:"paymentIntentId"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	Reason          string           `json:"reason,omitempty"`
}

// RefundRecord - refund as reported by the processor
type RefundRecord struct {
	ID              string  `json:"id"`
	PaymentIntentID string  `json:"paymentIntentId,omitempty"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	Status          string  `json:"status"`
	Reason          string  `json:"reason,omitempty"`
	Created         int64   `json:"created"`
}

// ChargeRecord - charge attached to a payment with its fee breakdown
type ChargeRecord struct {
	ID             string  `json:"id"`
	Amount         float64 `json:"amount"`
	AmountRefunded float64 `json:"amountRefunded"`
	Refunded       bool    `json:"refunded"`
	Fee            float64 `json:"fee"`
	Net            float64 `json:"net"`
	ReceiptURL     string  `json:"receiptUrl,omitempty"`
}

// PaymentRecord - admin projection of a processor payment
type PaymentRecord struct {
	ID            string            `json:"id"`
	Amount        float64           `json:"amount"`
	Currency      string            `json:"currency"`
	Status        string            `json:"status"`
	Description   string            `json:"description,omitempty"`
	CustomerEmail string            `json:"customerEmail,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Created       int64             `json:"created"`
	Charges       []ChargeRecord    `json:"charges"`
	Refunds       []RefundRecord    `json:"refunds"`
}

// ListPaymentsResponse - one page of payments
type ListPaymentsResponse struct {
	Payments   []PaymentRecord `json:"payments"`
	HasMore    bool            `json:"hasMore"`
	NextCursor string          `json:"nextCursor,omitempty"`
}

// ClassRequest - admin create/update of a class session
type ClassRequest struct {
	Title           string          `json:"title" binding:"required"`
	Description     *string         `json:"description,omitempty"`
	Date            string          `json:"date" binding:"required"`
	Time            string          `json:"time" binding:"required"`
	DurationMinutes int             `json:"durationMinutes"`
	Price           decimal.Decimal `json:"price"`
	MinEnrollment   int             `json:"minEnrollment"`
	MaxCapacity     int             `json:"maxCapacity" binding:"required"`
	ImageURL        *string         `json:"imageUrl,omitempty"`
}

// ClassFilter - catalog and admin listing filters
type ClassFilter struct {
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// ListClassesResponseItem - public catalog entry
type ListClassesResponseItem struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	Date            string  `json:"date"`
	Time            string  `json:"time"`
	DurationMinutes int     `json:"durationMinutes"`
	Price           float64 `json:"price"`
	SpotsLeft       int     `json:"spotsLeft"`
	ImageURL        *string `json:"imageUrl,omitempty"`
}

// StudentRequest - admin create/update of a roster entry
type StudentRequest struct {
	ParentName string  `json:"parentName" binding:"required"`
	ChildName  string  `json:"childName" binding:"required"`
	ChildAge   *int    `json:"childAge,omitempty"`
	Email      string  `json:"email" binding:"required,email"`
	Phone      *string `json:"phone,omitempty"`
	Allergies  *string `json:"allergies,omitempty"`
}

// BookingFilter - read-only lookups over bookings
type BookingFilter struct {
	ClassID       *int64
	StudentID     *int64
	Email         string
	PaymentStatus string
	Status        string
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}
