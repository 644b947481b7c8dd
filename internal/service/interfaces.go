package service

import (
	"context"
	"time"

	"cocinarte/internal/external"
	"cocinarte/internal/lifecycle"
	"cocinarte/internal/models"
)

type ClassStore interface {
	GetByID(ctx context.Context, id int64) (*models.ClassSession, error)
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassSession, error)
	ListStartingBetween(ctx context.Context, from, to time.Time) ([]models.ClassSession, error)
	Create(ctx context.Context, class *models.ClassSession) error
	Update(ctx context.Context, class *models.ClassSession) error
	Delete(ctx context.Context, id int64) (bool, error)
}

type StudentStore interface {
	GetByID(ctx context.Context, id int64) (*models.Student, error)
	FindOrCreate(ctx context.Context, student *models.Student) error
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, page, pageSize int) ([]models.Student, error)
}

type BookingStore interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id int64) (*models.Booking, error)
	GetByPaymentRef(ctx context.Context, paymentRef string) (*models.Booking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
	Transition(ctx context.Context, booking *models.Booking, to lifecycle.State, paymentRef *string) error
	ConfirmWithSeat(ctx context.Context, booking *models.Booking, to lifecycle.State) error
	ReleaseWithSeat(ctx context.Context, booking *models.Booking, to lifecycle.State) error
	ListAwaitingCapture(ctx context.Context, classID int64) ([]models.Booking, error)
	ListAbandonedHolds(ctx context.Context, createdBefore time.Time) ([]models.Booking, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// PaymentProcessor is the hosted processor's hold API
type PaymentProcessor interface {
	Configured() bool
	CreateHold(ctx context.Context, req external.HoldRequest) (*external.Hold, error)
	GetHold(ctx context.Context, paymentRef string) (*external.Hold, error)
	CaptureHold(ctx context.Context, paymentRef string) (*external.Hold, error)
	CancelHold(ctx context.Context, paymentRef, reason string) (*external.Hold, error)
	Refund(ctx context.Context, req external.RefundRequest) (*external.Refund, error)
	ListPayments(ctx context.Context, cursor string, limit int) (*external.PaymentPage, error)
}

type EventPublisher interface {
	Publish(subject string, data interface{}) error
}

// ClassListCache holds rendered public catalog pages
type ClassListCache interface {
	GetClassList(ctx context.Context, key string) ([]models.ListClassesResponseItem, bool)
	SetClassList(ctx context.Context, key string, items []models.ListClassesResponseItem) error
	InvalidateClassLists(ctx context.Context) error
}

// ClassIndex is the free-text class search backend
type ClassIndex interface {
	SearchClasses(ctx context.Context, query string, page, pageSize int) ([]int64, error)
}
