package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	apperrors "cocinarte/internal/errors"
	"cocinarte/internal/logger"
	"cocinarte/internal/models"
	"cocinarte/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentAPI interface {
	Open(ctx context.Context, req *models.CreateHoldRequest) (*models.CreateHoldResponse, error)
	Verify(ctx context.Context, paymentRef string) (*models.VerifyHoldResponse, error)
	Capture(ctx context.Context, paymentRef string) (*models.CaptureHoldResponse, error)
	Cancel(ctx context.Context, paymentRef, reason string) (*models.CancelHoldResponse, error)
	Refund(ctx context.Context, req *models.RefundRequest) (*models.RefundRecord, error)
	ListPayments(ctx context.Context, cursor string, limit int) (*models.ListPaymentsResponse, error)
}

type ClassAPI interface {
	ListUpcoming(ctx context.Context, filter models.ClassFilter) ([]models.ListClassesResponseItem, error)
	ListAll(ctx context.Context, filter models.ClassFilter) ([]models.ClassSession, error)
	Get(ctx context.Context, id int64) (*models.ClassSession, error)
	Search(ctx context.Context, query string, page, pageSize int) ([]models.ListClassesResponseItem, error)
	Create(ctx context.Context, req *models.ClassRequest) (*models.ClassSession, error)
	Update(ctx context.Context, id int64, req *models.ClassRequest) (*models.ClassSession, error)
	Delete(ctx context.Context, id int64) error
}

type StudentAPI interface {
	List(ctx context.Context, page, pageSize int) ([]models.Student, error)
	Get(ctx context.Context, id int64) (*models.Student, error)
	Create(ctx context.Context, req *models.StudentRequest) (*models.Student, error)
	Update(ctx context.Context, id int64, req *models.StudentRequest) (*models.Student, error)
	Delete(ctx context.Context, id int64) error
}

type BookingAPI interface {
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
	ListForCustomer(ctx context.Context, email string) ([]models.Booking, error)
	Get(ctx context.Context, id int64) (*models.Booking, error)
	Delete(ctx context.Context, id int64) error
}

type Handlers struct {
	payments PaymentAPI
	classes  ClassAPI
	students StudentAPI
	bookings BookingAPI
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		payments: services.Payments,
		classes:  services.Classes,
		students: services.Students,
		bookings: services.Bookings,
	}
}

// respondError converts a service error into the {"error": ...} body.
// Internal details only reach the log.
func respondError(c *gin.Context, op string, err error) {
	status := apperrors.HTTPStatus(err)

	log := logger.WithContext(c.Request.Context())
	switch {
	case apperrors.IsDrift(err):
		log.Error(op+" left processor and booking out of sync", "error", err, "drift", true)
	case status >= http.StatusInternalServerError:
		log.Error(op+" failed", "error", err)
	default:
		log.Debug(op+" rejected", "error", err, "status", status)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": apperrors.PublicMessage(err)})
}

// bindJSON reports malformed bodies as validation errors
func bindJSON(c *gin.Context, op string, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, op, apperrors.Validation("body", err.Error()))
		return false
	}
	return true
}

func pathID(c *gin.Context, op string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, op, apperrors.Validation("id", "must be a positive integer"))
		return 0, false
	}
	return id, true
}

// queryInt returns def for a missing parameter and false for a malformed one
func queryInt(c *gin.Context, op, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		respondError(c, op, apperrors.Validation(name, "must be an integer"))
		return 0, false
	}
	return v, true
}

func queryDate(c *gin.Context, op, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		respondError(c, op, apperrors.Validation(name, "must be a date in YYYY-MM-DD format"))
		return nil, false
	}
	return &t, true
}
