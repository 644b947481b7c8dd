package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"cocinarte/internal/auth"
	apperrors "cocinarte/internal/errors"
	"cocinarte/internal/middleware"
	"cocinarte/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePayments struct {
	openReq   *models.CreateHoldRequest
	openErr   error
	verifyRef string
	verifyErr error
	refundReq *models.RefundRequest
	refundErr error
	cursor    string
	limit     int
}

func (f *fakePayments) Open(_ context.Context, req *models.CreateHoldRequest) (*models.CreateHoldResponse, error) {
	f.openReq = req
	if f.openErr != nil {
		return nil, f.openErr
	}
	return &models.CreateHoldResponse{ClientSecret: "pi_1_secret", PaymentIntentID: "pi_1", BookingID: 11}, nil
}

func (f *fakePayments) Verify(_ context.Context, ref string) (*models.VerifyHoldResponse, error) {
	f.verifyRef = ref
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &models.VerifyHoldResponse{Success: true, Status: "requires_capture", Amount: 75, Currency: "usd"}, nil
}

func (f *fakePayments) Capture(_ context.Context, ref string) (*models.CaptureHoldResponse, error) {
	return &models.CaptureHoldResponse{Status: "succeeded", AmountCaptured: 75, Currency: "usd"}, nil
}

func (f *fakePayments) Cancel(_ context.Context, ref, reason string) (*models.CancelHoldResponse, error) {
	return nil, &apperrors.ProcessorError{Op: "cancel hold", Code: "payment_intent_unexpected_state",
		Message: "You cannot cancel this PaymentIntent because it has a status of canceled."}
}

func (f *fakePayments) Refund(_ context.Context, req *models.RefundRequest) (*models.RefundRecord, error) {
	f.refundReq = req
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	return &models.RefundRecord{ID: "re_1", PaymentIntentID: req.PaymentIntentID, Amount: 75, Status: "succeeded"}, nil
}

func (f *fakePayments) ListPayments(_ context.Context, cursor string, limit int) (*models.ListPaymentsResponse, error) {
	f.cursor, f.limit = cursor, limit
	return &models.ListPaymentsResponse{Payments: []models.PaymentRecord{}}, nil
}

type fakeClasses struct {
	filter models.ClassFilter
}

func (f *fakeClasses) ListUpcoming(_ context.Context, filter models.ClassFilter) ([]models.ListClassesResponseItem, error) {
	f.filter = filter
	return []models.ListClassesResponseItem{{ID: 1, Title: "Pasta Night", SpotsLeft: 3}}, nil
}

func (f *fakeClasses) ListAll(context.Context, models.ClassFilter) ([]models.ClassSession, error) {
	return nil, nil
}

func (f *fakeClasses) Get(_ context.Context, id int64) (*models.ClassSession, error) {
	if id != 1 {
		return nil, apperrors.NotFound("class", id)
	}
	return &models.ClassSession{ID: 1, Title: "Pasta Night"}, nil
}

func (f *fakeClasses) Search(context.Context, string, int, int) ([]models.ListClassesResponseItem, error) {
	return nil, apperrors.Configuration("class search is not configured")
}

func (f *fakeClasses) Create(_ context.Context, req *models.ClassRequest) (*models.ClassSession, error) {
	return &models.ClassSession{ID: 5, Title: req.Title}, nil
}

func (f *fakeClasses) Update(context.Context, int64, *models.ClassRequest) (*models.ClassSession, error) {
	return nil, apperrors.Validation("maxCapacity", "cannot be lower than current enrollment")
}

func (f *fakeClasses) Delete(context.Context, int64) error { return nil }

type fakeStudents struct{}

func (fakeStudents) List(context.Context, int, int) ([]models.Student, error) { return []models.Student{}, nil }
func (fakeStudents) Get(_ context.Context, id int64) (*models.Student, error) {
	return nil, apperrors.NotFound("student", id)
}
func (fakeStudents) Create(_ context.Context, req *models.StudentRequest) (*models.Student, error) {
	return &models.Student{ID: 2, ParentName: req.ParentName, ChildName: req.ChildName, Email: req.Email}, nil
}
func (fakeStudents) Update(context.Context, int64, *models.StudentRequest) (*models.Student, error) {
	return nil, nil
}
func (fakeStudents) Delete(context.Context, int64) error { return nil }

type fakeBookings struct {
	filter models.BookingFilter
	email  string
}

func (f *fakeBookings) List(_ context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	f.filter = filter
	return []models.Booking{}, nil
}

func (f *fakeBookings) ListForCustomer(_ context.Context, email string) ([]models.Booking, error) {
	f.email = email
	return []models.Booking{{ID: 4}}, nil
}

func (f *fakeBookings) Get(context.Context, int64) (*models.Booking, error) { return &models.Booking{ID: 4}, nil }

func (f *fakeBookings) Delete(context.Context, int64) error {
	return &apperrors.InvalidTransitionError{BookingID: 4, Err: errors.New("cancel the hold before deleting the booking")}
}

type fixture struct {
	router   *gin.Engine
	payments *fakePayments
	classes  *fakeClasses
	bookings *fakeBookings
}

func newFixture() *fixture {
	gin.SetMode(gin.TestMode)
	f := &fixture{payments: &fakePayments{}, classes: &fakeClasses{}, bookings: &fakeBookings{}}
	h := &Handlers{payments: f.payments, classes: f.classes, students: fakeStudents{}, bookings: f.bookings}

	r := gin.New()
	r.POST("/holds", h.CreateHold)
	r.POST("/holds/verify", h.VerifyHold)
	r.POST("/holds/cancel", h.CancelHold)
	r.POST("/capture", h.CaptureHold)
	r.POST("/refunds", h.Refund)
	r.GET("/payments", h.ListPayments)
	r.GET("/classes", h.ListClasses)
	r.GET("/classes/search", h.SearchClasses)
	r.GET("/classes/:id", h.GetClass)
	r.POST("/admin/classes", h.CreateClass)
	r.PUT("/admin/classes/:id", h.UpdateClass)
	r.DELETE("/admin/classes/:id", h.DeleteClass)
	r.GET("/admin/students/:id", h.GetStudent)
	r.POST("/admin/students", h.CreateStudent)
	r.GET("/admin/bookings", h.ListBookings)
	r.DELETE("/admin/bookings/:id", h.DeleteBooking)
	r.GET("/me/bookings", func(c *gin.Context) {
		ctx := middleware.ContextWithIdentity(c.Request.Context(), auth.Identity{UserID: "u-1", Email: "parent@example.com"})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}, h.MyBookings)
	f.router = r
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestCreateHold(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodPost, "/holds", `{"amount":75.00,"classId":3,
		"customerInfo":{"parentName":"Ana","childName":"Leo","email":"ana@example.com"}}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"clientSecret":"pi_1_secret","paymentIntentId":"pi_1","bookingId":11}`, w.Body.String())
	require.NotNil(t, f.payments.openReq)
	assert.Equal(t, "75", f.payments.openReq.Amount.String())
	assert.Equal(t, int64(3), f.payments.openReq.ClassID)
	assert.Equal(t, "Leo", f.payments.openReq.Customer.ChildName)
}

func TestCreateHoldErrors(t *testing.T) {
	tests := map[string]struct {
		err     error
		status  int
		message string
	}{
		"class full": {
			err:     &apperrors.CapacityExceededError{ClassID: 3, MaxCapacity: 8},
			status:  http.StatusBadRequest,
			message: apperrors.ClassFullMessage,
		},
		"missing class": {
			err:    apperrors.NotFound("class", 3),
			status: http.StatusNotFound,
		},
		"processor failure": {
			err:     &apperrors.ProcessorError{Op: "create hold", Message: "api key expired"},
			status:  http.StatusInternalServerError,
			message: "",
		},
		"drift": {
			err:    &apperrors.PersistenceError{Op: "attach hold", Err: errors.New("conn reset")},
			status: http.StatusInternalServerError,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			f.payments.openErr = tt.err

			w := f.do(http.MethodPost, "/holds", `{"amount":75,"classId":3,"customerInfo":{}}`)

			assert.Equal(t, tt.status, w.Code)
			msg := errorBody(t, w)
			if tt.message != "" {
				assert.Equal(t, tt.message, msg)
			}
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(t, msg, "api key")
				assert.NotContains(t, msg, "conn reset")
			}
		})
	}
}

func TestMalformedBodyIsBadRequest(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodPost, "/holds", `{"amount":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, f.payments.openReq)
}

func TestVerifyHold(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodPost, "/holds/verify", `{"paymentIntentId":"pi_1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pi_1", f.payments.verifyRef)
	assert.JSONEq(t, `{"success":true,"status":"requires_capture","amount":75,"currency":"usd"}`, w.Body.String())

	f.payments.verifyErr = apperrors.Validation("paymentIntentId", "is required")
	w = f.do(http.MethodPost, "/holds/verify", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorBody(t, w), "paymentIntentId")
}

func TestCancelAlreadyCanceledHold(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodPost, "/holds/cancel", `{"paymentIntentId":"pi_1"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, errorBody(t, w))
}

func TestRefund(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodPost, "/refunds", `{"paymentIntentId":"pi_1","amount":"25.50","reason":"requested_by_customer"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, f.payments.refundReq.Amount)
	assert.Equal(t, "25.5", f.payments.refundReq.Amount.String())

	f.payments.refundErr = &apperrors.InvalidTransitionError{BookingID: 4, Err: errors.New("cannot refund a pending booking")}
	w = f.do(http.MethodPost, "/refunds", `{"paymentIntentId":"pi_1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListPaymentsQuery(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodGet, "/payments?cursor=pi_9&limit=25", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pi_9", f.payments.cursor)
	assert.Equal(t, 25, f.payments.limit)

	w = f.do(http.MethodGet, "/payments?limit=many", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClasses(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodGet, "/classes?from=2026-11-01&pageSize=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, f.classes.filter.From)
	assert.Equal(t, "2026-11-01", f.classes.filter.From.Format("2006-01-02"))
	assert.Equal(t, 5, f.classes.filter.PageSize)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/classes?from=11/01/2026", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/classes/1", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/classes/2", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/classes/abc", "").Code)
	assert.Equal(t, http.StatusInternalServerError, f.do(http.MethodGet, "/classes/search?q=pasta", "").Code)
}

func TestAdminClassWrites(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodPost, "/admin/classes", `{"title":"Sushi","date":"2026-11-02","time":"17:00","maxCapacity":8,"price":80}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = f.do(http.MethodPost, "/admin/classes", `{"date":"2026-11-02"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPut, "/admin/classes/1", `{"title":"Sushi","date":"2026-11-02","time":"17:00","maxCapacity":2}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorBody(t, w), "maxCapacity")

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/admin/classes/1", "").Code)
}

func TestStudents(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodPost, "/admin/students", `{"parentName":"Ana","childName":"Leo","email":"ana@example.com"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = f.do(http.MethodPost, "/admin/students", `{"parentName":"Ana","childName":"Leo","email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/admin/students/9", "").Code)
}

func TestBookings(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodGet, "/admin/bookings?classId=3&paymentStatus=authorized&limit=10&offset=20", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, f.bookings.filter.ClassID)
	assert.Equal(t, int64(3), *f.bookings.filter.ClassID)
	assert.Equal(t, "authorized", f.bookings.filter.PaymentStatus)
	assert.Equal(t, 10, f.bookings.filter.Limit)
	assert.Equal(t, 20, f.bookings.filter.Offset)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/admin/bookings?classId=x", "").Code)
	assert.Equal(t, http.StatusConflict, f.do(http.MethodDelete, "/admin/bookings/4", "").Code)

	w = f.do(http.MethodGet, "/me/bookings", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "parent@example.com", f.bookings.email)
}
