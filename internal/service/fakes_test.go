package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "cocinarte/internal/errors"
	"cocinarte/internal/external"
	"cocinarte/internal/lifecycle"
	"cocinarte/internal/models"
	"cocinarte/internal/repository"
)

// memStore backs the class, student and booking stores with one mutex so seat
// accounting behaves like the real transactions.
type memStore struct {
	mu       sync.Mutex
	classes  map[int64]*models.ClassSession
	students map[int64]*models.Student
	bookings map[int64]*models.Booking
	nextID   int64

	failTransition error
}

func newMemStore() *memStore {
	return &memStore{
		classes:  map[int64]*models.ClassSession{},
		students: map[int64]*models.Student{},
		bookings: map[int64]*models.Booking{},
		nextID:   100,
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) addClass(c models.ClassSession) *models.ClassSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := c
	m.classes[c.ID] = &cp
	return &cp
}

func (m *memStore) class(id int64) models.ClassSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.classes[id]
}

// booking returns a snapshot of the stored row
func (m *memStore) booking(id int64) *models.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.bookings[id]
	return &cp
}

func (m *memStore) addBooking(b models.Booking) *models.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == 0 {
		b.ID = m.id()
	}
	cp := b
	m.bookings[b.ID] = &cp
	return &cp
}

type classStore struct{ *memStore }

func (s classStore) GetByID(_ context.Context, id int64) (*models.ClassSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.classes[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s classStore) List(_ context.Context, filter models.ClassFilter) ([]models.ClassSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ClassSession
	for _, c := range s.classes {
		if filter.From != nil && c.Date.Before(*filter.From) {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s classStore) ListStartingBetween(_ context.Context, from, to time.Time) ([]models.ClassSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ClassSession
	for _, c := range s.classes {
		if !c.StartsAt().Before(from) && !c.StartsAt().After(to) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s classStore) Create(_ context.Context, c *models.ClassSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	cp := *c
	s.classes[c.ID] = &cp
	return nil
}

func (s classStore) Update(_ context.Context, c *models.ClassSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.classes[c.ID]
	if !ok || existing.Enrolled > c.MaxCapacity {
		return repository.ErrCapacityBelowEnrollment
	}
	c.Enrolled = existing.Enrolled
	cp := *c
	s.classes[c.ID] = &cp
	return nil
}

func (s classStore) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.ClassID == id {
			return false, repository.ErrClassHasBookings
		}
	}
	_, ok := s.classes[id]
	delete(s.classes, id)
	return ok, nil
}

type studentStore struct{ *memStore }

func (s studentStore) GetByID(_ context.Context, id int64) (*models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[id]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (s studentStore) FindOrCreate(_ context.Context, st *models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.students {
		if existing.Email == st.Email && existing.ChildName == st.ChildName {
			st.ID = existing.ID
			return nil
		}
	}
	st.ID = s.id()
	cp := *st
	s.students[st.ID] = &cp
	return nil
}

func (s studentStore) Create(_ context.Context, st *models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.ID = s.id()
	cp := *st
	s.students[st.ID] = &cp
	return nil
}

func (s studentStore) Update(_ context.Context, st *models.Student) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.students[st.ID]; !ok {
		return false, nil
	}
	cp := *st
	s.students[st.ID] = &cp
	return true, nil
}

func (s studentStore) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.students[id]
	delete(s.students, id)
	return ok, nil
}

func (s studentStore) List(_ context.Context, _, _ int) ([]models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Student
	for _, st := range s.students {
		out = append(out, *st)
	}
	return out, nil
}

type bookingStore struct{ *memStore }

func (s bookingStore) Create(_ context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.id()
	b.SetState(lifecycle.Initial)
	b.CreatedAt = time.Now()
	cp := *b
	s.bookings[b.ID] = &cp
	return nil
}

func (s bookingStore) GetByID(_ context.Context, id int64) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (s bookingStore) GetByPaymentRef(_ context.Context, ref string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.PaymentRef() == ref {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (s bookingStore) List(_ context.Context, f models.BookingFilter) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Booking
	for _, b := range s.bookings {
		if f.ClassID != nil && b.ClassID != *f.ClassID {
			continue
		}
		if f.PaymentStatus != "" && string(b.PaymentStatus) != f.PaymentStatus {
			continue
		}
		if f.Status != "" && string(b.Status) != f.Status {
			continue
		}
		if f.Email != "" && b.CustomerEmail != f.Email {
			continue
		}
		if f.To != nil && !b.CreatedAt.Before(*f.To) {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// update applies the conditional write; the caller holds the lock
func (s bookingStore) update(b *models.Booking, to lifecycle.State, ref *string) error {
	if s.failTransition != nil {
		return s.failTransition
	}
	stored, ok := s.bookings[b.ID]
	if !ok || stored.State() != b.State() {
		return repository.ErrStaleBooking
	}
	stored.SetState(to)
	if ref != nil {
		r := *ref
		stored.PaymentIntentID = &r
	}
	return nil
}

func (s bookingStore) Transition(_ context.Context, b *models.Booking, to lifecycle.State, ref *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.update(b, to, ref); err != nil {
		return err
	}
	b.SetState(to)
	if ref != nil {
		b.PaymentIntentID = ref
	}
	return nil
}

func (s bookingStore) ConfirmWithSeat(_ context.Context, b *models.Booking, to lifecycle.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.classes[b.ClassID]
	if c.Enrolled >= c.MaxCapacity {
		return repository.ErrClassFull
	}
	if err := s.update(b, to, nil); err != nil {
		return err
	}
	c.Enrolled++
	b.SetState(to)
	return nil
}

func (s bookingStore) ReleaseWithSeat(_ context.Context, b *models.Booking, to lifecycle.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.update(b, to, nil); err != nil {
		return err
	}
	if c := s.classes[b.ClassID]; c != nil && c.Enrolled > 0 {
		c.Enrolled--
	}
	b.SetState(to)
	return nil
}

func (s bookingStore) ListAwaitingCapture(ctx context.Context, classID int64) ([]models.Booking, error) {
	return s.List(ctx, models.BookingFilter{ClassID: &classID, PaymentStatus: "pending", Status: "confirmed"})
}

func (s bookingStore) ListAbandonedHolds(ctx context.Context, before time.Time) ([]models.Booking, error) {
	return s.List(ctx, models.BookingFilter{PaymentStatus: "pending", Status: "pending", To: &before})
}

func (s bookingStore) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if ok && b.Status == lifecycle.BookingConfirmed {
		s.classes[b.ClassID].Enrolled--
	}
	delete(s.bookings, id)
	return ok, nil
}

// fakeProcessor mimics the processor's hold state machine
type fakeProcessor struct {
	mu         sync.Mutex
	configured bool
	holds      map[string]*external.Hold
	refunds    []external.RefundRequest
	calls      []string
	refundStat string
	failCreate error
	page       *external.PaymentPage
	lastLimit  int
	seq        int
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{configured: true, holds: map[string]*external.Hold{}, refundStat: external.RefundSucceeded}
}

func (p *fakeProcessor) Configured() bool { return p.configured }

func (p *fakeProcessor) record(call string) {
	p.calls = append(p.calls, call)
}

// setStatus simulates the customer's out-of-band card entry
func (p *fakeProcessor) setStatus(ref, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.holds[ref].Status = status
}

func (p *fakeProcessor) hold(ref string) external.Hold {
	p.mu.Lock()
	defer p.mu.Unlock()
	return *p.holds[ref]
}

func unexpectedState(op, status string) error {
	return &apperrors.ProcessorError{
		Op:      op,
		Code:    "payment_intent_unexpected_state",
		Message: fmt.Sprintf("This PaymentIntent's status is %s.", status),
	}
}

func (p *fakeProcessor) CreateHold(_ context.Context, req external.HoldRequest) (*external.Hold, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("create")
	if p.failCreate != nil {
		return nil, p.failCreate
	}
	p.seq++
	ref := fmt.Sprintf("pi_%d", p.seq)
	h := &external.Hold{
		ID:           ref,
		ClientSecret: ref + "_secret",
		Status:       external.StatusRequiresPaymentMethod,
		Amount:       req.Amount,
		Currency:     req.Currency,
		Metadata:     req.Metadata,
	}
	p.holds[ref] = h
	cp := *h
	return &cp, nil
}

func (p *fakeProcessor) GetHold(_ context.Context, ref string) (*external.Hold, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("get")
	h, ok := p.holds[ref]
	if !ok {
		return nil, &apperrors.ProcessorError{Op: "retrieve hold", Code: "resource_missing", Message: "No such payment_intent"}
	}
	cp := *h
	return &cp, nil
}

func (p *fakeProcessor) CaptureHold(_ context.Context, ref string) (*external.Hold, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("capture")
	h := p.holds[ref]
	if h.Status != external.StatusRequiresCapture {
		return nil, unexpectedState("capture hold", h.Status)
	}
	h.Status = external.StatusSucceeded
	h.AmountReceived = h.Amount
	cp := *h
	return &cp, nil
}

func (p *fakeProcessor) CancelHold(_ context.Context, ref, _ string) (*external.Hold, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("cancel")
	h := p.holds[ref]
	if h.Status == external.StatusCanceled || h.Status == external.StatusSucceeded {
		return nil, unexpectedState("cancel hold", h.Status)
	}
	h.Status = external.StatusCanceled
	cp := *h
	return &cp, nil
}

func (p *fakeProcessor) Refund(_ context.Context, req external.RefundRequest) (*external.Refund, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("refund")
	p.refunds = append(p.refunds, req)
	h := p.holds[req.PaymentRef]
	amount := h.AmountReceived
	if req.Amount != nil {
		amount = *req.Amount
	}
	return &external.Refund{ID: "re_1", PaymentRef: req.PaymentRef, Amount: amount, Currency: h.Currency, Status: p.refundStat}, nil
}

func (p *fakeProcessor) ListPayments(_ context.Context, _ string, limit int) (*external.PaymentPage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("list")
	p.lastLimit = limit
	if p.page == nil {
		return &external.PaymentPage{}, nil
	}
	return p.page, nil
}

type published struct {
	subject string
	data    interface{}
}

type fakeBus struct {
	mu   sync.Mutex
	msgs []published
	fail bool
}

func (b *fakeBus) Publish(subject string, data interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errors.New("bus down")
	}
	b.msgs = append(b.msgs, published{subject, data})
	return nil
}

func (b *fakeBus) subjects() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.msgs))
	for i, m := range b.msgs {
		out[i] = m.subject
	}
	return out
}

type fixture struct {
	store     *memStore
	processor *fakeProcessor
	bus       *fakeBus
	services  *Services
}

func newFixture() *fixture {
	store := newMemStore()
	processor := newFakeProcessor()
	bus := &fakeBus{}

	services := NewServices(Dependencies{
		Classes:   classStore{store},
		Students:  studentStore{store},
		Bookings:  bookingStore{store},
		Processor: processor,
		Events:    bus,
		Currency:  "usd",
	})

	return &fixture{store: store, processor: processor, bus: bus, services: services}
}
