package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "cocinarte/internal/errors"
	"cocinarte/internal/lifecycle"
	"cocinarte/internal/logger"
	"cocinarte/internal/models"
	"cocinarte/internal/repository"
)

const (
	dateLayout      = "2006-01-02"
	timeLayout      = "15:04"
	defaultDuration = 90
)

type ClassService struct {
	classes  ClassStore
	bookings BookingStore
	cache   ClassListCache
	index   ClassIndex
	events  EventPublisher
	now     func() time.Time
}

func NewClassService(classes ClassStore, bookings BookingStore, cache ClassListCache, index ClassIndex, events EventPublisher) *ClassService {
	return &ClassService{
		classes:  classes,
		bookings: bookings,
		cache:   cache,
		index:   index,
		events:  events,
		now:     time.Now,
	}
}

// ListUpcoming returns the public catalog. Without a lower bound only classes from today on are listed.
func (s *ClassService) ListUpcoming(ctx context.Context, filter models.ClassFilter) ([]models.ListClassesResponseItem, error) {
	if filter.From == nil {
		today := s.now().Truncate(24 * time.Hour)
		filter.From = &today
	}

	key := classListKey(filter)
	if s.cache != nil {
		if items, ok := s.cache.GetClassList(ctx, key); ok {
			return items, nil
		}
	}

	classes, err := s.classes.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}

	items := make([]models.ListClassesResponseItem, len(classes))
	for i := range classes {
		items[i] = toListItem(&classes[i])
	}

	if s.cache != nil {
		if err := s.cache.SetClassList(ctx, key, items); err != nil {
			logger.WithContext(ctx).Warn("Failed to cache class list", "error", err, "key", key)
		}
	}

	return items, nil
}

// ListAll is the administrator view including past classes
func (s *ClassService) ListAll(ctx context.Context, filter models.ClassFilter) ([]models.ClassSession, error) {
	classes, err := s.classes.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	if classes == nil {
		classes = []models.ClassSession{}
	}
	return classes, nil
}

func (s *ClassService) Get(ctx context.Context, id int64) (*models.ClassSession, error) {
	class, err := s.classes.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get class: %w", err)
	}
	if class == nil {
		return nil, apperrors.NotFound("class", id)
	}
	return class, nil
}

// Search runs a free-text query against the class index and loads matches from the store
func (s *ClassService) Search(ctx context.Context, query string, page, pageSize int) ([]models.ListClassesResponseItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.Validation("query", "is required")
	}
	if s.index == nil {
		return nil, apperrors.Configuration("class search index is not configured")
	}

	ids, err := s.index.SearchClasses(ctx, query, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to search classes: %w", err)
	}

	items := make([]models.ListClassesResponseItem, 0, len(ids))
	for _, id := range ids {
		class, err := s.classes.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get class: %w", err)
		}
		// index may lag behind a delete
		if class == nil {
			continue
		}
		items = append(items, toListItem(class))
	}

	return items, nil
}

func (s *ClassService) Create(ctx context.Context, req *models.ClassRequest) (*models.ClassSession, error) {
	class, err := classFromRequest(req)
	if err != nil {
		return nil, err
	}

	if err := s.classes.Create(ctx, class); err != nil {
		return nil, fmt.Errorf("failed to create class: %w", err)
	}

	s.changed(ctx, class.ID, false)
	return class, nil
}

func (s *ClassService) Update(ctx context.Context, id int64, req *models.ClassRequest) (*models.ClassSession, error) {
	class, err := classFromRequest(req)
	if err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	class.ID = existing.ID
	class.CreatedAt = existing.CreatedAt

	err = s.classes.Update(ctx, class)
	if errors.Is(err, repository.ErrCapacityBelowEnrollment) {
		return nil, apperrors.Validation("maxCapacity", fmt.Sprintf("cannot be below current enrollment (%d)", existing.Enrolled))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update class: %w", err)
	}

	s.changed(ctx, class.ID, false)
	return class, nil
}

// Delete removes a class. Open holds must be canceled first and the remaining
// bookings removed, so no processor authorization loses its local record.
func (s *ClassService) Delete(ctx context.Context, id int64) error {
	pending, err := s.bookings.List(ctx, models.BookingFilter{ClassID: &id, PaymentStatus: string(lifecycle.PaymentPending)})
	if err != nil {
		return fmt.Errorf("failed to list class bookings: %w", err)
	}
	for _, booking := range pending {
		if booking.PaymentRef() != "" {
			return &apperrors.InvalidTransitionError{
				BookingID: booking.ID,
				Err:       fmt.Errorf("payment hold %s on class %d is still open, cancel it first", booking.PaymentRef(), id),
			}
		}
	}

	deleted, err := s.classes.Delete(ctx, id)
	if errors.Is(err, repository.ErrClassHasBookings) {
		return apperrors.Validation("id", "class still has bookings, delete them first")
	}
	if err != nil {
		return fmt.Errorf("failed to delete class: %w", err)
	}
	if !deleted {
		return apperrors.NotFound("class", id)
	}

	s.changed(ctx, id, true)
	return nil
}

func (s *ClassService) changed(ctx context.Context, classID int64, deleted bool) {
	if s.cache != nil {
		if err := s.cache.InvalidateClassLists(ctx); err != nil {
			logger.WithContext(ctx).Warn("Failed to invalidate class list cache", "error", err)
		}
	}
	classChanged(ctx, s.events, classID, deleted)
}

func classFromRequest(req *models.ClassRequest) (*models.ClassSession, error) {
	if req == nil {
		return nil, apperrors.Validation("", "request body is required")
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperrors.Validation("title", "is required")
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, apperrors.Validation("date", "must be YYYY-MM-DD")
	}
	if _, err := time.Parse(timeLayout, req.Time); err != nil {
		return nil, apperrors.Validation("time", "must be HH:MM")
	}

	switch {
	case req.MaxCapacity <= 0:
		return nil, apperrors.Validation("maxCapacity", "must be greater than zero")
	case req.MinEnrollment < 0 || req.MinEnrollment > req.MaxCapacity:
		return nil, apperrors.Validation("minEnrollment", "must be between 0 and maxCapacity")
	case req.Price.IsNegative():
		return nil, apperrors.Validation("price", "must not be negative")
	case req.DurationMinutes < 0:
		return nil, apperrors.Validation("durationMinutes", "must not be negative")
	}

	duration := req.DurationMinutes
	if duration == 0 {
		duration = defaultDuration
	}

	return &models.ClassSession{
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		Date:            date,
		StartTime:       req.Time,
		DurationMinutes: duration,
		Price:           req.Price.Round(2),
		MinEnrollment:   req.MinEnrollment,
		MaxCapacity:     req.MaxCapacity,
		ImageURL:        req.ImageURL,
	}, nil
}

func toListItem(c *models.ClassSession) models.ListClassesResponseItem {
	return models.ListClassesResponseItem{
		ID:              c.ID,
		Title:           c.Title,
		Date:            c.Date.Format(dateLayout),
		Time:            c.StartTime,
		DurationMinutes: c.DurationMinutes,
		Price:           c.Price.InexactFloat64(),
		SpotsLeft:       c.SpotsLeft(),
		ImageURL:        c.ImageURL,
	}
}

func classListKey(f models.ClassFilter) string {
	format := func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.Format(dateLayout)
	}
	return fmt.Sprintf("%s:%s:%d:%d", format(f.From), format(f.To), f.Page, f.PageSize)
}

