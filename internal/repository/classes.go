package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cocinarte/internal/database"
	"cocinarte/internal/models"

	"github.com/lib/pq"
)

const foreignKeyViolation = "23503"

type ClassRepository struct {
	db *database.DB
}

func NewClassRepository(db *database.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classColumns = `id, title, description, class_date, start_time, duration_minutes, price,
		       min_enrollment, max_capacity, enrolled, image_url, created_at, updated_at`

func scanClass(row rowScanner, class *models.ClassSession) error {
	return row.Scan(
		&class.ID,
		&class.Title,
		&class.Description,
		&class.Date,
		&class.StartTime,
		&class.DurationMinutes,
		&class.Price,
		&class.MinEnrollment,
		&class.MaxCapacity,
		&class.Enrolled,
		&class.ImageURL,
		&class.CreatedAt,
		&class.UpdatedAt,
	)
}

func (r *ClassRepository) Create(ctx context.Context, class *models.ClassSession) error {
	query := `
		INSERT INTO classes (title, description, class_date, start_time, duration_minutes, price,
		                     min_enrollment, max_capacity, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, enrolled, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		class.Title,
		class.Description,
		class.Date,
		class.StartTime,
		class.DurationMinutes,
		class.Price,
		class.MinEnrollment,
		class.MaxCapacity,
		class.ImageURL,
	).Scan(&class.ID, &class.Enrolled, &class.CreatedAt, &class.UpdatedAt)
}

// GetByID returns nil, nil when the class does not exist
func (r *ClassRepository) GetByID(ctx context.Context, id int64) (*models.ClassSession, error) {
	class := &models.ClassSession{}
	query := `SELECT ` + classColumns + ` FROM classes WHERE id = $1`

	err := scanClass(r.db.QueryRowContext(ctx, query, id), class)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return class, err
}

func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassSession, error) {
	var args []interface{}
	argIndex := 1

	query := `SELECT ` + classColumns + ` FROM classes WHERE 1=1`

	if filter.From != nil {
		query += fmt.Sprintf(" AND class_date >= $%d", argIndex)
		args = append(args, *filter.From)
		argIndex++
	}

	if filter.To != nil {
		query += fmt.Sprintf(" AND class_date <= $%d", argIndex)
		args = append(args, *filter.To)
		argIndex++
	}

	query += " ORDER BY class_date, start_time, id"

	if filter.Page > 0 && filter.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	}

	return r.query(ctx, query, args...)
}

// ListStartingBetween returns classes whose date falls inside [from, to]
func (r *ClassRepository) ListStartingBetween(ctx context.Context, from, to time.Time) ([]models.ClassSession, error) {
	query := `SELECT ` + classColumns + `
		FROM classes
		WHERE class_date >= $1::date AND class_date <= $2::date
		ORDER BY class_date, start_time`

	return r.query(ctx, query, from, to)
}

func (r *ClassRepository) Update(ctx context.Context, class *models.ClassSession) error {
	query := `
		UPDATE classes
		SET title = $1, description = $2, class_date = $3, start_time = $4, duration_minutes = $5,
		    price = $6, min_enrollment = $7, max_capacity = $8, image_url = $9, updated_at = NOW()
		WHERE id = $10 AND enrolled <= $8
		RETURNING enrolled, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		class.Title,
		class.Description,
		class.Date,
		class.StartTime,
		class.DurationMinutes,
		class.Price,
		class.MinEnrollment,
		class.MaxCapacity,
		class.ImageURL,
		class.ID,
	).Scan(&class.Enrolled, &class.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return ErrCapacityBelowEnrollment
	}
	return err
}

func (r *ClassRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
		return false, ErrClassHasBookings
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *ClassRepository) query(ctx context.Context, query string, args ...interface{}) ([]models.ClassSession, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var classes []models.ClassSession
	for rows.Next() {
		var class models.ClassSession
		if err := scanClass(rows, &class); err != nil {
			return nil, err
		}
		classes = append(classes, class)
	}

	return classes, rows.Err()
}
