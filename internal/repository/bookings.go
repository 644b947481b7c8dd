package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cocinarte/internal/database"
	"cocinarte/internal/lifecycle"
	"cocinarte/internal/models"
)

type BookingRepository struct {
	db *database.DB
}

func NewBookingRepository(db *database.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `b.id, b.class_id, b.student_id, b.amount, b.currency, b.payment_status, b.status,
		       b.payment_intent_id, b.notes, b.created_at, b.updated_at`

func scanBooking(row rowScanner, booking *models.Booking, extra ...any) error {
	dest := []any{
		&booking.ID,
		&booking.ClassID,
		&booking.StudentID,
		&booking.Amount,
		&booking.Currency,
		&booking.PaymentStatus,
		&booking.Status,
		&booking.PaymentIntentID,
		&booking.Notes,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

// Create inserts a booking in its initial state, without a processor reference
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	booking.SetState(lifecycle.Initial)

	query := `
		INSERT INTO bookings (class_id, student_id, amount, currency, payment_status, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		booking.ClassID,
		booking.StudentID,
		booking.Amount,
		booking.Currency,
		booking.PaymentStatus,
		booking.Status,
		booking.Notes,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	return r.getOne(ctx, `WHERE b.id = $1`, id)
}

// GetByPaymentRef retrieves a booking by the processor's payment reference
func (r *BookingRepository) GetByPaymentRef(ctx context.Context, paymentRef string) (*models.Booking, error) {
	return r.getOne(ctx, `WHERE b.payment_intent_id = $1`, paymentRef)
}

func (r *BookingRepository) getOne(ctx context.Context, where string, arg any) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `
		SELECT ` + bookingColumns + `, c.title, s.email, s.child_name
		FROM bookings b
		JOIN classes c ON c.id = b.class_id
		JOIN students s ON s.id = b.student_id
		` + where

	err := scanBooking(r.db.QueryRowContext(ctx, query, arg), booking,
		&booking.ClassTitle, &booking.CustomerEmail, &booking.ChildName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return booking, err
}

// List is the read-only lookup used by the dashboard and the customer view
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	var args []interface{}
	argIndex := 1

	query := `
		SELECT ` + bookingColumns + `, c.title, s.email, s.child_name
		FROM bookings b
		JOIN classes c ON c.id = b.class_id
		JOIN students s ON s.id = b.student_id
		WHERE 1=1`

	if filter.ClassID != nil {
		query += fmt.Sprintf(" AND b.class_id = $%d", argIndex)
		args = append(args, *filter.ClassID)
		argIndex++
	}

	if filter.StudentID != nil {
		query += fmt.Sprintf(" AND b.student_id = $%d", argIndex)
		args = append(args, *filter.StudentID)
		argIndex++
	}

	if filter.Email != "" {
		query += fmt.Sprintf(" AND lower(s.email) = lower($%d)", argIndex)
		args = append(args, filter.Email)
		argIndex++
	}

	if filter.PaymentStatus != "" {
		query += fmt.Sprintf(" AND b.payment_status = $%d", argIndex)
		args = append(args, filter.PaymentStatus)
		argIndex++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND b.status = $%d", argIndex)
		args = append(args, filter.Status)
		argIndex++
	}

	if filter.From != nil {
		query += fmt.Sprintf(" AND b.created_at >= $%d", argIndex)
		args = append(args, *filter.From)
		argIndex++
	}

	if filter.To != nil {
		query += fmt.Sprintf(" AND b.created_at < $%d", argIndex)
		args = append(args, *filter.To)
		argIndex++
	}

	query += " ORDER BY b.created_at DESC, b.id DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var booking models.Booking
		if err := scanBooking(rows, &booking, &booking.ClassTitle, &booking.CustomerEmail, &booking.ChildName); err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

// Transition writes both statuses and, when given, the processor reference in a
// single statement guarded by the state the caller read.
func (r *BookingRepository) Transition(ctx context.Context, booking *models.Booking, to lifecycle.State, paymentRef *string) error {
	if err := updateState(ctx, r.db, booking, to, paymentRef); err != nil {
		return err
	}

	applyState(booking, to, paymentRef)
	return nil
}

// ConfirmWithSeat takes a class seat and moves the booking to the given state in one
// transaction. The seat is taken only while enrolled < max_capacity.
func (r *BookingRepository) ConfirmWithSeat(ctx context.Context, booking *models.Booking, to lifecycle.State) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE classes
		SET enrolled = enrolled + 1, updated_at = NOW()
		WHERE id = $1 AND enrolled < max_capacity`, booking.ClassID)
	if err != nil {
		return fmt.Errorf("take seat: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrClassFull
	}

	if err := updateState(ctx, tx, booking, to, nil); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	applyState(booking, to, nil)
	return nil
}

// ReleaseWithSeat moves the booking to the given state and gives its seat back
func (r *BookingRepository) ReleaseWithSeat(ctx context.Context, booking *models.Booking, to lifecycle.State) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := updateState(ctx, tx, booking, to, nil); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE classes
		SET enrolled = enrolled - 1, updated_at = NOW()
		WHERE id = $1 AND enrolled > 0`, booking.ClassID); err != nil {
		return fmt.Errorf("release seat: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	applyState(booking, to, nil)
	return nil
}

// ListAwaitingCapture returns confirmed bookings of a class whose hold is not captured yet
func (r *BookingRepository) ListAwaitingCapture(ctx context.Context, classID int64) ([]models.Booking, error) {
	return r.List(ctx, models.BookingFilter{
		ClassID:       &classID,
		PaymentStatus: string(lifecycle.PaymentPending),
		Status:        string(lifecycle.BookingConfirmed),
	})
}

// ListAbandonedHolds returns bookings never verified and created before the cutoff
func (r *BookingRepository) ListAbandonedHolds(ctx context.Context, createdBefore time.Time) ([]models.Booking, error) {
	return r.List(ctx, models.BookingFilter{
		PaymentStatus: string(lifecycle.PaymentPending),
		Status:        string(lifecycle.BookingPending),
		To:            &createdBefore,
	})
}

// Delete removes a booking row; a confirmed booking gives its seat back
func (r *BookingRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var classID int64
	var status lifecycle.BookingStatus
	err = tx.QueryRowContext(ctx, `DELETE FROM bookings WHERE id = $1 RETURNING class_id, status`, id).Scan(&classID, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if status == lifecycle.BookingConfirmed {
		if _, err := tx.ExecContext(ctx, `
			UPDATE classes SET enrolled = enrolled - 1, updated_at = NOW()
			WHERE id = $1 AND enrolled > 0`, classID); err != nil {
			return false, fmt.Errorf("release seat: %w", err)
		}
	}

	return true, tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func updateState(ctx context.Context, db execer, booking *models.Booking, to lifecycle.State, paymentRef *string) error {
	from := booking.State()

	res, err := db.ExecContext(ctx, `
		UPDATE bookings
		SET payment_status = $1, status = $2, payment_intent_id = COALESCE($3, payment_intent_id), updated_at = NOW()
		WHERE id = $4 AND payment_status = $5 AND status = $6`,
		to.Payment, to.Booking, paymentRef, booking.ID, from.Payment, from.Booking)
	if err != nil {
		return fmt.Errorf("update booking state: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleBooking
	}

	return nil
}

func applyState(booking *models.Booking, to lifecycle.State, paymentRef *string) {
	booking.SetState(to)
	if paymentRef != nil {
		booking.PaymentIntentID = paymentRef
	}
	booking.UpdatedAt = time.Now()
}
