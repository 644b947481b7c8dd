package repository

import (
	"context"
	"database/sql"
	"errors"

	"cocinarte/internal/database"
	"cocinarte/internal/models"
)

type StudentRepository struct {
	db *database.DB
}

func NewStudentRepository(db *database.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, parent_name, child_name, child_age, email, phone, allergies, created_at, updated_at`

func scanStudent(row rowScanner, student *models.Student) error {
	return row.Scan(
		&student.ID,
		&student.ParentName,
		&student.ChildName,
		&student.ChildAge,
		&student.Email,
		&student.Phone,
		&student.Allergies,
		&student.CreatedAt,
		&student.UpdatedAt,
	)
}

func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	student := &models.Student{}
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`

	err := scanStudent(r.db.QueryRowContext(ctx, query, id), student)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return student, err
}

// FindOrCreate upserts the roster entry keyed by (email, child name) and fills in its id.
// Contact details from the latest booking win; missing optional values keep the stored ones.
func (r *StudentRepository) FindOrCreate(ctx context.Context, student *models.Student) error {
	query := `
		INSERT INTO students (parent_name, child_name, child_age, email, phone, allergies)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email, child_name) DO UPDATE
		SET parent_name = EXCLUDED.parent_name,
		    child_age = COALESCE(EXCLUDED.child_age, students.child_age),
		    phone = COALESCE(EXCLUDED.phone, students.phone),
		    allergies = COALESCE(EXCLUDED.allergies, students.allergies),
		    updated_at = NOW()
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		student.ParentName,
		student.ChildName,
		student.ChildAge,
		student.Email,
		student.Phone,
		student.Allergies,
	).Scan(&student.ID, &student.CreatedAt, &student.UpdatedAt)
}

func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	query := `
		INSERT INTO students (parent_name, child_name, child_age, email, phone, allergies)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		student.ParentName,
		student.ChildName,
		student.ChildAge,
		student.Email,
		student.Phone,
		student.Allergies,
	).Scan(&student.ID, &student.CreatedAt, &student.UpdatedAt)
}

func (r *StudentRepository) Update(ctx context.Context, student *models.Student) (bool, error) {
	query := `
		UPDATE students
		SET parent_name = $1, child_name = $2, child_age = $3, email = $4, phone = $5, allergies = $6,
		    updated_at = NOW()
		WHERE id = $7
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		student.ParentName,
		student.ChildName,
		student.ChildAge,
		student.Email,
		student.Phone,
		student.Allergies,
		student.ID,
	).Scan(&student.CreatedAt, &student.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (r *StudentRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *StudentRepository) List(ctx context.Context, page, pageSize int) ([]models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students ORDER BY parent_name, child_name`
	var args []interface{}

	if page > 0 && pageSize > 0 {
		query += " LIMIT $1 OFFSET $2"
		args = append(args, pageSize, (page-1)*pageSize)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []models.Student
	for rows.Next() {
		var student models.Student
		if err := scanStudent(rows, &student); err != nil {
			return nil, err
		}
		students = append(students, student)
	}

	return students, rows.Err()
}
