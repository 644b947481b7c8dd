package repository

import (
	"context"
	"strings"

	"cocinarte/internal/database"
	"cocinarte/internal/models"
)

// AdminRepository reads and writes the dashboard allow-list table
type AdminRepository struct {
	db *database.DB
}

func NewAdminRepository(db *database.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) Exists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM admins WHERE lower(email) = lower($1))`,
		strings.TrimSpace(email),
	).Scan(&exists)
	return exists, err
}

func (r *AdminRepository) Add(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO admins (email) VALUES (lower($1)) ON CONFLICT (email) DO NOTHING`,
		strings.TrimSpace(email),
	)
	return err
}

func (r *AdminRepository) List(ctx context.Context) ([]models.Admin, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, email, created_at FROM admins ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var admins []models.Admin
	for rows.Next() {
		var admin models.Admin
		if err := rows.Scan(&admin.ID, &admin.Email, &admin.CreatedAt); err != nil {
			return nil, err
		}
		admins = append(admins, admin)
	}

	return admins, rows.Err()
}
