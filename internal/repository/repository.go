package repository

import (
	"cocinarte/internal/database"
)

type Repositories struct {
	Classes  *ClassRepository
	Students *StudentRepository
	Bookings *BookingRepository
	Admins   *AdminRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Classes:  NewClassRepository(db),
		Students: NewStudentRepository(db),
		Bookings: NewBookingRepository(db),
		Admins:   NewAdminRepository(db),
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}
