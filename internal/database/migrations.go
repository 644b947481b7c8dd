package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createClassesTable,
		createStudentsTable,
		createBookingsTable,
		createAdminsTable,
		createBookingsIndexes,
		createClassesDateIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createClassesTable = `
CREATE TABLE IF NOT EXISTS classes (
    id SERIAL PRIMARY KEY,
    title VARCHAR(255) NOT NULL,
    description TEXT,
    class_date DATE NOT NULL,
    start_time VARCHAR(5) NOT NULL,
    duration_minutes INTEGER NOT NULL DEFAULT 90,
    price DECIMAL(10,2) NOT NULL DEFAULT 0,
    min_enrollment INTEGER NOT NULL DEFAULT 0,
    max_capacity INTEGER NOT NULL,
    enrolled INTEGER NOT NULL DEFAULT 0,
    image_url TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (min_enrollment >= 0),
    CHECK (max_capacity > 0),
    CHECK (enrolled >= 0 AND enrolled <= max_capacity)
);`

const createStudentsTable = `
CREATE TABLE IF NOT EXISTS students (
    id SERIAL PRIMARY KEY,
    parent_name VARCHAR(255) NOT NULL,
    child_name VARCHAR(255) NOT NULL,
    child_age INTEGER,
    email VARCHAR(255) NOT NULL,
    phone VARCHAR(50),
    allergies TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    UNIQUE(email, child_name)
);`

const createBookingsTable = `
CREATE TABLE IF NOT EXISTS bookings (
    id SERIAL PRIMARY KEY,
    class_id INTEGER NOT NULL REFERENCES classes(id) ON DELETE RESTRICT,
    student_id INTEGER NOT NULL REFERENCES students(id),
    amount DECIMAL(10,2) NOT NULL,
    currency VARCHAR(3) NOT NULL DEFAULT 'usd',
    payment_status VARCHAR(20) NOT NULL DEFAULT 'pending',
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    payment_intent_id VARCHAR(255) UNIQUE,
    notes TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (payment_status IN ('pending', 'completed', 'failed', 'refunded')),
    CHECK (status IN ('pending', 'confirmed', 'cancelled', 'completed')),
    CHECK (payment_status <> 'completed' OR payment_intent_id IS NOT NULL)
);`

const createAdminsTable = `
CREATE TABLE IF NOT EXISTS admins (
    id SERIAL PRIMARY KEY,
    email VARCHAR(255) UNIQUE NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createBookingsIndexes = `
CREATE INDEX IF NOT EXISTS bookings_class_id_idx ON bookings (class_id);
CREATE INDEX IF NOT EXISTS bookings_student_id_idx ON bookings (student_id);
CREATE INDEX IF NOT EXISTS bookings_created_at_idx ON bookings (created_at);`

const createClassesDateIndex = `
CREATE INDEX IF NOT EXISTS classes_class_date_idx ON classes (class_date);`
