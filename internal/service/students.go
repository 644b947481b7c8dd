package service

import (
	"context"
	"fmt"
	"strings"

	apperrors "cocinarte/internal/errors"
	"cocinarte/internal/models"
)

type StudentService struct {
	students StudentStore
}

func NewStudentService(students StudentStore) *StudentService {
	return &StudentService{students: students}
}

func (s *StudentService) List(ctx context.Context, page, pageSize int) ([]models.Student, error) {
	students, err := s.students.List(ctx, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	if students == nil {
		students = []models.Student{}
	}
	return students, nil
}

func (s *StudentService) Get(ctx context.Context, id int64) (*models.Student, error) {
	student, err := s.students.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if student == nil {
		return nil, apperrors.NotFound("student", id)
	}
	return student, nil
}

func (s *StudentService) Create(ctx context.Context, req *models.StudentRequest) (*models.Student, error) {
	student, err := studentFromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, fmt.Errorf("failed to create student: %w", err)
	}
	return student, nil
}

func (s *StudentService) Update(ctx context.Context, id int64, req *models.StudentRequest) (*models.Student, error) {
	student, err := studentFromRequest(req)
	if err != nil {
		return nil, err
	}
	student.ID = id

	updated, err := s.students.Update(ctx, student)
	if err != nil {
		return nil, fmt.Errorf("failed to update student: %w", err)
	}
	if !updated {
		return nil, apperrors.NotFound("student", id)
	}
	return student, nil
}

func (s *StudentService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.students.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}
	if !deleted {
		return apperrors.NotFound("student", id)
	}
	return nil
}

func studentFromRequest(req *models.StudentRequest) (*models.Student, error) {
	if req == nil {
		return nil, apperrors.Validation("", "request body is required")
	}
	if strings.TrimSpace(req.ParentName) == "" {
		return nil, apperrors.Validation("parentName", "is required")
	}
	if strings.TrimSpace(req.ChildName) == "" {
		return nil, apperrors.Validation("childName", "is required")
	}
	if strings.TrimSpace(req.Email) == "" {
		return nil, apperrors.Validation("email", "is required")
	}
	if req.ChildAge != nil && (*req.ChildAge < 0 || *req.ChildAge > 18) {
		return nil, apperrors.Validation("childAge", "must be between 0 and 18")
	}

	return &models.Student{
		ParentName: strings.TrimSpace(req.ParentName),
		ChildName:  strings.TrimSpace(req.ChildName),
		ChildAge:   req.ChildAge,
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:      req.Phone,
		Allergies:  req.Allergies,
	}, nil
}
