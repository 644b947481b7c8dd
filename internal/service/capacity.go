package service

import (
	"context"
	"fmt"

	apperrors "cocinarte/internal/errors"
	"cocinarte/internal/models"
)

// CapacityGate rejects new holds for classes that are already full. It reads
// the class once and has no side effects; the seat itself is taken when the
// hold is verified.
type CapacityGate struct {
	classes ClassStore
}

func NewCapacityGate(classes ClassStore) *CapacityGate {
	return &CapacityGate{classes: classes}
}

func (g *CapacityGate) Check(ctx context.Context, classID int64) (*models.ClassSession, error) {
	class, err := g.classes.GetByID(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to get class: %w", err)
	}
	if class == nil {
		return nil, apperrors.NotFound("class", classID)
	}

	if !class.HasSpace() {
		return nil, &apperrors.CapacityExceededError{ClassID: class.ID, MaxCapacity: class.MaxCapacity}
	}

	return class, nil
}
