package main

import (
	"context"
	"fmt"
	"strings"

	"cocinarte/internal/app"
	apperrors "cocinarte/internal/errors"
	"cocinarte/internal/models"
	"cocinarte/internal/service"
)

// Operator is what the commands can do
type Operator interface {
	CancelHold(ctx context.Context, paymentRef, reason string) (*models.CancelHoldResponse, error)
	Capture(ctx context.Context, paymentRef string) (*models.CaptureHoldResponse, error)
	Reconcile(ctx context.Context, paymentRef string) (*models.Booking, error)
	SettleClass(ctx context.Context, classID int64) (*service.SettlementResult, error)
	Reindex(ctx context.Context) (int, error)
	GrantAdmin(ctx context.Context, email string) error
	ListAdmins(ctx context.Context) ([]models.Admin, error)
}

type appOperator struct {
	app *app.App
}

func (o *appOperator) CancelHold(ctx context.Context, paymentRef, reason string) (*models.CancelHoldResponse, error) {
	return o.app.Services.Payments.Cancel(ctx, paymentRef, reason)
}

func (o *appOperator) Capture(ctx context.Context, paymentRef string) (*models.CaptureHoldResponse, error) {
	return o.app.Services.Payments.Capture(ctx, paymentRef)
}

func (o *appOperator) Reconcile(ctx context.Context, paymentRef string) (*models.Booking, error) {
	return o.app.Services.Payments.Reconcile(ctx, paymentRef)
}

func (o *appOperator) SettleClass(ctx context.Context, classID int64) (*service.SettlementResult, error) {
	return o.app.Services.Settlement.SettleClass(ctx, classID)
}

// Reindex rebuilds the search index from the classes table
func (o *appOperator) Reindex(ctx context.Context) (int, error) {
	if o.app.Search == nil {
		return 0, apperrors.Configuration("class search is not configured")
	}

	classes, err := o.app.Repos.Classes.List(ctx, models.ClassFilter{})
	if err != nil {
		return 0, fmt.Errorf("failed to list classes: %w", err)
	}

	for i := range classes {
		if err := o.app.Search.IndexClass(ctx, &classes[i]); err != nil {
			return i, err
		}
	}

	if o.app.Cache != nil {
		if err := o.app.Cache.InvalidateClassLists(ctx); err != nil {
			return len(classes), err
		}
	}
	return len(classes), nil
}

func (o *appOperator) GrantAdmin(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := o.app.Repos.Admins.Add(ctx, email); err != nil {
		return err
	}
	if o.app.Cache != nil {
		return o.app.Cache.ForgetAdmin(ctx, email)
	}
	return nil
}

func (o *appOperator) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	return o.app.Repos.Admins.List(ctx)
}
