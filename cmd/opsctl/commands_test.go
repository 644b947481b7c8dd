package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"cocinarte/internal/models"
	"cocinarte/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOperator struct {
	canceled   []string
	reason     string
	settled    int64
	granted    string
	reindexErr error
}

func (f *fakeOperator) CancelHold(_ context.Context, ref, reason string) (*models.CancelHoldResponse, error) {
	f.canceled = append(f.canceled, ref)
	f.reason = reason
	return &models.CancelHoldResponse{Status: "canceled", Canceled: true}, nil
}

func (f *fakeOperator) Capture(_ context.Context, ref string) (*models.CaptureHoldResponse, error) {
	return &models.CaptureHoldResponse{Status: "succeeded", AmountCaptured: 75, Currency: "usd"}, nil
}

func (f *fakeOperator) Reconcile(_ context.Context, ref string) (*models.Booking, error) {
	return &models.Booking{ID: 11}, nil
}

func (f *fakeOperator) SettleClass(_ context.Context, classID int64) (*service.SettlementResult, error) {
	f.settled = classID
	return &service.SettlementResult{ClassID: classID, Decision: service.DecisionCapture, Settled: 2}, nil
}

func (f *fakeOperator) Reindex(context.Context) (int, error) {
	if f.reindexErr != nil {
		return 0, f.reindexErr
	}
	return 7, nil
}

func (f *fakeOperator) GrantAdmin(_ context.Context, email string) error {
	f.granted = email
	return nil
}

func (f *fakeOperator) ListAdmins(context.Context) ([]models.Admin, error) {
	return []models.Admin{{ID: 1, Email: "chef@cocinarte.com"}}, nil
}

func execute(t *testing.T, op *fakeOperator, args ...string) (string, error) {
	t.Helper()
	closed := false
	cmd := newRootCmd(func() (Operator, func() error, error) {
		return op, func() error { closed = true; return nil }, nil
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil {
		assert.True(t, closed)
	}
	return out.String(), err
}

func TestCancelHold(t *testing.T) {
	op := &fakeOperator{}

	out, err := execute(t, op, "cancel-hold", "pi_123")
	require.NoError(t, err)
	assert.Equal(t, []string{"pi_123"}, op.canceled)
	assert.Equal(t, "abandoned", op.reason)

	var resp models.CancelHoldResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Canceled)

	_, err = execute(t, op, "cancel-hold", "pi_456", "--reason", "requested_by_customer")
	require.NoError(t, err)
	assert.Equal(t, "requested_by_customer", op.reason)
}

func TestSettleRequiresClass(t *testing.T) {
	op := &fakeOperator{}

	_, err := execute(t, op, "settle")
	assert.Error(t, err)

	out, err := execute(t, op, "settle", "--class", "3")
	require.NoError(t, err)
	assert.Equal(t, int64(3), op.settled)
	assert.Contains(t, out, `"decision": "capture"`)
}

func TestGrantAdminValidatesEmail(t *testing.T) {
	op := &fakeOperator{}

	_, err := execute(t, op, "grant-admin", "not-an-email")
	assert.Error(t, err)
	assert.Empty(t, op.granted)

	_, err = execute(t, op, "grant-admin", "chef@cocinarte.com")
	require.NoError(t, err)
	assert.Equal(t, "chef@cocinarte.com", op.granted)
}

func TestReindex(t *testing.T) {
	out, err := execute(t, &fakeOperator{}, "reindex")
	require.NoError(t, err)
	assert.Contains(t, out, `"indexed": 7`)

	_, err = execute(t, &fakeOperator{reindexErr: errors.New("es down")}, "reindex")
	assert.EqualError(t, err, "es down")
}

func TestConnectFailure(t *testing.T) {
	cmd := newRootCmd(func() (Operator, func() error, error) {
		return nil, nil, errors.New("db down")
	})
	cmd.SetArgs([]string{"capture", "pi_1"})
	cmd.SetOut(&bytes.Buffer{})
	assert.ErrorContains(t, cmd.Execute(), "db down")
}

func TestValidateUnreachableAPI(t *testing.T) {
	out, err := execute(t, &fakeOperator{}, "validate", "--base-url", "http://127.0.0.1:1")
	assert.Error(t, err)
	assert.Contains(t, out, `"passed": false`)
}

func TestListAdminsPrintsJSON(t *testing.T) {
	out, err := execute(t, &fakeOperator{}, "list-admins")
	require.NoError(t, err)

	var admins []models.Admin
	require.NoError(t, json.Unmarshal([]byte(out), &admins))
	require.Len(t, admins, 1)
	assert.Equal(t, "chef@cocinarte.com", admins[0].Email)
}
