package external

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	apperrors "cocinarte/internal/errors"
	"cocinarte/internal/logger"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/refund"
)

// Processor statuses the orchestrator reacts to
const (
	StatusRequiresPaymentMethod = string(stripe.PaymentIntentStatusRequiresPaymentMethod)
	StatusRequiresCapture       = string(stripe.PaymentIntentStatusRequiresCapture)
	StatusSucceeded             = string(stripe.PaymentIntentStatusSucceeded)
	StatusCanceled              = string(stripe.PaymentIntentStatusCanceled)

	RefundSucceeded = string(stripe.RefundStatusSucceeded)
)

type PaymentClient struct {
	intents    *paymentintent.Client
	refunds    *refund.Client
	configured bool
}

type PaymentConfig struct {
	SecretKey string
	// BaseURL overrides the processor API host (tests, mock servers)
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Hold is a manually captured payment authorization as seen by the processor
type Hold struct {
	ID               string
	ClientSecret     string
	Status           string
	Amount           int64
	AmountReceived   int64
	Currency         string
	LastPaymentError string
	Metadata         map[string]string
}

type HoldRequest struct {
	Amount         int64
	Currency       string
	Description    string
	ReceiptEmail   string
	IdempotencyKey string
	Metadata       map[string]string
}

type RefundRequest struct {
	PaymentRef string
	// Amount in minor units; nil refunds the full captured amount
	Amount *int64
	Reason string
}

type Refund struct {
	ID         string
	PaymentRef string
	Amount     int64
	Currency   string
	Status     string
	Reason     string
	Created    int64
}

type Charge struct {
	ID             string
	Amount         int64
	AmountRefunded int64
	Refunded       bool
	Fee            int64
	Net            int64
	ReceiptURL     string
	Refunds        []Refund
}

type Payment struct {
	ID           string
	Amount       int64
	Currency     string
	Status       string
	Description  string
	ReceiptEmail string
	Metadata     map[string]string
	Created      int64
	Charge       *Charge
}

type PaymentPage struct {
	Payments []Payment
	HasMore  bool
}

func NewPaymentClient(cfg PaymentConfig) *PaymentClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Get()
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     logger.Leveled{L: cfg.Logger.With("component", "payment_processor")},
	}
	if cfg.BaseURL != "" {
		backendCfg.URL = stripe.String(cfg.BaseURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)

	return &PaymentClient{
		intents:    &paymentintent.Client{B: backend, Key: cfg.SecretKey},
		refunds:    &refund.Client{B: backend, Key: cfg.SecretKey},
		configured: cfg.SecretKey != "",
	}
}

// Configured reports whether processor credentials are present
func (pc *PaymentClient) Configured() bool {
	return pc.configured
}

func (pc *PaymentClient) CreateHold(ctx context.Context, req HoldRequest) (*Hold, error) {
	if err := pc.ensureConfigured(); err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.Amount),
		Currency:      stripe.String(req.Currency),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(req.ReceiptEmail)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.Context = ctx

	pi, err := pc.intents.New(params)
	if err != nil {
		return nil, processorError("create hold", err)
	}

	return toHold(pi), nil
}

func (pc *PaymentClient) GetHold(ctx context.Context, paymentRef string) (*Hold, error) {
	if err := pc.ensureConfigured(); err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := pc.intents.Get(paymentRef, params)
	if err != nil {
		return nil, processorError("retrieve hold", err)
	}

	return toHold(pi), nil
}

func (pc *PaymentClient) CaptureHold(ctx context.Context, paymentRef string) (*Hold, error) {
	if err := pc.ensureConfigured(); err != nil {
		return nil, err
	}

	// No fixed idempotency key: a replayed first response would hide the
	// processor's error on a repeated capture.
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx

	pi, err := pc.intents.Capture(paymentRef, params)
	if err != nil {
		return nil, processorError("capture hold", err)
	}

	return toHold(pi), nil
}

// CancelHold releases the funds. Reasons the processor does not know are dropped.
func (pc *PaymentClient) CancelHold(ctx context.Context, paymentRef, reason string) (*Hold, error) {
	if err := pc.ensureConfigured(); err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentCancelParams{}
	switch stripe.PaymentIntentCancellationReason(reason) {
	case stripe.PaymentIntentCancellationReasonAbandoned,
		stripe.PaymentIntentCancellationReasonDuplicate,
		stripe.PaymentIntentCancellationReasonFraudulent,
		stripe.PaymentIntentCancellationReasonRequestedByCustomer:
		params.CancellationReason = stripe.String(reason)
	}
	params.Context = ctx

	pi, err := pc.intents.Cancel(paymentRef, params)
	if err != nil {
		return nil, processorError("cancel hold", err)
	}

	return toHold(pi), nil
}

func (pc *PaymentClient) Refund(ctx context.Context, req RefundRequest) (*Refund, error) {
	if err := pc.ensureConfigured(); err != nil {
		return nil, err
	}

	params := &stripe.RefundParams{PaymentIntent: stripe.String(req.PaymentRef)}
	if req.Amount != nil {
		params.Amount = stripe.Int64(*req.Amount)
	}
	switch stripe.RefundReason(req.Reason) {
	case stripe.RefundReasonDuplicate, stripe.RefundReasonFraudulent, stripe.RefundReasonRequestedByCustomer:
		params.Reason = stripe.String(req.Reason)
	case "":
	default:
		params.AddMetadata("reason", req.Reason)
	}
	params.Context = ctx

	r, err := pc.refunds.New(params)
	if err != nil {
		return nil, processorError("refund", err)
	}

	return toRefund(r), nil
}

// ListPayments returns one page of payment intents, newest first, starting after cursor
func (pc *PaymentClient) ListPayments(ctx context.Context, cursor string, limit int) (*PaymentPage, error) {
	if err := pc.ensureConfigured(); err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentListParams{}
	params.Limit = stripe.Int64(int64(limit))
	params.Single = true
	if cursor != "" {
		params.StartingAfter = stripe.String(cursor)
	}
	params.AddExpand("data.latest_charge.balance_transaction")
	params.AddExpand("data.latest_charge.refunds")
	params.Context = ctx

	page := &PaymentPage{}
	it := pc.intents.List(params)
	for it.Next() {
		page.Payments = append(page.Payments, toPayment(it.PaymentIntent()))
		if len(page.Payments) == limit {
			break
		}
	}
	if err := it.Err(); err != nil {
		return nil, processorError("list payments", err)
	}
	if meta := it.Meta(); meta != nil {
		page.HasMore = meta.HasMore
	}

	return page, nil
}

func (pc *PaymentClient) ensureConfigured() error {
	if !pc.configured {
		return apperrors.Configuration("payment processor secret key is not set")
	}
	return nil
}

func processorError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return &apperrors.ProcessorError{Op: op, Code: string(stripeErr.Code), Message: stripeErr.Msg, Err: err}
	}
	return &apperrors.ProcessorError{Op: op, Message: err.Error(), Err: err}
}

func toHold(pi *stripe.PaymentIntent) *Hold {
	hold := &Hold{
		ID:             pi.ID,
		ClientSecret:   pi.ClientSecret,
		Status:         string(pi.Status),
		Amount:         pi.Amount,
		AmountReceived: pi.AmountReceived,
		Currency:       string(pi.Currency),
		Metadata:       pi.Metadata,
	}
	if pi.LastPaymentError != nil {
		hold.LastPaymentError = pi.LastPaymentError.Msg
		if hold.LastPaymentError == "" {
			hold.LastPaymentError = string(pi.LastPaymentError.Code)
		}
	}
	return hold
}

func toRefund(r *stripe.Refund) *Refund {
	out := &Refund{
		ID:       r.ID,
		Amount:   r.Amount,
		Currency: string(r.Currency),
		Status:   string(r.Status),
		Reason:   string(r.Reason),
		Created:  r.Created,
	}
	if r.PaymentIntent != nil {
		out.PaymentRef = r.PaymentIntent.ID
	}
	return out
}

func toPayment(pi *stripe.PaymentIntent) Payment {
	p := Payment{
		ID:           pi.ID,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
		Description:  pi.Description,
		ReceiptEmail: pi.ReceiptEmail,
		Metadata:     pi.Metadata,
		Created:      pi.Created,
	}

	if ch := pi.LatestCharge; ch != nil {
		charge := &Charge{
			ID:             ch.ID,
			Amount:         ch.Amount,
			AmountRefunded: ch.AmountRefunded,
			Refunded:       ch.Refunded,
			ReceiptURL:     ch.ReceiptURL,
		}
		if bt := ch.BalanceTransaction; bt != nil {
			charge.Fee = bt.Fee
			charge.Net = bt.Net
		}
		if ch.Refunds != nil {
			for _, r := range ch.Refunds.Data {
				charge.Refunds = append(charge.Refunds, *toRefund(r))
			}
		}
		p.Charge = charge
	}

	return p
}
