// Package validation smoke-tests a running API against its public contract
// without opening real holds.
package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ContractValidator checks status codes and error bodies of a deployed API
type ContractValidator struct {
	baseURL string
	client  *http.Client
}

func NewContractValidator(baseURL string, client *http.Client) *ContractValidator {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ContractValidator{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type check struct {
	name       string
	method     string
	path       string
	body       string
	wantStatus int
	// wantError requires an {"error": "..."} body
	wantError bool
}

var checks = []check{
	{name: "health", method: http.MethodGet, path: "/health", wantStatus: http.StatusOK},
	{name: "catalog", method: http.MethodGet, path: "/api/classes", wantStatus: http.StatusOK},
	{name: "unknown class", method: http.MethodGet, path: "/api/classes/9223372036854775807", wantStatus: http.StatusNotFound, wantError: true},
	{name: "malformed class id", method: http.MethodGet, path: "/api/classes/abc", wantStatus: http.StatusBadRequest, wantError: true},
	{name: "hold without body", method: http.MethodPost, path: "/api/payments/holds", body: `{`, wantStatus: http.StatusBadRequest, wantError: true},
	{name: "verify without reference", method: http.MethodPost, path: "/api/payments/holds/verify", body: `{}`, wantStatus: http.StatusBadRequest, wantError: true},
	{name: "cancel without reference", method: http.MethodPost, path: "/api/payments/holds/cancel", body: `{}`, wantStatus: http.StatusBadRequest, wantError: true},
	{name: "refund unauthenticated", method: http.MethodPost, path: "/api/payments/refunds", body: `{"paymentIntentId":"pi_x"}`, wantStatus: http.StatusUnauthorized, wantError: true},
	{name: "admin payments unauthenticated", method: http.MethodGet, path: "/api/admin/payments", wantStatus: http.StatusUnauthorized, wantError: true},
	{name: "my bookings unauthenticated", method: http.MethodGet, path: "/api/me/bookings", wantStatus: http.StatusUnauthorized, wantError: true},
}

// Result of one check
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// ValidateAll runs every check and returns the results; err is set when any failed
func (v *ContractValidator) ValidateAll(ctx context.Context) ([]Result, error) {
	slog.Info("Validating API contract", "base_url", v.baseURL)

	results := make([]Result, 0, len(checks))
	failed := 0
	for _, c := range checks {
		r := Result{Name: c.name, Passed: true}
		if err := v.run(ctx, c); err != nil {
			r.Passed = false
			r.Detail = err.Error()
			failed++
		}
		results = append(results, r)
	}

	if failed > 0 {
		return results, fmt.Errorf("%d of %d contract checks failed", failed, len(checks))
	}
	return results, nil
}

func (v *ContractValidator) run(ctx context.Context, c check) error {
	var body io.Reader
	if c.body != "" {
		body = bytes.NewBufferString(c.body)
	}

	req, err := http.NewRequestWithContext(ctx, c.method, v.baseURL+c.path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", c.method, c.path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != c.wantStatus {
		return fmt.Errorf("%s %s: expected %d, got %d", c.method, c.path, c.wantStatus, resp.StatusCode)
	}

	if c.wantError {
		var payload map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return fmt.Errorf("%s %s: failed to decode error body: %w", c.method, c.path, err)
		}
		if msg, ok := payload["error"].(string); !ok || msg == "" {
			return fmt.Errorf("%s %s: expected a non-empty \"error\" field", c.method, c.path)
		}
	}

	return nil
}
