// Package apiclient talks to the donation endpoints over HTTP. It is what
// the wizard uses to reach the server.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"wisdom-empire/internal/donation"
	"wisdom-empire/internal/models"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

type envelope struct {
	Success    bool                   `json:"success"`
	Error      string                 `json:"error"`
	PaymentURL string                 `json:"paymentUrl"`
	DonationID string                 `json:"donationId"`
	Donation   *models.DonationRecord `json:"donation"`
	Tiers      []models.Tier          `json:"tiers"`
}

func (c *Client) Tiers(ctx context.Context) ([]models.Tier, error) {
	var env envelope
	if _, err := c.call(ctx, http.MethodGet, "/api/donate/tiers", nil, &env, nil); err != nil {
		return nil, err
	}
	return env.Tiers, nil
}

func (c *Client) Initiate(ctx context.Context, donor models.DonorFields, tier models.Tier, method models.PaymentMethod) (*donation.Initiation, error) {
	body := map[string]any{
		"donationData": map[string]string{
			"name":   donor.Name,
			"email":  donor.Email,
			"tier":   tier.Name,
			"amount": tier.Amount,
		},
		"paymentMethod": method,
	}
	var env envelope
	if _, err := c.call(ctx, http.MethodPost, "/api/donate/initiate", body, &env, initiateErrors); err != nil {
		return nil, err
	}
	return &donation.Initiation{DonationID: env.DonationID, PaymentURL: env.PaymentURL}, nil
}

func (c *Client) Complete(ctx context.Context, donationID, sessionID string) (*models.DonationRecord, error) {
	var env envelope
	body := map[string]string{"donationId": donationID, "sessionId": sessionID}
	if _, err := c.call(ctx, http.MethodPost, "/api/donate/complete", body, &env, completeErrors); err != nil {
		return nil, err
	}
	if env.Donation == nil {
		return nil, fmt.Errorf("complete: response without donation")
	}
	return env.Donation, nil
}

// Certificate downloads the PDF for a completed donation.
func (c *Client) Certificate(ctx context.Context, donationID string) ([]byte, error) {
	return c.call(ctx, http.MethodPost, "/api/donate/certificate", map[string]string{"donationId": donationID}, nil, certificateErrors)
}

var (
	// 500 covers catalog bugs as well as unexpected failures, so it is left
	// unmapped rather than reported as retryable.
	initiateErrors = map[int]error{
		http.StatusBadRequest: donation.ErrValidation,
		http.StatusBadGateway: donation.ErrInitiation,
	}
	completeErrors = map[int]error{
		http.StatusNotFound:        donation.ErrNotFound,
		http.StatusConflict:        donation.ErrInvalidTransition,
		http.StatusPaymentRequired: donation.ErrPaymentUnverified,
	}
	certificateErrors = map[int]error{
		http.StatusNotFound: donation.ErrNotFound,
		http.StatusConflict: donation.ErrNotCompleted,
	}
)

// call sends a JSON request. A JSON response is decoded into out; any other
// successful response body is returned raw. Non-2xx or success=false become
// errors, wrapping the sentinel mapped from the status code.
func (c *Client) call(ctx context.Context, method, path string, body any, out *envelope, statusErrors map[int]error) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	isJSON := strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json")
	var env envelope
	if isJSON {
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("%s %s: decode: %w", method, path, err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 || (isJSON && !env.Success) {
		msg := env.Error
		if msg == "" {
			msg = resp.Status
		}
		if sentinel, ok := statusErrors[resp.StatusCode]; ok {
			return nil, fmt.Errorf("%w: %s", sentinel, msg)
		}
		return nil, fmt.Errorf("%s %s: %s", method, path, msg)
	}

	if out != nil {
		*out = env
	}
	return raw, nil
}
