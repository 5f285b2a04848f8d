package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

var (
	ErrPaymentNotSucceeded = errors.New("payment has not succeeded")
	ErrUnknownContext      = errors.New("unknown or expired checkout context")
)

// Block-next targets accepted by the backend.
const (
	TargetFlight         = "flight"
	TargetHotel          = "hotel"
	TargetRoom           = "room"
	TargetHotelCheckout  = "hotel_checkout"
	TargetFlightCheckout = "flight_checkout"
)

type PaymentIntent struct {
	CtxID        string `json:"ctx_id"`
	ID           string `json:"paymentIntentId"`
	ClientSecret string `json:"clientSecret"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	QuoteID      string `json:"quote_id,omitempty"`
}

type Confirmation struct {
	CtxID      string `json:"ctx_id"`
	Reference  string `json:"booking_reference"`
	ReceiptURL string `json:"receipt_url,omitempty"`
	Amount     string `json:"amount,omitempty"`
	Currency   string `json:"currency,omitempty"`
	HotelName  string `json:"hotel_name,omitempty"`
	RoomName   string `json:"room_name,omitempty"`
}

type CheckoutStatus struct {
	CtxID  string `json:"ctx_id"`
	Status string `json:"status"`
	Type   string `json:"type,omitempty"`
}

// APIError carries the backend's own error text so callers can show it
// verbatim.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to the travel search and booking backend.
type Client struct {
	baseURL    string
	token      string
	userAgent  string
	httpClient *http.Client
	maxTries   uint
}

func NewClient(baseURL, token, userAgent string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		userAgent:  userAgent,
		httpClient: httpClient,
		maxTries:   4,
	}
}

// FetchResults returns the raw search payload for kind. Network errors and
// 5xx responses are retried with exponential backoff; 4xx are not.
func (c *Client) FetchResults(ctx context.Context, kind string, query url.Values) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/api/%s/search", c.baseURL, url.PathEscape(kind))
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	op := func() ([]byte, error) {
		body, err := c.do(ctx, http.MethodGet, endpoint, nil)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
			return nil, backoff.Permanent(err)
		}
		return body, err
	}

	body, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.maxTries),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s results: %w", kind, err)
	}
	return body, nil
}

// BlockNextSearch asks the backend to suppress the agent's next duplicate
// search for target. The body is empty.
func (c *Client) BlockNextSearch(ctx context.Context, target string) error {
	endpoint := fmt.Sprintf("%s/widget/%s/block_next", c.baseURL, url.PathEscape(target))
	if _, err := c.do(ctx, http.MethodPost, endpoint, nil); err != nil {
		return fmt.Errorf("failed to block next %s search: %w", target, err)
	}
	return nil
}

// CreatePaymentIntent is never retried; the gate guarantees it is called at
// most once per ctx_id.
func (c *Client) CreatePaymentIntent(ctx context.Context, flow, ctxID string) (PaymentIntent, error) {
	var intent PaymentIntent

	endpoint := fmt.Sprintf("%s/api/%s/payment/create-intent", c.baseURL, url.PathEscape(flow))
	body, err := c.do(ctx, http.MethodPost, endpoint, map[string]string{"ctx_id": ctxID})
	if err != nil {
		return intent, fmt.Errorf("failed to create payment intent: %w", classify(err))
	}
	if err := json.Unmarshal(body, &intent); err != nil {
		return intent, fmt.Errorf("failed to decode payment intent: %w", err)
	}
	intent.CtxID = ctxID
	return intent, nil
}

func (c *Client) ConfirmBooking(ctx context.Context, flow, ctxID, paymentIntentID string) (Confirmation, error) {
	var conf Confirmation

	endpoint := fmt.Sprintf("%s/api/%s/payment/confirm-booking", c.baseURL, url.PathEscape(flow))
	body, err := c.do(ctx, http.MethodPost, endpoint, map[string]string{
		"ctx_id":            ctxID,
		"payment_intent_id": paymentIntentID,
	})
	if err != nil {
		return conf, fmt.Errorf("failed to confirm booking: %w", classify(err))
	}

	var raw struct {
		Reference  string          `json:"booking_reference"`
		ReceiptURL string          `json:"receipt_url"`
		Amount     json.RawMessage `json:"amount"`
		Currency   string          `json:"currency"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return conf, fmt.Errorf("failed to decode booking confirmation: %w", err)
	}

	conf = Confirmation{
		CtxID:      ctxID,
		Reference:  raw.Reference,
		ReceiptURL: raw.ReceiptURL,
		Amount:     strings.Trim(string(raw.Amount), `"`),
		Currency:   raw.Currency,
	}
	if conf.Amount == "null" {
		conf.Amount = ""
	}
	return conf, nil
}

func (c *Client) CheckoutStatus(ctx context.Context, ctxID string) (CheckoutStatus, error) {
	var status CheckoutStatus

	endpoint := fmt.Sprintf("%s/widget/checkout/status?%s", c.baseURL, url.Values{"ctx_id": {ctxID}}.Encode())
	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return status, fmt.Errorf("failed to get checkout status: %w", err)
	}
	if err := json.Unmarshal(body, &status); err != nil {
		return status, fmt.Errorf("failed to decode checkout status: %w", err)
	}
	return status, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body, resp.Status)}
	}
	return body, nil
}

func errorMessage(body []byte, fallback string) string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return fallback
}

// classify maps backend payment errors onto the package sentinels while
// keeping the backend's message.
func classify(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.StatusCode == http.StatusNotFound || apiErr.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: %s", ErrUnknownContext, apiErr.Message)
	case apiErr.StatusCode == http.StatusBadRequest && strings.HasPrefix(apiErr.Message, "Payment not completed"):
		return fmt.Errorf("%w: %s", ErrPaymentNotSucceeded, apiErr.Message)
	}
	return err
}
