// Package apiclient is the HTTP implementation of the workflow client. It
// speaks the standard response envelope and maps HTTP statuses back onto
// failure kinds, so the session sees the same taxonomy on both sides of the
// wire.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reservely/internal/bookings"
	"reservely/internal/cancellation"
	"reservely/internal/seats"
	"reservely/internal/settings"
	"reservely/internal/shared/faults"
)

// transientRetries is how many times a transient failure is retried before
// it is surfaced. Validation, auth, not-found and conflict responses are
// never retried.
const transientRetries = 2

// Client calls the reservation API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	backoff    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithRetryBackoff sets the base delay between transient retries.
func WithRetryBackoff(backoff time.Duration) Option {
	return func(c *Client) { c.backoff = backoff }
}

// New creates a client against a base URL like "https://host/api/v1".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		backoff:    500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the standard API response wrapper.
type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Errors     json.RawMessage `json:"errors"`
}

func (c *Client) FetchSettings(ctx context.Context) (*settings.EventSettings, error) {
	var out settings.EventSettings
	if err := c.call(ctx, http.MethodGet, "/settings", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FetchSeats(ctx context.Context, date string) (*seats.Inventory, error) {
	var out seats.Inventory
	path := "/bookings/seats/" + url.PathEscape(date)
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) InitiateReservation(ctx context.Context, req *bookings.InitiateRequest) (*bookings.InitiationOutcome, error) {
	var out bookings.InitiationOutcome
	if err := c.call(ctx, http.MethodPost, "/bookings/initiate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) VerifyReservation(ctx context.Context, req *bookings.VerifyRequest) (*bookings.TicketResponse, error) {
	var out bookings.TicketResponse
	if err := c.call(ctx, http.MethodPost, "/bookings/verify", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ResendCode(ctx context.Context, req *bookings.ResendRequest) (*bookings.ResendResponse, error) {
	var out bookings.ResendResponse
	if err := c.call(ctx, http.MethodPost, "/bookings/resend-otp", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelReservation(ctx context.Context, req *cancellation.CancelRequest) (*cancellation.CancelResponse, error) {
	var out cancellation.CancelResponse
	if err := c.call(ctx, http.MethodPost, "/bookings/cancel", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// call performs one logical request, retrying transient failures with a
// bounded linear backoff.
func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= transientRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * c.backoff):
			case <-ctx.Done():
				return faults.Wrap(faults.KindTransient, "request cancelled", ctx.Err())
			}
		}

		err := c.do(ctx, method, path, body, out)
		if err == nil {
			return nil
		}
		if faults.KindOf(err) != faults.KindTransient {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return faults.Wrap(faults.KindValidation, "failed to encode request", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return faults.Wrap(faults.KindValidation, "failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return faults.Wrap(faults.KindTransient, "request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return faults.Wrap(faults.KindTransient, "failed to read response", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return faults.Wrap(faults.KindTransient, "malformed response envelope", err)
		}
		return faults.New(faults.FromHTTPStatus(resp.StatusCode),
			fmt.Sprintf("request failed with status %d", resp.StatusCode))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := env.Message
		if message == "" {
			message = fmt.Sprintf("request failed with status %d", resp.StatusCode)
		}
		return faults.New(faults.FromHTTPStatus(resp.StatusCode), message)
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return faults.Wrap(faults.KindTransient, "failed to decode response data", err)
	}
	return nil
}
