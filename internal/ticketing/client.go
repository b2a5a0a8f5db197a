package ticketing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/assistec/wpp-os-gateway/internal/domain"
)

// ErrUnexpectedResponse is returned when the ticketing API answers with a
// success status but the body does not carry an external order identifier.
var ErrUnexpectedResponse = errors.New("ticketing: unexpected response shape")

// Client submits service orders to the external ticketing API.
type Client struct {
	// OrderURL is the service-order creation endpoint.
	OrderURL string
	// Auth is the injected credential strategy.
	Auth AuthStrategy
	// HTTPClient performs the submission; its Timeout bounds the call.
	HTTPClient *http.Client
}

// New constructs a Client with an explicit per-request timeout.
func New(orderURL string, auth AuthStrategy, timeout time.Duration) *Client {
	return &Client{
		OrderURL:   orderURL,
		Auth:       auth,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// createRequest is the wire shape of a service-order creation call. The
// record id travels as a string and the payload as a nested JSON document.
type createRequest struct {
	Data struct {
		ID       string              `json:"id"`
		DataJSON domain.OrderPayload `json:"data_json"`
	} `json:"data"`
}

// createResponse is the wire shape of a successful creation response.
type createResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// CreateOrder submits the payload under the given record id and returns the
// external system's order identifier.
//
// Errors:
//   - transport or authentication failures are wrapped and returned;
//   - non-2xx statuses are returned as errors with the status code;
//   - a success status without an order id yields ErrUnexpectedResponse.
func (c *Client) CreateOrder(ctx context.Context, recordID string, payload domain.OrderPayload) (string, error) {
	var reqBody createRequest
	reqBody.Data.ID = recordID
	reqBody.Data.DataJSON = payload

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.OrderURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Auth != nil {
		if err := c.Auth.Authenticate(req); err != nil {
			return "", fmt.Errorf("ticketing: authenticate: %w", err)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ticketing: create order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("ticketing: create order returned status %d", resp.StatusCode)
	}

	var cr createResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	if cr.Data.ID == "" {
		return "", fmt.Errorf("%w: missing data.id", ErrUnexpectedResponse)
	}
	return cr.Data.ID, nil
}
