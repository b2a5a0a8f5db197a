// Package chatpro implements the outbound chat-send client used to notify
// senders over WhatsApp via the ChatPro API. The pipeline treats it as a
// one-way notification sink: send failures are reported to the caller for
// logging but never influence webhook handling.
package chatpro

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client sends text messages through a single ChatPro instance.
//
// The API expects the raw token as the Authorization header value (no
// "Bearer" prefix) and the sending instance in the instance_id query
// parameter.
type Client struct {
	// Endpoint is the message-send URL.
	Endpoint string
	// Token is the raw Authorization header value.
	Token string
	// InstanceID identifies the sending instance.
	InstanceID string
	// HTTPClient is the underlying client; its Timeout bounds each send.
	HTTPClient *http.Client
}

// sendRequest is the JSON body of a message send.
type sendRequest struct {
	Number  string `json:"number"`
	Message string `json:"message"`
}

// New constructs a Client with an explicit per-request timeout.
func New(endpoint, token, instanceID string, timeout time.Duration) *Client {
	return &Client{
		Endpoint:   endpoint,
		Token:      token,
		InstanceID: instanceID,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Send posts a text message to the given number. It returns an error when
// the request cannot be built or sent, or when the API responds with a
// non-2xx status.
func (c *Client) Send(ctx context.Context, number, message string) error {
	body, err := json.Marshal(sendRequest{Number: number, Message: message})
	if err != nil {
		return err
	}

	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("chatpro: bad endpoint: %w", err)
	}
	q := u.Query()
	q.Set("instance_id", c.InstanceID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("chatpro: send: %w", err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("chatpro: send returned status %d", resp.StatusCode)
	}
	return nil
}
