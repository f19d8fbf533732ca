// internal/common/http/client.go
package http

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Client is a thin JSON-API client for the scoring oracle. Every
// request is tagged with a fresh X-Request-ID for log correlation.
type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// PostJSON sends body as a JSON payload. The context bounds the whole
// exchange; the caller owns the response body.
func (c *Client) PostJSON(ctx context.Context, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	return c.httpClient.Do(req)
}
