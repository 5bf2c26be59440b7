// Package http wraps net/http for JSON calls to external collaborators.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 1 << 20

type Client struct {
	httpClient *http.Client
	bearer     string
}

// Response is a fully read reply.
type Response struct {
	StatusCode int
	Body       []byte
}

// NewClient returns a client; a zero timeout leaves deadlines to the caller's context.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// WithBearer returns a copy that sends token as a bearer Authorization header.
func (c *Client) WithBearer(token string) *Client {
	cp := *c
	cp.bearer = token
	return &cp
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.bearer != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	return c.httpClient.Do(req)
}

// PostJSON posts body as JSON and reads the whole reply. Non-2xx statuses are not
// errors; callers inspect StatusCode.
func (c *Client) PostJSON(ctx context.Context, url string, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}
