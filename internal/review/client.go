package review

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is the human-side HTTP client for the review service, used by the
// review CLI to list and decide pending tickets.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a review client for the given base URL.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// SetHTTPClient overrides the HTTP client, for tests.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.client = client
}

// Pending lists pending reviews.
func (c *Client) Pending(ctx context.Context) ([]Review, error) {
	var response struct {
		Reviews []Review `json:"reviews"`
	}
	if err := c.get(ctx, "/api/review/pending", &response); err != nil {
		return nil, err
	}
	return response.Reviews, nil
}

// Get fetches one review by id.
func (c *Client) Get(ctx context.Context, id string) (Review, error) {
	pending, err := c.Pending(ctx)
	if err != nil {
		return Review{}, err
	}
	for _, ticket := range pending {
		if ticket.ID == strings.TrimSpace(id) {
			return ticket, nil
		}
	}
	return Review{}, ErrNotFound{ID: strings.TrimSpace(id)}
}

// Decide records a decision on a pending review.
func (c *Client) Decide(ctx context.Context, id string, input DecideInput) (Review, error) {
	body, err := json.Marshal(map[string]any{
		"id":                 strings.TrimSpace(id),
		"decision":           input.Decision,
		"explanation":        input.Explanation,
		"modified_tool_call": nullableRaw(input.ModifiedToolCall),
		"decided_by":         input.DecidedBy,
	})
	if err != nil {
		return Review{}, fmt.Errorf("encode decide request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/review/decide", bytes.NewReader(body))
	if err != nil {
		return Review{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	var response struct {
		Review Review `json:"review"`
	}
	if err := c.do(req, &response); err != nil {
		return Review{}, err
	}
	return response.Review, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.authorize(req)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("review service request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read review service response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var failure struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload, &failure); err == nil && failure.Message != "" {
			return fmt.Errorf("review service: %s", failure.Message)
		}
		return fmt.Errorf("review service: unexpected status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode review service response: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func nullableRaw(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
