package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client provides typed access to the teamboard API for interactive tools.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:4000"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

// Project mirrors the API project payload.
type Project struct {
	ID          string    `json:"id"`
	TeamID      string    `json:"team_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProjectSummary is one entry of the caller's project list.
type ProjectSummary struct {
	Project    Project `json:"project"`
	Permission string  `json:"permission"`
}

// Task mirrors the API task payload.
type Task struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TaskPage is one page of tasks plus the cursor to the next.
type TaskPage struct {
	Items      []Task `json:"items"`
	NextCursor string `json:"next_cursor"`
	Exhausted  bool   `json:"exhausted"`
}

// TaskQuery filters a task listing.
type TaskQuery struct {
	Status     string
	Search     string
	Descending bool
	Cursor     string
	Limit      int
}

// Stats is a project's status breakdown.
type Stats struct {
	Total          int `json:"total"`
	Backlog        int `json:"backlog"`
	Todo           int `json:"todo"`
	InProgress     int `json:"in_progress"`
	Review         int `json:"review"`
	Done           int `json:"done"`
	CompletionRate int `json:"completion_rate"`
}

// Projects lists the projects visible to the caller.
func (c *Client) Projects(ctx context.Context) ([]ProjectSummary, error) {
	var out []ProjectSummary
	if err := c.do(ctx, http.MethodGet, "/projects", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Tasks fetches one page of a project's tasks.
func (c *Client) Tasks(ctx context.Context, projectID string, query TaskQuery) (TaskPage, error) {
	values := url.Values{}
	if query.Status != "" {
		values.Set("status", query.Status)
	}
	if query.Search != "" {
		values.Set("search", query.Search)
	}
	if query.Descending {
		values.Set("order", "desc")
	}
	if query.Cursor != "" {
		values.Set("cursor", query.Cursor)
	}
	if query.Limit > 0 {
		values.Set("limit", strconv.Itoa(query.Limit))
	}
	path := "/projects/" + url.PathEscape(projectID) + "/tasks"
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var page TaskPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return TaskPage{}, err
	}
	return page, nil
}

// AllTasks follows cursors until the listing is exhausted.
func (c *Client) AllTasks(ctx context.Context, projectID string, query TaskQuery) ([]Task, error) {
	var all []Task
	query.Cursor = ""
	for {
		page, err := c.Tasks(ctx, projectID, query)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if page.Exhausted || page.NextCursor == "" {
			return all, nil
		}
		query.Cursor = page.NextCursor
	}
}

// MoveTask sets a task's status.
func (c *Client) MoveTask(ctx context.Context, taskID, status string) (Task, error) {
	var task Task
	body := map[string]string{"status": status}
	if err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(taskID)+"/status", body, &task); err != nil {
		return Task{}, err
	}
	return task, nil
}

// Stats returns a project's task statistics.
func (c *Client) Stats(ctx context.Context, projectID string) (Stats, error) {
	var stats Stats
	if err := c.do(ctx, http.MethodGet, "/projects/"+url.PathEscape(projectID)+"/stats", nil, &stats); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := c.baseURL + path
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		code, msg := extractError(resp.Body)
		return APIError{Status: resp.StatusCode, Code: code, Message: msg}
	}

	if v == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(body io.Reader) (string, string) {
	if body == nil {
		return "", ""
	}
	var payload struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return "", ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", strings.TrimSpace(string(data))
	}
	return payload.Code, strings.TrimSpace(payload.Error)
}
