// Package client is a typed REST client for the operations API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hfpolymers/rubber-ops/internal/modules/auth"
	"github.com/hfpolymers/rubber-ops/internal/modules/notification"
	"github.com/hfpolymers/rubber-ops/internal/modules/salary"
	"github.com/hfpolymers/rubber-ops/internal/modules/user"
)

// ErrUnauthorized is returned on a 401 so callers can prompt for a new login.
var ErrUnauthorized = errors.New("unauthorized: log in again")

// APIError is any other non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed (%d)", e.Status)
	}
	return fmt.Sprintf("request failed (%d): %s", e.Status, e.Message)
}

// Client talks to one API base URL with an optional bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New returns a client for baseURL. token may be empty for Login.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// WithHTTPClient swaps the underlying http.Client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		msg := ""
		if json.Unmarshal(raw, &payload) == nil {
			msg = payload.Error
			if msg == "" {
				msg = payload.Message
			}
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Login signs in and stores the returned token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*auth.LoginResponse, error) {
	var res auth.LoginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &res); err != nil {
		return nil, err
	}
	c.SetToken(res.Token)
	return &res, nil
}

// Me returns the signed-in account.
func (c *Client) Me(ctx context.Context) (*user.User, error) {
	var u user.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// CalculateWage previews a salary breakdown on the server.
func (c *Client) CalculateWage(ctx context.Context, req salary.CalculateRequest) (*salary.Breakdown, error) {
	var b salary.Breakdown
	if err := c.do(ctx, http.MethodPost, "/api/salary/calculate", req, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// GenerateSalaries creates DRAFT records for one staff member or everyone.
func (c *Client) GenerateSalaries(ctx context.Context, req salary.GenerateRequest) (*salary.GenerateResult, error) {
	var res salary.GenerateResult
	if err := c.do(ctx, http.MethodPost, "/api/salary/generate", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListSalaryRecords lists records; zero filter fields are omitted.
func (c *Client) ListSalaryRecords(ctx context.Context, f salary.Filter) ([]*salary.Record, error) {
	q := url.Values{}
	if f.StaffID != "" {
		q.Set("staff_id", f.StaffID)
	}
	if f.Month != 0 {
		q.Set("month", strconv.Itoa(f.Month))
	}
	if f.Year != 0 {
		q.Set("year", strconv.Itoa(f.Year))
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	var out []*salary.Record
	if err := c.do(ctx, http.MethodGet, withQuery("/api/salary/records", q), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListNotifications returns the caller's notifications, newest first.
func (c *Client) ListNotifications(ctx context.Context, unreadOnly bool, limit int) ([]*notification.Notification, error) {
	q := url.Values{}
	if unreadOnly {
		q.Set("unread", "true")
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []*notification.Notification
	if err := c.do(ctx, http.MethodGet, withQuery("/api/notifications", q), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UnreadCount returns the badge count.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var res struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/notifications/unread-count", nil, &res); err != nil {
		return 0, err
	}
	return res.Count, nil
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
