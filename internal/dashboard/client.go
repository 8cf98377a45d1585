// ABOUTME: HTTP client for the manga-admin JSON API
// ABOUTME: Keeps the session cookie in a jar, or sends a bearer token for scripted use

package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/freegoat/manga-admin/internal/api"
	"github.com/freegoat/manga-admin/internal/store"
)

// DefaultTimeout bounds every request unless WithTimeout says otherwise.
const DefaultTimeout = 15 * time.Second

// ErrNetwork wraps transport failures: refused connections, timeouts, bad TLS.
var ErrNetwork = errors.New("network failure")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// Result is the envelope returned by mutations.
type Result[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// CheckResult is the answer of /api/auth/check.
type CheckResult struct {
	Authenticated bool `json:"authenticated"`
	User          *struct {
		Username string `json:"username"`
	} `json:"user"`
}

// Username returns the logged in user or "".
func (c CheckResult) Username() string {
	if c.User == nil {
		return ""
	}
	return c.User.Username
}

// NotificationInput is the body of a send.
type NotificationInput struct {
	Title    string                 `json:"title"`
	Body     string                 `json:"body"`
	Type     store.NotificationType `json:"type,omitempty"`
	Priority store.Priority         `json:"priority,omitempty"`
}

// RepositoryInput is the body of a repository create.
type RepositoryInput struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Option configures a Client.
type Option func(*Client)

// WithToken authenticates every request with a bearer token instead of the cookie.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying client. Its jar is used as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client talks to one manga-admin server.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// NewClient creates a client for baseURL (for example http://localhost:8080).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Jar: jar, Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the server URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Cookies returns the session cookies currently held for the server.
func (c *Client) Cookies() []*http.Cookie {
	if c.http.Jar == nil {
		return nil
	}
	u, _ := url.Parse(c.baseURL)
	return c.http.Jar.Cookies(u)
}

// SetCookies restores previously saved session cookies.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	if c.http.Jar == nil {
		return
	}
	u, _ := url.Parse(c.baseURL)
	c.http.Jar.SetCookies(u, cookies)
}

// do sends a JSON request and decodes a 2xx JSON answer into out (which may be nil).
func (c *Client) do(ctx context.Context, method, path string, in, out any, headers ...string) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// decodeError understands both {"message"} envelopes and {"error"} route errors.
func decodeError(status int, raw []byte) error {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		msg := body.Message
		if msg == "" {
			msg = body.Error
		}
		return &APIError{Status: status, Message: msg}
	}
	return &APIError{Status: status, Message: strings.TrimSpace(string(raw))}
}

// --- auth ---

// Login starts a session. Wrong credentials return an *APIError with status 401.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out CheckResult
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &out)
	if err != nil {
		return "", err
	}
	if name := out.Username(); name != "" {
		return name, nil
	}
	return username, nil
}

// Logout ends the session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Check reports whether the client is logged in.
func (c *Client) Check(ctx context.Context) (CheckResult, error) {
	var out CheckResult
	err := c.do(ctx, http.MethodGet, "/api/auth/check", nil, &out)
	return out, err
}

// Health returns nil when /health answers 200.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// --- notifications ---

func (c *Client) ListNotifications(ctx context.Context) ([]*store.Notification, error) {
	var out struct {
		Notifications []*store.Notification `json:"notifications"`
	}
	err := c.do(ctx, http.MethodGet, "/api/notifications", nil, &out)
	return out.Notifications, err
}

// SendNotification stores and delivers a notification. idempotencyKey may be empty.
func (c *Client) SendNotification(ctx context.Context, in NotificationInput, idempotencyKey string) (*Result[*store.Notification], error) {
	var out Result[*store.Notification]
	err := c.do(ctx, http.MethodPost, "/api/notifications/send", in, &out, idempotencyHeaders(idempotencyKey)...)
	return &out, err
}

func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/notifications/"+url.PathEscape(id), nil, nil)
}

func (c *Client) NotificationStats(ctx context.Context) (store.NotificationStats, error) {
	var out struct {
		Stats store.NotificationStats `json:"stats"`
	}
	err := c.do(ctx, http.MethodGet, "/api/notifications/stats", nil, &out)
	return out.Stats, err
}

// --- repositories ---

func (c *Client) ListRepositories(ctx context.Context) ([]*store.Repository, error) {
	var out struct {
		Repositories []*store.Repository `json:"repositories"`
	}
	err := c.do(ctx, http.MethodGet, "/api/repositories", nil, &out)
	return out.Repositories, err
}

func (c *Client) CreateRepository(ctx context.Context, in RepositoryInput, idempotencyKey string) (*store.Repository, error) {
	var out Result[*store.Repository]
	err := c.do(ctx, http.MethodPost, "/api/repositories", in, &out, idempotencyHeaders(idempotencyKey)...)
	return out.Data, err
}

func (c *Client) UpdateRepository(ctx context.Context, id string, upd store.RepositoryUpdate) (*store.Repository, error) {
	var out Result[*store.Repository]
	err := c.do(ctx, http.MethodPut, "/api/repositories/"+url.PathEscape(id), upd, &out)
	return out.Data, err
}

func (c *Client) DeleteRepository(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/repositories/"+url.PathEscape(id), nil, nil)
}

func (c *Client) RefreshRepository(ctx context.Context, id string) (*store.Repository, error) {
	var out Result[*store.Repository]
	err := c.do(ctx, http.MethodPost, "/api/repositories/"+url.PathEscape(id)+"/refresh", nil, &out)
	return out.Data, err
}

// RefreshAllRepositories returns how many active repositories were refreshed.
func (c *Client) RefreshAllRepositories(ctx context.Context) (int, error) {
	var out Result[struct {
		Refreshed int `json:"refreshed"`
	}]
	err := c.do(ctx, http.MethodPost, "/api/repositories/refresh-all", nil, &out)
	return out.Data.Refreshed, err
}

func (c *Client) RepositoryStats(ctx context.Context) (store.RepositoryStats, error) {
	var out struct {
		Stats store.RepositoryStats `json:"stats"`
	}
	err := c.do(ctx, http.MethodGet, "/api/repositories/stats", nil, &out)
	return out.Stats, err
}

// --- users ---

func (c *Client) ListUsers(ctx context.Context) ([]*store.User, error) {
	var out struct {
		Users []*store.User `json:"users"`
	}
	err := c.do(ctx, http.MethodGet, "/api/users", nil, &out)
	return out.Users, err
}

func (c *Client) CreateUser(ctx context.Context, u *store.User) (*store.User, error) {
	var out Result[*store.User]
	err := c.do(ctx, http.MethodPost, "/api/users", u, &out)
	return out.Data, err
}

func (c *Client) UpdateUser(ctx context.Context, id string, upd store.UserUpdate) (*store.User, error) {
	var out Result[*store.User]
	err := c.do(ctx, http.MethodPut, "/api/users/"+url.PathEscape(id), upd, &out)
	return out.Data, err
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/users/"+url.PathEscape(id), nil, nil)
}

// --- manga ---

func (c *Client) ListManga(ctx context.Context) ([]*store.Manga, error) {
	var out struct {
		Manga []*store.Manga `json:"manga"`
	}
	err := c.do(ctx, http.MethodGet, "/api/manga", nil, &out)
	return out.Manga, err
}

func (c *Client) CreateManga(ctx context.Context, m *store.Manga) (*store.Manga, error) {
	var out Result[*store.Manga]
	err := c.do(ctx, http.MethodPost, "/api/manga", m, &out)
	return out.Data, err
}

func (c *Client) UpdateManga(ctx context.Context, id string, upd store.MangaUpdate) (*store.Manga, error) {
	var out Result[*store.Manga]
	err := c.do(ctx, http.MethodPut, "/api/manga/"+url.PathEscape(id), upd, &out)
	return out.Data, err
}

func (c *Client) DeleteManga(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/manga/"+url.PathEscape(id), nil, nil)
}

// --- overview ---

func (c *Client) Statistics(ctx context.Context) (*api.Statistics, error) {
	var out struct {
		Stats *api.Statistics `json:"stats"`
	}
	err := c.do(ctx, http.MethodGet, "/api/statistics", nil, &out)
	return out.Stats, err
}

func (c *Client) Settings(ctx context.Context) (*store.Settings, error) {
	var out struct {
		Settings *store.Settings `json:"settings"`
	}
	err := c.do(ctx, http.MethodGet, "/api/settings", nil, &out)
	return out.Settings, err
}

// UpdateSettings sends a partial update; keys absent from fields stay unchanged.
func (c *Client) UpdateSettings(ctx context.Context, fields map[string]any) (*store.Settings, error) {
	var out Result[*store.Settings]
	err := c.do(ctx, http.MethodPut, "/api/settings", fields, &out)
	return out.Data, err
}

// QuickAction runs clear-cache, export-data or backup. Data is left raw.
func (c *Client) QuickAction(ctx context.Context, action string) (*Result[json.RawMessage], error) {
	var out Result[json.RawMessage]
	err := c.do(ctx, http.MethodPost, "/api/quick-actions/"+url.PathEscape(action), nil, &out)
	return &out, err
}

func (c *Client) AuditLog(ctx context.Context, limit int) ([]*store.AuditEntry, error) {
	var out struct {
		Entries []*store.AuditEntry `json:"entries"`
	}
	path := "/api/audit"
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out.Entries, err
}

func idempotencyHeaders(key string) []string {
	if key == "" {
		return nil
	}
	return []string{api.IdempotencyHeader, key}
}
