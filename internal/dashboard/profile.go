// ABOUTME: Locates the server and saved credentials for the terminal clients
// ABOUTME: Persists the session cookie jar as JSON next to the config file

package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const (
	EnvURL     = "MANGA_ADMIN_URL"
	EnvToken   = "MANGA_ADMIN_TOKEN"
	DefaultURL = "http://localhost:8080"
)

// Profile is where a terminal client connects and what it authenticates with.
type Profile struct {
	BaseURL     string
	Token       string
	SessionPath string
}

// LoadProfile resolves the server URL from MANGA_ADMIN_URL and the bearer token
// from MANGA_ADMIN_TOKEN, falling back to the token file in dir.
func LoadProfile(dir string) Profile {
	p := Profile{
		BaseURL:     os.Getenv(EnvURL),
		Token:       os.Getenv(EnvToken),
		SessionPath: filepath.Join(dir, "session"),
	}
	if p.BaseURL == "" {
		p.BaseURL = DefaultURL
	}
	if p.Token == "" {
		if data, err := os.ReadFile(filepath.Join(dir, "token")); err == nil {
			p.Token = strings.TrimSpace(string(data))
		}
	}
	return p
}

// NewClient builds a client for the profile and restores any saved session.
// An unreadable session file is ignored; the user just logs in again.
func (p Profile) NewClient(opts ...Option) (*Client, error) {
	if p.Token != "" {
		opts = append(opts, WithToken(p.Token))
	}
	c, err := NewClient(p.BaseURL, opts...)
	if err != nil {
		return nil, err
	}
	if data, err := os.ReadFile(p.SessionPath); err == nil {
		var cookies []*http.Cookie
		if json.Unmarshal(data, &cookies) == nil {
			c.SetCookies(cookies)
		}
	}
	return c, nil
}

// SaveSession writes the client's cookies so the next process can reuse them.
func (p Profile) SaveSession(c *Client) error {
	cookies := c.Cookies()
	if len(cookies) == 0 {
		return p.ClearSession()
	}
	data, err := json.Marshal(cookies)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.SessionPath), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(p.SessionPath, data, 0600); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// ClearSession removes the saved session file.
func (p Profile) ClearSession() error {
	if err := os.Remove(p.SessionPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session: %w", err)
	}
	return nil
}
