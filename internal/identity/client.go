package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is the HTTP Directory implementation used by peer services. It
// only reads; all account writes go through the identity service itself.
type Client struct {
	base string
	http *http.Client
}

var _ Directory = (*Client)(nil)

// NewClient creates a Directory client for the given base URL.
func NewClient(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 5 * time.Second},
	}
}

// GetAccount fetches one account by id.
func (c *Client) GetAccount(ctx context.Context, id int64) (*Account, error) {
	var account Account
	if err := c.get(ctx, fmt.Sprintf("%s/%d", c.base, id), &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// ListAccounts fetches accounts, optionally filtered by role.
func (c *Client) ListAccounts(ctx context.Context, role Role) ([]*Account, error) {
	target := c.base + "/"
	if role != "" {
		target += "?rol=" + url.QueryEscape(string(role))
	}
	var accounts []*Account
	if err := c.get(ctx, target, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (c *Client) get(ctx context.Context, target string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: identity returned %d", ErrUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode identity response: %w", err)
	}
	return nil
}
