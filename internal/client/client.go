// Package client talks to the expense backend's REST API. It only fetches:
// member identity, a member's group list, and per-group details. All
// normalization of the loose payloads happens downstream in the calculator.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/apachehub/deudacero/internal/models"
)

// Client is a thin JSON client for the expense backend.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a backend client. token is the service credential attached as a
// bearer token to every request.
func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// Identity fetches the member identity needed to scope every balance
// computation. Failure here is global: no identity-relative computation is
// possible without it.
func (c *Client) Identity(ctx context.Context, memberID int64) (*models.IdentityPayload, error) {
	var identity models.IdentityPayload
	if err := c.get(ctx, fmt.Sprintf("/api/members/%d", memberID), &identity); err != nil {
		return nil, fmt.Errorf("fetch member identity: %w", err)
	}
	return &identity, nil
}

// MemberGroups fetches the member's group memberships.
func (c *Client) MemberGroups(ctx context.Context, memberID int64) ([]models.GroupSummary, error) {
	var groups []models.GroupSummary
	if err := c.get(ctx, fmt.Sprintf("/api/members/%d/groups", memberID), &groups); err != nil {
		return nil, fmt.Errorf("fetch member groups: %w", err)
	}
	return groups, nil
}

// GroupDetail fetches one group's full detail payload: members, expenses,
// confirmed payments and balance snapshots.
func (c *Client) GroupDetail(ctx context.Context, groupID int64) (*models.GroupDetail, error) {
	var detail models.GroupDetail
	if err := c.get(ctx, fmt.Sprintf("/api/groups/%d", groupID), &detail); err != nil {
		return nil, fmt.Errorf("fetch group %d detail: %w", groupID, err)
	}
	return &detail, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Read a short prefix of the body for error context.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("backend returned %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
