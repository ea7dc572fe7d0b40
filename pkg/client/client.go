// Package client provides a Go client for the CodeFund API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Client is a CodeFund API client
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// New creates a new CodeFund client
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// Listings issue one chain read per campaign server-side.
			Timeout: 60 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Project is a campaign as returned by list endpoints
type Project struct {
	CampaignAddress   string          `json:"campaign_address"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	FundingGoalEth    decimal.Decimal `json:"funding_goal_eth"`
	TotalRaisedEth    decimal.Decimal `json:"total_raised_eth"`
	DeveloperAddress  string          `json:"developer_address"`
	DeadlineFormatted string          `json:"deadline_formatted"`
	DaysLeft          int64           `json:"days_left"`
}

// ProjectDetail is a campaign with its milestones
type ProjectDetail struct {
	Project
	GithubURL        string      `json:"githubUrl"`
	ContributorCount uint64      `json:"contributor_count"`
	Milestones       []Milestone `json:"milestones"`
}

// Milestone is one milestone of a campaign
type Milestone struct {
	Description     string          `json:"description"`
	AmountEth       decimal.Decimal `json:"amount_eth"`
	Verified        bool            `json:"verified"`
	FundsReleased   bool            `json:"funds_released"`
	VerificationURL string          `json:"verificationUrl"`
}

// APIError represents an API error response
type APIError struct {
	StatusCode int
	Detail     string `json:"detail"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Detail)
}

// IsNotFound reports whether err is an API 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// ListProjects lists every campaign, newest first
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var resp []Project
	if err := c.get(ctx, "/api/v1/projects", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetProject gets one campaign with milestones
func (c *Client) GetProject(ctx context.Context, address string) (*ProjectDetail, error) {
	var resp ProjectDetail
	if err := c.get(ctx, "/api/v1/projects/"+url.PathEscape(address), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListCreated lists campaigns whose developer is address
func (c *Client) ListCreated(ctx context.Context, address string) ([]Project, error) {
	var resp []Project
	if err := c.get(ctx, "/api/v1/users/"+url.PathEscape(address)+"/created", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ListContributed lists campaigns address has contributed to
func (c *Client) ListContributed(ctx context.Context, address string) ([]Project, error) {
	var resp []Project
	if err := c.get(ctx, "/api/v1/users/"+url.PathEscape(address)+"/contributed", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return parseError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

func parseError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Detail == "" {
		apiErr.Detail = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
