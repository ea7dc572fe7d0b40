package oracle

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
	"golang.org/x/time/rate"

	"github.com/pendergraft/codefund/internal/observability/metrics"
)

// GitHubConfig configures the GitHub pull request checker.
type GitHubConfig struct {
	Token string
	// APIURL overrides the REST base URL (GitHub Enterprise, tests).
	APIURL            string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

// GitHub checks merge status through the GitHub REST API.
type GitHub struct {
	client  *github.Client
	limiter *rate.Limiter
	timeout time.Duration
}

var _ Checker = (*GitHub)(nil)

// NewGitHub creates a checker authenticated with a bearer token.
func NewGitHub(cfg GitHubConfig) (*GitHub, error) {
	client := github.NewClient(&http.Client{}).WithAuthToken(cfg.Token)

	if cfg.APIURL != "" {
		base := cfg.APIURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid oracle API URL %q: %w", cfg.APIURL, err)
		}
		client.BaseURL = u
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &GitHub{
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
		timeout: cfg.Timeout,
	}, nil
}

// IsMerged fetches the pull request and returns its merged flag.
func (g *GitHub) IsMerged(ctx context.Context, ref PullRequestRef) (bool, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		metrics.OracleRequest("error")
		return false, fmt.Errorf("waiting for oracle rate limit: %w", err)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	pr, _, err := g.client.PullRequests.Get(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		metrics.OracleRequest("error")
		return false, fmt.Errorf("fetching pull request %s: %w", ref, err)
	}

	merged := pr.GetMerged()
	if merged {
		metrics.OracleRequest("merged")
	} else {
		metrics.OracleRequest("open")
	}
	return merged, nil
}
