// Package oracle checks the external signal that proves a milestone is done:
// a merged pull request.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrMalformedURL is returned when a verification URL is not a pull request URL.
var ErrMalformedURL = errors.New("not a pull request URL")

// PullRequestRef identifies one pull request.
type PullRequestRef struct {
	Owner  string
	Repo   string
	Number int
}

func (r PullRequestRef) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

// Checker reports whether a pull request has been merged.
type Checker interface {
	IsMerged(ctx context.Context, ref PullRequestRef) (bool, error)
}

// ParsePullRequestURL extracts owner, repo and number from
// https://<host>/<owner>/<repo>/pull/<number>. Anything after the number
// (a sub-page such as /files, a query string or a fragment) is ignored.
func ParsePullRequestURL(raw, host string) (PullRequestRef, error) {
	malformed := fmt.Errorf("%w: %q", ErrMalformedURL, raw)

	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return PullRequestRef{}, malformed
	}
	if u.Scheme != "https" || u.User != nil {
		return PullRequestRef{}, malformed
	}
	if !strings.EqualFold(u.Host, host) {
		return PullRequestRef{}, malformed
	}

	parts := strings.Split(strings.TrimPrefix(u.Path, "/"), "/")
	if len(parts) < 4 || parts[2] != "pull" {
		return PullRequestRef{}, malformed
	}
	owner, repo, num := parts[0], parts[1], parts[3]
	if owner == "" || repo == "" || !isDigits(num) {
		return PullRequestRef{}, malformed
	}
	n, err := strconv.Atoi(num)
	if err != nil || n <= 0 {
		return PullRequestRef{}, malformed
	}

	return PullRequestRef{Owner: owner, Repo: repo, Number: n}, nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
