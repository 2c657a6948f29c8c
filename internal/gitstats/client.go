// Package gitstats aggregates repository statistics from the GitHub API.
// The analysis core consumes its output as an opaque map, so this package
// is the caller-side provider the CLI wires in.
package gitstats

import (
	"log/slog"
	"os"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v81/github"
)

// Client wraps the GitHub API client with rate-limit-aware transport.
// An unauthenticated client works but hits the 60 req/hour limit fast;
// setting GITHUB_TOKEN raises it to 5000.
type Client struct {
	gh     *github.Client
	logger *slog.Logger
}

func NewClient(logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Waits out secondary rate limits instead of surfacing them as errors.
	transport, err := github_ratelimit.NewRateLimitWaiterClient(nil)
	if err != nil {
		return nil, err
	}

	gh := github.NewClient(transport)
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		gh = gh.WithAuthToken(token)
	}
	return &Client{gh: gh, logger: logger}, nil
}
