package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"
)

// Metadata exposes the repository metadata the health checks read
type Metadata interface {
	// Topics returns the repository topics
	Topics(ctx context.Context, owner, repo string) ([]string, error)
	// CommunityHealth returns the community profile health percentage
	CommunityHealth(ctx context.Context, owner, repo string) (int, error)
}

// Client wraps the GitHub API client.
type Client struct {
	client *github.Client
}

// NewClient creates a new GitHub client using the provided token.
// If token is empty, it returns an unauthenticated client.
func NewClient(ctx context.Context, token string) *Client {
	var tc *http.Client

	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		tc = oauth2.NewClient(ctx, ts)
	}

	return &Client{
		client: github.NewClient(tc),
	}
}

// WithBaseURL points the client at another API endpoint, such as a GitHub
// Enterprise server.
func (c *Client) WithBaseURL(baseURL string) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub API URL %q: %w", baseURL, err)
	}
	c.client.BaseURL = u
	return c, nil
}

// Topics fetches the repository topics.
func (c *Client) Topics(ctx context.Context, owner, repo string) ([]string, error) {
	if err := validateRepo(owner, repo); err != nil {
		return nil, err
	}

	topics, _, err := c.client.Repositories.ListAllTopics(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch topics: %w", err)
	}
	return topics, nil
}

// CommunityHealth fetches the community profile health percentage.
func (c *Client) CommunityHealth(ctx context.Context, owner, repo string) (int, error) {
	if err := validateRepo(owner, repo); err != nil {
		return 0, err
	}

	metrics, _, err := c.client.Repositories.GetCommunityHealthMetrics(ctx, owner, repo)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch community profile: %w", err)
	}
	if metrics == nil || metrics.HealthPercentage == nil {
		return 0, fmt.Errorf("community health not found")
	}
	return *metrics.HealthPercentage, nil
}

// CommunityURL returns the community profile page of a repository
func CommunityURL(owner, repo string) string {
	return fmt.Sprintf("https://github.com/%s/%s/community", owner, repo)
}

func validateRepo(owner, repo string) error {
	if strings.TrimSpace(owner) == "" || strings.TrimSpace(repo) == "" {
		return fmt.Errorf("owner and repo cannot be empty")
	}
	return nil
}
