package git

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// Client provides the git lookups needed by the health checks
type Client interface {
	// RemoteURL returns the URL of the named remote of the repository at dir
	RemoteURL(ctx context.Context, dir, remote string) (string, error)
	// TopLevel returns the root of the working tree containing dir
	TopLevel(ctx context.Context, dir string) (string, error)
}

// ShellClient implements Client by shelling out to the git command
type ShellClient struct{}

// NewShellClient creates a new git client that uses the git command
func NewShellClient() *ShellClient {
	return &ShellClient{}
}

// RemoteURL runs git remote get-url
func (c *ShellClient) RemoteURL(ctx context.Context, dir, remote string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "remote", "get-url", remote)
	output, err := c.runCommand(cmd)
	if err != nil {
		return "", fmt.Errorf("git remote get-url %s failed: %w", remote, err)
	}
	url := strings.TrimSpace(output)
	if url == "" {
		return "", fmt.Errorf("remote %s has no URL", remote)
	}
	return url, nil
}

// TopLevel runs git rev-parse --show-toplevel
func (c *ShellClient) TopLevel(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "rev-parse", "--show-toplevel")
	output, err := c.runCommand(cmd)
	if err != nil {
		return "", fmt.Errorf("git rev-parse failed: %w", err)
	}
	return strings.TrimSpace(output), nil
}

// runCommand executes a command and returns an error with output on failure
func (c *ShellClient) runCommand(cmd *exec.Cmd) (string, error) {
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

var repositoryPattern = regexp.MustCompile(`([\w.-]+)/([\w.-]+)$`)

// ParseRepository extracts owner and name from a GitHub remote URL in
// either https or scp-like ssh form
func ParseRepository(url string) (string, string, error) {
	trimmed := strings.TrimSuffix(strings.TrimSuffix(strings.TrimSpace(url), "/"), ".git")
	// scp-like form: git@github.com:owner/repo
	if i := strings.Index(trimmed, ":"); i >= 0 && !strings.Contains(trimmed, "://") {
		trimmed = "/" + trimmed[i+1:]
	}

	m := repositoryPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return "", "", fmt.Errorf("cannot determine owner/repo from remote URL %q", url)
	}
	return m[1], m[2], nil
}
