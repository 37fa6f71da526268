// Package health runs the repository checklist and collects one result per
// check. A failing check never stops the ones after it.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/schaermu/repohealth/internal/common"
	"github.com/schaermu/repohealth/internal/config"
	"github.com/schaermu/repohealth/internal/git"
	"github.com/schaermu/repohealth/internal/github"
)

// Status is the outcome of a single check
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
)

// Result is the outcome of one check
type Result struct {
	Name    string         `json:"name"`
	Status  Status         `json:"status"`
	Message string         `json:"message,omitempty"`
	Common  *common.Report `json:"common,omitempty"`
}

// Check is a named checklist entry
type Check struct {
	Name        string
	Description string
	Run         func(ctx context.Context, env *Env) Result
}

// Env carries the collaborators a check may use
type Env struct {
	Config *config.Config
	Git    git.Client
	GitHub github.Metadata // nil when offline
	Logger *slog.Logger
}

// Repository resolves owner and name from config or the git remote
func (e *Env) Repository(ctx context.Context) (string, string, error) {
	if e.Config.GitHub.Repository != "" {
		owner, name, _ := strings.Cut(e.Config.GitHub.Repository, "/")
		return owner, name, nil
	}
	if e.Git == nil {
		return "", "", fmt.Errorf("no git client configured")
	}
	url, err := e.Git.RemoteURL(ctx, e.Config.RepoDir, e.Config.GitHub.Remote)
	if err != nil {
		return "", "", fmt.Errorf("could not get remote %s: %w", e.Config.GitHub.Remote, err)
	}
	return git.ParseRepository(url)
}

// Summary holds the results of a checklist run in check order
type Summary struct {
	Results []Result `json:"results"`
}

// Healthy is true when no check failed
func (s *Summary) Healthy() bool {
	for _, r := range s.Results {
		if r.Status == StatusFail {
			return false
		}
	}
	return true
}

// Failed returns the failing results
func (s *Summary) Failed() []Result {
	var failed []Result
	for _, r := range s.Results {
		if r.Status == StatusFail {
			failed = append(failed, r)
		}
	}
	return failed
}

// Runner executes checks sequentially
type Runner struct {
	env    *Env
	checks []Check
}

// NewRunner creates a runner for the given checks, dropping the ones the
// configuration skips
func NewRunner(env *Env, checks []Check) *Runner {
	enabled := make([]Check, 0, len(checks))
	for _, c := range checks {
		if env.Config.Skipped(c.Name) {
			env.Logger.Debug("check disabled by configuration", "check", c.Name)
			continue
		}
		enabled = append(enabled, c)
	}
	return &Runner{env: env, checks: enabled}
}

// Run executes every enabled check. It stops early only when ctx is done.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{Results: make([]Result, 0, len(r.checks))}

	for _, c := range r.checks {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		r.env.Logger.Debug("running check", "check", c.Name)
		res := c.Run(ctx, r.env)
		res.Name = c.Name

		if res.Status == StatusFail {
			r.env.Logger.Debug("check failed", "check", c.Name, "message", res.Message)
		}
		summary.Results = append(summary.Results, res)
	}

	return summary, nil
}

// ValidateNames reports an error for any name that is not a known check
func ValidateNames(checks []Check, names []string) error {
	known := make(map[string]bool, len(checks))
	for _, c := range checks {
		known[c.Name] = true
	}

	var unknown []string
	for _, n := range names {
		if !known[strings.TrimSpace(n)] {
			unknown = append(unknown, n)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unknown check(s): %s", strings.Join(unknown, ", "))
	}
	return nil
}

func pass(msg string) Result { return Result{Status: StatusPass, Message: msg} }

func fail(format string, args ...any) Result {
	return Result{Status: StatusFail, Message: fmt.Sprintf(format, args...)}
}

func skip(msg string) Result { return Result{Status: StatusSkip, Message: msg} }
