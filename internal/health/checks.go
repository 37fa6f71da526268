package health

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/schaermu/repohealth/internal/common"
	"github.com/schaermu/repohealth/internal/github"
	"github.com/schaermu/repohealth/internal/readme"
)

// Check names
const (
	CheckMaturityLabel     = "maturity_label"
	CheckLogo              = "logo_exists"
	CheckDiscordLink       = "discord_link_exists"
	CheckSecurity          = "security_exists"
	CheckContributingGuide = "contributing_guide_exists"
	CheckPrecommit         = "precommit_exists"
	CheckIssueTemplates    = "issue_templates_exist"
	CheckCommunityHealth   = "community_health"
	CheckCodeOfConduct     = "code_of_conduct_exists"
	CheckCommonFiles       = "common_files"
)

// DefaultChecks returns the full checklist in run order
func DefaultChecks() []Check {
	return []Check{
		{Name: CheckMaturityLabel, Description: "README maturity shield matches the repository topic", Run: checkMaturityLabel},
		{Name: CheckLogo, Description: "logo.svg is present", Run: fileExists("logo.svg", "logo.svg not found")},
		{Name: CheckDiscordLink, Description: "README links to Discord", Run: checkDiscordLink},
		{Name: CheckSecurity, Description: "SECURITY.md is present", Run: fileExists("SECURITY.md", "SECURITY.md not found")},
		{Name: CheckContributingGuide, Description: "CONTRIBUTING.md is present", Run: fileExists("CONTRIBUTING.md", "CONTRIBUTING.md not found")},
		{Name: CheckPrecommit, Description: "pre-commit is configured", Run: fileExists(".pre-commit-config.yaml", "Pre-commit config not found")},
		{Name: CheckIssueTemplates, Description: "issue templates are present", Run: dirExists(".github/ISSUE_TEMPLATE", "Issue templates not found")},
		{Name: CheckCommunityHealth, Description: "GitHub community profile is complete", Run: checkCommunityHealth},
		{Name: CheckCodeOfConduct, Description: "CODE_OF_CONDUCT.md is present", Run: fileExists("CODE_OF_CONDUCT.md", "CODE_OF_CONDUCT.md not found")},
		{Name: CheckCommonFiles, Description: "common files match the reference set", Run: checkCommonFiles},
	}
}

func fileExists(rel, missing string) func(context.Context, *Env) Result {
	return func(_ context.Context, env *Env) Result {
		info, err := os.Stat(filepath.Join(env.Config.RepoDir, filepath.FromSlash(rel)))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fail("%s", missing)
			}
			return fail("cannot stat %s: %v", rel, err)
		}
		if info.IsDir() {
			return fail("%s is a directory", rel)
		}
		return pass("")
	}
}

func dirExists(rel, missing string) func(context.Context, *Env) Result {
	return func(_ context.Context, env *Env) Result {
		info, err := os.Stat(filepath.Join(env.Config.RepoDir, filepath.FromSlash(rel)))
		if err != nil || !info.IsDir() {
			return fail("%s", missing)
		}
		return pass("")
	}
}

func loadReadme(env *Env) (string, *Result) {
	content, err := readme.Load(env.Config.ReadmePath())
	if err != nil {
		res := fail("%s not found", filepath.Base(env.Config.ReadmePath()))
		if !errors.Is(err, fs.ErrNotExist) {
			res = fail("%v", err)
		}
		return "", &res
	}
	return content, nil
}

func checkMaturityLabel(ctx context.Context, env *Env) Result {
	content, res := loadReadme(env)
	if res != nil {
		return *res
	}

	line, ok := readme.FindLine(content, "shields.io", "maturity")
	if !ok {
		return fail("Maturity shield not found in README.md")
	}

	badge, ok := readme.ParseBadge(line)
	if !ok || badge.Label != "maturity" {
		return fail("Shield found, but not a maturity shield")
	}

	shieldValue := badge.Message
	if shieldValue == "production" {
		shieldValue = "prod"
	}

	if env.Config.Offline || env.GitHub == nil {
		return skip(fmt.Sprintf("Offline mode, shield value %s not compared with topics", shieldValue))
	}

	owner, repo, err := env.Repository(ctx)
	if err != nil {
		return fail("%v", err)
	}

	topics, err := env.GitHub.Topics(ctx, owner, repo)
	if err != nil {
		return fail("%v", err)
	}

	selectedTopic := ""
	for _, topic := range topics {
		if !strings.Contains(topic, "maturity") {
			continue
		}
		if _, value, ok := readme.ParseDashedPair(topic); ok {
			selectedTopic = value
		}
		break
	}

	if selectedTopic != shieldValue {
		return fail("Maturity shield value (%s) does not match topic (%s)", shieldValue, selectedTopic)
	}
	return pass(shieldValue)
}

func checkDiscordLink(_ context.Context, env *Env) Result {
	content, res := loadReadme(env)
	if res != nil {
		return *res
	}

	line, ok := readme.FindLine(content, "discord")
	if !ok || !strings.Contains(line, "discord.gg") {
		return fail("Discord link not found in README.md")
	}
	return pass("")
}

func checkCommunityHealth(ctx context.Context, env *Env) Result {
	if env.Config.Offline || env.GitHub == nil {
		return skip("Offline mode")
	}

	owner, repo, err := env.Repository(ctx)
	if err != nil {
		return fail("%v", err)
	}

	pct, err := env.GitHub.CommunityHealth(ctx, owner, repo)
	if err != nil {
		return fail("%v", err)
	}
	if pct != 100 {
		return fail("Community health is %d%% %s", pct, github.CommunityURL(owner, repo))
	}
	return pass("100%")
}

func checkCommonFiles(ctx context.Context, env *Env) Result {
	reconciler, err := common.NewReconciler(env.Config.CommonDir, env.Config.RepoDir, env.Logger)
	if err != nil {
		return fail("%v", err)
	}

	report, err := reconciler.Run(ctx)
	if err != nil {
		res := fail("%v", err)
		res.Common = report
		return res
	}

	counts := report.Counts()
	if report.Healthy() {
		res := pass(fmt.Sprintf("%d bundle(s) matched, %d file(s) identical", len(report.Bundles), counts[common.KindMatch]))
		res.Common = report
		return res
	}

	res := fail("%d mismatched, %d missing, %d unreadable, %d invalid match rule file(s)",
		counts[common.KindMismatch], counts[common.KindMissing], counts[common.KindError], len(report.ConfigErrors))
	res.Common = report
	return res
}
