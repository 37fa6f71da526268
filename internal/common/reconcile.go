package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// RuleFileName is the name of the file that gates a bundle
const RuleFileName = "match.yml"

// Reconciler checks a repository against the bundles of a reference set
type Reconciler struct {
	commonDir string
	repoDir   string
	logger    *slog.Logger
}

// NewReconciler creates a reconciler for the given reference set root and
// repository root. Both paths are made absolute.
func NewReconciler(commonDir, repoDir string, logger *slog.Logger) (*Reconciler, error) {
	absCommon, err := filepath.Abs(commonDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve common dir: %w", err)
	}
	absRepo, err := filepath.Abs(repoDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repo dir: %w", err)
	}
	return &Reconciler{
		commonDir: absCommon,
		repoDir:   absRepo,
		logger:    logger,
	}, nil
}

// Run discovers every rule file, activates matching bundles and reconciles
// them. Only a failure to walk the reference set itself is returned as an
// error; everything else is recorded in the report.
func (r *Reconciler) Run(ctx context.Context) (*Report, error) {
	r.logger.Info("checking common files", "common_dir", r.commonDir, "repo_dir", r.repoDir)

	ruleFiles, err := r.DiscoverRuleFiles()
	if err != nil {
		return nil, err
	}

	report := &Report{
		CommonDir: r.commonDir,
		RepoDir:   r.repoDir,
		RuleFiles: ruleFiles,
		Bundles:   make([]BundleReport, 0),
	}

	for _, ruleFile := range ruleFiles {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		r.logger.Debug("found match rule file", "path", ruleFile)

		matched, ok, err := r.Activate(ruleFile)
		if err != nil {
			var cfgErr *ConfigError
			if errors.As(err, &cfgErr) {
				r.logger.Warn("skipping match rule file", "path", ruleFile, "error", err)
				report.ConfigErrors = append(report.ConfigErrors, cfgErr)
				continue
			}
			return report, err
		}
		if !ok {
			r.logger.Debug("no match rule applies", "path", ruleFile)
			continue
		}

		bundleDir := filepath.Dir(ruleFile)
		r.logger.Info("matched filename rule", "rule", matched, "bundle", bundleDir)

		report.Bundles = append(report.Bundles, BundleReport{
			Name:        r.bundleName(bundleDir),
			Dir:         bundleDir,
			RuleFile:    ruleFile,
			MatchedRule: matched,
			Outcomes:    r.ReconcileBundle(bundleDir),
		})
	}

	return report, nil
}

// DiscoverRuleFiles returns every match rule file under the reference set
// root in lexical order
func (r *Reconciler) DiscoverRuleFiles() ([]string, error) {
	var files []string

	err := filepath.WalkDir(r.commonDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == RuleFileName {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover match rule files in %s: %w", r.commonDir, err)
	}

	return files, nil
}

// LoadRules parses a match rule file into its ordered list of paths
func LoadRules(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	var rules []string
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	return rules, nil
}

// Activate reports the first listed path of the rule file that exists in
// the repository. Paths that do not exist are ignored.
func (r *Reconciler) Activate(ruleFile string) (string, bool, error) {
	rules, err := LoadRules(ruleFile)
	if err != nil {
		return "", false, err
	}

	for _, rule := range rules {
		if rule == "" {
			continue
		}
		if _, err := os.Stat(r.repoPath(rule)); err == nil {
			return rule, true, nil
		}
	}

	return "", false, nil
}

// ReconcileBundle compares every entry of the bundle directory with the
// same relative path in the repository
func (r *Reconciler) ReconcileBundle(bundleDir string) []Outcome {
	r.logger.Debug("checking common files in bundle", "bundle", bundleDir)

	outcomes := make([]Outcome, 0)
	bundle := r.bundleName(bundleDir)

	err := filepath.WalkDir(bundleDir, func(path string, d fs.DirEntry, err error) error {
		relPath, relErr := filepath.Rel(bundleDir, path)
		if relErr != nil {
			return relErr
		}
		if err != nil {
			// Unreadable subtree; record it and keep walking siblings
			outcomes = append(outcomes, Outcome{
				Bundle:        bundle,
				RelPath:       relPath,
				Kind:          KindError,
				Detail:        err.Error(),
				ReferencePath: path,
				TargetPath:    r.repoPath(relPath),
				Err:           &IOError{Path: path, Err: err},
			})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == bundleDir {
			return nil
		}

		outcome := r.reconcileEntry(bundle, relPath, path, d)
		r.logOutcome(outcome)
		outcomes = append(outcomes, outcome)
		return nil
	})
	if err != nil {
		r.logger.Warn("bundle walk stopped early", "bundle", bundleDir, "error", err)
	}

	return outcomes
}

// reconcileEntry applies the per-entry rules in priority order
func (r *Reconciler) reconcileEntry(bundle, relPath, refPath string, d fs.DirEntry) Outcome {
	outcome := Outcome{
		Bundle:        bundle,
		RelPath:       relPath,
		ReferencePath: refPath,
		TargetPath:    r.repoPath(relPath),
		IsDir:         d.IsDir(),
	}

	// WalkDir does not follow links; a link to a directory is a directory
	if d.Type()&fs.ModeSymlink != 0 {
		if info, err := os.Stat(refPath); err == nil {
			outcome.IsDir = info.IsDir()
		}
	}

	if d.Name() == RuleFileName {
		outcome.Kind = KindSkipped
		outcome.Detail = "match rule file"
		return outcome
	}

	if _, err := os.Stat(outcome.TargetPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			outcome.Kind = KindMissing
			outcome.Detail = "file does not exist in repository"
			return outcome
		}
		outcome.Kind = KindError
		outcome.Err = &IOError{Path: outcome.TargetPath, Err: err}
		outcome.Detail = outcome.Err.Error()
		return outcome
	}

	if outcome.IsDir {
		outcome.Kind = KindSkipped
		outcome.Detail = "directory"
		return outcome
	}

	refHash, err := fileHash(refPath)
	if err != nil {
		outcome.Kind = KindError
		outcome.Err = &IOError{Path: refPath, Err: err}
		outcome.Detail = outcome.Err.Error()
		return outcome
	}
	targetHash, err := fileHash(outcome.TargetPath)
	if err != nil {
		outcome.Kind = KindError
		outcome.Err = &IOError{Path: outcome.TargetPath, Err: err}
		outcome.Detail = outcome.Err.Error()
		return outcome
	}

	if refHash == targetHash {
		outcome.Kind = KindMatch
		outcome.Detail = "file checksum match"
		return outcome
	}

	outcome.Kind = KindMismatch
	outcome.Detail = fmt.Sprintf("file checksum does not match: repo %s (%s), common %s (%s)",
		outcome.TargetPath, shortHash(targetHash), outcome.ReferencePath, shortHash(refHash))
	return outcome
}

func (r *Reconciler) logOutcome(o Outcome) {
	switch o.Kind {
	case KindMatch, KindSkipped:
		r.logger.Debug("common file checked", "bundle", o.Bundle, "path", o.RelPath, "kind", o.Kind)
	default:
		r.logger.Debug("common file failed", "bundle", o.Bundle, "path", o.RelPath, "kind", o.Kind, "detail", o.Detail)
	}
}

// repoPath maps a repository-relative path onto the repository root
func (r *Reconciler) repoPath(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(r.repoDir, rel)
}

func (r *Reconciler) bundleName(bundleDir string) string {
	name, err := filepath.Rel(r.commonDir, bundleDir)
	if err != nil {
		return bundleDir
	}
	return filepath.ToSlash(name)
}

// fileHash computes the SHA256 hash of a file
func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
