package common

import (
	"fmt"
	"strings"
)

// Kind classifies the result of reconciling a single entry
type Kind string

const (
	KindMatch    Kind = "MATCH"
	KindMismatch Kind = "MISMATCH"
	KindSkipped  Kind = "SKIPPED"
	KindMissing  Kind = "MISSING"
	KindError    Kind = "ERROR"
)

// Failed reports whether the kind makes a bundle unhealthy
func (k Kind) Failed() bool {
	return k != KindMatch && k != KindSkipped
}

// Outcome is the reconciliation record for one entry of a bundle
type Outcome struct {
	Bundle        string `json:"bundle"`        // bundle path relative to the reference set root
	RelPath       string `json:"relative_path"` // entry path relative to the bundle
	Kind          Kind   `json:"kind"`
	Detail        string `json:"detail,omitempty"`
	ReferencePath string `json:"reference_path"` // absolute path in the reference set
	TargetPath    string `json:"target_path"`    // absolute path in the repository
	IsDir         bool   `json:"is_dir,omitempty"`
	Err           error  `json:"-"`
}

// DiffCommand returns a command line for inspecting a mismatch
func (o Outcome) DiffCommand() string {
	return fmt.Sprintf("vimdiff %s %s", shellQuote(o.TargetPath), shellQuote(o.ReferencePath))
}

// CopyCommand returns a command line that would overwrite the repository
// file with the canonical one. It is only ever suggested.
func (o Outcome) CopyCommand() string {
	if o.IsDir {
		return fmt.Sprintf("cp -r %s %s", shellQuote(o.ReferencePath), shellQuote(o.TargetPath))
	}
	return fmt.Sprintf("cp %s %s", shellQuote(o.ReferencePath), shellQuote(o.TargetPath))
}

// BundleReport holds the outcomes of one activated bundle
type BundleReport struct {
	Name        string    `json:"name"`
	Dir         string    `json:"dir"`
	RuleFile    string    `json:"rule_file"`
	MatchedRule string    `json:"matched_rule"`
	Outcomes    []Outcome `json:"outcomes"`
}

// Healthy is true when every outcome is MATCH or SKIPPED
func (b *BundleReport) Healthy() bool {
	for _, o := range b.Outcomes {
		if o.Kind.Failed() {
			return false
		}
	}
	return true
}

// Report is the result of a full reconciliation run
type Report struct {
	CommonDir    string         `json:"common_dir"`
	RepoDir      string         `json:"repo_dir"`
	RuleFiles    []string       `json:"rule_files"`
	Bundles      []BundleReport `json:"bundles"`
	ConfigErrors []*ConfigError `json:"config_errors,omitempty"`
}

// Healthy is true when every activated bundle is healthy and every rule
// file could be parsed
func (r *Report) Healthy() bool {
	if len(r.ConfigErrors) > 0 {
		return false
	}
	for i := range r.Bundles {
		if !r.Bundles[i].Healthy() {
			return false
		}
	}
	return true
}

// Outcomes flattens the outcomes of all bundles in run order
func (r *Report) Outcomes() []Outcome {
	var all []Outcome
	for _, b := range r.Bundles {
		all = append(all, b.Outcomes...)
	}
	return all
}

// Counts tallies outcomes by kind
func (r *Report) Counts() map[Kind]int {
	counts := make(map[Kind]int)
	for _, o := range r.Outcomes() {
		counts[o.Kind]++
	}
	return counts
}

// shellQuote wraps s in single quotes when it contains characters a shell
// would interpret.
func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$`*?[]{}()<>|&;#~!") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
