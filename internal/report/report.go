// Package report renders checklist and reconciliation results for humans
// (coloured tags on terminals) and machines (JSON).
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/schaermu/repohealth/internal/common"
	"github.com/schaermu/repohealth/internal/health"
)

// Format selects the output renderer
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates an output format name
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("invalid output format: %s (must be text or json)", s)
	}
}

var (
	okColor     = lipgloss.Color("#04B575")
	failedColor = lipgloss.Color("#FF0000")
	subtleColor = lipgloss.Color("#626262")
	hintColor   = lipgloss.Color("#ff7300")
)

// Printer writes text reports. Colours are only emitted when the writer is
// a terminal that supports them.
type Printer struct {
	w     io.Writer
	quiet bool

	ok     lipgloss.Style
	failed lipgloss.Style
	skip   lipgloss.Style
	info   lipgloss.Style
	hint   lipgloss.Style
}

// NewPrinter creates a text printer. When quiet is set, passing and skipped
// file outcomes are left out of common-files details.
func NewPrinter(w io.Writer, quiet bool) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:      w,
		quiet:  quiet,
		ok:     r.NewStyle().Foreground(okColor),
		failed: r.NewStyle().Foreground(failedColor).Bold(true),
		skip:   r.NewStyle().Foreground(subtleColor),
		info:   r.NewStyle().Foreground(subtleColor),
		hint:   r.NewStyle().Foreground(hintColor),
	}
}

func (p *Printer) tag(style lipgloss.Style, label string) string {
	return "[" + style.Render(label) + "]"
}

func (p *Printer) line(indent int, tag, text string) {
	fmt.Fprintf(p.w, "%s%s %s\n", strings.Repeat("\t", indent), tag, text)
}

// Summary prints one line per check, followed by common-files details
func (p *Printer) Summary(s *health.Summary) {
	for _, res := range s.Results {
		text := res.Name
		if res.Message != "" && res.Status != health.StatusPass {
			text += "\t" + res.Message
		}

		switch res.Status {
		case health.StatusPass:
			p.line(0, p.tag(p.ok, "  OK  "), text)
		case health.StatusSkip:
			p.line(0, p.tag(p.skip, " SKIP "), text)
		default:
			p.line(0, p.tag(p.failed, "FAILED"), text)
		}

		if res.Common != nil {
			p.common(1, res.Common)
		}
	}

	failed := len(s.Failed())
	if failed == 0 {
		p.line(0, p.tag(p.ok, "  OK  "), fmt.Sprintf("%d check(s) passed", len(s.Results)))
		return
	}
	p.line(0, p.tag(p.failed, "FAILED"), fmt.Sprintf("%d of %d check(s) failed", failed, len(s.Results)))
}

// Common prints the details of a reconciliation run
func (p *Printer) Common(r *common.Report) {
	p.common(0, r)
	if r.Healthy() {
		p.line(0, p.tag(p.ok, "  OK  "), "common files match")
		return
	}
	p.line(0, p.tag(p.failed, "FAILED"), "common files do not match")
}

func (p *Printer) common(indent int, r *common.Report) {
	p.line(indent, p.tag(p.info, " INFO "), "common dir "+r.CommonDir)

	for _, cfgErr := range r.ConfigErrors {
		p.line(indent, p.tag(p.failed, "FAILED"), cfgErr.Error())
	}

	for _, b := range r.Bundles {
		p.line(indent, p.tag(p.info, " INFO "), fmt.Sprintf("bundle %s matched rule %s", b.Name, b.MatchedRule))
		for _, o := range b.Outcomes {
			p.outcome(indent+1, o)
		}
	}
}

func (p *Printer) outcome(indent int, o common.Outcome) {
	switch o.Kind {
	case common.KindMatch:
		if !p.quiet {
			p.line(indent, p.tag(p.ok, "  OK  "), "file checksum match: "+o.TargetPath)
		}
	case common.KindSkipped:
		if !p.quiet {
			p.line(indent, p.tag(p.skip, " SKIP "), fmt.Sprintf("%s %s", o.Detail, o.RelPath))
		}
	case common.KindMissing:
		p.line(indent, p.tag(p.failed, "FAILED"), o.TargetPath+" does not exist")
		p.line(indent, p.tag(p.hint, " HINT "), o.CopyCommand())
	case common.KindMismatch:
		p.line(indent, p.tag(p.failed, "FAILED"), "file checksum does not match: "+o.RelPath)
		p.line(indent, p.tag(p.failed, "FAILED"), "repo_filename: "+o.TargetPath)
		p.line(indent, p.tag(p.failed, "FAILED"), "common_filename: "+o.ReferencePath)
		p.line(indent, p.tag(p.hint, " HINT "), o.DiffCommand())
		p.line(indent, p.tag(p.hint, " HINT "), o.CopyCommand())
	default:
		p.line(indent, p.tag(p.failed, "FAILED"), fmt.Sprintf("%s: %s", o.RelPath, o.Detail))
	}
}

// summaryDocument is the JSON shape of a checklist run
type summaryDocument struct {
	Healthy bool            `json:"healthy"`
	Results []health.Result `json:"results"`
}

// commonDocument is the JSON shape of a reconciliation run
type commonDocument struct {
	Healthy bool `json:"healthy"`
	*common.Report
}

// WriteSummaryJSON writes a checklist run as indented JSON
func WriteSummaryJSON(w io.Writer, s *health.Summary) error {
	return writeJSON(w, summaryDocument{Healthy: s.Healthy(), Results: s.Results})
}

// WriteCommonJSON writes a reconciliation run as indented JSON
func WriteCommonJSON(w io.Writer, r *common.Report) error {
	return writeJSON(w, commonDocument{Healthy: r.Healthy(), Report: r})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
