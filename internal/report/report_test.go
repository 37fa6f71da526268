package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schaermu/repohealth/internal/common"
	"github.com/schaermu/repohealth/internal/health"
)

func sampleReport() *common.Report {
	return &common.Report{
		CommonDir: "/opt/common",
		RepoDir:   "/src/widget",
		RuleFiles: []string{"/opt/common/go/match.yml", "/opt/common/bad/match.yml"},
		Bundles: []common.BundleReport{
			{
				Name:        "go",
				Dir:         "/opt/common/go",
				RuleFile:    "/opt/common/go/match.yml",
				MatchedRule: "go.mod",
				Outcomes: []common.Outcome{
					{Bundle: "go", RelPath: ".golangci.yml", Kind: common.KindMatch, ReferencePath: "/opt/common/go/.golangci.yml", TargetPath: "/src/widget/.golangci.yml"},
					{Bundle: "go", RelPath: "LICENSE", Kind: common.KindMismatch, ReferencePath: "/opt/common/go/LICENSE", TargetPath: "/src/widget/LICENSE"},
					{Bundle: "go", RelPath: "Makefile", Kind: common.KindMissing, ReferencePath: "/opt/common/go/Makefile", TargetPath: "/src/widget/Makefile"},
					{Bundle: "go", RelPath: "match.yml", Kind: common.KindSkipped, Detail: "match rule file"},
				},
			},
		},
		ConfigErrors: []*common.ConfigError{
			{Path: "/opt/common/bad/match.yml", Err: errors.New("yaml: cannot unmarshal")},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	_, err = ParseFormat("yaml")
	assert.Error(t, err)
}

func TestPrinterSummary(t *testing.T) {
	summary := &health.Summary{Results: []health.Result{
		{Name: "logo_exists", Status: health.StatusFail, Message: "logo.svg not found"},
		{Name: "security_exists", Status: health.StatusPass},
		{Name: "community_health", Status: health.StatusSkip, Message: "Offline mode"},
		{Name: "common_files", Status: health.StatusFail, Message: "1 mismatched", Common: sampleReport()},
	}}

	var buf bytes.Buffer
	NewPrinter(&buf, false).Summary(summary)
	out := buf.String()

	assert.Contains(t, out, "logo_exists\tlogo.svg not found")
	assert.Contains(t, out, "security_exists")
	assert.Contains(t, out, "community_health\tOffline mode")
	assert.Contains(t, out, "\t\t")
	assert.Contains(t, out, "bundle go matched rule go.mod")
	assert.Contains(t, out, "file checksum match: /src/widget/.golangci.yml")
	assert.Contains(t, out, "repo_filename: /src/widget/LICENSE")
	assert.Contains(t, out, "common_filename: /opt/common/go/LICENSE")
	assert.Contains(t, out, "vimdiff /src/widget/LICENSE /opt/common/go/LICENSE")
	assert.Contains(t, out, "cp /opt/common/go/Makefile /src/widget/Makefile")
	assert.Contains(t, out, "invalid match rule file /opt/common/bad/match.yml")
	assert.Contains(t, out, "2 of 4 check(s) failed")
}

func TestPrinterCommon_Quiet(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, true).Common(sampleReport())
	out := buf.String()

	assert.NotContains(t, out, "file checksum match")
	assert.NotContains(t, out, "match rule file match.yml")
	assert.Contains(t, out, "/src/widget/Makefile does not exist")
	assert.Contains(t, out, "common files do not match")
}

func TestPrinterCommon_Healthy(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, false).Common(&common.Report{CommonDir: "/opt/common"})
	assert.Contains(t, buf.String(), "common files match")
}

func TestWriteSummaryJSON(t *testing.T) {
	summary := &health.Summary{Results: []health.Result{
		{Name: "common_files", Status: health.StatusFail, Message: "x", Common: sampleReport()},
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteSummaryJSON(&buf, summary))

	var doc struct {
		Healthy bool `json:"healthy"`
		Results []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
			Common struct {
				Bundles []struct {
					Outcomes []struct {
						RelPath string `json:"relative_path"`
						Kind    string `json:"kind"`
					} `json:"outcomes"`
				} `json:"bundles"`
				ConfigErrors []struct {
					Path  string `json:"path"`
					Error string `json:"error"`
				} `json:"config_errors"`
			} `json:"common"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.False(t, doc.Healthy)
	require.Len(t, doc.Results, 1)
	assert.Equal(t, "fail", doc.Results[0].Status)
	require.Len(t, doc.Results[0].Common.Bundles, 1)
	assert.Equal(t, "MISMATCH", doc.Results[0].Common.Bundles[0].Outcomes[1].Kind)
	require.Len(t, doc.Results[0].Common.ConfigErrors, 1)
	assert.Equal(t, "yaml: cannot unmarshal", doc.Results[0].Common.ConfigErrors[0].Error)
}

func TestWriteCommonJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCommonJSON(&buf, sampleReport()))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, false, doc["healthy"])
	assert.Equal(t, "/opt/common", doc["common_dir"])
	assert.Len(t, doc["bundles"], 1)
}
