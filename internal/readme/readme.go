// Package readme extracts badge and link information from a README without
// rendering it.
package readme

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Badge is a shields.io static badge decoded from its URL path
type Badge struct {
	Label   string
	Message string
	Color   string
}

// Load reads the README at path
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read README: %w", err)
	}
	return string(data), nil
}

// FindLine returns the first line containing every keyword
func FindLine(content string, keywords ...string) (string, bool) {
	for _, line := range strings.Split(content, "\n") {
		if containsAll(line, keywords) {
			return strings.TrimRight(line, "\r"), true
		}
	}
	return "", false
}

func containsAll(line string, keywords []string) bool {
	for _, kw := range keywords {
		if !strings.Contains(line, kw) {
			return false
		}
	}
	return true
}

// ParseBadge finds the first shields.io badge URL in line and decodes it.
// Label and message are lower-cased.
func ParseBadge(line string) (Badge, bool) {
	const marker = "shields.io/badge/"

	idx := strings.Index(line, marker)
	if idx < 0 {
		return Badge{}, false
	}

	raw := line[idx+len(marker):]
	if end := strings.IndexAny(raw, ")?\"' >]#"); end >= 0 {
		raw = raw[:end]
	}
	raw = strings.TrimSuffix(raw, ".svg")

	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}

	parts := splitDashed(raw)
	switch len(parts) {
	case 2:
		// label omitted: /badge/<message>-<color>
		return Badge{Message: decodeText(parts[0]), Color: parts[1]}, true
	case 3:
		return Badge{
			Label:   decodeText(parts[0]),
			Message: decodeText(parts[1]),
			Color:   parts[2],
		}, true
	default:
		return Badge{}, false
	}
}

// ParseDashedPair splits a "key-value" identifier such as a repository
// topic at its first dash
func ParseDashedPair(s string) (string, string, bool) {
	key, value, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "-")
	if !ok || key == "" || value == "" {
		return "", "", false
	}
	return key, value, true
}

// splitDashed splits on single dashes; "--" is an escaped literal dash
func splitDashed(s string) []string {
	var parts []string
	var cur strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '-' {
			cur.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == '-' {
			cur.WriteString("--")
			i++
			continue
		}
		parts = append(parts, cur.String())
		cur.Reset()
	}
	return append(parts, cur.String())
}

// decodeText applies shields.io escaping rules: "--" is a dash, "__" an
// underscore and "_" a space
func decodeText(s string) string {
	s = strings.ReplaceAll(s, "--", "\x00")
	s = strings.ReplaceAll(s, "__", "\x01")
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "\x00", "-")
	s = strings.ReplaceAll(s, "\x01", "_")
	return strings.ToLower(strings.TrimSpace(s))
}
