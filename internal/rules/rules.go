// Package rules locates and merges change-request guidance: rules kept in
// the target repository (host rules) and rules owned by the TaskArena
// installation (system rules). Host rules always come first in the merged
// text and take precedence on conflict.
package rules

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Separator marks the boundary between host and system rules in merged text.
const Separator = "---\n\n# TaskArena Agent Rules"

// Fallback is used when neither host nor system rules exist.
const Fallback = "No additional rules available."

// Resolver computes merged rule text per job. It holds no per-job state.
type Resolver struct {
	// SystemRulesPath is the fixed, installation-owned rules file.
	SystemRulesPath string
}

// New creates a resolver reading system rules from the given path.
func New(systemRulesPath string) *Resolver {
	return &Resolver{SystemRulesPath: systemRulesPath}
}

// Resolve returns the merged rule text for one repository. Absence of either
// source is not an error; the result degrades to whichever side is present,
// or a fallback notice when both are missing.
func (r *Resolver) Resolve(repoDir string) string {
	host := hostRules(repoDir)
	system := readFile(r.SystemRulesPath)

	switch {
	case host != "" && system != "":
		return strings.Join([]string{host, Separator, system}, "\n\n")
	case host != "":
		return host
	case system != "":
		return system
	default:
		return Fallback
	}
}

// hostRules prefers a single docs/rules.md file; otherwise it concatenates
// every docs/rules/*.md in name order.
func hostRules(repoDir string) string {
	if text := readFile(filepath.Join(repoDir, "docs", "rules.md")); text != "" {
		return text
	}

	dir := filepath.Join(repoDir, "docs", "rules")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".md") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var chunks []string
	for _, name := range names {
		if text := readFile(filepath.Join(dir, name)); text != "" {
			chunks = append(chunks, text)
		}
	}
	return strings.Join(chunks, "\n\n")
}

// readFile returns the file content, or empty on any read failure.
func readFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}
