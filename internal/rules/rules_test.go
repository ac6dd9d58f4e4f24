package rules

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func TestResolve_HostAndSystem(t *testing.T) {
	repo := t.TempDir()
	state := t.TempDir()
	writeFile(t, filepath.Join(repo, "docs", "rules.md"), "# Host rules\nuse tabs")
	systemPath := filepath.Join(state, "rules", "agents.md")
	writeFile(t, systemPath, "# System rules\nno force push")

	merged := New(systemPath).Resolve(repo)

	// Host content comes first, verbatim, then the separator, then system.
	if !strings.HasPrefix(merged, "# Host rules\nuse tabs") {
		t.Errorf("merged text must start with host rules:\n%s", merged)
	}
	if !strings.Contains(merged, Separator) {
		t.Errorf("merged text missing separator:\n%s", merged)
	}
	hostIdx := strings.Index(merged, "use tabs")
	sysIdx := strings.Index(merged, "no force push")
	if hostIdx < 0 || sysIdx < 0 || hostIdx > sysIdx {
		t.Errorf("host rules must precede system rules:\n%s", merged)
	}
}

func TestResolve_HostOnly(t *testing.T) {
	repo := t.TempDir()
	writeFile(t, filepath.Join(repo, "docs", "rules.md"), "host only")

	merged := New(filepath.Join(t.TempDir(), "missing.md")).Resolve(repo)
	if merged != "host only" {
		t.Errorf("expected host rules verbatim, got %q", merged)
	}
}

func TestResolve_SystemOnly(t *testing.T) {
	systemPath := filepath.Join(t.TempDir(), "agents.md")
	writeFile(t, systemPath, "system only")

	merged := New(systemPath).Resolve(t.TempDir())
	if merged != "system only" {
		t.Errorf("expected system rules verbatim, got %q", merged)
	}
}

func TestResolve_NeitherPresent(t *testing.T) {
	merged := New(filepath.Join(t.TempDir(), "agents.md")).Resolve(t.TempDir())
	if merged != Fallback {
		t.Errorf("expected fallback notice, got %q", merged)
	}
}

func TestResolve_RulesDirectoryConcatenated(t *testing.T) {
	repo := t.TempDir()
	writeFile(t, filepath.Join(repo, "docs", "rules", "20-style.md"), "style rules")
	writeFile(t, filepath.Join(repo, "docs", "rules", "10-safety.md"), "safety rules")
	writeFile(t, filepath.Join(repo, "docs", "rules", "notes.txt"), "ignored")

	merged := New(filepath.Join(t.TempDir(), "missing.md")).Resolve(repo)

	safety := strings.Index(merged, "safety rules")
	style := strings.Index(merged, "style rules")
	if safety < 0 || style < 0 || safety > style {
		t.Errorf("directory rules must concatenate in name order:\n%s", merged)
	}
	if strings.Contains(merged, "ignored") {
		t.Errorf("non-markdown files must be skipped:\n%s", merged)
	}
}

func TestResolve_SingleFileWinsOverDirectory(t *testing.T) {
	repo := t.TempDir()
	writeFile(t, filepath.Join(repo, "docs", "rules.md"), "single file")
	writeFile(t, filepath.Join(repo, "docs", "rules", "extra.md"), "from dir")

	merged := New(filepath.Join(t.TempDir(), "missing.md")).Resolve(repo)
	if merged != "single file" {
		t.Errorf("docs/rules.md must shadow docs/rules/, got %q", merged)
	}
}

func TestResolve_MergedLayoutExact(t *testing.T) {
	repo := t.TempDir()
	state := t.TempDir()
	writeFile(t, filepath.Join(repo, "docs", "rules.md"), "host text")
	systemPath := filepath.Join(state, "rules", "agents.md")
	writeFile(t, systemPath, "system text")

	merged := New(systemPath).Resolve(repo)

	// The separator keeps a blank line between the rule marker and the
	// heading, so downstream prompt consumers see the exact layout.
	want := "host text\n\n---\n\n# TaskArena Agent Rules\n\nsystem text"
	if merged != want {
		t.Errorf("merged layout mismatch:\ngot:  %q\nwant: %q", merged, want)
	}
}
