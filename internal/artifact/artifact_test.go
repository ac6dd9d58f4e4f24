package artifact

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteAndRead(t *testing.T) {
	w := NewWriter(t.TempDir())

	if err := w.Write("repo-abcd1234", "job-1", PlanStdout, "the plan"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := w.Read("repo-abcd1234", "job-1", PlanStdout)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got != "the plan" {
		t.Errorf("expected %q, got %q", "the plan", got)
	}
}

func TestDirNamespacing(t *testing.T) {
	w := NewWriter("/patches")

	// Same repo, different jobs: separate directories.
	if w.Dir("repo-aaaa0000", "j1") == w.Dir("repo-aaaa0000", "j2") {
		t.Error("jobs with the same repo key must not share a directory")
	}
	// Same id, different repos: separate directories.
	if w.Dir("repo-aaaa0000", "j1") == w.Dir("repo-bbbb1111", "j1") {
		t.Error("jobs with coinciding ids must not share a directory across repos")
	}
}

func TestList_Empty(t *testing.T) {
	w := NewWriter(t.TempDir())

	infos, err := w.List("repo-abcd1234", "never-written")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("expected no artifacts, got %d", len(infos))
	}
}

func TestList_SortedWithHashes(t *testing.T) {
	w := NewWriter(t.TempDir())

	w.Write("rk", "j", PlanStderr, "warnings")
	w.Write("rk", "j", PlanStdout, "the plan")

	infos, err := w.List("rk", "j")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(infos))
	}
	if infos[0].Name != PlanStderr || infos[1].Name != PlanStdout {
		t.Errorf("artifacts not sorted by name: %v", infos)
	}
	if infos[0].Hash == infos[1].Hash {
		t.Error("differing content must produce differing hashes")
	}
	if infos[1].Size != int64(len("the plan")) {
		t.Errorf("wrong size: %d", infos[1].Size)
	}
}

// Re-reading unchanged content yields the identical hash, so a polling
// consumer can tell "nothing new" from new output.
func TestList_StableHashAcrossPolls(t *testing.T) {
	w := NewWriter(t.TempDir())
	w.Write("rk", "j", ApplyStdout, "applied")

	first, _ := w.List("rk", "j")
	second, _ := w.List("rk", "j")
	if first[0].Hash != second[0].Hash {
		t.Error("hash must be stable for unchanged content")
	}

	w.Write("rk", "j", ApplyStdout, "applied more")
	third, _ := w.List("rk", "j")
	if third[0].Hash == first[0].Hash {
		t.Error("hash must change when content changes")
	}
}

func TestWrite_Overwrite(t *testing.T) {
	w := NewWriter(t.TempDir())

	w.Write("rk", "j", ErrorFile, "first")
	w.Write("rk", "j", ErrorFile, "second")

	got, err := w.Read("rk", "j", ErrorFile)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got != "second" {
		t.Errorf("expected overwrite, got %q", got)
	}
}

func TestRead_RejectsTraversal(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root)

	secret := filepath.Join(root, "secret.txt")
	if err := os.WriteFile(secret, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := w.Read("rk", "j", "../../secret.txt"); err == nil ||
		!strings.Contains(err.Error(), "invalid artifact name") {
		t.Errorf("expected traversal rejection, got %v", err)
	}
}
