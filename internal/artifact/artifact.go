// Package artifact persists step output per job. Each job owns a directory
// keyed by (repo_key, job_id) under the patches root, so jobs from different
// repositories never collide even when IDs coincide.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Fixed artifact file names.
const (
	PlanStdout  = "plan.stdout.txt"
	PlanStderr  = "plan.stderr.txt"
	ApplyStdout = "apply.stdout.txt"
	ApplyStderr = "apply.stderr.txt"
	ErrorFile   = "error.txt"
)

// Writer persists artifacts under a patches root. Directories are created
// lazily on first write and never deleted.
type Writer struct {
	root string
}

// NewWriter creates an artifact writer rooted at dir.
func NewWriter(root string) *Writer {
	return &Writer{root: root}
}

// Dir returns the artifact directory for one job.
func (w *Writer) Dir(repoKey, jobID string) string {
	return filepath.Join(w.root, repoKey, jobID)
}

// Write stores one artifact file. The job's directory is created on demand.
func (w *Writer) Write(repoKey, jobID, name, content string) error {
	dir := w.Dir(repoKey, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", name, err)
	}
	return nil
}

// Info describes one stored artifact. Hash is the hex SHA-256 of the
// content so consumers can recognize unchanged output across polls.
type Info struct {
	Name string
	Size int64
	Hash string
}

// List enumerates the artifacts for one job, sorted by name. A job with no
// artifact directory yet lists as empty, not as an error.
func (w *Writer) List(repoKey, jobID string) ([]Info, error) {
	dir := w.Dir(repoKey, jobID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	var infos []Info
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read artifact %s: %w", entry.Name(), err)
		}
		sum := sha256.Sum256(data)
		infos = append(infos, Info{
			Name: entry.Name(),
			Size: int64(len(data)),
			Hash: hex.EncodeToString(sum[:]),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Read returns the content of one artifact.
func (w *Writer) Read(repoKey, jobID, name string) (string, error) {
	// Reject traversal out of the job directory.
	if name != filepath.Base(name) {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	data, err := os.ReadFile(filepath.Join(w.Dir(repoKey, jobID), name))
	if err != nil {
		return "", fmt.Errorf("failed to read artifact %s: %w", name, err)
	}
	return string(data), nil
}
