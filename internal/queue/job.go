// Package queue contains the durable file-system job queue.
package queue

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
	"time"
)

// Job is the descriptor of one submitted change request. It is immutable
// after creation; only its location in the queue changes.
type Job struct {
	ID        string    `json:"id"`
	Dir       string    `json:"dir"`
	Prompt    string    `json:"prompt"`
	RepoKey   string    `json:"repo_key"`
	CreatedAt time.Time `json:"created_at"`
}

// RepoKey derives a stable, filesystem-safe identifier from a repository
// path. The key is a sanitized base-name slug plus a short hash of the full
// path, so two repositories with the same name never collide.
func RepoKey(dir string) string {
	slug := strings.ToLower(strings.TrimSpace(filepath.Base(dir)))

	var b strings.Builder
	for _, ch := range slug {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9', ch == '-', ch == '_':
			b.WriteRune(ch)
		default:
			b.WriteRune('-')
		}
	}
	slug = strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "project"
	}

	sum := sha256.Sum256([]byte(dir))
	return slug + "-" + hex.EncodeToString(sum[:])[:8]
}
