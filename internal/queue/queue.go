package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Stage names one of the four holding areas of the queue. A job's lifecycle
// stage is represented purely by which directory holds its descriptor file.
type Stage string

const (
	StageInbox   Stage = "inbox"
	StageRunning Stage = "running"
	StageDone    Stage = "done"
	StageFailed  Stage = "failed"

	// StageUnknown is reported for IDs with no descriptor anywhere.
	StageUnknown Stage = "unknown"
)

var stages = []Stage{StageInbox, StageRunning, StageDone, StageFailed}

// ErrDuplicateID is returned by Enqueue when the job ID already exists
// anywhere in the queue.
var ErrDuplicateID = errors.New("job id already exists in queue")

// ErrNotRunning is returned by Finalize when the descriptor is no longer in
// the running directory. Only external interference can cause this; the job
// is unrecoverable at that point.
var ErrNotRunning = errors.New("descriptor missing from running directory")

// Store is the four-directory job queue. The atomic rename of a descriptor
// file between directories is the only synchronization primitive; this keeps
// the queue correct even across processes sharing one root.
type Store struct {
	root string
}

// Open prepares a queue store rooted at dir, creating the four holding
// areas if needed.
func Open(root string) (*Store, error) {
	for _, st := range stages {
		if err := os.MkdirAll(filepath.Join(root, string(st)), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create queue directory %s: %w", st, err)
		}
	}
	return &Store{root: root}, nil
}

// Root returns the queue root directory.
func (s *Store) Root() string { return s.root }

func (s *Store) path(st Stage, id string) string {
	return filepath.Join(s.root, string(st), id+".json")
}

// Enqueue writes the descriptor into the inbox. The write goes through a
// temp file plus rename so a reader never observes a partial descriptor.
func (s *Store) Enqueue(job *Job) error {
	if job.ID == "" {
		return fmt.Errorf("job id must not be empty")
	}
	if s.Stage(job.ID) != StageUnknown {
		return fmt.Errorf("enqueue %s: %w", job.ID, ErrDuplicateID)
	}

	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal descriptor: %w", err)
	}

	dst := s.path(StageInbox, job.ID)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write descriptor: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to publish descriptor: %w", err)
	}
	return nil
}

// ClaimNext scans the inbox and attempts to move one descriptor into
// running. Whichever caller's rename succeeds owns the job; a rename that
// fails because the source vanished means another worker won the race, and
// the next candidate is tried.
//
// Returns ("", nil, nil) when nothing is claimable. A non-nil ID with a nil
// Job means the claim succeeded but the descriptor content is unreadable;
// the caller owns the job and should fail it.
func (s *Store) ClaimNext() (string, *Job, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, string(StageInbox)))
	if err != nil {
		return "", nil, fmt.Errorf("failed to scan inbox: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")

		src := s.path(StageInbox, id)
		dst := s.path(StageRunning, id)
		if err := os.Rename(src, dst); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// Lost the race; benign.
				continue
			}
			return "", nil, fmt.Errorf("failed to claim %s: %w", id, err)
		}

		data, err := os.ReadFile(dst)
		if err != nil {
			return id, nil, nil
		}
		var job Job
		if err := json.Unmarshal(data, &job); err != nil {
			return id, nil, nil
		}
		return id, &job, nil
	}
	return "", nil, nil
}

// Finalize moves a running descriptor to its terminal directory. Only the
// owning worker may call this for a given ID.
func (s *Store) Finalize(id string, ok bool) error {
	dst := StageFailed
	if ok {
		dst = StageDone
	}
	if err := os.Rename(s.path(StageRunning, id), s.path(dst, id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("finalize %s: %w", id, ErrNotRunning)
		}
		return fmt.Errorf("failed to finalize %s: %w", id, err)
	}
	return nil
}

// Stage reports which holding area currently contains the descriptor for id,
// or StageUnknown if none does.
func (s *Store) Stage(id string) Stage {
	for _, st := range stages {
		if _, err := os.Stat(s.path(st, id)); err == nil {
			return st
		}
	}
	return StageUnknown
}

// Load reads the descriptor for id from whichever area holds it.
func (s *Store) Load(id string) (*Job, Stage, error) {
	for _, st := range stages {
		data, err := os.ReadFile(s.path(st, id))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, StageUnknown, fmt.Errorf("failed to read descriptor %s: %w", id, err)
		}
		var job Job
		if err := json.Unmarshal(data, &job); err != nil {
			return nil, st, fmt.Errorf("failed to parse descriptor %s: %w", id, err)
		}
		return &job, st, nil
	}
	return nil, StageUnknown, nil
}

// Depth returns the number of descriptors waiting in the inbox.
func (s *Store) Depth() (int, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, string(StageInbox)))
	if err != nil {
		return 0, fmt.Errorf("failed to scan inbox: %w", err)
	}
	n := 0
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			n++
		}
	}
	return n, nil
}

// RecoverOrphans moves descriptors stranded in running back to the inbox.
// Called once at daemon startup, before any worker starts: a descriptor in
// running with no live worker belongs to a previous process that crashed.
// Must not be used when multiple daemons share one queue root.
func (s *Store) RecoverOrphans() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, string(StageRunning)))
	if err != nil {
		return nil, fmt.Errorf("failed to scan running: %w", err)
	}

	var recovered []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		if err := os.Rename(s.path(StageRunning, id), s.path(StageInbox, id)); err != nil {
			return recovered, fmt.Errorf("failed to requeue %s: %w", id, err)
		}
		recovered = append(recovered, id)
	}
	return recovered, nil
}
