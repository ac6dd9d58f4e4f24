package status

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/DevangML/TaskArena/internal/artifact"
	"github.com/DevangML/TaskArena/internal/queue"
	"github.com/DevangML/TaskArena/internal/runlog"
	"github.com/DevangML/TaskArena/pkg/api"
)

type fixture struct {
	queue     *queue.Store
	artifacts *artifact.Writer
	log       *runlog.Logger
	reader    *Reader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()

	q, err := queue.Open(filepath.Join(root, "queue"))
	if err != nil {
		t.Fatalf("queue.Open failed: %v", err)
	}
	a := artifact.NewWriter(filepath.Join(root, "patches"))
	l, err := runlog.New(filepath.Join(root, "logs", "run.jsonl"))
	if err != nil {
		t.Fatalf("runlog.New failed: %v", err)
	}
	return &fixture{queue: q, artifacts: a, log: l, reader: NewReader(q, a, l)}
}

func enqueue(t *testing.T, f *fixture, id string) *queue.Job {
	t.Helper()
	job := &queue.Job{
		ID:        id,
		Dir:       "/repo/a",
		Prompt:    "do things",
		RepoKey:   queue.RepoKey("/repo/a"),
		CreatedAt: time.Now().UTC(),
	}
	if err := f.queue.Enqueue(job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	return job
}

func TestJob_InboxStage(t *testing.T) {
	f := newFixture(t)
	enqueue(t, f, "j1")

	resp, err := f.reader.Job("j1")
	if err != nil {
		t.Fatalf("Job failed: %v", err)
	}
	if resp.Stage != api.StageInbox {
		t.Errorf("expected inbox, got %s", resp.Stage)
	}
	if resp.Result != nil {
		t.Error("no result expected before the job is terminal")
	}
}

func TestJob_UnknownID(t *testing.T) {
	f := newFixture(t)

	resp, err := f.reader.Job("ghost")
	if err != nil {
		t.Fatalf("Job failed: %v", err)
	}
	if resp.Stage != api.StageUnknown || resp.Result != nil {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestJob_TerminalWithResult(t *testing.T) {
	f := newFixture(t)
	job := enqueue(t, f, "j2")
	f.queue.ClaimNext()
	f.queue.Finalize("j2", false)
	f.log.Append(runlog.Entry{ID: "j2", Dir: job.Dir, RepoKey: job.RepoKey, OK: false, Error: "Plan step failed"})

	resp, err := f.reader.Job("j2")
	if err != nil {
		t.Fatalf("Job failed: %v", err)
	}
	if resp.Stage != api.StageFailed {
		t.Errorf("expected failed, got %s", resp.Stage)
	}
	if resp.Result == nil || resp.Result.OK || resp.Result.Error != "Plan step failed" {
		t.Errorf("unexpected result: %+v", resp.Result)
	}
}

func TestArtifacts_PartialThenComplete(t *testing.T) {
	f := newFixture(t)
	job := enqueue(t, f, "j3")

	// Nothing written yet: empty, not an error.
	resp, err := f.reader.Artifacts("j3")
	if err != nil {
		t.Fatalf("Artifacts failed: %v", err)
	}
	if len(resp.Artifacts) != 0 {
		t.Errorf("expected no artifacts, got %v", resp.Artifacts)
	}

	f.artifacts.Write(job.RepoKey, "j3", artifact.PlanStdout, "plan text")

	resp, err = f.reader.Artifacts("j3")
	if err != nil {
		t.Fatalf("Artifacts failed: %v", err)
	}
	if len(resp.Artifacts) != 1 || resp.Artifacts[0].Name != artifact.PlanStdout {
		t.Errorf("unexpected artifacts: %v", resp.Artifacts)
	}
	if resp.Artifacts[0].Hash == "" {
		t.Error("artifact hash must be populated")
	}
	if resp.RepoKey != job.RepoKey {
		t.Errorf("expected repo key %s, got %s", job.RepoKey, resp.RepoKey)
	}
}

// Artifacts stay reachable after the descriptor reaches a terminal area,
// via the run-log record's repo key.
func TestArtifacts_AfterFinalize(t *testing.T) {
	f := newFixture(t)
	job := enqueue(t, f, "j4")
	f.queue.ClaimNext()
	f.artifacts.Write(job.RepoKey, "j4", artifact.ErrorFile, "boom")
	f.queue.Finalize("j4", false)
	f.log.Append(runlog.Entry{ID: "j4", Dir: job.Dir, RepoKey: job.RepoKey, OK: false, Error: "boom"})

	content, err := f.reader.Artifact("j4", artifact.ErrorFile)
	if err != nil {
		t.Fatalf("Artifact failed: %v", err)
	}
	if content != "boom" {
		t.Errorf("expected %q, got %q", "boom", content)
	}
}

func TestArtifact_UnknownJob(t *testing.T) {
	f := newFixture(t)

	if _, err := f.reader.Artifact("ghost", artifact.PlanStdout); err == nil {
		t.Error("expected error for unknown job")
	}
}

func TestRuns_TailOrder(t *testing.T) {
	f := newFixture(t)

	for _, id := range []string{"a", "b", "c"} {
		if err := f.log.Append(runlog.Entry{ID: id, RepoKey: "repo-00000000", OK: true}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	resp, err := f.reader.Runs(2)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(resp.Runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(resp.Runs))
	}
	if resp.Runs[0].ID != "b" || resp.Runs[1].ID != "c" {
		t.Errorf("expected most recent runs oldest first, got %+v", resp.Runs)
	}
}

func TestRuns_EmptyLog(t *testing.T) {
	f := newFixture(t)

	resp, err := f.reader.Runs(10)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(resp.Runs) != 0 {
		t.Errorf("expected no runs, got %d", len(resp.Runs))
	}
}
