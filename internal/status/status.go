// Package status provides the read-only view a progress consumer polls:
// the queue stage of a job, its artifact set, and its final run-log record.
// All reads tolerate partial state; a job may have any subset present.
package status

import (
	"fmt"

	"github.com/DevangML/TaskArena/internal/artifact"
	"github.com/DevangML/TaskArena/internal/queue"
	"github.com/DevangML/TaskArena/internal/runlog"
	"github.com/DevangML/TaskArena/pkg/api"
)

// Reader aggregates the three read surfaces. It never mutates any of them.
type Reader struct {
	queue     *queue.Store
	artifacts *artifact.Writer
	log       *runlog.Logger
}

// NewReader creates a status reader over the daemon's state.
func NewReader(q *queue.Store, a *artifact.Writer, l *runlog.Logger) *Reader {
	return &Reader{queue: q, artifacts: a, log: l}
}

// Job reports the current lifecycle stage of a job and, once terminal, its
// run-log outcome.
func (r *Reader) Job(id string) (*api.JobStatusResponse, error) {
	resp := &api.JobStatusResponse{
		ID:    id,
		Stage: string(r.queue.Stage(id)),
	}

	entry, err := r.log.Find(id)
	if err != nil {
		return nil, fmt.Errorf("failed to read run log: %w", err)
	}
	if entry != nil {
		resp.Result = &api.RunLogResponse{
			ID:      entry.ID,
			Dir:     entry.Dir,
			RepoKey: entry.RepoKey,
			OK:      entry.OK,
			TS:      entry.TS,
			Error:   entry.Error,
		}
	}
	return resp, nil
}

// Runs returns the most recent n run-log outcomes, oldest first.
func (r *Reader) Runs(n int) (*api.ListRunsResponse, error) {
	entries, err := r.log.Tail(n)
	if err != nil {
		return nil, fmt.Errorf("failed to read run log: %w", err)
	}
	resp := &api.ListRunsResponse{Runs: make([]api.RunLogResponse, 0, len(entries))}
	for _, entry := range entries {
		resp.Runs = append(resp.Runs, api.RunLogResponse{
			ID:      entry.ID,
			Dir:     entry.Dir,
			RepoKey: entry.RepoKey,
			OK:      entry.OK,
			TS:      entry.TS,
			Error:   entry.Error,
		})
	}
	return resp, nil
}

// repoKey recovers the artifact namespace for a job, from the descriptor if
// it still exists, else from the run log.
func (r *Reader) repoKey(id string) (string, error) {
	job, _, err := r.queue.Load(id)
	if err == nil && job != nil {
		return job.RepoKey, nil
	}
	entry, lerr := r.log.Find(id)
	if lerr == nil && entry != nil {
		return entry.RepoKey, nil
	}
	if err != nil {
		return "", err
	}
	return "", nil
}

// Artifacts lists the artifact files of a job. A job that has produced
// nothing yet (or is unknown) lists as empty.
func (r *Reader) Artifacts(id string) (*api.ListArtifactsResponse, error) {
	resp := &api.ListArtifactsResponse{ID: id}

	repoKey, err := r.repoKey(id)
	if err != nil {
		return nil, err
	}
	if repoKey == "" {
		return resp, nil
	}
	resp.RepoKey = repoKey

	infos, err := r.artifacts.List(repoKey, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	for _, info := range infos {
		resp.Artifacts = append(resp.Artifacts, api.ArtifactInfo{
			Name: info.Name,
			Size: info.Size,
			Hash: info.Hash,
		})
	}
	return resp, nil
}

// Artifact returns the raw content of one artifact file.
func (r *Reader) Artifact(id, name string) (string, error) {
	repoKey, err := r.repoKey(id)
	if err != nil {
		return "", err
	}
	if repoKey == "" {
		return "", fmt.Errorf("unknown job %s", id)
	}
	return r.artifacts.Read(repoKey, id, name)
}
