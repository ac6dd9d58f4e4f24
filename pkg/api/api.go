// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and the TaskArena daemon.
package api

import "time"

// SubmitJobRequest is the request body for submitting a change request.
type SubmitJobRequest struct {
	Dir    string `json:"dir"`
	Prompt string `json:"prompt"`
}

// SubmitJobResponse is the response body after a job has been enqueued.
type SubmitJobResponse struct {
	ID      string `json:"id"`
	RepoKey string `json:"repo_key"`
}

// JobStatusResponse is the response body for job status queries.
// Stage mirrors the queue directory currently holding the descriptor.
type JobStatusResponse struct {
	ID     string          `json:"id"`
	Stage  string          `json:"stage"`
	Result *RunLogResponse `json:"result,omitempty"`
}

// RunLogResponse is the final outcome record of a job, taken from the run log.
type RunLogResponse struct {
	ID      string    `json:"id"`
	Dir     string    `json:"dir"`
	RepoKey string    `json:"repo_key"`
	OK      bool      `json:"ok"`
	TS      time.Time `json:"ts"`
	Error   string    `json:"error,omitempty"`
}

// ListRunsResponse is the response body for run history queries, most
// recent outcome last.
type ListRunsResponse struct {
	Runs []RunLogResponse `json:"runs"`
}

// ArtifactInfo describes a single artifact file of a job.
// Hash is the hex SHA-256 of the content, so consumers can tell
// re-read unchanged content apart from new output.
type ArtifactInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Hash string `json:"hash"`
}

// ListArtifactsResponse is the response body for artifact listings.
type ListArtifactsResponse struct {
	ID        string         `json:"id"`
	RepoKey   string         `json:"repo_key"`
	Artifacts []ArtifactInfo `json:"artifacts"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Queue stages as exposed by the status API.
const (
	StageInbox   = "inbox"
	StageRunning = "running"
	StageDone    = "done"
	StageFailed  = "failed"
	StageUnknown = "unknown"
)
