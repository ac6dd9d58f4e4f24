package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/DevangML/TaskArena/pkg/api"
)

func TestLogsCommand_RunHistory(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/runs" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(api.ListRunsResponse{
			Runs: []api.RunLogResponse{
				{ID: "job-1", RepoKey: "demo-deadbeef", OK: true},
				{ID: "job-2", RepoKey: "demo-deadbeef", OK: false, Error: "Apply step failed (exit 1)"},
			},
		})
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"logs"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "job-1") || !strings.Contains(output, "job-2") {
		t.Errorf("expected both runs in output, got: %s", output)
	}
	if !strings.Contains(output, "Apply step failed (exit 1)") {
		t.Errorf("expected failure reason in output, got: %s", output)
	}
}

func TestLogsCommand_List(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/jobs/job-1/artifacts") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(api.ListArtifactsResponse{
			ID:      "job-1",
			RepoKey: "demo-deadbeef",
			Artifacts: []api.ArtifactInfo{
				{Name: "plan.stdout.txt", Size: 42, Hash: "aabbccddeeff00112233"},
				{Name: "apply.stdout.txt", Size: 7, Hash: "ffeeddccbbaa99887766"},
				// A skewed daemon may send a short or empty hash.
				{Name: "error.txt", Size: 3, Hash: "ab"},
			},
		})
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"logs", "job-1"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "plan.stdout.txt") || !strings.Contains(output, "apply.stdout.txt") {
		t.Errorf("expected artifact names in output, got: %s", output)
	}
	if !strings.Contains(output, "error.txt") {
		t.Errorf("expected short-hash artifact in output, got: %s", output)
	}
}

func TestLogsCommand_PrintArtifact(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/jobs/job-1/artifacts/plan.stdout.txt") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("1. Edit main.go\n2. Run tests\n"))
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"logs", "job-1", "plan.stdout.txt"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stdout.String() != "1. Edit main.go\n2. Run tests\n" {
		t.Errorf("expected raw artifact content, got: %q", stdout.String())
	}
}

func TestLogsCommand_ArtifactMissing(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "Artifact not found"}`))
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"logs", "job-1", "nope.txt"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "Logs failed (404)") {
		t.Errorf("expected 404 error in output, got: %s", stdout.String())
	}
}
