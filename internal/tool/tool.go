// Package tool runs the external code-generation CLI. The tool's calling
// convention is not assumed: a one-time capability probe picks one of two
// invocation variants, which is then reused for every step in this process.
package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultBinary is the tool binary searched on PATH when no override is set.
const DefaultBinary = "claude"

// ErrToolNotFound indicates the external tool binary could not be located.
// Jobs hitting this fail immediately, with no retry and no apply attempt.
var ErrToolNotFound = errors.New("code-generation tool not found")

// Variant is one of the closed set of invocation conventions.
type Variant int

const (
	// VariantUnknown means the capability probe has not run yet.
	VariantUnknown Variant = iota

	// VariantPrompt passes the full prompt inline: `claude -p <prompt>`.
	VariantPrompt

	// VariantPlanFile writes the prompt to a file and uses the subcommand
	// form: `claude code plan|apply --repo <dir> --plan <file>`.
	VariantPlanFile
)

func (v Variant) String() string {
	switch v {
	case VariantPrompt:
		return "prompt"
	case VariantPlanFile:
		return "planfile"
	default:
		return "unknown"
	}
}

// StepResult captures one tool invocation.
type StepResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor invokes the external tool for plan and apply steps. The probed
// variant is read-mostly state shared by all workers; it is populated once
// per process lifetime.
type Executor struct {
	override     string
	probeTimeout time.Duration
	stepTimeout  time.Duration

	probeOnce sync.Once
	variant   Variant
	binary    string
	probeErr  error
}

// New creates an executor. override, when non-empty, pins the tool binary
// path and skips discovery. stepTimeout of zero means unbounded steps.
func New(override string, probeTimeout, stepTimeout time.Duration) *Executor {
	if probeTimeout <= 0 {
		probeTimeout = 10 * time.Second
	}
	return &Executor{
		override:     override,
		probeTimeout: probeTimeout,
		stepTimeout:  stepTimeout,
	}
}

// resolveBinary locates the tool: explicit override, then PATH, then the
// conventional user-local install location.
func (e *Executor) resolveBinary() (string, error) {
	candidates := make([]string, 0, 3)
	if e.override != "" {
		candidates = append(candidates, e.override)
	} else {
		if p, err := exec.LookPath(DefaultBinary); err == nil {
			candidates = append(candidates, p)
		}
		if home, err := os.UserHomeDir(); err == nil {
			candidates = append(candidates, filepath.Join(home, ".local", "bin", DefaultBinary))
		}
	}

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		if info.Mode()&0o111 == 0 {
			continue
		}
		return candidate, nil
	}
	return "", fmt.Errorf("%w: install %q or set TASKARENA_TOOL", ErrToolNotFound, DefaultBinary)
}

// Probe resolves the binary and detects its calling convention, exactly once
// per process. Subsequent calls return the memoized result.
func (e *Executor) Probe(ctx context.Context) (Variant, error) {
	e.probeOnce.Do(func() {
		e.binary, e.probeErr = e.resolveBinary()
		if e.probeErr != nil {
			return
		}

		probeCtx, cancel := context.WithTimeout(ctx, e.probeTimeout)
		defer cancel()

		cmd := exec.CommandContext(probeCtx, e.binary, "--help")
		var out bytes.Buffer
		cmd.Stdout = &out
		cmd.Stderr = &out
		// A failing --help still tells us the flag surface; only the
		// combined output matters.
		_ = cmd.Run()

		help := out.String()
		if strings.Contains(help, "-p") || strings.Contains(help, "--prompt") {
			e.variant = VariantPrompt
		} else {
			e.variant = VariantPlanFile
		}
	})
	return e.variant, e.probeErr
}

// RunPlan invokes the tool in plan mode. Planning is expected to be
// read-only by the tool's own convention; this is not enforced here.
func (e *Executor) RunPlan(ctx context.Context, job PromptInput, rules string) (StepResult, error) {
	return e.runStep(ctx, "plan", job.Dir, PlanPrompt(job, rules))
}

// RunApply invokes the tool in apply mode, feeding back the approved plan
// output. This is the mutating step.
func (e *Executor) RunApply(ctx context.Context, job PromptInput, rules, planOutput string) (StepResult, error) {
	return e.runStep(ctx, "apply", job.Dir, ApplyPrompt(job, rules, planOutput))
}

func (e *Executor) runStep(ctx context.Context, mode, repoDir, prompt string) (StepResult, error) {
	// A claimed step runs to completion even when the caller's context is
	// cancelled for shutdown; killing the tool mid-apply would leave the
	// target repository half-mutated. Only the step timeout can end it.
	ctx = context.WithoutCancel(ctx)

	variant, err := e.Probe(ctx)
	if err != nil {
		return StepResult{}, err
	}

	if e.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.stepTimeout)
		defer cancel()
	}

	var cmd *exec.Cmd
	switch variant {
	case VariantPrompt:
		cmd = exec.CommandContext(ctx, e.binary, "-p", prompt)
	case VariantPlanFile:
		promptFile, err := os.CreateTemp("", "taskarena-*.md")
		if err != nil {
			return StepResult{}, fmt.Errorf("failed to create prompt file: %w", err)
		}
		defer os.Remove(promptFile.Name())
		if _, err := promptFile.WriteString(prompt); err != nil {
			promptFile.Close()
			return StepResult{}, fmt.Errorf("failed to write prompt file: %w", err)
		}
		promptFile.Close()
		cmd = exec.CommandContext(ctx, e.binary, "code", mode, "--repo", repoDir, "--plan", promptFile.Name())
	default:
		return StepResult{}, fmt.Errorf("no invocation variant probed")
	}

	cmd.Dir = repoDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	result := StepResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("failed to run %s step: %w", mode, err)
	}
	return result, nil
}
