// Package worker contains the worker loops that drain the queue and drive
// the plan/apply execution protocol.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/DevangML/TaskArena/internal/artifact"
	"github.com/DevangML/TaskArena/internal/logger"
	"github.com/DevangML/TaskArena/internal/observability"
	"github.com/DevangML/TaskArena/internal/queue"
	"github.com/DevangML/TaskArena/internal/rules"
	"github.com/DevangML/TaskArena/internal/runlog"
	"github.com/DevangML/TaskArena/internal/tool"
)

// PoolConfig holds configuration for the worker pool.
type PoolConfig struct {
	Workers      int
	PollInterval time.Duration // Minimum idle delay between inbox scans
	MaxBackoff   time.Duration // Cap for the idle backoff when the inbox stays empty
}

// Pool runs a fixed number of independent worker loops. Workers coordinate
// only through the queue's atomic claim; there is no shared job table.
type Pool struct {
	queue     *queue.Store
	rules     *rules.Resolver
	tool      *tool.Executor
	artifacts *artifact.Writer
	runlog    *runlog.Logger
	metrics   *observability.JobMetrics
	log       *slog.Logger
	config    PoolConfig
	done      chan struct{}
}

// New creates a worker pool. metrics may be nil when metrics are disabled.
func New(q *queue.Store, r *rules.Resolver, t *tool.Executor, a *artifact.Writer,
	l *runlog.Logger, m *observability.JobMetrics, log *slog.Logger, config PoolConfig) *Pool {

	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 500 * time.Millisecond
	}
	if config.MaxBackoff < config.PollInterval {
		config.MaxBackoff = config.PollInterval
	}

	return &Pool{
		queue:     q,
		rules:     r,
		tool:      t,
		artifacts: a,
		runlog:    l,
		metrics:   m,
		log:       log,
		config:    config,
		done:      make(chan struct{}),
	}
}

// Run starts the worker loops and blocks until the context is cancelled and
// every in-flight job has finished. Claiming stops on cancellation; a step
// already talking to the external tool is allowed to complete.
func (p *Pool) Run(ctx context.Context) error {
	p.log.Info("worker pool starting", "workers", p.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < p.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.runLoop(ctx, workerID)
		}(i)
	}

	wg.Wait()
	close(p.done)
	return ctx.Err()
}

// Done returns a channel that is closed when the pool has fully stopped.
func (p *Pool) Done() <-chan struct{} {
	return p.done
}

// runLoop is one worker: claim, process, finalize, repeat. The idle backoff
// doubles while the inbox stays empty and resets as soon as work appears.
func (p *Pool) runLoop(ctx context.Context, workerID int) {
	log := p.log.With("worker", workerID)
	currentBackoff := p.config.PollInterval

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		id, job, err := p.queue.ClaimNext()
		if err != nil {
			log.Error("claim failed", "error", err)
		} else if id != "" {
			currentBackoff = p.config.PollInterval
			p.processJob(ctx, log, id, job)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(currentBackoff):
			currentBackoff *= 2
			if currentBackoff > p.config.MaxBackoff {
				currentBackoff = p.config.MaxBackoff
			}
		}
	}
}

// jobOutcome accumulates what finalization needs.
type jobOutcome struct {
	ok      bool
	errText string
}

// processJob drives one claimed job through rule merge, plan, apply and
// finalization. Nothing that happens here may take the worker down: any
// panic or error becomes a failed job with an error artifact.
func (p *Pool) processJob(ctx context.Context, log *slog.Logger, id string, job *queue.Job) {
	// A claimed descriptor that would not parse: fail it without artifacts,
	// there is no repo key to namespace them under.
	if job == nil {
		log.Error("claimed descriptor is unreadable", "job_id", id)
		p.finalize(ctx, log, id, &queue.Job{ID: id}, jobOutcome{errText: "Invalid job descriptor"})
		return
	}

	log = logger.ForJob(log, job.ID, job.RepoKey)

	tracer := otel.Tracer("taskarena-worker")
	ctx, span := tracer.Start(ctx, "process_job",
		trace.WithAttributes(
			attribute.String("job.id", job.ID),
			attribute.String("job.repo_key", job.RepoKey),
			attribute.String("job.dir", job.Dir),
		),
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	defer span.End()

	outcome := p.execute(ctx, log, job)
	if outcome.errText != "" {
		span.RecordError(errors.New(outcome.errText))
	}
	p.finalize(ctx, log, id, job, outcome)
}

// execute runs the plan and apply steps, writing artifacts as it goes.
func (p *Pool) execute(ctx context.Context, log *slog.Logger, job *queue.Job) (outcome jobOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = jobOutcome{errText: fmt.Sprintf("Worker panic: %v", r)}
			p.writeError(log, job, outcome.errText)
		}
	}()

	if info, err := os.Stat(job.Dir); err != nil || !info.IsDir() {
		msg := fmt.Sprintf("Repository path does not exist: %s", job.Dir)
		p.writeError(log, job, msg)
		return jobOutcome{errText: msg}
	}
	if strings.TrimSpace(job.Prompt) == "" {
		msg := "Empty prompt provided."
		p.writeError(log, job, msg)
		return jobOutcome{errText: msg}
	}

	merged := p.rules.Resolve(job.Dir)
	input := tool.PromptInput{JobID: job.ID, Dir: job.Dir, Prompt: job.Prompt}

	log.Info("planning")
	plan, err := p.tool.RunPlan(ctx, input, merged)
	if err != nil {
		// Covers ErrToolNotFound and failures to start the subprocess. No
		// step artifacts exist in this case, only the error.
		p.writeError(log, job, err.Error())
		return jobOutcome{errText: err.Error()}
	}
	p.writeArtifact(log, job, artifact.PlanStdout, plan.Stdout)
	p.writeArtifact(log, job, artifact.PlanStderr, plan.Stderr)

	if plan.ExitCode != 0 {
		msg := fmt.Sprintf("Plan step failed (exit %d)", plan.ExitCode)
		p.writeError(log, job, msg)
		return jobOutcome{errText: msg}
	}

	log.Info("applying")
	apply, err := p.tool.RunApply(ctx, input, merged, plan.Stdout)
	if err != nil {
		p.writeError(log, job, err.Error())
		return jobOutcome{errText: err.Error()}
	}
	p.writeArtifact(log, job, artifact.ApplyStdout, apply.Stdout)
	p.writeArtifact(log, job, artifact.ApplyStderr, apply.Stderr)

	if apply.ExitCode != 0 {
		msg := fmt.Sprintf("Apply step failed (exit %d)", apply.ExitCode)
		p.writeError(log, job, msg)
		return jobOutcome{errText: msg}
	}

	return jobOutcome{ok: true}
}

// finalize moves the descriptor to its terminal area and appends the run-log
// record. The run log is the source of truth for the outcome, so the record
// is appended even when the descriptor vanished underneath us.
func (p *Pool) finalize(ctx context.Context, log *slog.Logger, id string, job *queue.Job, outcome jobOutcome) {
	if err := p.queue.Finalize(id, outcome.ok); err != nil {
		log.Error("finalize failed", "error", err)
		outcome.ok = false
		if outcome.errText == "" {
			outcome.errText = err.Error()
		}
	}

	entry := runlog.Entry{
		ID:      id,
		Dir:     job.Dir,
		RepoKey: job.RepoKey,
		OK:      outcome.ok,
		Error:   outcome.errText,
	}
	if err := p.runlog.Append(entry); err != nil {
		log.Error("run log append failed", "error", err)
	}

	p.metrics.RecordCompleted(ctx, outcome.ok)
	log.Info("job finished", "ok", outcome.ok)
}

func (p *Pool) writeArtifact(log *slog.Logger, job *queue.Job, name, content string) {
	if err := p.artifacts.Write(job.RepoKey, job.ID, name, content); err != nil {
		log.Error("artifact write failed", "artifact", name, "error", err)
	}
}

func (p *Pool) writeError(log *slog.Logger, job *queue.Job, msg string) {
	if job.RepoKey == "" {
		return
	}
	p.writeArtifact(log, job, artifact.ErrorFile, msg)
}
