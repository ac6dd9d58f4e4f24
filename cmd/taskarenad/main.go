// Package main is the entry point for the TaskArena daemon. One process owns
// the whole system: the intake HTTP endpoint, the worker pool, and the
// durable state root on the local file system.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/DevangML/TaskArena/internal/artifact"
	"github.com/DevangML/TaskArena/internal/config"
	"github.com/DevangML/TaskArena/internal/intake"
	"github.com/DevangML/TaskArena/internal/logger"
	"github.com/DevangML/TaskArena/internal/observability"
	"github.com/DevangML/TaskArena/internal/queue"
	"github.com/DevangML/TaskArena/internal/rules"
	"github.com/DevangML/TaskArena/internal/runlog"
	"github.com/DevangML/TaskArena/internal/status"
	"github.com/DevangML/TaskArena/internal/tool"
	"github.com/DevangML/TaskArena/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: env-only)")
	flag.Parse()

	// A .env next to the daemon is a convenience for local runs; absence
	// is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := logger.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Durable state: queue, run log, artifacts, rules.
	q, err := queue.Open(cfg.QueueDir())
	if err != nil {
		log.Fatalf("Failed to open queue: %v", err)
	}

	// A previous daemon that died mid-job leaves descriptors stranded in
	// running/. This daemon is the only writer, so requeue them.
	recovered, err := q.RecoverOrphans()
	if err != nil {
		log.Fatalf("Failed to recover orphaned jobs: %v", err)
	}
	for _, id := range recovered {
		slogger.Warn("requeued orphaned job", "job_id", id)
	}

	runLog, err := runlog.New(cfg.RunLogPath())
	if err != nil {
		log.Fatalf("Failed to open run log: %v", err)
	}
	artifacts := artifact.NewWriter(cfg.PatchDir())
	ruleResolver := rules.New(cfg.SystemRulesPath())
	executor := tool.New(cfg.ToolPath, cfg.ProbeTimeout, cfg.StepTimeout)

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "taskarenad", cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("Failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			slogger.Error("tracer shutdown failed", "error", err)
		}
	}()

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			slogger.Error("metrics shutdown failed", "error", err)
		}
	}()

	jobMetrics, err := observability.NewJobMetrics(func(ctx context.Context) (int64, error) {
		depth, err := q.Depth()
		return int64(depth), err
	})
	if err != nil {
		log.Fatalf("Failed to register job metrics: %v", err)
	}

	pool := worker.New(q, ruleResolver, executor, artifacts, runLog, jobMetrics, slogger, worker.PoolConfig{
		Workers:      cfg.Workers,
		PollInterval: cfg.PollInterval,
		MaxBackoff:   cfg.MaxBackoff,
	})
	go pool.Run(ctx)

	handlers := intake.NewHandlers(q, status.NewReader(q, artifacts, runLog), jobMetrics, slogger)
	srv := intake.NewServer(cfg.Addr(), handlers, slogger, metricsHandler)

	go func() {
		slogger.Info("taskarena daemon starting",
			"addr", cfg.Addr(), "workers", cfg.Workers, "state_dir", cfg.StateDir)
		if err := srv.Run(ctx); err != nil {
			slogger.Error("server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slogger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slogger.Error("server forced to shut down", "error", err)
	}

	// Stop claiming new jobs and wait for in-flight steps to complete.
	cancel()
	<-pool.Done()
	slogger.Info("daemon exited")
}
