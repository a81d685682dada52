// Package runner executes the registered checks strictly in registration
// order and rolls their outcomes into a single RunResult.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/devine-os/kern-acceptor/logging"
	"github.com/devine-os/kern-acceptor/metrics"
	"github.com/devine-os/kern-acceptor/registry"
	"github.com/devine-os/kern-acceptor/types"
)

// CheckRunner runs all registered checks and aggregates their outcomes
type CheckRunner interface {
	RunAllChecks(ctx context.Context) (*RunResult, error)
}

// Config is the runner configuration
type Config struct {
	Registry *registry.Registry
	Log      *zap.Logger
	LogDir   string    // when set, per-check logs and the summary are persisted here
	Stdout   io.Writer // per-check progress lines, defaults to os.Stdout
}

type runner struct {
	registry *registry.Registry
	log      *zap.Logger
	logDir   string
	stdout   io.Writer
	tracer   trace.Tracer
}

// NewCheckRunner creates a new CheckRunner
func NewCheckRunner(cfg Config) (CheckRunner, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	return &runner{
		registry: cfg.Registry,
		log:      cfg.Log,
		logDir:   cfg.LogDir,
		stdout:   cfg.Stdout,
		tracer:   otel.Tracer("kern-acceptor/runner"),
	}, nil
}

// RunStats aggregates check counts for one run. The invariant
// Passed+Failed+Errored == Total holds once the run finishes.
type RunStats struct {
	Total   int
	Passed  int
	Failed  int
	Errored int
}

// RunResult captures one full harness run. Results preserves registration
// order and is read-only once the run finishes.
type RunResult struct {
	RunID    string
	Results  []*types.CheckResult
	Stats    RunStats
	Status   types.CheckStatus
	Duration time.Duration
}

// String renders the summary block
func (r *RunResult) String() string {
	var b strings.Builder
	b.WriteString("=== Check Results ===\n")
	fmt.Fprintf(&b, "Passed:  %d/%d\n", r.Stats.Passed, r.Stats.Total)
	fmt.Fprintf(&b, "Failed:  %d/%d\n", r.Stats.Failed, r.Stats.Total)
	fmt.Fprintf(&b, "Errored: %d/%d\n", r.Stats.Errored, r.Stats.Total)
	if r.Status == types.CheckStatusPass {
		b.WriteString("✓ All checks passed!\n")
	} else {
		b.WriteString("✗ Some checks failed\n")
	}
	return b.String()
}

// Optional interfaces a check may implement to enrich its CheckResult
type consoleProvider interface {
	ConsoleLog() string
}

type detailProvider interface {
	Details() []string
}

type timeoutProvider interface {
	GuestTimedOut() bool
}

// RunAllChecks implements CheckRunner. Checks run one after another; a
// check's outcome is fully recorded before the next one starts, so at most
// one guest process is ever alive.
func (r *runner) RunAllChecks(ctx context.Context) (*RunResult, error) {
	runID := uuid.New().String()
	r.log.Info("Starting check run",
		zap.String("run_id", runID),
		zap.Int("checks", r.registry.Len()))

	var fileLogger *logging.FileLogger
	if r.logDir != "" {
		fl, err := logging.NewFileLogger(r.logDir, runID)
		if err != nil {
			return nil, fmt.Errorf("creating file logger: %w", err)
		}
		fileLogger = fl
	}

	start := time.Now()
	result := &RunResult{RunID: runID, Status: types.CheckStatusPass}

	for _, chk := range r.registry.Checks() {
		res := r.runCheck(ctx, chk)
		result.Results = append(result.Results, res)
		result.Stats.Total++
		switch res.Status {
		case types.CheckStatusPass:
			result.Stats.Passed++
		case types.CheckStatusFail:
			result.Stats.Failed++
			result.Status = types.CheckStatusFail
		default:
			result.Stats.Errored++
			result.Status = types.CheckStatusFail
		}

		metrics.RecordCheck(runID, res.Metadata.ID, res.Metadata.Kind, res.Status)
		if fileLogger != nil {
			if err := fileLogger.LogCheckResult(res); err != nil {
				r.log.Warn("Failed to write check log",
					zap.String("check", res.Metadata.ID), zap.Error(err))
			}
		}
	}

	result.Duration = time.Since(start)
	if fileLogger != nil {
		if err := fileLogger.LogSummary(result.String()); err != nil {
			r.log.Warn("Failed to write run summary", zap.Error(err))
		}
	}

	r.log.Info("Check run completed",
		zap.String("run_id", runID),
		zap.String("status", string(result.Status)),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// runCheck executes one check under fault isolation: whatever happens inside
// Run, including a panic, is converted into a CheckResult and can never
// prevent subsequent checks from running.
func (r *runner) runCheck(ctx context.Context, chk registry.Check) (res *types.CheckResult) {
	meta := chk.Metadata()
	fmt.Fprintf(r.stdout, "Running %s...\n", meta.GetName())
	r.log.Debug("Running check",
		zap.String("check", meta.ID),
		zap.String("kind", string(meta.Kind)))

	start := time.Now()
	res = &types.CheckResult{Metadata: meta, Status: types.CheckStatusPass}

	ctx, span := r.tracer.Start(ctx, "check."+meta.ID,
		trace.WithAttributes(attribute.String("check.kind", string(meta.Kind))))
	defer span.End()

	if meta.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, meta.Timeout)
		defer cancel()
	}

	defer func() {
		if rec := recover(); rec != nil {
			res.Status = types.CheckStatusError
			res.Error = fmt.Errorf("check panicked: %v", rec)
		}
		res.Duration = time.Since(start)
		if cp, ok := chk.(consoleProvider); ok {
			res.Serial = cp.ConsoleLog()
		}
		if dp, ok := chk.(detailProvider); ok {
			res.Details = dp.Details()
		}
		if tp, ok := chk.(timeoutProvider); ok {
			res.TimedOut = tp.GuestTimedOut()
		}
		if res.Error != nil {
			span.RecordError(res.Error)
		}
		span.SetAttributes(attribute.String("check.result", string(res.Status)))
		r.report(res)
	}()

	if err := chk.Run(ctx); err != nil {
		if types.IsAssertionError(err) {
			res.Status = types.CheckStatusFail
		} else {
			res.Status = types.CheckStatusError
		}
		res.Error = err
	}
	return res
}

func (r *runner) report(res *types.CheckResult) {
	name := res.Metadata.GetName()
	switch res.Status {
	case types.CheckStatusPass:
		fmt.Fprintf(r.stdout, "✓ %s PASSED\n", name)
	case types.CheckStatusFail:
		fmt.Fprintf(r.stdout, "✗ %s FAILED\n", name)
		r.log.Warn("Check failed",
			zap.String("check", res.Metadata.ID), zap.Error(res.Error))
	default:
		fmt.Fprintf(r.stdout, "✗ %s ERROR: %v\n", name, res.Error)
		r.log.Error("Check errored",
			zap.String("check", res.Metadata.ID), zap.Error(res.Error))
	}
}
