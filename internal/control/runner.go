// Package control drives one workflow run end to end.
//
// A Runner consults the result cache, walks a workflow.Manager through its
// steps, runs the remote step under the kind's retry policy and stores the
// final payload. Progress and the cache are only updated with the run ID the
// Runner started, so a response that arrives after the manager was reset is
// discarded.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vietddude/trendcore/internal/cache"
	"github.com/vietddude/trendcore/internal/infra/remote"
	"github.com/vietddude/trendcore/internal/retry"
	"github.com/vietddude/trendcore/internal/workflow"
)

var (
	// ErrNoEndpoint is returned when the default pipeline has no endpoint to call.
	ErrNoEndpoint = errors.New("no endpoint")

	// ErrStageCount is returned when a request's stages do not match the workflow's steps.
	ErrStageCount = errors.New("stage count does not match workflow steps")
)

// Runner executes analysis requests for one workflow manager.
type Runner struct {
	manager   *workflow.Manager
	cache     *cache.Cache
	executor  *retry.Executor
	caller    remote.Caller
	staleness cache.StalenessPolicy
	enforce   bool
	log       *slog.Logger
}

// NewRunner creates a runner. The cache may be shared between runners.
func NewRunner(
	cfg Config,
	manager *workflow.Manager,
	c *cache.Cache,
	executor *retry.Executor,
	caller remote.Caller,
	logger *slog.Logger,
) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		manager:   manager,
		cache:     c,
		executor:  executor,
		caller:    caller,
		staleness: cache.StalenessPolicy{MaxAge: cfg.StaleAfter},
		enforce:   cfg.EnforceTimeout,
		log:       logger.With("workflow", string(manager.Kind())),
	}
}

// Manager returns the workflow manager driven by the runner.
func (r *Runner) Manager() *workflow.Manager {
	return r.manager
}

// Run answers req from the cache when possible and otherwise runs the workflow.
//
// A cached result is returned as is, with Stale set when it is older than the
// configured age; nothing is refetched unless req.Refresh is set. A fetch
// requires the manager to be idle. On failure the manager is left Failed with
// the error on the failing step.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	key := req.Key()

	if !req.Refresh {
		if entry, ok := r.cache.Lookup(key); ok {
			stale := r.cache.IsStale(entry, r.staleness)
			r.log.Debug("Serving cached result", "key", key, "fetched_at", entry.FetchedAt, "stale", stale)
			return &Result{
				Key:       key,
				Payload:   entry.Payload,
				FetchedAt: entry.FetchedAt,
				FromCache: true,
				Stale:     stale,
			}, nil
		}
	}

	steps := len(r.manager.Steps())
	stages := req.Stages
	if stages == nil {
		stages = DefaultStages(r.caller, req, steps)
	}
	if len(stages) != steps {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrStageCount, len(stages), steps)
	}

	id, err := r.manager.Start()
	if err != nil {
		return nil, err
	}

	if timeout := r.manager.Timeout(); r.enforce && timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	r.log.Info("Workflow started", "run_id", id, "key", key, "steps", steps)

	var out any
	for i, stage := range stages {
		out, err = r.runStage(ctx, stage, out)
		if err != nil {
			if ferr := r.manager.FailRun(id, err); ferr != nil {
				return nil, r.discard(id, ferr)
			}
			r.log.Warn("Workflow failed", "run_id", id, "step", i, "error", err)
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		if aerr := r.manager.AdvanceRun(id); aerr != nil {
			return nil, r.discard(id, aerr)
		}
	}

	var entry cache.Entry
	if err := r.manager.WithRun(id, func() { entry = r.cache.Store(key, out) }); err != nil {
		return nil, r.discard(id, err)
	}

	r.log.Info("Workflow completed", "run_id", id, "key", key)
	return &Result{
		Key:       key,
		Payload:   out,
		FetchedAt: entry.FetchedAt,
		RunID:     id,
	}, nil
}

func (r *Runner) runStage(ctx context.Context, stage Stage, in any) (any, error) {
	if !stage.Retry {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return stage.Run(ctx, in)
	}
	return r.executor.ExecuteKind(ctx, r.manager.Kind(), func(ctx context.Context) (any, error) {
		return stage.Run(ctx, in)
	})
}

func (r *Runner) discard(id workflow.RunID, err error) error {
	r.log.Info("Discarding result of superseded run", "run_id", id, "error", err)
	return fmt.Errorf("run %s: %w", id, err)
}
