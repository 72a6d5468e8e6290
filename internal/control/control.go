package control

import (
	"context"
	"fmt"
	"time"

	"github.com/vietddude/trendcore/internal/cache"
	"github.com/vietddude/trendcore/internal/infra/remote"
	"github.com/vietddude/trendcore/internal/workflow"
)

// StepFunc performs one workflow step. It receives the previous step's output.
type StepFunc func(ctx context.Context, in any) (any, error)

// Stage binds a StepFunc to one entry of the workflow's step list.
type Stage struct {
	Run StepFunc
	// Retry runs the stage under the kind's retry policy.
	Retry bool
}

// Request describes one analysis run.
type Request struct {
	Endpoint  string
	Subtopics []string
	Location  string
	TimeRange string
	// Payload is merged into the prepared request body under "options".
	Payload any
	// Refresh skips the cache lookup and always fetches.
	Refresh bool
	// Stages overrides the default pipeline. It must have one stage per workflow step.
	Stages []Stage
}

// Key returns the cache key for the request.
func (r Request) Key() cache.Key {
	return cache.DeriveKey(r.Subtopics, r.Location, r.TimeRange)
}

// Result is the outcome of a run.
type Result struct {
	Key       cache.Key
	Payload   any
	FetchedAt time.Time
	FromCache bool
	// Stale is advisory and only set for cached results.
	Stale bool
	RunID workflow.RunID
}

// Config holds runner settings.
type Config struct {
	StaleAfter     time.Duration
	EnforceTimeout bool
}

// PassThrough returns its input unchanged.
func PassThrough(_ context.Context, in any) (any, error) {
	return in, nil
}

// Prepare builds the request body sent to the remote analysis service.
func Prepare(req Request) StepFunc {
	return func(_ context.Context, _ any) (any, error) {
		if req.Endpoint == "" {
			return nil, fmt.Errorf("prepare request: %w", ErrNoEndpoint)
		}
		body := map[string]any{
			"subtopics": append([]string{}, req.Subtopics...),
			"location":  req.Location,
			"timeRange": req.TimeRange,
		}
		if req.Payload != nil {
			body["options"] = req.Payload
		}
		return body, nil
	}
}

// RemoteStep posts its input to endpoint through caller.
func RemoteStep(caller remote.Caller, endpoint string) StepFunc {
	return func(ctx context.Context, in any) (any, error) {
		return caller.Call(ctx, endpoint, in)
	}
}

// DefaultStages is the pipeline used when a request has no stages of its own:
// prepare the body, call the remote service with retries, then pass the
// response through the remaining steps.
func DefaultStages(caller remote.Caller, req Request, steps int) []Stage {
	stages := make([]Stage, steps)
	for i := range stages {
		stages[i] = Stage{Run: PassThrough}
	}
	if steps > 0 {
		stages[0] = Stage{Run: Prepare(req)}
	}
	if steps > 1 {
		stages[1] = Stage{Run: RemoteStep(caller, req.Endpoint), Retry: true}
	}
	return stages
}
