// Package retry executes remote operations with classification-aware retries.
//
// A failed attempt is classified (see Classify). Transport failures, 5xx and 429
// responses are retried up to Policy.MaxRetries times, waiting
// BaseDelay*2^attempt plus a random jitter in [0, MaxJitter) between attempts.
// Anything else is returned at once. The error handed back is always the one
// from the last attempt, unwrapped.
//
// The executor imposes no deadline; callers that need one put it on ctx.
package retry

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/vietddude/trendcore/internal/core/domain"
	"github.com/vietddude/trendcore/internal/metrics"
)

// DefaultMaxJitter is the upper bound (exclusive) of the random delay added to each backoff.
const DefaultMaxJitter = time.Second

// Operation is one attempt at a remote call.
type Operation func(ctx context.Context) (any, error)

// Executor runs operations under retry policies.
type Executor struct {
	policies  Policies
	maxJitter time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
	jitter    func(max time.Duration) time.Duration
	log       *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithMaxJitter sets the jitter bound. Zero disables jitter.
func WithMaxJitter(d time.Duration) Option {
	return func(e *Executor) { e.maxJitter = d }
}

// WithSleep replaces the wait between attempts.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Executor) { e.sleep = fn }
}

// WithJitter replaces the jitter source.
func WithJitter(fn func(max time.Duration) time.Duration) Option {
	return func(e *Executor) { e.jitter = fn }
}

// WithLogger sets the logger used for retry messages.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.log = l }
}

// NewExecutor creates an executor over the given policy table.
// A nil table uses DefaultPolicies.
func NewExecutor(policies Policies, opts ...Option) *Executor {
	if policies == nil {
		policies = DefaultPolicies()
	}
	e := &Executor{
		policies:  policies,
		maxJitter: DefaultMaxJitter,
		sleep:     sleepContext,
		jitter:    randomJitter,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policies returns the executor's policy table.
func (e *Executor) Policies() Policies {
	return e.policies
}

// ExecuteKind runs op under the policy configured for kind.
func (e *Executor) ExecuteKind(ctx context.Context, kind domain.WorkflowKind, op Operation) (any, error) {
	return e.execute(ctx, string(kind), e.policies.For(kind), op)
}

// Execute runs op under policy.
func (e *Executor) Execute(ctx context.Context, policy Policy, op Operation) (any, error) {
	return e.execute(ctx, "adhoc", policy, op)
}

func (e *Executor) execute(ctx context.Context, label string, policy Policy, op Operation) (any, error) {
	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			metrics.RemoteAttempts.WithLabelValues(label, "success").Inc()
			return result, nil
		}

		class := Classify(err)
		metrics.RemoteAttempts.WithLabelValues(label, class.String()).Inc()

		if !class.Retryable() || attempt >= policy.MaxRetries {
			return nil, err
		}

		delay := e.delay(policy, attempt)
		metrics.RetryDelay.WithLabelValues(label).Observe(delay.Seconds())
		e.log.Warn("Remote call failed, retrying",
			"kind", label,
			"attempt", attempt+1,
			"max_retries", policy.MaxRetries,
			"class", class.String(),
			"delay", delay,
			"error", err,
		)

		if err := e.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func (e *Executor) delay(policy Policy, attempt int) time.Duration {
	d := policy.Backoff(attempt)
	if e.maxJitter > 0 {
		d = addDelay(d, e.jitter(e.maxJitter))
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max)))
}
