package retry

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/vietddude/trendcore/internal/core/domain"
)

// Policy defines retry behavior for one kind of operation.
type Policy struct {
	MaxRetries int           // retries after the first attempt
	BaseDelay  time.Duration // delay before the first retry, doubled for each retry after it
}

// DefaultPolicy applies to operations whose kind has no entry in a Policies table.
var DefaultPolicy = Policy{
	MaxRetries: 2,
	BaseDelay:  1 * time.Second,
}

var (
	// ErrNegativeRetries is returned by Validate when MaxRetries < 0.
	ErrNegativeRetries = errors.New("max retries must not be negative")

	// ErrNonPositiveDelay is returned by Validate when BaseDelay <= 0.
	ErrNonPositiveDelay = errors.New("base delay must be positive")
)

// Validate checks the policy bounds.
func (p Policy) Validate() error {
	if p.MaxRetries < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeRetries, p.MaxRetries)
	}
	if p.BaseDelay <= 0 {
		return fmt.Errorf("%w: %s", ErrNonPositiveDelay, p.BaseDelay)
	}
	return nil
}

// maxDelay is the largest representable delay. Backoff saturates here instead of wrapping.
const maxDelay = time.Duration(math.MaxInt64)

// Backoff returns the delay before retry number attempt+1, without jitter.
func (p Policy) Backoff(attempt int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if d >= float64(maxDelay) {
		return maxDelay
	}
	return time.Duration(d)
}

// MaxTotalDelay is the longest the backoff alone can delay a caller.
func (p Policy) MaxTotalDelay() time.Duration {
	var total time.Duration
	for i := 0; i < p.MaxRetries; i++ {
		total = addDelay(total, p.Backoff(i))
		if total == maxDelay {
			break
		}
	}
	return total
}

// addDelay returns a+b for non-negative delays, saturating at maxDelay.
func addDelay(a, b time.Duration) time.Duration {
	if a > maxDelay-b {
		return maxDelay
	}
	return a + b
}

// Policies maps each workflow kind to its retry policy.
type Policies map[domain.WorkflowKind]Policy

// DefaultPolicies returns the built-in policy table.
// Long-running analyses get more patience than quick lookups.
func DefaultPolicies() Policies {
	return Policies{
		domain.WorkflowTopicDecomposition:  {MaxRetries: 2, BaseDelay: 1 * time.Second},
		domain.WorkflowAffiliateResearch:   {MaxRetries: 3, BaseDelay: 2 * time.Second},
		domain.WorkflowTrendAnalysis:       {MaxRetries: 3, BaseDelay: 1500 * time.Millisecond},
		domain.WorkflowContentGeneration:   {MaxRetries: 2, BaseDelay: 2 * time.Second},
		domain.WorkflowKeywordClustering:   {MaxRetries: 2, BaseDelay: 1500 * time.Millisecond},
		domain.WorkflowExternalIntegration: {MaxRetries: 3, BaseDelay: 1 * time.Second},
	}
}

// For returns the policy for kind, or DefaultPolicy when the table has none.
func (ps Policies) For(kind domain.WorkflowKind) Policy {
	if p, ok := ps[kind]; ok {
		return p
	}
	return DefaultPolicy
}

// With returns a copy of ps with kind set to p.
func (ps Policies) With(kind domain.WorkflowKind, p Policy) Policies {
	out := make(Policies, len(ps)+1)
	for k, v := range ps {
		out[k] = v
	}
	out[kind] = p
	return out
}

// Validate checks every policy in the table.
func (ps Policies) Validate() error {
	for kind, p := range ps {
		if !kind.Valid() {
			return fmt.Errorf("unknown workflow kind %q", kind)
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("policy %s: %w", kind, err)
		}
	}
	return nil
}
