package control

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/vietddude/trendcore/internal/cache"
	"github.com/vietddude/trendcore/internal/core/domain"
	"github.com/vietddude/trendcore/internal/infra/remote"
	"github.com/vietddude/trendcore/internal/retry"
	"github.com/vietddude/trendcore/internal/workflow"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingCaller struct {
	calls    atomic.Int32
	mu       sync.Mutex
	payloads []any
	respond  func(ctx context.Context, call int) (any, error)
}

func (c *recordingCaller) Call(ctx context.Context, endpoint string, payload any) (any, error) {
	n := int(c.calls.Add(1))
	c.mu.Lock()
	c.payloads = append(c.payloads, payload)
	c.mu.Unlock()
	return c.respond(ctx, n)
}

type testEnv struct {
	runner  *Runner
	manager *workflow.Manager
	cache   *cache.Cache
	clock   *fakeClock
	sleeps  []time.Duration
}

func newTestEnv(t *testing.T, cfg Config, caller remote.Caller) *testEnv {
	t.Helper()

	m, err := workflow.NewManager(domain.WorkflowTrendAnalysis)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	env := &testEnv{
		manager: m,
		clock:   &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	env.cache = cache.New(cache.WithClock(env.clock.Now))
	exec := retry.NewExecutor(
		retry.DefaultPolicies(),
		retry.WithMaxJitter(0),
		retry.WithSleep(func(_ context.Context, d time.Duration) error {
			env.sleeps = append(env.sleeps, d)
			return nil
		}),
	)
	env.runner = NewRunner(cfg, m, env.cache, exec, caller, nil)
	return env
}

func trendRequest() Request {
	return Request{
		Endpoint:  "/trends/analyze",
		Subtopics: []string{"standing desk", "desk lamp"},
		Location:  "US",
		TimeRange: "today 12-m",
	}
}

func okCaller() *recordingCaller {
	return &recordingCaller{respond: func(_ context.Context, call int) (any, error) {
		return map[string]any{"call": call}, nil
	}}
}

func TestRun_FetchesThenServesFromCache(t *testing.T) {
	caller := okCaller()
	env := newTestEnv(t, Config{StaleAfter: time.Hour}, caller)

	res, err := env.runner.Run(context.Background(), trendRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.FromCache || res.Stale {
		t.Errorf("first run: FromCache=%v Stale=%v, want fresh fetch", res.FromCache, res.Stale)
	}
	if res.RunID == (workflow.RunID{}) {
		t.Error("expected a run ID for a fetched result")
	}
	if got := env.manager.State(); got != workflow.StateCompleted {
		t.Errorf("manager state = %s, want completed", got)
	}
	if got := env.manager.Progress(); got != 100 {
		t.Errorf("progress = %d, want 100", got)
	}
	if env.cache.Len() != 1 {
		t.Errorf("cache len = %d, want 1", env.cache.Len())
	}

	wantBody := map[string]any{
		"subtopics": []string{"standing desk", "desk lamp"},
		"location":  "US",
		"timeRange": "today 12-m",
	}
	if diff := cmp.Diff(wantBody, caller.payloads[0]); diff != "" {
		t.Errorf("request body mismatch (-want +got):\n%s", diff)
	}

	// Same subtopics in another order hit the same entry.
	req := trendRequest()
	req.Subtopics = []string{"desk lamp", "standing desk"}
	cached, err := env.runner.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("cached Run: %v", err)
	}
	if !cached.FromCache {
		t.Fatal("expected a cache hit")
	}
	if diff := cmp.Diff(res.Payload, cached.Payload); diff != "" {
		t.Errorf("cached payload mismatch (-want +got):\n%s", diff)
	}
	if n := caller.calls.Load(); n != 1 {
		t.Errorf("remote calls = %d, want 1", n)
	}
}

func TestRun_StaleIsAdvisory(t *testing.T) {
	caller := okCaller()
	env := newTestEnv(t, Config{StaleAfter: time.Hour}, caller)

	if _, err := env.runner.Run(context.Background(), trendRequest()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	env.clock.Advance(2 * time.Hour)

	res, err := env.runner.Run(context.Background(), trendRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.FromCache || !res.Stale {
		t.Errorf("FromCache=%v Stale=%v, want stale cache hit", res.FromCache, res.Stale)
	}
	if n := caller.calls.Load(); n != 1 {
		t.Errorf("remote calls = %d, want 1 (stale entries are not refetched)", n)
	}
}

func TestRun_RefreshRequiresReset(t *testing.T) {
	caller := okCaller()
	env := newTestEnv(t, Config{}, caller)

	if _, err := env.runner.Run(context.Background(), trendRequest()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	req := trendRequest()
	req.Refresh = true
	if _, err := env.runner.Run(context.Background(), req); !errors.Is(err, workflow.ErrMisuse) {
		t.Fatalf("refresh on completed manager: err = %v, want ErrMisuse", err)
	}

	env.manager.Reset()
	env.clock.Advance(time.Minute)
	res, err := env.runner.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run after reset: %v", err)
	}
	if res.FromCache {
		t.Error("refresh must bypass the cache")
	}
	if diff := cmp.Diff(map[string]any{"call": 2}, res.Payload); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}

	entry, ok := env.cache.Lookup(res.Key)
	if !ok {
		t.Fatal("expected refreshed entry in cache")
	}
	if !entry.FetchedAt.Equal(env.clock.Now()) {
		t.Errorf("FetchedAt = %v, want %v", entry.FetchedAt, env.clock.Now())
	}
}

func TestRun_RetriesServerFailures(t *testing.T) {
	caller := &recordingCaller{respond: func(_ context.Context, call int) (any, error) {
		if call < 3 {
			return nil, remote.StatusError("/trends/analyze", http.StatusServiceUnavailable, nil)
		}
		return "ok", nil
	}}
	env := newTestEnv(t, Config{}, caller)

	res, err := env.runner.Run(context.Background(), trendRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Payload != "ok" {
		t.Errorf("payload = %v, want ok", res.Payload)
	}
	if n := caller.calls.Load(); n != 3 {
		t.Errorf("remote calls = %d, want 3", n)
	}

	// trend-analysis: base delay 1.5s.
	want := []time.Duration{1500 * time.Millisecond, 3 * time.Second}
	if diff := cmp.Diff(want, env.sleeps); diff != "" {
		t.Errorf("backoff delays mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_ClientFailureFailsStep(t *testing.T) {
	caller := &recordingCaller{respond: func(context.Context, int) (any, error) {
		return nil, remote.StatusError("/trends/analyze", http.StatusNotFound, map[string]any{"error": "missing"})
	}}
	env := newTestEnv(t, Config{}, caller)

	_, err := env.runner.Run(context.Background(), trendRequest())
	rerr, ok := remote.AsError(err)
	if !ok || rerr.Status != http.StatusNotFound {
		t.Fatalf("err = %v, want remote 404", err)
	}
	if n := caller.calls.Load(); n != 1 {
		t.Errorf("remote calls = %d, want 1", n)
	}

	if got := env.manager.State(); got != workflow.StateFailed {
		t.Errorf("manager state = %s, want failed", got)
	}
	step, ok := env.manager.CurrentStep()
	if !ok || step.Index != 1 || step.Status != domain.StepFailed {
		t.Errorf("current step = %+v, want step 1 failed", step)
	}
	if cause := env.manager.Err(); cause == nil || !errors.Is(err, cause) {
		t.Errorf("manager error = %v, want the returned failure", cause)
	}
	if env.cache.Len() != 0 {
		t.Errorf("cache len = %d, want 0", env.cache.Len())
	}
}

func TestRun_LateResponseAfterResetIsDiscarded(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	caller := &recordingCaller{respond: func(context.Context, int) (any, error) {
		close(entered)
		<-release
		return "late", nil
	}}
	env := newTestEnv(t, Config{}, caller)

	errCh := make(chan error, 1)
	go func() {
		_, err := env.runner.Run(context.Background(), trendRequest())
		errCh <- err
	}()

	<-entered
	env.manager.Reset()
	close(release)

	err := <-errCh
	if !errors.Is(err, workflow.ErrStaleRun) {
		t.Fatalf("err = %v, want ErrStaleRun", err)
	}
	if got := env.manager.State(); got != workflow.StateIdle {
		t.Errorf("manager state = %s, want idle", got)
	}
	if env.cache.Len() != 0 {
		t.Errorf("cache len = %d, want 0", env.cache.Len())
	}
}

func TestRun_StageCountMismatch(t *testing.T) {
	env := newTestEnv(t, Config{}, okCaller())

	req := trendRequest()
	req.Stages = []Stage{{Run: PassThrough}}
	if _, err := env.runner.Run(context.Background(), req); !errors.Is(err, ErrStageCount) {
		t.Fatalf("err = %v, want ErrStageCount", err)
	}
	if got := env.manager.State(); got != workflow.StateIdle {
		t.Errorf("manager state = %s, want idle", got)
	}
}

func TestRun_CustomStagesWithoutSubtopicsAreNotCached(t *testing.T) {
	env := newTestEnv(t, Config{}, okCaller())

	var order []int
	stage := func(i int) Stage {
		return Stage{Run: func(_ context.Context, in any) (any, error) {
			order = append(order, i)
			n, _ := in.(int)
			return n + 1, nil
		}}
	}

	res, err := env.runner.Run(context.Background(), Request{
		Stages: []Stage{stage(0), stage(1), stage(2), stage(3)},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Payload != 4 {
		t.Errorf("payload = %v, want 4", res.Payload)
	}
	if diff := cmp.Diff([]int{0, 1, 2, 3}, order); diff != "" {
		t.Errorf("stage order mismatch (-want +got):\n%s", diff)
	}
	if res.Key != cache.EmptyKey || env.cache.Len() != 0 {
		t.Errorf("key = %q len = %d, want nothing cached", res.Key, env.cache.Len())
	}
}

func TestRun_MissingEndpointFailsPrepare(t *testing.T) {
	caller := okCaller()
	env := newTestEnv(t, Config{}, caller)

	req := trendRequest()
	req.Endpoint = ""
	if _, err := env.runner.Run(context.Background(), req); !errors.Is(err, ErrNoEndpoint) {
		t.Fatalf("err = %v, want ErrNoEndpoint", err)
	}
	step, _ := env.manager.CurrentStep()
	if step.Index != 0 || step.Status != domain.StepFailed {
		t.Errorf("current step = %+v, want step 0 failed", step)
	}
	if n := caller.calls.Load(); n != 0 {
		t.Errorf("remote calls = %d, want 0", n)
	}
}

func TestRun_ResetAfterLastStepIsNotCached(t *testing.T) {
	env := newTestEnv(t, Config{}, okCaller())
	env.manager.SetStateChangeCallback(func(_ domain.WorkflowKind, tr workflow.Transition) {
		if tr.To == workflow.StateCompleted {
			env.manager.Reset()
		}
	})

	_, err := env.runner.Run(context.Background(), trendRequest())
	if !errors.Is(err, workflow.ErrStaleRun) {
		t.Fatalf("err = %v, want ErrStaleRun", err)
	}
	if env.cache.Len() != 0 {
		t.Errorf("cache len = %d, want 0", env.cache.Len())
	}
}

func TestRun_EnforceTimeoutSetsDeadline(t *testing.T) {
	caller := remote.CallerFunc(func(ctx context.Context, _ string, _ any) (any, error) {
		if _, ok := ctx.Deadline(); !ok {
			return nil, errors.New("no deadline")
		}
		return "ok", nil
	})
	env := newTestEnv(t, Config{EnforceTimeout: true}, caller)

	if _, err := env.runner.Run(context.Background(), trendRequest()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRun_CancelledContextFailsWorkflow(t *testing.T) {
	env := newTestEnv(t, Config{}, okCaller())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := env.runner.Run(ctx, trendRequest()); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if got := env.manager.State(); got != workflow.StateFailed {
		t.Errorf("manager state = %s, want failed", got)
	}
}
