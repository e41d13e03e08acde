/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package scenario runs groups of concurrent tasks guarded by per-key semaphores
// and reports how much concurrency each key actually got.
package scenario

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/acronis/go-keysem/keylimit"
	"github.com/acronis/go-keysem/log"
)

// Log fields used by Runner.
const (
	LogFieldScenario = "scenario"
	LogFieldTask     = "task"
	LogFieldKey      = "key"
	LogFieldElapsed  = "elapsed"
)

// Scenario is a set of tasks started at the same time. Each task holds a permit for its key during Work.
type Scenario struct {
	Name string
	Keys []string

	// ForgetKeys makes the runner remove the scenario keys from the registry when all tasks are done.
	ForgetKeys bool
}

// Defaults returns the standard scenarios. Keys are prefixed with the scenario name,
// so the scenarios may run at the same time on one Limiter.
//   - "same-key": two tasks share "foo" and run one after another, "bar" runs alongside.
//   - "shared-capacity": three tasks share "foo", which is configured with a limit of 5, and run together.
//   - "distinct-keys": "foo", "bar" and "me" never wait for each other.
func Defaults() []Scenario {
	return []Scenario{
		{Name: "same-key", Keys: prefixed("same-key", "foo", "foo", "bar"), ForgetKeys: true},
		{Name: "shared-capacity", Keys: prefixed("shared-capacity", "foo", "foo", "foo"), ForgetKeys: true},
		{Name: "distinct-keys", Keys: prefixed("distinct-keys", "foo", "bar", "me")},
	}
}

func prefixed(prefix string, keys ...string) []string {
	res := make([]string, 0, len(keys))
	for _, k := range keys {
		res = append(res, prefix+":"+k)
	}
	return res
}

// Result describes a finished scenario.
type Result struct {
	Name    string
	Elapsed time.Duration

	// MaxConcurrency is the highest number of tasks that held a permit for the key at the same time.
	MaxConcurrency map[string]int
}

// Runner runs scenarios on a keylimit.Limiter.
type Runner struct {
	limiter *keylimit.Limiter
	work    time.Duration
	logger  log.FieldLogger
}

// NewRunner creates a new Runner. Each task keeps its permit for the work duration.
func NewRunner(limiter *keylimit.Limiter, work time.Duration, logger log.FieldLogger) *Runner {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &Runner{limiter: limiter, work: work, logger: logger}
}

// Run starts all tasks of the scenario at once and waits for them.
func (r *Runner) Run(ctx context.Context, sc Scenario) (Result, error) {
	logger := r.logger.With(log.String(LogFieldScenario, sc.Name))
	gauges := newGauges()

	startedAt := time.Now()
	eg, egCtx := errgroup.WithContext(ctx)
	for i, key := range sc.Keys {
		i, key := i, key
		eg.Go(func() error {
			taskLogger := logger.With(log.Int(LogFieldTask, i), log.String(LogFieldKey, key))
			taskLogger.Info("task is waiting for a permit")
			return r.limiter.Do(egCtx, key, func(ctx context.Context) error {
				defer gauges.enter(key)()
				taskLogger.Info("task acquired a permit", log.Duration("work", r.work))
				select {
				case <-time.After(r.work):
				case <-ctx.Done():
					return ctx.Err()
				}
				taskLogger.Info("task is done")
				return nil
			})
		})
	}
	if err := eg.Wait(); err != nil {
		return Result{}, fmt.Errorf("run scenario %q: %w", sc.Name, err)
	}
	res := Result{Name: sc.Name, Elapsed: time.Since(startedAt), MaxConcurrency: gauges.max()}

	if sc.ForgetKeys {
		for _, key := range sc.Keys {
			r.limiter.Forget(key)
		}
	}
	logger.Info("scenario is finished", log.Duration(LogFieldElapsed, res.Elapsed))
	return res, nil
}

// RunAll runs the scenarios concurrently. Results are in the order of scenarios.
func (r *Runner) RunAll(ctx context.Context, scenarios []Scenario) ([]Result, error) {
	results := make([]Result, len(scenarios))
	eg, egCtx := errgroup.WithContext(ctx)
	for i := range scenarios {
		i := i
		eg.Go(func() error {
			res, err := r.Run(egCtx, scenarios[i])
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// gauges tracks current and peak holders per key.
type gauges struct {
	mu      sync.Mutex
	current map[string]int
	peak    map[string]int
}

func newGauges() *gauges {
	return &gauges{current: make(map[string]int), peak: make(map[string]int)}
}

func (g *gauges) enter(key string) (leave func()) {
	g.mu.Lock()
	g.current[key]++
	if g.current[key] > g.peak[key] {
		g.peak[key] = g.current[key]
	}
	g.mu.Unlock()
	return func() {
		g.mu.Lock()
		g.current[key]--
		g.mu.Unlock()
	}
}

func (g *gauges) max() map[string]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	res := make(map[string]int, len(g.peak))
	for k, v := range g.peak {
		res[k] = v
	}
	return res
}
