package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

const defaultDependencyTimeout = 1500 * time.Millisecond

// HealthStatus categorises the outcome of a dependency probe.
type HealthStatus string

const (
	// HealthStatusOK marks a healthy dependency.
	HealthStatusOK HealthStatus = "ok"
	// HealthStatusDegraded marks a dependency that responded with an error.
	HealthStatusDegraded HealthStatus = "degraded"
	// HealthStatusError marks a dependency that timed out or was cancelled.
	HealthStatusError HealthStatus = "error"
)

// HealthCheckResult records the outcome of probing one dependency.
type HealthCheckResult struct {
	Status    HealthStatus
	Detail    string
	Latency   time.Duration
	CheckedAt time.Time
}

// HealthReport aggregates dependency probe outcomes.
type HealthReport struct {
	Status      HealthStatus
	Checks      map[string]HealthCheckResult
	GeneratedAt time.Time
}

// DependencyCheck describes a dependency probe executed during readiness checks.
type DependencyCheck struct {
	Name    string
	Timeout time.Duration
	Check   func(context.Context) error
}

// HealthRepository evaluates the readiness of external dependencies.
type HealthRepository interface {
	Collect(ctx context.Context) (HealthReport, error)
}

// DependencyHealthOption customises the behaviour of the dependency-backed health repository.
type DependencyHealthOption func(*dependencyHealthRepository)

// WithDependencyTimeout overrides the default timeout applied when a check omits its own timeout.
func WithDependencyTimeout(timeout time.Duration) DependencyHealthOption {
	return func(repo *dependencyHealthRepository) {
		if timeout > 0 {
			repo.defaultTimeout = timeout
		}
	}
}

// WithDependencyClock injects a custom clock primarily for tests.
func WithDependencyClock(clock func() time.Time) DependencyHealthOption {
	return func(repo *dependencyHealthRepository) {
		if clock != nil {
			repo.now = clock
		}
	}
}

type dependencyHealthRepository struct {
	checks         []DependencyCheck
	defaultTimeout time.Duration
	now            func() time.Time
}

var _ HealthRepository = (*dependencyHealthRepository)(nil)

// NewDependencyHealthRepository constructs a HealthRepository that evaluates the provided check set concurrently.
func NewDependencyHealthRepository(checks []DependencyCheck, opts ...DependencyHealthOption) (HealthRepository, error) {
	if len(checks) == 0 {
		return nil, errors.New("health repository: at least one dependency check is required")
	}
	for _, check := range checks {
		if strings.TrimSpace(check.Name) == "" {
			return nil, errors.New("health repository: dependency check missing name")
		}
		if check.Check == nil {
			return nil, fmt.Errorf("health repository: dependency %s missing check function", check.Name)
		}
	}

	repo := &dependencyHealthRepository{
		checks:         append([]DependencyCheck(nil), checks...),
		defaultTimeout: defaultDependencyTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo, nil
}

func (r *dependencyHealthRepository) Collect(ctx context.Context) (HealthReport, error) {
	if ctx == nil {
		return HealthReport{}, errors.New("health repository: context is required")
	}

	results := make(map[string]HealthCheckResult, len(r.checks))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	wg.Add(len(r.checks))
	for _, check := range r.checks {
		check := check
		go func() {
			defer wg.Done()

			timeout := check.Timeout
			if timeout <= 0 {
				timeout = r.defaultTimeout
			}
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := r.now()
			err := check.Check(checkCtx)
			end := r.now()

			result := HealthCheckResult{
				Status:    HealthStatusOK,
				Detail:    "ok",
				Latency:   end.Sub(start),
				CheckedAt: end,
			}
			switch {
			case err == nil:
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				result.Status = HealthStatusError
				result.Detail = err.Error()
			default:
				result.Status = HealthStatusDegraded
				result.Detail = err.Error()
			}

			mu.Lock()
			results[check.Name] = result
			mu.Unlock()
		}()
	}
	wg.Wait()

	report := HealthReport{
		Status:      HealthStatusOK,
		Checks:      results,
		GeneratedAt: r.now(),
	}
	for _, result := range results {
		if result.Status == HealthStatusError {
			report.Status = HealthStatusError
			break
		}
		if result.Status == HealthStatusDegraded {
			report.Status = HealthStatusDegraded
		}
	}
	return report, nil
}
