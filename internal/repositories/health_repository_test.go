package repositories

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDependencyHealthRepositoryRequiresChecks(t *testing.T) {
	if _, err := NewDependencyHealthRepository(nil); err == nil {
		t.Fatalf("expected error for empty check set")
	}
	if _, err := NewDependencyHealthRepository([]DependencyCheck{{Name: " "}}); err == nil {
		t.Fatalf("expected error for unnamed check")
	}
}

func TestDependencyHealthRepositoryCollect(t *testing.T) {
	checks := []DependencyCheck{
		{Name: "firestore", Check: func(context.Context) error { return nil }},
		{Name: "pubsub", Check: func(context.Context) error { return errors.New("topic missing") }},
	}
	repo, err := NewDependencyHealthRepository(checks, WithDependencyClock(func() time.Time {
		return time.Date(2025, 10, 6, 9, 0, 0, 0, time.UTC)
	}))
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if report.Status != HealthStatusDegraded {
		t.Fatalf("expected degraded status, got %s", report.Status)
	}
	if report.Checks["firestore"].Status != HealthStatusOK {
		t.Fatalf("expected firestore ok, got %+v", report.Checks["firestore"])
	}
	if report.Checks["pubsub"].Status != HealthStatusDegraded {
		t.Fatalf("expected pubsub degraded, got %+v", report.Checks["pubsub"])
	}
}

func TestDependencyHealthRepositoryTimeout(t *testing.T) {
	checks := []DependencyCheck{
		{
			Name:    "slow",
			Timeout: 10 * time.Millisecond,
			Check: func(ctx context.Context) error {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(time.Second):
					return nil
				}
			},
		},
	}
	repo, err := NewDependencyHealthRepository(checks)
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if report.Status != HealthStatusError {
		t.Fatalf("expected error status, got %s", report.Status)
	}
}
