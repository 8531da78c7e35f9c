package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crewdesk/api/internal/platform/config"
	pfirestore "github.com/crewdesk/api/internal/platform/firestore"
	"github.com/crewdesk/api/internal/repositories"
	firestoreRepo "github.com/crewdesk/api/internal/repositories/firestore"
	"github.com/crewdesk/api/internal/services"
)

// Repositories bundles the storage-layer contracts the services rely upon.
type Repositories struct {
	Bookings   repositories.BookingRepository
	Timesheets repositories.TimesheetRepository
	Health     repositories.HealthRepository
}

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Bookings  services.BookingService
	Reconcile services.ReconcileService
	Sweep     services.SweepService
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories Repositories
	Services     Services

	provider *pfirestore.Provider
}

// Deps carries the external collaborators the container does not construct itself.
type Deps struct {
	Provider *pfirestore.Provider

	// SweepPublisher is optional; when nil, sweep completion events are not
	// emitted.
	SweepPublisher services.SweepEventPublisher

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// NewContainer constructs the runtime dependency graph.
func NewContainer(ctx context.Context, cfg config.Config, deps Deps) (*Container, error) {
	if deps.Provider == nil {
		return nil, errors.New("container: firestore provider is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	bookings, err := firestoreRepo.NewBookingRepository(deps.Provider)
	if err != nil {
		return nil, fmt.Errorf("build booking repository: %w", err)
	}
	timesheets, err := firestoreRepo.NewTimesheetRepository(deps.Provider)
	if err != nil {
		return nil, fmt.Errorf("build timesheet repository: %w", err)
	}

	health, err := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
		{
			Name: "firestore",
			Check: func(ctx context.Context) error {
				_, err := deps.Provider.Client(ctx)
				return err
			},
		},
	}, repositories.WithDependencyClock(clock))
	if err != nil {
		return nil, fmt.Errorf("build health repository: %w", err)
	}

	bookingSvc, err := services.NewBookingService(bookings)
	if err != nil {
		return nil, fmt.Errorf("build booking service: %w", err)
	}

	reconcileSvc, err := services.NewReconcileService(services.ReconcileServiceDeps{
		Bookings:         bookings,
		Timesheets:       timesheets,
		MaxCandidates:    cfg.Reconcile.MaxCandidates,
		RetrievalTimeout: cfg.Reconcile.RetrievalTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("build reconcile service: %w", err)
	}

	sweepSvc, err := services.NewSweepService(services.SweepServiceDeps{
		Bookings:   bookings,
		Publisher:  deps.SweepPublisher,
		BatchLimit: cfg.Sweep.BatchLimit,
		Clock:      clock,
	})
	if err != nil {
		return nil, fmt.Errorf("build sweep service: %w", err)
	}

	return &Container{
		Config: cfg,
		Repositories: Repositories{
			Bookings:   bookings,
			Timesheets: timesheets,
			Health:     health,
		},
		Services: Services{
			Bookings:  bookingSvc,
			Reconcile: reconcileSvc,
			Sweep:     sweepSvc,
		},
		provider: deps.Provider,
	}, nil
}

// Close releases resources held by the container.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.provider == nil {
		return nil
	}
	return c.provider.Close(ctx)
}
