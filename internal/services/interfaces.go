package services

import (
	"context"
	"time"

	domain "github.com/crewdesk/api/internal/domain"
)

// ReconcileService discovers the weekly timesheets that belong to a booking.
type ReconcileService interface {
	// Reconcile runs retrieval, relevance filtering, scoring, and ranking for
	// the given booking, returning at most the configured number of links.
	Reconcile(ctx context.Context, booking domain.Booking) ([]domain.CandidateLink, error)

	// ReconcileByID loads the booking first, then reconciles it.
	ReconcileByID(ctx context.Context, bookingID string) (ReconcileResult, error)
}

// ReconcileResult pairs the loaded booking with its ranked candidate links.
type ReconcileResult struct {
	Booking    domain.Booking
	Candidates []domain.CandidateLink
}

// BookingService exposes the booking reads the reconciliation surface needs.
type BookingService interface {
	Get(ctx context.Context, bookingID string) (domain.Booking, error)
	ListByJobNumberPrefix(ctx context.Context, prefix string) ([]domain.Booking, error)
}

// SweepService flips confirmed bookings whose schedule has fully elapsed.
type SweepService interface {
	// Run executes one sweep pass. The pass is idempotent: bookings already
	// completed no longer match the candidate predicate.
	Run(ctx context.Context) (SweepResult, error)
}

// SweepResult summarises one sweep pass.
type SweepResult struct {
	RunID     string
	Examined  int
	Completed int
	SweptAt   time.Time

	CompletedBookingIDs []string
}

// SweepEventMessage is published after a successful sweep batch so downstream
// consumers (invoicing feed) can react to completed bookings.
type SweepEventMessage struct {
	RunID               string    `json:"runId"`
	CompletedBookingIDs []string  `json:"completedBookingIds"`
	SweptAt             time.Time `json:"sweptAt"`
}

// SweepEventPublisher delivers sweep completion events.
type SweepEventPublisher interface {
	PublishSweepEvent(ctx context.Context, message SweepEventMessage) (string, error)
}
