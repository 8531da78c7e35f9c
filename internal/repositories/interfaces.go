package repositories

import (
	"context"
	"errors"
	"time"

	domain "github.com/crewdesk/api/internal/domain"
)

// RepositoryError exposes the storage-level classification of a failure
// without leaking driver types into callers.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// IsNotFound reports whether err represents a missing document.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsNotFound()
	}
	return false
}

// BookingStatusUpdate describes one booking's status flip within a sweep batch.
type BookingStatusUpdate struct {
	BookingID   string
	Status      domain.BookingStatus
	Reason      string
	CompletedAt time.Time
}

// BookingRepository reads bookings and applies sweep status updates.
type BookingRepository interface {
	// Get fetches a booking by id.
	Get(ctx context.Context, bookingID string) (domain.Booking, error)

	// ListByStatus returns every booking currently in the given status.
	ListByStatus(ctx context.Context, status domain.BookingStatus) ([]domain.Booking, error)

	// ListByJobNumberPrefix returns bookings whose job number starts with the
	// given prefix, used for grouping related bookings.
	ListByJobNumberPrefix(ctx context.Context, prefix string) ([]domain.Booking, error)

	// UpdateStatusBatch applies every update atomically: either all bookings
	// flip or none do.
	UpdateStatusBatch(ctx context.Context, updates []BookingStatusUpdate) error
}

// TimesheetRepository answers the retrieval queries the reconciliation
// engine fans out. Every method may fail independently, including with a
// missing-index error, without affecting sibling queries.
type TimesheetRepository interface {
	// Get performs a point read by document id.
	Get(ctx context.Context, timesheetID string) (domain.Timesheet, error)

	// ListByLinkedBooking queries sheets whose jobSnapshot.bookingIds array
	// contains the booking id.
	ListByLinkedBooking(ctx context.Context, bookingID string) ([]domain.Timesheet, error)

	// ListByFieldEquals queries sheets where the named top-level field equals
	// the given value (string or numeric).
	ListByFieldEquals(ctx context.Context, field string, value any) ([]domain.Timesheet, error)

	// ListByWeek returns every sheet anchored to the given Monday.
	ListByWeek(ctx context.Context, weekStart domain.CalendarDate) ([]domain.Timesheet, error)
}
