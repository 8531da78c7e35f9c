package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"

	domain "github.com/crewdesk/api/internal/domain"
	pfirestore "github.com/crewdesk/api/internal/platform/firestore"
	"github.com/crewdesk/api/internal/repositories"
)

const timesheetsCollection = "timesheets"

// Equality queries are restricted to the fields the engine actually matches
// on; anything else is a programming error, not a store query.
var timesheetQueryFields = map[string]struct{}{
	"jobId":     {},
	"bookingId": {},
	"jobNumber": {},
}

// TimesheetRepository reads weekly timesheets.
type TimesheetRepository struct {
	base *pfirestore.BaseRepository[domain.Timesheet]
}

var _ repositories.TimesheetRepository = (*TimesheetRepository)(nil)

// NewTimesheetRepository constructs a Firestore-backed timesheet repository.
func NewTimesheetRepository(provider *pfirestore.Provider) (*TimesheetRepository, error) {
	if provider == nil {
		return nil, errors.New("timesheet repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[domain.Timesheet](provider, timesheetsCollection, decodeTimesheet)
	return &TimesheetRepository{base: base}, nil
}

func decodeTimesheet(snap *firestore.DocumentSnapshot) (domain.Timesheet, error) {
	var sheet domain.Timesheet
	if err := snap.DataTo(&sheet); err != nil {
		return domain.Timesheet{}, err
	}
	sheet.ID = snap.Ref.ID
	return sheet, nil
}

// Get performs a point read by document id.
func (r *TimesheetRepository) Get(ctx context.Context, timesheetID string) (domain.Timesheet, error) {
	if r == nil || r.base == nil {
		return domain.Timesheet{}, errors.New("timesheet repository not initialised")
	}
	return r.base.Get(ctx, strings.TrimSpace(timesheetID))
}

// ListByLinkedBooking queries sheets whose denormalised jobSnapshot lists the booking.
func (r *TimesheetRepository) ListByLinkedBooking(ctx context.Context, bookingID string) ([]domain.Timesheet, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("timesheet repository not initialised")
	}
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return nil, errors.New("timesheet repository: booking id is required")
	}
	return r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("jobSnapshot.bookingIds", "array-contains", bookingID)
	})
}

// ListByFieldEquals queries sheets where the named field equals the value.
func (r *TimesheetRepository) ListByFieldEquals(ctx context.Context, field string, value any) ([]domain.Timesheet, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("timesheet repository not initialised")
	}
	if _, ok := timesheetQueryFields[field]; !ok {
		return nil, fmt.Errorf("timesheet repository: field %q is not queryable", field)
	}
	return r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where(field, "==", value)
	})
}

// ListByWeek returns every sheet anchored to the given Monday. Sheets written
// by the current product store the anchor as an ISO date string.
func (r *TimesheetRepository) ListByWeek(ctx context.Context, weekStart domain.CalendarDate) ([]domain.Timesheet, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("timesheet repository not initialised")
	}
	return r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("weekStart", "==", weekStart.ISO())
	})
}
