package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"

	domain "github.com/crewdesk/api/internal/domain"
	pfirestore "github.com/crewdesk/api/internal/platform/firestore"
	"github.com/crewdesk/api/internal/repositories"
)

const bookingsCollection = "bookings"

// Firestore range queries use the highest code point to close a prefix scan.
const prefixRangeTerminator = ""

// BookingRepository persists job bookings.
type BookingRepository struct {
	base *pfirestore.BaseRepository[domain.Booking]
}

var _ repositories.BookingRepository = (*BookingRepository)(nil)

// NewBookingRepository constructs a Firestore-backed booking repository.
func NewBookingRepository(provider *pfirestore.Provider) (*BookingRepository, error) {
	if provider == nil {
		return nil, errors.New("booking repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[domain.Booking](provider, bookingsCollection, decodeBooking)
	return &BookingRepository{base: base}, nil
}

func decodeBooking(snap *firestore.DocumentSnapshot) (domain.Booking, error) {
	var booking domain.Booking
	if err := snap.DataTo(&booking); err != nil {
		return domain.Booking{}, err
	}
	booking.ID = snap.Ref.ID
	return booking, nil
}

// Get fetches a booking by id.
func (r *BookingRepository) Get(ctx context.Context, bookingID string) (domain.Booking, error) {
	if r == nil || r.base == nil {
		return domain.Booking{}, errors.New("booking repository not initialised")
	}
	return r.base.Get(ctx, strings.TrimSpace(bookingID))
}

// ListByStatus returns every booking currently in the given status.
func (r *BookingRepository) ListByStatus(ctx context.Context, status domain.BookingStatus) ([]domain.Booking, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("booking repository not initialised")
	}
	return r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("status", "==", string(status))
	})
}

// ListByJobNumberPrefix returns bookings whose job number starts with the
// given prefix, ordered by job number.
func (r *BookingRepository) ListByJobNumberPrefix(ctx context.Context, prefix string) ([]domain.Booking, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("booking repository not initialised")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, errors.New("booking repository: job number prefix is required")
	}
	return r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.
			Where("jobNumber", ">=", prefix).
			Where("jobNumber", "<", prefix+prefixRangeTerminator).
			OrderBy("jobNumber", firestore.Asc)
	})
}

// UpdateStatusBatch flips every listed booking in one transaction. Either all
// updates land or none do; a retried sweep simply finds no matching bookings.
func (r *BookingRepository) UpdateStatusBatch(ctx context.Context, updates []repositories.BookingStatusUpdate) error {
	if r == nil || r.base == nil {
		return errors.New("booking repository not initialised")
	}
	if len(updates) == 0 {
		return nil
	}

	refs := make([]*firestore.DocumentRef, 0, len(updates))
	for _, update := range updates {
		ref, err := r.base.DocumentRef(ctx, strings.TrimSpace(update.BookingID))
		if err != nil {
			return err
		}
		refs = append(refs, ref)
	}

	return r.base.Provider().RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		for i, update := range updates {
			err := tx.Update(refs[i], []firestore.Update{
				{Path: "status", Value: string(update.Status)},
				{Path: "statusReason", Value: update.Reason},
				{Path: "completedAt", Value: update.CompletedAt.UTC()},
				{Path: "updatedAt", Value: update.CompletedAt.UTC()},
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}
