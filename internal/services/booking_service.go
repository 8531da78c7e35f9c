package services

import (
	"context"
	"errors"
	"strings"

	domain "github.com/crewdesk/api/internal/domain"
	"github.com/crewdesk/api/internal/repositories"
)

// ErrBookingInvalidInput indicates a missing or blank booking identifier.
var ErrBookingInvalidInput = errors.New("booking: invalid input")

type bookingService struct {
	bookings repositories.BookingRepository
}

var _ BookingService = (*bookingService)(nil)

// NewBookingService constructs the booking read surface.
func NewBookingService(bookings repositories.BookingRepository) (BookingService, error) {
	if bookings == nil {
		return nil, errors.New("booking service: booking repository is required")
	}
	return &bookingService{bookings: bookings}, nil
}

func (s *bookingService) Get(ctx context.Context, bookingID string) (domain.Booking, error) {
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return domain.Booking{}, ErrBookingInvalidInput
	}
	return s.bookings.Get(ctx, bookingID)
}

func (s *bookingService) ListByJobNumberPrefix(ctx context.Context, prefix string) ([]domain.Booking, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, ErrBookingInvalidInput
	}
	return s.bookings.ListByJobNumberPrefix(ctx, prefix)
}
