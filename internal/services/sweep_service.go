package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	domain "github.com/crewdesk/api/internal/domain"
	"github.com/crewdesk/api/internal/platform/observability"
	"github.com/crewdesk/api/internal/repositories"
)

const (
	defaultSweepBatchLimit = 400
	sweepCompletionReason  = "Auto-completed: all booked days have elapsed"
)

// ErrSweepAlreadyRunning is returned when a sweep pass is requested while a
// previous pass has not finished.
var ErrSweepAlreadyRunning = errors.New("sweep: a pass is already running")

// SweepServiceDeps bundles collaborators required to construct a sweep service.
type SweepServiceDeps struct {
	Bookings repositories.BookingRepository

	// Publisher is optional; when set, a completion event is emitted after a
	// batch lands. Publish failures never fail the sweep.
	Publisher SweepEventPublisher

	// BatchLimit caps how many bookings one pass flips; zero applies the
	// default of 400, safely under the store's transaction write cap.
	BatchLimit int

	// Clock supplies "today" for the elapsed-schedule test; defaults to
	// time.Now.
	Clock func() time.Time
}

type sweepService struct {
	bookings   repositories.BookingRepository
	publisher  SweepEventPublisher
	batchLimit int
	clock      func() time.Time

	running sync.Mutex
}

var _ SweepService = (*sweepService)(nil)

// NewSweepService constructs the booking status reconciliation sweep.
func NewSweepService(deps SweepServiceDeps) (SweepService, error) {
	if deps.Bookings == nil {
		return nil, errors.New("sweep service: booking repository is required")
	}
	batchLimit := deps.BatchLimit
	if batchLimit <= 0 {
		batchLimit = defaultSweepBatchLimit
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &sweepService{
		bookings:   deps.Bookings,
		publisher:  deps.Publisher,
		batchLimit: batchLimit,
		clock:      clock,
	}, nil
}

// Run flips every confirmed booking whose last scheduled day lies strictly
// before today. The batch is atomic: either every flip lands or none do.
func (s *sweepService) Run(ctx context.Context) (SweepResult, error) {
	if !s.running.TryLock() {
		return SweepResult{}, ErrSweepAlreadyRunning
	}
	defer s.running.Unlock()

	logger := observability.FromContext(ctx).Named("sweep")
	runID := ulid.Make().String()
	now := s.clock()
	today := domain.CalendarDateOf(now)

	confirmed, err := s.bookings.ListByStatus(ctx, domain.BookingStatusConfirmed)
	if err != nil {
		return SweepResult{}, err
	}

	var updates []repositories.BookingStatusUpdate
	for _, booking := range confirmed {
		last, ok := domain.BookingDaySet(booking).Last()
		if !ok {
			// No derivable schedule; leave the booking alone.
			continue
		}
		if !last.Before(today) {
			continue
		}
		updates = append(updates, repositories.BookingStatusUpdate{
			BookingID:   booking.ID,
			Status:      domain.BookingStatusComplete,
			Reason:      sweepCompletionReason,
			CompletedAt: now,
		})
		if len(updates) == s.batchLimit {
			break
		}
	}

	result := SweepResult{
		RunID:    runID,
		Examined: len(confirmed),
		SweptAt:  now,
	}
	if len(updates) == 0 {
		logger.Info("sweep pass found nothing to complete",
			zap.String("run_id", runID), zap.Int("examined", result.Examined))
		return result, nil
	}

	if err := s.bookings.UpdateStatusBatch(ctx, updates); err != nil {
		return SweepResult{}, err
	}

	result.Completed = len(updates)
	result.CompletedBookingIDs = make([]string, 0, len(updates))
	for _, update := range updates {
		result.CompletedBookingIDs = append(result.CompletedBookingIDs, update.BookingID)
	}

	logger.Info("sweep pass completed bookings",
		zap.String("run_id", runID),
		zap.Int("examined", result.Examined),
		zap.Int("completed", result.Completed),
	)

	if s.publisher != nil {
		message := SweepEventMessage{
			RunID:               runID,
			CompletedBookingIDs: result.CompletedBookingIDs,
			SweptAt:             now,
		}
		if _, err := s.publisher.PublishSweepEvent(ctx, message); err != nil {
			logger.Warn("sweep event publish failed", zap.String("run_id", runID), zap.Error(err))
		}
	}

	return result, nil
}
