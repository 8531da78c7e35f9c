package services

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	domain "github.com/crewdesk/api/internal/domain"
	"github.com/crewdesk/api/internal/platform/observability"
	"github.com/crewdesk/api/internal/repositories"
)

const (
	defaultMaxCandidates    = 5
	defaultRetrievalTimeout = 10 * time.Second

	scoreJobIDMatch     = 100
	scoreJobNumberMatch = 90
	scoreJobsListMatch  = 80
	scorePerOverlapDay  = 8
	scoreOverlapCap     = 40
	scoreEmployeeMatch  = 25
	scoreNotesMention   = 10
	scoreDayNoteMention = 5
)

// ErrReconcileInvalidInput indicates the caller supplied an unusable booking reference.
var ErrReconcileInvalidInput = errors.New("reconcile: invalid input")

// ReconcileServiceDeps bundles collaborators required to construct a reconcile service.
type ReconcileServiceDeps struct {
	Bookings   repositories.BookingRepository
	Timesheets repositories.TimesheetRepository

	// MaxCandidates bounds the ranked result; zero applies the default of 5.
	MaxCandidates int
	// RetrievalTimeout caps the whole retrieval fan-out.
	RetrievalTimeout time.Duration
}

type reconcileService struct {
	bookings         repositories.BookingRepository
	timesheets       repositories.TimesheetRepository
	maxCandidates    int
	retrievalTimeout time.Duration
}

var _ ReconcileService = (*reconcileService)(nil)

// NewReconcileService constructs the booking-timesheet reconciliation engine.
func NewReconcileService(deps ReconcileServiceDeps) (ReconcileService, error) {
	if deps.Timesheets == nil {
		return nil, errors.New("reconcile service: timesheet repository is required")
	}

	maxCandidates := deps.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = defaultMaxCandidates
	}
	timeout := deps.RetrievalTimeout
	if timeout <= 0 {
		timeout = defaultRetrievalTimeout
	}

	return &reconcileService{
		bookings:         deps.Bookings,
		timesheets:       deps.Timesheets,
		maxCandidates:    maxCandidates,
		retrievalTimeout: timeout,
	}, nil
}

func (s *reconcileService) ReconcileByID(ctx context.Context, bookingID string) (ReconcileResult, error) {
	if s.bookings == nil {
		return ReconcileResult{}, errors.New("reconcile service: booking repository is required")
	}
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return ReconcileResult{}, ErrReconcileInvalidInput
	}

	booking, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return ReconcileResult{}, err
	}

	candidates, err := s.Reconcile(ctx, booking)
	if err != nil {
		return ReconcileResult{}, err
	}
	return ReconcileResult{Booking: booking, Candidates: candidates}, nil
}

func (s *reconcileService) Reconcile(ctx context.Context, booking domain.Booking) ([]domain.CandidateLink, error) {
	if ctx == nil {
		return nil, errors.New("reconcile service: context is required")
	}
	if strings.TrimSpace(booking.ID) == "" {
		return nil, ErrReconcileInvalidInput
	}

	daySet := domain.BookingDaySet(booking)
	weekAnchors := domain.BookingWeekAnchors(booking)

	raw := s.retrieve(ctx, booking, weekAnchors)
	links := filterAndScore(raw, booking, daySet, weekAnchors)
	rankCandidates(links)

	if len(links) > s.maxCandidates {
		links = links[:s.maxCandidates]
	}
	return links, nil
}

// retrievalStrategy is one independent way of pulling possibly-relevant
// sheets from the store. Strategies run concurrently; a failing strategy is
// logged and contributes nothing, never aborting its siblings.
type retrievalStrategy struct {
	name string
	run  func(ctx context.Context) ([]domain.Timesheet, error)
}

func (s *reconcileService) retrieve(ctx context.Context, booking domain.Booking, weekAnchors domain.DateSet) []domain.Timesheet {
	logger := observability.FromContext(ctx).Named("reconcile")

	retrievalCtx, cancel := context.WithTimeout(ctx, s.retrievalTimeout)
	defer cancel()

	strategies := []retrievalStrategy{
		{
			name: "indexed_containment",
			run: func(ctx context.Context) ([]domain.Timesheet, error) {
				return s.timesheets.ListByLinkedBooking(ctx, booking.ID)
			},
		},
		{
			name: "direct_key_reads",
			run: func(ctx context.Context) ([]domain.Timesheet, error) {
				return s.directKeyReads(ctx, booking, weekAnchors)
			},
		},
		{
			name: "booking_field_equality",
			run: func(ctx context.Context) ([]domain.Timesheet, error) {
				return s.fieldEqualityReads(ctx, logger, "jobId", booking.ID, "bookingId", booking.ID)
			},
		},
		{
			name: "job_number_equality",
			run: func(ctx context.Context) ([]domain.Timesheet, error) {
				return s.jobNumberReads(ctx, logger, booking)
			},
		},
	}

	// Fixed result positions keep the first-seen dedup deterministic even
	// though strategies complete in arbitrary order.
	results := make([][]domain.Timesheet, len(strategies))
	var wg sync.WaitGroup
	wg.Add(len(strategies))
	for i, strategy := range strategies {
		i, strategy := i, strategy
		go func() {
			defer wg.Done()
			sheets, err := strategy.run(retrievalCtx)
			if err != nil {
				logger.Warn("retrieval strategy failed",
					zap.String("strategy", strategy.name),
					zap.String("booking_id", booking.ID),
					zap.Error(err),
				)
				return
			}
			results[i] = sheets
		}()
	}
	wg.Wait()

	return dedupeByID(results)
}

// directKeyReads resolves the cross product of explicit employee codes and
// week anchors to deterministic sheet ids and point-reads each concurrently.
func (s *reconcileService) directKeyReads(ctx context.Context, booking domain.Booking, weekAnchors domain.DateSet) ([]domain.Timesheet, error) {
	codes := booking.EmployeeCodes()
	anchors := weekAnchors.Sorted()
	if len(codes) == 0 || len(anchors) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(codes)*len(anchors))
	for _, code := range codes {
		for _, anchor := range anchors {
			ids = append(ids, domain.TimesheetID(code, anchor))
		}
	}

	found := make([]*domain.Timesheet, len(ids))
	var wg sync.WaitGroup
	wg.Add(len(ids))
	for i, id := range ids {
		i, id := i, id
		go func() {
			defer wg.Done()
			sheet, err := s.timesheets.Get(ctx, id)
			if err != nil {
				// Most deterministic ids simply do not exist.
				if !repositories.IsNotFound(err) {
					observability.FromContext(ctx).Warn("direct key read failed",
						zap.String("timesheet_id", id), zap.Error(err))
				}
				return
			}
			found[i] = &sheet
		}()
	}
	wg.Wait()

	var sheets []domain.Timesheet
	for _, sheet := range found {
		if sheet != nil {
			sheets = append(sheets, *sheet)
		}
	}
	return sheets, nil
}

// fieldEqualityReads runs a pair of equality queries, tolerating individual
// failures so a missing index on one field cannot blank the other.
func (s *reconcileService) fieldEqualityReads(ctx context.Context, logger *zap.Logger, field1, value1, field2, value2 string) ([]domain.Timesheet, error) {
	var sheets []domain.Timesheet
	var failures int

	for _, query := range []struct {
		field string
		value string
	}{{field1, value1}, {field2, value2}} {
		if strings.TrimSpace(query.value) == "" {
			continue
		}
		batch, err := s.timesheets.ListByFieldEquals(ctx, query.field, query.value)
		if err != nil {
			failures++
			logger.Warn("equality query failed", zap.String("field", query.field), zap.Error(err))
			continue
		}
		sheets = append(sheets, batch...)
	}

	if failures == 2 {
		return nil, errors.New("reconcile: both equality queries failed")
	}
	return sheets, nil
}

// jobNumberReads matches the job number both as the stored string and, when
// purely numeric, as the stored number.
func (s *reconcileService) jobNumberReads(ctx context.Context, logger *zap.Logger, booking domain.Booking) ([]domain.Timesheet, error) {
	jobNumber := strings.TrimSpace(booking.JobNumber)
	if jobNumber == "" {
		return nil, nil
	}

	var sheets []domain.Timesheet
	batch, err := s.timesheets.ListByFieldEquals(ctx, "jobNumber", jobNumber)
	if err != nil {
		logger.Warn("job number query failed", zap.String("value", jobNumber), zap.Error(err))
	} else {
		sheets = append(sheets, batch...)
	}

	if numeric, ok := booking.JobNumberNumeric(); ok {
		batch, err := s.timesheets.ListByFieldEquals(ctx, "jobNumber", numeric)
		if err != nil {
			logger.Warn("numeric job number query failed", zap.Int64("value", numeric), zap.Error(err))
		} else {
			sheets = append(sheets, batch...)
		}
	}
	return sheets, nil
}

func dedupeByID(results [][]domain.Timesheet) []domain.Timesheet {
	seen := make(map[string]struct{})
	var sheets []domain.Timesheet
	for _, batch := range results {
		for _, sheet := range batch {
			id := strings.TrimSpace(sheet.ID)
			if id != "" {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
			}
			sheets = append(sheets, sheet)
		}
	}
	return sheets
}

// filterAndScore decides which retrieved sheets are relevant to the booking
// and assigns each a confidence score. A sheet stays when it links the
// booking directly, or when its week anchor falls inside the booking's weeks.
func filterAndScore(sheets []domain.Timesheet, booking domain.Booking, daySet domain.DateSet, weekAnchors domain.DateSet) []domain.CandidateLink {
	tokens := booking.EmployeeTokens()

	var links []domain.CandidateLink
	for _, sheet := range sheets {
		anchorValue := sheet.WeekAnchorValue()
		weekAnchor, hasAnchor := domain.NormalizeDate(anchorValue)
		dayMap := domain.NormalizeDayMap(sheet.Days, anchorValue)

		direct := isDirectLink(sheet, dayMap, booking)
		if !direct && (!hasAnchor || !weekAnchors.Contains(weekAnchor)) {
			continue
		}

		links = append(links, domain.CandidateLink{
			Timesheet:     sheet,
			BookingID:     booking.ID,
			DirectLink:    direct,
			Submitted:     sheet.IsSubmitted(),
			Score:         scoreCandidate(sheet, dayMap, booking, daySet, tokens, anchorValue),
			WeekAnchor:    weekAnchor,
			HasWeekAnchor: hasAnchor,
		})
	}
	return links
}

func isDirectLink(sheet domain.Timesheet, dayMap map[string]domain.DayEntry, booking domain.Booking) bool {
	if sheet.JobID != "" && sheet.JobID == booking.ID {
		return true
	}
	if sheet.BookingID != "" && sheet.BookingID == booking.ID {
		return true
	}
	if jobNumberEquals(sheet.JobNumber, booking.JobNumber) {
		return true
	}
	if jobsListMatches(sheet.Jobs, booking) {
		return true
	}
	for _, name := range domain.WeekdayNames {
		entry, ok := dayMap[name]
		if !ok {
			continue
		}
		if entry.BookingID != "" && entry.BookingID == booking.ID {
			return true
		}
		if entry.JobID != "" && entry.JobID == booking.ID {
			return true
		}
		if entry.JobNumber != "" && entry.JobNumber == strings.TrimSpace(booking.JobNumber) {
			return true
		}
	}
	return false
}

// scoreCandidate applies the additive confidence rule. The score orders
// candidates within the direct and non-direct tiers; it does not gate
// inclusion on its own.
func scoreCandidate(sheet domain.Timesheet, dayMap map[string]domain.DayEntry, booking domain.Booking, daySet domain.DateSet, tokens []string, anchorValue any) int {
	score := 0

	if sheet.JobID != "" && sheet.JobID == booking.ID {
		score += scoreJobIDMatch
	}
	if jobNumberEquals(sheet.JobNumber, booking.JobNumber) {
		score += scoreJobNumberMatch
	}
	if jobsListMatches(sheet.Jobs, booking) {
		score += scoreJobsListMatch
	}

	if grid, ok := domain.WeekGrid(anchorValue); ok {
		overlap := 0
		for _, date := range grid {
			if daySet.Contains(date) {
				overlap += scorePerOverlapDay
			}
		}
		if overlap > scoreOverlapCap {
			overlap = scoreOverlapCap
		}
		score += overlap
	}

	if identity := sheet.EmployeeIdentity(); identity != "" {
		for _, token := range tokens {
			if strings.Contains(token, identity) || strings.Contains(identity, token) {
				score += scoreEmployeeMatch
				break
			}
		}
	}

	if mentionsJobNumber(sheet.Notes, booking.JobNumber) {
		score += scoreNotesMention
	}

	for _, name := range domain.WeekdayNames {
		entry, ok := dayMap[name]
		if !ok {
			continue
		}
		if mentionsJobNumber(entry.DayNotes, booking.JobNumber) {
			score += scoreDayNoteMention
			break
		}
	}

	return score
}

func jobNumberEquals(raw any, jobNumber string) bool {
	jobNumber = strings.TrimSpace(jobNumber)
	if jobNumber == "" {
		return false
	}
	return domain.StringifyJobNumber(raw) == jobNumber
}

func jobsListMatches(jobs []any, booking domain.Booking) bool {
	jobNumber := strings.TrimSpace(booking.JobNumber)
	for _, entry := range jobs {
		switch v := entry.(type) {
		case string:
			trimmed := strings.TrimSpace(v)
			if trimmed == "" {
				continue
			}
			if trimmed == booking.ID || (jobNumber != "" && trimmed == jobNumber) {
				return true
			}
		case map[string]any:
			for _, key := range []string{"id", "jobId", "bookingId"} {
				if id, ok := v[key].(string); ok && id != "" && id == booking.ID {
					return true
				}
			}
			if jobNumber != "" && domain.StringifyJobNumber(v["jobNumber"]) == jobNumber {
				return true
			}
		}
	}
	return false
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// mentionsJobNumber checks free text for the job number, both verbatim and
// with punctuation stripped from both sides so "2025-014" matches "2025014".
func mentionsJobNumber(text, jobNumber string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	jobNumber = strings.ToLower(strings.TrimSpace(jobNumber))
	if text == "" || jobNumber == "" {
		return false
	}
	if strings.Contains(text, jobNumber) {
		return true
	}
	strippedText := nonAlphanumeric.ReplaceAllString(text, "")
	strippedNumber := nonAlphanumeric.ReplaceAllString(jobNumber, "")
	return strippedNumber != "" && strings.Contains(strippedText, strippedNumber)
}

// rankCandidates orders links by the fixed tie-break chain: direct links,
// then submitted sheets, then score, then week recency. The sort is stable
// for fully equal keys.
func rankCandidates(links []domain.CandidateLink) {
	sort.SliceStable(links, func(i, j int) bool {
		a, b := links[i], links[j]
		if a.DirectLink != b.DirectLink {
			return a.DirectLink
		}
		if a.Submitted != b.Submitted {
			return a.Submitted
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.HasWeekAnchor != b.HasWeekAnchor {
			return a.HasWeekAnchor
		}
		if a.HasWeekAnchor && b.HasWeekAnchor && a.WeekAnchor != b.WeekAnchor {
			return b.WeekAnchor.Before(a.WeekAnchor)
		}
		return false
	})
}
