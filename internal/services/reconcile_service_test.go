package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	domain "github.com/crewdesk/api/internal/domain"
	"github.com/crewdesk/api/internal/repositories"
)

type stubNotFoundError struct{}

func (stubNotFoundError) Error() string       { return "document not found" }
func (stubNotFoundError) IsNotFound() bool    { return true }
func (stubNotFoundError) IsConflict() bool    { return false }
func (stubNotFoundError) IsUnavailable() bool { return false }

type stubTimesheetRepository struct {
	byID      map[string]domain.Timesheet
	linked    []domain.Timesheet
	linkedErr error
	equals    func(field string, value any) ([]domain.Timesheet, error)
}

var _ repositories.TimesheetRepository = (*stubTimesheetRepository)(nil)

func (s *stubTimesheetRepository) Get(_ context.Context, id string) (domain.Timesheet, error) {
	if sheet, ok := s.byID[id]; ok {
		return sheet, nil
	}
	return domain.Timesheet{}, stubNotFoundError{}
}

func (s *stubTimesheetRepository) ListByLinkedBooking(context.Context, string) ([]domain.Timesheet, error) {
	return s.linked, s.linkedErr
}

func (s *stubTimesheetRepository) ListByFieldEquals(_ context.Context, field string, value any) ([]domain.Timesheet, error) {
	if s.equals == nil {
		return nil, nil
	}
	return s.equals(field, value)
}

func (s *stubTimesheetRepository) ListByWeek(context.Context, domain.CalendarDate) ([]domain.Timesheet, error) {
	return nil, nil
}

func newTestReconcileService(t *testing.T, timesheets repositories.TimesheetRepository) ReconcileService {
	t.Helper()
	svc, err := NewReconcileService(ReconcileServiceDeps{Timesheets: timesheets})
	if err != nil {
		t.Fatalf("new reconcile service: %v", err)
	}
	return svc
}

func octoberBooking() domain.Booking {
	return domain.Booking{
		ID:           "bk1",
		JobNumber:    "2025-014",
		Status:       domain.BookingStatusConfirmed,
		BookingDates: []any{"2025-10-06", "2025-10-07"},
	}
}

func TestReconcileRanksDirectLinkFirst(t *testing.T) {
	direct := domain.Timesheet{
		ID:        "ts-direct",
		WeekStart: "2025-10-06",
		Days: map[string]any{
			"Tuesday": map[string]any{"bookingId": "bk1", "mode": "onset"},
		},
	}
	overlap := domain.Timesheet{
		ID:        "ts-overlap",
		WeekStart: "2025-10-06",
		Days: map[string]any{
			"Monday": map[string]any{"mode": "yard"},
		},
	}
	otherWeek := domain.Timesheet{
		ID:        "ts-other-week",
		WeekStart: "2025-09-29",
	}

	repo := &stubTimesheetRepository{linked: []domain.Timesheet{otherWeek, overlap, direct}}
	svc := newTestReconcileService(t, repo)

	links, err := svc.Reconcile(context.Background(), octoberBooking())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(links))
	}
	if links[0].Timesheet.ID != "ts-direct" || !links[0].DirectLink {
		t.Fatalf("expected direct link ranked first, got %+v", links[0])
	}
	if links[1].Timesheet.ID != "ts-overlap" || links[1].DirectLink {
		t.Fatalf("expected overlap candidate second, got %+v", links[1])
	}
	// Two booked days inside the candidate's week, 8 points each.
	if links[1].Score != 16 {
		t.Fatalf("expected overlap score 16, got %d", links[1].Score)
	}
}

func TestReconcileToleratesStrategyFailure(t *testing.T) {
	direct := domain.Timesheet{ID: "ts1", JobID: "bk1", WeekStart: "2025-10-06"}
	repo := &stubTimesheetRepository{
		linkedErr: errors.New("missing composite index"),
		equals: func(field string, value any) ([]domain.Timesheet, error) {
			if field == "jobId" && value == "bk1" {
				return []domain.Timesheet{direct}, nil
			}
			return nil, nil
		},
	}
	svc := newTestReconcileService(t, repo)

	links, err := svc.Reconcile(context.Background(), octoberBooking())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(links) != 1 || links[0].Timesheet.ID != "ts1" {
		t.Fatalf("expected the surviving strategy's candidate, got %+v", links)
	}
}

func TestReconcileDeduplicatesAcrossStrategies(t *testing.T) {
	sheet := domain.Timesheet{ID: "ts1", JobID: "bk1", WeekStart: "2025-10-06"}
	repo := &stubTimesheetRepository{
		linked: []domain.Timesheet{sheet},
		equals: func(field string, value any) ([]domain.Timesheet, error) {
			if field == "jobId" {
				return []domain.Timesheet{sheet}, nil
			}
			return nil, nil
		},
	}
	svc := newTestReconcileService(t, repo)

	links, err := svc.Reconcile(context.Background(), octoberBooking())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("expected one deduplicated candidate, got %d", len(links))
	}
}

func TestReconcileDirectKeyReads(t *testing.T) {
	booking := octoberBooking()
	booking.Employees = []any{
		map[string]any{"code": "emp7", "name": "Ash Carter"},
		"Name Only Crew Member",
	}

	keyed := domain.Timesheet{ID: "emp7_2025-10-06", WeekStart: "2025-10-06", EmployeeCode: "emp7"}
	repo := &stubTimesheetRepository{
		byID: map[string]domain.Timesheet{keyed.ID: keyed},
	}
	svc := newTestReconcileService(t, repo)

	links, err := svc.Reconcile(context.Background(), booking)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(links) != 1 || links[0].Timesheet.ID != keyed.ID {
		t.Fatalf("expected the point-read candidate, got %+v", links)
	}
	if links[0].DirectLink {
		t.Fatalf("a key-derived candidate with no link fields is not a direct link")
	}
}

func TestReconcileEmptyScheduleAcceptsOnlyDirectLinks(t *testing.T) {
	booking := domain.Booking{ID: "bk1", JobNumber: "77"}
	direct := domain.Timesheet{ID: "ts-direct", BookingID: "bk1", WeekStart: "2025-10-06"}
	anchored := domain.Timesheet{ID: "ts-anchored", WeekStart: "2025-10-06"}

	repo := &stubTimesheetRepository{linked: []domain.Timesheet{anchored, direct}}
	svc := newTestReconcileService(t, repo)

	links, err := svc.Reconcile(context.Background(), booking)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(links) != 1 || links[0].Timesheet.ID != "ts-direct" {
		t.Fatalf("expected only the direct link to survive, got %+v", links)
	}
}

func TestReconcileTruncatesToMaxCandidates(t *testing.T) {
	var sheets []domain.Timesheet
	for i := 0; i < 8; i++ {
		sheets = append(sheets, domain.Timesheet{
			ID:        fmt.Sprintf("ts%d", i),
			WeekStart: "2025-10-06",
		})
	}
	repo := &stubTimesheetRepository{linked: sheets}
	svc := newTestReconcileService(t, repo)

	links, err := svc.Reconcile(context.Background(), octoberBooking())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(links) != 5 {
		t.Fatalf("expected at most 5 candidates, got %d", len(links))
	}
}

func TestReconcileRejectsBlankBooking(t *testing.T) {
	svc := newTestReconcileService(t, &stubTimesheetRepository{})
	if _, err := svc.Reconcile(context.Background(), domain.Booking{}); !errors.Is(err, ErrReconcileInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestScoreCandidateComponents(t *testing.T) {
	booking := octoberBooking()
	booking.Employees = []any{map[string]any{"name": "Ash Carter", "code": "emp7"}}
	daySet := domain.BookingDaySet(booking)
	tokens := booking.EmployeeTokens()

	score := func(sheet domain.Timesheet) int {
		anchor := sheet.WeekAnchorValue()
		dayMap := domain.NormalizeDayMap(sheet.Days, anchor)
		return scoreCandidate(sheet, dayMap, booking, daySet, tokens, anchor)
	}

	cases := []struct {
		name  string
		sheet domain.Timesheet
		want  int
	}{
		{"job id match", domain.Timesheet{JobID: "bk1"}, 100},
		{"job number match", domain.Timesheet{JobNumber: "2025-014"}, 90},
		{"job number mismatch", domain.Timesheet{JobNumber: int64(77)}, 0},
		{"jobs list match", domain.Timesheet{Jobs: []any{map[string]any{"id": "bk1"}}}, 80},
		{"two day overlap", domain.Timesheet{WeekStart: "2025-10-06"}, 16},
		{"employee identity", domain.Timesheet{EmployeeName: "Ash Carter"}, 25},
		{"notes mention", domain.Timesheet{Notes: "worked job 2025014 all week"}, 10},
		{
			"day note mention",
			domain.Timesheet{
				WeekStart: "2025-09-01",
				Days: map[string]any{
					"Monday":  map[string]any{"dayNotes": "setup for 2025-014"},
					"Tuesday": map[string]any{"dayNotes": "also 2025-014"},
				},
			},
			5,
		},
	}
	for _, tc := range cases {
		if got := score(tc.sheet); got != tc.want {
			t.Fatalf("%s: expected score %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestScoreOverlapCapped(t *testing.T) {
	booking := domain.Booking{
		ID:        "bk1",
		StartDate: "2025-10-06",
		EndDate:   "2025-10-12",
	}
	daySet := domain.BookingDaySet(booking)
	sheet := domain.Timesheet{WeekStart: "2025-10-06"}

	got := scoreCandidate(sheet, nil, booking, daySet, nil, sheet.WeekAnchorValue())
	if got != scoreOverlapCap {
		t.Fatalf("expected overlap capped at %d, got %d", scoreOverlapCap, got)
	}
}

func TestScoreMonotonicUnderDirectSignal(t *testing.T) {
	booking := octoberBooking()
	daySet := domain.BookingDaySet(booking)

	plain := domain.Timesheet{WeekStart: "2025-10-06"}
	linked := plain
	linked.JobID = booking.ID

	base := scoreCandidate(plain, nil, booking, daySet, nil, plain.WeekAnchorValue())
	boosted := scoreCandidate(linked, nil, booking, daySet, nil, linked.WeekAnchorValue())
	if boosted <= base {
		t.Fatalf("expected direct signal to strictly increase score: %d vs %d", boosted, base)
	}
}

func TestRankCandidatesOrdering(t *testing.T) {
	anchor := func(iso string) domain.CalendarDate {
		date, ok := domain.NormalizeDate(iso)
		if !ok {
			t.Fatalf("bad anchor %q", iso)
		}
		return date
	}

	links := []domain.CandidateLink{
		{Timesheet: domain.Timesheet{ID: "anchorless"}, Score: 50},
		{Timesheet: domain.Timesheet{ID: "older-week"}, Score: 50, WeekAnchor: anchor("2025-09-29"), HasWeekAnchor: true},
		{Timesheet: domain.Timesheet{ID: "newer-week"}, Score: 50, WeekAnchor: anchor("2025-10-06"), HasWeekAnchor: true},
		{Timesheet: domain.Timesheet{ID: "submitted"}, Submitted: true, Score: 10, WeekAnchor: anchor("2025-09-01"), HasWeekAnchor: true},
		{Timesheet: domain.Timesheet{ID: "direct"}, DirectLink: true, Score: 0},
		{Timesheet: domain.Timesheet{ID: "direct-submitted"}, DirectLink: true, Submitted: true, Score: 0},
	}
	rankCandidates(links)

	want := []string{"direct-submitted", "direct", "submitted", "newer-week", "older-week", "anchorless"}
	for i, id := range want {
		if links[i].Timesheet.ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, links[i].Timesheet.ID)
		}
	}
}

func TestRankCandidatesStableForEqualKeys(t *testing.T) {
	links := []domain.CandidateLink{
		{Timesheet: domain.Timesheet{ID: "first"}, Score: 20},
		{Timesheet: domain.Timesheet{ID: "second"}, Score: 20},
		{Timesheet: domain.Timesheet{ID: "third"}, Score: 20},
	}
	rankCandidates(links)

	for i, id := range []string{"first", "second", "third"} {
		if links[i].Timesheet.ID != id {
			t.Fatalf("expected stable order, position %d is %s", i, links[i].Timesheet.ID)
		}
	}
}

func TestMentionsJobNumber(t *testing.T) {
	cases := []struct {
		text      string
		jobNumber string
		want      bool
	}{
		{"finished 2025-014 on friday", "2025-014", true},
		{"finished 2025014 on friday", "2025-014", true},
		{"Job 2025-014 wrap", "2025014", true},
		{"unrelated note", "2025-014", false},
		{"", "2025-014", false},
		{"anything", "", false},
	}
	for _, tc := range cases {
		if got := mentionsJobNumber(tc.text, tc.jobNumber); got != tc.want {
			t.Fatalf("mentionsJobNumber(%q, %q) = %v, want %v", tc.text, tc.jobNumber, got, tc.want)
		}
	}
}
