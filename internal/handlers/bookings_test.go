package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/crewdesk/api/internal/domain"
	"github.com/crewdesk/api/internal/services"
)

type stubNotFoundError struct{}

func (stubNotFoundError) Error() string       { return "document not found" }
func (stubNotFoundError) IsNotFound() bool    { return true }
func (stubNotFoundError) IsConflict() bool    { return false }
func (stubNotFoundError) IsUnavailable() bool { return false }

type stubBookingService struct {
	booking domain.Booking
	list    []domain.Booking
	err     error
}

func (s *stubBookingService) Get(_ context.Context, id string) (domain.Booking, error) {
	if s.err != nil {
		return domain.Booking{}, s.err
	}
	return s.booking, nil
}

func (s *stubBookingService) ListByJobNumberPrefix(context.Context, string) ([]domain.Booking, error) {
	return s.list, s.err
}

type stubReconcileService struct {
	result services.ReconcileResult
	err    error
}

func (s *stubReconcileService) Reconcile(context.Context, domain.Booking) ([]domain.CandidateLink, error) {
	return s.result.Candidates, s.err
}

func (s *stubReconcileService) ReconcileByID(context.Context, string) (services.ReconcileResult, error) {
	return s.result, s.err
}

func newBookingTestRouter(bookings services.BookingService, reconcile services.ReconcileService) chi.Router {
	h := NewBookingHandlers(bookings, reconcile)
	return NewRouter(WithBookingRoutes(h.Routes), WithJobRoutes(h.JobRoutes))
}

func TestGetBooking(t *testing.T) {
	booking := domain.Booking{
		ID:           "bk1",
		JobNumber:    "2025-014",
		Status:       domain.BookingStatusConfirmed,
		Client:       "Northside Events",
		BookingDates: []any{"2025-10-07", "2025-10-06"},
	}
	router := newBookingTestRouter(&stubBookingService{booking: booking}, &stubReconcileService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/bookings/bk1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var view bookingView
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if view.ID != "bk1" || view.Status != "Confirmed" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if len(view.Days) != 2 || view.Days[0] != "2025-10-06" {
		t.Fatalf("expected sorted ISO days, got %v", view.Days)
	}
	if len(view.WeekAnchors) != 1 || view.WeekAnchors[0] != "2025-10-06" {
		t.Fatalf("expected the Monday anchor, got %v", view.WeekAnchors)
	}
}

func TestGetBookingNotFound(t *testing.T) {
	router := newBookingTestRouter(&stubBookingService{err: stubNotFoundError{}}, &stubReconcileService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/bookings/missing", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestGetBookingTimesheets(t *testing.T) {
	anchor, _ := domain.NormalizeDate("2025-10-06")
	result := services.ReconcileResult{
		Booking: domain.Booking{ID: "bk1"},
		Candidates: []domain.CandidateLink{
			{
				Timesheet:     domain.Timesheet{ID: "ts1", EmployeeName: "Ash Carter"},
				DirectLink:    true,
				Submitted:     true,
				Score:         116,
				WeekAnchor:    anchor,
				HasWeekAnchor: true,
			},
			{
				Timesheet: domain.Timesheet{ID: "ts2"},
				Score:     16,
			},
		},
	}
	router := newBookingTestRouter(&stubBookingService{}, &stubReconcileService{result: result})

	req := httptest.NewRequest(http.MethodGet, "/v1/bookings/bk1/timesheets", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var payload struct {
		BookingID  string          `json:"bookingId"`
		Candidates []candidateView `json:"candidates"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if payload.BookingID != "bk1" || len(payload.Candidates) != 2 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	first := payload.Candidates[0]
	if !first.IsDirectLink || !first.IsSubmitted || first.Score != 116 || first.WeekAnchor != "2025-10-06" {
		t.Fatalf("unexpected first candidate: %+v", first)
	}
	if payload.Candidates[1].WeekAnchor != "" {
		t.Fatalf("expected anchorless candidate to omit the anchor, got %+v", payload.Candidates[1])
	}
}

func TestGetBookingTimesheetsEmptyListIsOK(t *testing.T) {
	result := services.ReconcileResult{Booking: domain.Booking{ID: "bk1"}}
	router := newBookingTestRouter(&stubBookingService{}, &stubReconcileService{result: result})

	req := httptest.NewRequest(http.MethodGet, "/v1/bookings/bk1/timesheets", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for empty candidate list, got %d", rr.Code)
	}

	var payload struct {
		Candidates []candidateView `json:"candidates"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if payload.Candidates == nil || len(payload.Candidates) != 0 {
		t.Fatalf("expected an empty JSON array, got %s", rr.Body.String())
	}
}

func TestListJobBookings(t *testing.T) {
	list := []domain.Booking{
		{ID: "bk1", JobNumber: "2025-014", Status: domain.BookingStatusConfirmed},
		{ID: "bk2", JobNumber: "2025-015", Status: domain.BookingStatusTentative},
	}
	router := newBookingTestRouter(&stubBookingService{list: list}, &stubReconcileService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/2025/bookings", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var payload struct {
		Bookings []bookingView `json:"bookings"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(payload.Bookings) != 2 || payload.Bookings[0].JobNumber != "2025-014" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestBookingErrorsMapToStatusCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", services.ErrBookingInvalidInput, http.StatusBadRequest},
		{"not found", stubNotFoundError{}, http.StatusNotFound},
		{"internal", errors.New("store unavailable"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newBookingTestRouter(&stubBookingService{err: tc.err}, &stubReconcileService{})
			req := httptest.NewRequest(http.MethodGet, "/v1/bookings/bk1", nil)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rr.Code)
			}
		})
	}
}
