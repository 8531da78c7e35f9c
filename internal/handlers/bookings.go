package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/crewdesk/api/internal/domain"
	"github.com/crewdesk/api/internal/platform/httpx"
	"github.com/crewdesk/api/internal/repositories"
	"github.com/crewdesk/api/internal/services"
)

type bookingView struct {
	ID           string     `json:"id"`
	JobNumber    string     `json:"jobNumber"`
	Status       string     `json:"status"`
	Client       string     `json:"client,omitempty"`
	Venue        string     `json:"venue,omitempty"`
	Days         []string   `json:"days"`
	WeekAnchors  []string   `json:"weekAnchors"`
	StatusReason string     `json:"statusReason,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

type candidateView struct {
	TimesheetID  string `json:"timesheetId"`
	IsDirectLink bool   `json:"isDirectLink"`
	IsSubmitted  bool   `json:"isSubmitted"`
	Score        int    `json:"score"`
	WeekAnchor   string `json:"weekAnchor,omitempty"`
	EmployeeName string `json:"employeeName,omitempty"`
	EmployeeCode string `json:"employeeCode,omitempty"`
}

// BookingHandlers exposes booking reads and the timesheet reconciliation view.
type BookingHandlers struct {
	bookings  services.BookingService
	reconcile services.ReconcileService
}

// NewBookingHandlers constructs a new BookingHandlers instance.
func NewBookingHandlers(bookings services.BookingService, reconcile services.ReconcileService) *BookingHandlers {
	return &BookingHandlers{bookings: bookings, reconcile: reconcile}
}

// Routes registers the /bookings endpoints.
func (h *BookingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/{bookingID}", h.getBooking)
	r.Get("/{bookingID}/timesheets", h.getBookingTimesheets)
}

// JobRoutes registers the /jobs endpoints.
func (h *BookingHandlers) JobRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/{jobNumber}/bookings", h.listJobBookings)
}

func (h *BookingHandlers) getBooking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.bookings == nil {
		httpx.WriteError(ctx, w, httpx.NewError("booking_service_unavailable", "booking service unavailable", http.StatusServiceUnavailable))
		return
	}

	booking, err := h.bookings.Get(ctx, chi.URLParam(r, "bookingID"))
	if err != nil {
		writeBookingError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newBookingView(booking))
}

func (h *BookingHandlers) getBookingTimesheets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reconcile == nil {
		httpx.WriteError(ctx, w, httpx.NewError("reconcile_service_unavailable", "reconcile service unavailable", http.StatusServiceUnavailable))
		return
	}

	result, err := h.reconcile.ReconcileByID(ctx, chi.URLParam(r, "bookingID"))
	if err != nil {
		writeBookingError(w, r, err)
		return
	}

	// Partial retrieval failure is an expected condition; an empty candidate
	// list is a successful response, never an error.
	candidates := make([]candidateView, 0, len(result.Candidates))
	for _, link := range result.Candidates {
		candidates = append(candidates, newCandidateView(link))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"bookingId":  result.Booking.ID,
		"candidates": candidates,
	})
}

func (h *BookingHandlers) listJobBookings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.bookings == nil {
		httpx.WriteError(ctx, w, httpx.NewError("booking_service_unavailable", "booking service unavailable", http.StatusServiceUnavailable))
		return
	}

	bookings, err := h.bookings.ListByJobNumberPrefix(ctx, chi.URLParam(r, "jobNumber"))
	if err != nil {
		writeBookingError(w, r, err)
		return
	}

	views := make([]bookingView, 0, len(bookings))
	for _, booking := range bookings {
		views = append(views, newBookingView(booking))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"bookings": views})
}

func newBookingView(booking domain.Booking) bookingView {
	days := domain.BookingDaySet(booking).Sorted()
	dayStrings := make([]string, 0, len(days))
	for _, day := range days {
		dayStrings = append(dayStrings, day.ISO())
	}
	anchors := domain.BookingWeekAnchors(booking).Sorted()
	anchorStrings := make([]string, 0, len(anchors))
	for _, anchor := range anchors {
		anchorStrings = append(anchorStrings, anchor.ISO())
	}

	return bookingView{
		ID:           booking.ID,
		JobNumber:    booking.JobNumber,
		Status:       string(booking.Status),
		Client:       booking.Client,
		Venue:        booking.Venue,
		Days:         dayStrings,
		WeekAnchors:  anchorStrings,
		StatusReason: booking.StatusReason,
		CompletedAt:  booking.CompletedAt,
	}
}

func newCandidateView(link domain.CandidateLink) candidateView {
	view := candidateView{
		TimesheetID:  link.Timesheet.ID,
		IsDirectLink: link.DirectLink,
		IsSubmitted:  link.Submitted,
		Score:        link.Score,
		EmployeeName: strings.TrimSpace(link.Timesheet.EmployeeName),
		EmployeeCode: strings.TrimSpace(link.Timesheet.EmployeeCode),
	}
	if link.HasWeekAnchor {
		view.WeekAnchor = link.WeekAnchor.ISO()
	}
	return view
}

func writeBookingError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrBookingInvalidInput), errors.Is(err, services.ErrReconcileInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "a booking identifier is required", http.StatusBadRequest))
	case repositories.IsNotFound(err):
		httpx.WriteError(ctx, w, httpx.NewError("booking_not_found", "booking not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "request failed", http.StatusInternalServerError))
	}
}
