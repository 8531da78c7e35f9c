package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/crewdesk/api/internal/domain"
	"github.com/crewdesk/api/internal/repositories"
)

func TestBookingServiceGet(t *testing.T) {
	repo := newStubBookingRepository(domain.Booking{ID: "bk1", JobNumber: "2025-014"})
	svc, err := NewBookingService(repo)
	if err != nil {
		t.Fatalf("new booking service: %v", err)
	}

	booking, err := svc.Get(context.Background(), " bk1 ")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if booking.JobNumber != "2025-014" {
		t.Fatalf("unexpected booking: %+v", booking)
	}

	if _, err := svc.Get(context.Background(), "missing"); !repositories.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "  "); !errors.Is(err, ErrBookingInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestBookingServiceListByJobNumberPrefixValidation(t *testing.T) {
	svc, err := NewBookingService(newStubBookingRepository())
	if err != nil {
		t.Fatalf("new booking service: %v", err)
	}
	if _, err := svc.ListByJobNumberPrefix(context.Background(), ""); !errors.Is(err, ErrBookingInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
