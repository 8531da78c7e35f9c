package domain

import (
	"strconv"
	"strings"
	"time"
)

// BookingStatus enumerates the lifecycle states a booking moves through.
type BookingStatus string

const (
	// BookingStatusEnquiry marks a booking that has not been quoted yet.
	BookingStatusEnquiry BookingStatus = "Enquiry"
	// BookingStatusTentative marks a pencilled-in booking awaiting confirmation.
	BookingStatusTentative BookingStatus = "Tentative"
	// BookingStatusConfirmed marks a booking with a committed crew and schedule.
	BookingStatusConfirmed BookingStatus = "Confirmed"
	// BookingStatusComplete marks a booking whose confirmed schedule has fully elapsed.
	BookingStatusComplete BookingStatus = "Complete"
	// BookingStatusCancelled marks a booking withdrawn before delivery.
	BookingStatusCancelled BookingStatus = "Cancelled"
)

// Booking is a job booking document. Scheduling and employee fields are kept
// in their raw store shapes; the schedule helpers normalise them on read.
type Booking struct {
	ID        string        `firestore:"-"`
	JobNumber string        `firestore:"jobNumber"`
	Status    BookingStatus `firestore:"status"`

	// Employees holds either plain name strings or records carrying
	// code/userCode/id identity fields.
	Employees []any `firestore:"employees"`

	// Exactly one of the scheduling shapes is normally present: an explicit
	// date list, a start/end range, or a single date.
	BookingDates []any `firestore:"bookingDates"`
	StartDate    any   `firestore:"startDate"`
	EndDate      any   `firestore:"endDate"`
	Date         any   `firestore:"date"`

	Client       string     `firestore:"client"`
	Venue        string     `firestore:"venue"`
	StatusReason string     `firestore:"statusReason"`
	CompletedAt  *time.Time `firestore:"completedAt"`
	CreatedAt    time.Time  `firestore:"createdAt"`
	UpdatedAt    time.Time  `firestore:"updatedAt"`
}

// JobNumberNumeric returns the booking's job number as an integer when it is
// purely numeric, for stores that persisted the field as a number.
func (b Booking) JobNumberNumeric() (int64, bool) {
	trimmed := strings.TrimSpace(b.JobNumber)
	if trimmed == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// EmployeeCodes extracts explicit employee identifiers from the booking crew
// list. Plain name strings carry no code and are skipped; only records with a
// code, userCode, or id field participate in deterministic timesheet lookups.
func (b Booking) EmployeeCodes() []string {
	seen := make(map[string]struct{})
	var codes []string
	for _, entry := range b.Employees {
		record, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		code := firstNonEmptyString(record, "code", "userCode", "id")
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}

// EmployeeTokens derives lower-cased identity tokens from the crew list for
// fuzzy matching against timesheet employee fields. String entries contribute
// themselves; record entries contribute name, "first last", display name, and
// email.
func (b Booking) EmployeeTokens() []string {
	var tokens []string
	push := func(value string) {
		value = strings.ToLower(strings.TrimSpace(value))
		if value != "" {
			tokens = append(tokens, value)
		}
	}

	for _, entry := range b.Employees {
		switch v := entry.(type) {
		case string:
			push(v)
		case map[string]any:
			push(stringField(v, "name"))
			first := stringField(v, "firstName")
			last := stringField(v, "lastName")
			if first != "" || last != "" {
				push(strings.TrimSpace(first + " " + last))
			}
			push(stringField(v, "displayName"))
			push(stringField(v, "email"))
		}
	}
	return tokens
}

// JobSnapshot is the denormalised link hint block a timesheet may carry.
type JobSnapshot struct {
	// BookingIDs is a flat list of booking ids the sheet was saved against.
	BookingIDs []string `firestore:"bookingIds"`
	// ByDay maps weekday names to lists of {bookingId, ...} records.
	ByDay map[string]any `firestore:"byDay"`
}

// Timesheet is a weekly employee timesheet document. Field shapes vary across
// sources, so date-like and day-map fields stay raw until normalised.
type Timesheet struct {
	ID string `firestore:"-"`

	// The week anchor has been persisted under three different names over
	// the product's life; resolution tries them in order.
	WeekStart   any `firestore:"weekStart"`
	WeekStartV2 any `firestore:"week_start"`
	StartOfWeek any `firestore:"startOfWeek"`

	// Days may be a weekday-keyed object, a date-keyed object, or a list of
	// entries carrying their own day/date/offset hints.
	Days any `firestore:"days"`

	JobSnapshot *JobSnapshot `firestore:"jobSnapshot"`

	EmployeeCode  string `firestore:"employeeCode"`
	EmployeeName  string `firestore:"employeeName"`
	EmployeeEmail string `firestore:"employeeEmail"`

	// Direct link fields; any of them may be present.
	JobID     string `firestore:"jobId"`
	BookingID string `firestore:"bookingId"`
	JobNumber any    `firestore:"jobNumber"`
	Jobs      []any  `firestore:"jobs"`

	Notes string `firestore:"notes"`

	Submitted   any    `firestore:"submitted"`
	SubmittedAt any    `firestore:"submittedAt"`
	Status      string `firestore:"status"`
}

// WeekAnchorValue returns the first populated week-anchor variant.
func (t Timesheet) WeekAnchorValue() any {
	for _, candidate := range []any{t.WeekStart, t.WeekStartV2, t.StartOfWeek} {
		if candidate != nil {
			return candidate
		}
	}
	return nil
}

// IsSubmitted reports whether the sheet is finalised rather than a draft: an
// explicit submitted flag, a Submitted status string, or a submission
// timestamp all count.
func (t Timesheet) IsSubmitted() bool {
	if flag, ok := t.Submitted.(bool); ok && flag {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(t.Status), "submitted") {
		return true
	}
	if t.SubmittedAt != nil {
		if _, ok := NormalizeDate(t.SubmittedAt); ok {
			return true
		}
	}
	return false
}

// EmployeeIdentity returns the first non-empty identity hint, lower-cased.
func (t Timesheet) EmployeeIdentity() string {
	for _, candidate := range []string{t.EmployeeCode, t.EmployeeName, t.EmployeeEmail} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return strings.ToLower(trimmed)
		}
	}
	return ""
}

// TimesheetID builds the deterministic document id used when sheets are
// created from the rota: employee code, underscore, ISO Monday.
func TimesheetID(employeeCode string, weekAnchor CalendarDate) string {
	return employeeCode + "_" + weekAnchor.ISO()
}

// DayEntry is one weekday's recorded activity within a timesheet.
type DayEntry struct {
	// Mode is the activity category: onset/set, travel, yard, off, holiday,
	// or empty when the day carries no categorisation.
	Mode string

	// Direct link fields an entry may carry.
	BookingID string
	JobID     string
	JobNumber string

	DayNotes string

	// Raw keeps the source fields, including the day/date/offset hints used
	// during day-map normalisation.
	Raw map[string]any
}

// DecodeDayEntry converts a raw store value into a DayEntry. Returns false
// for shapes that cannot represent an entry.
func DecodeDayEntry(value any) (DayEntry, bool) {
	record, ok := value.(map[string]any)
	if !ok {
		return DayEntry{}, false
	}
	entry := DayEntry{
		Mode:      stringField(record, "mode"),
		BookingID: firstNonEmptyString(record, "bookingId"),
		JobID:     firstNonEmptyString(record, "jobId"),
		JobNumber: firstNonEmptyString(record, "jobNumber", "jobNo", "job"),
		DayNotes:  stringField(record, "dayNotes"),
		Raw:       record,
	}
	return entry, true
}

// CandidateLink associates one timesheet with the booking under
// reconciliation. Links are derived per request and never persisted.
type CandidateLink struct {
	Timesheet Timesheet
	BookingID string

	DirectLink bool
	Submitted  bool
	Score      int

	WeekAnchor    CalendarDate
	HasWeekAnchor bool
}

func stringField(record map[string]any, key string) string {
	if raw, ok := record[key]; ok {
		if s, ok := raw.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func firstNonEmptyString(record map[string]any, keys ...string) string {
	for _, key := range keys {
		raw, ok := record[key]
		if !ok || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		case float64:
			return formatNumericString(v)
		}
	}
	return ""
}

// formatNumericString renders store numbers the way the UI prints them:
// integers without a decimal point.
func formatNumericString(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// StringifyJobNumber renders a job number field that may be stored as either
// a string or a number.
func StringifyJobNumber(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return formatNumericString(v)
	default:
		return ""
	}
}
