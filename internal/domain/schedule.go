package domain

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// WeekdayNames lists the canonical weekday keys in grid order, Monday first.
var WeekdayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

var weekdayAbbreviations = map[string]string{
	"Mon": "Monday",
	"Tue": "Tuesday",
	"Wed": "Wednesday",
	"Thu": "Thursday",
	"Fri": "Friday",
	"Sat": "Saturday",
	"Sun": "Sunday",
}

var weekdayTitle = cases.Title(language.English)

// WeekdayName maps a time.Weekday to its canonical key.
func WeekdayName(weekday time.Weekday) string {
	return weekday.String()
}

// CanonicalWeekday resolves a raw day key to a canonical weekday name. Keys
// may be full names, 3-letter abbreviations in any casing, or date strings.
// Returns false when the key resolves to nothing recognisable.
func CanonicalWeekday(key string) (string, bool) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", false
	}

	if date, ok := NormalizeDate(trimmed); ok {
		return WeekdayName(date.Weekday()), true
	}

	titled := weekdayTitle.String(strings.ToLower(trimmed))
	for _, name := range WeekdayNames {
		if titled == name {
			return name, true
		}
	}
	if full, ok := weekdayAbbreviations[titled]; ok {
		return full, true
	}
	return "", false
}

// BookingDaySet derives the booking's canonical set of scheduled calendar
// days. Precedence: explicit date list, then start/end range, then a single
// date field. Unparseable entries are dropped, never defaulted.
func BookingDaySet(booking Booking) DateSet {
	days := make(DateSet)

	if len(booking.BookingDates) > 0 {
		for _, entry := range booking.BookingDates {
			if date, ok := NormalizeDate(unwrapDateField(entry)); ok {
				days.Add(date)
			}
		}
		if len(days) > 0 {
			return days
		}
	}

	start, hasStart := NormalizeDate(booking.StartDate)
	end, hasEnd := NormalizeDate(booking.EndDate)
	if hasStart || hasEnd {
		// A single parseable boundary collapses to a one-day range.
		if !hasStart {
			start = end
		}
		if !hasEnd {
			end = start
		}
		if end.Before(start) {
			start, end = end, start
		}
		for cursor := start; !cursor.After(end); cursor = cursor.AddDays(1) {
			days.Add(cursor)
		}
		return days
	}

	if date, ok := NormalizeDate(booking.Date); ok {
		days.Add(date)
	}
	return days
}

// BookingWeekAnchors returns the Monday of every ISO week the booking's day
// set touches.
func BookingWeekAnchors(booking Booking) DateSet {
	anchors := make(DateSet)
	for day := range BookingDaySet(booking) {
		anchors.Add(day.WeekAnchor())
	}
	return anchors
}

// WeekGrid expands a week-anchor value into the seven consecutive calendar
// dates Monday through Sunday. The caller is expected to pass a value that is
// already Monday-anchored; no re-anchoring happens here. Returns false when
// the anchor cannot be normalised.
func WeekGrid(weekStart any) (map[string]CalendarDate, bool) {
	anchor, ok := NormalizeDate(weekStart)
	if !ok {
		return nil, false
	}
	grid := make(map[string]CalendarDate, len(WeekdayNames))
	for i, name := range WeekdayNames {
		grid[name] = anchor.AddDays(i)
	}
	return grid, true
}

// NormalizeDayMap reshapes a timesheet's raw days value into the canonical
// weekday-keyed entry map. Lists resolve each entry's weekday via an explicit
// day field, a date field, or an offset relative to the week start; objects
// resolve their keys as dates, full names, or abbreviations. Entries that
// resolve to no weekday are dropped; later writes win per weekday.
func NormalizeDayMap(raw any, weekStart any) map[string]DayEntry {
	normalized := make(map[string]DayEntry)

	switch days := raw.(type) {
	case []any:
		weekAnchor, hasAnchor := NormalizeDate(weekStart)
		for _, item := range days {
			entry, ok := DecodeDayEntry(item)
			if !ok {
				continue
			}
			name, ok := resolveEntryWeekday(entry, weekAnchor, hasAnchor)
			if !ok {
				continue
			}
			normalized[name] = entry
		}
	case map[string]any:
		for key, item := range days {
			entry, ok := DecodeDayEntry(item)
			if !ok {
				continue
			}
			name, ok := CanonicalWeekday(key)
			if !ok {
				continue
			}
			normalized[name] = entry
		}
	}
	return normalized
}

func resolveEntryWeekday(entry DayEntry, weekAnchor CalendarDate, hasAnchor bool) (string, bool) {
	if day := stringField(entry.Raw, "day"); day != "" {
		if name, ok := CanonicalWeekday(day); ok {
			return name, true
		}
	}
	if rawDate, ok := entry.Raw["date"]; ok {
		if date, ok := NormalizeDate(rawDate); ok {
			return WeekdayName(date.Weekday()), true
		}
	}
	if offset, ok := intField(entry.Raw, "offset"); ok && hasAnchor {
		if offset >= 0 && offset < len(WeekdayNames) {
			return WeekdayName(weekAnchor.AddDays(offset).Weekday()), true
		}
	}
	return "", false
}

func intField(record map[string]any, key string) (int, bool) {
	raw, ok := record[key]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int64(v)) {
			return int(v), true
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n, true
		}
	}
	return 0, false
}

func unwrapDateField(entry any) any {
	if record, ok := entry.(map[string]any); ok {
		if nested, ok := record["date"]; ok {
			return nested
		}
	}
	return entry
}
