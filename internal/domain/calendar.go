package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CalendarDate is a year/month/day value compared without time-of-day or
// timezone sensitivity. The zero value is not a valid date.
type CalendarDate struct {
	Year  int
	Month time.Month
	Day   int
}

// CalendarDateOf truncates a time to its local calendar date.
func CalendarDateOf(t time.Time) CalendarDate {
	year, month, day := t.Date()
	return CalendarDate{Year: year, Month: month, Day: day}
}

// Time materialises the date at local noon. Noon keeps day arithmetic stable
// across DST transitions and avoids the midnight day-shift seen when naive
// timestamps cross timezone boundaries.
func (d CalendarDate) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.Local)
}

// ISO renders the date as YYYY-MM-DD.
func (d CalendarDate) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether the date is the invalid zero value.
func (d CalendarDate) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Weekday returns the weekday of the date.
func (d CalendarDate) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// AddDays returns the date shifted by the given number of calendar days.
func (d CalendarDate) AddDays(days int) CalendarDate {
	return CalendarDateOf(d.Time().AddDate(0, 0, days))
}

// Before reports whether d is chronologically before other.
func (d CalendarDate) Before(other CalendarDate) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// After reports whether d is chronologically after other.
func (d CalendarDate) After(other CalendarDate) bool {
	return other.Before(d)
}

// WeekAnchor returns the Monday of the ISO week containing the date.
func (d CalendarDate) WeekAnchor() CalendarDate {
	weekday := d.Weekday()
	offset := int(weekday) - int(time.Monday)
	if weekday == time.Sunday {
		offset = 6
	}
	return d.AddDays(-offset)
}

var (
	isoDatePattern   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	dayFirstPattern  = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})$`)
	fallbackLayouts  = []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", time.RFC1123, time.RFC1123Z}
	epochSecondsKeys = []string{"seconds", "_seconds"}
)

// TimeConvertible is satisfied by values that can surface a native time
// directly, such as store timestamp wrappers carried through exports.
type TimeConvertible interface {
	ToTime() time.Time
}

// NormalizeDate parses a date-like value of unknown shape into a calendar
// date. Legacy documents store dates in at least five encodings: timestamp
// wrappers, epoch-seconds objects, native times, ISO strings, and day-first
// slash or dash strings. Returns false for anything unparseable; callers must
// exclude such values rather than defaulting them.
func NormalizeDate(value any) (CalendarDate, bool) {
	switch v := value.(type) {
	case nil:
		return CalendarDate{}, false
	case TimeConvertible:
		return calendarDateFromTime(v.ToTime())
	case time.Time:
		return calendarDateFromTime(v)
	case *time.Time:
		if v == nil {
			return CalendarDate{}, false
		}
		return calendarDateFromTime(*v)
	case map[string]any:
		return normalizeEpochSecondsMap(v)
	case map[string]int64:
		converted := make(map[string]any, len(v))
		for key, val := range v {
			converted[key] = val
		}
		return normalizeEpochSecondsMap(converted)
	case string:
		return normalizeDateString(v)
	case json.Number:
		millis, err := v.Int64()
		if err != nil {
			return CalendarDate{}, false
		}
		return calendarDateFromTime(time.UnixMilli(millis))
	case int:
		return calendarDateFromTime(time.UnixMilli(int64(v)))
	case int64:
		return calendarDateFromTime(time.UnixMilli(v))
	case float64:
		return calendarDateFromTime(time.UnixMilli(int64(v)))
	default:
		return CalendarDate{}, false
	}
}

func normalizeEpochSecondsMap(value map[string]any) (CalendarDate, bool) {
	for _, key := range epochSecondsKeys {
		raw, ok := value[key]
		if !ok {
			continue
		}
		seconds, ok := asInt64(raw)
		if !ok {
			continue
		}
		return calendarDateFromTime(time.UnixMilli(seconds * 1000))
	}
	// Wrapper objects sometimes carry the date under a nested field instead.
	if nested, ok := value["date"]; ok {
		return NormalizeDate(nested)
	}
	return CalendarDate{}, false
}

func normalizeDateString(value string) (CalendarDate, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return CalendarDate{}, false
	}

	if m := isoDatePattern.FindStringSubmatch(trimmed); m != nil {
		return calendarDateFromParts(m[1], m[2], m[3])
	}
	if m := dayFirstPattern.FindStringSubmatch(trimmed); m != nil {
		return calendarDateFromParts(m[3], m[2], m[1])
	}

	for _, layout := range fallbackLayouts {
		if parsed, err := time.ParseInLocation(layout, trimmed, time.Local); err == nil {
			return calendarDateFromTime(parsed)
		}
	}
	return CalendarDate{}, false
}

func calendarDateFromParts(year, month, day string) (CalendarDate, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return CalendarDate{}, false
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return CalendarDate{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return CalendarDate{}, false
	}

	candidate := time.Date(y, time.Month(m), d, 12, 0, 0, 0, time.Local)
	// time.Date normalises out-of-range components, so a round trip catches
	// impossible dates such as 2025-02-31.
	gotYear, gotMonth, gotDay := candidate.Date()
	if gotYear != y || gotMonth != time.Month(m) || gotDay != d {
		return CalendarDate{}, false
	}
	return CalendarDate{Year: y, Month: gotMonth, Day: d}, true
}

func calendarDateFromTime(t time.Time) (CalendarDate, bool) {
	if t.IsZero() {
		return CalendarDate{}, false
	}
	return CalendarDateOf(t.In(time.Local)), true
}

func asInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case json.Number:
		parsed, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// DateSet is a deduplicated collection of calendar dates.
type DateSet map[CalendarDate]struct{}

// Add inserts the date into the set.
func (s DateSet) Add(date CalendarDate) {
	s[date] = struct{}{}
}

// Contains reports membership by calendar-date equality.
func (s DateSet) Contains(date CalendarDate) bool {
	_, ok := s[date]
	return ok
}

// Sorted returns the member dates in chronological order.
func (s DateSet) Sorted() []CalendarDate {
	out := make([]CalendarDate, 0, len(s))
	for date := range s {
		out = append(out, date)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Last returns the chronologically final date, or false for an empty set.
func (s DateSet) Last() (CalendarDate, bool) {
	var last CalendarDate
	found := false
	for date := range s {
		if !found || last.Before(date) {
			last = date
			found = true
		}
	}
	return last, found
}
