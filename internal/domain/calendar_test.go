package domain

import (
	"testing"
	"time"
)

type tsWrapper struct {
	t time.Time
}

func (w tsWrapper) ToTime() time.Time { return w.t }

func TestNormalizeDateEquivalentEncodings(t *testing.T) {
	want := CalendarDate{Year: 2025, Month: time.October, Day: 6}
	noon := time.Date(2025, time.October, 6, 12, 0, 0, 0, time.Local)

	cases := map[string]any{
		"iso string":        "2025-10-06",
		"day first slashes": "06/10/2025",
		"day first dashes":  "06-10-2025",
		"native time":       noon,
		"time pointer":      &noon,
		"wrapper":           tsWrapper{t: noon},
		"epoch seconds map": map[string]any{"seconds": noon.Unix()},
		"underscore map":    map[string]any{"_seconds": float64(noon.Unix())},
		"epoch millis":      noon.UnixMilli(),
		"float millis":      float64(noon.UnixMilli()),
	}

	for name, value := range cases {
		got, ok := NormalizeDate(value)
		if !ok {
			t.Fatalf("%s: expected %v to normalise", name, value)
		}
		if got != want {
			t.Fatalf("%s: got %v, want %v", name, got, want)
		}
	}
}

func TestNormalizeDateRejectsGarbage(t *testing.T) {
	values := []any{
		nil,
		"",
		"   ",
		"not a date",
		"2025-02-31",
		"32/10/2025",
		map[string]any{"nanos": 5},
		struct{}{},
		true,
	}
	for _, value := range values {
		if got, ok := NormalizeDate(value); ok {
			t.Fatalf("expected %v to be rejected, got %v", value, got)
		}
	}
}

func TestNormalizeDateGenericStringFallback(t *testing.T) {
	got, ok := NormalizeDate("2025-10-06T09:30:00Z")
	if !ok {
		t.Fatalf("expected RFC3339 string to normalise")
	}
	want := CalendarDateOf(time.Date(2025, time.October, 6, 9, 30, 0, 0, time.UTC).In(time.Local))
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestWeekAnchorIsAlwaysMonday(t *testing.T) {
	// 2025-10-06 is a Monday.
	monday := CalendarDate{Year: 2025, Month: time.October, Day: 6}
	for offset := 0; offset < 7; offset++ {
		day := monday.AddDays(offset)
		anchor := day.WeekAnchor()
		if anchor != monday {
			t.Fatalf("day %s: anchor %s, want %s", day.ISO(), anchor.ISO(), monday.ISO())
		}
		if anchor.Weekday() != time.Monday {
			t.Fatalf("anchor %s is not a Monday", anchor.ISO())
		}
	}
}

func TestCalendarDateISO(t *testing.T) {
	date := CalendarDate{Year: 2025, Month: time.March, Day: 4}
	if got := date.ISO(); got != "2025-03-04" {
		t.Fatalf("got %s, want 2025-03-04", got)
	}
}

func TestDateSetLastAndSorted(t *testing.T) {
	set := make(DateSet)
	set.Add(CalendarDate{Year: 2025, Month: time.October, Day: 8})
	set.Add(CalendarDate{Year: 2025, Month: time.October, Day: 6})
	set.Add(CalendarDate{Year: 2025, Month: time.October, Day: 7})
	set.Add(CalendarDate{Year: 2025, Month: time.October, Day: 6})

	sorted := set.Sorted()
	if len(sorted) != 3 {
		t.Fatalf("expected 3 unique dates, got %d", len(sorted))
	}
	for i := 1; i < len(sorted); i++ {
		if !sorted[i-1].Before(sorted[i]) {
			t.Fatalf("dates not in chronological order: %v", sorted)
		}
	}

	last, ok := set.Last()
	if !ok || last.Day != 8 {
		t.Fatalf("expected last day 8, got %v (ok=%v)", last, ok)
	}

	if _, ok := (DateSet{}).Last(); ok {
		t.Fatalf("empty set must report no last date")
	}
}
