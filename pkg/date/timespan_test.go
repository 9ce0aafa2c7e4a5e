package date

import (
	"testing"
	"time"
)

func TestTimespan_String(t *testing.T) {
	span := Timespan{Start: timeDate(2025, 3, 1, 9, 0, 0), End: timeDate(2025, 3, 1, 10, 0, 0)}

	want := "2025-03-01 09:00:00 +0000 UTC - 2025-03-01 10:00:00 +0000 UTC"
	if span.String() != want {
		t.Errorf("String() = %q, want %q", span.String(), want)
	}
	if span.Duration() != time.Hour {
		t.Errorf("Duration() = %s", span.Duration())
	}
}

func TestMonth(t *testing.T) {
	february := Month(2024, time.February, time.UTC)

	if february.Duration() != 29*24*time.Hour {
		t.Errorf("February 2024 should span 29 days, got %s", february.Duration())
	}
	if !february.Contains(Day(timeDate(2024, 2, 29, 12, 0, 0))) {
		t.Errorf("February 2024 should contain the 29th")
	}
	if february.Contains(Day(timeDate(2024, 3, 1, 12, 0, 0))) {
		t.Errorf("February 2024 should not contain March 1st")
	}
}
