package timecalc_test

import (
	"testing"
	"time"

	"github.com/projtrack/ptt/internal/timecalc"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0s"},
		{45, "45s"},
		{60, "1m"},
		{90, "1m"},
		{3600, "1h 0m"},
		{3661, "1h 1m"},
		{5400, "1h 30m"},
	}
	for _, tt := range tests {
		got := timecalc.FormatDuration(tt.seconds)
		if got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestFormatDurationHHMMSS(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "00:00:00"},
		{61, "00:01:01"},
		{3661, "01:01:01"},
	}
	for _, tt := range tests {
		got := timecalc.FormatDurationHHMMSS(tt.seconds)
		if got != tt.want {
			t.Errorf("FormatDurationHHMMSS(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestDateKey(t *testing.T) {
	d := time.Date(2026, 2, 27, 23, 59, 59, 0, time.UTC)
	if got := timecalc.DateKey(d); got != "2026-02-27" {
		t.Errorf("DateKey = %q, want %q", got, "2026-02-27")
	}
}

func TestParseClock(t *testing.T) {
	day := time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC)

	got, err := timecalc.ParseClock("09:30", day)
	if err != nil {
		t.Fatalf("ParseClock: %v", err)
	}
	want := time.Date(2026, 2, 27, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseClock = %v, want %v", got, want)
	}

	got, err = timecalc.ParseClock("09:30:45", day)
	if err != nil {
		t.Fatalf("ParseClock with seconds: %v", err)
	}
	want = time.Date(2026, 2, 27, 9, 30, 45, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseClock = %v, want %v", got, want)
	}

	if _, err := timecalc.ParseClock("9h30", day); err == nil {
		t.Error("expected error for malformed clock time")
	}
}

func TestRoundSeconds(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int64
	}{
		{0, 0},
		{400 * time.Millisecond, 0},
		{500 * time.Millisecond, 1},
		{20 * time.Second, 20},
		{90*time.Second + 499*time.Millisecond, 90},
	}
	for _, tt := range tests {
		if got := timecalc.RoundSeconds(tt.d); got != tt.want {
			t.Errorf("RoundSeconds(%v) = %d, want %d", tt.d, got, tt.want)
		}
	}
}

func TestWeekRange(t *testing.T) {
	// 2026-02-27 is a Friday (week 9).
	fri := time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC)
	monday, sunday := timecalc.WeekRange(fri)

	wantMonday := time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC)
	wantSunday := time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC)

	if !monday.Equal(wantMonday) {
		t.Errorf("WeekRange monday = %v, want %v", monday, wantMonday)
	}
	if !sunday.Equal(wantSunday) {
		t.Errorf("WeekRange sunday = %v, want %v", sunday, wantSunday)
	}
}

func TestISOWeekLabel(t *testing.T) {
	fri := time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC)
	got := timecalc.ISOWeekLabel(fri)
	if got != "2026-W09" {
		t.Errorf("ISOWeekLabel = %q, want %q", got, "2026-W09")
	}
}

func TestMidnight(t *testing.T) {
	late := time.Date(2026, 2, 27, 23, 59, 50, 0, time.UTC)
	want := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	if got := timecalc.Midnight(late); !got.Equal(want) {
		t.Errorf("Midnight = %v, want %v", got, want)
	}
}

func TestSameDay(t *testing.T) {
	a := time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC)
	b := time.Date(2026, 2, 27, 23, 59, 59, 0, time.UTC)
	c := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)

	if !timecalc.SameDay(a, b) {
		t.Error("SameDay: expected same day for a and b")
	}
	if timecalc.SameDay(a, c) {
		t.Error("SameDay: expected different day for a and c")
	}
}
