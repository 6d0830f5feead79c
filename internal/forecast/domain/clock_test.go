package forecast

import (
	"errors"
	"testing"
	"time"
	_ "time/tzdata"
)

func TestParseClockMinutes(t *testing.T) {
	cases := []struct {
		in       string
		fallback int
		want     int
	}{
		{"15:30", 0, 930},
		{" 7:5 ", 0, 425},
		{"bad", 60, 60},
		{"", 90, 90},
		{"25:70", 0, 23*60 + 59},
		{"24:00", 5, 0},
		{"-3:10", 0, 10},
	}
	for _, tc := range cases {
		if got := ParseClockMinutes(tc.in, tc.fallback); got != tc.want {
			t.Fatalf("ParseClockMinutes(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
	if got := FormatClock(930); got != "15:30" {
		t.Fatalf("FormatClock = %s", got)
	}
}

func TestBusinessDayReference(t *testing.T) {
	lateNight := time.Date(2026, time.October, 17, 1, 30, 0, 0, time.UTC)
	if got := BusinessDayReference(lateNight, time.UTC, 5); got.String() != "2026-10-16" {
		t.Fatalf("expected 01:30 to belong to previous day, got %s", got)
	}
	morning := time.Date(2026, time.October, 17, 6, 0, 0, 0, time.UTC)
	if got := BusinessDayReference(morning, time.UTC, 5); got.String() != "2026-10-17" {
		t.Fatalf("expected 06:00 to belong to same day, got %s", got)
	}
}

func TestZonedClockToUTCMatchesZoneDatabase(t *testing.T) {
	loc, err := ResolveTimezone("America/New_York")
	if err != nil {
		t.Fatalf("resolve timezone: %v", err)
	}
	cases := []struct {
		date    LocalDate
		minutes int
	}{
		{LocalDate{2026, time.October, 16}, 15 * 60},
		{LocalDate{2026, time.March, 8}, 12 * 60},
		{LocalDate{2026, time.March, 8}, 1 * 60},
		{LocalDate{2026, time.November, 1}, 18 * 60},
	}
	for _, tc := range cases {
		got := ZonedClockToUTC(tc.date, tc.minutes, loc)
		want := time.Date(tc.date.Year, tc.date.Month, tc.date.Day, tc.minutes/60, tc.minutes%60, 0, 0, loc).UTC()
		if !got.Equal(want) {
			t.Fatalf("%s %s: got %s want %s", tc.date, FormatClock(tc.minutes), got, want)
		}
	}
}

func TestBuildOperatingWindowCrossesMidnight(t *testing.T) {
	date := LocalDate{2026, time.October, 16}
	window, err := BuildOperatingWindow(date, OperatingHours{OpeningTime: "15:00", ClosingTime: "03:00"}, time.UTC)
	if err != nil {
		t.Fatalf("build window: %v", err)
	}
	if !window.Start.Equal(time.Date(2026, time.October, 16, 15, 0, 0, 0, time.UTC)) {
		t.Fatalf("start mismatch: %s", window.Start)
	}
	if !window.End.Equal(time.Date(2026, time.October, 17, 3, 0, 0, 0, time.UTC)) {
		t.Fatalf("end mismatch: %s", window.End)
	}
	if BucketCount(window) != 48 {
		t.Fatalf("expected 48 buckets, got %d", BucketCount(window))
	}
}

func TestBuildOperatingWindowClosed(t *testing.T) {
	_, err := BuildOperatingWindow(LocalDate{2026, time.October, 18}, OperatingHours{IsClosed: true}, time.UTC)
	if !errors.Is(err, ErrClosedDay) {
		t.Fatalf("expected ErrClosedDay, got %v", err)
	}
}

func TestResolveTimezoneUnknown(t *testing.T) {
	if _, err := ResolveTimezone("Not/AZone"); !errors.Is(err, ErrUnknownTimezone) {
		t.Fatalf("expected ErrUnknownTimezone, got %v", err)
	}
	loc, err := ResolveTimezone("")
	if err != nil || loc != time.UTC {
		t.Fatalf("expected UTC for empty timezone")
	}
}

func TestWeekStartAndDayKeys(t *testing.T) {
	friday := LocalDate{2026, time.October, 16}
	if got := WeekStart(friday, time.Monday); got.String() != "2026-10-12" {
		t.Fatalf("week start mismatch: %s", got)
	}
	if got := WeekStart(friday, time.Friday); got.String() != "2026-10-16" {
		t.Fatalf("week start on start day mismatch: %s", got)
	}
	if day, ok := ParseDayKey("Fri"); !ok || day != time.Friday {
		t.Fatalf("ParseDayKey(Fri) = %v %v", day, ok)
	}
	if _, ok := ParseDayKey("someday"); ok {
		t.Fatalf("expected unknown day key to fail")
	}
	if DayKey(time.Saturday) != "saturday" {
		t.Fatalf("unexpected day key %s", DayKey(time.Saturday))
	}
}
