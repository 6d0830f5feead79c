package application

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSanitizeClampsValues(t *testing.T) {
	cfg := DefaultVenueConfig()
	cfg.VenueName = "  "
	cfg.BusinessDayStartHour = 30
	cfg.WeekStartDay = "Someday"
	cfg.AverageBillMinutes = 900
	cfg.AverageHourlyRateCents = -5
	cfg.WeeklyWageThresholdPercent = 140
	cfg.ExcludedOpenOrderLabels = []string{" House ", "house", "", "Staff"}
	friday := DayConfig{TargetRevenueCents: -10, TargetWagePercent: -3}
	friday.OpeningTime = "25:70"
	friday.ClosingTime = "bogus"
	cfg.Days = map[string]DayConfig{
		"FRIDAY": friday,
		"funday": {TargetRevenueCents: 5},
	}

	out := cfg.Sanitize()
	if out.VenueName != "Venue" {
		t.Fatalf("expected default venue name, got %q", out.VenueName)
	}
	if out.BusinessDayStartHour != 5 {
		t.Fatalf("expected start hour 5, got %d", out.BusinessDayStartHour)
	}
	if out.WeekStartDay != "monday" {
		t.Fatalf("expected monday, got %s", out.WeekStartDay)
	}
	if out.AverageBillMinutes != 240 || out.AverageHourlyRateCents != 0 {
		t.Fatalf("unexpected bill/rate: %d/%d", out.AverageBillMinutes, out.AverageHourlyRateCents)
	}
	if out.WeeklyWageThresholdPercent != 100 {
		t.Fatalf("expected threshold 100, got %v", out.WeeklyWageThresholdPercent)
	}
	if len(out.ExcludedOpenOrderLabels) != 2 || out.ExcludedOpenOrderLabels[0] != "house" || out.ExcludedOpenOrderLabels[1] != "staff" {
		t.Fatalf("unexpected labels: %v", out.ExcludedOpenOrderLabels)
	}
	if len(out.Days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(out.Days))
	}
	day := out.Days["friday"]
	if day.OpeningTime != "23:59" || day.TargetRevenueCents != 0 || day.TargetWagePercent != 0 {
		t.Fatalf("unexpected friday: %+v", day)
	}
	if !out.Days["sunday"].IsClosed {
		t.Fatalf("expected missing sunday to be closed")
	}
	if !out.IsExcludedLabel("HOUSE") || out.IsExcludedLabel("") || out.IsExcludedLabel("bar") {
		t.Fatalf("unexpected excluded label matching")
	}
}

func TestParseVenueConfigReplacesDays(t *testing.T) {
	doc := []byte(`
venue_name: The Anchor
timezone: Australia/Sydney
week_start_day: sunday
days:
  saturday:
    opening_time: "12:00"
    closing_time: "02:00"
    target_revenue_cents: 900000
    target_wage_percent: 22
`)
	cfg, err := ParseVenueConfig(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.VenueName != "The Anchor" || cfg.WeekStart() != time.Sunday {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.AverageBillMinutes != defaultAverageBillMinutes {
		t.Fatalf("expected default bill minutes, got %d", cfg.AverageBillMinutes)
	}
	hours := cfg.WeekHours()
	if !hours[time.Friday].IsClosed {
		t.Fatalf("expected friday closed when the document lists only saturday")
	}
	sat := cfg.TargetsFor(time.Saturday)
	if sat.RevenueCents != 900000 || sat.WagePercent != 22 {
		t.Fatalf("unexpected saturday targets: %+v", sat)
	}
	if _, err := cfg.Location(); err != nil {
		t.Fatalf("location: %v", err)
	}
}

func TestParseVenueConfigRejectsUnknownTimezone(t *testing.T) {
	if _, err := ParseVenueConfig([]byte("timezone: Mars/Olympus")); err == nil {
		t.Fatalf("expected timezone error")
	}
}

func TestLoadVenueConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "venue.yaml")
	if err := os.WriteFile(path, []byte("venue_name: From File\naverage_bill_minutes: 30\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("VENUE_CONFIG", path)
	t.Setenv("VENUE_LOCATION_ID", "loc-9")
	t.Setenv("WEEKLY_WAGE_THRESHOLD_PERCENT", "27.5")

	cfg, err := LoadVenueConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.VenueName != "From File" || cfg.AverageBillMinutes != 30 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.LocationID != "loc-9" || cfg.WeeklyWageThresholdPercent != 27.5 {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.WeekHours()[time.Friday].IsClosed {
		t.Fatalf("expected default days kept when the file lists none")
	}
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("", "sample")
	if err != nil || mode != "sample" {
		t.Fatalf("expected fallback, got %s %v", mode, err)
	}
	mode, err = ParseMode(" RealTime ", "sample")
	if err != nil || mode != "realtime" {
		t.Fatalf("expected realtime, got %s %v", mode, err)
	}
	if _, err := ParseMode("live", "sample"); err != ErrUnknownMode {
		t.Fatalf("expected ErrUnknownMode, got %v", err)
	}
}
