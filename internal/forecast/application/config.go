package application

import (
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	forecast "venue-pulse/internal/forecast/domain"
)

const (
	defaultBusinessDayStartHour   = 5
	defaultTargetWagePercent      = 30
	defaultWeeklyThresholdPercent = 30
	defaultAverageHourlyRateCents = 2800
	defaultAverageBillMinutes     = 45
	maxAverageBillMinutes         = 240
)

// DayConfig holds the hours and targets of one weekday.
type DayConfig struct {
	forecast.OperatingHours `yaml:",inline"`
	TargetRevenueCents      int64   `yaml:"target_revenue_cents" json:"targetRevenueCents"`
	TargetWagePercent       float64 `yaml:"target_wage_percent" json:"targetWagePercent"`
}

// VenueConfig is the user-editable venue configuration.
type VenueConfig struct {
	VenueName                  string               `yaml:"venue_name" json:"venueName"`
	LocationID                 string               `yaml:"location_id" json:"locationId"`
	Timezone                   string               `yaml:"timezone" json:"timezone"`
	BusinessDayStartHour       int                  `yaml:"business_day_start_hour" json:"businessDayStartHour"`
	WeekStartDay               string               `yaml:"week_start_day" json:"weekStartDay"`
	Days                       map[string]DayConfig `yaml:"days" json:"days"`
	AverageBillMinutes         int                  `yaml:"average_bill_minutes" json:"averageBillMinutes"`
	AverageHourlyRateCents     int64                `yaml:"average_hourly_rate_cents" json:"averageHourlyRateCents"`
	ExcludedOpenOrderLabels    []string             `yaml:"excluded_open_order_labels" json:"excludedOpenOrderLabels"`
	WeeklyWageThresholdPercent float64              `yaml:"weekly_wage_threshold_percent" json:"weeklyWageThresholdPercent"`
}

// DefaultVenueConfig returns a Thursday to Saturday late-night venue.
func DefaultVenueConfig() VenueConfig {
	days := make(map[string]DayConfig, 7)
	for day := time.Sunday; day <= time.Saturday; day++ {
		days[forecast.DayKey(day)] = DayConfig{
			OperatingHours:    forecast.OperatingHours{IsClosed: true},
			TargetWagePercent: defaultTargetWagePercent,
		}
	}
	days["thursday"] = DayConfig{
		OperatingHours:     forecast.OperatingHours{OpeningTime: "17:00", ClosingTime: "23:00"},
		TargetRevenueCents: 450000,
		TargetWagePercent:  defaultTargetWagePercent,
	}
	days["friday"] = DayConfig{
		OperatingHours:     forecast.OperatingHours{OpeningTime: "15:00", ClosingTime: "03:00"},
		TargetRevenueCents: 1200000,
		TargetWagePercent:  25,
	}
	days["saturday"] = DayConfig{
		OperatingHours:     forecast.OperatingHours{OpeningTime: "15:00", ClosingTime: "03:00"},
		TargetRevenueCents: 1400000,
		TargetWagePercent:  25,
	}
	return VenueConfig{
		VenueName:                  "Venue",
		LocationID:                 "main",
		Timezone:                   "UTC",
		BusinessDayStartHour:       defaultBusinessDayStartHour,
		WeekStartDay:               "monday",
		Days:                       days,
		AverageBillMinutes:         defaultAverageBillMinutes,
		AverageHourlyRateCents:     defaultAverageHourlyRateCents,
		WeeklyWageThresholdPercent: defaultWeeklyThresholdPercent,
	}
}

// LoadVenueConfig loads defaults, then the VENUE_CONFIG yaml file, then env overrides.
func LoadVenueConfig() (VenueConfig, error) {
	cfg := DefaultVenueConfig()

	if path := os.Getenv("VENUE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		cfg, err = decodeOverDefaults(data)
		if err != nil {
			return cfg, err
		}
	}

	if value := os.Getenv("VENUE_NAME"); value != "" {
		cfg.VenueName = value
	}
	if value := os.Getenv("VENUE_LOCATION_ID"); value != "" {
		cfg.LocationID = value
	}
	if value := os.Getenv("VENUE_TIMEZONE"); value != "" {
		cfg.Timezone = value
	}
	if value := os.Getenv("WEEKLY_WAGE_THRESHOLD_PERCENT"); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			cfg.WeeklyWageThresholdPercent = parsed
		}
	}

	return NormalizeVenueConfig(cfg)
}

// ParseVenueConfig decodes a yaml document over the defaults.
func ParseVenueConfig(data []byte) (VenueConfig, error) {
	cfg, err := decodeOverDefaults(data)
	if err != nil {
		return VenueConfig{}, err
	}
	return NormalizeVenueConfig(cfg)
}

// decodeOverDefaults keeps the default days only when the document lists none.
func decodeOverDefaults(data []byte) (VenueConfig, error) {
	defaults := DefaultVenueConfig()
	cfg := defaults
	cfg.Days = nil
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return defaults, err
	}
	if cfg.Days == nil {
		cfg.Days = defaults.Days
	}
	return cfg, nil
}

// NormalizeVenueConfig sanitizes cfg and rejects what cannot be clamped.
func NormalizeVenueConfig(cfg VenueConfig) (VenueConfig, error) {
	cfg = cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		return VenueConfig{}, err
	}
	return cfg, nil
}

// Sanitize clamps every user-editable value into its supported range.
// Unknown day keys are dropped and missing weekdays become closed.
func (c VenueConfig) Sanitize() VenueConfig {
	out := c
	out.VenueName = strings.TrimSpace(c.VenueName)
	if out.VenueName == "" {
		out.VenueName = "Venue"
	}
	out.LocationID = strings.TrimSpace(c.LocationID)
	out.Timezone = strings.TrimSpace(c.Timezone)
	if out.BusinessDayStartHour < 0 || out.BusinessDayStartHour > 23 {
		out.BusinessDayStartHour = defaultBusinessDayStartHour
	}
	if day, ok := forecast.ParseDayKey(c.WeekStartDay); ok {
		out.WeekStartDay = forecast.DayKey(day)
	} else {
		out.WeekStartDay = forecast.DayKey(time.Monday)
	}
	if out.AverageBillMinutes < 0 {
		out.AverageBillMinutes = 0
	}
	if out.AverageBillMinutes > maxAverageBillMinutes {
		out.AverageBillMinutes = maxAverageBillMinutes
	}
	if out.AverageHourlyRateCents < 0 {
		out.AverageHourlyRateCents = 0
	}
	out.WeeklyWageThresholdPercent = sanitizePercent(c.WeeklyWageThresholdPercent, 0)

	days := make(map[string]DayConfig, 7)
	for key, day := range c.Days {
		weekday, ok := forecast.ParseDayKey(key)
		if !ok {
			continue
		}
		days[forecast.DayKey(weekday)] = sanitizeDay(day)
	}
	for day := time.Sunday; day <= time.Saturday; day++ {
		key := forecast.DayKey(day)
		if _, ok := days[key]; !ok {
			days[key] = DayConfig{
				OperatingHours:    forecast.OperatingHours{IsClosed: true},
				TargetWagePercent: defaultTargetWagePercent,
			}
		}
	}
	out.Days = days
	out.ExcludedOpenOrderLabels = normalizeLabels(c.ExcludedOpenOrderLabels)
	return out
}

// Validate reports configuration that cannot be clamped, such as an unknown timezone.
func (c VenueConfig) Validate() error {
	_, err := forecast.ResolveTimezone(c.Timezone)
	return err
}

// Location resolves the configured timezone.
func (c VenueConfig) Location() (*time.Location, error) {
	return forecast.ResolveTimezone(c.Timezone)
}

// WeekStart returns the configured first day of the week.
func (c VenueConfig) WeekStart() time.Weekday {
	day, ok := forecast.ParseDayKey(c.WeekStartDay)
	if !ok {
		return time.Monday
	}
	return day
}

// WeekHours returns operating hours keyed by weekday.
func (c VenueConfig) WeekHours() map[time.Weekday]forecast.OperatingHours {
	hours := make(map[time.Weekday]forecast.OperatingHours, len(c.Days))
	for key, day := range c.Days {
		if weekday, ok := forecast.ParseDayKey(key); ok {
			hours[weekday] = day.OperatingHours
		}
	}
	return hours
}

// TargetsFor returns the revenue and wage targets of a weekday.
func (c VenueConfig) TargetsFor(day time.Weekday) forecast.DayTargets {
	cfg, ok := c.Days[forecast.DayKey(day)]
	if !ok {
		return forecast.DayTargets{WagePercent: defaultTargetWagePercent}
	}
	return forecast.DayTargets{
		RevenueCents: cfg.TargetRevenueCents,
		WagePercent:  cfg.TargetWagePercent,
	}
}

// AverageBill returns the average bill length as a duration.
func (c VenueConfig) AverageBill() time.Duration {
	return time.Duration(c.AverageBillMinutes) * time.Minute
}

// IsExcludedLabel reports whether an open order label is excluded.
func (c VenueConfig) IsExcludedLabel(label string) bool {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return false
	}
	for _, excluded := range c.ExcludedOpenOrderLabels {
		if excluded == label {
			return true
		}
	}
	return false
}

func sanitizeDay(day DayConfig) DayConfig {
	out := day
	out.OpeningTime = forecast.FormatClock(day.OpeningMinutes())
	out.ClosingTime = forecast.FormatClock(day.ClosingMinutes())
	if out.TargetRevenueCents < 0 {
		out.TargetRevenueCents = 0
	}
	out.TargetWagePercent = sanitizePercent(day.TargetWagePercent, defaultTargetWagePercent)
	return out
}

func sanitizePercent(value, fallback float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fallback
	}
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}

func normalizeLabels(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		label = strings.ToLower(strings.TrimSpace(label))
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}
