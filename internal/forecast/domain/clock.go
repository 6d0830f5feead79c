package forecast

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	minutesPerDay = 24 * 60

	defaultOpeningMinutes = 17 * 60
	defaultClosingMinutes = 23 * 60
)

// OperatingHours is the configured trading window for one weekday.
// A closing time at or before the opening time means the window crosses midnight.
type OperatingHours struct {
	OpeningTime string `yaml:"opening_time" json:"openingTime"`
	ClosingTime string `yaml:"closing_time" json:"closingTime"`
	IsClosed    bool   `yaml:"is_closed" json:"isClosed"`
}

// OpeningMinutes returns the opening time as minute-of-day.
func (h OperatingHours) OpeningMinutes() int {
	return ParseClockMinutes(h.OpeningTime, defaultOpeningMinutes)
}

// ClosingMinutes returns the closing time as minute-of-day.
func (h OperatingHours) ClosingMinutes() int {
	return ParseClockMinutes(h.ClosingTime, defaultClosingMinutes)
}

// CrossesMidnight reports whether the window ends on the next calendar day.
func (h OperatingHours) CrossesMidnight() bool {
	return h.ClosingMinutes() <= h.OpeningMinutes()
}

// ParseClockMinutes converts "HH:MM" into minute-of-day.
// Malformed values return the fallback; out-of-range parts are clamped.
func ParseClockMinutes(value string, fallback int) int {
	fallback = clampInt(fallback, 0, minutesPerDay-1)
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return fallback
	}
	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return fallback
	}
	minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return fallback
	}
	if hour == 24 && minute == 0 {
		return 0
	}
	return clampInt(hour, 0, 23)*60 + clampInt(minute, 0, 59)
}

// FormatClock renders minute-of-day as "HH:MM".
func FormatClock(minutes int) string {
	minutes = ((minutes % minutesPerDay) + minutesPerDay) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// LocalDate is a calendar date without a zone.
type LocalDate struct {
	Year  int
	Month time.Month
	Day   int
}

// NewLocalDate takes the calendar date of t in its own location.
func NewLocalDate(t time.Time) LocalDate {
	y, m, d := t.Date()
	return LocalDate{Year: y, Month: m, Day: d}
}

// ParseLocalDate parses "2006-01-02".
func ParseLocalDate(value string) (LocalDate, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(value))
	if err != nil {
		return LocalDate{}, err
	}
	return NewLocalDate(t), nil
}

// IsZero reports whether the date is unset.
func (d LocalDate) IsZero() bool { return d.Year == 0 && d.Month == 0 && d.Day == 0 }

// AddDays returns the date shifted by n calendar days.
func (d LocalDate) AddDays(n int) LocalDate {
	return NewLocalDate(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

// Weekday returns the day of week.
func (d LocalDate) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC).Weekday()
}

// String renders the date as "2006-01-02".
func (d LocalDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// DayKey returns the lower-case weekday name used as config key.
func DayKey(day time.Weekday) string {
	return strings.ToLower(day.String())
}

// ParseDayKey resolves a weekday name (full or three-letter, any case).
func ParseDayKey(value string) (time.Weekday, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return time.Sunday, false
	}
	for day := time.Sunday; day <= time.Saturday; day++ {
		key := DayKey(day)
		if value == key || value == key[:3] {
			return day, true
		}
	}
	return time.Sunday, false
}

// WeekStart returns the first date of the configured week containing date.
func WeekStart(date LocalDate, weekStartDay time.Weekday) LocalDate {
	diff := (int(date.Weekday()) - int(weekStartDay) + 7) % 7
	return date.AddDays(-diff)
}

// ResolveTimezone loads an IANA zone; empty means UTC.
func ResolveTimezone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTimezone, name)
	}
	return loc, nil
}

// BusinessDayReference returns the service day an instant belongs to.
// The local clock is wound back by startHour so 01:00 still counts as last night.
func BusinessDayReference(instant time.Time, loc *time.Location, startHour int) LocalDate {
	if loc == nil {
		loc = time.UTC
	}
	shifted := instant.In(loc).Add(-time.Duration(clampInt(startHour, 0, 23)) * time.Hour)
	return NewLocalDate(shifted)
}

// ZonedClockToUTC resolves a wall-clock minute on a local date to a UTC instant.
// The zone offset is looked up twice: once at the naive instant and once at the
// corrected one. Offset changes that fall inside the target wall-clock hour are
// not disambiguated.
func ZonedClockToUTC(date LocalDate, clockMinutes int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	clockMinutes = clampInt(clockMinutes, 0, minutesPerDay-1)
	naive := time.Date(date.Year, date.Month, date.Day, 0, clockMinutes, 0, 0, time.UTC)
	offset := offsetAt(naive, loc)
	guess := naive.Add(-offset)
	if corrected := offsetAt(guess, loc); corrected != offset {
		guess = naive.Add(-corrected)
	}
	return guess.UTC()
}

func offsetAt(t time.Time, loc *time.Location) time.Duration {
	_, seconds := t.In(loc).Zone()
	return time.Duration(seconds) * time.Second
}

// Window is a half-open [Start, End) service window in UTC.
type Window struct {
	Start time.Time
	End   time.Time
}

// Duration returns the window length.
func (w Window) Duration() time.Duration { return w.End.Sub(w.Start) }

// Contains reports whether t falls inside [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// BuildOperatingWindow resolves the concrete window of hours on date.
func BuildOperatingWindow(date LocalDate, hours OperatingHours, loc *time.Location) (Window, error) {
	if loc == nil {
		return Window{}, ErrNilLocation
	}
	if hours.IsClosed {
		return Window{}, ErrClosedDay
	}
	opening := hours.OpeningMinutes()
	closing := hours.ClosingMinutes()
	endDate := date
	if closing <= opening {
		endDate = date.AddDays(1)
	}
	window := Window{
		Start: ZonedClockToUTC(date, opening, loc),
		End:   ZonedClockToUTC(endDate, closing, loc),
	}
	if !window.End.After(window.Start) {
		return Window{}, ErrInvalidWindow
	}
	return window, nil
}

func clampInt(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
