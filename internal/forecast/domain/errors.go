package forecast

import "errors"

var (
	// ErrUnknownTimezone is returned when a timezone identifier cannot be loaded.
	ErrUnknownTimezone = errors.New("forecast: unknown timezone")
	// ErrNilLocation is returned when a nil location is supplied.
	ErrNilLocation = errors.New("forecast: nil location")
	// ErrInvalidWindow is returned when a window does not end after it starts.
	ErrInvalidWindow = errors.New("forecast: invalid window")
	// ErrClosedDay is returned when a window is requested for a closed day.
	ErrClosedDay = errors.New("forecast: closed day")
)
