package service

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/room-scheduling-api/internal/scheduling"
	appErrors "github.com/noah-isme/room-scheduling-api/pkg/errors"
)

// Clock returns the current instant in the service time zone.
type Clock func() time.Time

// NewClock returns a Clock reporting wall time in loc (UTC when nil).
func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return func() time.Time { return time.Now().In(loc) }
}

// NewValidator returns a validator with the scheduling tags registered:
// clock accepts strict HH:MM values.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := scheduling.ToMinutes(fl.Field().String())
		return err == nil
	})
	return v
}

func ensureValidator(v *validator.Validate) *validator.Validate {
	if v == nil {
		return NewValidator()
	}
	return v
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func validationFailed(format string, args ...interface{}) error {
	return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf(format, args...))
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// parseTimeRange validates a HH:MM pair and requires start < end.
func parseTimeRange(start, end string) (scheduling.Window, error) {
	window, err := scheduling.ParseWindow(start, end)
	if err != nil {
		return scheduling.Window{}, validationFailed("start_time and end_time must be HH:MM")
	}
	if !window.Valid() {
		return scheduling.Window{}, validationFailed("start_time must be before end_time")
	}
	return window, nil
}

// parseDay parses a YYYY-MM-DD query value in loc. An empty value yields today.
func parseDay(raw string, now time.Time, loc *time.Location) (time.Time, error) {
	if raw == "" {
		y, m, d := now.In(loc).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
	}
	day, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return time.Time{}, validationFailed("date must be YYYY-MM-DD")
	}
	return day, nil
}

func toWeekdays(values []int) ([]time.Weekday, error) {
	seen := make(map[int]struct{}, len(values))
	out := make([]time.Weekday, 0, len(values))
	for _, v := range values {
		if v < 0 || v > 6 {
			return nil, validationFailed("weekday %d out of range 0-6", v)
		}
		if _, dup := seen[v]; dup {
			return nil, validationFailed("weekday %d repeated", v)
		}
		seen[v] = struct{}{}
		out = append(out, time.Weekday(v))
	}
	return out, nil
}
