package request

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// ErrStartDateEndDate is returned when the window start lies after its end.
var ErrStartDateEndDate = errors.New("start_date must be before or equal to end_date")

// Window is a closed time interval with Start <= End.
type Window struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
}

// Contains reports whether t lies inside the window.
func (w *Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Equal compares two windows by instant; two nil windows are equal.
func (w *Window) Equal(other *Window) bool {
	if w == nil || other == nil {
		return w == other
	}
	return w.Start.Equal(other.Start) && w.End.Equal(other.End)
}

// ConvertTimestamps parses the window bounds. Strings without a zone are read
// as UTC. A single bound yields a single-instant window; no bounds yield nil.
func ConvertTimestamps(start, end any) (*Window, error) {
	s, hasStart, err := toTime(start)
	if err != nil {
		return nil, fmt.Errorf("start_date: %w", err)
	}
	e, hasEnd, err := toTime(end)
	if err != nil {
		return nil, fmt.Errorf("end_date: %w", err)
	}

	switch {
	case !hasStart && !hasEnd:
		return nil, nil
	case !hasStart:
		s = e
	case !hasEnd:
		e = s
	}

	if s.After(e) {
		return nil, fmt.Errorf("%w: %s > %s", ErrStartDateEndDate, s.Format(time.RFC3339), e.Format(time.RFC3339))
	}
	return &Window{Start: s, End: e}, nil
}

func toTime(v any) (time.Time, bool, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false, nil
	case *time.Time:
		if t == nil {
			return time.Time{}, false, nil
		}
		return *t, true, nil
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false, nil
		}
		return t, true, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return time.Time{}, false, nil
		}
		v = strings.TrimSpace(t)
	}

	parsed, err := cast.ToTimeInDefaultLocationE(v, time.UTC)
	if err != nil {
		return time.Time{}, false, err
	}
	return parsed, true, nil
}
