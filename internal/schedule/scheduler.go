// Package schedule computes course session dates.
//
// A course starts on a given date and meets on a fixed set of weekdays,
// skipping excluded dates such as holidays. The start date itself is never a
// session; the first candidate is the day after. Everything in this package is
// pure and safe to call from multiple goroutines.
package schedule

import (
	"errors"
	"fmt"
)

// DefaultMaxScanDays bounds how far past the start date the scan may look
// before the schedule is declared unreachable. Ten years.
const DefaultMaxScanDays = 3660

var (
	// ErrInvalidInput is returned for a missing or malformed start date,
	// a session count below one, or an empty weekday set.
	ErrInvalidInput = errors.New("schedule: invalid input")

	// ErrUnreachable is returned when the requested number of sessions does
	// not fit within the scan horizon, typically because exclusions cover
	// every allowed weekday.
	ErrUnreachable = errors.New("schedule: session count unreachable within scan horizon")
)

// Request is the input to a schedule computation.
type Request struct {
	Start    Date
	Sessions int
	Weekdays WeekdaySet
	Excluded DateSet
}

// Validate checks the request preconditions.
func (r Request) Validate() error {
	switch {
	case r.Start.IsZero():
		return fmt.Errorf("%w: missing start date", ErrInvalidInput)
	case !r.Start.Valid():
		return fmt.Errorf("%w: malformed start date %+v", ErrInvalidInput, r.Start)
	case r.Sessions < 1:
		return fmt.Errorf("%w: session count %d < 1", ErrInvalidInput, r.Sessions)
	case r.Weekdays.Empty():
		return fmt.Errorf("%w: no weekdays selected", ErrInvalidInput)
	}
	return nil
}

// counts reports whether d is a session day for r.
func (r Request) counts(d Date) bool {
	return r.Weekdays.Has(d.Weekday()) && !r.Excluded.Has(d)
}

// Scheduler walks the calendar day by day. The zero value uses DefaultMaxScanDays.
type Scheduler struct {
	// MaxScanDays is the number of days after the start date that may be
	// examined. Zero or negative means DefaultMaxScanDays.
	MaxScanDays int
}

// DefaultScheduler is a Scheduler with the default horizon.
var DefaultScheduler = Scheduler{MaxScanDays: DefaultMaxScanDays}

func (s Scheduler) horizon() int {
	if s.MaxScanDays <= 0 {
		return DefaultMaxScanDays
	}
	return s.MaxScanDays
}

// EndDate returns the date of the last session of r.
func (s Scheduler) EndDate(r Request) (Date, error) {
	var end Date
	err := s.walk(r, func(_ int, d Date) { end = d })
	if err != nil {
		return Date{}, err
	}
	return end, nil
}

// Sessions returns every session date of r in order. The last element equals EndDate(r).
func (s Scheduler) Sessions(r Request) ([]Date, error) {
	// The count is caller-controlled; the horizon bounds what can be found.
	out := make([]Date, 0, max(0, min(r.Sessions, s.horizon())))
	if err := s.walk(r, func(_ int, d Date) { out = append(out, d) }); err != nil {
		return nil, err
	}
	return out, nil
}

// walk calls fn for each counted session, 1-based, until r.Sessions are found.
func (s Scheduler) walk(r Request, fn func(n int, d Date)) error {
	if err := r.Validate(); err != nil {
		return err
	}

	limit := s.horizon()
	cursor := r.Start
	found := 0
	for scanned := 0; scanned < limit; scanned++ {
		cursor = cursor.AddDays(1)
		if !r.counts(cursor) {
			continue
		}
		found++
		fn(found, cursor)
		if found == r.Sessions {
			return nil
		}
	}
	return fmt.Errorf("%w: found %d of %d sessions in %d days after %s",
		ErrUnreachable, found, r.Sessions, limit, r.Start)
}

// ComputeEndDate is EndDate on DefaultScheduler with the arguments spelled out.
func ComputeEndDate(start Date, sessions int, excluded DateSet, weekdays WeekdaySet) (Date, error) {
	return DefaultScheduler.EndDate(Request{
		Start:    start,
		Sessions: sessions,
		Weekdays: weekdays,
		Excluded: excluded,
	})
}
