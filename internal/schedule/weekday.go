package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is a day of the week, Monday first.
type Weekday uint8

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{
	Monday:    "Monday",
	Tuesday:   "Tuesday",
	Wednesday: "Wednesday",
	Thursday:  "Thursday",
	Friday:    "Friday",
	Saturday:  "Saturday",
	Sunday:    "Sunday",
}

// AllWeekdays lists Monday through Sunday in order.
var AllWeekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

func (w Weekday) Valid() bool { return w >= Monday && w <= Sunday }

func (w Weekday) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Weekday(%d)", uint8(w))
	}
	return weekdayNames[w]
}

// Short returns the three-letter abbreviation, e.g. "Mon".
func (w Weekday) Short() string {
	return w.String()[:3]
}

// ParseWeekday accepts full English day names or their three-letter
// abbreviations, case-insensitively.
func ParseWeekday(name string) (Weekday, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if len(n) >= 3 {
		for _, w := range AllWeekdays {
			full := strings.ToLower(weekdayNames[w])
			if n == full || n == full[:3] {
				return w, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidInput, name)
}

func weekdayFromTime(tw time.Weekday) Weekday {
	if tw == time.Sunday {
		return Sunday
	}
	return Weekday(tw)
}

// WeekdaySet is a set of weekdays stored as a bitmask.
type WeekdaySet uint8

// NewWeekdaySet returns a set holding the given days.
func NewWeekdaySet(days ...Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s = s.Add(d)
	}
	return s
}

// ParseWeekdays parses a list of names. Entries may also be comma separated
// ("mon,wed"); blank entries are ignored.
func ParseWeekdays(names []string) (WeekdaySet, error) {
	var s WeekdaySet
	for _, raw := range names {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			w, err := ParseWeekday(part)
			if err != nil {
				return 0, err
			}
			s = s.Add(w)
		}
	}
	return s, nil
}

// Add returns s with w included. Invalid weekdays are ignored.
func (s WeekdaySet) Add(w Weekday) WeekdaySet {
	if !w.Valid() {
		return s
	}
	return s | 1<<w
}

func (s WeekdaySet) Has(w Weekday) bool {
	return w.Valid() && s&(1<<w) != 0
}

func (s WeekdaySet) Len() int {
	n := 0
	for _, w := range AllWeekdays {
		if s.Has(w) {
			n++
		}
	}
	return n
}

func (s WeekdaySet) Empty() bool { return s.Len() == 0 }

// Days returns the members Monday first.
func (s WeekdaySet) Days() []Weekday {
	out := make([]Weekday, 0, 7)
	for _, w := range AllWeekdays {
		if s.Has(w) {
			out = append(out, w)
		}
	}
	return out
}

func (s WeekdaySet) String() string {
	days := s.Days()
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = d.Short()
	}
	return strings.Join(names, ",")
}
