package model

import (
	"math"
	"strings"

	"coursecal/internal/schedule"
)

// Course is the scheduling metadata attached to a product variation that is
// sold as a course. Fields hold raw values as stored by the catalog; they are
// validated when a plan is computed.
type Course struct {
	// ID identifies the variation (e.g. SKU). Also used as the ICS file name.
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`

	// StartDate is YYYY-MM-DD. The start date itself is not a session.
	StartDate string `yaml:"start_date" json:"start_date"`

	// Sessions is the number of sessions sold.
	Sessions int `yaml:"sessions" json:"sessions"`

	// PricePerSession is in minor currency units (cents, won, ...).
	PricePerSession int64  `yaml:"price_per_session" json:"price_per_session"`
	Currency        string `yaml:"currency,omitempty" json:"currency,omitempty"`

	// Weekdays are day names ("monday", "Wed", ...).
	Weekdays []string `yaml:"weekdays" json:"weekdays"`

	// ExcludedDates are course-specific skip days (YYYY-MM-DD).
	ExcludedDates []string `yaml:"excluded_dates,omitempty" json:"excluded_dates,omitempty"`

	// HolidaySources lists configured holiday feed IDs whose dates are also
	// skipped. Empty means every configured feed.
	HolidaySources []string `yaml:"holiday_sources,omitempty" json:"holiday_sources,omitempty"`
}

// TotalPrice is Sessions × PricePerSession, saturated at the int64 range.
func (c Course) TotalPrice() int64 {
	if c.Sessions <= 0 || c.PricePerSession == 0 {
		return 0
	}
	n := int64(c.Sessions)
	total := n * c.PricePerSession
	if total/n != c.PricePerSession {
		if c.PricePerSession > 0 {
			return math.MaxInt64
		}
		return math.MinInt64
	}
	return total
}

// FileName is the ICS file name for the course. IDs are reduced to
// [A-Za-z0-9._-] so they cannot escape the output directory; distinct IDs
// can therefore share a file name, which config validation rejects.
func (c Course) FileName() string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, c.ID)
	clean = strings.TrimLeft(clean, ".")
	if clean == "" {
		clean = "course"
	}
	return clean + ".ics"
}

// Session is a single dated meeting of a course.
type Session struct {
	CourseID string
	// Index is 1-based.
	Index int
	Date  schedule.Date
}

// Plan is the computed schedule of one course.
type Plan struct {
	Course   Course
	EndDate  schedule.Date
	Sessions []Session
	// Excluded is the full set of skip days that applied (course + holidays).
	Excluded   schedule.DateSet
	TotalPrice int64

	// Err is set when the course could not be planned; the other fields are
	// then zero apart from Course.
	Err error
}

// OK reports whether the plan was computed.
func (p Plan) OK() bool { return p.Err == nil }
