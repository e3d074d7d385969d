package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "coursecal/internal/log"
)

// Holiday is a VEVENT from a holiday calendar, not yet expanded.
type Holiday struct {
	Source Source

	UID     string
	Summary string

	Start  time.Time
	End    time.Time // exclusive; zero when the event has no DTEND
	AllDay bool

	RawRRule string
	ExDates  []time.Time
}

// ParseHolidays parses an ICS payload into holidays. VEVENTs that cannot be
// used (no UID, no DTSTART) are logged and skipped.
func ParseHolidays(src Source, body []byte) ([]Holiday, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("holiday ics parse failed", err, "id", src.ID)
		return nil, err
	}

	out := make([]Holiday, 0)
	for _, ve := range cal.Events() {
		h, perr := parseVEvent(src, ve)
		if perr != nil {
			appLog.Error("holiday vevent skipped", perr, "id", src.ID)
			continue
		}
		out = append(out, h)
	}

	appLog.Debug("holiday ics parsed", "id", src.ID, "holiday_count", len(out))
	return out, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (Holiday, error) {
	h := Holiday{Source: src}

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return h, errors.New("missing UID")
	}
	h.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		h.Summary = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return h, errors.New("missing DTSTART")
	}
	h.AllDay = isDateValue(dtStart)

	if h.AllDay {
		start, err := ve.GetAllDayStartAt()
		if err != nil {
			return h, err
		}
		h.Start = start
		if end, err := ve.GetAllDayEndAt(); err == nil {
			h.End = end
		}
	} else {
		start, err := ve.GetStartAt()
		if err != nil {
			return h, err
		}
		h.Start = start
		if end, err := ve.GetEndAt(); err == nil {
			h.End = end
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		h.RawRRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, h.Start.Location()); err == nil {
				h.ExDates = append(h.ExDates, t)
			}
		}
	}

	return h, nil
}

// isDateValue reports whether a DTSTART carries a date rather than a date-time.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters[string(ical.ParameterValue)]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// parseICSTime parses the basic DATE / DATE-TIME / UTC forms found in EXDATE.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if loc == nil {
		loc = time.Local
	}

	switch {
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
