// Package planner turns configured courses into dated session plans.
//
// It is the layer around the pure schedule package: it validates raw catalog
// values, gathers excluded dates from config and holiday calendars, and hands
// the result to schedule.Scheduler.
package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coursecal/internal/ics"
	appLog "coursecal/internal/log"
	"coursecal/internal/model"
	"coursecal/internal/schedule"
)

// HolidayFetcher loads the raw body of a holiday calendar. *ics.Fetcher implements it.
type HolidayFetcher interface {
	Fetch(ctx context.Context, src ics.Source) (ics.FetchResult, error)
}

// Planner computes course plans.
type Planner struct {
	Scheduler schedule.Scheduler
	Fetcher   HolidayFetcher

	// Location turns timed holiday instants into dates.
	Location *time.Location

	// Sources are the known holiday calendars by ID.
	Sources map[string]ics.Source

	// Excluded applies to every course.
	Excluded schedule.DateSet
}

// Request validates the raw course fields and builds a schedule request.
// extra is merged into the course's own excluded dates.
func Request(c model.Course, extra schedule.DateSet) (schedule.Request, error) {
	start, err := schedule.ParseDate(c.StartDate)
	if err != nil {
		return schedule.Request{}, fmt.Errorf("start_date: %w", err)
	}
	days, err := schedule.ParseWeekdays(c.Weekdays)
	if err != nil {
		return schedule.Request{}, fmt.Errorf("weekdays: %w", err)
	}
	excluded, err := schedule.ParseDates(c.ExcludedDates)
	if err != nil {
		return schedule.Request{}, fmt.Errorf("excluded_dates: %w", err)
	}
	excluded.Merge(extra)

	req := schedule.Request{
		Start:    start,
		Sessions: c.Sessions,
		Weekdays: days,
		Excluded: excluded,
	}
	return req, req.Validate()
}

// PlanCourse computes the plan for one course. Holiday calendars that fail
// to load are logged and skipped; only invalid input or an unreachable
// schedule make the plan fail.
func (p *Planner) PlanCourse(ctx context.Context, c model.Course) model.Plan {
	plan := model.Plan{Course: c}

	req, err := Request(c, p.Excluded)
	if err != nil {
		plan.Err = fmt.Errorf("course %s: %w", c.ID, err)
		return plan
	}

	holidays, err := p.holidayDates(ctx, c, req.Start)
	if err != nil {
		plan.Err = fmt.Errorf("course %s: %w", c.ID, err)
		return plan
	}
	req.Excluded.Merge(holidays)

	dates, err := p.Scheduler.Sessions(req)
	if err != nil {
		plan.Err = fmt.Errorf("course %s: %w", c.ID, err)
		return plan
	}

	plan.EndDate = dates[len(dates)-1]
	plan.Excluded = req.Excluded
	plan.TotalPrice = c.TotalPrice()
	plan.Sessions = make([]model.Session, len(dates))
	for i, d := range dates {
		plan.Sessions[i] = model.Session{CourseID: c.ID, Index: i + 1, Date: d}
	}
	return plan
}

// PlanAll plans every course. A failing course does not stop the others.
func (p *Planner) PlanAll(ctx context.Context, courses []model.Course) []model.Plan {
	plans := make([]model.Plan, 0, len(courses))
	for _, c := range courses {
		if err := ctx.Err(); err != nil {
			plans = append(plans, model.Plan{Course: c, Err: err})
			continue
		}
		plan := p.PlanCourse(ctx, c)
		if plan.OK() {
			appLog.Info("course planned",
				"course", c.ID,
				"start_date", c.StartDate,
				"sessions", len(plan.Sessions),
				"end_date", plan.EndDate,
				"total_price", plan.TotalPrice,
			)
		} else {
			appLog.Error("course plan failed", plan.Err, "course", c.ID)
		}
		plans = append(plans, plan)
	}
	return plans
}

// holidayDates loads the course's holiday calendars and expands them over the
// scan window [start, start+horizon].
func (p *Planner) holidayDates(ctx context.Context, c model.Course, start schedule.Date) (schedule.DateSet, error) {
	out := make(schedule.DateSet)
	sources, err := p.sourcesFor(c)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 || p.Fetcher == nil {
		return out, nil
	}

	horizon := p.Scheduler.MaxScanDays
	if horizon <= 0 {
		horizon = schedule.DefaultMaxScanDays
	}
	cfg := ics.ExpandConfig{
		Location: p.Location,
		From:     start.AddDays(1),
		To:       start.AddDays(horizon),
	}

	for _, src := range sources {
		res, err := p.Fetcher.Fetch(ctx, src)
		if err != nil {
			appLog.Error("holiday source unavailable; skipping", err, "course", c.ID, "source", src.ID)
			continue
		}
		hs, err := ics.ParseHolidays(src, res.Body)
		if err != nil {
			appLog.Error("holiday source unreadable; skipping", err, "course", c.ID, "source", src.ID)
			continue
		}
		expanded, err := ics.ExpandHolidays(hs, cfg)
		if err != nil {
			return nil, err
		}
		appLog.Debug("holidays expanded", "course", c.ID, "source", src.ID, "dates", expanded.Dates.Len())
		out.Merge(expanded.Dates)
	}
	return out, nil
}

var errUnknownSource = errors.New("unknown holiday source")

func (p *Planner) sourcesFor(c model.Course) ([]ics.Source, error) {
	if len(c.HolidaySources) == 0 {
		out := make([]ics.Source, 0, len(p.Sources))
		for _, s := range p.Sources {
			out = append(out, s)
		}
		return out, nil
	}
	out := make([]ics.Source, 0, len(c.HolidaySources))
	for _, id := range c.HolidaySources {
		s, ok := p.Sources[id]
		if !ok {
			return nil, fmt.Errorf("%w %q", errUnknownSource, id)
		}
		out = append(out, s)
	}
	return out, nil
}
