package planner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"coursecal/internal/config"
	"coursecal/internal/ics"
	appLog "coursecal/internal/log"
	"coursecal/internal/model"
	"coursecal/internal/schedule"
)

// New builds a Planner from configuration.
func New(cfg *config.Config, fetcher HolidayFetcher) (*Planner, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
	}
	excluded, err := schedule.ParseDates(cfg.ExcludedDates)
	if err != nil {
		return nil, fmt.Errorf("excluded_dates: %w", err)
	}

	sources := make(map[string]ics.Source, len(cfg.Holidays))
	for _, h := range cfg.Holidays {
		sources[h.ID] = ics.Source{ID: h.ID, URL: h.URL, Path: h.Path}
	}

	return &Planner{
		Scheduler: schedule.Scheduler{MaxScanDays: cfg.MaxScanDays},
		Fetcher:   fetcher,
		Location:  loc,
		Sources:   sources,
		Excluded:  excluded,
	}, nil
}

// Runner re-plans all configured courses and writes one ICS file per course.
type Runner struct {
	planner   *Planner
	courses   []model.Course
	outputDir string
	spec      string
	loc       *time.Location

	// mu serializes runs so a slow refresh never overlaps the next tick.
	mu sync.Mutex
}

// NewRunner wires a Runner for cfg.
func NewRunner(cfg *config.Config, p *Planner) *Runner {
	return &Runner{
		planner:   p,
		courses:   cfg.Courses,
		outputDir: cfg.OutputDir,
		spec:      cfg.RefreshCron,
		loc:       p.Location,
	}
}

// RunOnce plans every course and writes <output_dir>/<course-id>.ics for the
// ones that succeeded. The returned error aggregates per-course failures.
func (r *Runner) RunOnce(ctx context.Context) ([]model.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	plans := r.planner.PlanAll(ctx, r.courses)

	var errs []error
	for _, plan := range plans {
		if !plan.OK() {
			errs = append(errs, plan.Err)
			continue
		}
		if err := r.write(plan); err != nil {
			appLog.Error("ics write failed", err, "course", plan.Course.ID)
			errs = append(errs, err)
		}
	}

	appLog.Info("refresh completed",
		"courses", len(plans),
		"failed", len(errs),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return plans, errors.Join(errs...)
}

func (r *Runner) write(plan model.Plan) error {
	cal, err := ics.ExportSessions(plan, ics.ExportOptions{})
	if err != nil {
		return err
	}
	path := filepath.Join(r.outputDir, plan.Course.FileName())
	if err := config.WriteFileAtomic(path, []byte(cal.Serialize())); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	appLog.Debug("ics written", "course", plan.Course.ID, "path", path)
	return nil
}

// Run performs an initial refresh and then refreshes on the cron spec until
// ctx is canceled.
func (r *Runner) Run(ctx context.Context) error {
	c := cron.New(cron.WithLocation(r.loc))
	_, err := c.AddFunc(r.spec, func() {
		if _, err := r.RunOnce(ctx); err != nil {
			appLog.Error("scheduled refresh had failures", err)
		}
	})
	if err != nil {
		return fmt.Errorf("refresh spec %q: %w", r.spec, err)
	}

	if _, err := r.RunOnce(ctx); err != nil {
		appLog.Error("initial refresh had failures", err)
	}

	c.Start()
	appLog.Info("refresh scheduler started", "spec", r.spec, "timezone", r.loc.String())

	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	appLog.Info("refresh scheduler stopped")
	return nil
}
