package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"coursecal/internal/config"
	"coursecal/internal/ics"
	appLog "coursecal/internal/log"
	"coursecal/internal/model"
	"coursecal/internal/planner"
	"coursecal/internal/schedule"
)

const version = "0.1.0"

// Exit codes.
const (
	exitOK          = 0
	exitConfig      = 1
	exitInvalid     = 2
	exitUnreachable = 3
)

type flagConfig struct {
	configPath string
	once       bool
	debug      bool

	// Single computation mode, enabled by -start.
	start     string
	sessions  int
	days      string
	exclude   string
	holidays  string
	icsOut    string
	recurring bool
	maxScan   int
}

func main() {
	flags := parseFlags()
	os.Exit(run(flags, os.Stdout))
}

func run(flags flagConfig, stdout io.Writer) int {
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	if flags.start != "" {
		return runCompute(flags, stdout)
	}

	appLog.Info("coursecal starting", "version", version)

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		return exitConfig
	}
	if !flags.debug {
		appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	}

	appLog.Info("effective config",
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"max_scan_days", conf.MaxScanDays,
		"holiday_sources", len(conf.Holidays),
		"courses", len(conf.Courses),
		"output_dir", conf.OutputDir,
		"once", flags.once,
	)

	p, err := planner.New(conf, ics.NewFetcher(conf.CacheDir, nil))
	if err != nil {
		appLog.Error("failed to build planner", err)
		return exitConfig
	}
	runner := planner.NewRunner(conf, p)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if flags.once {
		plans, err := runner.RunOnce(ctx)
		if err != nil {
			appLog.Error("refresh had failures", err)
			return exitCodeFor(plans)
		}
		return exitOK
	}

	if err := runner.Run(ctx); err != nil {
		appLog.Error("refresh scheduler failed", err)
		return exitConfig
	}
	appLog.Info("coursecal exiting")
	return exitOK
}

// runCompute handles a single schedule given on the command line.
func runCompute(flags flagConfig, stdout io.Writer) int {
	course := model.Course{
		ID:            "cli",
		StartDate:     flags.start,
		Sessions:      flags.sessions,
		Weekdays:      splitList(flags.days),
		ExcludedDates: splitList(flags.exclude),
	}

	p := &planner.Planner{
		Scheduler: schedule.Scheduler{MaxScanDays: flags.maxScan},
		Location:  time.Local,
		Sources:   map[string]ics.Source{},
	}
	if flags.holidays != "" {
		src := ics.Source{ID: "cli-holidays"}
		if strings.Contains(flags.holidays, "://") {
			src.URL = flags.holidays
		} else {
			src.Path = flags.holidays
		}
		p.Sources[src.ID] = src
		p.Fetcher = ics.NewFetcher("", nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	plan := p.PlanCourse(ctx, course)
	if !plan.OK() {
		appLog.Error("schedule not computed", plan.Err)
		return exitCodeFor([]model.Plan{plan})
	}

	fmt.Fprintf(stdout, "end_date=%s\n", plan.EndDate)
	for _, s := range plan.Sessions {
		fmt.Fprintf(stdout, "session %d %s %s\n", s.Index, s.Date, s.Date.Weekday().Short())
	}

	if flags.icsOut != "" {
		cal, err := ics.ExportSessions(plan, ics.ExportOptions{Recurring: flags.recurring})
		if err != nil {
			appLog.Error("ics export failed", err)
			return exitConfig
		}
		if err := config.WriteFileAtomic(flags.icsOut, []byte(cal.Serialize())); err != nil {
			appLog.Error("ics write failed", err, "path", flags.icsOut)
			return exitConfig
		}
		appLog.Info("ics written", "path", flags.icsOut)
	}
	return exitOK
}

// exitCodeFor maps the first failed plan to an exit code.
func exitCodeFor(plans []model.Plan) int {
	for _, p := range plans {
		switch {
		case p.Err == nil:
			continue
		case errors.Is(p.Err, schedule.ErrInvalidInput):
			return exitInvalid
		case errors.Is(p.Err, schedule.ErrUnreachable):
			return exitUnreachable
		default:
			return exitConfig
		}
	}
	return exitConfig
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/coursecal/config.yaml", "Path to config file")
	flag.BoolVar(&cfg.once, "once", false, "Plan all configured courses once and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.StringVar(&cfg.start, "start", "", "Course start date (YYYY-MM-DD); computes a single schedule")
	flag.IntVar(&cfg.sessions, "sessions", 1, "Number of sessions")
	flag.StringVar(&cfg.days, "days", "", "Comma separated session weekdays, e.g. mon,wed")
	flag.StringVar(&cfg.exclude, "exclude", "", "Comma separated dates to skip")
	flag.StringVar(&cfg.holidays, "holidays", "", "Holiday calendar (.ics path or URL)")
	flag.StringVar(&cfg.icsOut, "ics", "", "Write sessions as iCalendar to this path")
	flag.BoolVar(&cfg.recurring, "recurring", false, "With -ics, emit one recurring event instead of one per session")
	flag.IntVar(&cfg.maxScan, "max-scan-days", schedule.DefaultMaxScanDays, "Give up after scanning this many days")

	flag.Parse()

	return cfg
}
