// Command rrexpand expands a recurrence rule over a window and prints the
// resulting periods as text, xCal or iCalendar.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"github.com/cyp0633/calrecur/date"
	"github.com/cyp0633/calrecur/period"
	"github.com/cyp0633/calrecur/property"
	"github.com/cyp0633/calrecur/recurrence"
	"github.com/cyp0633/calrecur/tz"
	"github.com/cyp0633/calrecur/xcal"
)

const prodID = "-//calrecur//rrexpand//EN"

type flagConfig struct {
	rule       string
	start      string
	end        string
	zone       string
	duration   time.Duration
	configPath string
	format     string
	summary    string
	verbose    bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "rrexpand:", err)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (flagConfig, error) {
	var cfg flagConfig

	fs := flag.NewFlagSet("rrexpand", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.rule, "rule", "", "Recurrence rule, e.g. FREQ=WEEKLY;BYDAY=MO,TH")
	fs.StringVar(&cfg.start, "start", "", "Window start as YYYYMMDD[THHMMSS[Z]], local to -tz")
	fs.StringVar(&cfg.end, "end", "", "Window end, same format as -start")
	fs.StringVar(&cfg.zone, "tz", "", "Timezone of the window (overrides default_zone from the config)")
	fs.DurationVar(&cfg.duration, "duration", 0, "Duration of each occurrence")
	fs.StringVar(&cfg.configPath, "config", "", "Path to a YAML config file")
	fs.StringVar(&cfg.format, "format", "text", "Output format: text, xcal or ics")
	fs.StringVar(&cfg.summary, "summary", "", "SUMMARY of generated events (ics format)")
	fs.BoolVar(&cfg.verbose, "v", false, "Log debug output to stderr")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if cfg.rule == "" || cfg.start == "" || cfg.end == "" {
		fs.Usage()
		return cfg, fmt.Errorf("-rule, -start and -end are required")
	}
	switch cfg.format {
	case "text", "xcal", "ics":
	default:
		return cfg, fmt.Errorf("unknown format %q", cfg.format)
	}
	return cfg, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	flags, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if flags.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	conf := recurrence.DefaultConfig
	if flags.configPath != "" {
		conf, err = loadConfig(flags.configPath)
		if err != nil {
			return err
		}
	}

	registry := tz.NewRegistry(tz.WithLogger(logger))
	defer registry.Close()

	zoneID := flags.zone
	if zoneID == "" {
		zoneID = conf.DefaultZone
	}
	zone := tz.UTC
	if zoneID != "" {
		zone, err = registry.Resolve(zoneID)
		if err != nil {
			return err
		}
	}

	rule, err := recurrence.ParseRule(flags.rule)
	if err != nil {
		return err
	}
	start, err := parseBound(flags.start, zone)
	if err != nil {
		return fmt.Errorf("-start: %w", err)
	}
	end, err := parseBound(flags.end, zone)
	if err != nil {
		return fmt.Errorf("-end: %w", err)
	}

	expander := recurrence.NewExpander(recurrence.WithConfig(conf), recurrence.WithLogger(logger))
	defer expander.Close()

	periods, err := expander.Expand(rule, start, end, flags.duration, zone)
	if err != nil {
		return err
	}
	logger.Debug("expansion done", "rule", rule.String(), "tzid", zone.ID(), "occurrences", len(periods))

	switch flags.format {
	case "xcal":
		return writeXCal(stdout, start, zone, periods)
	case "ics":
		return writeICS(stdout, rule, start, zone, flags.summary, periods)
	default:
		return writeText(stdout, zone, periods)
	}
}

func loadConfig(path string) (recurrence.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return recurrence.Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return recurrence.LoadConfig(f)
}

// parseBound reads a window bound. Dates mean local midnight.
func parseBound(text string, zone *tz.Zone) (time.Time, error) {
	v, err := date.Parse(text, zone)
	if err != nil {
		return time.Time{}, err
	}
	return date.Instant(v, zone.Location()), nil
}

func writeText(w io.Writer, zone *tz.Zone, periods []period.Period) error {
	for _, p := range periods {
		start, end := p.In(zone.Location())
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", p, start.Format(time.RFC3339), end.Format(time.RFC3339)); err != nil {
			return err
		}
	}
	return nil
}

func startProperty(start time.Time, zone *tz.Zone) *property.DateProperty {
	dtstart := property.New(ical.PropDateTimeStart)
	dtstart.SetValue(date.NewZoned(start, zone))
	return dtstart
}

func writeXCal(w io.Writer, start time.Time, zone *tz.Zone, periods []period.Period) error {
	doc := xcal.NewDocument(prodID)
	err := doc.AddEvent(xcal.Event{
		UID:     uuid.NewString(),
		Props:   []*property.DateProperty{startProperty(start, zone)},
		Periods: periods,
	})
	if err != nil {
		return err
	}
	_, err = doc.WriteTo(w)
	return err
}

func writeICS(w io.Writer, rule *recurrence.Rule, start time.Time, zone *tz.Zone, summary string, periods []period.Period) error {
	master := ical.NewEvent()
	master.Props.Set(startProperty(start, zone).Prop())
	rruleProp := ical.NewProp(ical.PropRecurrenceRule)
	rruleProp.Value = rule.String()
	master.Props.Set(rruleProp)
	if summary != "" {
		master.Props.SetText(ical.PropSummary, summary)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)
	cal.Children = append(cal.Children, recurrence.Instances(master.Component, periods)...)

	return ical.NewEncoder(w).Encode(cal)
}
