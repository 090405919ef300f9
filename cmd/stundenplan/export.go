package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/0iy/schulportal-hessen-timetable-export/internal/config"
	"github.com/0iy/schulportal-hessen-timetable-export/internal/export"
	"github.com/0iy/schulportal-hessen-timetable-export/internal/holiday"
	"github.com/0iy/schulportal-hessen-timetable-export/internal/log"
	"github.com/0iy/schulportal-hessen-timetable-export/internal/model"
	"github.com/0iy/schulportal-hessen-timetable-export/internal/timetable"
)

var exportFlags struct {
	input      string
	target     string
	outDir     string
	breaks     bool
	from       string
	to         string
	noHolidays bool
	jsonOnly   bool
	icsOnly    bool
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Run one export and write timetable.ics and timetable.json",
	RunE:  runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVarP(&exportFlags.input, "input", "i", "", "saved timetable HTML page (overrides config)")
	f.StringVarP(&exportFlags.target, "target", "t", "", "plan to export: own or all (overrides config)")
	f.StringVarP(&exportFlags.outDir, "out", "o", "", "output directory (overrides config)")
	f.BoolVar(&exportFlags.breaks, "breaks", false, "include synthesized break entries")
	f.StringVar(&exportFlags.from, "from", "", "range start as YYYY-MM-DD (overrides config)")
	f.StringVar(&exportFlags.to, "to", "", "range end as YYYY-MM-DD (overrides config)")
	f.BoolVar(&exportFlags.noHolidays, "no-holidays", false, "skip holiday lookup; feed will have no exception dates")
	f.BoolVar(&exportFlags.jsonOnly, "json-only", false, "write only timetable.json")
	f.BoolVar(&exportFlags.icsOnly, "ics-only", false, "write only timetable.ics")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportFlags.jsonOnly && exportFlags.icsOnly {
		return fmt.Errorf("--json-only and --ics-only are mutually exclusive")
	}
	applyExportFlags(cmd, cfg)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := buildResult(ctx, cfg, exportFlags.noHolidays, time.Now())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return err
	}
	if !exportFlags.jsonOnly {
		path := filepath.Join(cfg.OutDir, "timetable.ics")
		if err := os.WriteFile(path, res.Feed, 0o644); err != nil {
			return err
		}
		log.Info("feed written", "path", path, "events", len(res.Descriptors))
	}
	if !exportFlags.icsOnly {
		path := filepath.Join(cfg.OutDir, "timetable.json")
		if err := os.WriteFile(path, res.JSON, 0o644); err != nil {
			return err
		}
		log.Info("lessons written", "path", path, "lessons", len(res.Lessons))
	}
	return nil
}

// applyExportFlags folds explicit CLI flags over the loaded config.
func applyExportFlags(cmd *cobra.Command, cfg *config.Config) {
	if exportFlags.input != "" {
		cfg.Input = exportFlags.input
	}
	if exportFlags.target != "" {
		cfg.Target = exportFlags.target
	}
	if exportFlags.outDir != "" {
		cfg.OutDir = exportFlags.outDir
	}
	if cmd.Flags().Changed("breaks") {
		cfg.IncludeBreaks = exportFlags.breaks
	}
	if exportFlags.from != "" {
		cfg.RangeStart = exportFlags.from
	}
	if exportFlags.to != "" {
		cfg.RangeEnd = exportFlags.to
	}
	cfg.Normalize()
}

// buildResult runs the whole pipeline for the current config: parse the
// saved page, extract lessons, resolve the date range and holidays, and
// export. Serve mode reuses it as its refresh function.
func buildResult(ctx context.Context, cfg *config.Config, noHolidays bool, now time.Time) (*export.Result, error) {
	f, err := os.Open(cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("open timetable page: %w", err)
	}
	doc, err := timetable.Parse(f, cfg.Target)
	f.Close()
	if err != nil {
		return nil, err
	}

	lessons := timetable.ExtractLessons(doc)
	selected := selectionKeys(lessons, cfg.Exclude)

	client := holiday.NewClient()

	rng, explicit, err := cfg.Range()
	if err != nil {
		return nil, err
	}
	if !explicit {
		if noHolidays {
			return nil, fmt.Errorf("no date range configured and holiday lookup disabled: %w", model.ErrMissingRange)
		}
		rng, err = client.SchoolYear(ctx, cfg.Land, now)
		if err != nil {
			return nil, fmt.Errorf("detect school year: %w", err)
		}
		log.Info("school year detected",
			"start", rng.Start.Format("2006-01-02"),
			"end", rng.End.Format("2006-01-02"),
			"land", cfg.Land,
		)
	}

	resolved := holiday.None()
	if !noHolidays {
		resolved = client.Fetch(ctx, yearsIn(rng), cfg.Land)
	}

	exp, err := export.New()
	if err != nil {
		return nil, err
	}
	return exp.Run(lessons, export.Options{
		Selected:      selected,
		IncludeBreaks: cfg.IncludeBreaks,
		Range:         rng,
		Holidays:      resolved,
		Now:           now,
		UIDMode:       export.UIDMode(cfg.UIDMode),
	})
}

// selectionKeys derives the selected identity keys: everything the page
// offers minus the configured exclude list. With no excludes it returns
// nil, which selects all lessons.
func selectionKeys(lessons []model.Lesson, exclude []string) []string {
	if len(exclude) == 0 {
		return nil
	}
	excluded := make(map[string]struct{}, len(exclude))
	for _, k := range exclude {
		excluded[k] = struct{}{}
	}
	seen := make(map[string]struct{})
	keys := []string{}
	for _, l := range lessons {
		if _, skip := excluded[l.Key]; skip {
			continue
		}
		if _, dup := seen[l.Key]; dup {
			continue
		}
		seen[l.Key] = struct{}{}
		keys = append(keys, l.Key)
	}
	sort.Strings(keys)
	return keys
}

// yearsIn lists the calendar years the range touches.
func yearsIn(rng model.DateRange) []int {
	var years []int
	for y := rng.Start.Year(); y <= rng.End.Year(); y++ {
		years = append(years, y)
	}
	return years
}
