package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/0iy/schulportal-hessen-timetable-export/internal/timetable"
)

var classesCmd = &cobra.Command{
	Use:   "classes",
	Short: "List the subject/teacher pairs found in the input page",
	Long: "Lists every identity key the timetable offers, one per line, " +
		"for building the exclude list in the config file.",
	RunE: runClasses,
}

func init() {
	classesCmd.Flags().StringVarP(&exportFlags.input, "input", "i", "", "saved timetable HTML page (overrides config)")
	classesCmd.Flags().StringVarP(&exportFlags.target, "target", "t", "", "plan to inspect: own or all (overrides config)")
	rootCmd.AddCommand(classesCmd)
}

func runClasses(cmd *cobra.Command, args []string) error {
	applyExportFlags(cmd, cfg)

	f, err := os.Open(cfg.Input)
	if err != nil {
		return fmt.Errorf("open timetable page: %w", err)
	}
	doc, err := timetable.Parse(f, cfg.Target)
	f.Close()
	if err != nil {
		return err
	}

	type pair struct{ key, display string }
	seen := make(map[string]struct{})
	var pairs []pair
	for _, l := range timetable.ExtractLessons(doc) {
		if _, dup := seen[l.Key]; dup {
			continue
		}
		seen[l.Key] = struct{}{}
		pairs = append(pairs, pair{key: l.Key, display: fmt.Sprintf("%s (%s)", l.Subject, l.Teacher)})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].display < pairs[j].display })

	for _, p := range pairs {
		fmt.Fprintf(cmd.OutOrStdout(), "%-40s %s\n", p.display, p.key)
	}
	return nil
}
