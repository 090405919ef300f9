package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/0iy/schulportal-hessen-timetable-export/internal/config"
	"github.com/0iy/schulportal-hessen-timetable-export/internal/log"
)

var (
	cfgPath string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "stundenplan",
	Short:         "Export Schulportal Hessen timetables as recurring calendar feeds",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		log.SetLevel(cfg.LogLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "stundenplan.yaml", "configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
