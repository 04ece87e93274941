package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	logLevel  string // Log verbosity level
	logJSON   bool   // Emit JSON log lines
	configDir string // Directory holding blocks.json, tuning.yaml and scenario.yaml
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:           "voxelbuilder",
	Short:         "Voxel world host for area builders",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logrus.SetLevel(level)
		if logJSON {
			logrus.SetFormatter(&logrus.JSONFormatter{})
		}
		return nil
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log as JSON")
	rootCmd.PersistentFlags().StringVar(&configDir, "configs", "./configs", "Config directory")

	rootCmd.AddCommand(runCmd, inspectCmd, replayCmd, historyCmd)
}
