// Package cmd implements the ofctrld CLI commands.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	bridge  string
	logJSON bool
)

var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

// SetVersionInfo sets the version info baked into main via ldflags.
func SetVersionInfo(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	rootCmd.Version = buildVersion
	rootCmd.SetVersionTemplate(fmt.Sprintf("ofctrld version {{.Version}}\ncommit: %s\nbuilt: %s\n", buildCommit, buildDate))
}

var rootCmd = &cobra.Command{
	Use:   "ofctrld",
	Short: "ofctrld synchronizes flow and group tables against a local software switch",
	Long: "ofctrld negotiates a tunnel metadata field with a bridge's OpenFlow\n" +
		"management socket, clears its flow and group tables on connect, and\n" +
		"continuously reconciles desired state onto the switch.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (defaults built in if empty)")
	rootCmd.PersistentFlags().StringVar(&bridge, "bridge", "br-int", "bridge name to manage")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", true, "emit structured JSON logs instead of console output")

	rootCmd.Version = buildVersion
	rootCmd.SetVersionTemplate(fmt.Sprintf("ofctrld version {{.Version}}\ncommit: %s\nbuilt: %s\n", buildCommit, buildDate))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
