// Command ofctrld runs the flow synchronization engine against a
// single Open vSwitch bridge, driving it in a tight tick loop until
// asked to stop.
package main

import (
	"os"

	"github.com/netrack/ofctrl/cmd/ofctrld/cmd"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, date)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
