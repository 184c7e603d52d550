// Package cmd implements CLI commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"icc.tech/ipdisp-client/internal/command"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show runtime statistics",
	Long: `Query the ipdisp-client daemon for runtime statistics.

Shows: frame counts and bytes received, dimension updates, receive
errors, and connection attempts since the daemon started.`,
	Run: func(cmd *cobra.Command, args []string) {
		runStatsCommand()
	},
}

func runStatsCommand() {
	client := command.NewUDSClient(socketPath, 10*time.Second)

	stats, err := client.Stats()
	if err != nil {
		exitWithError("failed to query stats", err)
	}

	resultJSON, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		exitWithError("failed to format result", err)
	}

	fmt.Println(string(resultJSON))
}
