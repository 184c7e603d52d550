// Package cmd implements CLI commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"icc.tech/ipdisp-client/internal/command"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long: `Query the ipdisp-client daemon for its overall status.

Shows: version, uptime, connection state, server address, and display
dimensions.`,
	Run: func(cmd *cobra.Command, args []string) {
		runStatusCommand()
	},
}

func runStatusCommand() {
	client := command.NewUDSClient(socketPath, 10*time.Second)

	status, err := client.Status()
	if err != nil {
		exitWithError("daemon is not running or socket is inaccessible", err)
	}

	resultJSON, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		exitWithError("failed to format result", err)
	}

	fmt.Println(string(resultJSON))
}
