// Package cmd implements CLI commands.
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"icc.tech/ipdisp-client/internal/command"
)

// stopCmd represents the stop command
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the ipdisp-client daemon",
	Long: `Stop the ipdisp-client daemon gracefully.

This command sends a shutdown signal to the running daemon via Unix
Domain Socket. The daemon will close the server connection, flush logs
and events, and exit cleanly.`,
	Run: func(cmd *cobra.Command, args []string) {
		runStopCommand()
	},
}

func runStopCommand() {
	client := command.NewUDSClient(socketPath, 10*time.Second)

	if err := client.Shutdown(); err != nil {
		exitWithError("daemon is not running or socket is inaccessible", err)
	}

	fmt.Println("Shutdown signal sent.")
}
