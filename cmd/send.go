// Package cmd implements CLI commands.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"icc.tech/ipdisp-client/internal/command"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a raw command to the display server",
	Long: `Forward a raw command buffer to the connected display server.

The payload is taken from --data or read from the file given with
--file. The daemon writes it to the server connection as-is.

Examples:
  ipdispc send --data REFRESH
  ipdispc send --file command.bin`,
	Run: func(cmd *cobra.Command, args []string) {
		runSendCommand()
	},
}

var (
	sendData string
	sendFile string
)

func init() {
	sendCmd.Flags().StringVarP(&sendData, "data", "d", "", "command payload as a string")
	sendCmd.Flags().StringVarP(&sendFile, "file", "f", "", "file containing the command payload")
	sendCmd.MarkFlagsMutuallyExclusive("data", "file")
	sendCmd.MarkFlagsOneRequired("data", "file")
}

func runSendCommand() {
	var payload []byte
	if sendFile != "" {
		data, err := os.ReadFile(sendFile)
		if err != nil {
			exitWithError(fmt.Sprintf("failed to read file %s", sendFile), err)
		}
		payload = data
	} else {
		payload = []byte(sendData)
	}

	client := command.NewUDSClient(socketPath, 10*time.Second)

	if err := client.SendCommand(payload); err != nil {
		exitWithError("failed to send command", err)
	}

	fmt.Printf("Sent %d byte(s).\n", len(payload))
}
