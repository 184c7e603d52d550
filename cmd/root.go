// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	socketPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ipdispc",
	Short: "ipdispc - Thin client for IP-networked display servers",
	Long: `ipdispc is a thin receiving client for IP-networked display servers.
It connects to a display server over TCP, receives framed pixel data,
converts it for presentation, and exposes the latest frame plus runtime
state over a local control socket.

Features:
  - Binary frame protocol: RGBA32 and RGB24 pixel formats
  - Dimension updates: server-announced geometry changes
  - Remote commands: raw command forwarding to the display server
  - Local control: CLI via Unix Domain Socket
  - Observability: Prometheus metrics, structured logs`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/ipdisp-client/config.yml",
		"config file path")
	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", "/var/run/ipdisp-client.sock",
		"daemon socket path")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(validateCmd)
}

// exitWithError prints error message and exits with code 1
func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
