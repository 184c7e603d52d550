// Package cmd implements CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"icc.tech/ipdisp-client/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a daemon configuration file",
	Long: `Validate a daemon configuration file without starting the daemon.

Loads the file the same way the daemon does (including defaults and
environment variable overrides) and prints the effective configuration
as YAML, so typos and out-of-range values are caught before deploy.

Examples:
  ipdispc validate
  ipdispc validate -c /etc/ipdisp-client/config.yml`,
	Run: func(cmd *cobra.Command, args []string) {
		runValidateCommand()
	},
}

func runValidateCommand() {
	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "INVALID: %v\n", err)
		os.Exit(1)
	}

	effective, err := yaml.Marshal(map[string]*config.GlobalConfig{"ipdisp-client": cfg})
	if err != nil {
		exitWithError("failed to render effective config", err)
	}

	fmt.Printf("VALID: %s\n\n", configFile)
	fmt.Print(string(effective))
}
