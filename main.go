// Package main is the entry point for the ipdisp-client display client.
package main

import (
	"fmt"
	"os"

	"icc.tech/ipdisp-client/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
