/*
Package main is the entry point for the dfm CLI.

Usage:

	dfm [command]

Available Commands:

	analyze     Extract features and minimum wall thickness from a part
	score       Score a part description for manufacturability
	serve       Run the analysis and scoring HTTP API
	config      Create or inspect configuration

A .env file in the working directory is loaded before the environment is
read, so DFM_* settings can live there.
*/
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/chazu/dfm/internal/cli"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "none"
)

func main() {
	_ = godotenv.Load()

	root := cli.NewRootCmd(fmt.Sprintf("%s (%s)", version, commit))
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
