// Package main is the offline argconv CLI. It parses command lines against a
// guild described by manifest fixtures, without connecting to Discord.
//
// Usage:
//
//	argconv inspect --manifest manifest.yaml
//	argconv parse --manifest manifest.yaml --command purge "5 @alice"
//	argconv run --manifest manifest.yaml --command avatar alice
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set by ldflags during release builds.
var version = "dev"

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	manifestPath string
	logLevel     string
}

func buildRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "argconv",
		Short:         "Inspect and try message command argument parsing offline",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.manifestPath, "manifest", "m", "", "Path to a YAML manifest with overrides and fixtures")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level written to stderr")

	cmd.AddCommand(buildInspectCmd(opts), buildParseCmd(opts), buildRunCmd(opts))
	return cmd
}
