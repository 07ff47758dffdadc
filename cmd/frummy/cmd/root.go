// Package cmd contains the frummy CLI commands
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "frummy",
	Short: "Supabase-backed web app template",
	Long: `frummy serves a Supabase-backed web application: auth screens,
guarded views, and CRUD scaffolding over backend collections.

Example usage:
  frummy serve     # Start the development server
  frummy build     # Verify templates and stage assets into dist/
  frummy lint      # Validate config and parse every template
  frummy preview   # Serve the production build`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func newLogger(env string) *glog.BaseLogger {
	level := glog.Info
	if env == "development" {
		level = glog.Trace
	}

	return glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(level),
		glog.WithName("frummy"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)
}

func success(format string, args ...any) {
	color.New(color.FgGreen).Fprintf(os.Stdout, "✓ "+format+"\n", args...)
}

func warning(format string, args ...any) {
	color.New(color.FgYellow).Fprintf(os.Stdout, "! "+format+"\n", args...)
}

func failure(format string, args ...any) {
	color.New(color.FgRed).Fprintf(os.Stderr, "✗ "+format+"\n", args...)
}

func header(format string, args ...any) {
	color.New(color.Bold).Fprintf(os.Stdout, format+"\n", args...)
	fmt.Println()
}
