package cmd

import (
	"context"
	"os"

	"github.com/StuMason/frummy-supabase/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate config and parse every template",
	Long: `Run the same checks the server runs at startup without starting
anything: configuration validation (including the required backend
environment) and a full template parse. Exits non-zero on the first
failure.`,
	RunE: runLint,
}

func init() {
	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	header("Linting frummy")

	lgr := newLogger(os.Getenv(config.EnvEnv))

	if _, err := config.Load(context.Background(), lgr); err != nil {
		failure("config: %v", err)
		return err
	}
	success("config valid")

	if err := verifyTemplates("views"); err != nil {
		failure("templates: %v", err)
		return err
	}
	success("templates parse")

	return nil
}
