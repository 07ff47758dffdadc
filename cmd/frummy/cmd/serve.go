package cmd

import (
	"context"
	"os"

	frummy "github.com/StuMason/frummy-supabase"
	"github.com/StuMason/frummy-supabase/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the development server",
	Long: `Start the development server with templates and assets read from
disk, so edits show up on the next request.

Requires SUPABASE_URL and SUPABASE_ANON_KEY, either exported or in a
local .env file.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// .env is a dev convenience, a missing file is not an error
	_ = godotenv.Load()

	lgr := newLogger(os.Getenv(config.EnvEnv))

	cfg, err := config.Load(context.Background(), lgr)
	if err != nil {
		failure("configuration error: %v", err)
		return err
	}

	app, err := frummy.NewApp(cfg, lgr)
	if err != nil {
		failure("startup error: %v", err)
		return err
	}
	defer app.Close()

	header("frummy %s", version)
	success("serving on http://localhost:%d", cfg.App.Port)

	return app.Serve()
}
