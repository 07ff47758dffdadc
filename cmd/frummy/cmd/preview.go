package cmd

import (
	"context"
	"os"

	frummy "github.com/StuMason/frummy-supabase"
	"github.com/StuMason/frummy-supabase/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Serve the production build",
	Long: `Serve the app the way a deploy would: embedded templates and
assets, production log level, no disk reloading. Run 'frummy build'
first if you want dist/ populated.`,
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	lgr := newLogger("production")

	cfg, err := config.Load(context.Background(), lgr)
	if err != nil {
		failure("configuration error: %v", err)
		return err
	}
	cfg.App.Env = "production"

	if _, err := os.Stat(cfg.Views.DistDir); err != nil {
		warning("no %s/ directory, run 'frummy build' to stage assets", cfg.Views.DistDir)
	}

	app, err := frummy.NewApp(cfg, lgr, frummy.WithAppViews(frummy.EmbeddedAssets()))
	if err != nil {
		failure("startup error: %v", err)
		return err
	}
	defer app.Close()

	header("frummy %s (preview)", version)
	success("serving on http://localhost:%d", cfg.App.Port)

	return app.Serve()
}
