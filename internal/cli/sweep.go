package cli

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"quiz-assessment-service/internal/app"
	"quiz-assessment-service/internal/config"
)

// NewSweepCmd runs a single expiry sweep, for deployments that schedule it externally.
func NewSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Auto-submit expired assignments once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd.Context(), *configPath)
		},
	}
}

func runSweep(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	rt, err := openRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	engine := app.NewCompletionEngine(rt.repo, rt.catalog)
	report, err := rt.sweeper(cfg, engine).SweepOnce(ctx)
	if err != nil {
		return err
	}
	log.Printf("sweep done: found=%d completed=%d skipped=%d failed=%d",
		report.Found, report.Completed, report.Skipped, report.Failed)
	return nil
}
