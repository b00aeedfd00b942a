package main

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pauljones0/shift-code-watcher/internal/config"
	"github.com/pauljones0/shift-code-watcher/internal/processor"
)

func runCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Check the page once and notify about new codes",
		Long: `Check the page once, notify about codes that were not seen before and
save the updated known set.

Exit status is 0 when no new codes were found, 3 when new codes were found
and 1 on failure.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			slog.SetDefault(slog.Default().With("run_id", uuid.NewString()))
			if dryRun {
				cfg.DryRun = true
				cfg.NotifyTransport = config.TransportLog
			}

			ctx := cmd.Context()
			p, store, err := buildProcessor(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			result, err := p.Run(ctx)
			if err != nil {
				return err
			}

			slog.Info("Run complete",
				"new", result.NewCount,
				"notified", result.Notified,
				"first_run", result.FirstRun,
				"extracted", result.Extracted,
				"known", result.Known,
			)
			exitStatus = exitStatusFor(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log new codes instead of notifying and do not save the known set")
	return cmd
}

func exitStatusFor(result processor.RunResult) int {
	if result.NewCount > 0 {
		return exitNewCodes
	}
	return exitOK
}
