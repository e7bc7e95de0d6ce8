package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/veredas/trailhead/internal/notify"
)

func newDigestCmd() *cobra.Command {
	var (
		configPath string
		schedule   bool
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Send the daily activity digest",
		Long: `Builds a digest of the last 24 hours (trails started and completed,
badges awarded, coins issued, per life area breakdown) and sends it to
the configured notification platform. With --schedule the command blocks
and sends on the configured cron expression instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDigest(cmd, configPath, schedule, dryRun)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "trailhead.yaml", "path to Trailhead config file")
	cmd.Flags().BoolVar(&schedule, "schedule", false, "run on the configured digest cron instead of sending once")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the digest instead of sending it")
	return cmd
}

func runDigest(cmd *cobra.Command, configPath string, schedule, dryRun bool) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	notifier, err := notifierFromConfig(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if schedule {
		fmt.Fprintf(out, "Sending daily digests on schedule %q. Ctrl-C to stop.\n", cfg.Notify.DigestCron)
		notify.RunDigestSchedule(cmd.Context(), gormDB, notifier, cfg.Notify.DigestCron)
		return nil
	}

	event, err := notify.BuildDailyDigest(gormDB)
	if err != nil {
		return fmt.Errorf("build digest: %w", err)
	}
	if event == nil {
		fmt.Fprintln(out, "No activity in the last 24 hours; nothing to send.")
		return nil
	}

	if dryRun {
		fmt.Fprintf(out, "%s\n\n%s\n", event.Title, event.Body)
		for _, f := range event.Fields {
			fmt.Fprintf(out, "%s: %s\n", f.Name, f.Value)
		}
		return nil
	}

	if err := notifier.Send(cmd.Context(), *event); err != nil {
		return fmt.Errorf("send digest: %w", err)
	}
	fmt.Fprintln(out, "Digest sent.")
	return nil
}
