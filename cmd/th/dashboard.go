package main

import (
	"github.com/spf13/cobra"
	"github.com/veredas/trailhead/internal/dashboard"
)

func newDashboardCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Run the ops dashboard HTTP server",
		Long: `Serves the read-only JSON API over HTTP: template catalog, per-user
trails and awards, instance detail with stage progress, recent
completions, and a live badge award event stream.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			dir, err := directoryFromConfig(cfg)
			if err != nil {
				return err
			}

			if port == 0 {
				port = cfg.Dashboard.Port
			}
			return dashboard.Start(cmd.Context(), dashboard.StartOpts{
				DB:   gormDB,
				Dir:  dir,
				Port: port,
				Out:  cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "trailhead.yaml", "path to Trailhead config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides config)")
	return cmd
}
