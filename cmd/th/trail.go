package main

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/veredas/trailhead/internal/progress"
	"github.com/veredas/trailhead/internal/trail"
)

func newTrailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trail",
		Short: "Trail instance lifecycle commands",
	}

	cmd.AddCommand(newTrailStartCmd())
	cmd.AddCommand(newTrailListCmd())
	cmd.AddCommand(newTrailShowCmd())
	cmd.AddCommand(newTrailProgressCmd())
	cmd.AddCommand(newTrailPauseCmd())
	cmd.AddCommand(newTrailResumeCmd())
	cmd.AddCommand(newTrailCompleteCmd())
	return cmd
}

func newTrailStartCmd() *cobra.Command {
	var (
		configPath   string
		userID       string
		templateID   string
		name         string
		description  string
		lifeArea     string
		autoComplete bool
		stages       []string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a trail for a user",
		Long: `Starts a trail from a template (--template) or ad hoc (--name plus
--stage specs). Template starts check the user's access criteria and
prerequisites; the template is snapshotted so later edits never affect
the running journey.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := trail.StartOpts{
				UserID:       userID,
				TemplateID:   templateID,
				Name:         name,
				Description:  description,
				LifeArea:     lifeArea,
				AutoComplete: autoComplete,
			}
			if templateID == "" {
				stageOpts, err := parseStages(stages)
				if err != nil {
					return err
				}
				for _, s := range stageOpts {
					opts.Stages = append(opts.Stages, trail.StageOpts{
						Name:        s.Name,
						Description: s.Description,
						Guidance:    s.Guidance,
						Required:    s.Required,
						TargetValue: s.TargetValue,
						OrderIndex:  s.OrderIndex,
					})
				}
			}
			return runTrailStart(cmd, configPath, opts)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "trailhead.yaml", "path to Trailhead config file")
	cmd.Flags().StringVar(&userID, "user", "", "user ID (required)")
	cmd.Flags().StringVar(&templateID, "template", "", "template to start from")
	cmd.Flags().StringVar(&name, "name", "", "ad hoc trail name")
	cmd.Flags().StringVar(&description, "description", "", "ad hoc trail description")
	cmd.Flags().StringVar(&lifeArea, "life-area", "", "ad hoc life area")
	cmd.Flags().BoolVar(&autoComplete, "auto-complete", true, "complete when all required stages finish (ad hoc only)")
	cmd.Flags().StringSliceVar(&stages, "stage", nil, "ad hoc stage spec (repeatable)")
	cmd.MarkFlagRequired("user")
	return cmd
}

func runTrailStart(cmd *cobra.Command, configPath string, opts trail.StartOpts) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	dir, err := directoryFromConfig(cfg)
	if err != nil {
		return err
	}

	inst, err := trail.Start(cmd.Context(), gormDB, dir, opts)
	if err != nil {
		var pe *trail.PrereqError
		if errors.As(err, &pe) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cannot start: %d prerequisite(s) not completed:\n", len(pe.Unmet))
			for _, t := range pe.Unmet {
				fmt.Fprintf(out, "  %s  %s\n", t.ID, t.Name)
			}
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Started trail %s for %s\n", inst.ID, inst.UserID)
	fmt.Fprintf(out, "Name: %s (%d stages)\n", inst.Name, len(inst.Stages))
	return nil
}

func newTrailListCmd() *cobra.Command {
	var (
		configPath string
		userID     string
		status     string
		lifeArea   string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trail instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrailList(cmd, configPath, trail.ListFilters{
				UserID:   userID,
				Status:   status,
				LifeArea: lifeArea,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "trailhead.yaml", "path to Trailhead config file")
	cmd.Flags().StringVar(&userID, "user", "", "filter by user")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (active, paused, completed)")
	cmd.Flags().StringVar(&lifeArea, "life-area", "", "filter by life area")
	return cmd
}

func runTrailList(cmd *cobra.Command, configPath string, filters trail.ListFilters) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	instances, err := trail.List(gormDB, filters)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(instances) == 0 {
		fmt.Fprintln(out, "No trails found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSER\tNAME\tLIFE AREA\tSTATUS\tSTARTED")
	for _, inst := range instances {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			inst.ID, inst.UserID, truncate(inst.Name, 40), inst.LifeArea,
			inst.Status, inst.StartedAt.Format("2006-01-02"))
	}
	w.Flush()
	return nil
}

func newTrailShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a trail instance with stage progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrailShow(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "trailhead.yaml", "path to Trailhead config file")
	return cmd
}

func runTrailShow(cmd *cobra.Command, configPath, id string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	inst, err := trail.Get(gormDB, id)
	if err != nil {
		return err
	}
	summary := progress.Compute(inst.Stages, inst.Progress)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:        %s\n", inst.ID)
	fmt.Fprintf(out, "User:      %s\n", inst.UserID)
	fmt.Fprintf(out, "Name:      %s\n", inst.Name)
	if inst.LifeArea != "" {
		fmt.Fprintf(out, "Life area: %s\n", inst.LifeArea)
	}
	fmt.Fprintf(out, "Status:    %s\n", inst.Status)
	fmt.Fprintf(out, "Started:   %s\n", inst.StartedAt.Format("2006-01-02 15:04"))
	if inst.CompletedAt != nil {
		fmt.Fprintf(out, "Completed: %s\n", inst.CompletedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(out, "Progress:  %s %.0f%% (%d/%d required)\n",
		progressBar(summary.Percentage, 20), summary.Percentage,
		summary.CompletedCount, summary.RequiredCount)

	byStage := make(map[string]int, len(inst.Progress))
	done := make(map[string]bool, len(inst.Progress))
	for _, p := range inst.Progress {
		byStage[p.StageID] = p.ProgressValue
		done[p.StageID] = p.IsCompleted
	}

	fmt.Fprintf(out, "\nStages (%d):\n", len(inst.Stages))
	for _, s := range inst.Stages {
		mark := " "
		if done[s.ID] {
			mark = "x"
		}
		label := ""
		if !s.Required {
			label = " (optional)"
		}
		fmt.Fprintf(out, "  [%s] %s  %s  %d/%d%s\n",
			mark, s.ID, s.Name, byStage[s.ID], s.TargetValue, label)
	}
	return nil
}

func newTrailProgressCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "progress <instance-id> <stage-id> <value>",
		Short: "Record progress on a stage",
		Long: `Sets the absolute progress value for one stage of an active trail.
Values are clamped to [0, target]. Reaching the target completes the
stage; finishing the last required stage completes the whole trail when
auto-complete is on.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("bad value %q: %w", args[2], err)
			}
			return runTrailProgress(cmd, configPath, args[0], args[1], value)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "trailhead.yaml", "path to Trailhead config file")
	return cmd
}

func runTrailProgress(cmd *cobra.Command, configPath, instanceID, stageID string, value int) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	dispatcher, err := dispatcherFromConfig(cfg)
	if err != nil {
		return err
	}

	upd, err := trail.SetStageProgress(cmd.Context(), gormDB, dispatcher, instanceID, stageID, value)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Stage %s: %d/%d\n", stageID, upd.Stage.ProgressValue, upd.Stage.TargetValue)
	if upd.StageCompleted {
		fmt.Fprintln(out, "Stage complete.")
	}
	fmt.Fprintf(out, "Trail: %s %.0f%%\n", progressBar(upd.Summary.Percentage, 20), upd.Summary.Percentage)
	if upd.AutoCompleted {
		fmt.Fprintf(out, "\nTrail %s completed!\n", instanceID)
	}
	return nil
}

func newTrailPauseCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "pause <id>",
		Short: "Pause an active trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			inst, err := trail.Pause(gormDB, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Paused trail %s: %s\n", inst.ID, inst.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "trailhead.yaml", "path to Trailhead config file")
	return cmd
}

func newTrailResumeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "resume <id>",
		Short: "Resume a paused trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			inst, err := trail.Resume(gormDB, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Resumed trail %s: %s\n", inst.ID, inst.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "trailhead.yaml", "path to Trailhead config file")
	return cmd
}

func newTrailCompleteCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Complete an active trail",
		Long: `Marks an active trail completed and issues its badge and coins.
Completing an already-completed trail is a no-op. A paused trail must be
resumed first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrailComplete(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "trailhead.yaml", "path to Trailhead config file")
	return cmd
}

func runTrailComplete(cmd *cobra.Command, configPath, id string) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	dispatcher, err := dispatcherFromConfig(cfg)
	if err != nil {
		return err
	}

	inst, err := trail.Complete(cmd.Context(), gormDB, dispatcher, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Trail %s completed: %s\n", inst.ID, inst.Name)
	return nil
}
