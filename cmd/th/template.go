package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/veredas/trailhead/internal/template"
)

func newTemplateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Trail template management commands",
	}

	cmd.AddCommand(newTemplateCreateCmd())
	cmd.AddCommand(newTemplateListCmd())
	cmd.AddCommand(newTemplateShowCmd())
	cmd.AddCommand(newTemplateAvailableCmd())
	cmd.AddCommand(newTemplateReorderCmd())
	cmd.AddCommand(newTemplatePinCmd())
	cmd.AddCommand(newTemplateDeactivateCmd())
	return cmd
}

func newTemplateCreateCmd() *cobra.Command {
	var (
		configPath   string
		name         string
		description  string
		lifeArea     string
		allUsers     bool
		level        int
		tags         []string
		roles        []string
		badgeID      string
		autoComplete bool
		stages       []string
		prereqs      []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new trail template",
		Long: `Creates a trail template with ordered stages.

Each --stage is "name", "name:target", or "name:target:optional", e.g.:
  --stage "Wake at 6" --stage "Journal:3" --stage "Cold shower:1:optional"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			stageOpts, err := parseStages(stages)
			if err != nil {
				return err
			}
			return runTemplateCreate(cmd, configPath, template.CreateOpts{
				Name:           name,
				Description:    description,
				LifeArea:       lifeArea,
				AvailableToAll: allUsers,
				RequiredLevel:  level,
				RequiredTags:   tags,
				RequiredRoles:  roles,
				BadgeID:        badgeID,
				AutoComplete:   autoComplete,
				Stages:         stageOpts,
				Prereqs:        prereqs,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "trailhead.yaml", "path to Trailhead config file")
	cmd.Flags().StringVar(&name, "name", "", "template name (required)")
	cmd.Flags().StringVar(&description, "description", "", "detailed description")
	cmd.Flags().StringVar(&lifeArea, "life-area", "", "life area grouping (e.g. health, learning)")
	cmd.Flags().BoolVar(&allUsers, "all-users", true, "available to every user regardless of profile")
	cmd.Flags().IntVar(&level, "level", 0, "minimum user level")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "required user tag (repeatable; all must match)")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "accepted user role (repeatable; any may match)")
	cmd.Flags().StringVar(&badgeID, "badge", "", "badge issued on completion")
	cmd.Flags().BoolVar(&autoComplete, "auto-complete", true, "complete the trail when all required stages finish")
	cmd.Flags().StringSliceVar(&stages, "stage", nil, "stage spec (repeatable, required)")
	cmd.Flags().StringSliceVar(&prereqs, "prereq", nil, "prerequisite template ID (repeatable)")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("stage")
	return cmd
}

// parseStages converts "name[:target[:optional]]" specs into stage options.
func parseStages(specs []string) ([]template.StageOpts, error) {
	opts := make([]template.StageOpts, 0, len(specs))
	for i, spec := range specs {
		parts := strings.Split(spec, ":")
		s := template.StageOpts{
			Name:        strings.TrimSpace(parts[0]),
			Required:    true,
			TargetValue: 1,
			OrderIndex:  i,
		}
		if s.Name == "" {
			return nil, fmt.Errorf("stage %d: name is required", i)
		}
		if len(parts) > 1 && parts[1] != "" {
			target, err := strconv.Atoi(parts[1])
			if err != nil || target < 1 {
				return nil, fmt.Errorf("stage %q: bad target %q", s.Name, parts[1])
			}
			s.TargetValue = target
		}
		if len(parts) > 2 {
			switch parts[2] {
			case "optional":
				s.Required = false
			case "required", "":
			default:
				return nil, fmt.Errorf("stage %q: expected \"optional\" or \"required\", got %q", s.Name, parts[2])
			}
		}
		opts = append(opts, s)
	}
	return opts, nil
}

func runTemplateCreate(cmd *cobra.Command, configPath string, opts template.CreateOpts) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	tpl, err := template.Create(gormDB, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created template %s with %d stages\n", tpl.ID, len(tpl.Stages))
	return nil
}

func newTemplateListCmd() *cobra.Command {
	var (
		configPath string
		lifeArea   string
		all        bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trail templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplateList(cmd, configPath, template.ListFilters{
				LifeArea:   lifeArea,
				ActiveOnly: !all,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "trailhead.yaml", "path to Trailhead config file")
	cmd.Flags().StringVar(&lifeArea, "life-area", "", "filter by life area")
	cmd.Flags().BoolVar(&all, "all", false, "include deactivated templates")
	return cmd
}

func runTemplateList(cmd *cobra.Command, configPath string, filters template.ListFilters) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	tpls, err := template.List(gormDB, filters)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(tpls) == 0 {
		fmt.Fprintln(out, "No templates found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tLIFE AREA\tSTAGES\tACCESS\tPINNED\tACTIVE")
	for _, t := range tpls {
		accessCol := "all"
		if !t.AvailableToAll {
			accessCol = "gated"
		}
		pinned := "-"
		if t.Pinned {
			pinned = fmt.Sprintf("#%d", t.PinnedOrder)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%t\n",
			t.ID, truncate(t.Name, 40), t.LifeArea, len(t.Stages), accessCol, pinned, t.Active)
	}
	w.Flush()
	return nil
}

func newTemplateShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show template details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplateShow(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "trailhead.yaml", "path to Trailhead config file")
	return cmd
}

func runTemplateShow(cmd *cobra.Command, configPath, id string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	tpl, err := template.Get(gormDB, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:           %s\n", tpl.ID)
	fmt.Fprintf(out, "Name:         %s\n", tpl.Name)
	if tpl.LifeArea != "" {
		fmt.Fprintf(out, "Life area:    %s\n", tpl.LifeArea)
	}
	if tpl.Description != "" {
		fmt.Fprintf(out, "Description:  %s\n", tpl.Description)
	}
	fmt.Fprintf(out, "Active:       %t\n", tpl.Active)
	fmt.Fprintf(out, "Auto-complete: %t\n", tpl.AutoComplete)
	if tpl.BadgeID != nil {
		fmt.Fprintf(out, "Badge:        %s\n", *tpl.BadgeID)
	}

	criteria, err := tpl.Criteria()
	if err != nil {
		return err
	}
	if criteria.AvailableToAll {
		fmt.Fprintln(out, "Access:       all users")
	} else {
		fmt.Fprintln(out, "Access:       gated")
		if criteria.RequiredLevel > 0 {
			fmt.Fprintf(out, "  Level:      >= %d\n", criteria.RequiredLevel)
		}
		if len(criteria.RequiredTags) > 0 {
			fmt.Fprintf(out, "  Tags (all): %s\n", strings.Join(criteria.RequiredTags, ", "))
		}
		if len(criteria.RequiredRoles) > 0 {
			fmt.Fprintf(out, "  Roles (any): %s\n", strings.Join(criteria.RequiredRoles, ", "))
		}
	}

	if len(tpl.Prereqs) > 0 {
		fmt.Fprintln(out, "Prerequisites:")
		for _, p := range tpl.Prereqs {
			fmt.Fprintf(out, "  %s  %s\n", p.RequiresID, p.Requires.Name)
		}
	}

	fmt.Fprintf(out, "\nStages (%d):\n", len(tpl.Stages))
	for _, s := range tpl.Stages {
		marker := "required"
		if !s.Required {
			marker = "optional"
		}
		fmt.Fprintf(out, "  %d. %s [%s, target %d]\n", s.OrderIndex+1, s.Name, marker, s.TargetValue)
	}
	return nil
}

func newTemplateAvailableCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "available <user-id>",
		Short: "List templates a user can start right now",
		Long:  "Resolves the user's directory profile and lists active templates whose access criteria and prerequisites are satisfied.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplateAvailable(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "trailhead.yaml", "path to Trailhead config file")
	return cmd
}

func runTemplateAvailable(cmd *cobra.Command, configPath, userID string) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	dir, err := directoryFromConfig(cfg)
	if err != nil {
		return err
	}

	tpls, err := template.ListAvailable(cmd.Context(), gormDB, dir, userID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(tpls) == 0 {
		fmt.Fprintf(out, "No templates available for %s.\n", userID)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tLIFE AREA\tSTAGES")
	for _, t := range tpls {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", t.ID, truncate(t.Name, 40), t.LifeArea, len(t.Stages))
	}
	w.Flush()
	return nil
}

func newTemplateReorderCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "reorder <id=index>...",
		Short: "Bulk-assign template display order",
		Long: `Reassigns order indices in a single transaction, e.g.:
  th template reorder tpl-aaa11=0 tpl-bbb22=1 tpl-ccc33=2
A missing template fails the whole batch and leaves the order untouched.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplateReorder(cmd, configPath, args)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "trailhead.yaml", "path to Trailhead config file")
	return cmd
}

func runTemplateReorder(cmd *cobra.Command, configPath string, args []string) error {
	updates := make([]template.OrderUpdate, 0, len(args))
	for _, arg := range args {
		id, idx, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("bad argument %q, want id=index", arg)
		}
		n, err := strconv.Atoi(idx)
		if err != nil {
			return fmt.Errorf("bad index in %q: %w", arg, err)
		}
		updates = append(updates, template.OrderUpdate{ID: id, OrderIndex: n})
	}

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	if err := template.Reorder(gormDB, updates); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Reordered %d templates\n", len(updates))
	return nil
}

func newTemplatePinCmd() *cobra.Command {
	var (
		configPath string
		order      int
		unpin      bool
	)

	cmd := &cobra.Command{
		Use:   "pin <id>",
		Short: "Pin a template to the top of listings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := template.SetPinned(gormDB, args[0], !unpin, order); err != nil {
				return err
			}
			if unpin {
				fmt.Fprintf(cmd.OutOrStdout(), "Unpinned template %s\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Pinned template %s at position %d\n", args[0], order)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "trailhead.yaml", "path to Trailhead config file")
	cmd.Flags().IntVar(&order, "order", 0, "position among pinned templates")
	cmd.Flags().BoolVar(&unpin, "unpin", false, "remove the pin instead")
	return cmd
}

func newTemplateDeactivateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "deactivate <id>",
		Short: "Retire a template from new starts",
		Long:  "Deactivated templates accept no new starts. Journeys already in flight keep their snapshot and continue unaffected.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := template.Deactivate(gormDB, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deactivated template %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "trailhead.yaml", "path to Trailhead config file")
	return cmd
}
