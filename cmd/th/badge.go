package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/veredas/trailhead/internal/models"
)

func newBadgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "badge",
		Short: "Badge management commands",
	}

	cmd.AddCommand(newBadgeCreateCmd())
	cmd.AddCommand(newBadgeListCmd())
	cmd.AddCommand(newBadgeAwardsCmd())
	return cmd
}

func newBadgeCreateCmd() *cobra.Command {
	var (
		configPath  string
		description string
		icon        string
		color       string
		badgeType   string
		coins       int
		lifeArea    string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a badge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			badge := models.TrailBadge{
				Name:        args[0],
				Description: description,
				Icon:        icon,
				Color:       color,
				Type:        badgeType,
				CoinsReward: coins,
				LifeArea:    lifeArea,
				Active:      true,
			}
			return runBadgeCreate(cmd, configPath, badge)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "trailhead.yaml", "path to Trailhead config file")
	cmd.Flags().StringVar(&description, "description", "", "badge description")
	cmd.Flags().StringVar(&icon, "icon", "", "icon identifier")
	cmd.Flags().StringVar(&color, "color", "", "hex color, e.g. #ffd700")
	cmd.Flags().StringVar(&badgeType, "type", "completion", "badge type (completion, milestone, streak)")
	cmd.Flags().IntVar(&coins, "coins", 0, "coins credited when the badge is awarded")
	cmd.Flags().StringVar(&lifeArea, "life-area", "", "life area the badge belongs to")
	return cmd
}

func runBadgeCreate(cmd *cobra.Command, configPath string, badge models.TrailBadge) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	id, err := models.NewID("bdg")
	if err != nil {
		return fmt.Errorf("generate badge ID: %w", err)
	}
	badge.ID = id

	if err := gormDB.Create(&badge).Error; err != nil {
		return fmt.Errorf("create badge: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created badge %s: %s\n", badge.ID, badge.Name)
	if badge.CoinsReward > 0 {
		fmt.Fprintf(out, "Coins reward: %d\n", badge.CoinsReward)
	}
	return nil
}

func newBadgeListCmd() *cobra.Command {
	var (
		configPath string
		all        bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List badges",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBadgeList(cmd, configPath, all)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "trailhead.yaml", "path to Trailhead config file")
	cmd.Flags().BoolVar(&all, "all", false, "include inactive badges")
	return cmd
}

func runBadgeList(cmd *cobra.Command, configPath string, all bool) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	query := gormDB.Order("created_at ASC")
	if !all {
		query = query.Where("active = ?", true)
	}

	var badges []models.TrailBadge
	if err := query.Find(&badges).Error; err != nil {
		return fmt.Errorf("list badges: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(badges) == 0 {
		fmt.Fprintln(out, "No badges found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tCOINS\tLIFE AREA\tACTIVE")
	for _, b := range badges {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%t\n",
			b.ID, truncate(b.Name, 30), b.Type, b.CoinsReward, b.LifeArea, b.Active)
	}
	w.Flush()
	return nil
}

func newBadgeAwardsCmd() *cobra.Command {
	var (
		configPath string
		userID     string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "awards",
		Short: "List badge awards",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBadgeAwards(cmd, configPath, userID, limit)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "trailhead.yaml", "path to Trailhead config file")
	cmd.Flags().StringVar(&userID, "user", "", "filter by user")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows to show")
	return cmd
}

func runBadgeAwards(cmd *cobra.Command, configPath, userID string, limit int) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	query := gormDB.Preload("Badge").Order("earned_at DESC").Limit(limit)
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	var awards []models.BadgeAward
	if err := query.Find(&awards).Error; err != nil {
		return fmt.Errorf("list awards: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(awards) == 0 {
		fmt.Fprintln(out, "No awards found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USER\tBADGE\tTRAIL\tEARNED")
	for _, a := range awards {
		name := a.Badge.Name
		if name == "" {
			name = a.BadgeID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			a.UserID, truncate(name, 30), a.InstanceID, a.EarnedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()
	return nil
}
