package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/veredas/trailhead/internal/models"
	"gorm.io/gorm"
)

// DailyReport holds computed metrics for a 24-hour period.
type DailyReport struct {
	PeriodStart       time.Time
	PeriodEnd         time.Time
	TrailsStarted     int
	TrailsCompleted   int
	BadgesAwarded     int
	CoinsIssued       int
	ActiveTrails      int
	LifeAreaBreakdown []LifeAreaDigest
}

// LifeAreaDigest holds per-life-area metrics for digest reports.
type LifeAreaDigest struct {
	LifeArea      string
	Completed     int
	Active        int
	AvgCompletion time.Duration
}

// BuildDailyDigest queries the DB for the last 24 hours and returns a
// daily_digest Event. Returns nil when no activity.
func BuildDailyDigest(db *gorm.DB) (*Event, error) {
	now := time.Now()
	since := now.Add(-24 * time.Hour)

	report, err := buildDailyReport(db, since, now)
	if err != nil {
		return nil, fmt.Errorf("notify: daily digest: %w", err)
	}

	// Suppress when no activity.
	if report.TrailsStarted == 0 && report.TrailsCompleted == 0 &&
		report.BadgesAwarded == 0 && report.CoinsIssued == 0 {
		return nil, nil
	}

	evt := formatDaily(report)
	return &evt, nil
}

// buildDailyReport queries metrics within the given time range.
func buildDailyReport(db *gorm.DB, since, until time.Time) (*DailyReport, error) {
	report := &DailyReport{
		PeriodStart: since,
		PeriodEnd:   until,
	}

	// Trails started (started_at in range).
	var startedCount int64
	if err := db.Model(&models.TrailInstance{}).
		Where("started_at >= ? AND started_at < ?", since, until).
		Count(&startedCount).Error; err != nil {
		return nil, err
	}
	report.TrailsStarted = int(startedCount)

	// Trails completed (status=completed, completed_at in range).
	var completedCount int64
	if err := db.Model(&models.TrailInstance{}).
		Where("status = ? AND completed_at >= ? AND completed_at < ?",
			models.StatusCompleted, since, until).
		Count(&completedCount).Error; err != nil {
		return nil, err
	}
	report.TrailsCompleted = int(completedCount)

	// Badges awarded in range.
	var awardCount int64
	if err := db.Model(&models.BadgeAward{}).
		Where("earned_at >= ? AND earned_at < ?", since, until).
		Count(&awardCount).Error; err != nil {
		return nil, err
	}
	report.BadgesAwarded = int(awardCount)

	// Coins issued — sum of coins_reward over badges awarded in range.
	var coinSum struct{ Total int64 }
	if err := db.Model(&models.BadgeAward{}).
		Joins("JOIN trail_badges ON trail_badges.id = badge_awards.badge_id").
		Where("earned_at >= ? AND earned_at < ?", since, until).
		Select("COALESCE(SUM(trail_badges.coins_reward), 0) as total").
		Scan(&coinSum).Error; err != nil {
		return nil, err
	}
	report.CoinsIssued = int(coinSum.Total)

	// Currently active trails.
	var activeCount int64
	if err := db.Model(&models.TrailInstance{}).
		Where("status = ?", models.StatusActive).
		Count(&activeCount).Error; err != nil {
		return nil, err
	}
	report.ActiveTrails = int(activeCount)

	breakdown, err := buildLifeAreaBreakdown(db, since, until)
	if err != nil {
		return nil, err
	}
	report.LifeAreaBreakdown = breakdown

	return report, nil
}

// buildLifeAreaBreakdown computes per-life-area metrics.
func buildLifeAreaBreakdown(db *gorm.DB, since, until time.Time) ([]LifeAreaDigest, error) {
	var areas []struct {
		LifeArea string
	}
	if err := db.Model(&models.TrailInstance{}).
		Distinct("life_area").
		Where("life_area != ''").
		Find(&areas).Error; err != nil {
		return nil, err
	}

	var breakdown []LifeAreaDigest
	for _, a := range areas {
		ld := LifeAreaDigest{LifeArea: a.LifeArea}

		var completed int64
		if err := db.Model(&models.TrailInstance{}).
			Where("life_area = ? AND status = ? AND completed_at >= ? AND completed_at < ?",
				a.LifeArea, models.StatusCompleted, since, until).
			Count(&completed).Error; err != nil {
			return nil, err
		}
		ld.Completed = int(completed)

		var active int64
		if err := db.Model(&models.TrailInstance{}).
			Where("life_area = ? AND status = ?", a.LifeArea, models.StatusActive).
			Count(&active).Error; err != nil {
			return nil, err
		}
		ld.Active = int(active)

		// Average completion time for trails completed in period.
		// Computed in Go for portability across SQLite (tests) and MySQL (production).
		var completionRows []struct {
			StartedAt   time.Time
			CompletedAt time.Time
		}
		if err := db.Model(&models.TrailInstance{}).
			Where("life_area = ? AND status = ? AND completed_at >= ? AND completed_at < ?",
				a.LifeArea, models.StatusCompleted, since, until).
			Select("started_at, completed_at").
			Find(&completionRows).Error; err != nil {
			return nil, err
		}
		if len(completionRows) > 0 {
			var totalSec float64
			for _, row := range completionRows {
				totalSec += row.CompletedAt.Sub(row.StartedAt).Seconds()
			}
			avgSec := totalSec / float64(len(completionRows))
			ld.AvgCompletion = time.Duration(avgSec) * time.Second
		}

		breakdown = append(breakdown, ld)
	}
	return breakdown, nil
}

// formatDaily formats a daily digest report as an Event.
func formatDaily(report *DailyReport) Event {
	var bodyLines []string
	bodyLines = append(bodyLines, fmt.Sprintf("**Period**: %s – %s",
		report.PeriodStart.Format("Jan 2 15:04"),
		report.PeriodEnd.Format("Jan 2 15:04")))
	bodyLines = append(bodyLines, fmt.Sprintf("**Trails**: %d started, %d completed",
		report.TrailsStarted, report.TrailsCompleted))
	if report.BadgesAwarded > 0 {
		bodyLines = append(bodyLines, fmt.Sprintf("**Badges**: %d awarded", report.BadgesAwarded))
	}
	if report.CoinsIssued > 0 {
		bodyLines = append(bodyLines, fmt.Sprintf("**Coins**: %d issued", report.CoinsIssued))
	}
	bodyLines = append(bodyLines, fmt.Sprintf("**Active**: %d trails in progress", report.ActiveTrails))

	if len(report.LifeAreaBreakdown) > 0 {
		bodyLines = append(bodyLines, "")
		bodyLines = append(bodyLines, "**Per Life Area**:")
		for _, ld := range report.LifeAreaBreakdown {
			line := fmt.Sprintf("  %s: %d completed, %d active", ld.LifeArea, ld.Completed, ld.Active)
			if ld.AvgCompletion > 0 {
				line += fmt.Sprintf(" (avg %s)", formatDuration(ld.AvgCompletion))
			}
			bodyLines = append(bodyLines, line)
		}
	}

	fields := []Field{
		{Name: "Started", Value: fmt.Sprintf("%d", report.TrailsStarted), Short: true},
		{Name: "Completed", Value: fmt.Sprintf("%d", report.TrailsCompleted), Short: true},
		{Name: "Active", Value: fmt.Sprintf("%d", report.ActiveTrails), Short: true},
	}
	if report.BadgesAwarded > 0 {
		fields = append(fields, Field{Name: "Badges", Value: fmt.Sprintf("%d", report.BadgesAwarded), Short: true})
	}
	if report.CoinsIssued > 0 {
		fields = append(fields, Field{Name: "Coins", Value: fmt.Sprintf("%d", report.CoinsIssued), Short: true})
	}

	return Event{
		Type:      EventDailyDigest,
		Title:     "Daily Digest",
		Body:      strings.Join(bodyLines, "\n"),
		Color:     ColorInfo,
		Fields:    fields,
		Timestamp: report.PeriodEnd,
	}
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h >= 24 {
		days := h / 24
		h = h % 24
		return fmt.Sprintf("%dd %dh", days, h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}
