package dashboard

import (
	"time"

	"github.com/veredas/trailhead/internal/models"
	"github.com/veredas/trailhead/internal/progress"
	"gorm.io/gorm"
)

// LifeAreaCount holds instance counts by status for a single life area.
type LifeAreaCount struct {
	LifeArea  string `json:"life_area"`
	Active    int    `json:"active"`
	Paused    int    `json:"paused"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// LifeAreaSummary returns per-life-area instance counts grouped by status.
func LifeAreaSummary(db *gorm.DB) ([]LifeAreaCount, error) {
	type row struct {
		LifeArea string
		Status   string
		Count    int
	}
	var rows []row
	if err := db.Model(&models.TrailInstance{}).
		Select("life_area, status, count(*) as count").
		Group("life_area, status").
		Order("life_area ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	// Aggregate by life area.
	areaMap := make(map[string]*LifeAreaCount)
	order := []string{}
	for _, r := range rows {
		ac, ok := areaMap[r.LifeArea]
		if !ok {
			ac = &LifeAreaCount{LifeArea: r.LifeArea}
			areaMap[r.LifeArea] = ac
			order = append(order, r.LifeArea)
		}
		ac.Total += r.Count
		switch r.Status {
		case models.StatusActive:
			ac.Active += r.Count
		case models.StatusPaused:
			ac.Paused += r.Count
		case models.StatusCompleted:
			ac.Completed += r.Count
		}
	}

	result := make([]LifeAreaCount, 0, len(areaMap))
	for _, area := range order {
		result = append(result, *areaMap[area])
	}
	return result, nil
}

// StageRow pairs a stage definition with its progress for display.
type StageRow struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Guidance    string     `json:"guidance,omitempty"`
	Required    bool       `json:"required"`
	OrderIndex  int        `json:"order_index"`
	Progress    int        `json:"progress"`
	Target      int        `json:"target"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// InstanceDetail holds everything the instance view needs.
type InstanceDetail struct {
	ID          string             `json:"id"`
	UserID      string             `json:"user_id"`
	TemplateID  *string            `json:"template_id,omitempty"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	LifeArea    string             `json:"life_area,omitempty"`
	Status      string             `json:"status"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	Badge       *models.TrailBadge `json:"badge,omitempty"`
	Stages      []StageRow         `json:"stages"`
	Summary     progress.Summary   `json:"summary"`
}

// GetInstanceDetail loads an instance with its stages joined to progress.
func GetInstanceDetail(db *gorm.DB, id string) (*InstanceDetail, error) {
	var inst models.TrailInstance
	err := db.Preload("Stages", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("order_index ASC")
	}).Preload("Progress").Preload("Badge").
		Where("id = ?", id).First(&inst).Error
	if err != nil {
		return nil, err
	}

	byStage := make(map[string]models.StageProgress, len(inst.Progress))
	for _, p := range inst.Progress {
		byStage[p.StageID] = p
	}

	detail := &InstanceDetail{
		ID:          inst.ID,
		UserID:      inst.UserID,
		TemplateID:  inst.TemplateID,
		Name:        inst.Name,
		Description: inst.Description,
		LifeArea:    inst.LifeArea,
		Status:      inst.Status,
		StartedAt:   inst.StartedAt,
		CompletedAt: inst.CompletedAt,
		Badge:       inst.Badge,
		Summary:     progress.Compute(inst.Stages, inst.Progress),
	}

	for _, s := range inst.Stages {
		row := StageRow{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Guidance:    s.Guidance,
			Required:    s.Required,
			OrderIndex:  s.OrderIndex,
			Target:      s.TargetValue,
		}
		if p, ok := byStage[s.ID]; ok {
			row.Progress = p.ProgressValue
			row.Completed = p.IsCompleted
			row.CompletedAt = p.CompletedAt
		}
		detail.Stages = append(detail.Stages, row)
	}

	return detail, nil
}

// CompletionRow holds one finished trail for the recent-completions feed.
type CompletionRow struct {
	InstanceID  string    `json:"instance_id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	LifeArea    string    `json:"life_area,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// RecentCompletions returns the most recently completed trails.
func RecentCompletions(db *gorm.DB, limit int) ([]CompletionRow, error) {
	var instances []models.TrailInstance
	if err := db.Where("status = ?", models.StatusCompleted).
		Order("completed_at DESC").
		Limit(limit).
		Find(&instances).Error; err != nil {
		return nil, err
	}

	rows := make([]CompletionRow, len(instances))
	for i, inst := range instances {
		rows[i] = CompletionRow{
			InstanceID: inst.ID,
			UserID:     inst.UserID,
			Name:       inst.Name,
			LifeArea:   inst.LifeArea,
		}
		if inst.CompletedAt != nil {
			rows[i].CompletedAt = *inst.CompletedAt
		}
	}
	return rows, nil
}

// PendingAwardCount returns the number of awards issued in the last day,
// shown as a badge on the awards feed.
func PendingAwardCount(db *gorm.DB) int64 {
	var count int64
	db.Model(&models.BadgeAward{}).
		Where("earned_at >= ?", time.Now().Add(-24*time.Hour)).
		Count(&count)
	return count
}
