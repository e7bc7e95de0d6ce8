package models

import "time"

// Trail instance statuses.
const (
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusCompleted = "completed"
)

// ValidTransitions maps each instance status to its valid next statuses.
// Completed is terminal; a paused instance must resume before completing.
var ValidTransitions = map[string][]string{
	StatusActive: {StatusPaused, StatusCompleted},
	StatusPaused: {StatusActive},
}

// TrailInstance is a user's concrete journey through a trail. Name,
// description, life area, badge, and stages are copied from the template
// at start time; later template edits do not touch in-progress journeys.
type TrailInstance struct {
	ID           string  `gorm:"primaryKey;size:32"`
	UserID       string  `gorm:"size:64;not null;index"`
	TemplateID   *string `gorm:"size:32;index"`
	Name         string  `gorm:"not null"`
	Description  string  `gorm:"type:text"`
	LifeArea     string  `gorm:"size:64"`
	Status       string  `gorm:"size:16;default:active;index"`
	BadgeID      *string `gorm:"size:32"`
	AutoComplete bool
	StartedAt    time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Template *TrailTemplate    `gorm:"foreignKey:TemplateID"`
	Badge    *TrailBadge       `gorm:"foreignKey:BadgeID"`
	Stages   []StageDefinition `gorm:"foreignKey:InstanceID"`
	Progress []StageProgress   `gorm:"foreignKey:InstanceID"`
}

// StageProgress is one row per (instance, stage). IsCompleted implies
// CompletedAt is set and ProgressValue >= TargetValue.
type StageProgress struct {
	InstanceID    string `gorm:"primaryKey;size:32"`
	StageID       string `gorm:"primaryKey;size:32"`
	ProgressValue int    `gorm:"default:0"`
	TargetValue   int    `gorm:"default:1"`
	IsCompleted   bool   `gorm:"default:false"`
	CompletedAt   *time.Time
	UpdatedAt     time.Time

	Stage StageDefinition `gorm:"foreignKey:StageID"`
}
