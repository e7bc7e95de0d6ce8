package models

import "time"

// TrailBadge is a reward definition granted on trail completion.
type TrailBadge struct {
	ID          string `gorm:"primaryKey;size:32"`
	Name        string `gorm:"not null"`
	Description string `gorm:"type:text"`
	Icon        string `gorm:"size:64"`
	Color       string `gorm:"size:16"`
	Type        string `gorm:"size:16;default:completion"`
	CoinsReward int    `gorm:"default:0"`
	LifeArea    string `gorm:"size:64"`
	Active      bool   `gorm:"default:true;index"`
	CreatedAt   time.Time
}

// BadgeAward records a badge earned by a user for a trail instance. The
// unique index on (instance_id, badge_id) enforces at-most-once issuance
// at the schema level; the dispatcher inserts with ON CONFLICT DO NOTHING.
type BadgeAward struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	InstanceID string `gorm:"size:32;not null;uniqueIndex:idx_award_pair"`
	BadgeID    string `gorm:"size:32;not null;uniqueIndex:idx_award_pair"`
	UserID     string `gorm:"size:64;not null;index"`
	EarnedAt   time.Time

	Badge TrailBadge `gorm:"foreignKey:BadgeID"`
}
