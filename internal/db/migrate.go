package db

import (
	"fmt"
	"time"

	"github.com/veredas/trailhead/internal/config"
	"github.com/veredas/trailhead/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.TrailTemplate{},
		&models.StageDefinition{},
		&models.TemplatePrereq{},
		&models.TrailInstance{},
		&models.StageProgress{},
		&models.TrailBadge{},
		&models.BadgeAward{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedBadges upserts TrailBadge rows from configuration.
func SeedBadges(db *gorm.DB, badges []config.BadgeConfig) error {
	for _, bc := range badges {
		badge := models.TrailBadge{
			ID:          bc.ID,
			Name:        bc.Name,
			Description: bc.Description,
			Icon:        bc.Icon,
			Color:       bc.Color,
			Type:        bc.Type,
			CoinsReward: bc.CoinsReward,
			LifeArea:    bc.LifeArea,
			Active:      true,
			CreatedAt:   time.Now(),
		}

		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "description", "icon", "color", "type", "coins_reward", "life_area", "active"}),
		}).Create(&badge)
		if result.Error != nil {
			return fmt.Errorf("db: seed badge %q: %w", bc.ID, result.Error)
		}
	}
	return nil
}
