// Package template owns trail template definitions and their ordering.
package template

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/veredas/trailhead/internal/access"
	"github.com/veredas/trailhead/internal/directory"
	"github.com/veredas/trailhead/internal/models"
	"github.com/veredas/trailhead/internal/prereq"
	"gorm.io/gorm"
)

// ErrValidation marks malformed template input, rejected before any write.
var ErrValidation = errors.New("template: validation failed")

// StageOpts defines one stage of a new template.
type StageOpts struct {
	Name        string
	Description string
	Guidance    string
	Required    bool
	TargetValue int // defaults to 1
	OrderIndex  int
}

// CreateOpts holds parameters for creating a new template.
type CreateOpts struct {
	Name           string
	Description    string
	LifeArea       string
	AvailableToAll bool
	RequiredLevel  int
	RequiredTags   []string
	RequiredRoles  []string
	BadgeID        string // completion badge, optional
	AutoComplete   bool
	Stages         []StageOpts
	Prereqs        []string // template IDs that must be completed first
}

// OrderUpdate assigns a new order index to a template.
type OrderUpdate struct {
	ID         string
	OrderIndex int
}

// ListFilters holds optional filters for listing templates.
type ListFilters struct {
	LifeArea   string
	ActiveOnly bool
}

// Create validates and persists a new template with its stages and
// prerequisite references. The template's order index is appended after
// the current maximum.
func Create(db *gorm.DB, opts CreateOpts) (*models.TrailTemplate, error) {
	if err := validateCreate(opts); err != nil {
		return nil, err
	}

	id, err := generateUniqueID(db)
	if err != nil {
		return nil, err
	}

	tpl := models.TrailTemplate{
		ID:             id,
		Name:           opts.Name,
		Description:    opts.Description,
		LifeArea:       opts.LifeArea,
		AvailableToAll: opts.AvailableToAll,
		RequiredLevel:  opts.RequiredLevel,
		RequiredTags:   models.EncodeStringList(opts.RequiredTags),
		RequiredRoles:  models.EncodeStringList(opts.RequiredRoles),
		AutoComplete:   opts.AutoComplete,
		Active:         true,
	}
	if opts.BadgeID != "" {
		tpl.BadgeID = &opts.BadgeID
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if opts.BadgeID != "" {
			var count int64
			if err := tx.Model(&models.TrailBadge{}).Where("id = ?", opts.BadgeID).Count(&count).Error; err != nil {
				return fmt.Errorf("template: check badge %s: %w", opts.BadgeID, err)
			}
			if count == 0 {
				return fmt.Errorf("template: badge not found: %s", opts.BadgeID)
			}
		}
		for _, pre := range opts.Prereqs {
			var count int64
			if err := tx.Model(&models.TrailTemplate{}).Where("id = ?", pre).Count(&count).Error; err != nil {
				return fmt.Errorf("template: check prereq %s: %w", pre, err)
			}
			if count == 0 {
				return fmt.Errorf("template: prereq template not found: %s", pre)
			}
		}

		// Append after the current maximum order index.
		var maxIndex struct{ Max int }
		if err := tx.Model(&models.TrailTemplate{}).
			Select("COALESCE(MAX(order_index), -1) AS max").
			Scan(&maxIndex).Error; err != nil {
			return fmt.Errorf("template: next order index: %w", err)
		}
		tpl.OrderIndex = maxIndex.Max + 1

		if err := tx.Create(&tpl).Error; err != nil {
			return fmt.Errorf("template: create: %w", err)
		}

		for _, st := range opts.Stages {
			stageID, err := models.NewID("stg")
			if err != nil {
				return err
			}
			target := st.TargetValue
			if target == 0 {
				target = 1
			}
			stage := models.StageDefinition{
				ID:          stageID,
				TemplateID:  &tpl.ID,
				Name:        st.Name,
				Description: st.Description,
				Guidance:    st.Guidance,
				Required:    st.Required,
				TargetValue: target,
				OrderIndex:  st.OrderIndex,
			}
			if err := tx.Create(&stage).Error; err != nil {
				return fmt.Errorf("template: create stage %q: %w", st.Name, err)
			}
		}

		for _, pre := range opts.Prereqs {
			if err := tx.Create(&models.TemplatePrereq{TemplateID: tpl.ID, RequiresID: pre}).Error; err != nil {
				return fmt.Errorf("template: create prereq %s: %w", pre, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return Get(db, tpl.ID)
}

// validateCreate rejects malformed input before any write.
func validateCreate(opts CreateOpts) error {
	if opts.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	seen := make(map[int]bool, len(opts.Stages))
	for _, st := range opts.Stages {
		if st.Name == "" {
			return fmt.Errorf("%w: stage name is required", ErrValidation)
		}
		if st.TargetValue < 0 {
			return fmt.Errorf("%w: stage %q target must not be negative", ErrValidation, st.Name)
		}
		if seen[st.OrderIndex] {
			return fmt.Errorf("%w: duplicate stage order index %d", ErrValidation, st.OrderIndex)
		}
		seen[st.OrderIndex] = true
	}
	// Order indices must be contiguous from zero.
	for i := range opts.Stages {
		if !seen[i] {
			return fmt.Errorf("%w: stage order indices must be contiguous from 0, missing %d", ErrValidation, i)
		}
	}
	return nil
}

// Get retrieves a template by ID with stages (ordered), prereqs, and badge.
func Get(db *gorm.DB, id string) (*models.TrailTemplate, error) {
	var tpl models.TrailTemplate
	err := db.
		Preload("Stages", func(tx *gorm.DB) *gorm.DB { return tx.Order("order_index ASC") }).
		Preload("Prereqs.Requires").
		Preload("Badge").
		Where("id = ?", id).First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("template: not found: %s", id)
		}
		return nil, fmt.Errorf("template: get %s: %w", id, err)
	}
	return &tpl, nil
}

// List returns templates matching the filters. Pinned templates sort first
// by pinned order; the rest follow by order index.
func List(db *gorm.DB, filters ListFilters) ([]models.TrailTemplate, error) {
	q := db.Model(&models.TrailTemplate{})
	if filters.LifeArea != "" {
		q = q.Where("life_area = ?", filters.LifeArea)
	}
	if filters.ActiveOnly {
		q = q.Where("active = ?", true)
	}

	var tpls []models.TrailTemplate
	if err := q.
		Preload("Stages", func(tx *gorm.DB) *gorm.DB { return tx.Order("order_index ASC") }).
		Order("pinned DESC, pinned_order ASC, order_index ASC").
		Find(&tpls).Error; err != nil {
		return nil, fmt.Errorf("template: list: %w", err)
	}
	return tpls, nil
}

// ListAvailable returns active templates the user may start right now:
// access criteria satisfied and no unmet prerequisites.
func ListAvailable(ctx context.Context, db *gorm.DB, dir directory.Directory, userID string) ([]models.TrailTemplate, error) {
	if userID == "" {
		return nil, fmt.Errorf("template: userID is required")
	}

	profile, err := dir.Attributes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("template: user attributes for %s: %w", userID, err)
	}

	tpls, err := List(db, ListFilters{ActiveOnly: true})
	if err != nil {
		return nil, err
	}

	var available []models.TrailTemplate
	for i := range tpls {
		criteria, err := tpls[i].Criteria()
		if err != nil {
			return nil, err
		}
		if !access.IsEligible(criteria, profile) {
			continue
		}
		unmet, err := prereq.UnmetForUser(db, &tpls[i], userID)
		if err != nil {
			return nil, err
		}
		if len(unmet) > 0 {
			continue
		}
		available = append(available, tpls[i])
	}
	return available, nil
}

// Reorder bulk-assigns order indices in one transaction. A missing
// template fails the whole batch; a partial reorder corrupts the total
// order and is never left behind.
func Reorder(db *gorm.DB, updates []OrderUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			result := tx.Model(&models.TrailTemplate{}).
				Where("id = ?", u.ID).
				Updates(map[string]interface{}{
					"order_index": u.OrderIndex,
					"updated_at":  time.Now(),
				})
			if result.Error != nil {
				return fmt.Errorf("template: reorder %s: %w", u.ID, result.Error)
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("template: reorder: not found: %s", u.ID)
			}
		}
		return nil
	})
}

// SetPinned surfaces or unsurfaces a template in listings. Pinned
// templates sort before unpinned ones by pinned order, independent of
// their order index.
func SetPinned(db *gorm.DB, id string, pinned bool, pinnedOrder int) error {
	result := db.Model(&models.TrailTemplate{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"pinned":       pinned,
			"pinned_order": pinnedOrder,
		})
	if result.Error != nil {
		return fmt.Errorf("template: set pinned %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("template: not found: %s", id)
	}
	return nil
}

// Deactivate hides a template from new starts without touching existing
// instances. Templates are never physically deleted once instances
// reference them.
func Deactivate(db *gorm.DB, id string) error {
	result := db.Model(&models.TrailTemplate{}).Where("id = ?", id).
		Update("active", false)
	if result.Error != nil {
		return fmt.Errorf("template: deactivate %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("template: not found: %s", id)
	}
	return nil
}

// generateUniqueID generates a template ID and retries once on collision.
func generateUniqueID(db *gorm.DB) (string, error) {
	for attempt := 0; attempt < 2; attempt++ {
		id, err := models.NewID("tpl")
		if err != nil {
			return "", err
		}
		var count int64
		if err := db.Model(&models.TrailTemplate{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return "", fmt.Errorf("template: check ID uniqueness: %w", err)
		}
		if count == 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("template: ID collision retry exhausted")
}
