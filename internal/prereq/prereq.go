// Package prereq resolves unmet template prerequisites for a user.
package prereq

import (
	"fmt"

	"github.com/veredas/trailhead/internal/models"
	"gorm.io/gorm"
)

// Unmet returns the prerequisite templates of tpl that the user has not yet
// completed, given the user's full instance history. A prerequisite is met
// iff a completed instance of that template exists in the history.
// Side effect free; the lifecycle uses emptiness of the result as the
// start-gate.
func Unmet(tpl *models.TrailTemplate, history []models.TrailInstance) []models.TrailTemplate {
	if len(tpl.Prereqs) == 0 {
		return nil
	}

	completed := make(map[string]bool, len(history))
	for _, inst := range history {
		if inst.Status == models.StatusCompleted && inst.TemplateID != nil {
			completed[*inst.TemplateID] = true
		}
	}

	var unmet []models.TrailTemplate
	for _, p := range tpl.Prereqs {
		if !completed[p.RequiresID] {
			unmet = append(unmet, p.Requires)
		}
	}
	return unmet
}

// UnmetForUser loads the user's instance history and resolves unmet
// prerequisites for the template. The template's Prereqs association must
// be loaded; when it is not, the prerequisites are fetched here.
func UnmetForUser(db *gorm.DB, tpl *models.TrailTemplate, userID string) ([]models.TrailTemplate, error) {
	if userID == "" {
		return nil, fmt.Errorf("prereq: userID is required")
	}

	if tpl.Prereqs == nil {
		if err := db.Preload("Requires").
			Where("template_id = ?", tpl.ID).
			Find(&tpl.Prereqs).Error; err != nil {
			return nil, fmt.Errorf("prereq: load prereqs for template %s: %w", tpl.ID, err)
		}
	}
	if len(tpl.Prereqs) == 0 {
		return nil, nil
	}

	var history []models.TrailInstance
	if err := db.Where("user_id = ? AND template_id IS NOT NULL", userID).
		Find(&history).Error; err != nil {
		return nil, fmt.Errorf("prereq: load history for user %s: %w", userID, err)
	}

	return Unmet(tpl, history), nil
}
