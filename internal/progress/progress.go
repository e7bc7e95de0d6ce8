// Package progress derives aggregate trail progress from stage rows.
package progress

import "github.com/veredas/trailhead/internal/models"

// Summary is the read-only projection of an instance's stage progress.
// Percentage counts required stages only: optional stages can be completed
// without moving it.
type Summary struct {
	CompletedCount int     `json:"completed_count"`
	RequiredCount  int     `json:"required_count"`
	Percentage     float64 `json:"percentage"`
}

// AllRequiredComplete reports whether every required stage is done. True
// for an instance with no required stages.
func (s Summary) AllRequiredComplete() bool {
	return s.CompletedCount >= s.RequiredCount
}

// Compute derives a Summary from an instance's stages and progress rows.
// Rows without a matching stage definition are skipped.
func Compute(stages []models.StageDefinition, rows []models.StageProgress) Summary {
	required := make(map[string]bool, len(stages))
	for _, st := range stages {
		if st.Required {
			required[st.ID] = true
		}
	}

	var s Summary
	s.RequiredCount = len(required)
	for _, row := range rows {
		if row.IsCompleted && required[row.StageID] {
			s.CompletedCount++
		}
	}
	if s.RequiredCount > 0 {
		s.Percentage = float64(s.CompletedCount) / float64(s.RequiredCount) * 100
	}
	return s
}

// Clamp bounds a progress value to [0, target].
func Clamp(value, target int) int {
	if value < 0 {
		return 0
	}
	if value > target {
		return target
	}
	return value
}
