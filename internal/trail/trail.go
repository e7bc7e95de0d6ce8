// Package trail provides trail instance lifecycle operations: starting a
// journey from a template (or ad hoc), recording stage progress, pausing,
// resuming, and completing.
package trail

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/veredas/trailhead/internal/access"
	"github.com/veredas/trailhead/internal/directory"
	"github.com/veredas/trailhead/internal/models"
	"github.com/veredas/trailhead/internal/notify"
	"github.com/veredas/trailhead/internal/prereq"
	"github.com/veredas/trailhead/internal/progress"
	"github.com/veredas/trailhead/internal/reward"
	"gorm.io/gorm"
)

// ErrAccessDenied means the user does not satisfy the template's access
// criteria.
var ErrAccessDenied = errors.New("trail: access denied")

// ErrInvalidTransition means the requested status change is not allowed
// from the instance's current status.
var ErrInvalidTransition = errors.New("trail: invalid transition")

// PrereqError means one or more prerequisite trails have not been completed.
type PrereqError struct {
	Unmet []models.TrailTemplate
}

func (e *PrereqError) Error() string {
	names := make([]string, len(e.Unmet))
	for i, t := range e.Unmet {
		names[i] = t.Name
	}
	return fmt.Sprintf("trail: unmet prerequisites: %s", strings.Join(names, ", "))
}

// StageOpts defines one stage of an ad hoc trail.
type StageOpts struct {
	Name        string
	Description string
	Guidance    string
	Required    bool
	TargetValue int // defaults to 1
	OrderIndex  int
}

// StartOpts holds parameters for starting a trail. TemplateID starts from a
// template (stages and metadata are snapshotted); leaving it empty starts an
// ad hoc trail described by Name and Stages.
type StartOpts struct {
	UserID     string
	TemplateID string

	// Ad hoc fields, ignored when TemplateID is set.
	Name         string
	Description  string
	LifeArea     string
	BadgeID      string
	AutoComplete bool
	Stages       []StageOpts
}

// ListFilters holds optional filters for listing instances.
type ListFilters struct {
	UserID   string
	Status   string
	LifeArea string
}

// Update reports the outcome of a stage progress write.
type Update struct {
	Instance       *models.TrailInstance
	Stage          *models.StageProgress
	Summary        progress.Summary
	StageCompleted bool // this write completed the stage
	AutoCompleted  bool // this write completed the whole trail
}

// Start begins a trail for a user. Template starts are gated on the user's
// directory profile (access criteria) and on completed prerequisites; the
// template's metadata and stages are copied onto the instance so later
// template edits never disturb a journey in flight. Ad hoc starts skip both
// gates.
func Start(ctx context.Context, db *gorm.DB, dir directory.Directory, opts StartOpts) (*models.TrailInstance, error) {
	if opts.UserID == "" {
		return nil, fmt.Errorf("trail: user ID is required")
	}
	if opts.TemplateID != "" {
		return startFromTemplate(ctx, db, dir, opts)
	}
	return startAdHoc(db, opts)
}

func startFromTemplate(ctx context.Context, db *gorm.DB, dir directory.Directory, opts StartOpts) (*models.TrailInstance, error) {
	var tpl models.TrailTemplate
	err := db.Preload("Stages", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("order_index ASC")
	}).Where("id = ? AND active = ?", opts.TemplateID, true).First(&tpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("trail: template not found: %s", opts.TemplateID)
	}
	if err != nil {
		return nil, fmt.Errorf("trail: load template %s: %w", opts.TemplateID, err)
	}

	criteria, err := tpl.Criteria()
	if err != nil {
		return nil, fmt.Errorf("trail: template %s: %w", tpl.ID, err)
	}

	profile := access.Profile{}
	if dir != nil {
		profile, err = dir.Attributes(ctx, opts.UserID)
		if err != nil {
			return nil, fmt.Errorf("trail: resolve user %s: %w", opts.UserID, err)
		}
	}
	if !access.IsEligible(criteria, profile) {
		return nil, fmt.Errorf("%w: %s does not meet criteria for %s", ErrAccessDenied, opts.UserID, tpl.Name)
	}

	unmet, err := prereq.UnmetForUser(db, &tpl, opts.UserID)
	if err != nil {
		return nil, fmt.Errorf("trail: check prerequisites: %w", err)
	}
	if len(unmet) > 0 {
		return nil, &PrereqError{Unmet: unmet}
	}

	id, err := generateUniqueID(db)
	if err != nil {
		return nil, err
	}

	inst := &models.TrailInstance{
		ID:           id,
		UserID:       opts.UserID,
		TemplateID:   &tpl.ID,
		Name:         tpl.Name,
		Description:  tpl.Description,
		LifeArea:     tpl.LifeArea,
		Status:       models.StatusActive,
		BadgeID:      tpl.BadgeID,
		AutoComplete: tpl.AutoComplete,
		StartedAt:    time.Now(),
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(inst).Error; err != nil {
			return fmt.Errorf("trail: create instance: %w", err)
		}
		for _, src := range tpl.Stages {
			stageID, err := models.NewID("stg")
			if err != nil {
				return fmt.Errorf("trail: generate stage ID: %w", err)
			}
			stage := models.StageDefinition{
				ID:          stageID,
				InstanceID:  &inst.ID,
				Name:        src.Name,
				Description: src.Description,
				Guidance:    src.Guidance,
				Required:    src.Required,
				TargetValue: src.TargetValue,
				OrderIndex:  src.OrderIndex,
			}
			if err := tx.Create(&stage).Error; err != nil {
				return fmt.Errorf("trail: snapshot stage %s: %w", src.Name, err)
			}
			row := models.StageProgress{
				InstanceID:  inst.ID,
				StageID:     stage.ID,
				TargetValue: stage.TargetValue,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("trail: init progress for %s: %w", stage.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return Get(db, inst.ID)
}

func startAdHoc(db *gorm.DB, opts StartOpts) (*models.TrailInstance, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("trail: name is required for an ad hoc trail")
	}
	if len(opts.Stages) == 0 {
		return nil, fmt.Errorf("trail: at least one stage is required")
	}
	seen := make(map[int]bool, len(opts.Stages))
	for i, s := range opts.Stages {
		if s.Name == "" {
			return nil, fmt.Errorf("trail: stage %d: name is required", i)
		}
		if seen[s.OrderIndex] {
			return nil, fmt.Errorf("trail: duplicate stage order index %d", s.OrderIndex)
		}
		seen[s.OrderIndex] = true
	}
	// Order indices must be contiguous from zero.
	for i := range opts.Stages {
		if !seen[i] {
			return nil, fmt.Errorf("trail: stage order indices must be contiguous from 0, missing %d", i)
		}
	}

	id, err := generateUniqueID(db)
	if err != nil {
		return nil, err
	}

	inst := &models.TrailInstance{
		ID:           id,
		UserID:       opts.UserID,
		Name:         opts.Name,
		Description:  opts.Description,
		LifeArea:     opts.LifeArea,
		Status:       models.StatusActive,
		AutoComplete: opts.AutoComplete,
		StartedAt:    time.Now(),
	}
	if opts.BadgeID != "" {
		inst.BadgeID = &opts.BadgeID
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(inst).Error; err != nil {
			return fmt.Errorf("trail: create instance: %w", err)
		}
		for _, s := range opts.Stages {
			target := s.TargetValue
			if target == 0 {
				target = 1
			}
			if target < 0 {
				return fmt.Errorf("trail: stage %q: target must be positive", s.Name)
			}
			stageID, err := models.NewID("stg")
			if err != nil {
				return fmt.Errorf("trail: generate stage ID: %w", err)
			}
			stage := models.StageDefinition{
				ID:          stageID,
				InstanceID:  &inst.ID,
				Name:        s.Name,
				Description: s.Description,
				Guidance:    s.Guidance,
				Required:    s.Required,
				TargetValue: target,
				OrderIndex:  s.OrderIndex,
			}
			if err := tx.Create(&stage).Error; err != nil {
				return fmt.Errorf("trail: create stage %s: %w", s.Name, err)
			}
			row := models.StageProgress{
				InstanceID:  inst.ID,
				StageID:     stage.ID,
				TargetValue: target,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("trail: init progress for %s: %w", s.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return Get(db, inst.ID)
}

// Get retrieves an instance by ID, preloading its stages (in order),
// progress rows, and badge.
func Get(db *gorm.DB, id string) (*models.TrailInstance, error) {
	var inst models.TrailInstance
	err := db.Preload("Stages", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("order_index ASC")
	}).Preload("Progress").Preload("Badge").Where("id = ?", id).First(&inst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("trail: not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("trail: get %s: %w", id, err)
	}
	return &inst, nil
}

// List returns instances matching the given filters, newest first.
func List(db *gorm.DB, filters ListFilters) ([]models.TrailInstance, error) {
	q := db.Model(&models.TrailInstance{})
	if filters.UserID != "" {
		q = q.Where("user_id = ?", filters.UserID)
	}
	if filters.Status != "" {
		q = q.Where("status = ?", filters.Status)
	}
	if filters.LifeArea != "" {
		q = q.Where("life_area = ?", filters.LifeArea)
	}

	var instances []models.TrailInstance
	if err := q.Order("started_at DESC").Find(&instances).Error; err != nil {
		return nil, fmt.Errorf("trail: list: %w", err)
	}
	return instances, nil
}

// Summary computes the required-stage completion summary for an instance.
func Summary(db *gorm.DB, id string) (progress.Summary, error) {
	inst, err := Get(db, id)
	if err != nil {
		return progress.Summary{}, err
	}
	return progress.Compute(inst.Stages, inst.Progress), nil
}

// SetStageProgress records an absolute progress value for one stage of an
// active instance. The value is clamped to [0, target]. Reaching the target
// completes the stage; the first completion timestamp sticks through repeat
// writes. When every required stage is complete and the instance opted into
// auto-completion, the trail is completed in the same call.
func SetStageProgress(ctx context.Context, db *gorm.DB, d *reward.Dispatcher, instanceID, stageID string, value int) (*Update, error) {
	inst, err := Get(db, instanceID)
	if err != nil {
		return nil, err
	}
	if inst.Status != models.StatusActive {
		return nil, fmt.Errorf("%w: instance %s is %s, progress requires active",
			ErrInvalidTransition, inst.ID, inst.Status)
	}

	var row models.StageProgress
	err = db.Where("instance_id = ? AND stage_id = ?", instanceID, stageID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("trail: stage not found: %s", stageID)
	}
	if err != nil {
		return nil, fmt.Errorf("trail: load stage progress: %w", err)
	}

	clamped := progress.Clamp(value, row.TargetValue)
	row.ProgressValue = clamped
	completedNow := false
	if clamped >= row.TargetValue {
		if !row.IsCompleted {
			now := time.Now()
			row.IsCompleted = true
			row.CompletedAt = &now
			completedNow = true
		}
	} else {
		row.IsCompleted = false
		row.CompletedAt = nil
	}

	updates := map[string]interface{}{
		"progress_value": row.ProgressValue,
		"is_completed":   row.IsCompleted,
		"completed_at":   row.CompletedAt,
	}
	applied, err := writeStageProgress(db, instanceID, stageID, updates)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Zero rows: either a status change won the race after the read
		// above, or the values already matched (MySQL reports changed
		// rows, not matched rows). Re-read to tell them apart.
		cur, err := Get(db, instanceID)
		if err != nil {
			return nil, err
		}
		if cur.Status != models.StatusActive {
			return nil, fmt.Errorf("%w: instance %s is %s, progress requires active",
				ErrInvalidTransition, cur.ID, cur.Status)
		}
	}

	// Recompute from stored rows so concurrent writers converge.
	inst, err = Get(db, instanceID)
	if err != nil {
		return nil, err
	}
	summary := progress.Compute(inst.Stages, inst.Progress)

	upd := &Update{
		Instance:       inst,
		Stage:          &row,
		Summary:        summary,
		StageCompleted: completedNow,
	}

	if completedNow && inst.AutoComplete && summary.AllRequiredComplete() {
		completed, err := Complete(ctx, db, d, instanceID)
		if err != nil {
			return nil, err
		}
		upd.Instance = completed
		upd.AutoCompleted = true
	}

	return upd, nil
}

// writeStageProgress applies updates to one progress row only while the
// owning instance is still active, closing the window between the caller's
// status read and the write. Reports whether any row was written.
func writeStageProgress(db *gorm.DB, instanceID, stageID string, updates map[string]interface{}) (bool, error) {
	res := db.Model(&models.StageProgress{}).
		Where("instance_id = ? AND stage_id = ?", instanceID, stageID).
		Where("instance_id IN (?)", db.Model(&models.TrailInstance{}).
			Select("id").
			Where("id = ? AND status = ?", instanceID, models.StatusActive)).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("trail: update stage progress: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Complete marks an active instance completed and issues its rewards.
// Completing an already-completed instance is a no-op that returns the
// existing record. A paused instance must resume first. Reward and
// notification failures are logged, never returned: completion holds once
// the status row is written.
func Complete(ctx context.Context, db *gorm.DB, d *reward.Dispatcher, id string) (*models.TrailInstance, error) {
	inst, err := Get(db, id)
	if err != nil {
		return nil, err
	}

	switch inst.Status {
	case models.StatusCompleted:
		return inst, nil
	case models.StatusActive:
	default:
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, inst.Status, models.StatusCompleted)
	}

	now := time.Now()
	res := db.Model(&models.TrailInstance{}).
		Where("id = ? AND status = ?", id, models.StatusActive).
		Updates(map[string]interface{}{
			"status":       models.StatusCompleted,
			"completed_at": now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("trail: complete %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		// Raced with another writer; re-read and treat a completed row as
		// success.
		inst, err = Get(db, id)
		if err != nil {
			return nil, err
		}
		if inst.Status == models.StatusCompleted {
			return inst, nil
		}
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, inst.Status, models.StatusCompleted)
	}

	inst, err = Get(db, id)
	if err != nil {
		return nil, err
	}

	issueRewards(ctx, db, d, inst)

	return inst, nil
}

// issueRewards runs the downstream side effects of completion best-effort.
func issueRewards(ctx context.Context, db *gorm.DB, d *reward.Dispatcher, inst *models.TrailInstance) {
	if d == nil {
		return
	}

	summary := progress.Compute(inst.Stages, inst.Progress)
	notify.Post(ctx, d.Notifier, notify.TrailCompleted(inst, summary))

	badge, err := reward.BadgeFor(db, inst)
	if err != nil {
		log.Printf("trail: resolve badge for %s: %v", inst.ID, err)
		return
	}
	if badge == nil {
		return
	}
	if _, err := d.Issue(ctx, db, inst, badge); err != nil {
		// The completion stands; the award is reconcilable from the
		// award table.
		log.Printf("trail: issue reward for %s: %v", inst.ID, err)
	}
}

// Pause suspends an active instance.
func Pause(db *gorm.DB, id string) (*models.TrailInstance, error) {
	return transition(db, id, models.StatusPaused)
}

// Resume reactivates a paused instance.
func Resume(db *gorm.DB, id string) (*models.TrailInstance, error) {
	return transition(db, id, models.StatusActive)
}

func transition(db *gorm.DB, id, to string) (*models.TrailInstance, error) {
	inst, err := Get(db, id)
	if err != nil {
		return nil, err
	}
	if !isValidTransition(inst.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, inst.Status, to)
	}

	res := db.Model(&models.TrailInstance{}).
		Where("id = ? AND status = ?", id, inst.Status).
		Update("status", to)
	if res.Error != nil {
		return nil, fmt.Errorf("trail: transition %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: %s changed status concurrently", ErrInvalidTransition, id)
	}

	inst.Status = to
	return inst, nil
}

// isValidTransition checks whether a status transition is allowed.
func isValidTransition(from, to string) bool {
	for _, allowed := range models.ValidTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// generateUniqueID creates a trl-xxxxx ID, retrying once on collision.
func generateUniqueID(db *gorm.DB) (string, error) {
	for attempt := 0; attempt < 2; attempt++ {
		id, err := models.NewID("trl")
		if err != nil {
			return "", fmt.Errorf("trail: generate ID: %w", err)
		}
		var count int64
		if err := db.Model(&models.TrailInstance{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return "", fmt.Errorf("trail: check ID: %w", err)
		}
		if count == 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("trail: could not generate unique ID")
}
