// Package reward issues badge awards and coin credits for completed trails.
// Issuance is at-most-once per (instance, badge) pair, enforced by a unique
// index plus an insert-if-absent, so concurrent or retried completions of the
// same instance never double-award.
package reward

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/veredas/trailhead/internal/models"
	"github.com/veredas/trailhead/internal/notify"
	"github.com/veredas/trailhead/internal/wallet"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Dispatcher issues rewards on trail completion. Wallet and Notifier are
// optional: a nil Wallet skips coin credits, a nil Notifier skips
// announcements. Reward delivery is downstream of completion and never
// blocks or reverts it.
type Dispatcher struct {
	Wallet   wallet.Wallet
	Notifier notify.Notifier
}

// Outcome describes what Issue did.
type Outcome struct {
	Award          *models.BadgeAward
	AlreadyAwarded bool // the pair existed before this call; nothing was credited
	CreditResult   string
}

// Issue awards the badge for the instance if it has not been awarded yet.
// When the award is new it also requests the coin credit and announces the
// badge. A repeat call for the same pair returns the existing award with
// AlreadyAwarded set and performs no side effects.
func (d *Dispatcher) Issue(ctx context.Context, db *gorm.DB, inst *models.TrailInstance, badge *models.TrailBadge) (*Outcome, error) {
	if inst == nil {
		return nil, fmt.Errorf("reward: instance is required")
	}
	if badge == nil {
		return nil, fmt.Errorf("reward: badge is required")
	}

	award := &models.BadgeAward{
		InstanceID: inst.ID,
		BadgeID:    badge.ID,
		UserID:     inst.UserID,
		EarnedAt:   time.Now(),
	}

	// Insert-if-absent on the (instance_id, badge_id) unique index.
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "instance_id"}, {Name: "badge_id"}},
		DoNothing: true,
	}).Create(award)
	if res.Error != nil {
		return nil, fmt.Errorf("reward: create award: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		// Lost the race or repeat call: return the existing award untouched.
		var existing models.BadgeAward
		if err := db.Where("instance_id = ? AND badge_id = ?", inst.ID, badge.ID).
			First(&existing).Error; err != nil {
			return nil, fmt.Errorf("reward: load existing award: %w", err)
		}
		return &Outcome{Award: &existing, AlreadyAwarded: true}, nil
	}

	out := &Outcome{Award: award}

	// Coin credit, keyed by the award row so wallet-side retries dedupe.
	if d.Wallet != nil && badge.CoinsReward > 0 {
		result, err := d.Wallet.Credit(ctx, wallet.CreditRequest{
			UserID:         inst.UserID,
			Amount:         badge.CoinsReward,
			Reason:         fmt.Sprintf("badge: %s", badge.Name),
			IdempotencyKey: fmt.Sprintf("award-%d", award.ID),
		})
		if err != nil {
			// The award stands; the credit can be reconciled from the
			// award table.
			log.Printf("reward: credit %d coins to %s: %v", badge.CoinsReward, inst.UserID, err)
		} else {
			out.CreditResult = result
		}
	}

	notify.Post(ctx, d.Notifier, notify.BadgeAwarded(award, badge))

	return out, nil
}

// BadgeFor resolves which badge a completed instance earns: the instance
// override wins, then the template default. Returns nil when neither names
// a badge or the badge is missing or inactive.
func BadgeFor(db *gorm.DB, inst *models.TrailInstance) (*models.TrailBadge, error) {
	var badgeID string
	switch {
	case inst.BadgeID != nil && *inst.BadgeID != "":
		badgeID = *inst.BadgeID
	case inst.TemplateID != nil:
		var tpl models.TrailTemplate
		err := db.Select("badge_id").First(&tpl, "id = ?", *inst.TemplateID).Error
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reward: load template: %w", err)
		}
		if tpl.BadgeID != nil {
			badgeID = *tpl.BadgeID
		}
	}
	if badgeID == "" {
		return nil, nil
	}

	var badge models.TrailBadge
	err := db.First(&badge, "id = ? AND active = ?", badgeID, true).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reward: load badge: %w", err)
	}
	return &badge, nil
}
