// Package notify bridges trail engine events to chat platforms (Slack,
// Discord, etc.). Delivery is best-effort: the engine never fails an
// operation because a notification could not be sent.
package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/veredas/trailhead/internal/models"
	"github.com/veredas/trailhead/internal/progress"
)

// EventType classifies an engine event for display.
type EventType string

const (
	EventTrailStarted   EventType = "trail_started"
	EventTrailCompleted EventType = "trail_completed"
	EventBadgeAwarded   EventType = "badge_awarded"
	EventDailyDigest    EventType = "daily_digest"
)

// Sidebar colors for event attachments.
const (
	ColorSuccess = "#36a64f"
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
)

// Event is an engine event formatted for a chat platform.
type Event struct {
	Type      EventType
	Title     string
	Body      string
	Color     string // sidebar color hint (e.g. "#36a64f")
	Fields    []Field
	Timestamp time.Time
}

// Field is a key-value pair displayed in an event attachment.
type Field struct {
	Name  string
	Value string
	Short bool // hint: render side-by-side with another field
}

// Notifier is the interface platform adapters must satisfy.
type Notifier interface {
	Send(ctx context.Context, evt Event) error
}

// Null is a Notifier that drops every event.
type Null struct{}

// Send discards the event.
func (Null) Send(context.Context, Event) error { return nil }

// Post delivers an event best-effort: errors are logged, never returned.
func Post(ctx context.Context, n Notifier, evt Event) {
	if n == nil {
		return
	}
	if err := n.Send(ctx, evt); err != nil {
		log.Printf("notify: send %s: %v", evt.Type, err)
	}
}

// TrailCompleted builds the event for a finished trail instance.
func TrailCompleted(inst *models.TrailInstance, summary progress.Summary) Event {
	return Event{
		Type:      EventTrailCompleted,
		Title:     fmt.Sprintf("Trail completed: %s", inst.Name),
		Body:      fmt.Sprintf("%s finished all required stages.", inst.UserID),
		Color:     ColorSuccess,
		Timestamp: time.Now(),
		Fields: []Field{
			{Name: "User", Value: inst.UserID, Short: true},
			{Name: "Life area", Value: inst.LifeArea, Short: true},
			{Name: "Stages", Value: fmt.Sprintf("%d/%d required", summary.CompletedCount, summary.RequiredCount), Short: true},
		},
	}
}

// BadgeAwarded builds the event for a newly issued badge award.
func BadgeAwarded(award *models.BadgeAward, badge *models.TrailBadge) Event {
	evt := Event{
		Type:      EventBadgeAwarded,
		Title:     fmt.Sprintf("Badge earned: %s", badge.Name),
		Body:      badge.Description,
		Color:     badge.Color,
		Timestamp: award.EarnedAt,
		Fields: []Field{
			{Name: "User", Value: award.UserID, Short: true},
			{Name: "Badge", Value: badge.Name, Short: true},
		},
	}
	if badge.CoinsReward > 0 {
		evt.Fields = append(evt.Fields, Field{
			Name: "Coins", Value: fmt.Sprintf("%d", badge.CoinsReward), Short: true,
		})
	}
	return evt
}
