package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/veredas/trailhead/internal/models"
	"gorm.io/gorm"
)

// awardEvent holds data for a badge award SSE event.
type awardEvent struct {
	ID         uint   `json:"id"`
	InstanceID string `json:"instance_id"`
	BadgeID    string `json:"badge_id"`
	UserID     string `json:"user_id"`
	Count24h   int64  `json:"count_24h"`
}

// handleSSE creates an SSE handler that polls for new badge awards.
func handleSSE(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		// Send connected event.
		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		if db == nil {
			return
		}

		// Start from the current max ID so only NEW awards stream.
		var lastSeenID uint
		var maxAward models.BadgeAward
		if err := db.Order("id DESC").Limit(1).First(&maxAward).Error; err == nil {
			lastSeenID = maxAward.ID
		}

		ctx := c.Request.Context()
		ticker := time.NewTicker(3 * time.Second)
		heartbeat := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case <-ticker.C:
				var newAwards []models.BadgeAward
				db.Where("id > ?", lastSeenID).
					Order("id ASC").
					Find(&newAwards)

				if len(newAwards) == 0 {
					continue
				}

				lastSeenID = newAwards[len(newAwards)-1].ID

				count := PendingAwardCount(db)

				latest := newAwards[len(newAwards)-1]
				evt := awardEvent{
					ID:         latest.ID,
					InstanceID: latest.InstanceID,
					BadgeID:    latest.BadgeID,
					UserID:     latest.UserID,
					Count24h:   count,
				}
				writeSSE(c.Writer, "award", evt)
				c.Writer.Flush()
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
