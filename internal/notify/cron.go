package notify

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// nextCronDuration parses a 5-field cron expression and returns the duration
// until the next fire time. Returns 0 on parse error.
func nextCronDuration(expr string) time.Duration {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0
	}
	next := sched.Next(time.Now())
	d := time.Until(next)
	if d < 0 {
		return 0
	}
	return d
}

// RunDigestSchedule posts a daily digest on the given cron schedule until the
// context is cancelled. Blocks; run in a goroutine. An invalid expression
// disables the schedule.
func RunDigestSchedule(ctx context.Context, db *gorm.DB, n Notifier, expr string) {
	if expr == "" || n == nil {
		return
	}
	if _, err := cronParser.Parse(expr); err != nil {
		log.Printf("notify: invalid digest cron %q: %v", expr, err)
		return
	}

	for {
		wait := nextCronDuration(expr)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		evt, err := BuildDailyDigest(db)
		if err != nil {
			log.Printf("notify: %v", err)
			continue
		}
		if evt == nil {
			continue // no activity, nothing to report
		}
		Post(ctx, n, *evt)
	}
}
