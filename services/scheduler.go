package services

import (
	"encoding/json"
	"log"
	"time"

	"referral-program-server/models"
	"referral-program-server/utils"

	"github.com/go-co-op/gocron/v2"
)

// StartClickArchiver ships the previous day's click events to the archive
// bucket once a day. Clicks are immutable and nothing here deletes them;
// the export exists so the audit log survives outside the primary store.
// No-op when the bucket is not configured.
func (s *ReferralService) StartClickArchiver() {
	if !utils.R2Configured() {
		log.Println("⚠️  Click archive bucket not configured, archiver disabled")
		return
	}

	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Daily at 02:00: export yesterday's clicks as JSONL
	_, _ = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(2, 0, 0))),
		gocron.NewTask(func() {
			dayEnd := time.Now().Truncate(24 * time.Hour)
			dayStart := dayEnd.Add(-24 * time.Hour)

			var clicks []models.ReferralClick
			err := s.DB.Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
				Order("id").
				Find(&clicks).Error
			if err != nil {
				log.Printf("[Archiver] DB error: %v", err)
				return
			}
			if len(clicks) == 0 {
				return
			}

			var buf []byte
			for _, click := range clicks {
				line, err := json.Marshal(click)
				if err != nil {
					log.Printf("[Archiver] Failed to marshal click %d: %v", click.ID, err)
					continue
				}
				buf = append(buf, line...)
				buf = append(buf, '\n')
			}

			key := "click-archives/" + dayStart.Format("2006-01-02") + ".jsonl"
			if err := utils.UploadArchiveToR2(key, buf, "application/x-ndjson"); err != nil {
				log.Printf("[Archiver] Failed to upload %s: %v", key, err)
			} else {
				log.Printf("✅ Archived %d clicks to %s", len(clicks), key)
			}
		}),
	)
}
