// services/scheduler.go
package services

import (
	"log"
	"time"

	"duelytics-server/models"

	"github.com/go-co-op/gocron/v2"
)

// StartArchiveScheduler periodically flips sessions whose end time has
// passed to archived, so expired sessions stop accepting duels even if no
// admin is around.
func (s *SessionService) StartArchiveScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every minute: archive sessions past their end time
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			var sessions []models.Session
			now := time.Now()
			err := s.DB.Where("status = ? AND ends_at <= ?", models.SessionStatusActive, now).
				Find(&sessions).Error
			if err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}

			for _, session := range sessions {
				session.Status = models.SessionStatusArchived
				if err := s.DB.Save(&session).Error; err != nil {
					log.Printf("[Scheduler] Failed to archive session %s: %v", session.ID, err)
				} else {
					log.Printf("📦 Auto-archived expired session: %s", session.Name)
				}
			}
		}),
	)
}
