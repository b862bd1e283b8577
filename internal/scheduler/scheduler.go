// Package scheduler runs the background loops: cancelling unpaid orders
// whose payment window lapsed, marking pickup slots that were missed, and
// sending pickup reminder emails.
package scheduler

import (
	"context"
	"log"
	"time"

	"kirana_back_end/internal/models"
	"kirana_back_end/internal/orders"
	"kirana_back_end/internal/store"
	"kirana_back_end/internal/utils"
)

const (
	expiryInterval   = time.Minute
	reminderInterval = 5 * time.Minute

	// The day-before reminder fires once while the slot is 23 to 25 hours
	// out; the wide window tolerates the 5 minute tick and restarts.
	dayReminderMin = 23 * time.Hour
	dayReminderMax = 25 * time.Hour

	// The last-call reminder fires inside the final 90 minutes.
	hourReminderMax = 90 * time.Minute
)

type Scheduler struct {
	Svc    *orders.Service
	Orders *store.OrderStore
	Users  *store.UserStore
	Now    func() time.Time
}

func New(svc *orders.Service, orderStore *store.OrderStore, users *store.UserStore) *Scheduler {
	return &Scheduler{Svc: svc, Orders: orderStore, Users: users, Now: time.Now}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	expiry := time.NewTicker(expiryInterval)
	reminders := time.NewTicker(reminderInterval)
	defer expiry.Stop()
	defer reminders.Stop()

	log.Println("⏱️ scheduler started")
	for {
		select {
		case <-ctx.Done():
			log.Println("⏱️ scheduler stopped")
			return
		case <-expiry.C:
			s.runExpiry()
		case <-reminders.C:
			s.runReminders()
		}
	}
}

func (s *Scheduler) runExpiry() {
	if n, err := s.Svc.SweepExpired(); err != nil {
		log.Printf("❌ expiry sweep: %v", err)
	} else if n > 0 {
		log.Printf("🧹 expiry sweep cancelled %d unpaid orders", n)
	}
	if n, err := s.Svc.SweepMissedPickups(); err != nil {
		log.Printf("❌ missed pickup sweep: %v", err)
	} else if n > 0 {
		log.Printf("🧹 marked %d pickup slots as missed", n)
	}
}

// ShouldSendDayReminder reports whether the day-before reminder is due.
func ShouldSendDayReminder(start, now time.Time, alreadySent bool) bool {
	if alreadySent {
		return false
	}
	until := start.Sub(now)
	return until >= dayReminderMin && until <= dayReminderMax
}

// ShouldSendHourReminder reports whether the last-call reminder is due.
func ShouldSendHourReminder(start, now time.Time, alreadySent bool) bool {
	if alreadySent {
		return false
	}
	until := start.Sub(now)
	return until > 0 && until <= hourReminderMax
}

func (s *Scheduler) runReminders() {
	scheduled, err := s.Orders.ListScheduledPickups()
	if err != nil {
		log.Printf("❌ reminder scan: %v", err)
		return
	}
	now := s.Now().UTC()

	for i := range scheduled {
		o := &scheduled[i]
		if o.PickupStart == nil || o.Status == models.StatusCancelled {
			continue
		}

		sendDay := ShouldSendDayReminder(*o.PickupStart, now, o.ReminderDaySent)
		sendHour := ShouldSendHourReminder(*o.PickupStart, now, o.ReminderHourSent)
		if !sendDay && !sendHour {
			continue
		}

		user, err := s.Users.GetByID(o.UserID)
		if err != nil {
			log.Printf("⚠️ reminder: user %s: %v", o.UserID, err)
			continue
		}

		if sendDay {
			if err := utils.SendPickupReminderEmail(o, user.Email, "day"); err != nil {
				log.Printf("⚠️ day reminder for %s: %v", o.ID, err)
			} else {
				o.ReminderDaySent = true
			}
		}
		if sendHour {
			if err := utils.SendPickupReminderEmail(o, user.Email, "hour"); err != nil {
				log.Printf("⚠️ hour reminder for %s: %v", o.ID, err)
			} else {
				o.ReminderHourSent = true
			}
		}

		if err := s.Orders.SetReminderFlags(o.ID, o.ReminderDaySent, o.ReminderHourSent); err != nil {
			log.Printf("⚠️ persist reminder flags for %s: %v", o.ID, err)
		}
	}
}
