package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashverma/pledge/internal/model"
	"github.com/ashverma/pledge/internal/store"
)

// ReminderHour is the local hour at which users who have not checked in yet
// get a nudge.
const ReminderHour = 20

// Scheduler periodically checks for check-in reminders to send.
type Scheduler struct {
	mu       sync.RWMutex
	service  *Service
	push     *store.PushStore
	checkins *store.CheckInStore
	interval time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}

	// lastReminder tracks which day each user was last reminded on, so a
	// tick landing twice in the reminder hour does not double-send.
	lastReminder map[int64]string
}

// NewScheduler creates a reminder scheduler.
func NewScheduler(svc *Service, pushStore *store.PushStore, checkinStore *store.CheckInStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		service:      svc,
		push:         pushStore,
		checkins:     checkinStore,
		interval:     60 * time.Second,
		logger:       logger,
		lastReminder: make(map[int64]string),
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(time.Now())
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick(now time.Time) {
	if !s.service.Configured() {
		return
	}
	if now.Hour() != ReminderHour {
		return
	}

	userIDs, err := s.push.ListUserIDs()
	if err != nil {
		s.logger.Error("scheduler: list subscribed users", "error", err)
		return
	}

	day := now.Format("2006-01-02")
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	for _, uid := range userIDs {
		s.mu.RLock()
		already := s.lastReminder[uid] == day
		s.mu.RUnlock()
		if already {
			continue
		}

		count, err := s.checkins.CountOnDay(uid, dayStart)
		if err != nil {
			s.logger.Error("scheduler: count check-ins", "user_id", uid, "error", err)
			continue
		}
		if count > 0 {
			// Already checked in today, nothing to nudge.
			s.mu.Lock()
			s.lastReminder[uid] = day
			s.mu.Unlock()
			continue
		}

		enabled, err := s.push.PreferenceEnabled(uid, model.NotifTypeCheckInReminder)
		if err != nil || !enabled {
			continue
		}

		s.sendToUser(uid, Payload{
			Title: "Daily Check-In",
			Body:  "You haven't checked in today. Keep the streak alive.",
			URL:   "/",
			Tag:   "checkin-reminder",
		})

		s.mu.Lock()
		s.lastReminder[uid] = day
		s.mu.Unlock()
	}
}

// NotifyPartnerRequest tells a user that someone invited them to be an
// accountability partner. Called from the partnership handler.
func (s *Scheduler) NotifyPartnerRequest(receiverID int64, requesterName string) {
	if !s.service.Configured() {
		return
	}
	enabled, err := s.push.PreferenceEnabled(receiverID, model.NotifTypePartnerRequest)
	if err != nil || !enabled {
		return
	}
	s.sendToUser(receiverID, Payload{
		Title: "Partner Request",
		Body:  fmt.Sprintf("%s wants to be your accountability partner", requesterName),
		URL:   "/partners",
		Tag:   "partner-request",
	})
}

// NotifyPartnerCheckIn tells each partner that the user logged a check-in.
func (s *Scheduler) NotifyPartnerCheckIn(partnerIDs []int64, name string, status model.CheckInStatus) {
	if !s.service.Configured() {
		return
	}

	body := fmt.Sprintf("%s checked in today", name)
	if status == model.StatusRelapse {
		body = fmt.Sprintf("%s logged a relapse. Reach out.", name)
	}
	payload := Payload{
		Title: "Partner Update",
		Body:  body,
		URL:   "/partners",
		Tag:   "partner-checkin",
	}

	for _, pid := range partnerIDs {
		enabled, err := s.push.PreferenceEnabled(pid, model.NotifTypePartnerCheckIn)
		if err != nil || !enabled {
			continue
		}
		s.sendToUser(pid, payload)
	}
}

func (s *Scheduler) sendToUser(userID int64, payload Payload) {
	subs, err := s.push.ListByUser(userID)
	if err != nil {
		s.logger.Error("push: list subscriptions", "user_id", userID, "error", err)
		return
	}
	for _, sub := range subs {
		if err := s.service.Send(&sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				s.push.DeleteByEndpoint(sub.Endpoint)
			} else {
				s.logger.Error("push: send", "user_id", userID, "error", err)
			}
		}
	}
}
