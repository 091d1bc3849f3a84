// Package deadlines tracks dates a caller must act by and reminds the
// advice team about the ones coming up.
package deadlines

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/adviceline/concierge/internal/model"
	"github.com/adviceline/concierge/internal/store"
)

// Tracker creates and lists deadlines for a user.
type Tracker struct {
	deadlines   store.Deadlines
	horizonDays int
}

func NewTracker(deadlines store.Deadlines, horizonDays int) *Tracker {
	if horizonDays <= 0 {
		horizonDays = 14
	}
	return &Tracker{deadlines: deadlines, horizonDays: horizonDays}
}

// Add records a deadline. Due dates in the past are rejected.
func (t *Tracker) Add(ctx context.Context, d *model.Deadline) (*model.Deadline, error) {
	if d.UserID == "" || d.Title == "" {
		return nil, fmt.Errorf("%w: userId and title are required", model.ErrValidation)
	}
	if d.DueDate.Before(time.Now()) {
		return nil, fmt.Errorf("%w: due date is in the past", model.ErrValidation)
	}
	if d.Priority == "" {
		d.Priority = priorityFor(time.Until(d.DueDate))
	}
	return t.deadlines.Create(ctx, d)
}

// Upcoming lists the user's incomplete deadlines inside the horizon.
func (t *Tracker) Upcoming(ctx context.Context, userID string) ([]*model.Deadline, error) {
	horizon := time.Now().AddDate(0, 0, t.horizonDays)
	return t.deadlines.ListUpcoming(ctx, userID, horizon)
}

func priorityFor(until time.Duration) string {
	switch {
	case until <= 48*time.Hour:
		return "high"
	case until <= 7*24*time.Hour:
		return "medium"
	}
	return "low"
}

// Notifier receives reminders found by the sweep. The API monitor feed
// and the alert channel both implement it.
type Notifier interface {
	NotifyDeadline(ctx context.Context, d *model.Deadline)
}

// Sweeper runs the periodic reminder pass: every deadline due inside
// the horizon whose reminder has not been sent is notified exactly once.
type Sweeper struct {
	deadlines   store.Deadlines
	notifier    Notifier
	horizonDays int
	log         zerolog.Logger
}

func NewSweeper(deadlines store.Deadlines, notifier Notifier, horizonDays int, log zerolog.Logger) *Sweeper {
	if horizonDays <= 0 {
		horizonDays = 14
	}
	return &Sweeper{deadlines: deadlines, notifier: notifier, horizonDays: horizonDays, log: log}
}

// Sweep performs one reminder pass. Returns the number of reminders sent.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	horizon := time.Now().AddDate(0, 0, s.horizonDays)
	due, err := s.deadlines.ListDueForReminder(ctx, horizon)
	if err != nil {
		return 0, fmt.Errorf("deadline sweep: %w", err)
	}

	sent := 0
	for _, d := range due {
		if s.notifier != nil {
			s.notifier.NotifyDeadline(ctx, d)
		}
		if err := s.deadlines.MarkReminderSent(ctx, d.DeadlineID); err != nil {
			s.log.Warn().Err(err).Str("deadlineId", d.DeadlineID).Msg("mark reminder sent failed")
			continue
		}
		sent++
	}
	if sent > 0 {
		s.log.Info().Int("sent", sent).Msg("deadline reminders dispatched")
	}
	return sent, nil
}
