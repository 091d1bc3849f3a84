package store

import (
	"context"
	"time"

	"github.com/adviceline/concierge/internal/model"
)

// Store exposes persistence operations required by the workflow and API.
// Implementations live under internal/store/<driver>/ (postgres, sqlite).
type Store interface {
	Notes() Notes
	Bookings() Bookings
	Cases() Cases
	Deadlines() Deadlines
	Letters() Letters
	Benefits() Benefits
}

type Notes interface {
	Create(ctx context.Context, n *model.Note) (*model.Note, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Note, error)
}

type Bookings interface {
	Create(ctx context.Context, b *model.Booking) (*model.Booking, error)
	// SlotTaken reports whether a confirmed booking already holds slotID.
	SlotTaken(ctx context.Context, slotID string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Booking, error)
}

type Cases interface {
	Create(ctx context.Context, c *model.CaseTicket) (*model.CaseTicket, error)
	// ListPending returns open cases ordered by priority then age.
	ListPending(ctx context.Context, limit int) ([]*model.CaseTicket, error)
	ListByUser(ctx context.Context, userID string) ([]*model.CaseTicket, error)
}

type Deadlines interface {
	Create(ctx context.Context, d *model.Deadline) (*model.Deadline, error)
	// ListUpcoming returns incomplete deadlines for the user due on or
	// before horizon, soonest first.
	ListUpcoming(ctx context.Context, userID string, horizon time.Time) ([]*model.Deadline, error)
	// ListDueForReminder returns incomplete deadlines across all users due
	// on or before horizon whose reminder has not been sent.
	ListDueForReminder(ctx context.Context, horizon time.Time) ([]*model.Deadline, error)
	MarkReminderSent(ctx context.Context, deadlineID string) error
}

type Letters interface {
	Create(ctx context.Context, l *model.Letter) (*model.Letter, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Letter, error)
}

type Benefits interface {
	Create(ctx context.Context, e *model.BenefitEstimate) (*model.BenefitEstimate, error)
}
