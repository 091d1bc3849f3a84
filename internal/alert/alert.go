// Package alert publishes crisis notifications so on-duty advisers can
// pick them up immediately. Delivery is best effort; a failed publish
// never blocks the conversation turn.
package alert

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/adviceline/concierge/internal/model"
)

// CrisisAlert is the payload published on the crisis channel. CaseID
// references the crisis case ticket logged before publishing; it is
// empty only when the case store was unavailable.
type CrisisAlert struct {
	CaseID    string              `json:"caseId"`
	UserID    string              `json:"userId"`
	SessionID string              `json:"sessionId"`
	Category  model.IssueCategory `json:"category"`
	Summary   string              `json:"summary"`
	Timestamp time.Time           `json:"timestamp"`
}

// Publisher fans crisis alerts out to subscribers.
type Publisher interface {
	PublishCrisis(ctx context.Context, a CrisisAlert)
}

type redisPublisher struct {
	rdb     *redis.Client
	channel string
}

// NewRedisPublisher publishes alerts on the given Redis pub/sub channel.
func NewRedisPublisher(rdb *redis.Client, channel string) Publisher {
	return &redisPublisher{rdb: rdb, channel: channel}
}

func (p *redisPublisher) PublishCrisis(ctx context.Context, a CrisisAlert) {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(a)
	if err != nil {
		log.Error().Err(err).Msg("marshal crisis alert")
		return
	}
	if err := p.rdb.Publish(ctx, p.channel, data).Err(); err != nil {
		log.Warn().Err(err).Str("channel", p.channel).Str("sessionId", a.SessionID).Msg("crisis alert publish failed")
		return
	}
	log.Info().Str("sessionId", a.SessionID).Str("category", string(a.Category)).Msg("crisis alert published")
}

// NopPublisher discards alerts. Used in tests and when Redis is absent.
type NopPublisher struct{}

func (NopPublisher) PublishCrisis(context.Context, CrisisAlert) {}

// DeadlineReminder is the payload published when a tracked deadline
// enters its reminder window.
type DeadlineReminder struct {
	DeadlineID string              `json:"deadlineId"`
	UserID     string              `json:"userId"`
	Title      string              `json:"title"`
	DueDate    time.Time           `json:"dueDate"`
	Category   model.IssueCategory `json:"category"`
	Priority   string              `json:"priority"`
}

type RedisDeadlineNotifier struct {
	rdb     *redis.Client
	channel string
}

// NewRedisDeadlineNotifier publishes deadline reminders on the given
// Redis pub/sub channel. It satisfies the sweep's notifier contract.
func NewRedisDeadlineNotifier(rdb *redis.Client, channel string) *RedisDeadlineNotifier {
	return &RedisDeadlineNotifier{rdb: rdb, channel: channel}
}

func (n *RedisDeadlineNotifier) NotifyDeadline(ctx context.Context, d *model.Deadline) {
	payload := DeadlineReminder{
		DeadlineID: d.DeadlineID,
		UserID:     d.UserID,
		Title:      d.Title,
		DueDate:    d.DueDate,
		Category:   d.Category,
		Priority:   d.Priority,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("marshal deadline reminder")
		return
	}
	if err := n.rdb.Publish(ctx, n.channel, data).Err(); err != nil {
		log.Warn().Err(err).Str("channel", n.channel).Str("deadlineId", d.DeadlineID).Msg("deadline reminder publish failed")
		return
	}
	log.Info().Str("deadlineId", d.DeadlineID).Str("userId", d.UserID).Msg("deadline reminder published")
}
