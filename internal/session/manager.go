// Package session persists conversation state between turns. Each
// session is one JSON snapshot in Redis under session:<id> with a
// sliding TTL, so abandoned conversations expire on their own.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adviceline/concierge/internal/model"
)

const (
	sessionTTL    = 24 * time.Hour
	sessionPrefix = "session:"
)

// Manager loads and saves conversation snapshots.
type Manager struct {
	rdb *redis.Client
}

func NewManager(rdb *redis.Client) *Manager {
	return &Manager{rdb: rdb}
}

// Load returns the stored state for sessionID, or a fresh state bound to
// userID and sessionID when none exists.
func (m *Manager) Load(ctx context.Context, userID, sessionID string) (*model.ConversationState, error) {
	key := sessionPrefix + sessionID
	data, err := m.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return &model.ConversationState{UserID: userID, SessionID: sessionID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var st model.ConversationState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &st, nil
}

// Save writes the snapshot and refreshes the TTL.
func (m *Manager) Save(ctx context.Context, st *model.ConversationState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	key := sessionPrefix + st.SessionID
	if err := m.rdb.Set(ctx, key, data, sessionTTL).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete removes the snapshot. Missing keys are not an error.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.rdb.Del(ctx, sessionPrefix+sessionID).Err()
}

// HealthPing verifies Redis connectivity.
func (m *Manager) HealthPing(ctx context.Context) error {
	return m.rdb.Ping(ctx).Err()
}
