// Package memory keeps long-term facts about a caller across sessions.
// Facts are stored per user in Weaviate and recalled by semantic
// similarity to a query merged with a recency listing.
package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/adviceline/concierge/internal/model"
)

const ClassUserMemory = "UserMemory"

// Fact is one remembered item about a user.
type Fact struct {
	FactID       string    `json:"factId"`
	UserID       string    `json:"userId"`
	Content      string    `json:"content"`
	Category     string    `json:"category"`
	CreationTime time.Time `json:"creationTime"`
	Score        float64   `json:"score,omitempty"`
}

// Store persists and recalls user facts.
type Store interface {
	// Remember writes a fact for the user. Writing a fact whose content
	// already exists verbatim for that user is a no-op.
	Remember(ctx context.Context, userID, content, category string) error
	// Recall returns facts matching query followed by the user's most
	// recent facts, with exact-content duplicates removed. An empty
	// query returns the recency listing alone.
	Recall(ctx context.Context, userID, query string, topK int) ([]Fact, error)
}

// mergeFacts concatenates semantic results and recency results in that
// order, dropping any fact whose content was already seen.
func mergeFacts(semantic, recent []Fact) []Fact {
	seen := make(map[string]bool, len(semantic)+len(recent))
	out := make([]Fact, 0, len(semantic)+len(recent))
	for _, f := range semantic {
		if seen[f.Content] {
			continue
		}
		seen[f.Content] = true
		out = append(out, f)
	}
	for _, f := range recent {
		if seen[f.Content] {
			continue
		}
		seen[f.Content] = true
		out = append(out, f)
	}
	return out
}

// Summarize distils a finished conversation into the facts worth
// keeping: a session summary plus the issue category, stamped with the
// conversation date.
func Summarize(state *model.ConversationState, now time.Time) []Fact {
	users := state.UserMessages()
	if len(users) == 0 {
		return nil
	}
	summary := users[0]
	if len(users) > 1 {
		summary += " " + users[1]
	}
	if r := []rune(summary); len(r) > 200 {
		summary = string(r[:200])
	}

	date := now.Format("2 January 2006")
	facts := []Fact{{
		FactID:       uuid.NewString(),
		UserID:       state.UserID,
		Content:      "On " + date + " the caller contacted us about: " + summary,
		Category:     string(state.IssueCategory),
		CreationTime: now,
	}}
	if state.IssueCategory != "" && state.IssueCategory != model.IssueGeneral {
		facts = append(facts, Fact{
			FactID:       uuid.NewString(),
			UserID:       state.UserID,
			Content:      "The caller has an ongoing " + string(state.IssueCategory) + " issue as of " + date,
			Category:     string(state.IssueCategory),
			CreationTime: now,
		})
	}
	return facts
}
