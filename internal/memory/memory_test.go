package memory

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adviceline/concierge/internal/model"
)

func TestSummarizeEmptyConversation(t *testing.T) {
	st := &model.ConversationState{UserID: "u1"}
	assert.Nil(t, Summarize(st, time.Now()))
}

func TestSummarizeUsesFirstTwoUserMessages(t *testing.T) {
	st := &model.ConversationState{UserID: "u1", IssueCategory: model.IssueHousing}
	st.AppendUser("my landlord wants me out")
	st.AppendAssistant("I can help with that")
	st.AppendUser("he gave me a section 21 notice")
	st.AppendUser("this should not appear")

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	facts := Summarize(st, now)
	require.Len(t, facts, 2)

	assert.Contains(t, facts[0].Content, "10 March 2025")
	assert.Contains(t, facts[0].Content, "my landlord wants me out")
	assert.Contains(t, facts[0].Content, "section 21 notice")
	assert.NotContains(t, facts[0].Content, "should not appear")
	assert.Equal(t, "u1", facts[0].UserID)

	assert.Contains(t, facts[1].Content, "housing")
}

func TestSummarizeTruncatesLongSummary(t *testing.T) {
	st := &model.ConversationState{UserID: "u1", IssueCategory: model.IssueGeneral}
	st.AppendUser(strings.Repeat("a", 300))

	facts := Summarize(st, time.Now())
	require.Len(t, facts, 1)
	// Prefix plus the clipped message text.
	assert.LessOrEqual(t, len(facts[0].Content), 260)
}

func TestSummarizeTruncationKeepsRunesIntact(t *testing.T) {
	st := &model.ConversationState{UserID: "u1", IssueCategory: model.IssueGeneral}
	st.AppendUser(strings.Repeat("£", 300))

	facts := Summarize(st, time.Now())
	require.Len(t, facts, 1)
	assert.True(t, utf8.ValidString(facts[0].Content))
	assert.Contains(t, facts[0].Content, "£")
}

func TestMergeFactsAppendsRecentAndDropsDuplicateContent(t *testing.T) {
	semantic := []Fact{
		{FactID: "s1", Content: "the caller has a housing issue", Score: 0.9},
		{FactID: "s2", Content: "prefers morning callbacks", Score: 0.4},
	}
	recent := []Fact{
		{FactID: "r1", Content: "the caller has a housing issue"},
		{FactID: "r2", Content: "booked a callback on 11 March"},
	}

	merged := mergeFacts(semantic, recent)
	require.Len(t, merged, 3)
	assert.Equal(t, "s1", merged[0].FactID)
	assert.Equal(t, "s2", merged[1].FactID)
	assert.Equal(t, "r2", merged[2].FactID)
}

func TestMergeFactsEmptySemantic(t *testing.T) {
	recent := []Fact{{FactID: "r1", Content: "only recent"}}
	merged := mergeFacts(nil, recent)
	require.Len(t, merged, 1)
	assert.Equal(t, "r1", merged[0].FactID)
}

func TestSummarizeSkipsCategoryFactForGeneral(t *testing.T) {
	st := &model.ConversationState{UserID: "u1", IssueCategory: model.IssueGeneral}
	st.AppendUser("just a quick question")
	facts := Summarize(st, time.Now())
	require.Len(t, facts, 1)
}
