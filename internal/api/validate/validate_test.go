package validate

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConverse(t *testing.T) {
	assert.NoError(t, Converse("hello", "u1", "s1"))
	assert.EqualError(t, Converse("", "u1", "s1"), "prompt is required")
	assert.EqualError(t, Converse("hello", "", "s1"), "userId is required")
	assert.EqualError(t, Converse("hello", "u1", ""), "sessionId is required")
	assert.Error(t, Converse("hello", "user id", "s1"))
	assert.Error(t, Converse(strings.Repeat("x", 4001), "u1", "s1"))
}

func TestID_Bounds(t *testing.T) {
	assert.NoError(t, ID("userId", strings.Repeat("a", 64)))
	assert.Error(t, ID("userId", strings.Repeat("a", 65)))
}

func TestDeadline(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.NoError(t, Deadline("Appeal PIP decision", now.Add(48*time.Hour), now))
	assert.EqualError(t, Deadline("", now.Add(time.Hour), now), "title is required")
	assert.EqualError(t, Deadline("t", time.Time{}, now), "dueDate is required")
	assert.EqualError(t, Deadline("t", now.Add(-time.Hour), now), "dueDate must be in the future")
	assert.Error(t, Deadline(strings.Repeat("x", 201), now.Add(time.Hour), now))
}
