package urgency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/adviceline/concierge/internal/model"
)

func days(d int) *int { return &d }

func TestAssess_BaseScore(t *testing.T) {
	got := Assess(Input{Category: model.IssueBenefits})
	assert.Equal(t, 5, got)
}

func TestAssess_ClampsAtTen(t *testing.T) {
	// housing + 1-day deadline + eviction notice + children and disability:
	// 5+3+2+1+1+1 = 13, clamped to 10.
	got := Assess(Input{
		Category:             model.IssueHousing,
		DeadlineDays:         days(1),
		SeverityFactors:      []string{"eviction_notice"},
		VulnerabilityFactors: []string{"children", "disability"},
	})
	assert.Equal(t, 10, got)
}

func TestAssess_SeverityAppliedOnce(t *testing.T) {
	one := Assess(Input{SeverityFactors: []string{"court_summons"}})
	many := Assess(Input{SeverityFactors: []string{"court_summons", "bailiff_visit", "debt_enforcement"}})
	assert.Equal(t, one, many)
}

func TestAssess_MonotonicInDeadline(t *testing.T) {
	prev := 0
	for _, d := range []int{30, 14, 7, 2} {
		got := Assess(Input{DeadlineDays: days(d)})
		assert.GreaterOrEqual(t, got, prev, "deadline %d days", d)
		prev = got
	}
}

func TestAssess_HighSeverityNeverDecreases(t *testing.T) {
	for _, base := range []Input{
		{Category: model.IssueBenefits},
		{Category: model.IssueDebt, DeadlineDays: days(3)},
		{Category: model.IssueHousing, DeadlineDays: days(1), VulnerabilityFactors: []string{"children"}},
	} {
		without := Assess(base)
		with := base
		with.SeverityFactors = append([]string{"homelessness_risk"}, base.SeverityFactors...)
		assert.GreaterOrEqual(t, Assess(with), without)
	}
}

func TestAssess_AlwaysInRange(t *testing.T) {
	inputs := []Input{
		{},
		{DeadlineDays: days(0)},
		{Category: model.IssueDebt, DeadlineDays: days(1),
			SeverityFactors:      []string{"bailiff_visit", "court_summons"},
			VulnerabilityFactors: []string{"children", "disability", "elderly"}},
	}
	for _, in := range inputs {
		got := Assess(in)
		assert.GreaterOrEqual(t, got, 1)
		assert.LessOrEqual(t, got, 10)
	}
}

func TestPriority_StrictOrder(t *testing.T) {
	assert.Equal(t, 1, Priority(model.UrgencyCrisis))
	assert.Equal(t, 2, Priority(model.UrgencyUrgent))
	assert.Equal(t, 3, Priority(model.UrgencyStandard))
	assert.Equal(t, 4, Priority(model.UrgencyGeneral))
	assert.Greater(t, Priority(model.UrgencyLevel("BOGUS")), 4)
}

func TestCallbackTime(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	crisis := CallbackTime(model.UrgencyCrisis, now)
	assert.NotNil(t, crisis)
	assert.Equal(t, now, *crisis)

	urgent := CallbackTime(model.UrgencyUrgent, now)
	assert.Equal(t, now.Add(24*time.Hour), *urgent)

	standard := CallbackTime(model.UrgencyStandard, now)
	assert.Equal(t, now.Add(168*time.Hour), *standard)

	assert.Nil(t, CallbackTime(model.UrgencyGeneral, now))
}

func TestValidTier(t *testing.T) {
	assert.True(t, ValidTier(model.UrgencyCrisis))
	assert.False(t, ValidTier(model.UrgencyLevel("SOMEDAY")))
	assert.Len(t, TierNames(), 4)
}
