// Package urgency implements the numeric urgency score and the coarse tier
// metadata used for case routing. The 1-10 score and the CRISIS..GENERAL tier
// are independent views of a case and are consumed at different call sites.
package urgency

import (
	"time"

	"github.com/adviceline/concierge/internal/model"
)

// highSeverity factors add a single +2 regardless of how many are present.
var highSeverity = map[string]bool{
	"homelessness_risk": true,
	"eviction_notice":   true,
	"benefit_sanction":  true,
	"debt_enforcement":  true,
	"court_summons":     true,
	"bailiff_visit":     true,
}

// Input describes a case for scoring. DeadlineDays is nil when no deadline
// is known.
type Input struct {
	Category             model.IssueCategory
	DeadlineDays         *int
	SeverityFactors      []string
	VulnerabilityFactors []string
}

// Assess scores a case on a 1-10 scale, 10 most urgent. The score is
// additive from a base of 5 and clamped to [1,10].
func Assess(in Input) int {
	score := 5

	if in.DeadlineDays != nil {
		switch d := *in.DeadlineDays; {
		case d <= 2:
			score += 3
		case d <= 7:
			score += 2
		case d <= 14:
			score += 1
		}
	}

	for _, f := range in.SeverityFactors {
		if highSeverity[f] {
			score += 2
			break
		}
	}

	if len(in.VulnerabilityFactors) >= 2 {
		score++
	}
	for _, f := range in.VulnerabilityFactors {
		if f == "children" || f == "disability" {
			score++
			break
		}
	}

	if in.Category == model.IssueHousing || in.Category == model.IssueDebt {
		score++
	}

	if score > 10 {
		return 10
	}
	if score < 1 {
		return 1
	}
	return score
}

// tierInfo carries routing metadata for one tier. A nil callback offset
// means no callback is scheduled.
type tierInfo struct {
	priority    int
	callback    *time.Duration
	description string
}

func hours(h int) *time.Duration {
	d := time.Duration(h) * time.Hour
	return &d
}

var tiers = map[model.UrgencyLevel]tierInfo{
	model.UrgencyCrisis:   {priority: 1, callback: hours(0), description: "Life-threatening or immediate danger"},
	model.UrgencyUrgent:   {priority: 2, callback: hours(24), description: "Time-sensitive, needs response within 24-48 hours"},
	model.UrgencyStandard: {priority: 3, callback: hours(168), description: "Important but not immediately time-sensitive"},
	model.UrgencyGeneral:  {priority: 4, callback: nil, description: "General information, handled by the assistant"},
}

// ValidTier reports whether level is a recognized tier.
func ValidTier(level model.UrgencyLevel) bool {
	_, ok := tiers[level]
	return ok
}

// TierNames lists the tiers in priority order, for enumerated-choices errors.
func TierNames() []string {
	return []string{
		string(model.UrgencyCrisis),
		string(model.UrgencyUrgent),
		string(model.UrgencyStandard),
		string(model.UrgencyGeneral),
	}
}

// Priority returns the strict total order for a tier, CRISIS=1 highest.
// Unknown tiers sort last.
func Priority(level model.UrgencyLevel) int {
	if t, ok := tiers[level]; ok {
		return t.priority
	}
	return len(tiers) + 1
}

// Description returns the human description of a tier.
func Description(level model.UrgencyLevel) string {
	return tiers[level].description
}

// CallbackTime computes the scheduled callback for a case created at now.
// GENERAL cases get no callback and return nil.
func CallbackTime(level model.UrgencyLevel, now time.Time) *time.Time {
	t, ok := tiers[level]
	if !ok || t.callback == nil {
		return nil
	}
	at := now.Add(*t.callback)
	return &at
}
