// Package benefits estimates benefit entitlements from household
// circumstances. The figures are the simplified standard rates used for
// triage conversations, not a full entitlement check.
package benefits

import (
	"context"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/adviceline/concierge/internal/model"
	"github.com/adviceline/concierge/internal/store"
)

// Standard monthly rates.
const (
	ucStandardAllowance = 368.74
	ucChildElement      = 290.0
	ucIncomeTaper       = 0.55
	ucIncomeCutoff      = 1500.0

	housingSupportCap = 1200.0

	councilTaxSupport      = 150.0
	councilTaxIncomeCutoff = 2000.0

	pipStandardDailyLiving = 434.0
)

// Circumstances describes the household for an estimate.
type Circumstances struct {
	MonthlyIncome float64 `json:"monthlyIncome"`
	MonthlyRent   float64 `json:"monthlyRent"`
	HasDisability bool    `json:"hasDisability"`
	HasChildren   bool    `json:"hasChildren"`
	NumChildren   int     `json:"numChildren"`
}

// Estimate computes the entitlement breakdown. Pure and deterministic.
func Estimate(c Circumstances) model.BenefitEstimate {
	var e model.BenefitEstimate

	if c.MonthlyIncome < ucIncomeCutoff {
		standard := ucStandardAllowance
		if c.HasChildren {
			standard += ucChildElement * float64(c.NumChildren)
		}
		e.UniversalCredit = math.Max(0, standard-c.MonthlyIncome*ucIncomeTaper)
	}
	if c.MonthlyRent > 0 {
		e.HousingSupport = math.Min(c.MonthlyRent, housingSupportCap)
	}
	if c.MonthlyIncome < councilTaxIncomeCutoff {
		e.CouncilTaxSupport = councilTaxSupport
	}
	if c.HasDisability {
		e.PIP = pipStandardDailyLiving
	}
	e.TotalMonthly = e.UniversalCredit + e.HousingSupport + e.CouncilTaxSupport + e.PIP
	return e
}

// Calculator estimates entitlements and keeps a record of each
// calculation. Persistence is best effort.
type Calculator struct {
	estimates store.Benefits
}

func NewCalculator(estimates store.Benefits) *Calculator {
	return &Calculator{estimates: estimates}
}

func (c *Calculator) Calculate(ctx context.Context, userID string, circ Circumstances) model.BenefitEstimate {
	e := Estimate(circ)
	e.UserID = userID
	if c.estimates != nil {
		if saved, err := c.estimates.Create(ctx, &e); err != nil {
			log.Warn().Err(err).Str("userId", userID).Msg("benefit estimate persist failed")
		} else {
			e = *saved
		}
	}
	return e
}
