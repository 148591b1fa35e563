package service

import (
	"github.com/shopspring/decimal"

	"promotracker-backend/internal/domains/promotion/model"
)

// BonusCalculator derives a reward's value from a contributing condition's
// calculated-value parameters and the deposit amount that fulfilled it.
type BonusCalculator struct{}

func NewBonusCalculator() *BonusCalculator {
	return &BonusCalculator{}
}

// Calculate computes the bonus for a fulfilling amount:
//
//	effective = min(amount, maxAmount)        (no cap when maxAmount is nil)
//	value     = min(effective * pct / 100, maxBonus)
//
// The caller has already checked amount >= MinAmount; Calculate does not
// re-gate.
func (c *BonusCalculator) Calculate(params model.CalculatedValueParams, amount decimal.Decimal) decimal.Decimal {
	effective := amount
	if params.MaxAmount != nil && effective.GreaterThan(*params.MaxAmount) {
		effective = *params.MaxAmount
	}

	value := effective.Mul(params.BonusPercentage).Div(decimal.NewFromInt(100))
	if value.GreaterThan(params.MaxBonusAmount) {
		value = params.MaxBonusAmount
	}
	return value
}
