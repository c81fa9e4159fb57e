package sizing

import (
	"errors"
	"fmt"
	"math"

	"github.com/gregtusar/predictdesk/pkg/models"
)

var (
	ErrInvalidProbability = errors.New("probability must be within [0, 1]")
	ErrInvalidPrice       = errors.New("price must be strictly between 0 and 1")
	ErrInvalidBankroll    = errors.New("bankroll must be >= 0")
)

// Rating breakpoints on the half-Kelly fraction. Each bound is exclusive for
// the lower tier.
const (
	lowBelow    = 0.02
	mediumBelow = 0.05
	highBelow   = 0.10

	ratingTolerance = 1e-9
)

// Compute sizes a binary-contract position with half-Kelly.
//
// probability is the caller's estimate that the contract resolves YES, price
// the market price of a YES share. Every field is evaluated in float64 in a
// fixed order so identical inputs give identical bits.
func Compute(probability, price, bankroll float64) (models.RiskReward, error) {
	if !finite(probability) || probability < 0 || probability > 1 {
		return models.RiskReward{}, fmt.Errorf("%w: got %v", ErrInvalidProbability, probability)
	}
	if !finite(price) || price <= 0 || price >= 1 {
		return models.RiskReward{}, fmt.Errorf("%w: got %v", ErrInvalidPrice, price)
	}
	if !finite(bankroll) || bankroll < 0 {
		return models.RiskReward{}, fmt.Errorf("%w: got %v", ErrInvalidBankroll, bankroll)
	}

	expectedValue := probability - price
	odds := 1/price - 1
	// 1/price overflows for subnormal prices.
	if !(odds > 0) || math.IsInf(odds, 0) {
		return models.RiskReward{}, fmt.Errorf("%w: payout odds undefined at %v", ErrInvalidPrice, price)
	}

	kellyFraction := math.Max(0, (probability*(odds+1)-1)/odds)
	halfKelly := kellyFraction / 2
	recommendedStake := bankroll * halfKelly

	return models.RiskReward{
		ExpectedValue:        expectedValue,
		KellyFraction:        kellyFraction,
		HalfKelly:            halfKelly,
		RecommendedStake:     recommendedStake,
		PotentialProfit:      recommendedStake * odds,
		PotentialLoss:        recommendedStake,
		RiskRating:           Rate(halfKelly),
		Odds:                 odds,
		BreakEvenProbability: price,
	}, nil
}

// Rate buckets a half-Kelly fraction. Values within ratingTolerance below a
// breakpoint count as reaching it, so 0.1-ε from float rounding rates extreme.
func Rate(halfKelly float64) models.RiskRating {
	switch {
	case halfKelly < lowBelow-ratingTolerance:
		return models.RiskLow
	case halfKelly < mediumBelow-ratingTolerance:
		return models.RiskMedium
	case halfKelly < highBelow-ratingTolerance:
		return models.RiskHigh
	default:
		return models.RiskExtreme
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
