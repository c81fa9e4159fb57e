package sizing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregtusar/predictdesk/pkg/models"
)

func TestCompute_FairPrice(t *testing.T) {
	res, err := Compute(0.5, 0.5, 1000)
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.ExpectedValue)
	assert.Equal(t, 0.0, res.KellyFraction)
	assert.Equal(t, 0.0, res.HalfKelly)
	assert.Equal(t, 0.0, res.RecommendedStake)
	assert.Equal(t, 1.0, res.Odds)
	assert.Equal(t, models.RiskLow, res.RiskRating)
	assert.Equal(t, 0.5, res.BreakEvenProbability)
}

func TestCompute_PositiveEdge(t *testing.T) {
	res, err := Compute(0.6, 0.5, 1000)
	require.NoError(t, err)

	assert.Equal(t, 1.0, res.Odds)
	assert.InDelta(t, 0.2, res.KellyFraction, 1e-12)
	assert.InDelta(t, 0.1, res.HalfKelly, 1e-12)
	assert.InDelta(t, 100, res.RecommendedStake, 1e-9)
	assert.InDelta(t, 100, res.PotentialProfit, 1e-9)
	assert.Equal(t, res.RecommendedStake, res.PotentialLoss)
	assert.Equal(t, models.RiskExtreme, res.RiskRating)
}

func TestCompute_ExpectedValueIsExactDifference(t *testing.T) {
	cases := [][3]float64{
		{0.1, 0.9, 0},
		{0.33, 0.27, 250},
		{0.72, 0.42, 1e6},
		{0.999, 0.001, 10},
		{0.18, 0.82, 5000},
	}
	for _, c := range cases {
		res, err := Compute(c[0], c[1], c[2])
		require.NoError(t, err)
		assert.Equal(t, c[0]-c[1], res.ExpectedValue, "p=%v price=%v", c[0], c[1])
	}
}

func TestCompute_KellyNeverNegative(t *testing.T) {
	for _, p := range []float64{0, 0.1, 0.3, 0.49} {
		res, err := Compute(p, 0.5, 1000)
		require.NoError(t, err)
		assert.Equal(t, 0.0, res.KellyFraction, "p=%v", p)
		assert.Equal(t, 0.0, res.RecommendedStake, "p=%v", p)
		assert.Equal(t, models.RiskLow, res.RiskRating, "p=%v", p)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	a, err := Compute(0.37, 0.29, 1234.5)
	require.NoError(t, err)
	b, err := Compute(0.37, 0.29, 1234.5)
	require.NoError(t, err)

	assert.Equal(t, math.Float64bits(a.KellyFraction), math.Float64bits(b.KellyFraction))
	assert.Equal(t, math.Float64bits(a.PotentialProfit), math.Float64bits(b.PotentialProfit))
}

func TestCompute_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name                     string
		probability, price, bank float64
		want                     error
	}{
		{"zero price", 0.5, 0, 100, ErrInvalidPrice},
		{"price of one", 0.5, 1, 100, ErrInvalidPrice},
		{"negative price", 0.5, -0.2, 100, ErrInvalidPrice},
		{"price NaN", 0.5, math.NaN(), 100, ErrInvalidPrice},
		{"price too small for odds", 0.5, math.SmallestNonzeroFloat64, 100, ErrInvalidPrice},
		{"probability above one", 1.2, 0.5, 100, ErrInvalidProbability},
		{"probability negative", -0.1, 0.5, 100, ErrInvalidProbability},
		{"probability infinite", math.Inf(1), 0.5, 100, ErrInvalidProbability},
		{"negative bankroll", 0.5, 0.5, -1, ErrInvalidBankroll},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.probability, tt.price, tt.bank)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRate_Boundaries(t *testing.T) {
	tests := []struct {
		halfKelly float64
		want      models.RiskRating
	}{
		{0, models.RiskLow},
		{0.0199, models.RiskLow},
		{0.02, models.RiskMedium},
		{0.0499, models.RiskMedium},
		{0.05, models.RiskHigh},
		{0.0999, models.RiskHigh},
		{0.10, models.RiskExtreme},
		{0.5, models.RiskExtreme},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Rate(tt.halfKelly), "halfKelly=%v", tt.halfKelly)
	}
}
