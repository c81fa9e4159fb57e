package models

type RiskRating string

const (
	RiskLow     RiskRating = "low"
	RiskMedium  RiskRating = "medium"
	RiskHigh    RiskRating = "high"
	RiskExtreme RiskRating = "extreme"
)

type RiskReward struct {
	ExpectedValue        float64    `json:"expectedValue"`
	KellyFraction        float64    `json:"kellyFraction"`
	HalfKelly            float64    `json:"halfKelly"`
	RecommendedStake     float64    `json:"recommendedStake"`
	PotentialProfit      float64    `json:"potentialProfit"`
	PotentialLoss        float64    `json:"potentialLoss"`
	RiskRating           RiskRating `json:"riskRating"`
	Odds                 float64    `json:"odds"`
	BreakEvenProbability float64    `json:"breakEvenProbability"`
}
