package models

import (
	"fmt"
	"time"
)

type OpportunityType string

const (
	OpportunityMispriced OpportunityType = "mispriced"
	OpportunityArbitrage OpportunityType = "arbitrage"
	OpportunityHighEV    OpportunityType = "high_ev"
	OpportunityValueBet  OpportunityType = "value_bet"
)

type RecommendedAction string

const (
	ActionBuyYes RecommendedAction = "buy_yes"
	ActionBuyNo  RecommendedAction = "buy_no"
	ActionAvoid  RecommendedAction = "avoid"
)

// Opportunity is a market flagged as mispriced. ExpectedValue is advisory and
// is not checked against the market's prices.
type Opportunity struct {
	ID                string            `json:"id"`
	Market            Market            `json:"market"`
	OpportunityType   OpportunityType   `json:"opportunityType"`
	ExpectedValue     float64           `json:"expectedValue"`
	KellySize         float64           `json:"kellySize"`
	Confidence        float64           `json:"confidence"`
	Reasoning         string            `json:"reasoning"`
	RecommendedAction RecommendedAction `json:"recommendedAction"`
	DetectedAt        time.Time         `json:"detectedAt"`
}

func (o *Opportunity) Validate() error {
	switch o.OpportunityType {
	case OpportunityMispriced, OpportunityArbitrage, OpportunityHighEV, OpportunityValueBet:
	default:
		return fmt.Errorf("opportunity %s: unknown type %q", o.ID, o.OpportunityType)
	}
	switch o.RecommendedAction {
	case ActionBuyYes, ActionBuyNo, ActionAvoid:
	default:
		return fmt.Errorf("opportunity %s: unknown action %q", o.ID, o.RecommendedAction)
	}
	if o.Confidence < 0 || o.Confidence > 1 {
		return fmt.Errorf("opportunity %s: confidence %.2f outside [0,1]", o.ID, o.Confidence)
	}
	return nil
}
