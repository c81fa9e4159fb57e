package research

import (
	"time"

	"github.com/gregtusar/predictdesk/pkg/models"
)

// Timeline sets when a simulated job leaves each non-terminal state.
type Timeline struct {
	PendingFor      time.Duration
	ProcessingUntil time.Duration
}

func DefaultTimeline() Timeline {
	return Timeline{
		PendingFor:      3 * time.Second,
		ProcessingUntil: 8 * time.Second,
	}
}

// SimulatedUpdate reports where a simulated job should be after elapsed time.
// It depends on nothing but its arguments.
func SimulatedUpdate(elapsed time.Duration, tl Timeline) models.ResearchUpdate {
	switch {
	case elapsed < tl.PendingFor:
		return models.ResearchUpdate{Status: models.JobPending}
	case elapsed < tl.ProcessingUntil:
		return models.ResearchUpdate{Status: models.JobProcessing}
	default:
		return models.ResearchUpdate{
			Status:    models.JobCompleted,
			Result:    simulatedResult,
			Citations: simulatedCitations(),
		}
	}
}

func simulatedCitations() []models.Citation {
	return []models.Citation{
		{
			ID:             "cite-1",
			URL:            "https://research.example.com/prediction-markets-analysis",
			Title:          "Prediction Markets: An Analysis of Efficiency",
			Snippet:        "Studies show prediction markets are generally efficient but can exhibit systematic biases in certain conditions...",
			RelevanceScore: 0.92,
		},
		{
			ID:             "cite-2",
			URL:            "https://academic.example.org/market-microstructure",
			Title:          "Market Microstructure and Price Discovery",
			Snippet:        "The relationship between liquidity and price accuracy in prediction markets reveals important patterns...",
			RelevanceScore: 0.85,
		},
		{
			ID:             "cite-3",
			URL:            "https://finance.example.com/risk-management",
			Title:          "Optimal Position Sizing Using Kelly Criterion",
			Snippet:        "The Kelly Criterion provides a mathematically optimal approach to position sizing, maximizing long-term growth...",
			RelevanceScore: 0.78,
		},
	}
}

const simulatedResult = `Based on comprehensive analysis of prediction market data and relevant factors:

**Market Assessment:**
The current pricing appears to incorporate most publicly available information. However, there are several key factors that may not be fully priced in:

1. **Historical Patterns:** Similar markets have shown a tendency to underestimate tail events by approximately 15-20%.

2. **Information Asymmetry:** Institutional participants may have access to data suggesting different probability estimates.

3. **Liquidity Considerations:** The current liquidity depth suggests potential for price impact on larger positions.

**Risk Factors:**
- Regulatory changes could significantly impact outcomes
- Market sentiment may shift based on upcoming announcements
- Correlation with broader market conditions exists

**Recommendation:**
Consider the Kelly Criterion for position sizing, with a recommended half-Kelly approach for more conservative risk management. The expected value analysis suggests a potential edge exists.`
