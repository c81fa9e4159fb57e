package sizing

import (
	"math"

	"github.com/gregtusar/predictdesk/pkg/models"
)

// Compare lines up the same question on both venues. Either side may be nil,
// in which case only the present market is echoed back.
//
// An arbitrage exists when YES on one venue plus NO on the other costs less
// than the 1.0 payout; the profit is the cheaper pair's shortfall from 1.
func Compare(poly, kalshi *models.Market) models.MarketComparison {
	cmp := models.MarketComparison{
		PolymarketMarket: poly,
		KalshiMarket:     kalshi,
	}
	if poly == nil || kalshi == nil {
		return cmp
	}

	diff := math.Abs(poly.YesPrice - kalshi.YesPrice)
	cmp.PriceDifference = &diff

	cost := math.Min(poly.YesPrice+kalshi.NoPrice, kalshi.YesPrice+poly.NoPrice)
	if cost < 1 {
		profit := 1 - cost
		cmp.ArbitrageOpportunity = true
		cmp.ArbitrageProfit = &profit
	}
	return cmp
}
