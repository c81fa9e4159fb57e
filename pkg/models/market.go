package models

import (
	"fmt"
	"time"
)

type Platform string

const (
	PlatformPolymarket Platform = "polymarket"
	PlatformKalshi     Platform = "kalshi"
)

func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case PlatformPolymarket, PlatformKalshi:
		return Platform(s), nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

type Market struct {
	ID          string     `json:"id"`
	Platform    Platform   `json:"platform"`
	Question    string     `json:"question"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	YesPrice    float64    `json:"yesPrice"`
	NoPrice     float64    `json:"noPrice"`
	Volume      float64    `json:"volume"`
	Liquidity   float64    `json:"liquidity"`
	Outcomes    []Outcome  `json:"outcomes,omitempty"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	URL         string     `json:"url,omitempty"`
	LastUpdated time.Time  `json:"lastUpdated"`
}

type Outcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// MarketKey identifies a market across platforms; ids are only unique per platform.
type MarketKey struct {
	Platform Platform
	ID       string
}

func (k MarketKey) String() string {
	return string(k.Platform) + "-" + k.ID
}

func (m *Market) Key() MarketKey {
	return MarketKey{Platform: m.Platform, ID: m.ID}
}

type PriceHistory struct {
	Timestamp time.Time `json:"timestamp"`
	YesPrice  float64   `json:"yesPrice"`
	NoPrice   float64   `json:"noPrice"`
	Volume    float64   `json:"volume"`
}

type SortField string

const (
	SortByVolume        SortField = "volume"
	SortByLiquidity     SortField = "liquidity"
	SortByClosingDate   SortField = "closing_date"
	SortByExpectedValue SortField = "expected_value"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// MarketFilter narrows and orders a market listing. An empty Platform or
// "all" matches every platform; zero thresholds are ignored.
type MarketFilter struct {
	Platform     string
	Category     string
	MinLiquidity float64
	MinVolume    float64
	SortBy       SortField
	SortOrder    SortOrder
	Search       string
}

func DefaultMarketFilter() MarketFilter {
	return MarketFilter{
		Platform:  "all",
		SortBy:    SortByVolume,
		SortOrder: SortDesc,
	}
}

func (f MarketFilter) Validate() error {
	switch f.Platform {
	case "", "all", string(PlatformPolymarket), string(PlatformKalshi):
	default:
		return fmt.Errorf("invalid platform %q", f.Platform)
	}
	switch f.SortBy {
	case SortByVolume, SortByLiquidity, SortByClosingDate, SortByExpectedValue:
	default:
		return fmt.Errorf("invalid sortBy %q", f.SortBy)
	}
	switch f.SortOrder {
	case SortAsc, SortDesc:
	default:
		return fmt.Errorf("invalid sortOrder %q", f.SortOrder)
	}
	if f.MinLiquidity < 0 {
		return fmt.Errorf("minLiquidity must be >= 0")
	}
	if f.MinVolume < 0 {
		return fmt.Errorf("minVolume must be >= 0")
	}
	return nil
}

type MarketComparison struct {
	PolymarketMarket     *Market  `json:"polymarketMarket,omitempty"`
	KalshiMarket         *Market  `json:"kalshiMarket,omitempty"`
	PriceDifference      *float64 `json:"priceDifference,omitempty"`
	ArbitrageOpportunity bool     `json:"arbitrageOpportunity"`
	ArbitrageProfit      *float64 `json:"arbitrageProfit,omitempty"`
}

type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type DashboardStats struct {
	TotalMarkets        int             `json:"totalMarkets"`
	TotalVolume         float64         `json:"totalVolume"`
	ActiveOpportunities int             `json:"activeOpportunities"`
	AverageEV           float64         `json:"averageEV"`
	TopCategories       []CategoryCount `json:"topCategories"`
}

type Features struct {
	Polymarket bool `json:"polymarket"`
	Kalshi     bool `json:"kalshi"`
	Caesar     bool `json:"caesar"`
}

type ConfigStatus struct {
	CaesarAPIConfigured bool     `json:"caesarApiConfigured"`
	Features            Features `json:"features"`
}
