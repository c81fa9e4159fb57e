package store

import (
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/gregtusar/predictdesk/pkg/models"
)

// Markets returns the markets matching filter, ordered by filter.SortBy.
func (s *Store) Markets(filter models.MarketFilter) []models.Market {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var search matcher
	if filter.Search != "" {
		search = newMatcher(filter.Search)
	}

	out := make([]models.Market, 0, len(s.markets))
	for _, m := range s.markets {
		if filter.Platform != "" && filter.Platform != "all" && string(m.Platform) != filter.Platform {
			continue
		}
		if filter.Category != "" && m.Category != filter.Category {
			continue
		}
		if filter.MinLiquidity > 0 && m.Liquidity < filter.MinLiquidity {
			continue
		}
		if filter.MinVolume > 0 && m.Volume < filter.MinVolume {
			continue
		}
		if search != nil && !search(m) {
			continue
		}
		out = append(out, *cloneMarket(m))
	}

	sortMarkets(out, filter.SortBy, filter.SortOrder)
	return out
}

func (s *Store) Market(platform, id string) (*models.Market, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.markets[models.MarketKey{Platform: models.Platform(platform), ID: id}]
	if !ok {
		return nil, false
	}
	return cloneMarket(m), true
}

// Search matches query case-insensitively against question, description and
// category. An empty query matches everything.
func (s *Store) Search(query string) []models.Market {
	s.mu.RLock()
	defer s.mu.RUnlock()

	match := newMatcher(query)
	out := make([]models.Market, 0)
	for _, m := range s.markets {
		if match(m) {
			out = append(out, *cloneMarket(m))
		}
	}
	sortMarkets(out, models.SortByVolume, models.SortDesc)
	return out
}

// PriceHistory returns the history for a market, or an empty slice if the
// market is unknown.
func (s *Store) PriceHistory(platform, id string) []models.PriceHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.histories[models.MarketKey{Platform: models.Platform(platform), ID: id}]
	return append(make([]models.PriceHistory, 0, len(h)), h...)
}

// Opportunities returns all opportunities, highest expected value first.
func (s *Store) Opportunities() []models.Opportunity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Opportunity, 0, len(s.opportunities))
	for _, o := range s.opportunities {
		c := *o
		c.Market = *cloneMarket(&o.Market)
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ExpectedValue != out[j].ExpectedValue {
			return out[i].ExpectedValue > out[j].ExpectedValue
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) Stats() models.DashboardStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.DashboardStats{
		TotalMarkets:        len(s.markets),
		ActiveOpportunities: len(s.opportunities),
		TopCategories:       make([]models.CategoryCount, 0),
	}

	categories := make(map[string]int)
	for _, m := range s.markets {
		stats.TotalVolume += m.Volume
		if m.Category != "" {
			categories[m.Category]++
		}
	}
	for name, count := range categories {
		stats.TopCategories = append(stats.TopCategories, models.CategoryCount{Name: name, Count: count})
	}
	sort.Slice(stats.TopCategories, func(i, j int) bool {
		a, b := stats.TopCategories[i], stats.TopCategories[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Name < b.Name
	})
	if len(stats.TopCategories) > 5 {
		stats.TopCategories = stats.TopCategories[:5]
	}

	if len(s.opportunities) > 0 {
		var sum float64
		for _, o := range s.opportunities {
			sum += o.ExpectedValue
		}
		stats.AverageEV = sum / float64(len(s.opportunities))
	}
	return stats
}

type matcher func(*models.Market) bool

func newMatcher(query string) matcher {
	// Casers keep internal state and must not be shared between goroutines.
	fold := cases.Fold()
	q := fold.String(query)
	return func(m *models.Market) bool {
		return strings.Contains(fold.String(m.Question), q) ||
			strings.Contains(fold.String(m.Description), q) ||
			strings.Contains(fold.String(m.Category), q)
	}
}

func sortMarkets(markets []models.Market, by models.SortField, order models.SortOrder) {
	compare := func(a, b *models.Market) float64 {
		switch by {
		case models.SortByLiquidity:
			return a.Liquidity - b.Liquidity
		case models.SortByClosingDate:
			return float64(endUnix(a) - endUnix(b))
		case models.SortByExpectedValue:
			return math.Abs(a.YesPrice-0.5) - math.Abs(b.YesPrice-0.5)
		default:
			return a.Volume - b.Volume
		}
	}
	sort.SliceStable(markets, func(i, j int) bool {
		d := compare(&markets[i], &markets[j])
		if d == 0 {
			return markets[i].Key().String() < markets[j].Key().String()
		}
		if order == models.SortAsc {
			return d < 0
		}
		return d > 0
	})
}

// endUnix treats a missing end date as the epoch.
func endUnix(m *models.Market) int64 {
	if m.EndDate == nil {
		return time.Unix(0, 0).UnixMilli()
	}
	return m.EndDate.UnixMilli()
}
