package store

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/gregtusar/predictdesk/pkg/models"
)

//go:embed seed.yaml
var defaultSeed []byte

type seedFile struct {
	Markets       []seedMarket      `yaml:"markets"`
	Opportunities []seedOpportunity `yaml:"opportunities"`
}

type seedMarket struct {
	ID          string           `yaml:"id"`
	Platform    string           `yaml:"platform"`
	Question    string           `yaml:"question"`
	Description string           `yaml:"description"`
	Category    string           `yaml:"category"`
	EndDate     string           `yaml:"endDate"`
	YesPrice    float64          `yaml:"yesPrice"`
	NoPrice     float64          `yaml:"noPrice"`
	Volume      float64          `yaml:"volume"`
	Liquidity   float64          `yaml:"liquidity"`
	Outcomes    []models.Outcome `yaml:"outcomes"`
	ImageURL    string           `yaml:"imageUrl"`
	URL         string           `yaml:"url"`
}

type seedOpportunity struct {
	ID                string  `yaml:"id"`
	Platform          string  `yaml:"platform"`
	MarketID          string  `yaml:"marketId"`
	Type              string  `yaml:"type"`
	ExpectedValue     float64 `yaml:"expectedValue"`
	KellySize         float64 `yaml:"kellySize"`
	Confidence        float64 `yaml:"confidence"`
	Reasoning         string  `yaml:"reasoning"`
	RecommendedAction string  `yaml:"recommendedAction"`
}

// LoadSeed fills the store from a YAML seed file. An empty path loads the
// sample data compiled into the binary.
func (s *Store) LoadSeed(path string) error {
	data := defaultSeed
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read seed file: %w", err)
		}
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	now := s.now()
	markets := make([]models.Market, 0, len(seed.Markets))
	byKey := make(map[models.MarketKey]models.Market, len(seed.Markets))
	for _, sm := range seed.Markets {
		m, err := sm.toMarket(now)
		if err != nil {
			return err
		}
		markets = append(markets, m)
		byKey[m.Key()] = m
	}

	opportunities := make([]models.Opportunity, 0, len(seed.Opportunities))
	for _, so := range seed.Opportunities {
		key := models.MarketKey{Platform: models.Platform(so.Platform), ID: so.MarketID}
		market, ok := byKey[key]
		if !ok {
			return fmt.Errorf("opportunity %s references unknown market %s", so.ID, key)
		}
		o := models.Opportunity{
			ID:                so.ID,
			Market:            market,
			OpportunityType:   models.OpportunityType(so.Type),
			ExpectedValue:     so.ExpectedValue,
			KellySize:         so.KellySize,
			Confidence:        so.Confidence,
			Reasoning:         so.Reasoning,
			RecommendedAction: models.RecommendedAction(so.RecommendedAction),
			DetectedAt:        now,
		}
		if err := o.Validate(); err != nil {
			return err
		}
		opportunities = append(opportunities, o)
	}

	s.UpdateMarkets(markets)
	s.UpdateOpportunities(opportunities)

	s.logger.WithFields(logrus.Fields{
		"markets":       len(markets),
		"opportunities": len(opportunities),
	}).Info("Loaded seed data")
	return nil
}

func (sm seedMarket) toMarket(now time.Time) (models.Market, error) {
	platform, err := models.ParsePlatform(sm.Platform)
	if err != nil {
		return models.Market{}, fmt.Errorf("market %s: %w", sm.ID, err)
	}
	if sm.YesPrice < 0 || sm.YesPrice > 1 || sm.NoPrice < 0 || sm.NoPrice > 1 {
		return models.Market{}, fmt.Errorf("market %s: prices must be within [0,1]", sm.ID)
	}

	m := models.Market{
		ID:          sm.ID,
		Platform:    platform,
		Question:    sm.Question,
		Description: sm.Description,
		Category:    sm.Category,
		YesPrice:    sm.YesPrice,
		NoPrice:     sm.NoPrice,
		Volume:      sm.Volume,
		Liquidity:   sm.Liquidity,
		Outcomes:    sm.Outcomes,
		ImageURL:    sm.ImageURL,
		URL:         sm.URL,
		LastUpdated: now,
	}
	if sm.EndDate != "" {
		end, err := time.Parse(time.RFC3339, sm.EndDate)
		if err != nil {
			return models.Market{}, fmt.Errorf("market %s: bad endDate: %w", sm.ID, err)
		}
		m.EndDate = &end
	}
	return m, nil
}
