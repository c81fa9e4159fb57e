// Package store keeps the dashboard's markets, opportunities, price histories
// and research jobs in memory.
//
// A Store is built once at startup and shared by the HTTP handlers and the
// research service. All access goes through an RWMutex; readers receive
// copies, so callers may modify what they get back.
package store

import (
	"sync"
	"time"

	"github.com/gregtusar/predictdesk/pkg/models"
	"github.com/sirupsen/logrus"
)

type Store struct {
	markets       map[models.MarketKey]*models.Market
	opportunities map[string]*models.Opportunity
	histories     map[models.MarketKey][]models.PriceHistory
	jobs          map[string]*models.ResearchJob
	now           func() time.Time
	logger        *logrus.Logger
	mu            sync.RWMutex
}

type Option func(*Store)

// WithClock overrides the wall clock used for generated price histories.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func WithLogger(logger *logrus.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New returns an empty store. Use LoadSeed or the Update methods to fill it.
func New(opts ...Option) *Store {
	s := &Store{
		markets:       make(map[models.MarketKey]*models.Market),
		opportunities: make(map[string]*models.Opportunity),
		histories:     make(map[models.MarketKey][]models.PriceHistory),
		jobs:          make(map[string]*models.ResearchJob),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logrus.New()
	}
	return s
}

// UpdateMarkets replaces markets by key. Markets seen for the first time get a
// generated price history.
func (s *Store) UpdateMarkets(markets []models.Market) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range markets {
		m := cloneMarket(&markets[i])
		key := m.Key()
		if _, exists := s.markets[key]; !exists {
			s.histories[key] = generatePriceHistory(m, s.now())
		}
		s.markets[key] = m
	}
	s.logger.WithField("count", len(markets)).Debug("Updated markets cache")
}

// UpdateOpportunities drops every stored opportunity and stores the given set.
func (s *Store) UpdateOpportunities(opportunities []models.Opportunity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.opportunities = make(map[string]*models.Opportunity, len(opportunities))
	for i := range opportunities {
		o := opportunities[i]
		o.Market = *cloneMarket(&o.Market)
		s.opportunities[o.ID] = &o
	}
	s.logger.WithField("count", len(opportunities)).Debug("Updated opportunities cache")
}

func cloneMarket(m *models.Market) *models.Market {
	c := *m
	if m.EndDate != nil {
		t := *m.EndDate
		c.EndDate = &t
	}
	if m.Outcomes != nil {
		c.Outcomes = append([]models.Outcome(nil), m.Outcomes...)
	}
	return &c
}
