package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregtusar/predictdesk/pkg/models"
	"github.com/gregtusar/predictdesk/pkg/research"
	"github.com/gregtusar/predictdesk/pkg/store"
)

var fixedNow = time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	server *Server
	clock  *testClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	clock := &testClock{now: fixedNow}
	st := store.New(store.WithClock(clock.Now), store.WithLogger(logger))
	require.NoError(t, st.LoadSeed(""))

	rs := research.NewService(st, nil, research.DefaultConfig(), logger, research.WithClock(clock))
	srv := NewServer(st, rs, logger, Options{Port: 0})
	srv.now = clock.Now

	return &testEnv{server: srv, clock: clock}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decode[map[string]string](t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "2024-10-01T12:00:00Z", body["timestamp"])
}

func TestConfigStatus_Golden(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/config/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	g := goldie.New(t)
	g.Assert(t, "config_status", rec.Body.Bytes())
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	stats := decode[models.DashboardStats](t, rec)
	assert.Equal(t, 8, stats.TotalMarkets)
	assert.Equal(t, 3, stats.ActiveOpportunities)
	assert.LessOrEqual(t, len(stats.TopCategories), 5)
}

func TestMarkets_Filtering(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/markets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[[]models.Market](t, rec)
	require.Len(t, all, 8)
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].Volume, all[i].Volume)
	}

	rec = env.do(t, http.MethodGet, "/api/markets?platform=kalshi&sortBy=liquidity&sortOrder=asc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	kalshi := decode[[]models.Market](t, rec)
	require.Len(t, kalshi, 3)
	for i, m := range kalshi {
		assert.Equal(t, models.PlatformKalshi, m.Platform)
		if i > 0 {
			assert.LessOrEqual(t, kalshi[i-1].Liquidity, m.Liquidity)
		}
	}

	rec = env.do(t, http.MethodGet, "/api/markets?category=Crypto", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Market](t, rec), 2)
}

func TestMarkets_InvalidFilter(t *testing.T) {
	env := newTestEnv(t)

	for _, target := range []string{
		"/api/markets?minVolume=lots",
		"/api/markets?minLiquidity=-5",
		"/api/markets?platform=betfair",
		"/api/markets?sortBy=popularity",
		"/api/markets?sortOrder=sideways",
	} {
		rec := env.do(t, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		body := decode[map[string]string](t, rec)
		assert.Equal(t, "Invalid filter", body["error"], target)
		assert.NotEmpty(t, body["details"], target)
	}
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/markets/search?q=bitcoin", "")
	require.Equal(t, http.StatusOK, rec.Code)
	markets := decode[[]models.Market](t, rec)
	require.NotEmpty(t, markets)
	assert.Equal(t, "poly-btc-100k", markets[0].ID)

	rec = env.do(t, http.MethodGet, "/api/markets/search?q=zzzz-nothing", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestMarket(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/markets/kalshi/kalshi-fed-rate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	market := decode[models.Market](t, rec)
	assert.Equal(t, "kalshi-fed-rate", market.ID)
	assert.Equal(t, 0.18, market.YesPrice)

	rec = env.do(t, http.MethodGet, "/api/markets/kalshi/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Market not found", decode[map[string]string](t, rec)["error"])

	// Identity is (platform, id).
	rec = env.do(t, http.MethodGet, "/api/markets/polymarket/kalshi-fed-rate", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPriceHistory(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/markets/polymarket/poly-btc-100k/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]models.PriceHistory](t, rec)
	require.NotEmpty(t, history)
	last := history[len(history)-1]
	assert.Equal(t, 0.42, last.YesPrice)

	rec = env.do(t, http.MethodGet, "/api/markets/polymarket/unknown/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestCompare(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/markets/compare?polymarket=poly-btc-100k&kalshi=kalshi-fed-rate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cmp := decode[models.MarketComparison](t, rec)
	require.NotNil(t, cmp.PolymarketMarket)
	require.NotNil(t, cmp.KalshiMarket)
	require.NotNil(t, cmp.PriceDifference)
	assert.InDelta(t, 0.24, *cmp.PriceDifference, 1e-9)
	assert.True(t, cmp.ArbitrageOpportunity)
	require.NotNil(t, cmp.ArbitrageProfit)
	assert.InDelta(t, 0.24, *cmp.ArbitrageProfit, 1e-9)

	rec = env.do(t, http.MethodGet, "/api/markets/compare?kalshi=kalshi-fed-rate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	single := decode[models.MarketComparison](t, rec)
	assert.Nil(t, single.PolymarketMarket)
	assert.Nil(t, single.PriceDifference)
	assert.False(t, single.ArbitrageOpportunity)

	rec = env.do(t, http.MethodGet, "/api/markets/compare", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/markets/compare?polymarket=missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOpportunities_SortedByExpectedValue(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/opportunities", "")
	require.Equal(t, http.StatusOK, rec.Code)
	opps := decode[[]models.Opportunity](t, rec)
	require.Len(t, opps, 3)
	for i := 1; i < len(opps); i++ {
		assert.GreaterOrEqual(t, opps[i-1].ExpectedValue, opps[i].ExpectedValue)
	}
}

func TestResearchLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/caesar/research", `{"query":"Will the Fed cut in December?","computeUnits":3,"marketId":"kalshi-fed-rate"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	job := decode[models.ResearchJob](t, rec)
	assert.Equal(t, models.JobPending, job.Status)
	assert.Equal(t, 3, job.ComputeUnits)
	assert.Equal(t, "kalshi-fed-rate", job.MarketID)

	rec = env.do(t, http.MethodGet, "/api/caesar/jobs/"+job.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.JobPending, decode[models.ResearchJob](t, rec).Status)

	env.clock.Advance(4 * time.Second)
	rec = env.do(t, http.MethodGet, "/api/caesar/jobs/"+job.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.JobProcessing, decode[models.ResearchJob](t, rec).Status)

	env.clock.Advance(5 * time.Second)
	rec = env.do(t, http.MethodGet, "/api/caesar/jobs/"+job.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	done := decode[models.ResearchJob](t, rec)
	assert.Equal(t, models.JobCompleted, done.Status)
	assert.NotEmpty(t, done.Result)
	assert.Len(t, done.Citations, 3)
	assert.NotNil(t, done.CompletedAt)

	rec = env.do(t, http.MethodGet, "/api/caesar/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	jobs := decode[[]models.ResearchJob](t, rec)
	require.Len(t, jobs, 1)
	assert.Equal(t, job.ID, jobs[0].ID)
}

func TestResearch_DefaultComputeUnits(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/caesar/research", `{"query":"q"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, decode[models.ResearchJob](t, rec).ComputeUnits)
}

func TestResearch_InvalidBody(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{
		`not json`,
		`{}`,
		`{"query":""}`,
		`{"query":"   "}`,
		`{"query":42}`,
		`{"query":"q","computeUnits":0}`,
		`{"query":"q","computeUnits":11}`,
		`{"query":"q","computeUnits":2.5}`,
		`{"query":"q","computeUnits":"3"}`,
	} {
		rec := env.do(t, http.MethodPost, "/api/caesar/research", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "Invalid request body", decode[map[string]string](t, rec)["error"], body)
	}

	rec := env.do(t, http.MethodGet, "/api/caesar/jobs", "")
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestJob_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/caesar/jobs/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Job not found", decode[map[string]string](t, rec)["error"])
}

func TestRiskReward(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/calculate/risk-reward", `{"probability":0.6,"price":0.5,"bankroll":1000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decode[models.RiskReward](t, rec)
	assert.InDelta(t, 0.1, result.ExpectedValue, 1e-12)
	assert.InDelta(t, 1.0, result.Odds, 1e-12)
	assert.InDelta(t, 0.2, result.KellyFraction, 1e-12)
	assert.InDelta(t, 0.1, result.HalfKelly, 1e-12)
	assert.InDelta(t, 100.0, result.RecommendedStake, 1e-9)
	assert.Equal(t, models.RiskExtreme, result.RiskRating)
	assert.Equal(t, 0.5, result.BreakEvenProbability)
}

func TestRiskReward_Invalid(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{
		`{"probability":"0.6","price":0.5,"bankroll":1000}`,
		`{"price":0.5,"bankroll":1000}`,
		`{"probability":0.6,"price":0,"bankroll":1000}`,
		`{"probability":0.6,"price":1,"bankroll":1000}`,
		`{"probability":1.5,"price":0.5,"bankroll":1000}`,
		`{"probability":0.6,"price":0.5,"bankroll":-1}`,
		`[]`,
	} {
		rec := env.do(t, http.MethodPost, "/api/calculate/risk-reward", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "Invalid parameters", decode[map[string]string](t, rec)["error"], body)
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", decode[map[string]string](t, rec)["error"])
}

func TestRecoverer(t *testing.T) {
	env := newTestEnv(t)

	h := env.server.recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decode[map[string]string](t, rec)["error"])
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/markets", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
